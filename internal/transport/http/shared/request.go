package shared

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"staffdesk/internal/platform/requestctx"
)

var (
	structValidatorOnce sync.Once
	structValidator     *validator.Validate
)

func validate() *validator.Validate {
	structValidatorOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
		structValidator.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
	})
	return structValidator
}

// ValidateStruct runs `validate` tags on payload and returns per-field issues.
func ValidateStruct(payload any) []ValidationIssue {
	err := validate().Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []ValidationIssue{{Field: "", Reason: "invalid payload"}}
	}
	v := NewValidator()
	for _, fe := range fieldErrs {
		v.Add(fe.Field(), issueReason(fe))
	}
	return v.Issues()
}

func issueReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// DecodeJSON decodes the body into payload and validates it. On failure it
// writes the error response and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, payload any, requestID string) bool {
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			FailPayloadTooLarge(w, requestID)
			return false
		}
		FailValidation(w, requestID, []ValidationIssue{{Field: "body", Reason: "must be a valid JSON object"}})
		return false
	}
	if issues := ValidateStruct(payload); len(issues) > 0 {
		FailValidation(w, requestID, issues)
		return false
	}
	return true
}

// ClientIP prefers the address captured by the request middleware.
func ClientIP(r *http.Request) string {
	if ip := requestctx.ClientIP(r.Context()); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
