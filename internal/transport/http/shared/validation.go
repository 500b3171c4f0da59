package shared

import (
	"cmp"
	"net/http"
	"slices"
	"strings"
	"time"

	"staffdesk/internal/transport/http/api"
)

const dateReason = "must be a valid date in YYYY-MM-DD format"

// ValidationIssue is one entry of error.details.fields.
type ValidationIssue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validator collects field issues for one request so they are reported together.
type Validator struct {
	issues []ValidationIssue
}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Add(field, reason string) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return
	}
	v.issues = append(v.issues, ValidationIssue{Field: strings.TrimSpace(field), Reason: reason})
}

// Struct adds the `validate` tag failures of payload.
func (v *Validator) Struct(payload any) {
	v.issues = append(v.issues, ValidateStruct(payload)...)
}

// OneOf matches value against allowed ignoring case and returns the allowed
// spelling, so "al" becomes "AL" and "approved" becomes "Approved". Blank
// values are left to the required tag.
func (v *Validator) OneOf(field, value string, allowed []string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	for _, candidate := range allowed {
		if strings.EqualFold(value, candidate) {
			return candidate
		}
	}
	v.Add(field, "must be one of: "+strings.Join(allowed, ", "))
	return value
}

// Date parses a required date.
func (v *Validator) Date(field, raw string) (time.Time, bool) {
	parsed, err := ParseDate(strings.TrimSpace(raw))
	if err != nil || parsed.IsZero() {
		v.Add(field, dateReason)
		return time.Time{}, false
	}
	return parsed, true
}

// DateRange checks optional from/to bounds; both ends are flagged when the
// range is reversed.
func (v *Validator) DateRange(fromField, fromRaw, toField, toRaw string) {
	var from, to time.Time
	if strings.TrimSpace(fromRaw) != "" {
		from, _ = v.Date(fromField, fromRaw)
	}
	if strings.TrimSpace(toRaw) != "" {
		to, _ = v.Date(toField, toRaw)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		v.Add(fromField, "must be on or before "+toField)
		v.Add(toField, "must be on or after "+fromField)
	}
}

func (v *Validator) HasIssues() bool {
	return len(v.issues) > 0
}

// Issues returns the collected issues ordered by field, then reason.
func (v *Validator) Issues() []ValidationIssue {
	if len(v.issues) == 0 {
		return nil
	}
	out := slices.Clone(v.issues)
	slices.SortStableFunc(out, func(a, b ValidationIssue) int {
		return cmp.Or(strings.Compare(a.Field, b.Field), strings.Compare(a.Reason, b.Reason))
	})
	return out
}

// Reject writes the collected issues as a 400 and reports whether it did.
func (v *Validator) Reject(w http.ResponseWriter, requestID string) bool {
	if !v.HasIssues() {
		return false
	}
	FailValidation(w, requestID, v.Issues())
	return true
}

func FailValidation(w http.ResponseWriter, requestID string, issues []ValidationIssue) {
	api.FailWithDetails(w, http.StatusBadRequest, "validation_error", "request validation failed",
		map[string]any{"fields": issues}, requestID)
}

func FailPayloadTooLarge(w http.ResponseWriter, requestID string) {
	api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
}
