package authhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"staffdesk/internal/domain/audit"
	"staffdesk/internal/domain/auth"
	"staffdesk/internal/domain/employees"
	"staffdesk/internal/platform/requestctx"
	"staffdesk/internal/transport/http/api"
	"staffdesk/internal/transport/http/middleware"
	"staffdesk/internal/transport/http/shared"
)

type Handler struct {
	Employees *employees.Service
	Audit     *audit.Service
	Secret    string
	TokenTTL  time.Duration
}

func NewHandler(employeesSvc *employees.Service, auditSvc *audit.Service, secret string, ttl time.Duration) *Handler {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Handler{Employees: employeesSvc, Audit: auditSvc, Secret: secret, TokenTTL: ttl}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	MFACode  string `json:"mfaCode"`
}

type mfaCodeRequest struct {
	Code string `json:"code" validate:"required"`
}

// RegisterRoutes mounts login publicly and the rest behind authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/me", h.HandleMe)
		r.Post("/auth/mfa/setup", h.HandleMFASetup)
		r.Post("/auth/mfa/enable", h.HandleMFAEnable)
		r.Post("/auth/mfa/disable", h.HandleMFADisable)
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.RequestID(r.Context())
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}

	emp, err := h.Employees.Authenticate(r.Context(), payload.Email, payload.Password, payload.MFACode)
	switch {
	case errors.Is(err, employees.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", requestID)
		return
	case errors.Is(err, employees.ErrMFARequired):
		api.Fail(w, http.StatusUnauthorized, "mfa_required", "mfa code required", requestID)
		return
	case errors.Is(err, employees.ErrMFAInvalid):
		api.Fail(w, http.StatusUnauthorized, "mfa_invalid", "invalid mfa code", requestID)
		return
	case err != nil:
		slog.Error("login failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to log in", requestID)
		return
	}

	token, err := auth.GenerateToken(h.Secret, auth.Claims{UserID: emp.ID, Email: emp.Email, Role: emp.Role}, h.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "token_error", "failed to issue token", requestID)
		return
	}
	h.Audit.Record(r.Context(), emp.ID, "auth.login", "employee", emp.ID, requestID, shared.ClientIP(r), nil, nil)

	api.Success(w, map[string]any{
		"token":     token,
		"expiresIn": int(h.TokenTTL.Seconds()),
		"user":      emp,
	}, requestID)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.RequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	emp, err := h.Employees.Get(r.Context(), user.UserID)
	if errors.Is(err, employees.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "profile_failed", "failed to load profile", requestID)
		return
	}
	api.Success(w, emp, requestID)
}

func (h *Handler) HandleMFASetup(w http.ResponseWriter, r *http.Request) {
	requestID := requestctx.RequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	key, err := h.Employees.SetupMFA(r.Context(), user.UserID)
	if errors.Is(err, employees.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
		return
	}
	if err != nil {
		slog.Error("mfa setup failed", "err", err, "userId", user.UserID)
		api.Fail(w, http.StatusInternalServerError, "mfa_setup_failed", "failed to generate mfa secret", requestID)
		return
	}
	api.Success(w, key, requestID)
}

func (h *Handler) HandleMFAEnable(w http.ResponseWriter, r *http.Request) {
	h.handleMFAChange(w, r, "enabled", h.Employees.EnableMFA)
}

func (h *Handler) HandleMFADisable(w http.ResponseWriter, r *http.Request) {
	h.handleMFAChange(w, r, "disabled", h.Employees.DisableMFA)
}

func (h *Handler) handleMFAChange(w http.ResponseWriter, r *http.Request, status string, change func(ctx context.Context, id, code string) error) {
	requestID := requestctx.RequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload mfaCodeRequest
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}

	err := change(r.Context(), user.UserID, payload.Code)
	switch {
	case errors.Is(err, employees.ErrMFANotSetUp):
		api.Fail(w, http.StatusBadRequest, "mfa_missing", "mfa setup required", requestID)
		return
	case errors.Is(err, employees.ErrMFAInvalid):
		api.Fail(w, http.StatusBadRequest, "mfa_invalid", "invalid mfa code", requestID)
		return
	case err != nil:
		slog.Error("mfa update failed", "err", err, "userId", user.UserID)
		api.Fail(w, http.StatusInternalServerError, "mfa_update_failed", "failed to update mfa", requestID)
		return
	}
	h.Audit.Record(r.Context(), user.UserID, "auth.mfa_"+status, "employee", user.UserID, requestID, shared.ClientIP(r), nil, map[string]string{"mfa": status})
	api.Success(w, map[string]string{"status": status}, requestID)
}
