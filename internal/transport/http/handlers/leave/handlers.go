package leavehandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"staffdesk/internal/domain/audit"
	"staffdesk/internal/domain/auth"
	"staffdesk/internal/domain/leave"
	"staffdesk/internal/platform/uploads"
	"staffdesk/internal/transport/http/api"
	"staffdesk/internal/transport/http/middleware"
	"staffdesk/internal/transport/http/shared"
)

const certificateField = "medical_certificate"

type Handler struct {
	Service     *leave.Service
	Uploads     *uploads.Disk
	Audit       *audit.Service
	Idempotency middleware.IdempotencyStore
}

func NewHandler(service *leave.Service, disk *uploads.Disk, auditSvc *audit.Service, idem middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Uploads: disk, Audit: auditSvc, Idempotency: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leaves", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.With(middleware.Idempotency(h.Idempotency)).Post("/", h.handleCreateRequest)
		r.With(middleware.RequireAdmin).Get("/", h.handleListRequests)
		r.Get("/me", h.handleListMine)
		r.Get("/types", h.handleListTypes)
		r.Get("/{leaveID}", h.handleGetRequest)
		r.With(middleware.RequireAdmin).Put("/{leaveID}", h.handleUpdateRequest)
		r.Get("/{leaveID}/certificate", h.handleDownloadCertificate)
	})
	r.With(middleware.RequireAuth).Get("/stats/me/leaves", h.handleMyUsage)
	r.With(middleware.RequireAuth).Get("/stats/employees/{employeeID}/leaves", h.handleEmployeeUsage)
}

type leaveRequestPayload struct {
	LeaveType string `json:"leaveType" validate:"required"`
	StartDate string `json:"startDate" validate:"required"`
	EndDate   string `json:"endDate" validate:"required"`
	Reason    string `json:"reason" validate:"required,max=2000"`
}

type updateRequestPayload struct {
	Status    *string `json:"status"`
	LeaveType *string `json:"leaveType"`
}

type createResponse struct {
	Leave      leave.LeaveRequest `json:"leave"`
	Downgraded bool               `json:"downgraded"`
	Reason     string             `json:"downgradeReason,omitempty"`
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Service.TypeCodes(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	payload, stored, err := h.decodeLeaveRequestPayload(r)
	switch {
	case errors.Is(err, uploads.ErrTooLarge):
		shared.FailPayloadTooLarge(w, requestID)
		return
	case errors.Is(err, uploads.ErrEmpty):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: certificateField, Reason: "must not be empty"}})
		return
	case err != nil:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			shared.FailPayloadTooLarge(w, requestID)
			return
		}
		slog.Warn("leave payload decode failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	v := shared.NewValidator()
	v.Struct(&payload)
	leaveType := v.OneOf("leaveType", payload.LeaveType, h.Service.TypeCodes())
	if v.Reject(w, requestID) {
		h.discard(stored)
		return
	}

	created, decision, err := h.Service.Submit(r.Context(), leave.SubmitInput{
		EmployeeID:         user.UserID,
		LeaveType:          leave.LeaveType(leaveType),
		StartDate:          strings.TrimSpace(payload.StartDate),
		EndDate:            strings.TrimSpace(payload.EndDate),
		Reason:             strings.TrimSpace(payload.Reason),
		MedicalCertificate: stored,
	})
	if err != nil {
		h.discard(stored)
		switch {
		case errors.Is(err, leave.ErrInvalidDates):
			shared.FailValidation(w, requestID, []shared.ValidationIssue{
				{Field: "endDate", Reason: "must be a valid date in YYYY-MM-DD format"},
				{Field: "startDate", Reason: "must be a valid date in YYYY-MM-DD format"},
			})
		case errors.Is(err, leave.ErrInvalidType):
			shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "leaveType", Reason: "unsupported leave type"}})
		case errors.Is(err, leave.ErrEmployeeNotFound):
			api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
		default:
			slog.Error("leave submit failed", "err", err, "employeeId", user.UserID)
			api.Fail(w, http.StatusInternalServerError, "leave_request_failed", "failed to create request", requestID)
		}
		return
	}

	h.Audit.Record(r.Context(), user.UserID, "leave.request.create", "leave", created.ID, requestID, shared.ClientIP(r), nil, created)
	api.Created(w, createResponse{Leave: created, Downgraded: decision.Downgraded(), Reason: decision.Reason}, requestID)
}

// decodeLeaveRequestPayload reads JSON or multipart form data. A multipart
// certificate is stored right away and its name returned.
func (h *Handler) decodeLeaveRequestPayload(r *http.Request) (leaveRequestPayload, string, error) {
	contentType := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		var payload leaveRequestPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return leaveRequestPayload{}, "", err
		}
		return payload, "", nil
	}

	if err := r.ParseMultipartForm(h.Uploads.MaxBytes + 1<<20); err != nil {
		return leaveRequestPayload{}, "", fmt.Errorf("parse multipart: %w", err)
	}
	payload := leaveRequestPayload{
		LeaveType: r.FormValue("leaveType"),
		StartDate: r.FormValue("startDate"),
		EndDate:   r.FormValue("endDate"),
		Reason:    r.FormValue("reason"),
	}

	file, header, err := r.FormFile(certificateField)
	if errors.Is(err, http.ErrMissingFile) {
		return payload, "", nil
	}
	if err != nil {
		return leaveRequestPayload{}, "", fmt.Errorf("read certificate: %w", err)
	}
	defer file.Close()

	stored, err := h.Uploads.Save(file, header)
	if err != nil {
		return leaveRequestPayload{}, "", err
	}
	return payload, stored.Name, nil
}

func (h *Handler) discard(name string) {
	if name == "" {
		return
	}
	if err := h.Uploads.Remove(name); err != nil {
		slog.Warn("certificate cleanup failed", "name", name, "err", err)
	}
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.List(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_list_failed", "failed to list leave requests", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	out, err := h.Service.ListByEmployee(r.Context(), user.UserID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_list_failed", "failed to list leave requests", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, out, middleware.GetRequestID(r.Context()))
}

// loadAccessible fetches a leave the caller may see, writing the error
// response otherwise.
func (h *Handler) loadAccessible(w http.ResponseWriter, r *http.Request, user auth.UserContext) (leave.LeaveRequest, bool) {
	requestID := middleware.GetRequestID(r.Context())
	req, err := h.Service.Get(r.Context(), chi.URLParam(r, "leaveID"))
	if errors.Is(err, leave.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", requestID)
		return leave.LeaveRequest{}, false
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_get_failed", "failed to load leave request", requestID)
		return leave.LeaveRequest{}, false
	}
	if !user.CanAccess(req.EmployeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", requestID)
		return leave.LeaveRequest{}, false
	}
	return req, true
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	req, ok := h.loadAccessible(w, r, user)
	if !ok {
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	leaveID := chi.URLParam(r, "leaveID")

	var payload updateRequestPayload
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}
	var in leave.UpdateInput
	v := shared.NewValidator()
	if payload.Status != nil {
		status := v.OneOf("status", *payload.Status, leave.Statuses)
		in.Status = &status
	}
	if payload.LeaveType != nil {
		lt := leave.LeaveType(v.OneOf("leaveType", *payload.LeaveType, h.Service.TypeCodes()))
		in.LeaveType = &lt
	}
	if v.Reject(w, requestID) {
		return
	}

	before, err := h.Service.Get(r.Context(), leaveID)
	if errors.Is(err, leave.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_update_failed", "failed to update leave request", requestID)
		return
	}

	updated, err := h.Service.Update(r.Context(), leaveID, in)
	switch {
	case errors.Is(err, leave.ErrNoChanges):
		api.Fail(w, http.StatusBadRequest, "no_changes", "status or leaveType required", requestID)
		return
	case errors.Is(err, leave.ErrInvalidStatus):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "status", Reason: "must be one of: Pending, Approved, Rejected"}})
		return
	case errors.Is(err, leave.ErrInvalidType):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "leaveType", Reason: "must be one of: " + strings.Join(h.Service.TypeCodes(), ", ")}})
		return
	case errors.Is(err, leave.ErrQuotaExceeded):
		api.Fail(w, http.StatusConflict, "quota_exceeded", "approving would exceed the annual leave quota", requestID)
		return
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave request not found", requestID)
		return
	case err != nil:
		slog.Error("leave update failed", "leaveId", leaveID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "leave_update_failed", "failed to update leave request", requestID)
		return
	}

	h.Audit.Record(r.Context(), user.UserID, "leave.request.update", "leave", leaveID, requestID, shared.ClientIP(r),
		map[string]any{"status": before.Status, "leaveType": before.LeaveType},
		map[string]any{"status": updated.Status, "leaveType": updated.LeaveType})
	api.Success(w, updated, requestID)
}

func (h *Handler) handleDownloadCertificate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	req, ok := h.loadAccessible(w, r, user)
	if !ok {
		return
	}
	if req.MedicalCertificate == "" {
		api.Fail(w, http.StatusNotFound, "not_found", "no certificate attached", requestID)
		return
	}

	file, err := h.Uploads.Open(req.MedicalCertificate)
	if errors.Is(err, uploads.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "certificate not found", requestID)
		return
	}
	if err != nil {
		slog.Warn("certificate open failed", "leaveId", req.ID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "certificate_failed", "failed to read certificate", requestID)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "certificate_failed", "failed to read certificate", requestID)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", req.MedicalCertificate))
	http.ServeContent(w, r, req.MedicalCertificate, info.ModTime(), file)
}

func (h *Handler) handleMyUsage(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	h.writeUsage(w, r, user.UserID)
}

func (h *Handler) handleEmployeeUsage(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	if !user.CanAccess(employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}
	h.writeUsage(w, r, employeeID)
}

func (h *Handler) writeUsage(w http.ResponseWriter, r *http.Request, employeeID string) {
	usage, err := h.Service.Usage(r.Context(), employeeID)
	if errors.Is(err, leave.ErrEmployeeNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		slog.Warn("leave usage failed", "employeeId", employeeID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "leave_usage_failed", "failed to compute leave usage", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, usage, middleware.GetRequestID(r.Context()))
}
