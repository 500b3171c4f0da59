package reportshandler

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"staffdesk/internal/domain/audit"
	"staffdesk/internal/domain/auth"
	"staffdesk/internal/domain/compliance"
	"staffdesk/internal/domain/reports"
	"staffdesk/internal/transport/http/api"
	"staffdesk/internal/transport/http/middleware"
	"staffdesk/internal/transport/http/shared"
)

type Handler struct {
	Service     *reports.Service
	Audit       *audit.Service
	Idempotency middleware.IdempotencyStore
}

func NewHandler(service *reports.Service, auditSvc *audit.Service, idem middleware.IdempotencyStore) *Handler {
	return &Handler{Service: service, Audit: auditSvc, Idempotency: idem}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.With(middleware.Idempotency(h.Idempotency)).Post("/", h.handleSubmitReport)
		r.With(middleware.RequireAdmin).Get("/", h.handleListReports)
		r.Get("/me", h.handleListMine)
		r.With(middleware.RequireAdmin).Get("/export", h.handleExportReports)
		r.Get("/employees/{employeeID}", h.handleListEmployee)
		r.Get("/employees/{employeeID}/today", h.handleToday)
	})
	r.With(middleware.RequireAuth).Get("/stats/me/reports", h.handleMyStats)
	r.With(middleware.RequireAuth).Get("/stats/employees/{employeeID}/reports", h.handleEmployeeStats)
}

type submitReportRequest struct {
	ReportText string `json:"reportText" validate:"required,max=10000"`
	ReportDate string `json:"reportDate"`
}

func (h *Handler) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload submitReportRequest
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}

	report, err := h.Service.Submit(r.Context(), reports.SubmitInput{
		EmployeeID: user.UserID,
		ReportText: payload.ReportText,
		ReportDate: strings.TrimSpace(payload.ReportDate),
	})
	switch {
	case errors.Is(err, reports.ErrEmptyReport):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "reportText", Reason: "is required"}})
		return
	case errors.Is(err, reports.ErrFutureDate):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "reportDate", Reason: "must not be after today"}})
		return
	case errors.Is(err, reports.ErrInvalidDate):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "reportDate", Reason: "must be a valid date in YYYY-MM-DD format"}})
		return
	case errors.Is(err, reports.ErrDuplicateReport):
		api.Fail(w, http.StatusConflict, "duplicate_report", "report already submitted for this day", requestID)
		return
	case err != nil:
		slog.Error("report submit failed", "employeeId", user.UserID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "report_submit_failed", "failed to submit report", requestID)
		return
	}
	h.Audit.Record(r.Context(), user.UserID, "report.create", "report", report.ID, requestID, shared.ClientIP(r), nil, report)
	api.Created(w, report, requestID)
}

func filterFromQuery(r *http.Request) reports.Filter {
	q := r.URL.Query()
	return reports.Filter{
		EmployeeID: strings.TrimSpace(q.Get("employeeId")),
		FromDate:   strings.TrimSpace(q.Get("fromDate")),
		ToDate:     strings.TrimSpace(q.Get("toDate")),
		Status:     compliance.Status(strings.TrimSpace(q.Get("status"))),
	}
}

// rejectFilter writes a validation error for malformed or reversed date bounds.
func rejectFilter(w http.ResponseWriter, filter reports.Filter, requestID string) bool {
	v := shared.NewValidator()
	v.DateRange("fromDate", filter.FromDate, "toDate", filter.ToDate)
	return v.Reject(w, requestID)
}

func (h *Handler) writeList(w http.ResponseWriter, r *http.Request, filter reports.Filter) {
	requestID := middleware.GetRequestID(r.Context())
	if rejectFilter(w, filter, requestID) {
		return
	}
	out, err := h.Service.List(r.Context(), filter)
	if h.failFilter(w, err, requestID) {
		return
	}
	if err != nil {
		slog.Warn("report list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "report_list_failed", "failed to list reports", requestID)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(out)))
	api.Success(w, out, requestID)
}

func (h *Handler) failFilter(w http.ResponseWriter, err error, requestID string) bool {
	switch {
	case errors.Is(err, reports.ErrInvalidDate):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "fromDate/toDate", Reason: "must be a valid date in YYYY-MM-DD format"}})
		return true
	case errors.Is(err, reports.ErrInvalidStatus):
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "status", Reason: "unknown compliance status"}})
		return true
	}
	return false
}

func (h *Handler) handleListReports(w http.ResponseWriter, r *http.Request) {
	h.writeList(w, r, filterFromQuery(r))
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	filter := filterFromQuery(r)
	filter.EmployeeID = user.UserID
	h.writeList(w, r, filter)
}

func (h *Handler) handleListEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := accessibleEmployee(w, r)
	if !ok {
		return
	}
	filter := filterFromQuery(r)
	filter.EmployeeID = employeeID
	h.writeList(w, r, filter)
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := accessibleEmployee(w, r)
	if !ok {
		return
	}
	requestID := middleware.GetRequestID(r.Context())
	report, err := h.Service.TodayFor(r.Context(), employeeID)
	if errors.Is(err, reports.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "no report submitted today", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_get_failed", "failed to load today's report", requestID)
		return
	}
	api.Success(w, report, requestID)
}

func (h *Handler) handleExportReports(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = reports.FormatXLSX
	}

	filter := filterFromQuery(r)
	if rejectFilter(w, filter, requestID) {
		return
	}
	var buf bytes.Buffer
	contentType, err := h.Service.Export(r.Context(), filter, format, &buf)
	if errors.Is(err, reports.ErrInvalidFormat) {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "format", Reason: "must be one of: xlsx, pdf"}})
		return
	}
	if h.failFilter(w, err, requestID) {
		return
	}
	if err != nil {
		slog.Error("report export failed", "format", format, "err", err)
		api.Fail(w, http.StatusInternalServerError, "report_export_failed", "failed to export reports", requestID)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "compliance-reports."+format))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("report export write failed", "err", err)
	}
}

func (h *Handler) handleMyStats(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	h.writeStats(w, r, user.UserID)
}

func (h *Handler) handleEmployeeStats(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := accessibleEmployee(w, r)
	if !ok {
		return
	}
	h.writeStats(w, r, employeeID)
}

func (h *Handler) writeStats(w http.ResponseWriter, r *http.Request, employeeID string) {
	stats, err := h.Service.Stats(r.Context(), employeeID)
	if err != nil {
		slog.Warn("report stats failed", "employeeId", employeeID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "report_stats_failed", "failed to compute report stats", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, stats, middleware.GetRequestID(r.Context()))
}

func accessibleEmployee(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		user = auth.UserContext{}
	}
	employeeID := chi.URLParam(r, "employeeID")
	if !user.CanAccess(employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return "", false
	}
	return employeeID, true
}
