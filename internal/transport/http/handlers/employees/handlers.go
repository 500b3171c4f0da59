package employeeshandler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"staffdesk/internal/domain/audit"
	"staffdesk/internal/domain/employees"
	"staffdesk/internal/transport/http/api"
	"staffdesk/internal/transport/http/middleware"
	"staffdesk/internal/transport/http/shared"
)

type Handler struct {
	Service *employees.Service
	Audit   *audit.Service
}

func NewHandler(service *employees.Service, auditSvc *audit.Service) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/", h.handleListEmployees)
		r.With(middleware.RequireAdmin).Post("/", h.handleCreateEmployee)
		r.Get("/{employeeID}", h.handleGetEmployee)
		r.Put("/{employeeID}", h.handleUpdateEmployee)
		r.With(middleware.RequireAdmin).Delete("/{employeeID}", h.handleDeleteEmployee)
	})
}

type createEmployeeRequest struct {
	Name     string   `json:"name" validate:"required,max=200"`
	Email    string   `json:"email" validate:"required,email,max=320"`
	Password string   `json:"password" validate:"required,min=8,max=128"`
	Role     string   `json:"role" validate:"omitempty,oneof=admin employee"`
	Position string   `json:"position" validate:"max=200"`
	Teams    []string `json:"teams" validate:"max=50,dive,max=100"`
}

type updateEmployeeRequest struct {
	Name                 *string   `json:"name" validate:"omitempty,min=1,max=200"`
	Email                *string   `json:"email" validate:"omitempty,email,max=320"`
	Password             *string   `json:"password" validate:"omitempty,min=8,max=128"`
	Role                 *string   `json:"role" validate:"omitempty,oneof=admin employee"`
	Position             *string   `json:"position" validate:"omitempty,max=200"`
	Teams                *[]string `json:"teams" validate:"omitempty,max=50,dive,max=100"`
	TotalAnnualLeave     *int      `json:"totalAnnualLeave" validate:"omitempty,gte=0,lte=366"`
	RemainingAnnualLeave *int      `json:"remainingAnnualLeave" validate:"omitempty,gte=0,lte=366"`
}

func (p updateEmployeeRequest) input() employees.UpdateInput {
	return employees.UpdateInput{
		Name:                 p.Name,
		Email:                p.Email,
		Password:             p.Password,
		Role:                 p.Role,
		Position:             p.Position,
		Teams:                p.Teams,
		TotalAnnualLeave:     p.TotalAnnualLeave,
		RemainingAnnualLeave: p.RemainingAnnualLeave,
	}
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	list, err := h.Service.List(r.Context(), r.URL.Query().Get("role"))
	if errors.Is(err, employees.ErrInvalidRole) {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "role", Reason: "must be one of: admin employee"}})
		return
	}
	if err != nil {
		slog.Warn("employee list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", middleware.GetRequestID(r.Context()))
		return
	}
	for i := range list {
		employees.FilterFields(&list[i], user)
	}
	api.Success(w, list, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())

	var payload createEmployeeRequest
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}

	emp, err := h.Service.Create(r.Context(), employees.CreateInput{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		Role:     payload.Role,
		Position: payload.Position,
		Teams:    payload.Teams,
	})
	if errors.Is(err, employees.ErrEmailTaken) {
		api.Fail(w, http.StatusConflict, "email_taken", "email already registered", requestID)
		return
	}
	if err != nil {
		slog.Warn("employee create failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", requestID)
		return
	}

	h.Audit.Record(r.Context(), user.UserID, "employee.create", "employee", emp.ID, requestID, shared.ClientIP(r), nil, emp)
	api.Created(w, emp, requestID)
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	if !user.CanAccess(employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
		return
	}

	emp, err := h.Service.Get(r.Context(), employeeID)
	if errors.Is(err, employees.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_get_failed", "failed to load employee", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	if !user.CanAccess(employeeID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", requestID)
		return
	}

	var payload updateEmployeeRequest
	if !shared.DecodeJSON(w, r, &payload, requestID) {
		return
	}

	before, err := h.Service.Get(r.Context(), employeeID)
	if errors.Is(err, employees.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to update employee", requestID)
		return
	}

	updated, err := h.Service.Update(r.Context(), user, employeeID, payload.input())
	switch {
	case errors.Is(err, employees.ErrNoChanges):
		api.Fail(w, http.StatusBadRequest, "no_changes", "no fields to update", requestID)
		return
	case errors.Is(err, employees.ErrForbiddenField):
		api.Fail(w, http.StatusForbidden, "forbidden", "role and leave counters require admin", requestID)
		return
	case errors.Is(err, employees.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email already registered", requestID)
		return
	case errors.Is(err, employees.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
		return
	case err != nil:
		slog.Warn("employee update failed", "employeeId", employeeID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "employee_update_failed", "failed to update employee", requestID)
		return
	}

	h.Audit.Record(r.Context(), user.UserID, "employee.update", "employee", employeeID, requestID, shared.ClientIP(r), before, updated)
	api.Success(w, updated, requestID)
}

func (h *Handler) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	requestID := middleware.GetRequestID(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	if employeeID == user.UserID {
		api.Fail(w, http.StatusBadRequest, "invalid_request", "cannot delete your own account", requestID)
		return
	}

	err := h.Service.Delete(r.Context(), employeeID)
	if errors.Is(err, employees.ErrNotFound) {
		api.Fail(w, http.StatusNotFound, "not_found", "employee not found", requestID)
		return
	}
	if err != nil {
		slog.Warn("employee delete failed", "employeeId", employeeID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "employee_delete_failed", "failed to delete employee", requestID)
		return
	}

	h.Audit.Record(r.Context(), user.UserID, "employee.delete", "employee", employeeID, requestID, shared.ClientIP(r), nil, nil)
	api.Success(w, map[string]string{"id": employeeID, "status": "deleted"}, requestID)
}

