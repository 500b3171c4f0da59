package audithandler

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"staffdesk/internal/domain/audit"
	"staffdesk/internal/transport/http/api"
	"staffdesk/internal/transport/http/middleware"
	"staffdesk/internal/transport/http/shared"
)

const maxExportEvents = 10000

type Handler struct {
	Service *audit.Service
}

func NewHandler(service *audit.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/events", h.handleListEvents)
		r.Get("/events/export", h.handleExportEvents)
	})
}

func filterFromQuery(r *http.Request) audit.Filter {
	q := r.URL.Query()
	return audit.Filter{Action: q.Get("action"), EntityType: q.Get("entityType"), ActorID: q.Get("actorId")}
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 100, 500)
	events, total, err := h.Service.List(r.Context(), filterFromQuery(r), page.Limit, page.Offset)
	if err != nil {
		slog.Warn("audit list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, events, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	events, _, err := h.Service.List(r.Context(), filterFromQuery(r), maxExportEvents, 0)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", middleware.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor_id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}); err != nil {
		slog.Warn("audit export header failed", "err", err)
		return
	}
	for _, evt := range events {
		if err := writer.Write([]string{
			evt.ID,
			evt.ActorID,
			evt.Action,
			evt.EntityType,
			evt.EntityID,
			evt.RequestID,
			evt.IP,
			evt.CreatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			slog.Warn("audit export row failed", "err", err)
			return
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("audit export flush failed", "err", err)
	}
}
