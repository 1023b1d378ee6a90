package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/darshil44/AI-Powered-Content-Explorer/internal/domain"
	"github.com/darshil44/AI-Powered-Content-Explorer/internal/service"
	"github.com/darshil44/AI-Powered-Content-Explorer/pkg/httputil"
	"github.com/darshil44/AI-Powered-Content-Explorer/pkg/middleware"
)

// DashboardHandler handles HTTP requests for the history dashboard.
type DashboardHandler struct {
	service *service.ExplorerService
	logger  *slog.Logger
}

// NewDashboardHandler creates a new dashboard HTTP handler.
func NewDashboardHandler(svc *service.ExplorerService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{service: svc, logger: logger}
}

// List handles GET /api/v1/dashboard
//
// Supported query parameters: type (search|image), keyword, date_from,
// date_to (RFC 3339 or YYYY-MM-DD), limit.
func (h *DashboardHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "not authenticated"},
		})
		return
	}

	filter, err := parseHistoryFilter(r)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: err.Error()},
		})
		return
	}

	items, err := h.service.ListHistory(r.Context(), userID, filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: items})
}

// DeleteSearch handles DELETE /api/v1/dashboard/search/{id}
func (h *DashboardHandler) DeleteSearch(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, domain.ToolSearch)
}

// DeleteImage handles DELETE /api/v1/dashboard/image/{id}
func (h *DashboardHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, domain.ToolImage)
}

func (h *DashboardHandler) delete(w http.ResponseWriter, r *http.Request, kind domain.ToolKind) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "not authenticated"},
		})
		return
	}

	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteHistory(r.Context(), userID, kind, id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// parseHistoryFilter extracts the dashboard filter from query parameters.
func parseHistoryFilter(r *http.Request) (domain.HistoryFilter, error) {
	q := r.URL.Query()
	filter := domain.HistoryFilter{
		Kind:    domain.ToolKind(q.Get("type")),
		Keyword: q.Get("keyword"),
	}

	if raw := q.Get("date_from"); raw != "" {
		ts, err := parseTimestamp(raw)
		if err != nil {
			return filter, err
		}
		filter.From = &ts
	}
	if raw := q.Get("date_to"); raw != "" {
		ts, err := parseTimestamp(raw)
		if err != nil {
			return filter, err
		}
		filter.To = &ts
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, fmt.Errorf("invalid limit: %q", raw)
		}
		filter.Limit = limit
	}

	return filter, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}
