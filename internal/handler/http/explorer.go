package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/darshil44/AI-Powered-Content-Explorer/internal/service"
	"github.com/darshil44/AI-Powered-Content-Explorer/pkg/httputil"
	"github.com/darshil44/AI-Powered-Content-Explorer/pkg/middleware"
	"github.com/darshil44/AI-Powered-Content-Explorer/pkg/validator"
)

// ExplorerHandler handles HTTP requests for tool invocation endpoints.
type ExplorerHandler struct {
	service *service.ExplorerService
	logger  *slog.Logger
}

// NewExplorerHandler creates a new explorer HTTP handler.
func NewExplorerHandler(svc *service.ExplorerService, logger *slog.Logger) *ExplorerHandler {
	return &ExplorerHandler{service: svc, logger: logger}
}

// SearchRequest is the JSON request body for a web search.
type SearchRequest struct {
	Query string `json:"query" validate:"required"`
}

// ImageRequest is the JSON request body for image generation.
type ImageRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

// Search handles POST /api/v1/search
func (h *ExplorerHandler) Search(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "not authenticated"},
		})
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.service.Search(r.Context(), userID, req.Query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// GenerateImage handles POST /api/v1/image
func (h *ExplorerHandler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: "not authenticated"},
		})
		return
	}

	var req ImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.service.GenerateImage(r.Context(), userID, req.Prompt)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: result})
}
