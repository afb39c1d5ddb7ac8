package retryqueue

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"notebase/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// List serves GET /admin/embedding-failures?limit=&offset=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := queryInt(r, "limit", DefaultPageSize)
	offset := queryInt(r, "offset", 0)

	slog.InfoContext(ctx, "listing embedding failures", "limit", limit, "offset", offset,
		"correlationId", middleware.GetCorrelationID(ctx))

	items, total, err := h.service.ListDeadLetter(ctx, limit, offset)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list embedding failures", "error", err,
			"correlationId", middleware.GetCorrelationID(ctx))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"code": "INTERNAL_ERROR"})
		return
	}
	if items == nil {
		items = []Item{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": total,
	})
}

// Retry serves POST /admin/embedding-failures/{id}/retry.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	slog.InfoContext(ctx, "resetting embedding failure", "id", id,
		"correlationId", middleware.GetCorrelationID(ctx))

	status, err := h.service.ResetToPending(ctx, id)
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"code": "NOT_FOUND"})
	case errors.Is(err, ErrInvalidState):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "item is not in dead_letter state",
			"status":  status,
		})
	case err != nil:
		slog.ErrorContext(ctx, "failed to reset embedding failure", "id", id, "error", err,
			"correlationId", middleware.GetCorrelationID(ctx))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"code": "INTERNAL_ERROR"})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "item queued for retry",
			"status":  status,
		})
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
