// Package search exposes hybrid retrieval over HTTP.
package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"notebase/internal/middleware"
	"notebase/internal/retrieval"
)

type Retriever interface {
	Search(ctx context.Context, query string, opts retrieval.SearchOptions) ([]retrieval.Result, error)
}

type Handler struct {
	retriever Retriever
}

func NewHandler(retriever Retriever) *Handler {
	return &Handler{retriever: retriever}
}

// Search serves GET /search?q=&scope=&project_id=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(ctx, w, "VALIDATION_ERROR", "q is required", http.StatusBadRequest)
		return
	}

	opts := retrieval.SearchOptions{
		Filter: retrieval.Filter{
			Scope:     r.URL.Query().Get("scope"),
			ProjectID: r.URL.Query().Get("project_id"),
		},
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			opts.Limit = limit
		}
	}

	slog.InfoContext(ctx, "search request", "query", query, "scope", opts.Filter.Scope,
		"correlationId", middleware.GetCorrelationID(ctx))

	results, err := h.retriever.Search(ctx, query, opts)
	if err != nil {
		slog.ErrorContext(ctx, "search failed", "error", err,
			"correlationId", middleware.GetCorrelationID(ctx))
		h.writeError(ctx, w, "INTERNAL_ERROR", "search failed", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []retrieval.Result{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": results,
		"meta": map[string]int{"count": len(results)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
