package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"notebase/internal/middleware"
)

type EntityRepo interface {
	Count(ctx context.Context) (int, error)
}

type RetryQueue interface {
	Count(ctx context.Context) (int, error)
}

type VectorStore interface {
	CountChunks(ctx context.Context) (int, error)
}

type Handler struct {
	entities    EntityRepo
	retryQueue  RetryQueue
	vectorStore VectorStore
}

func NewHandler(e EntityRepo, q RetryQueue, v VectorStore) *Handler {
	return &Handler{entities: e, retryQueue: q, vectorStore: v}
}

type StatsResponse struct {
	Entities      int `json:"entities"`
	IndexedChunks int `json:"indexed_chunks"`
	DeadLetters   int `json:"dead_letters"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	eCount, err := h.entities.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count entities", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count entities", http.StatusInternalServerError)
		return
	}

	qCount, err := h.retryQueue.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count dead letters", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count dead letters", http.StatusInternalServerError)
		return
	}

	cCount, err := h.vectorStore.CountChunks(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count chunks", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count chunks", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Entities:      eCount,
		IndexedChunks: cCount,
		DeadLetters:   qCount,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
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
