package entity

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"notebase/internal/chunk"
	"notebase/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type writeRequest struct {
	Scope     string `json:"scope"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	ProjectID string `json:"projectId"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		h.writeError(r, w, "VALIDATION_ERROR", "title is required", http.StatusBadRequest)
		return
	}

	ent := &Entity{
		Scope:     chunk.Scope(req.Scope),
		Title:     req.Title,
		Content:   req.Content,
		ProjectID: req.ProjectID,
	}
	if err := h.service.Create(r.Context(), ent); err != nil {
		if errors.Is(err, ErrInvalidScope) {
			h.writeError(r, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "failed to create entity", "error", err,
			"correlationId", middleware.GetCorrelationID(r.Context()))
		h.writeError(r, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	h.encode(w, map[string]interface{}{"data": ent})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope := chunk.Scope(r.URL.Query().Get("scope"))

	entities, err := h.service.List(r.Context(), scope)
	if err != nil {
		if errors.Is(err, ErrInvalidScope) {
			h.writeError(r, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(r.Context(), "failed to list entities", "error", err,
			"correlationId", middleware.GetCorrelationID(r.Context()))
		h.writeError(r, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if entities == nil {
		entities = []Entity{}
	}

	w.Header().Set("Content-Type", "application/json")
	h.encode(w, map[string]interface{}{
		"data": entities,
		"meta": map[string]int{"count": len(entities)},
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ent, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(r, w, "NOT_FOUND", "Entity not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "failed to get entity", "error", err,
			"correlationId", middleware.GetCorrelationID(r.Context()))
		h.writeError(r, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	h.encode(w, map[string]interface{}{"data": ent})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		h.writeError(r, w, "VALIDATION_ERROR", "title is required", http.StatusBadRequest)
		return
	}

	ent := &Entity{
		ID:        r.PathValue("id"),
		Title:     req.Title,
		Content:   req.Content,
		ProjectID: req.ProjectID,
	}
	if err := h.service.Update(r.Context(), ent); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(r, w, "NOT_FOUND", "Entity not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "failed to update entity", "error", err,
			"correlationId", middleware.GetCorrelationID(r.Context()))
		h.writeError(r, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	h.encode(w, map[string]interface{}{"data": ent})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(r, w, "NOT_FOUND", "Entity not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "failed to delete entity", "error", err,
			"correlationId", middleware.GetCorrelationID(r.Context()))
		h.writeError(r, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	h.encode(w, map[string]interface{}{"data": "entity deleted"})
}

func (h *Handler) encode(w http.ResponseWriter, body interface{}) {
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(r *http.Request, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(r.Context()),
	}
	h.encode(w, resp)
}
