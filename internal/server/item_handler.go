package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/memora-dev/memora/internal/service"
)

// CreateItemRequest is the POST /api/items body.
type CreateItemRequest struct {
	Title        string   `json:"title" validate:"required"`
	CollectionID string   `json:"collection_id"`
	Topics       []string `json:"topics"`
}

// ItemResponse describes a registered item.
type ItemResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CollectionID string    `json:"collection_id,omitempty"`
	Topics       []string  `json:"topics"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", validationMessage(err))
		return
	}

	created, err := s.submitter.CreateItem(r.Context(), service.CreateItemRequest{
		UserID:       userID,
		CollectionID: req.CollectionID,
		Title:        req.Title,
		Topics:       req.Topics,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, ItemResponse{
		ID:           created.ID,
		Title:        created.Title,
		CollectionID: created.CollectionID.String,
		Topics:       created.Topics,
		CreatedAt:    created.CreatedAt,
	})
}

func (s *Server) handleArchiveItem(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	itemID := chi.URLParam(r, "id")

	if err := s.submitter.ArchiveItem(r.Context(), userID, itemID); err != nil {
		respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
