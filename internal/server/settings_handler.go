package server

import (
	"encoding/json"
	"net/http"

	"github.com/memora-dev/memora/internal/settings"
)

// SettingsPayload is the GET response and PUT body for user preferences.
type SettingsPayload struct {
	DailyReviewLimit  int     `json:"daily_review_limit" validate:"gt=0,lte=1000"`
	NewItemsPerDay    int     `json:"new_items_per_day" validate:"gte=0,lte=500"`
	DefaultEaseFactor float64 `json:"default_ease_factor" validate:"gte=1.3,lte=5"`
	Timezone          string  `json:"timezone" validate:"required,timezone"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	prefs, err := s.settings.Find(r.Context(), userID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, SettingsPayload{
		DailyReviewLimit:  prefs.DailyReviewLimit,
		NewItemsPerDay:    prefs.NewItemsPerDay,
		DefaultEaseFactor: prefs.DefaultEaseFactor,
		Timezone:          prefs.Timezone,
	})
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req SettingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", validationMessage(err))
		return
	}

	if err := s.settings.Save(r.Context(), settings.UserSettings{
		UserID:            userID,
		DailyReviewLimit:  req.DailyReviewLimit,
		NewItemsPerDay:    req.NewItemsPerDay,
		DefaultEaseFactor: req.DefaultEaseFactor,
		Timezone:          req.Timezone,
	}); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}
