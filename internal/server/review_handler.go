package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/memora-dev/memora/internal/scheduler"
	"github.com/memora-dev/memora/internal/service"
)

const (
	queueLimitMax       = 200
	defaultForecastDays = 7
	maxForecastDays     = 90
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// DueItem is one entry in the review queue response.
type DueItem struct {
	ItemID       string    `json:"item_id"`
	Status       string    `json:"status"`
	EaseFactor   float64   `json:"ease_factor"`
	IntervalDays int       `json:"interval_days"`
	Repetitions  int       `json:"repetitions"`
	NextReviewAt time.Time `json:"next_review_at"`
}

// SubmitReviewRequest is the POST /api/reviews body.
type SubmitReviewRequest struct {
	ItemID          string `json:"item_id" validate:"required"`
	Rating          int    `json:"rating" validate:"required"`
	SubmissionToken string `json:"submission_token"`
}

// SubmitReviewResponse is the authoritative post-update schedule.
type SubmitReviewResponse struct {
	ItemID       string    `json:"item_id"`
	NextReviewAt time.Time `json:"next_review_at"`
	IntervalDays int       `json:"interval_days"`
}

// HistoryEntry is one ledger record in the history response.
type HistoryEntry struct {
	ItemID           string    `json:"item_id"`
	Rating           int       `json:"rating"`
	EaseFactorBefore float64   `json:"ease_factor_before"`
	EaseFactorAfter  float64   `json:"ease_factor_after"`
	IntervalBefore   int       `json:"interval_before"`
	IntervalAfter    int       `json:"interval_after"`
	ReviewedAt       time.Time `json:"reviewed_at"`
}

func (s *Server) handleDueReviews(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	limit := intQueryParam(r, "limit", 0, queueLimitMax)
	collectionID := r.URL.Query().Get("collection_id")

	states, err := s.selector.Due(r.Context(), userID, collectionID, limit, s.now())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	due := make([]DueItem, 0, len(states))
	for _, state := range states {
		due = append(due, DueItem{
			ItemID:       state.ItemID,
			Status:       string(state.Status),
			EaseFactor:   state.EaseFactor,
			IntervalDays: state.IntervalDays,
			Repetitions:  state.Repetitions,
			NextReviewAt: state.NextReviewAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"reviews": due})
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req SubmitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", validationMessage(err))
		return
	}

	outcome, err := s.submitter.SubmitReview(r.Context(), service.SubmitRequest{
		UserID:          userID,
		ItemID:          req.ItemID,
		Rating:          scheduler.Rating(req.Rating),
		SubmissionToken: req.SubmissionToken,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SubmitReviewResponse{
		ItemID:       req.ItemID,
		NextReviewAt: outcome.NextReviewAt,
		IntervalDays: outcome.IntervalDays,
	})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	days := intQueryParam(r, "days", defaultForecastDays, maxForecastDays)

	forecast, err := s.selector.Forecast(r.Context(), userID, days, s.now())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"forecast": forecast})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())
	limit := intQueryParam(r, "limit", defaultHistoryLimit, maxHistoryLimit)

	records, err := s.reviews.ListByUser(r.Context(), userID, limit)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, HistoryEntry{
			ItemID:           record.ItemID,
			Rating:           int(record.Rating),
			EaseFactorBefore: record.EaseFactorBefore,
			EaseFactorAfter:  record.EaseFactorAfter,
			IntervalBefore:   record.IntervalBefore,
			IntervalAfter:    record.IntervalAfter,
			ReviewedAt:       record.ReviewedAt,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"history": entries})
}

// intQueryParam parses a positive integer query parameter, falling back to
// fallback when absent or malformed and clamping to max.
func intQueryParam(r *http.Request, name string, fallback, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func validationMessage(err error) string {
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		return validationErrors[0].Error()
	}
	return err.Error()
}
