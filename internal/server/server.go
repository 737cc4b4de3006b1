// Package server exposes the scheduler over an HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/memora-dev/memora/internal/item"
	"github.com/memora-dev/memora/internal/queue"
	"github.com/memora-dev/memora/internal/review"
	"github.com/memora-dev/memora/internal/scheduler"
	"github.com/memora-dev/memora/internal/service"
	"github.com/memora-dev/memora/internal/settings"
	"github.com/memora-dev/memora/internal/statistics"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Submitter is the write-side API the handlers depend on.
type Submitter interface {
	SubmitReview(ctx context.Context, req service.SubmitRequest) (service.Outcome, error)
	CreateItem(ctx context.Context, req service.CreateItemRequest) (item.Item, error)
	ArchiveItem(ctx context.Context, userID, itemID string) error
}

// Selector picks due items and projects upcoming load.
type Selector interface {
	Due(ctx context.Context, userID, collectionID string, limit int, now time.Time) ([]scheduler.State, error)
	Forecast(ctx context.Context, userID string, days int, now time.Time) ([]queue.ForecastDay, error)
}

// Analytics computes aggregates over the review ledger.
type Analytics interface {
	RetentionByDay(ctx context.Context, userID string, days int, now time.Time) ([]statistics.RetentionDay, error)
	TopicPerformanceByUser(ctx context.Context, userID string) ([]statistics.TopicPerformance, error)
	Heatmap(ctx context.Context, userID string, days int, now time.Time) ([]statistics.HeatmapDay, error)
	Summarize(ctx context.Context, userID string, now time.Time) (statistics.Summary, error)
}

// Server holds the handler dependencies.
type Server struct {
	submitter Submitter
	selector  Selector
	analytics Analytics
	reviews   review.Repository
	settings  settings.Repository
	validate  *validator.Validate
	now       func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New creates a Server.
func New(
	submitter Submitter,
	selector Selector,
	analytics Analytics,
	reviews review.Repository,
	settingsRepo settings.Repository,
	opts ...Option,
) *Server {
	s := &Server{
		submitter: submitter,
		selector:  selector,
		analytics: analytics,
		reviews:   reviews,
		settings:  settingsRepo,
		validate:  validator.New(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUserID)

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/due", s.handleDueReviews)
			r.Post("/", s.handleSubmitReview)
			r.Get("/forecast", s.handleForecast)
			r.Get("/history", s.handleHistory)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/retention", s.handleRetention)
			r.Get("/topics", s.handleTopics)
			r.Get("/summary", s.handleSummary)
			r.Get("/heatmap", s.handleHeatmap)
		})

		r.Post("/items", s.handleCreateItem)
		r.Delete("/items/{id}", s.handleArchiveItem)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
	})

	return r
}

type userIDKey struct{}

// requireUserID extracts the caller identity from the user_id header.
// Authentication happens upstream; this service only needs the identity.
func requireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("user_id")
		if userID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "user_id header is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey{}, userID)))
	})
}

func userIDFrom(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey{}).(string)
	return userID
}

func respondJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// respondDomainError maps the scheduler error taxonomy onto HTTP statuses.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduler.ErrInvalidRating):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, scheduler.ErrItemNotFound):
		httpError(w, http.StatusNotFound, "not_found_error", "%v", err)
	case errors.Is(err, scheduler.ErrLockTimeout):
		w.Header().Set("Retry-After", "1")
		httpError(w, http.StatusConflict, "conflict_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

// CORS returns a middleware enforcing a browser origin allow-list.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowed[origin] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, user_id")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
