// Package queue implements the due-set selector: which items a user should
// review right now, and the forecast of upcoming load. Daily caps are a
// selection-time policy applied here, never stored on the items.
package queue

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/memora-dev/memora/internal/review"
	"github.com/memora-dev/memora/internal/scheduler"
	"github.com/memora-dev/memora/internal/settings"
)

// DefaultLimit is used when the caller does not bound the due query.
const DefaultLimit = 50

// Selector computes due sets and forecasts from the scheduling states and
// the review ledger. It is read-only and safe for concurrent use.
type Selector struct {
	states   scheduler.StateRepository
	reviews  review.Repository
	settings settings.Repository
}

// NewSelector creates a Selector.
func NewSelector(states scheduler.StateRepository, reviews review.Repository, settingsRepo settings.Repository) *Selector {
	return &Selector{
		states:   states,
		reviews:  reviews,
		settings: settingsRepo,
	}
}

// Due returns the items the user should review at now, capped by the
// requested limit, the user's daily review limit, and the new-items-per-day
// sub-cap. An empty result is a normal outcome, not an error.
func (s *Selector) Due(ctx context.Context, userID, collectionID string, limit int, now time.Time) ([]scheduler.State, error) {
	prefs, err := s.settings.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("settings.Find() > %w", err)
	}
	startOfDay := prefs.StartOfDay(now)

	reviewedToday, err := s.reviews.CountSince(ctx, userID, startOfDay)
	if err != nil {
		return nil, fmt.Errorf("reviews.CountSince() > %w", err)
	}
	remaining := prefs.DailyReviewLimit - reviewedToday
	if remaining <= 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > remaining {
		limit = remaining
	}

	startedToday, err := s.reviews.CountItemsStartedSince(ctx, userID, startOfDay)
	if err != nil {
		return nil, fmt.Errorf("reviews.CountItemsStartedSince() > %w", err)
	}
	newBudget := prefs.NewItemsPerDay - startedToday
	if newBudget < 0 {
		newBudget = 0
	}

	seen, err := s.states.FindDue(ctx, userID, collectionID, now, limit, scheduler.DueSeenOnly)
	if err != nil {
		return nil, fmt.Errorf("states.FindDue(seen) > %w", err)
	}

	var fresh []scheduler.State
	if newBudget > 0 {
		fetch := newBudget
		if fetch > limit {
			fetch = limit
		}
		fresh, err = s.states.FindDue(ctx, userID, collectionID, now, fetch, scheduler.DueNewOnly)
		if err != nil {
			return nil, fmt.Errorf("states.FindDue(new) > %w", err)
		}
	}

	merged := append(seen, fresh...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].NextReviewAt.Before(merged[j].NextReviewAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// ForecastDay is the projected review load for one calendar day.
type ForecastDay struct {
	Date     string `json:"date"`
	DueCount int    `json:"due_count"`
}

// Forecast projects per-day due counts over the given horizon. The
// projection is read-only and applies no caps: caps are a selection-time
// policy, not a property of the schedule. Overdue items appear under the
// day they became due.
func (s *Selector) Forecast(ctx context.Context, userID string, days int, now time.Time) ([]ForecastDay, error) {
	prefs, err := s.settings.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("settings.Find() > %w", err)
	}
	loc := prefs.Location()

	until := prefs.StartOfDay(now).AddDate(0, 0, days+1).Add(-time.Nanosecond)
	times, err := s.states.FindUpcoming(ctx, userID, until)
	if err != nil {
		return nil, fmt.Errorf("states.FindUpcoming() > %w", err)
	}

	counts := make(map[string]int)
	for _, at := range times {
		counts[at.In(loc).Format(time.DateOnly)]++
	}

	forecast := make([]ForecastDay, 0, len(counts))
	for date, count := range counts {
		forecast = append(forecast, ForecastDay{Date: date, DueCount: count})
	}
	sort.Slice(forecast, func(i, j int) bool { return forecast[i].Date < forecast[j].Date })
	return forecast, nil
}
