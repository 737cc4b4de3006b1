package scheduler

import (
	"database/sql"
	"time"
)

// Status is the learning phase of an item.
// Items move new -> learning -> review, and fall back from review to
// learning on a lapse. They never return to new.
type Status string

const (
	StatusNew      Status = "new"      // never reviewed
	StatusLearning Status = "learning" // short-interval (re)learning phase
	StatusReview   Status = "review"   // graduated to long-interval review
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusLearning, StatusReview:
		return true
	}
	return false
}

// State is the scheduling state of a single item for a single user.
// It is created when the item is created and mutated only by Process.
type State struct {
	ItemID       string       `db:"item_id"`
	UserID       string       `db:"user_id"`
	EaseFactor   float64      `db:"ease_factor"`
	IntervalDays int          `db:"interval_days"`
	Repetitions  int          `db:"repetitions"`
	Status       Status       `db:"status"`
	NextReviewAt time.Time    `db:"next_review_at"`
	LastReviewAt sql.NullTime `db:"last_review_at"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

// NewState returns the initial state for a freshly created item.
// A new item is immediately eligible for review.
func NewState(itemID, userID string, easeFactor float64, now time.Time) State {
	if easeFactor == 0 {
		easeFactor = DefaultEaseFactor
	}
	return State{
		ItemID:       itemID,
		UserID:       userID,
		EaseFactor:   easeFactor,
		IntervalDays: 0,
		Repetitions:  0,
		Status:       StatusNew,
		NextReviewAt: now,
	}
}

// IsDue reports whether the item should be offered for review at now.
func (s State) IsDue(now time.Time) bool {
	return s.Status == StatusNew || !s.NextReviewAt.After(now)
}
