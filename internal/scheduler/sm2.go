// Package scheduler implements the SM-2 style rating processor: the pure
// transformation from (scheduling state, rating) to the next state.
package scheduler

import (
	"fmt"
	"math"
	"time"
)

const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3

	// LapseEasePenalty is subtracted from the ease factor on a Forgot rating.
	LapseEasePenalty = 0.20

	defaultGraduationThreshold = 2
	defaultRelearningStepDays  = 1
)

// Config tunes the rating processor. Zero values produce the defaults.
type Config struct {
	// GraduationThreshold is the number of consecutive successful reviews
	// after which an item moves to the review status. Zero means 2.
	GraduationThreshold int
	// RelearningStepDays is the interval assigned after a lapse. Zero means 1.
	RelearningStepDays int
}

// Processor computes the next scheduling state for a review rating.
// Process is deterministic and free of side effects; the same
// (state, rating, now) always yields the same result.
type Processor struct {
	graduationThreshold int
	relearningStepDays  int
}

// NewProcessor creates a Processor from the given config.
func NewProcessor(cfg Config) *Processor {
	threshold := cfg.GraduationThreshold
	if threshold == 0 {
		threshold = defaultGraduationThreshold
	}
	step := cfg.RelearningStepDays
	if step == 0 {
		step = defaultRelearningStepDays
	}
	return &Processor{
		graduationThreshold: threshold,
		relearningStepDays:  step,
	}
}

// Process applies a rating to the current state and returns the new state.
// An invalid rating returns ErrInvalidRating and leaves no trace; all other
// inputs succeed. The caller is responsible for persisting the result.
func (p *Processor) Process(state State, rating Rating, now time.Time) (State, error) {
	if !rating.IsValid() {
		return State{}, fmt.Errorf("%w: %d", ErrInvalidRating, int(rating))
	}

	next := state

	if rating == RatingForgot {
		next.EaseFactor = math.Max(state.easeFactor()-LapseEasePenalty, MinEaseFactor)
		next.Repetitions = 0
		next.IntervalDays = p.relearningStepDays
		next.Status = StatusLearning
	} else {
		next.EaseFactor = updateEaseFactor(state.easeFactor(), rating.quality())
		next.Repetitions = state.Repetitions + 1

		if next.Repetitions == 1 {
			// Graduation from the unseen/lapsed phase starts with a short step.
			next.IntervalDays = 1
		} else {
			next.IntervalDays = int(math.Round(float64(state.IntervalDays) * next.EaseFactor))
			// Guarantee forward progress regardless of rounding.
			if next.IntervalDays <= state.IntervalDays {
				next.IntervalDays = state.IntervalDays + 1
			}
		}

		if next.Repetitions >= p.graduationThreshold {
			next.Status = StatusReview
		} else {
			next.Status = StatusLearning
		}
	}

	next.NextReviewAt = now.AddDate(0, 0, next.IntervalDays)
	next.LastReviewAt.Time = now
	next.LastReviewAt.Valid = true
	return next, nil
}

// updateEaseFactor applies the standard SM-2 delta for a successful review:
// 0.1 - (5-q)*(0.08 + (5-q)*0.02), clamped at MinEaseFactor.
func updateEaseFactor(ef float64, quality int) float64 {
	q := float64(quality)
	delta := 0.1 - (5-q)*(0.08+(5-q)*0.02)
	return math.Max(ef+delta, MinEaseFactor)
}

// easeFactor returns the effective ease factor, falling back to the default
// for zero values left by older rows.
func (s State) easeFactor() float64 {
	if s.EaseFactor == 0 {
		return DefaultEaseFactor
	}
	return s.EaseFactor
}
