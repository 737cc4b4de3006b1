package scheduler

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func reviewState(ef float64, interval, repetitions int) State {
	return State{
		ItemID:       "item-1",
		UserID:       "user-1",
		EaseFactor:   ef,
		IntervalDays: interval,
		Repetitions:  repetitions,
		Status:       StatusReview,
		NextReviewAt: testNow,
		LastReviewAt: sql.NullTime{Time: testNow.AddDate(0, 0, -interval), Valid: true},
	}
}

func TestProcessorProcess(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		rating  Rating
		want    State
		wantErr error
	}{
		{
			name:   "first success on a new item graduates to learning with 1 day",
			state:  NewState("item-1", "user-1", 2.5, testNow),
			rating: RatingEasy,
			want: State{
				EaseFactor:   2.6,
				IntervalDays: 1,
				Repetitions:  1,
				Status:       StatusLearning,
			},
		},
		{
			name:   "second success graduates to review with interval times ease",
			state:  State{EaseFactor: 2.6, IntervalDays: 1, Repetitions: 1, Status: StatusLearning},
			rating: RatingEasy,
			want: State{
				EaseFactor:   2.7,
				IntervalDays: 3, // round(1 * 2.7)
				Repetitions:  2,
				Status:       StatusReview,
			},
		},
		{
			name:   "good keeps ease factor unchanged",
			state:  reviewState(2.5, 10, 5),
			rating: RatingGood,
			want: State{
				EaseFactor:   2.5,
				IntervalDays: 25,
				Repetitions:  6,
				Status:       StatusReview,
			},
		},
		{
			name:   "hard shrinks ease factor but still grows the interval",
			state:  reviewState(2.5, 10, 5),
			rating: RatingHard,
			want: State{
				EaseFactor:   2.18,
				IntervalDays: 22, // round(10 * 2.18)
				Repetitions:  6,
				Status:       StatusReview,
			},
		},
		{
			name:   "lapse on a mature review item",
			state:  reviewState(2.5, 30, 8),
			rating: RatingForgot,
			want: State{
				EaseFactor:   2.3,
				IntervalDays: 1,
				Repetitions:  0,
				Status:       StatusLearning,
			},
		},
		{
			name:   "lapse never drops ease factor below the floor",
			state:  reviewState(1.3, 4, 1),
			rating: RatingForgot,
			want: State{
				EaseFactor:   1.3,
				IntervalDays: 1,
				Repetitions:  0,
				Status:       StatusLearning,
			},
		},
		{
			name:   "rounding down still forces at least one day of growth",
			state:  reviewState(1.3, 1, 2),
			rating: RatingHard,
			want: State{
				EaseFactor:   1.3,
				IntervalDays: 2, // round(1 * 1.3) = 1 would stall
				Repetitions:  3,
				Status:       StatusReview,
			},
		},
		{
			name:    "rating zero is rejected",
			state:   reviewState(2.5, 10, 5),
			rating:  Rating(0),
			wantErr: ErrInvalidRating,
		},
		{
			name:    "rating five is rejected",
			state:   reviewState(2.5, 10, 5),
			rating:  Rating(5),
			wantErr: ErrInvalidRating,
		},
	}

	processor := NewProcessor(Config{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := processor.Process(tt.state, tt.rating, testNow)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want.EaseFactor, got.EaseFactor, 0.001)
			assert.Equal(t, tt.want.IntervalDays, got.IntervalDays)
			assert.Equal(t, tt.want.Repetitions, got.Repetitions)
			assert.Equal(t, tt.want.Status, got.Status)
			assert.Equal(t, testNow.AddDate(0, 0, tt.want.IntervalDays), got.NextReviewAt)
			require.True(t, got.LastReviewAt.Valid)
			assert.Equal(t, testNow, got.LastReviewAt.Time)
		})
	}
}

func TestProcessorProcessIsDeterministic(t *testing.T) {
	processor := NewProcessor(Config{})
	state := reviewState(2.5, 12, 4)

	first, err := processor.Process(state, RatingGood, testNow)
	require.NoError(t, err)
	second, err := processor.Process(state, RatingGood, testNow)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestProcessorProcessInvalidRatingDoesNotMutate(t *testing.T) {
	processor := NewProcessor(Config{})
	state := reviewState(2.5, 12, 4)
	original := state

	_, err := processor.Process(state, Rating(9), testNow)
	assert.ErrorIs(t, err, ErrInvalidRating)
	assert.Equal(t, original, state)
}

func TestProcessorEaseFactorFloorUnderRepeatedLapses(t *testing.T) {
	processor := NewProcessor(Config{})
	state := reviewState(2.5, 30, 8)

	for i := 0; i < 20; i++ {
		next, err := processor.Process(state, RatingForgot, testNow)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, next.EaseFactor, MinEaseFactor)
		state = next
	}
	assert.InDelta(t, MinEaseFactor, state.EaseFactor, 0.001)
}

func TestProcessorIntervalMonotonicOnSuccess(t *testing.T) {
	processor := NewProcessor(Config{})
	state := State{EaseFactor: 1.3, IntervalDays: 1, Repetitions: 1, Status: StatusLearning}

	for i := 0; i < 15; i++ {
		next, err := processor.Process(state, RatingHard, testNow)
		require.NoError(t, err)
		assert.Greater(t, next.IntervalDays, state.IntervalDays)
		assert.GreaterOrEqual(t, next.IntervalDays, 1)
		state = next
	}
}

func TestProcessorEndToEnd(t *testing.T) {
	processor := NewProcessor(Config{})
	state := NewState("item-1", "user-1", DefaultEaseFactor, testNow)
	require.Equal(t, StatusNew, state.Status)
	require.False(t, state.LastReviewAt.Valid)

	// First Easy: short graduation interval, ease factor increases.
	state, err := processor.Process(state, RatingEasy, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Repetitions)
	assert.Equal(t, 1, state.IntervalDays)
	assert.Equal(t, StatusLearning, state.Status)
	assert.Greater(t, state.EaseFactor, DefaultEaseFactor)

	// Second Easy: graduates to review, interval = round(1 * ease).
	state, err = processor.Process(state, RatingEasy, testNow.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, state.Repetitions)
	assert.Equal(t, StatusReview, state.Status)
	assert.Equal(t, 3, state.IntervalDays) // round(1 * 2.7)

	// Forgot on a mature item: full reset of progress, ease penalty.
	state.IntervalDays = 30
	easeBefore := state.EaseFactor
	state, err = processor.Process(state, RatingForgot, testNow.AddDate(0, 0, 31))
	require.NoError(t, err)
	assert.Equal(t, 0, state.Repetitions)
	assert.Equal(t, StatusLearning, state.Status)
	assert.Equal(t, 1, state.IntervalDays)
	assert.InDelta(t, easeBefore-LapseEasePenalty, state.EaseFactor, 0.001)
}
