package statistics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memora-dev/memora/internal/item"
	"github.com/memora-dev/memora/internal/review"
	"github.com/memora-dev/memora/internal/scheduler"
	"github.com/memora-dev/memora/internal/settings"
)

var testNow = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

type fakeReviews struct {
	review.Repository
	records     []review.Record
	ratedTopics []review.RatedTopics
}

func (f *fakeReviews) ListSince(_ context.Context, _ string, since time.Time) ([]review.Record, error) {
	var result []review.Record
	for _, r := range f.records {
		if !r.ReviewedAt.Before(since) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (f *fakeReviews) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	records, _ := f.ListSince(ctx, userID, since)
	return len(records), nil
}

func (f *fakeReviews) ListRatedTopics(context.Context, string) ([]review.RatedTopics, error) {
	return f.ratedTopics, nil
}

type fakeStates struct {
	scheduler.StateRepository
	due     int
	overdue int
}

func (f *fakeStates) CountDue(_ context.Context, _ string, now time.Time) (int, error) {
	if now.Before(testNow) {
		return f.overdue, nil
	}
	return f.due, nil
}

type fakeItems struct {
	item.Repository
	active int
}

func (f *fakeItems) CountActive(context.Context, string) (int, error) {
	return f.active, nil
}

type fakeSettings struct {
	settings.Repository
}

func (f *fakeSettings) Find(_ context.Context, userID string) (settings.UserSettings, error) {
	return settings.Default(userID), nil
}

func record(rating scheduler.Rating, reviewedAt time.Time) review.Record {
	return review.Record{
		ItemID:     "item-1",
		UserID:     "user-1",
		Rating:     rating,
		ReviewedAt: reviewedAt,
	}
}

func ratedTopics(t *testing.T, rating scheduler.Rating, topics ...string) review.RatedTopics {
	t.Helper()
	encoded, err := json.Marshal(topics)
	require.NoError(t, err)
	return review.RatedTopics{Rating: rating, Topics: encoded}
}

func newCalculator(reviews *fakeReviews, states *fakeStates, items *fakeItems) *Calculator {
	return NewCalculator(states, reviews, items, &fakeSettings{})
}

func TestCalculatorRetentionByDay(t *testing.T) {
	reviews := &fakeReviews{records: []review.Record{
		record(scheduler.RatingGood, testNow.AddDate(0, 0, -1).Add(-time.Hour)),
		record(scheduler.RatingForgot, testNow.AddDate(0, 0, -1)),
		record(scheduler.RatingEasy, testNow),
		record(scheduler.RatingGood, testNow.Add(time.Minute)),
		record(scheduler.RatingHard, testNow.Add(2*time.Minute)),
	}}
	calc := newCalculator(reviews, &fakeStates{}, &fakeItems{})

	result, err := calc.RetentionByDay(context.Background(), "user-1", 30, testNow)
	require.NoError(t, err)
	assert.Equal(t, []RetentionDay{
		{Date: "2025-06-09", Rate: 50, TotalReviews: 2},
		{Date: "2025-06-10", Rate: 66.7, TotalReviews: 3},
	}, result)
}

func TestCalculatorRetentionByDayEmptyLedger(t *testing.T) {
	calc := newCalculator(&fakeReviews{}, &fakeStates{}, &fakeItems{})

	result, err := calc.RetentionByDay(context.Background(), "user-1", 30, testNow)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestCalculatorTopicPerformance(t *testing.T) {
	reviews := &fakeReviews{ratedTopics: []review.RatedTopics{
		ratedTopics(t, scheduler.RatingGood, "algebra", "proofs"),
		ratedTopics(t, scheduler.RatingForgot, "algebra"),
		ratedTopics(t, scheduler.RatingEasy, "algebra"),
		ratedTopics(t, scheduler.RatingHard, "proofs"),
		{Rating: scheduler.RatingGood, Topics: []byte("not json")},
	}}
	calc := newCalculator(reviews, &fakeStates{}, &fakeItems{})

	result, err := calc.TopicPerformanceByUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []TopicPerformance{
		{Topic: "algebra", TotalReviews: 3, SuccessRate: 66.7},
		{Topic: "proofs", TotalReviews: 2, SuccessRate: 50},
	}, result)
}

func TestCalculatorHeatmap(t *testing.T) {
	reviews := &fakeReviews{records: []review.Record{
		record(scheduler.RatingGood, testNow.AddDate(0, 0, -2)),
		record(scheduler.RatingGood, testNow),
		record(scheduler.RatingForgot, testNow.Add(time.Hour)),
	}}
	calc := newCalculator(reviews, &fakeStates{}, &fakeItems{})

	result, err := calc.Heatmap(context.Background(), "user-1", 365, testNow)
	require.NoError(t, err)
	assert.Equal(t, []HeatmapDay{
		{Date: "2025-06-08", Count: 1},
		{Date: "2025-06-10", Count: 2},
	}, result)
}

func TestCalculatorSummarize(t *testing.T) {
	reviews := &fakeReviews{records: []review.Record{
		record(scheduler.RatingGood, testNow.AddDate(0, 0, -2)),
		record(scheduler.RatingForgot, testNow.AddDate(0, 0, -1)),
		record(scheduler.RatingEasy, testNow.Add(-time.Hour)),
		record(scheduler.RatingGood, testNow.Add(-time.Minute)),
	}}
	calc := newCalculator(reviews, &fakeStates{due: 5, overdue: 2}, &fakeItems{active: 40})

	summary, err := calc.Summarize(context.Background(), "user-1", testNow)
	require.NoError(t, err)
	assert.Equal(t, 5, summary.DueCount)
	assert.Equal(t, 2, summary.OverdueCount)
	assert.Equal(t, 40, summary.TotalItems)
	assert.Equal(t, 2, summary.ReviewsToday)
	assert.Equal(t, 3, summary.Streak)
	assert.Equal(t, 75.0, summary.RetentionRate)
}

func TestStreak(t *testing.T) {
	loc := time.UTC
	tests := []struct {
		name    string
		records []review.Record
		want    int
	}{
		{
			name: "consecutive days including today",
			records: []review.Record{
				record(scheduler.RatingGood, testNow),
				record(scheduler.RatingGood, testNow.AddDate(0, 0, -1)),
				record(scheduler.RatingGood, testNow.AddDate(0, 0, -2)),
			},
			want: 3,
		},
		{
			name: "today not yet reviewed keeps yesterday's streak",
			records: []review.Record{
				record(scheduler.RatingGood, testNow.AddDate(0, 0, -1)),
				record(scheduler.RatingGood, testNow.AddDate(0, 0, -2)),
			},
			want: 2,
		},
		{
			name: "gap breaks the streak",
			records: []review.Record{
				record(scheduler.RatingGood, testNow),
				record(scheduler.RatingGood, testNow.AddDate(0, 0, -2)),
			},
			want: 1,
		},
		{
			name:    "no reviews",
			records: nil,
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, streak(tt.records, testNow, loc))
		})
	}
}
