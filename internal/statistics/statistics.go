// Package statistics computes retention and performance aggregates over the
// review ledger. All queries read the full history; ledger entries are never
// mutated, so past aggregates never change retroactively.
package statistics

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/memora-dev/memora/internal/item"
	"github.com/memora-dev/memora/internal/review"
	"github.com/memora-dev/memora/internal/scheduler"
	"github.com/memora-dev/memora/internal/settings"
)

// streakLookbackDays bounds how far back the streak calculation scans.
const streakLookbackDays = 60

// RetentionDay is the per-day success rate over reviews.
type RetentionDay struct {
	Date         string  `json:"date"`
	Rate         float64 `json:"rate"`
	TotalReviews int     `json:"total_reviews"`
}

// TopicPerformance is the aggregate success rate for one topic.
type TopicPerformance struct {
	Topic        string  `json:"topic"`
	TotalReviews int     `json:"total_reviews"`
	SuccessRate  float64 `json:"success_rate"`
}

// HeatmapDay is the review count for one calendar day.
type HeatmapDay struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Summary is the dashboard overview for one user.
type Summary struct {
	DueCount      int     `json:"due_count"`
	OverdueCount  int     `json:"overdue_count"`
	TotalItems    int     `json:"total_items"`
	ReviewsToday  int     `json:"reviews_today"`
	Streak        int     `json:"streak"`
	RetentionRate float64 `json:"retention_rate"`
}

// Calculator computes analytics over the ledger and scheduling states.
type Calculator struct {
	states   scheduler.StateRepository
	reviews  review.Repository
	items    item.Repository
	settings settings.Repository
}

// NewCalculator creates a Calculator.
func NewCalculator(states scheduler.StateRepository, reviews review.Repository, items item.Repository, settingsRepo settings.Repository) *Calculator {
	return &Calculator{
		states:   states,
		reviews:  reviews,
		items:    items,
		settings: settingsRepo,
	}
}

// RetentionByDay returns the per-day retention rate over the last days days.
// Success means a rating of Good or better.
func (c *Calculator) RetentionByDay(ctx context.Context, userID string, days int, now time.Time) ([]RetentionDay, error) {
	prefs, err := c.settings.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("settings.Find() > %w", err)
	}
	loc := prefs.Location()

	records, err := c.reviews.ListSince(ctx, userID, now.AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("reviews.ListSince() > %w", err)
	}

	type dayCounts struct {
		total      int
		successful int
	}
	byDate := make(map[string]*dayCounts)
	for _, record := range records {
		date := record.ReviewedAt.In(loc).Format(time.DateOnly)
		counts := byDate[date]
		if counts == nil {
			counts = &dayCounts{}
			byDate[date] = counts
		}
		counts.total++
		if record.Rating.IsSuccess() {
			counts.successful++
		}
	}

	result := make([]RetentionDay, 0, len(byDate))
	for date, counts := range byDate {
		result = append(result, RetentionDay{
			Date:         date,
			Rate:         percentage(counts.successful, counts.total),
			TotalReviews: counts.total,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

// TopicPerformanceByUser returns per-topic success rates over the whole
// ledger, ordered by review volume.
func (c *Calculator) TopicPerformanceByUser(ctx context.Context, userID string) ([]TopicPerformance, error) {
	rows, err := c.reviews.ListRatedTopics(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reviews.ListRatedTopics() > %w", err)
	}

	type topicCounts struct {
		total      int
		successful int
	}
	byTopic := make(map[string]*topicCounts)
	for _, row := range rows {
		var topics []string
		if err := json.Unmarshal(row.Topics, &topics); err != nil {
			continue // tolerate malformed metadata rather than failing analytics
		}
		for _, topic := range topics {
			counts := byTopic[topic]
			if counts == nil {
				counts = &topicCounts{}
				byTopic[topic] = counts
			}
			counts.total++
			if row.Rating.IsSuccess() {
				counts.successful++
			}
		}
	}

	result := make([]TopicPerformance, 0, len(byTopic))
	for topic, counts := range byTopic {
		result = append(result, TopicPerformance{
			Topic:        topic,
			TotalReviews: counts.total,
			SuccessRate:  percentage(counts.successful, counts.total),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].TotalReviews != result[j].TotalReviews {
			return result[i].TotalReviews > result[j].TotalReviews
		}
		return result[i].Topic < result[j].Topic
	})
	return result, nil
}

// Heatmap returns per-day review counts over the last days days.
func (c *Calculator) Heatmap(ctx context.Context, userID string, days int, now time.Time) ([]HeatmapDay, error) {
	prefs, err := c.settings.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("settings.Find() > %w", err)
	}
	loc := prefs.Location()

	records, err := c.reviews.ListSince(ctx, userID, now.AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("reviews.ListSince() > %w", err)
	}

	counts := make(map[string]int)
	for _, record := range records {
		counts[record.ReviewedAt.In(loc).Format(time.DateOnly)]++
	}

	result := make([]HeatmapDay, 0, len(counts))
	for date, count := range counts {
		result = append(result, HeatmapDay{Date: date, Count: count})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

// Summarize builds the dashboard summary for a user.
func (c *Calculator) Summarize(ctx context.Context, userID string, now time.Time) (Summary, error) {
	prefs, err := c.settings.Find(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("settings.Find() > %w", err)
	}

	dueCount, err := c.states.CountDue(ctx, userID, now)
	if err != nil {
		return Summary{}, fmt.Errorf("states.CountDue(now) > %w", err)
	}
	overdueCount, err := c.states.CountDue(ctx, userID, now.AddDate(0, 0, -1))
	if err != nil {
		return Summary{}, fmt.Errorf("states.CountDue(overdue) > %w", err)
	}
	totalItems, err := c.items.CountActive(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("items.CountActive() > %w", err)
	}
	reviewsToday, err := c.reviews.CountSince(ctx, userID, prefs.StartOfDay(now))
	if err != nil {
		return Summary{}, fmt.Errorf("reviews.CountSince(today) > %w", err)
	}

	recent, err := c.reviews.ListSince(ctx, userID, now.AddDate(0, 0, -streakLookbackDays))
	if err != nil {
		return Summary{}, fmt.Errorf("reviews.ListSince(streak window) > %w", err)
	}

	var last30Total, last30Successful int
	retentionCutoff := now.AddDate(0, 0, -30)
	for _, record := range recent {
		if record.ReviewedAt.Before(retentionCutoff) {
			continue
		}
		last30Total++
		if record.Rating.IsSuccess() {
			last30Successful++
		}
	}

	return Summary{
		DueCount:      dueCount,
		OverdueCount:  overdueCount,
		TotalItems:    totalItems,
		ReviewsToday:  reviewsToday,
		Streak:        streak(recent, now, prefs.Location()),
		RetentionRate: percentage(last30Successful, last30Total),
	}, nil
}

// streak counts consecutive days with at least one review, walking back from
// today. A single missing day is tolerated only before the streak starts
// (today without reviews does not break yesterday's streak).
func streak(records []review.Record, now time.Time, loc *time.Location) int {
	if len(records) == 0 {
		return 0
	}

	reviewed := make(map[string]struct{}, len(records))
	for _, record := range records {
		reviewed[record.ReviewedAt.In(loc).Format(time.DateOnly)] = struct{}{}
	}

	count := 0
	day := now.In(loc)
	for i := 0; i <= streakLookbackDays; i++ {
		if _, ok := reviewed[day.Format(time.DateOnly)]; ok {
			count++
		} else if count > 0 || i > 0 {
			break
		}
		day = day.AddDate(0, 0, -1)
	}
	return count
}

// percentage returns successful/total as a percentage rounded to one decimal.
func percentage(successful, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(successful)/float64(total)*1000) / 10
}
