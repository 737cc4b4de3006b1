// Package settings provides per-user scheduling preferences.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/memora-dev/memora/internal/scheduler"
)

// Defaults applied when a user has never saved preferences.
const (
	DefaultDailyReviewLimit = 100
	DefaultNewItemsPerDay   = 10
	DefaultTimezone         = "UTC"
)

// UserSettings are the scheduling preferences consumed by the due-set
// selector and the rating processor.
type UserSettings struct {
	UserID            string    `db:"user_id"`
	DailyReviewLimit  int       `db:"daily_review_limit"`
	NewItemsPerDay    int       `db:"new_items_per_day"`
	DefaultEaseFactor float64   `db:"default_ease_factor"`
	Timezone          string    `db:"timezone"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// Default returns the settings used for users without a saved row.
func Default(userID string) UserSettings {
	return UserSettings{
		UserID:            userID,
		DailyReviewLimit:  DefaultDailyReviewLimit,
		NewItemsPerDay:    DefaultNewItemsPerDay,
		DefaultEaseFactor: scheduler.DefaultEaseFactor,
		Timezone:          DefaultTimezone,
	}
}

// Location resolves the user's timezone, falling back to UTC for unknown
// or empty names. Day boundaries for caps and analytics use this location.
func (s UserSettings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// StartOfDay returns midnight of now's day in the user's timezone.
func (s UserSettings) StartOfDay(now time.Time) time.Time {
	local := now.In(s.Location())
	year, month, day := local.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, local.Location())
}

// Repository defines persistence operations for user settings.
type Repository interface {
	Find(ctx context.Context, userID string) (UserSettings, error)
	Save(ctx context.Context, s UserSettings) error
}

// DBRepository implements Repository using MySQL.
type DBRepository struct {
	ext sqlx.ExtContext
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(ext sqlx.ExtContext) *DBRepository {
	return &DBRepository{ext: ext}
}

// Find returns the settings for a user, or the defaults if none were saved.
func (r *DBRepository) Find(ctx context.Context, userID string) (UserSettings, error) {
	var s UserSettings
	err := sqlx.GetContext(ctx, r.ext, &s,
		"SELECT * FROM user_settings WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Default(userID), nil
	}
	if err != nil {
		return UserSettings{}, fmt.Errorf("%w: sqlx.GetContext(user_settings) > %w", scheduler.ErrStorage, err)
	}
	return s, nil
}

// Save upserts a user's settings.
func (r *DBRepository) Save(ctx context.Context, s UserSettings) error {
	_, err := r.ext.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, daily_review_limit, new_items_per_day, default_ease_factor, timezone)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			daily_review_limit = VALUES(daily_review_limit),
			new_items_per_day = VALUES(new_items_per_day),
			default_ease_factor = VALUES(default_ease_factor),
			timezone = VALUES(timezone)`,
		s.UserID, s.DailyReviewLimit, s.NewItemsPerDay, s.DefaultEaseFactor, s.Timezone)
	if err != nil {
		return fmt.Errorf("%w: ExecContext(upsert user_settings) > %w", scheduler.ErrStorage, err)
	}
	return nil
}
