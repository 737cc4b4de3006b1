package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// DueFilter narrows a due query by status, so the selector can apply the
// new-items sub-cap exactly instead of over-fetching.
type DueFilter int

const (
	DueAll      DueFilter = iota // everything eligible
	DueNewOnly                   // status = new only
	DueSeenOnly                  // previously reviewed items only
)

// StateRepository defines persistence operations for scheduling states.
type StateRepository interface {
	Find(ctx context.Context, userID, itemID string) (State, error)
	Create(ctx context.Context, state State) error
	Update(ctx context.Context, state State) error
	FindDue(ctx context.Context, userID, collectionID string, now time.Time, limit int, filter DueFilter) ([]State, error)
	FindUpcoming(ctx context.Context, userID string, until time.Time) ([]time.Time, error)
	CountDue(ctx context.Context, userID string, now time.Time) (int, error)
}

// DBStateRepository implements StateRepository using MySQL.
// It accepts either *sqlx.DB or *sqlx.Tx so the service can scope writes
// to a transaction.
type DBStateRepository struct {
	ext sqlx.ExtContext
}

// NewDBStateRepository creates a new DBStateRepository.
func NewDBStateRepository(ext sqlx.ExtContext) *DBStateRepository {
	return &DBStateRepository{ext: ext}
}

// Find returns the scheduling state for a user/item pair.
// Returns ErrItemNotFound if no state exists.
func (r *DBStateRepository) Find(ctx context.Context, userID, itemID string) (State, error) {
	var state State
	err := sqlx.GetContext(ctx, r.ext, &state,
		"SELECT * FROM scheduling_states WHERE user_id = ? AND item_id = ?",
		userID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, fmt.Errorf("%w: item %s", ErrItemNotFound, itemID)
	}
	if err != nil {
		return State{}, fmt.Errorf("%w: sqlx.GetContext(scheduling_state) > %w", ErrStorage, err)
	}
	return state, nil
}

// Create inserts the initial scheduling state for a freshly created item.
func (r *DBStateRepository) Create(ctx context.Context, state State) error {
	_, err := r.ext.ExecContext(ctx,
		`INSERT INTO scheduling_states
			(item_id, user_id, ease_factor, interval_days, repetitions, status, next_review_at, last_review_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		state.ItemID, state.UserID, state.EaseFactor, state.IntervalDays,
		state.Repetitions, state.Status, state.NextReviewAt, state.LastReviewAt)
	if err != nil {
		return fmt.Errorf("%w: ExecContext(insert scheduling_state) > %w", ErrStorage, err)
	}
	return nil
}

// Update persists a processed state. Returns ErrItemNotFound if the row
// disappeared between load and save.
func (r *DBStateRepository) Update(ctx context.Context, state State) error {
	result, err := r.ext.ExecContext(ctx,
		`UPDATE scheduling_states
		SET ease_factor = ?, interval_days = ?, repetitions = ?, status = ?,
			next_review_at = ?, last_review_at = ?
		WHERE item_id = ? AND user_id = ?`,
		state.EaseFactor, state.IntervalDays, state.Repetitions, state.Status,
		state.NextReviewAt, state.LastReviewAt, state.ItemID, state.UserID)
	if err != nil {
		return fmt.Errorf("%w: ExecContext(update scheduling_state) > %w", ErrStorage, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: result.RowsAffected() > %w", ErrStorage, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: item %s", ErrItemNotFound, state.ItemID)
	}
	return nil
}

// FindDue returns eligible states ordered most-overdue first, then by item
// creation order for stability. Archived items are excluded. collectionID
// may be empty. limit caps the raw result; daily caps are the selector's
// concern.
func (r *DBStateRepository) FindDue(ctx context.Context, userID, collectionID string, now time.Time, limit int, filter DueFilter) ([]State, error) {
	query := `SELECT s.* FROM scheduling_states s
		JOIN items i ON i.id = s.item_id
		WHERE s.user_id = ?
			AND i.archived_at IS NULL`
	args := []interface{}{userID}
	switch filter {
	case DueNewOnly:
		query += " AND s.status = 'new'"
	case DueSeenOnly:
		query += " AND s.status <> 'new' AND s.next_review_at <= ?"
		args = append(args, now)
	default:
		query += " AND (s.next_review_at <= ? OR s.status = 'new')"
		args = append(args, now)
	}
	if collectionID != "" {
		query += " AND i.collection_id = ?"
		args = append(args, collectionID)
	}
	query += " ORDER BY s.next_review_at, i.created_at LIMIT ?"
	args = append(args, limit)

	var states []State
	if err := sqlx.SelectContext(ctx, r.ext, &states, query, args...); err != nil {
		return nil, fmt.Errorf("%w: sqlx.SelectContext(due scheduling_states) > %w", ErrStorage, err)
	}
	return states, nil
}

// FindUpcoming returns the next_review_at timestamps of unarchived items
// becoming due up to the given horizon. Used for the forecast projection.
func (r *DBStateRepository) FindUpcoming(ctx context.Context, userID string, until time.Time) ([]time.Time, error) {
	var times []time.Time
	err := sqlx.SelectContext(ctx, r.ext, &times,
		`SELECT s.next_review_at FROM scheduling_states s
		JOIN items i ON i.id = s.item_id
		WHERE s.user_id = ? AND i.archived_at IS NULL AND s.next_review_at <= ?
		ORDER BY s.next_review_at`,
		userID, until)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlx.SelectContext(upcoming reviews) > %w", ErrStorage, err)
	}
	return times, nil
}

// CountDue returns how many unarchived items are due at now.
func (r *DBStateRepository) CountDue(ctx context.Context, userID string, now time.Time) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.ext, &count,
		`SELECT COUNT(*) FROM scheduling_states s
		JOIN items i ON i.id = s.item_id
		WHERE s.user_id = ? AND i.archived_at IS NULL AND s.next_review_at <= ?`,
		userID, now)
	if err != nil {
		return 0, fmt.Errorf("%w: sqlx.GetContext(count due) > %w", ErrStorage, err)
	}
	return count, nil
}
