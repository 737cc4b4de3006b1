package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/memora-dev/memora/internal/scheduler"
)

// Repository defines operations on the review ledger. Append plus reads;
// there is deliberately no update or delete.
type Repository interface {
	Append(ctx context.Context, record *Record) error
	FindByToken(ctx context.Context, token string) (*Record, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Record, error)
	ListSince(ctx context.Context, userID string, since time.Time) ([]Record, error)
	CountSince(ctx context.Context, userID string, since time.Time) (int, error)
	CountItemsStartedSince(ctx context.Context, userID string, since time.Time) (int, error)
	ListRatedTopics(ctx context.Context, userID string) ([]RatedTopics, error)
}

// DBRepository implements Repository using MySQL.
type DBRepository struct {
	ext sqlx.ExtContext
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(ext sqlx.ExtContext) *DBRepository {
	return &DBRepository{ext: ext}
}

// Append inserts a new ledger record and fills in its generated id.
func (r *DBRepository) Append(ctx context.Context, record *Record) error {
	result, err := r.ext.ExecContext(ctx,
		`INSERT INTO reviews
			(item_id, user_id, rating, ease_factor_before, ease_factor_after,
			interval_before, interval_after, reviewed_at, submission_token)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ItemID, record.UserID, record.Rating,
		record.EaseFactorBefore, record.EaseFactorAfter,
		record.IntervalBefore, record.IntervalAfter,
		record.ReviewedAt, record.SubmissionToken)
	if err != nil {
		return fmt.Errorf("%w: ExecContext(insert review) > %w", scheduler.ErrStorage, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: result.LastInsertId() > %w", scheduler.ErrStorage, err)
	}
	record.ID = id
	return nil
}

// FindByToken returns the record created under a submission token, or nil
// if the token has not been seen.
func (r *DBRepository) FindByToken(ctx context.Context, token string) (*Record, error) {
	var record Record
	err := sqlx.GetContext(ctx, r.ext, &record,
		"SELECT * FROM reviews WHERE submission_token = ?", token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: sqlx.GetContext(review by token) > %w", scheduler.ErrStorage, err)
	}
	return &record, nil
}

// ListByUser returns the most recent records for a user, newest first.
func (r *DBRepository) ListByUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	var records []Record
	err := sqlx.SelectContext(ctx, r.ext, &records,
		"SELECT * FROM reviews WHERE user_id = ? ORDER BY reviewed_at DESC, id DESC LIMIT ?",
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlx.SelectContext(reviews by user) > %w", scheduler.ErrStorage, err)
	}
	return records, nil
}

// ListSince returns all records for a user from the given time, oldest first.
func (r *DBRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]Record, error) {
	var records []Record
	err := sqlx.SelectContext(ctx, r.ext, &records,
		"SELECT * FROM reviews WHERE user_id = ? AND reviewed_at >= ? ORDER BY reviewed_at",
		userID, since)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlx.SelectContext(reviews since) > %w", scheduler.ErrStorage, err)
	}
	return records, nil
}

// CountSince returns how many reviews a user submitted from the given time.
func (r *DBRepository) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.ext, &count,
		"SELECT COUNT(*) FROM reviews WHERE user_id = ? AND reviewed_at >= ?",
		userID, since)
	if err != nil {
		return 0, fmt.Errorf("%w: sqlx.GetContext(count reviews) > %w", scheduler.ErrStorage, err)
	}
	return count, nil
}

// CountItemsStartedSince returns how many distinct items received their
// first-ever review from the given time. The due-set selector uses this to
// enforce the new-items-per-day cap across multiple calls within one day.
func (r *DBRepository) CountItemsStartedSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.ext, &count,
		`SELECT COUNT(DISTINCT v.item_id) FROM reviews v
		WHERE v.user_id = ? AND v.reviewed_at >= ?
			AND NOT EXISTS (
				SELECT 1 FROM reviews earlier
				WHERE earlier.user_id = v.user_id AND earlier.item_id = v.item_id
					AND earlier.reviewed_at < ?
			)`,
		userID, since, since)
	if err != nil {
		return 0, fmt.Errorf("%w: sqlx.GetContext(count items started) > %w", scheduler.ErrStorage, err)
	}
	return count, nil
}

// ListRatedTopics joins every review of a user against its item's topics.
func (r *DBRepository) ListRatedTopics(ctx context.Context, userID string) ([]RatedTopics, error) {
	var rows []RatedTopics
	err := sqlx.SelectContext(ctx, r.ext, &rows,
		`SELECT v.rating, i.topics FROM reviews v
		JOIN items i ON i.id = v.item_id
		WHERE v.user_id = ? AND i.topics IS NOT NULL`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlx.SelectContext(rated topics) > %w", scheduler.ErrStorage, err)
	}
	return rows, nil
}
