package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/memora-dev/memora/internal/scheduler"
)

// Repository defines persistence operations for items.
type Repository interface {
	Create(ctx context.Context, item *Item) error
	Find(ctx context.Context, userID, itemID string) (Item, error)
	Archive(ctx context.Context, userID, itemID string, now time.Time) error
	CountActive(ctx context.Context, userID string) (int, error)
}

// DBRepository implements Repository using MySQL.
type DBRepository struct {
	ext sqlx.ExtContext
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(ext sqlx.ExtContext) *DBRepository {
	return &DBRepository{ext: ext}
}

// Create inserts a new item.
func (r *DBRepository) Create(ctx context.Context, item *Item) error {
	_, err := r.ext.ExecContext(ctx,
		`INSERT INTO items (id, user_id, collection_id, title, topics, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.UserID, item.CollectionID, item.Title, item.Topics, item.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: ExecContext(insert item) > %w", scheduler.ErrStorage, err)
	}
	return nil
}

// Find returns an item by id. Archived items are still returned; the
// selector is responsible for excluding them.
func (r *DBRepository) Find(ctx context.Context, userID, itemID string) (Item, error) {
	var item Item
	err := sqlx.GetContext(ctx, r.ext, &item,
		"SELECT * FROM items WHERE user_id = ? AND id = ?", userID, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, fmt.Errorf("%w: item %s", scheduler.ErrItemNotFound, itemID)
	}
	if err != nil {
		return Item{}, fmt.Errorf("%w: sqlx.GetContext(item) > %w", scheduler.ErrStorage, err)
	}
	return item, nil
}

// Archive marks an item as archived, which removes it from due-set
// selection without touching its scheduling state or review history.
func (r *DBRepository) Archive(ctx context.Context, userID, itemID string, now time.Time) error {
	result, err := r.ext.ExecContext(ctx,
		"UPDATE items SET archived_at = ? WHERE user_id = ? AND id = ? AND archived_at IS NULL",
		now, userID, itemID)
	if err != nil {
		return fmt.Errorf("%w: ExecContext(archive item) > %w", scheduler.ErrStorage, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: result.RowsAffected() > %w", scheduler.ErrStorage, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: item %s", scheduler.ErrItemNotFound, itemID)
	}
	return nil
}

// CountActive returns the number of unarchived items a user owns.
func (r *DBRepository) CountActive(ctx context.Context, userID string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.ext, &count,
		"SELECT COUNT(*) FROM items WHERE user_id = ? AND archived_at IS NULL", userID)
	if err != nil {
		return 0, fmt.Errorf("%w: sqlx.GetContext(count items) > %w", scheduler.ErrStorage, err)
	}
	return count, nil
}
