// Package service orchestrates the scheduling engine: it serializes review
// submissions per item, runs the rating processor, and persists the state
// update together with the ledger append in one transaction.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/memora-dev/memora/internal/item"
	"github.com/memora-dev/memora/internal/review"
	"github.com/memora-dev/memora/internal/scheduler"
	"github.com/memora-dev/memora/internal/settings"
)

const (
	defaultLockTimeout = 5 * time.Second
	submitMaxAttempts  = 3
)

// Service is the scheduler's write-side API: review submission and the item
// creation side effect.
type Service struct {
	db          *sqlx.DB
	processor   *scheduler.Processor
	settings    settings.Repository
	locks       *lockManager
	lockTimeout time.Duration
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLockTimeout overrides the per-item lock acquisition deadline.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) { s.lockTimeout = d }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service.
func New(db *sqlx.DB, processor *scheduler.Processor, settingsRepo settings.Repository, opts ...Option) *Service {
	s := &Service{
		db:          db,
		processor:   processor,
		settings:    settingsRepo,
		locks:       newLockManager(),
		lockTimeout: defaultLockTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitRequest is one rating submission. SubmissionToken is optional; when
// supplied, resubmitting the same token replays the recorded outcome instead
// of applying the rating twice.
type SubmitRequest struct {
	UserID          string
	ItemID          string
	Rating          scheduler.Rating
	SubmissionToken string
}

// Outcome is the authoritative post-update schedule, returned so callers can
// reconcile an optimistic update without re-querying.
type Outcome struct {
	NextReviewAt time.Time
	IntervalDays int
}

// SubmitReview applies a rating to an item under the per-item lock and
// persists the new state plus the ledger record atomically. The transaction
// is not cancelled once started; cancellation is only honored while waiting
// for the lock.
func (s *Service) SubmitReview(ctx context.Context, req SubmitRequest) (Outcome, error) {
	if !req.Rating.IsValid() {
		return Outcome{}, fmt.Errorf("%w: %d", scheduler.ErrInvalidRating, int(req.Rating))
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	release, err := s.locks.acquire(lockCtx, req.UserID+"/"+req.ItemID)
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	if req.SubmissionToken != "" {
		recorded, err := review.NewDBRepository(s.db).FindByToken(ctx, req.SubmissionToken)
		if err != nil {
			return Outcome{}, fmt.Errorf("reviews.FindByToken() > %w", err)
		}
		if recorded != nil {
			slog.Info("replaying recorded review submission",
				"item_id", req.ItemID, "token", req.SubmissionToken)
			return Outcome{
				NextReviewAt: recorded.NextReviewAt(),
				IntervalDays: recorded.IntervalAfter,
			}, nil
		}
	}

	now := s.now()
	var outcome Outcome
	err = retry.Do(
		func() error {
			result, err := s.submitOnce(ctx, req, now)
			if err != nil {
				return err
			}
			outcome = result
			return nil
		},
		retry.Attempts(submitMaxAttempts),
		retry.RetryIf(isRetryableStorageError),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return Outcome{}, err
	}
	return outcome, nil
}

// submitOnce runs one load-process-persist transaction. The body uses a
// detached context so an in-flight update is never torn by cancellation.
func (s *Service) submitOnce(ctx context.Context, req SubmitRequest, now time.Time) (Outcome, error) {
	txCtx := context.WithoutCancel(ctx)

	tx, err := s.db.BeginTxx(txCtx, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: db.BeginTxx() > %w", scheduler.ErrStorage, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	states := scheduler.NewDBStateRepository(tx)
	before, err := states.Find(txCtx, req.UserID, req.ItemID)
	if err != nil {
		return Outcome{}, err
	}

	after, err := s.processor.Process(before, req.Rating, now)
	if err != nil {
		return Outcome{}, err
	}

	if err := states.Update(txCtx, after); err != nil {
		return Outcome{}, err
	}

	record := review.Record{
		ItemID:           req.ItemID,
		UserID:           req.UserID,
		Rating:           req.Rating,
		EaseFactorBefore: before.EaseFactor,
		EaseFactorAfter:  after.EaseFactor,
		IntervalBefore:   before.IntervalDays,
		IntervalAfter:    after.IntervalDays,
		ReviewedAt:       now,
	}
	if req.SubmissionToken != "" {
		record.SubmissionToken.String = req.SubmissionToken
		record.SubmissionToken.Valid = true
	}
	if err := review.NewDBRepository(tx).Append(txCtx, &record); err != nil {
		return Outcome{}, err
	}

	if err := tx.Commit(); err != nil {
		return Outcome{}, fmt.Errorf("%w: tx.Commit() > %w", scheduler.ErrStorage, err)
	}

	slog.Info("review processed",
		"user_id", req.UserID,
		"item_id", req.ItemID,
		"rating", req.Rating.String(),
		"interval_days", after.IntervalDays,
		"status", string(after.Status))

	return Outcome{
		NextReviewAt: after.NextReviewAt,
		IntervalDays: after.IntervalDays,
	}, nil
}

// CreateItemRequest describes a new item to register with the scheduler.
type CreateItemRequest struct {
	UserID       string
	CollectionID string
	Title        string
	Topics       []string
}

// CreateItem registers an item and, in the same transaction, its initial
// scheduling state (status new, interval 0, the user's default ease factor).
func (s *Service) CreateItem(ctx context.Context, req CreateItemRequest) (item.Item, error) {
	prefs, err := s.settings.Find(ctx, req.UserID)
	if err != nil {
		return item.Item{}, fmt.Errorf("settings.Find() > %w", err)
	}

	now := s.now()
	created := item.Item{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		Title:     req.Title,
		Topics:    req.Topics,
		CreatedAt: now,
	}
	if req.CollectionID != "" {
		created.CollectionID.String = req.CollectionID
		created.CollectionID.Valid = true
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return item.Item{}, fmt.Errorf("%w: db.BeginTxx() > %w", scheduler.ErrStorage, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := item.NewDBRepository(tx).Create(ctx, &created); err != nil {
		return item.Item{}, err
	}
	state := scheduler.NewState(created.ID, req.UserID, prefs.DefaultEaseFactor, now)
	if err := scheduler.NewDBStateRepository(tx).Create(ctx, state); err != nil {
		return item.Item{}, err
	}
	if err := tx.Commit(); err != nil {
		return item.Item{}, fmt.Errorf("%w: tx.Commit() > %w", scheduler.ErrStorage, err)
	}
	return created, nil
}

// ArchiveItem marks an item archived so the selector stops offering it.
// The scheduling state and ledger records are kept; archiving is about
// selection, not history.
func (s *Service) ArchiveItem(ctx context.Context, userID, itemID string) error {
	if err := item.NewDBRepository(s.db).Archive(ctx, userID, itemID, s.now()); err != nil {
		return err
	}
	slog.Info("archived item", "user_id", userID, "item_id", itemID)
	return nil
}

// isRetryableStorageError reports whether a failed submit can be retried
// safely: the transaction rolled back, so MySQL deadlocks and lock wait
// timeouts are worth another attempt. Validation and not-found errors are
// never retried.
func isRetryableStorageError(err error) bool {
	if !errors.Is(err, scheduler.ErrStorage) {
		return false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		// 1213: deadlock found, 1205: lock wait timeout exceeded.
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}
