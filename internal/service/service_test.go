package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/memora-dev/memora/internal/scheduler"
	"github.com/memora-dev/memora/internal/settings"
)

var testNow = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

type staticSettings struct {
	settings.Repository
}

func (staticSettings) Find(_ context.Context, userID string) (settings.UserSettings, error) {
	return settings.Default(userID), nil
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := New(
		sqlx.NewDb(db, "mysql"),
		scheduler.NewProcessor(scheduler.Config{}),
		staticSettings{},
		WithClock(func() time.Time { return testNow }),
		WithLockTimeout(100*time.Millisecond),
	)
	return svc, mock
}

func stateRow(itemID string, ef float64, interval, repetitions int, status scheduler.Status) *sqlmock.Rows {
	columns := []string{
		"item_id", "user_id", "ease_factor", "interval_days", "repetitions",
		"status", "next_review_at", "last_review_at", "created_at", "updated_at",
	}
	return sqlmock.NewRows(columns).AddRow(
		itemID, "user-1", ef, interval, repetitions, string(status),
		testNow, nil, testNow, testNow)
}

func expectSubmitTx(mock sqlmock.Sqlmock, itemID string) {
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM scheduling_states").
		WillReturnRows(stateRow(itemID, 2.5, 6, 2, scheduler.StatusReview))
	mock.ExpectExec("UPDATE scheduling_states").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO reviews").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
}

func TestServiceSubmitReview(t *testing.T) {
	svc, mock := newTestService(t)
	expectSubmitTx(mock, "item-1")

	outcome, err := svc.SubmitReview(context.Background(), SubmitRequest{
		UserID: "user-1",
		ItemID: "item-1",
		Rating: scheduler.RatingGood,
	})
	require.NoError(t, err)
	assert.Equal(t, 15, outcome.IntervalDays) // round(6 * 2.5)
	assert.Equal(t, testNow.AddDate(0, 0, 15), outcome.NextReviewAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceSubmitReviewInvalidRating(t *testing.T) {
	svc, mock := newTestService(t)

	_, err := svc.SubmitReview(context.Background(), SubmitRequest{
		UserID: "user-1",
		ItemID: "item-1",
		Rating: scheduler.Rating(9),
	})
	assert.ErrorIs(t, err, scheduler.ErrInvalidRating)
	// Rejected before any persistence work.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceSubmitReviewItemNotFound(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM scheduling_states").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.SubmitReview(context.Background(), SubmitRequest{
		UserID: "user-1",
		ItemID: "missing",
		Rating: scheduler.RatingGood,
	})
	assert.ErrorIs(t, err, scheduler.ErrItemNotFound)
}

func TestServiceSubmitReviewRollsBackOnLedgerFailure(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM scheduling_states").
		WillReturnRows(stateRow("item-1", 2.5, 6, 2, scheduler.StatusReview))
	mock.ExpectExec("UPDATE scheduling_states").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO reviews").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := svc.SubmitReview(context.Background(), SubmitRequest{
		UserID: "user-1",
		ItemID: "item-1",
		Rating: scheduler.RatingGood,
	})
	assert.ErrorIs(t, err, scheduler.ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceSubmitReviewReplaysToken(t *testing.T) {
	svc, mock := newTestService(t)
	columns := []string{
		"id", "item_id", "user_id", "rating", "ease_factor_before", "ease_factor_after",
		"interval_before", "interval_after", "reviewed_at", "submission_token", "created_at",
	}
	mock.ExpectQuery("SELECT \\* FROM reviews WHERE submission_token = \\?").
		WithArgs("token-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(
			1, "item-1", "user-1", 3, 2.5, 2.5, 6, 15, testNow, "token-1", testNow))

	outcome, err := svc.SubmitReview(context.Background(), SubmitRequest{
		UserID:          "user-1",
		ItemID:          "item-1",
		Rating:          scheduler.RatingGood,
		SubmissionToken: "token-1",
	})
	require.NoError(t, err)
	// The recorded outcome comes back without re-applying the rating.
	assert.Equal(t, 15, outcome.IntervalDays)
	assert.Equal(t, testNow.AddDate(0, 0, 15), outcome.NextReviewAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceSubmitReviewConcurrentSubmissionsSerialize(t *testing.T) {
	svc, mock := newTestService(t)
	// Both submissions must run as two complete, sequential transactions.
	mock.MatchExpectationsInOrder(true)
	expectSubmitTx(mock, "item-1")
	expectSubmitTx(mock, "item-1")

	var group errgroup.Group
	for i := 0; i < 2; i++ {
		group.Go(func() error {
			_, err := svc.SubmitReview(context.Background(), SubmitRequest{
				UserID: "user-1",
				ItemID: "item-1",
				Rating: scheduler.RatingGood,
			})
			return err
		})
	}
	require.NoError(t, group.Wait())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceCreateItem(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO items").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO scheduling_states").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	created, err := svc.CreateItem(context.Background(), CreateItemRequest{
		UserID: "user-1",
		Title:  "The pigeonhole principle",
		Topics: []string{"combinatorics"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "user-1", created.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
