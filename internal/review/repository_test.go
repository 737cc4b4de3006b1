package review_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memora-dev/memora/internal/review"
	"github.com/memora-dev/memora/internal/scheduler"
	"github.com/memora-dev/memora/internal/testutil"
)

func reviewColumns() []string {
	return []string{
		"id", "item_id", "user_id", "rating", "ease_factor_before", "ease_factor_after",
		"interval_before", "interval_after", "reviewed_at", "submission_token", "created_at",
	}
}

func TestDBRepositoryAppend(t *testing.T) {
	now := testutil.Date(2025, time.June, 10)

	t.Run("inserts and fills the generated id", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		mock.ExpectExec("INSERT INTO reviews").
			WillReturnResult(sqlmock.NewResult(7, 1))

		repo := review.NewDBRepository(db)
		record := review.Record{
			ItemID:           "item-1",
			UserID:           "user-1",
			Rating:           scheduler.RatingGood,
			EaseFactorBefore: 2.5,
			EaseFactorAfter:  2.5,
			IntervalBefore:   6,
			IntervalAfter:    15,
			ReviewedAt:       now,
		}
		require.NoError(t, repo.Append(context.Background(), &record))
		assert.Equal(t, int64(7), record.ID)
		testutil.RequireExpectationsMet(t, mock)
	})

	t.Run("duplicate token surfaces as a storage error", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		mock.ExpectExec("INSERT INTO reviews").
			WillReturnError(assert.AnError)

		repo := review.NewDBRepository(db)
		err := repo.Append(context.Background(), &review.Record{ItemID: "item-1", UserID: "user-1"})
		assert.ErrorIs(t, err, scheduler.ErrStorage)
	})
}

func TestDBRepositoryFindByToken(t *testing.T) {
	now := testutil.Date(2025, time.June, 10)

	t.Run("returns the recorded submission", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM reviews WHERE submission_token = \\?").
			WithArgs("tok-1").
			WillReturnRows(sqlmock.NewRows(reviewColumns()).
				AddRow(7, "item-1", "user-1", 3, 2.5, 2.5, 6, 15, now, "tok-1", now))

		repo := review.NewDBRepository(db)
		got, err := repo.FindByToken(context.Background(), "tok-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "item-1", got.ItemID)
		assert.Equal(t, 15, got.IntervalAfter)
		assert.True(t, got.NextReviewAt().Equal(now.AddDate(0, 0, 15)))
	})

	t.Run("unseen token returns nil without error", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		mock.ExpectQuery("SELECT \\* FROM reviews WHERE submission_token = \\?").
			WillReturnRows(sqlmock.NewRows(reviewColumns()))

		repo := review.NewDBRepository(db)
		got, err := repo.FindByToken(context.Background(), "unseen")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestDBRepositoryListByUser(t *testing.T) {
	now := testutil.Date(2025, time.June, 10)

	db, mock := testutil.NewMockDB(t)
	mock.ExpectQuery("SELECT \\* FROM reviews WHERE user_id = \\? ORDER BY reviewed_at DESC, id DESC LIMIT \\?").
		WithArgs("user-1", 50).
		WillReturnRows(sqlmock.NewRows(reviewColumns()).
			AddRow(2, "item-2", "user-1", 4, 2.5, 2.6, 1, 3, now, nil, now).
			AddRow(1, "item-1", "user-1", 3, 2.5, 2.5, 0, 1, now.AddDate(0, 0, -1), nil, now))

	repo := review.NewDBRepository(db)
	records, err := repo.ListByUser(context.Background(), "user-1", 50)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "item-2", records[0].ItemID)
	assert.Equal(t, scheduler.RatingEasy, records[0].Rating)
}

func TestDBRepositoryCounts(t *testing.T) {
	since := testutil.Date(2025, time.June, 10)

	t.Run("CountSince", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM reviews WHERE user_id = \\? AND reviewed_at >= \\?").
			WithArgs("user-1", since).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

		repo := review.NewDBRepository(db)
		count, err := repo.CountSince(context.Background(), "user-1", since)
		require.NoError(t, err)
		assert.Equal(t, 12, count)
	})

	t.Run("CountItemsStartedSince only counts first-ever reviews", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		mock.ExpectQuery("SELECT COUNT\\(DISTINCT v.item_id\\) FROM reviews v").
			WithArgs("user-1", since, since).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		repo := review.NewDBRepository(db)
		count, err := repo.CountItemsStartedSince(context.Background(), "user-1", since)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})
}

func TestDBRepositoryListRatedTopics(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	mock.ExpectQuery("SELECT v.rating, i.topics FROM reviews v").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"rating", "topics"}).
			AddRow(3, []byte(`["biology"]`)).
			AddRow(1, []byte(`["chemistry","biology"]`)))

	repo := review.NewDBRepository(db)
	rows, err := repo.ListRatedTopics(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, scheduler.RatingGood, rows[0].Rating)
	assert.JSONEq(t, `["chemistry","biology"]`, string(rows[1].Topics))
}
