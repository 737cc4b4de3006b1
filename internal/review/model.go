// Package review provides the append-only review ledger: one immutable
// record per submitted rating, the audit trail behind all analytics.
package review

import (
	"database/sql"
	"time"

	"github.com/memora-dev/memora/internal/scheduler"
)

// Record is a single submitted review. Records are write-once: they are
// never mutated or deleted after creation.
type Record struct {
	ID               int64            `db:"id"`
	ItemID           string           `db:"item_id"`
	UserID           string           `db:"user_id"`
	Rating           scheduler.Rating `db:"rating"`
	EaseFactorBefore float64          `db:"ease_factor_before"`
	EaseFactorAfter  float64          `db:"ease_factor_after"`
	IntervalBefore   int              `db:"interval_before"`
	IntervalAfter    int              `db:"interval_after"`
	ReviewedAt       time.Time        `db:"reviewed_at"`
	SubmissionToken  sql.NullString   `db:"submission_token"`
	CreatedAt        time.Time        `db:"created_at"`
}

// NextReviewAt reconstructs the review date this record scheduled. Used to
// answer idempotent replays without storing derivable state in the ledger.
func (r Record) NextReviewAt() time.Time {
	return r.ReviewedAt.AddDate(0, 0, r.IntervalAfter)
}

// RatedTopics pairs a review's rating with the topics of the reviewed item,
// for the per-topic performance aggregation.
type RatedTopics struct {
	Rating scheduler.Rating `db:"rating"`
	Topics []byte           `db:"topics"`
}
