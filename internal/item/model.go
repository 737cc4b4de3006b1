// Package item provides the item registry consumed by the scheduler: item
// identity, topic metadata and the archived flag that stops selection.
package item

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Topics is the list of topic tags attached to an item, stored as a JSON
// column. Used by the topic performance analytics.
type Topics []string

// Value implements driver.Valuer.
func (t Topics) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("json.Marshal(topics) > %w", err)
	}
	return encoded, nil
}

// Scan implements sql.Scanner.
func (t *Topics) Scan(src interface{}) error {
	if src == nil {
		*t = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported topics column type %T", src)
	}
	if err := json.Unmarshal(raw, t); err != nil {
		return fmt.Errorf("json.Unmarshal(topics) > %w", err)
	}
	return nil
}

// Item is a reviewable unit owned by a user. Content lives elsewhere; the
// scheduler only needs identity, topics and the archived flag.
type Item struct {
	ID           string         `db:"id"`
	UserID       string         `db:"user_id"`
	CollectionID sql.NullString `db:"collection_id"`
	Title        string         `db:"title"`
	Topics       Topics         `db:"topics"`
	CreatedAt    time.Time      `db:"created_at"`
	ArchivedAt   sql.NullTime   `db:"archived_at"`
}
