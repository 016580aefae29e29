package models

import "time"

// Event is a user-created grouping of line items under exactly one
// category. Categories are delete-restricted while events reference them.
type Event struct {
	ID          string    `json:"id" db:"id"`
	LegacyID    *string   `json:"legacy_id,omitempty" db:"legacy_id"`
	CategoryID  string    `json:"category_id" db:"category_id" validate:"required"`
	Description string    `json:"description" db:"description"`
	OccurredAt  time.Time `json:"occurred_at" db:"occurred_at"`
	Amount      float64   `json:"amount" db:"amount"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Junction rows, unique on (parent id, child id).

type EventLineItem struct {
	EventID    string `json:"event_id" db:"event_id"`
	LineItemID string `json:"line_item_id" db:"line_item_id"`
}

type EventTag struct {
	EventID string `json:"event_id" db:"event_id"`
	TagID   string `json:"tag_id" db:"tag_id"`
}
