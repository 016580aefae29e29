package models

import (
	"encoding/json"
	"time"
)

// Transaction sources. "manual" marks transactions synthesized to own a
// line item whose source transaction could not be resolved.
const (
	SourceVenmo     = "venmo"
	SourceSplitwise = "splitwise"
	SourceStripe    = "stripe"
	SourceCash      = "cash"
	SourceManual    = "manual"
)

// RawSources are the ingest sources with a legacy raw collection, in the
// order the transaction phase walks them.
var RawSources = []string{SourceVenmo, SourceSplitwise, SourceStripe, SourceCash}

// Transaction is a raw event ingested from one of several sources, unique
// on (source, source_id). Payload keeps the original document verbatim for
// audit; it is the one intentionally schema-free field in the model.
type Transaction struct {
	ID         string          `json:"id" db:"id"`
	Source     string          `json:"source" db:"source" validate:"required"`
	SourceID   string          `json:"source_id" db:"source_id" validate:"required"`
	OccurredAt time.Time       `json:"occurred_at" db:"occurred_at"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	LegacyID   *string         `json:"legacy_id,omitempty" db:"legacy_id"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// MapKey is the migration-map key for this transaction's legacy identity.
func (t *Transaction) MapKey() string {
	return t.Source + ":" + t.SourceID
}
