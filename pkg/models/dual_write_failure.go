package models

import (
	"encoding/json"
	"time"
)

// DualWriteFailure is the structured record written when the new-store leg
// of a dual write fails after the legacy leg succeeded. Reconciliation
// heals the drift; this record is the audit trail.
type DualWriteFailure struct {
	ID           string          `json:"id" db:"id"`
	Operation    string          `json:"operation" db:"operation"`
	EntityType   string          `json:"entity_type" db:"entity_type"`
	LegacyID     *string         `json:"legacy_id,omitempty" db:"legacy_id"`
	Error        string          `json:"error" db:"error"`
	LegacyResult json.RawMessage `json:"legacy_result,omitempty" db:"legacy_result"`
	OccurredAt   time.Time       `json:"occurred_at" db:"occurred_at"`
}
