package models

import "time"

// Reference is a row in one of the name-keyed lookup tables (categories,
// payment methods, parties, tags). The tables share a shape; EntityType
// picks the table. LegacyID stays populated for the migration window so
// either id form resolves the same row.
type Reference struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name" validate:"required"`
	Active    bool      `json:"active" db:"active"`
	LegacyID  *string   `json:"legacy_id,omitempty" db:"legacy_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UnknownPaymentMethodName is the sentinel payment method lazily created
// once and reused whenever a line item's payment method cannot be resolved.
const UnknownPaymentMethodName = "Unknown"
