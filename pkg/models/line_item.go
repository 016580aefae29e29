package models

import "time"

// LineItem is a normalized monetary line derived from a transaction.
// TransactionID is required; the line-item phase synthesizes a manual
// transaction when no owner is resolvable. PaymentMethodID falls back to
// the "Unknown" sentinel.
type LineItem struct {
	ID              string    `json:"id" db:"id"`
	LegacyID        *string   `json:"legacy_id,omitempty" db:"legacy_id"`
	TransactionID   string    `json:"transaction_id" db:"transaction_id" validate:"required"`
	PaymentMethodID *string   `json:"payment_method_id,omitempty" db:"payment_method_id"`
	PartyID         *string   `json:"party_id,omitempty" db:"party_id"`
	OccurredAt      time.Time `json:"occurred_at" db:"occurred_at"`
	Description     string    `json:"description" db:"description"`
	Amount          float64   `json:"amount" db:"amount"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
