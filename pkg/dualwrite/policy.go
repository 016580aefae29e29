package dualwrite

import "github.com/neerajsamtani/ledgershift/pkg/models"

// Policy fixes, per entity type, whether a failed new-store leg escalates
// to the caller. Low-volume identity data (reference rows, events,
// accounts, users) is critical: a miss there skews every report built on
// it, and the writes are rare enough that surfacing the failure costs
// little. High-volume ingest (transactions, line items) is non-critical:
// the authoritative legacy write stands and reconciliation heals the gap.
type Policy map[models.EntityType]bool

// DefaultPolicy is the documented per-entity criticality rule.
func DefaultPolicy() Policy {
	return Policy{
		models.EntityCategory:      true,
		models.EntityPaymentMethod: true,
		models.EntityParty:         true,
		models.EntityTag:           true,
		models.EntityEvent:         true,
		models.EntityAccount:       true,
		models.EntityUser:          true,
		models.EntityTransaction:   false,
		models.EntityLineItem:      false,
	}
}

// Critical reports the policy for an entity type. Unknown types default to
// critical so a policy gap fails loudly instead of silently dropping data.
func (p Policy) Critical(entity models.EntityType) bool {
	critical, ok := p[entity]
	if !ok {
		return true
	}
	return critical
}
