package models

// EntityType names a logical record kind routed through the dual-write
// coordinator and read router. Values double as the new-store table names.
type EntityType string

const (
	EntityCategory      EntityType = "categories"
	EntityPaymentMethod EntityType = "payment_methods"
	EntityParty         EntityType = "parties"
	EntityTag           EntityType = "tags"
	EntityTransaction   EntityType = "transactions"
	EntityLineItem      EntityType = "line_items"
	EntityEvent         EntityType = "events"
	EntityAccount       EntityType = "accounts"
	EntityUser          EntityType = "users"
)

// ReferenceEntityTypes lists the four name-keyed lookup tables in the order
// the reference phase migrates them.
var ReferenceEntityTypes = []EntityType{
	EntityCategory,
	EntityPaymentMethod,
	EntityParty,
	EntityTag,
}

func (e EntityType) String() string {
	return string(e)
}

// Table returns the new-store table backing the entity type.
func (e EntityType) Table() string {
	return string(e)
}
