package legacy

import (
	"strings"
	"time"
)

// Collection names in the legacy store.
const (
	CollectionVenmoRaw       = "venmo_raw_data"
	CollectionSplitwiseRaw   = "splitwise_raw_data"
	CollectionStripeRaw      = "stripe_raw_data"
	CollectionCashRaw        = "cash_raw_data"
	CollectionLineItems      = "line_items"
	CollectionEvents         = "events"
	CollectionCategories     = "categories"
	CollectionPaymentMethods = "payment_methods"
	CollectionParties        = "parties"
	CollectionTags           = "tags"
	CollectionAccounts       = "accounts"
	CollectionUsers          = "users"
)

// RawCollectionFor maps an ingest source to its raw legacy collection.
func RawCollectionFor(source string) string {
	switch source {
	case "venmo":
		return CollectionVenmoRaw
	case "splitwise":
		return CollectionSplitwiseRaw
	case "stripe":
		return CollectionStripeRaw
	case "cash":
		return CollectionCashRaw
	}
	return ""
}

// Document is a legacy-store record. The legacy schema is loose by nature;
// typed accessors keep the looseness contained to this package.
type Document map[string]any

// ID returns the document's legacy id with any "collection:" record prefix
// stripped, so both id forms written over the years compare equal.
func (d Document) ID() string {
	return NormalizeID(d.String("id"))
}

func (d Document) String(key string) string {
	v, ok := d[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (d Document) Float(key string) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func (d Document) Bool(key string) bool {
	v, _ := d[key].(bool)
	return v
}

func (d Document) Strings(key string) []string {
	raw, ok := d[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Time parses a timestamp field. Legacy documents carry a mix of RFC3339,
// date-only strings, and unix-second numbers depending on their source.
func (d Document) Time(key string) time.Time {
	switch v := d[key].(type) {
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UTC()
			}
		}
	case float64:
		return time.Unix(int64(v), 0).UTC()
	}
	return time.Time{}
}

// NormalizeID strips the SurrealDB record prefix ("table:⟨id⟩" or
// "table:id") down to the bare legacy id.
func NormalizeID(id string) string {
	if idx := strings.Index(id, ":"); idx >= 0 {
		id = id[idx+1:]
	}
	id = strings.TrimPrefix(id, "⟨")
	id = strings.TrimSuffix(id, "⟩")
	return id
}
