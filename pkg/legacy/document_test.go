package legacy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bare id", input: "line_item_123", expected: "line_item_123"},
		{name: "record id", input: "line_items:line_item_123", expected: "line_item_123"},
		{name: "bracketed record id", input: "line_items:⟨line_item_123⟩", expected: "line_item_123"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeID(tt.input))
		})
	}
}

func TestDocumentTime(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected time.Time
	}{
		{name: "rfc3339", value: "2023-04-05T12:30:00Z", expected: time.Date(2023, 4, 5, 12, 30, 0, 0, time.UTC)},
		{name: "date only", value: "2023-04-05", expected: time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC)},
		{name: "unix seconds", value: float64(1680695400), expected: time.Unix(1680695400, 0).UTC()},
		{name: "missing", value: nil, expected: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Document{"date": tt.value}
			assert.Equal(t, tt.expected, doc.Time("date"))
		})
	}
}

func TestDocumentAccessors(t *testing.T) {
	doc := Document{
		"id":         "events:event_9",
		"amount":     42.5,
		"active":     true,
		"line_items": []any{"line_item_1", "line_item_2"},
	}

	assert.Equal(t, "event_9", doc.ID())
	assert.Equal(t, 42.5, doc.Float("amount"))
	assert.True(t, doc.Bool("active"))
	assert.Equal(t, []string{"line_item_1", "line_item_2"}, doc.Strings("line_items"))
	assert.Equal(t, "", doc.String("missing"))
}

func TestRawCollectionFor(t *testing.T) {
	assert.Equal(t, CollectionVenmoRaw, RawCollectionFor("venmo"))
	assert.Equal(t, CollectionStripeRaw, RawCollectionFor("stripe"))
	assert.Equal(t, "", RawCollectionFor("unknown"))
}
