package migration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neerajsamtani/ledgershift/pkg/legacy"
	"github.com/neerajsamtani/ledgershift/pkg/logging"
	"github.com/neerajsamtani/ledgershift/pkg/models"
)

func TestRunPhaseUnknownName(t *testing.T) {
	m := NewMigrator(MigratorParams{Logger: logging.NewNoopLogger()})

	_, err := m.RunPhase(context.Background(), "nonsense")
	require.Error(t, err)
}

func TestExtractOccurredAt(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		doc      legacy.Document
		expected time.Time
	}{
		{
			name:     "venmo date_created",
			source:   models.SourceVenmo,
			doc:      legacy.Document{"date_created": "2024-03-01T12:00:00Z"},
			expected: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name:     "splitwise date",
			source:   models.SourceSplitwise,
			doc:      legacy.Document{"date": "2024-03-02T08:30:00Z"},
			expected: time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC),
		},
		{
			name:     "stripe unix created",
			source:   models.SourceStripe,
			doc:      legacy.Document{"created": float64(1709337600)},
			expected: time.Unix(1709337600, 0).UTC(),
		},
		{
			name:     "cash date-only string",
			source:   models.SourceCash,
			doc:      legacy.Document{"date": "2024-03-04"},
			expected: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "missing field yields zero time",
			source:   models.SourceVenmo,
			doc:      legacy.Document{},
			expected: time.Time{},
		},
		{
			name:     "unknown source yields zero time",
			source:   "paypal",
			doc:      legacy.Document{"date": "2024-03-04"},
			expected: time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractOccurredAt(tt.source, tt.doc))
		})
	}
}

func TestDedupeByName(t *testing.T) {
	m := NewMigrator(MigratorParams{Logger: logging.NewNoopLogger()})
	report := &models.PhaseReport{}

	docs := []legacy.Document{
		{"id": "categories:1", "name": "groceries", "active": false},
		{"id": "categories:2", "name": "groceries", "active": true},
		{"id": "categories:3", "name": "travel", "active": true},
		{"id": "categories:4", "name": "travel", "active": true},
		{"id": "categories:5"},
	}

	deduped := m.dedupeByName(context.Background(), models.EntityCategory, docs, report)

	require.Len(t, deduped, 2)
	// Ordered by name for deterministic runs.
	assert.Equal(t, "groceries", deduped[0].String("name"))
	assert.Equal(t, "travel", deduped[1].String("name"))

	// The active duplicate wins over the inactive first encounter.
	assert.Equal(t, "2", deduped[0].ID())
	// Ties keep the first encountered.
	assert.Equal(t, "3", deduped[1].ID())

	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 1, report.Errored, "nameless document is counted, not dropped silently")
}

func TestDocActive(t *testing.T) {
	assert.True(t, docActive(legacy.Document{"active": true}))
	assert.False(t, docActive(legacy.Document{"active": false}))
	assert.True(t, docActive(legacy.Document{}), "documents predating the flag default to active")
}
