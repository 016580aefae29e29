package verify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/neerajsamtani/ledgershift/pkg/legacy"
)

func newTestSuite() *Suite {
	return &Suite{amountTolerance: 0.01}
}

func TestFieldMismatchesTolerances(t *testing.T) {
	s := newTestSuite()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		legacyAmount float64
		newAmount    float64
		legacyDate   time.Time
		newDate      time.Time
		legacyDesc   string
		newDesc      string
		mismatches   int
	}{
		{
			name:         "identical",
			legacyAmount: 10.50, newAmount: 10.50,
			legacyDate: base, newDate: base,
			legacyDesc: "coffee", newDesc: "coffee",
			mismatches: 0,
		},
		{
			name:         "amount within a cent",
			legacyAmount: 10.501, newAmount: 10.50,
			legacyDate: base, newDate: base,
			mismatches: 0,
		},
		{
			name:         "amount beyond a cent",
			legacyAmount: 10.52, newAmount: 10.50,
			legacyDate: base, newDate: base,
			mismatches: 1,
		},
		{
			name:         "date within a second",
			legacyAmount: 5, newAmount: 5,
			legacyDate: base, newDate: base.Add(900 * time.Millisecond),
			mismatches: 0,
		},
		{
			name:         "date beyond a second",
			legacyAmount: 5, newAmount: 5,
			legacyDate: base, newDate: base.Add(2 * time.Second),
			mismatches: 1,
		},
		{
			name:         "zero legacy date skips the date check",
			legacyAmount: 5, newAmount: 5,
			legacyDate: time.Time{}, newDate: base,
			mismatches: 0,
		},
		{
			name:         "description differs",
			legacyAmount: 5, newAmount: 5,
			legacyDate: base, newDate: base,
			legacyDesc: "lunch", newDesc: "dinner",
			mismatches: 1,
		},
		{
			name:         "everything diverges",
			legacyAmount: 5, newAmount: 9,
			legacyDate: base, newDate: base.Add(time.Hour),
			legacyDesc: "a", newDesc: "b",
			mismatches: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := s.fieldMismatches(tt.legacyAmount, tt.newAmount, tt.legacyDate, tt.newDate, tt.legacyDesc, tt.newDesc)
			assert.Len(t, problems, tt.mismatches)
		})
	}
}

func TestSample(t *testing.T) {
	docs := make([]legacy.Document, 100)
	for i := range docs {
		docs[i] = legacy.Document{"i": float64(i)}
	}

	sampled := sample(docs, 25)
	assert.Len(t, sampled, 25)

	// Sampling never mutates the input slice.
	for i := range docs {
		assert.Equal(t, float64(i), docs[i].Float("i"))
	}

	small := sample(docs[:10], 25)
	assert.Len(t, small, 10, "a population smaller than the sample size is used whole")
}
