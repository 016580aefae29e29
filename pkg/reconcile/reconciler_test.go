package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neerajsamtani/ledgershift/pkg/logging"
)

type fakeLegacyIDs struct {
	ids map[string][]string
}

func (f *fakeLegacyIDs) ListIDs(ctx context.Context, collection string) ([]string, error) {
	return f.ids[collection], nil
}

func TestGapFor(t *testing.T) {
	r := &Reconciler{
		legacy: &fakeLegacyIDs{ids: map[string][]string{
			"categories": {"categories:a", "categories:⟨b⟩", "c"},
		}},
		logger: logging.NewNoopLogger(),
	}

	missing, err := r.gapFor(context.Background(), "categories", func(ctx context.Context) ([]string, error) {
		return []string{"a"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, missing, "record-prefixed legacy ids normalize before comparison")
}

func TestGapForNoDivergence(t *testing.T) {
	r := &Reconciler{
		legacy: &fakeLegacyIDs{ids: map[string][]string{
			"line_items": {"line_item_1", "line_item_2"},
		}},
		logger: logging.NewNoopLogger(),
	}

	missing, err := r.gapFor(context.Background(), "line_items", func(ctx context.Context) ([]string, error) {
		return []string{"line_item_1", "line_item_2"}, nil
	})

	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestGapForEmptyLegacy(t *testing.T) {
	r := &Reconciler{
		legacy: &fakeLegacyIDs{ids: map[string][]string{}},
		logger: logging.NewNoopLogger(),
	}

	missing, err := r.gapFor(context.Background(), "events", func(ctx context.Context) ([]string, error) {
		return []string{"evt_extra"}, nil
	})

	require.NoError(t, err)
	assert.Empty(t, missing, "extra new-store rows are not a reconciliation concern")
}
