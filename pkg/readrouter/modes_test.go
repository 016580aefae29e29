package readrouter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neerajsamtani/ledgershift/config"
	"github.com/neerajsamtani/ledgershift/pkg/models"
)

func TestModesFor(t *testing.T) {
	modes := NewModes(ModeLegacy, map[models.EntityType]Mode{
		models.EntityCategory: ModeNew,
	})

	assert.Equal(t, ModeNew, modes.For(models.EntityCategory))
	assert.Equal(t, ModeLegacy, modes.For(models.EntityTransaction))
}

func TestModesZeroValueDefaultsLegacy(t *testing.T) {
	var modes Modes
	assert.Equal(t, ModeLegacy, modes.For(models.EntityEvent))
}

func TestModesFromConfig(t *testing.T) {
	tests := []struct {
		name             string
		readFromNewStore bool
		overrides        []string
		entity           models.EntityType
		expected         Mode
	}{
		{
			name:             "default legacy",
			readFromNewStore: false,
			entity:           models.EntityCategory,
			expected:         ModeLegacy,
		},
		{
			name:             "default new",
			readFromNewStore: true,
			entity:           models.EntityCategory,
			expected:         ModeNew,
		},
		{
			name:             "override wins over default",
			readFromNewStore: true,
			overrides:        []string{"transactions:legacy"},
			entity:           models.EntityTransaction,
			expected:         ModeLegacy,
		},
		{
			name:             "override with whitespace",
			readFromNewStore: false,
			overrides:        []string{" categories:new "},
			entity:           models.EntityCategory,
			expected:         ModeNew,
		},
		{
			name:             "malformed entry ignored",
			readFromNewStore: false,
			overrides:        []string{"categories"},
			entity:           models.EntityCategory,
			expected:         ModeLegacy,
		},
		{
			name:             "unknown mode ignored",
			readFromNewStore: false,
			overrides:        []string{"categories:both"},
			entity:           models.EntityCategory,
			expected:         ModeLegacy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				ReadFromNewStore:  tt.readFromNewStore,
				ReadModeOverrides: tt.overrides,
			}
			modes := ModesFromConfig(cfg)
			assert.Equal(t, tt.expected, modes.For(tt.entity))
		})
	}
}
