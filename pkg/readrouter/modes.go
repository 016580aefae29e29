// Package readrouter routes reads per entity type between the legacy store
// and the new store while both id forms coexist.
package readrouter

import (
	"strings"

	"github.com/neerajsamtani/ledgershift/config"
	"github.com/neerajsamtani/ledgershift/pkg/models"
)

type Mode string

const (
	ModeLegacy Mode = "legacy"
	ModeNew    Mode = "new"
)

// Modes is the process-wide read-mode flag: one default plus per-entity
// overrides, so entity types cut over independently.
type Modes struct {
	def       Mode
	overrides map[models.EntityType]Mode
}

func NewModes(def Mode, overrides map[models.EntityType]Mode) Modes {
	if overrides == nil {
		overrides = map[models.EntityType]Mode{}
	}
	return Modes{def: def, overrides: overrides}
}

// ModesFromConfig builds the read-mode flag from READ_FROM_NEW_STORE and
// READ_MODE_OVERRIDES ("entity_type:legacy|new" pairs). Malformed override
// entries are ignored rather than failing startup.
func ModesFromConfig(cfg *config.Config) Modes {
	def := ModeLegacy
	if cfg.ReadFromNewStore {
		def = ModeNew
	}

	overrides := map[models.EntityType]Mode{}
	for _, entry := range cfg.ReadModeOverrides {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 2)
		if len(parts) != 2 {
			continue
		}
		mode := Mode(parts[1])
		if mode != ModeLegacy && mode != ModeNew {
			continue
		}
		overrides[models.EntityType(parts[0])] = mode
	}

	return NewModes(def, overrides)
}

// For returns the authoritative store for an entity type.
func (m Modes) For(entity models.EntityType) Mode {
	if mode, ok := m.overrides[entity]; ok {
		return mode
	}
	if m.def == "" {
		return ModeLegacy
	}
	return m.def
}
