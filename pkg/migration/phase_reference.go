package migration

import (
	"context"
	"fmt"
	"sort"

	"github.com/neerajsamtani/ledgershift/pkg/legacy"
	"github.com/neerajsamtani/ledgershift/pkg/models"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
)

var referenceCollections = map[models.EntityType]string{
	models.EntityCategory:      legacy.CollectionCategories,
	models.EntityPaymentMethod: legacy.CollectionPaymentMethods,
	models.EntityParty:         legacy.CollectionParties,
	models.EntityTag:           legacy.CollectionTags,
}

// runReferencePhase upserts every legacy reference document by name.
// Legacy duplicate names collapse to one row, preferring the document
// currently marked active; ties fall back to the first encountered.
func (m *Migrator) runReferencePhase(ctx context.Context, report *models.PhaseReport) error {
	ctx, span := tracing.StartSpan(ctx, "migration.Migrator.runReferencePhase")
	defer span.End()

	for _, entityType := range models.ReferenceEntityTypes {
		collection := referenceCollections[entityType]
		repo := m.refRepos[entityType]
		if repo == nil {
			return fmt.Errorf("no repository for reference entity type %q", entityType)
		}

		docs, err := m.legacy.ListAll(ctx, collection)
		if err != nil {
			return fmt.Errorf("failed to list legacy %s: %w", collection, err)
		}

		for _, doc := range m.dedupeByName(ctx, entityType, docs, report) {
			legacyID := doc.ID()
			ref := &models.Reference{
				Name:   doc.String("name"),
				Active: docActive(doc),
			}
			if legacyID != "" {
				ref.LegacyID = &legacyID
			}

			stored, inserted, err := repo.Upsert(ctx, ref)
			if err != nil {
				report.Errored++
				report.AddMessage(fmt.Sprintf("%s %q: %v", entityType, ref.Name, err))
				continue
			}

			if inserted {
				report.Migrated++
				if err := m.emitter.EmitRecordMigrated(ctx, entityType, stored.ID, legacyID); err != nil {
					m.logger.WithContext(ctx).WithError(err).Warn("failed to emit record.migrated event")
				}
			} else {
				report.Skipped++
			}
		}
	}

	return nil
}

// dedupeByName collapses legacy duplicate names, preferring the active
// document and logging every discarded duplicate.
func (m *Migrator) dedupeByName(ctx context.Context, entityType models.EntityType, docs []legacy.Document, report *models.PhaseReport) []legacy.Document {
	byName := map[string]legacy.Document{}
	order := make([]string, 0, len(docs))

	for _, doc := range docs {
		name := doc.String("name")
		if name == "" {
			report.Errored++
			report.AddMessage(fmt.Sprintf("%s document %s has no name", entityType, doc.ID()))
			continue
		}

		existing, ok := byName[name]
		if !ok {
			byName[name] = doc
			order = append(order, name)
			continue
		}

		// Active wins over inactive; otherwise first encountered stands.
		winner := existing
		if docActive(doc) && !docActive(existing) {
			winner = doc
			byName[name] = doc
		}
		report.Skipped++
		m.logger.WithContext(ctx).WithFields(map[string]any{
			"entity_type": entityType,
			"name":        name,
			"kept":        winner.ID(),
		}).Warn("duplicate legacy reference name, keeping one")
	}

	sort.Strings(order)
	deduped := make([]legacy.Document, 0, len(order))
	for _, name := range order {
		deduped = append(deduped, byName[name])
	}
	return deduped
}

// docActive reads a legacy active flag, defaulting to true when the field
// is absent. Older documents predate the flag.
func docActive(doc legacy.Document) bool {
	if v, ok := doc["active"].(bool); ok {
		return v
	}
	return true
}
