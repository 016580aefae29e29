package migration

import (
	"context"
	"fmt"

	apperrors "github.com/neerajsamtani/ledgershift/pkg/errors"
	"github.com/neerajsamtani/ledgershift/pkg/legacy"
	"github.com/neerajsamtani/ledgershift/pkg/models"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
)

// runRelationshipPhase copies legacy events with their category, line-item,
// and tag links. Categories and line items are never synthesized here: an
// event referencing one that does not exist is a referential integrity
// error. Events are independent of each other, so failures are isolated
// per record instead of aborting the batch.
func (m *Migrator) runRelationshipPhase(ctx context.Context, report *models.PhaseReport) error {
	ctx, span := tracing.StartSpan(ctx, "migration.Migrator.runRelationshipPhase")
	defer span.End()

	docs, err := m.legacy.ListAll(ctx, legacy.CollectionEvents)
	if err != nil {
		return fmt.Errorf("failed to list legacy events: %w", err)
	}

	categories, err := m.referenceNameIndex(ctx, models.EntityCategory)
	if err != nil {
		return err
	}
	tags, err := m.referenceNameIndex(ctx, models.EntityTag)
	if err != nil {
		return err
	}
	lineItems, err := m.liRepo.LegacyIDToID(ctx)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		legacyID := doc.ID()
		if legacyID == "" {
			report.Errored++
			report.AddMessage("event document with no id skipped")
			continue
		}

		existing, err := m.eventRepo.GetByLegacyID(ctx, legacyID)
		if err != nil {
			return err
		}
		if existing != nil {
			report.Skipped++
			continue
		}

		if err := m.migrateEvent(ctx, legacyID, doc, categories, tags, lineItems); err != nil {
			report.Errored++
			report.AddMessage(fmt.Sprintf("event %s: %v", legacyID, err))
			m.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"legacy_id": legacyID,
			}).Error("failed to migrate event")
			continue
		}
		report.Migrated++
	}

	return nil
}

func (m *Migrator) migrateEvent(ctx context.Context, legacyID string, doc legacy.Document, categories, tags, lineItems map[string]string) error {
	categoryName := doc.String("category")
	categoryID, ok := categories[categoryName]
	if !ok {
		return apperrors.NewReferentialIntegrityError(string(models.EntityEvent), legacyID, "category "+categoryName)
	}

	lineItemIDs := make([]string, 0)
	for _, raw := range doc.Strings("line_items") {
		liLegacyID := legacy.NormalizeID(raw)
		id, ok := lineItems[liLegacyID]
		if !ok {
			return apperrors.NewReferentialIntegrityError(string(models.EntityEvent), legacyID, "line item "+liLegacyID)
		}
		lineItemIDs = append(lineItemIDs, id)
	}

	// Unresolved tag names are dropped with a warning; only category and
	// line item references are hard failures.
	tagIDs := make([]string, 0)
	for _, name := range doc.Strings("tags") {
		id, ok := tags[name]
		if !ok {
			m.logger.WithContext(ctx).WithFields(map[string]any{
				"legacy_id": legacyID,
				"tag":       name,
			}).Warn("event references unknown tag, dropping")
			continue
		}
		tagIDs = append(tagIDs, id)
	}

	evt := &models.Event{
		LegacyID:    &legacyID,
		CategoryID:  categoryID,
		Description: doc.String("description"),
		OccurredAt:  doc.Time("date"),
		Amount:      doc.Float("amount"),
	}

	created, err := m.eventRepo.Create(ctx, evt, lineItemIDs, tagIDs)
	if err != nil {
		return err
	}

	if err := m.emitter.EmitRecordMigrated(ctx, models.EntityEvent, created.ID, legacyID); err != nil {
		m.logger.WithContext(ctx).WithError(err).Warn("failed to emit record.migrated event")
	}
	return nil
}

func (m *Migrator) referenceNameIndex(ctx context.Context, entityType models.EntityType) (map[string]string, error) {
	repo, ok := m.refRepos[entityType]
	if !ok {
		return nil, fmt.Errorf("no %s repository registered", entityType)
	}
	refs, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]string, len(refs))
	for _, ref := range refs {
		index[ref.Name] = ref.ID
	}
	return index, nil
}
