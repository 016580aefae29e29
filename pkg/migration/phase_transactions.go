package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neerajsamtani/ledgershift/pkg/legacy"
	"github.com/neerajsamtani/ledgershift/pkg/models"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
)

// runTransactionPhase copies every raw legacy transaction per source,
// embedding the original document verbatim for audit. Inserts commit in
// bounded batches; a mid-batch failure rolls back only the current batch.
// The legacy-id -> new-id map is persisted after every committed batch so
// the line-item phase can consume it from a separate process.
func (m *Migrator) runTransactionPhase(ctx context.Context, report *models.PhaseReport) error {
	ctx, span := tracing.StartSpan(ctx, "migration.Migrator.runTransactionPhase")
	defer span.End()

	mapFile, err := LoadMapFile(m.mapPath)
	if err != nil {
		// First run: start a fresh map.
		mapFile = NewMapFile(m.mapPath)
	}

	for _, source := range models.RawSources {
		collection := legacy.RawCollectionFor(source)

		docs, err := m.legacy.ListAll(ctx, collection)
		if err != nil {
			return fmt.Errorf("failed to list legacy %s: %w", collection, err)
		}

		for start := 0; start < len(docs); start += m.batchSize {
			end := start + m.batchSize
			if end > len(docs) {
				end = len(docs)
			}

			if err := m.migrateTransactionBatch(ctx, source, docs[start:end], mapFile, report); err != nil {
				if saveErr := mapFile.Save(); saveErr != nil {
					m.logger.WithContext(ctx).WithError(saveErr).Error("failed to save transaction id map")
				}
				return fmt.Errorf("transaction batch for %s failed: %w", source, err)
			}

			if err := mapFile.Save(); err != nil {
				return fmt.Errorf("failed to save transaction id map: %w", err)
			}
		}
	}

	report.AddMessage(fmt.Sprintf("id map has %d entries at %s", mapFile.Len(), m.mapPath))
	return nil
}

func (m *Migrator) migrateTransactionBatch(ctx context.Context, source string, docs []legacy.Document, mapFile *MapFile, report *models.PhaseReport) error {
	ctx, tx, err := m.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doc := range docs {
		legacyID := doc.ID()
		if legacyID == "" {
			report.Errored++
			report.AddMessage(fmt.Sprintf("%s document with no id skipped", source))
			continue
		}

		key := source + ":" + legacyID

		existing, err := m.txnRepo.GetBySourceID(ctx, source, legacyID)
		if err != nil {
			return err
		}
		if existing != nil {
			mapFile.Put(key, existing.ID)
			report.Skipped++
			continue
		}

		payload, err := json.Marshal(doc)
		if err != nil {
			report.Errored++
			report.AddMessage(fmt.Sprintf("%s %s: payload not serializable: %v", source, legacyID, err))
			continue
		}

		txn := &models.Transaction{
			Source:     source,
			SourceID:   legacyID,
			OccurredAt: extractOccurredAt(source, doc),
			Payload:    payload,
			LegacyID:   &legacyID,
		}

		created, err := m.txnRepo.Create(ctx, txn)
		if err != nil {
			return err
		}

		mapFile.Put(key, created.ID)
		report.Migrated++

		if err := m.emitter.EmitRecordMigrated(ctx, models.EntityTransaction, created.ID, legacyID); err != nil {
			m.logger.WithContext(ctx).WithError(err).Warn("failed to emit record.migrated event")
		}
	}

	return tx.Commit(ctx)
}

// extractOccurredAt pulls the source-specific timestamp out of a raw
// document. Venmo stamps date_created, Stripe a unix created, Splitwise
// and cash entries a date field.
func extractOccurredAt(source string, doc legacy.Document) time.Time {
	switch source {
	case models.SourceVenmo:
		return doc.Time("date_created")
	case models.SourceSplitwise:
		return doc.Time("date")
	case models.SourceStripe:
		return doc.Time("created")
	case models.SourceCash:
		return doc.Time("date")
	}
	return time.Time{}
}
