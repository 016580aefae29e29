package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/neerajsamtani/ledgershift/pkg/legacy"
	"github.com/neerajsamtani/ledgershift/pkg/models"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
)

const lineItemIDPrefix = "line_item_"

// lineItemResolver carries the per-run lookup state for the line-item
// phase: reference name -> id maps and the lazily created "Unknown"
// payment method sentinel.
type lineItemResolver struct {
	paymentMethods map[string]string
	parties        map[string]string
	sentinelID     string
}

// runLineItemPhase copies legacy line items, resolving each one's owning
// transaction through the id map written by the transaction phase. A line
// item whose owner cannot be resolved gets a synthetic "manual"
// transaction, created at most once per legacy line item.
func (m *Migrator) runLineItemPhase(ctx context.Context, report *models.PhaseReport) error {
	ctx, span := tracing.StartSpan(ctx, "migration.Migrator.runLineItemPhase")
	defer span.End()

	// The map file is required. Running this phase without it would treat
	// every line item as unresolved and synthesize manual owners en masse.
	mapFile, err := LoadMapFile(m.mapPath)
	if err != nil {
		return fmt.Errorf("transaction id map at %s is required, run the transactions phase first: %w", m.mapPath, err)
	}

	docs, err := m.legacy.ListAll(ctx, legacy.CollectionLineItems)
	if err != nil {
		return fmt.Errorf("failed to list legacy line items: %w", err)
	}

	resolver, err := m.newLineItemResolver(ctx)
	if err != nil {
		return err
	}

	for start := 0; start < len(docs); start += m.batchSize {
		end := start + m.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := m.migrateLineItemBatch(ctx, docs[start:end], mapFile, resolver, report); err != nil {
			return fmt.Errorf("line item batch failed: %w", err)
		}
	}

	return nil
}

func (m *Migrator) newLineItemResolver(ctx context.Context) (*lineItemResolver, error) {
	resolver := &lineItemResolver{
		paymentMethods: map[string]string{},
		parties:        map[string]string{},
	}

	pmRepo, ok := m.refRepos[models.EntityPaymentMethod]
	if !ok {
		return nil, fmt.Errorf("no payment method repository registered")
	}
	methods, err := pmRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, method := range methods {
		resolver.paymentMethods[method.Name] = method.ID
		if method.Name == models.UnknownPaymentMethodName {
			resolver.sentinelID = method.ID
		}
	}

	if partyRepo, ok := m.refRepos[models.EntityParty]; ok {
		parties, err := partyRepo.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, party := range parties {
			resolver.parties[party.Name] = party.ID
		}
	}

	return resolver, nil
}

func (m *Migrator) migrateLineItemBatch(ctx context.Context, docs []legacy.Document, mapFile *MapFile, resolver *lineItemResolver, report *models.PhaseReport) error {
	ctx, tx, err := m.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, doc := range docs {
		legacyID := doc.ID()
		if legacyID == "" {
			report.Errored++
			report.AddMessage("line item document with no id skipped")
			continue
		}

		existing, err := m.liRepo.GetByLegacyID(ctx, legacyID)
		if err != nil {
			return err
		}
		if existing != nil {
			report.Skipped++
			continue
		}

		transactionID, err := m.resolveOwnerTransaction(ctx, legacyID, doc, mapFile, report)
		if err != nil {
			return err
		}

		paymentMethodID, err := m.resolvePaymentMethod(ctx, doc.String("payment_method"), resolver)
		if err != nil {
			return err
		}

		li := &models.LineItem{
			LegacyID:        &legacyID,
			TransactionID:   transactionID,
			PaymentMethodID: &paymentMethodID,
			OccurredAt:      doc.Time("date"),
			Description:     doc.String("description"),
			Amount:          doc.Float("amount"),
		}
		if partyID, ok := resolver.parties[doc.String("responsible_party")]; ok {
			li.PartyID = &partyID
		}

		created, err := m.liRepo.Create(ctx, li)
		if err != nil {
			return err
		}
		report.Migrated++

		if err := m.emitter.EmitRecordMigrated(ctx, models.EntityLineItem, created.ID, legacyID); err != nil {
			m.logger.WithContext(ctx).WithError(err).Warn("failed to emit record.migrated event")
		}
	}

	return tx.Commit(ctx)
}

// resolveOwnerTransaction maps a line item's legacy id to its owning
// transaction. Legacy line item ids embed the source transaction's raw id
// (line_item_<raw tx id>); the raw id is looked up in the phase-2 map,
// then against live-written transactions by legacy id. When neither
// resolves, a manual transaction is synthesized with source_id
// manual_<raw tx id> so re-runs converge on the same owner.
func (m *Migrator) resolveOwnerTransaction(ctx context.Context, legacyID string, doc legacy.Document, mapFile *MapFile, report *models.PhaseReport) (string, error) {
	suffix := strings.TrimPrefix(legacyID, lineItemIDPrefix)

	for _, source := range models.RawSources {
		if id, ok := mapFile.Get(source + ":" + suffix); ok {
			return id, nil
		}
	}

	// Transactions created by live dual-writes carry the raw legacy id
	// but never appear in the phase-2 map.
	if owner, err := m.txnRepo.GetByLegacyID(ctx, suffix); err != nil {
		return "", err
	} else if owner != nil {
		return owner.ID, nil
	}

	manualSourceID := "manual_" + suffix
	if owner, err := m.txnRepo.GetBySourceID(ctx, models.SourceManual, manualSourceID); err != nil {
		return "", err
	} else if owner != nil {
		return owner.ID, nil
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		payload = []byte("{}")
	}
	owner, err := m.txnRepo.Create(ctx, &models.Transaction{
		Source:     models.SourceManual,
		SourceID:   manualSourceID,
		OccurredAt: doc.Time("date"),
		Payload:    payload,
	})
	if err != nil {
		return "", err
	}

	report.AddMessage(fmt.Sprintf("synthesized manual transaction %s for line item %s", owner.ID, legacyID))
	m.logger.WithContext(ctx).WithFields(map[string]any{
		"line_item_legacy_id": legacyID,
		"transaction_id":      owner.ID,
	}).Warn("no source transaction resolvable, synthesized manual owner")

	return owner.ID, nil
}

func (m *Migrator) resolvePaymentMethod(ctx context.Context, name string, resolver *lineItemResolver) (string, error) {
	if name != "" {
		if id, ok := resolver.paymentMethods[name]; ok {
			return id, nil
		}
	}

	if resolver.sentinelID == "" {
		pmRepo := m.refRepos[models.EntityPaymentMethod]
		sentinel, _, err := pmRepo.Upsert(ctx, &models.Reference{
			Name:   models.UnknownPaymentMethodName,
			Active: true,
		})
		if err != nil {
			return "", err
		}
		resolver.sentinelID = sentinel.ID
	}
	return resolver.sentinelID, nil
}
