package migration

import (
	"context"
	"fmt"

	"github.com/neerajsamtani/ledgershift/pkg/legacy"
	"github.com/neerajsamtani/ledgershift/pkg/models"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
)

// runAuxiliaryPhase upserts accounts and users by natural key. Both are
// low-volume, so no batching.
func (m *Migrator) runAuxiliaryPhase(ctx context.Context, report *models.PhaseReport) error {
	ctx, span := tracing.StartSpan(ctx, "migration.Migrator.runAuxiliaryPhase")
	defer span.End()

	if err := m.migrateAccounts(ctx, report); err != nil {
		return err
	}
	return m.migrateUsers(ctx, report)
}

func (m *Migrator) migrateAccounts(ctx context.Context, report *models.PhaseReport) error {
	docs, err := m.legacy.ListAll(ctx, legacy.CollectionAccounts)
	if err != nil {
		return fmt.Errorf("failed to list legacy accounts: %w", err)
	}

	for _, doc := range docs {
		name := doc.String("name")
		if name == "" {
			report.Errored++
			report.AddMessage(fmt.Sprintf("account document %s has no name", doc.ID()))
			continue
		}

		legacyID := doc.ID()
		acct := &models.Account{
			Name:        name,
			Institution: doc.String("institution"),
		}
		if legacyID != "" {
			acct.LegacyID = &legacyID
		}

		stored, inserted, err := m.acctRepo.Upsert(ctx, acct)
		if err != nil {
			report.Errored++
			report.AddMessage(fmt.Sprintf("account %q: %v", name, err))
			continue
		}
		if !inserted {
			report.Skipped++
			continue
		}
		report.Migrated++

		if err := m.emitter.EmitRecordMigrated(ctx, models.EntityAccount, stored.ID, legacyID); err != nil {
			m.logger.WithContext(ctx).WithError(err).Warn("failed to emit record.migrated event")
		}
	}
	return nil
}

func (m *Migrator) migrateUsers(ctx context.Context, report *models.PhaseReport) error {
	docs, err := m.legacy.ListAll(ctx, legacy.CollectionUsers)
	if err != nil {
		return fmt.Errorf("failed to list legacy users: %w", err)
	}

	for _, doc := range docs {
		username := doc.String("username")
		if username == "" {
			report.Errored++
			report.AddMessage(fmt.Sprintf("user document %s has no username", doc.ID()))
			continue
		}

		legacyID := doc.ID()
		u := &models.User{
			Username:        username,
			Email:           doc.String("email"),
			VenmoHandle:     doc.String("venmo_handle"),
			SplitwiseHandle: doc.String("splitwise_handle"),
		}
		if legacyID != "" {
			u.LegacyID = &legacyID
		}

		stored, inserted, err := m.userRepo.Upsert(ctx, u)
		if err != nil {
			report.Errored++
			report.AddMessage(fmt.Sprintf("user %q: %v", username, err))
			continue
		}
		if !inserted {
			report.Skipped++
			continue
		}
		report.Migrated++

		if err := m.emitter.EmitRecordMigrated(ctx, models.EntityUser, stored.ID, legacyID); err != nil {
			m.logger.WithContext(ctx).WithError(err).Warn("failed to emit record.migrated event")
		}
	}
	return nil
}
