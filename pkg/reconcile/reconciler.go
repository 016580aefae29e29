// Package reconcile detects new-store records missing after dual-write
// failures and heals them by replaying the batch migrator's phase logic.
// Detection is a presence set difference per entity type, not a field-level
// diff; drift inspection belongs to the verification suite.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/neerajsamtani/ledgershift/internal/repositories/account"
	"github.com/neerajsamtani/ledgershift/internal/repositories/event"
	"github.com/neerajsamtani/ledgershift/internal/repositories/lineitem"
	"github.com/neerajsamtani/ledgershift/internal/repositories/reference"
	"github.com/neerajsamtani/ledgershift/internal/repositories/transaction"
	"github.com/neerajsamtani/ledgershift/internal/repositories/user"
	"github.com/neerajsamtani/ledgershift/pkg/events"
	"github.com/neerajsamtani/ledgershift/pkg/legacy"
	"github.com/neerajsamtani/ledgershift/pkg/migration"
	"github.com/neerajsamtani/ledgershift/pkg/models"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
)

// LegacyStore is the slice of the legacy store the reconciler reads.
type LegacyStore interface {
	ListIDs(ctx context.Context, collection string) ([]string, error)
}

// Reconciler computes per-entity-type presence gaps between the stores and
// repairs them by re-running the owning migration phase. Phases are
// idempotent skip-if-exists, so a re-run touches exactly the missing
// records. Safe to run concurrently with live dual-writes: a race on the
// same record is resolved by the new store's uniqueness constraints.
type Reconciler struct {
	legacy   LegacyStore
	logger   ectologger.Logger
	emitter  *events.Emitter
	migrator *migration.Migrator

	refRepos  map[models.EntityType]*reference.Repository
	txnRepo   *transaction.Repository
	liRepo    *lineitem.Repository
	eventRepo *event.Repository
	acctRepo  *account.Repository
	userRepo  *user.Repository
}

type ReconcilerParams struct {
	Legacy          LegacyStore
	Logger          ectologger.Logger
	Emitter         *events.Emitter
	Migrator        *migration.Migrator
	ReferenceRepos  map[models.EntityType]*reference.Repository
	TransactionRepo *transaction.Repository
	LineItemRepo    *lineitem.Repository
	EventRepo       *event.Repository
	AccountRepo     *account.Repository
	UserRepo        *user.Repository
}

func NewReconciler(params ReconcilerParams) *Reconciler {
	return &Reconciler{
		legacy:    params.Legacy,
		logger:    params.Logger,
		emitter:   params.Emitter,
		migrator:  params.Migrator,
		refRepos:  params.ReferenceRepos,
		txnRepo:   params.TransactionRepo,
		liRepo:    params.LineItemRepo,
		eventRepo: params.EventRepo,
		acctRepo:  params.AccountRepo,
		userRepo:  params.UserRepo,
	}
}

// entityGap is one entity type's presence difference and the phase that
// owns its creation logic.
type entityGap struct {
	entityType models.EntityType
	phase      string
	missing    []string
}

// Run computes the presence gaps and, unless dryRun, heals them. The
// report enumerates what is missing per entity type; after a heal the
// gaps are recomputed so Synced reflects records actually repaired.
func (r *Reconciler) Run(ctx context.Context, dryRun bool) (*models.ReconciliationReport, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Reconciler.Run")
	defer span.End()

	report := &models.ReconciliationReport{DryRun: dryRun, StartedAt: time.Now().UTC()}

	gaps, err := r.computeGaps(ctx)
	if err != nil {
		return nil, err
	}

	if dryRun {
		for _, gap := range gaps {
			report.Entities = append(report.Entities, models.EntityReconciliation{
				EntityType: string(gap.entityType),
				Missing:    len(gap.missing),
				LegacyIDs:  gap.missing,
			})
		}
		report.FinishedAt = time.Now().UTC()
		r.logger.WithContext(ctx).WithFields(map[string]any{
			"missing": report.TotalMissing(),
		}).Info("reconciliation dry run finished")
		return report, nil
	}

	phasesToRun := map[string]bool{}
	for _, gap := range gaps {
		if len(gap.missing) > 0 {
			phasesToRun[gap.phase] = true
		}
	}

	for _, phase := range migration.Phases {
		if !phasesToRun[phase] {
			continue
		}
		if _, err := r.migrator.RunPhase(ctx, phase); err != nil {
			return nil, fmt.Errorf("reconciliation replay of %s phase failed: %w", phase, err)
		}
	}

	after, err := r.computeGaps(ctx)
	if err != nil {
		return nil, err
	}
	remaining := map[models.EntityType][]string{}
	for _, gap := range after {
		remaining[gap.entityType] = gap.missing
	}

	for _, gap := range gaps {
		left := remaining[gap.entityType]
		entry := models.EntityReconciliation{
			EntityType: string(gap.entityType),
			Missing:    len(gap.missing),
			Synced:     len(gap.missing) - len(left),
			Errored:    len(left),
			LegacyIDs:  left,
		}
		if entry.Synced < 0 {
			entry.Synced = 0
		}
		report.Entities = append(report.Entities, entry)
	}

	report.FinishedAt = time.Now().UTC()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"missing": report.TotalMissing(),
		"synced":  report.TotalSynced(),
	}).Info("reconciliation finished")

	if err := r.emitter.EmitReconcileCompleted(ctx, report); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("failed to emit reconciliation event")
	}

	return report, nil
}

// computeGaps lists legacy ids per entity type and subtracts the ids the
// new store already carries.
func (r *Reconciler) computeGaps(ctx context.Context) ([]entityGap, error) {
	gaps := make([]entityGap, 0, len(models.ReferenceEntityTypes)+5)

	for _, entityType := range models.ReferenceEntityTypes {
		repo, ok := r.refRepos[entityType]
		if !ok {
			return nil, fmt.Errorf("no %s repository registered", entityType)
		}
		missing, err := r.gapFor(ctx, entityType.Table(), repo.ListLegacyIDs)
		if err != nil {
			return nil, err
		}
		gaps = append(gaps, entityGap{entityType: entityType, phase: migration.PhaseReference, missing: missing})
	}

	txnMissing := make([]string, 0)
	for _, source := range models.RawSources {
		missing, err := r.gapFor(ctx, legacy.RawCollectionFor(source), func(ctx context.Context) ([]string, error) {
			return r.txnRepo.ListLegacyIDs(ctx, source)
		})
		if err != nil {
			return nil, err
		}
		txnMissing = append(txnMissing, missing...)
	}
	sort.Strings(txnMissing)
	gaps = append(gaps, entityGap{entityType: models.EntityTransaction, phase: migration.PhaseTransactions, missing: txnMissing})

	liMissing, err := r.gapFor(ctx, legacy.CollectionLineItems, r.liRepo.ListLegacyIDs)
	if err != nil {
		return nil, err
	}
	gaps = append(gaps, entityGap{entityType: models.EntityLineItem, phase: migration.PhaseLineItems, missing: liMissing})

	evtMissing, err := r.gapFor(ctx, legacy.CollectionEvents, r.eventRepo.ListLegacyIDs)
	if err != nil {
		return nil, err
	}
	gaps = append(gaps, entityGap{entityType: models.EntityEvent, phase: migration.PhaseRelationships, missing: evtMissing})

	acctMissing, err := r.gapFor(ctx, legacy.CollectionAccounts, r.acctRepo.ListLegacyIDs)
	if err != nil {
		return nil, err
	}
	gaps = append(gaps, entityGap{entityType: models.EntityAccount, phase: migration.PhaseAuxiliary, missing: acctMissing})

	userMissing, err := r.gapFor(ctx, legacy.CollectionUsers, r.userRepo.ListLegacyIDs)
	if err != nil {
		return nil, err
	}
	gaps = append(gaps, entityGap{entityType: models.EntityUser, phase: migration.PhaseAuxiliary, missing: userMissing})

	return gaps, nil
}

func (r *Reconciler) gapFor(ctx context.Context, collection string, listNew func(ctx context.Context) ([]string, error)) ([]string, error) {
	legacyIDs, err := r.legacy.ListIDs(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list legacy ids for %s: %w", collection, err)
	}

	newIDs, err := listNew(ctx)
	if err != nil {
		return nil, err
	}

	present := make(map[string]struct{}, len(newIDs))
	for _, id := range newIDs {
		present[id] = struct{}{}
	}

	missing := make([]string, 0)
	for _, id := range legacyIDs {
		id = legacy.NormalizeID(id)
		if id == "" {
			continue
		}
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing, nil
}
