// Package migration implements the phased batch migrator that bulk-copies
// historical data from the legacy store into the new store in dependency
// order. Every phase is idempotent and safely re-runnable against
// partially migrated data.
package migration

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/neerajsamtani/ledgershift/internal/repositories/account"
	"github.com/neerajsamtani/ledgershift/internal/repositories/event"
	"github.com/neerajsamtani/ledgershift/internal/repositories/lineitem"
	"github.com/neerajsamtani/ledgershift/internal/repositories/reference"
	"github.com/neerajsamtani/ledgershift/internal/repositories/transaction"
	"github.com/neerajsamtani/ledgershift/internal/repositories/user"
	"github.com/neerajsamtani/ledgershift/pkg/database"
	"github.com/neerajsamtani/ledgershift/pkg/events"
	"github.com/neerajsamtani/ledgershift/pkg/legacy"
	"github.com/neerajsamtani/ledgershift/pkg/models"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
)

// Phase names, in dependency order.
const (
	PhaseReference     = "reference"
	PhaseTransactions  = "transactions"
	PhaseLineItems     = "line_items"
	PhaseRelationships = "relationships"
	PhaseAuxiliary     = "auxiliary"
)

// Phases lists every phase in run order.
var Phases = []string{
	PhaseReference,
	PhaseTransactions,
	PhaseLineItems,
	PhaseRelationships,
	PhaseAuxiliary,
}

// LegacyStore is the slice of the legacy store the migrator reads.
type LegacyStore interface {
	ListAll(ctx context.Context, collection string) ([]legacy.Document, error)
}

// Migrator runs the batch phases. Phases run single-threaded; safety
// against live dual-writes rests on the new store's uniqueness
// constraints.
type Migrator struct {
	db        database.DB
	legacy    LegacyStore
	logger    ectologger.Logger
	emitter   *events.Emitter
	batchSize int
	mapPath   string

	refRepos  map[models.EntityType]*reference.Repository
	txnRepo   *transaction.Repository
	liRepo    *lineitem.Repository
	eventRepo *event.Repository
	acctRepo  *account.Repository
	userRepo  *user.Repository
}

type MigratorParams struct {
	DB              database.DB
	Legacy          LegacyStore
	Logger          ectologger.Logger
	Emitter         *events.Emitter
	BatchSize       int
	MapPath         string
	ReferenceRepos  map[models.EntityType]*reference.Repository
	TransactionRepo *transaction.Repository
	LineItemRepo    *lineitem.Repository
	EventRepo       *event.Repository
	AccountRepo     *account.Repository
	UserRepo        *user.Repository
}

func NewMigrator(params MigratorParams) *Migrator {
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Migrator{
		db:        params.DB,
		legacy:    params.Legacy,
		logger:    params.Logger,
		emitter:   params.Emitter,
		batchSize: batchSize,
		mapPath:   params.MapPath,
		refRepos:  params.ReferenceRepos,
		txnRepo:   params.TransactionRepo,
		liRepo:    params.LineItemRepo,
		eventRepo: params.EventRepo,
		acctRepo:  params.AccountRepo,
		userRepo:  params.UserRepo,
	}
}

// RunPhase executes one named phase and returns its report. Unknown phase
// names are an error, not a no-op.
func (m *Migrator) RunPhase(ctx context.Context, phase string) (*models.PhaseReport, error) {
	ctx, span := tracing.StartSpan(ctx, "migration.Migrator.RunPhase")
	defer span.End()

	report := &models.PhaseReport{Phase: phase, StartedAt: time.Now().UTC()}

	log := m.logger.WithContext(ctx).WithFields(map[string]any{"phase": phase})
	log.Info("starting migration phase")

	var err error
	switch phase {
	case PhaseReference:
		err = m.runReferencePhase(ctx, report)
	case PhaseTransactions:
		err = m.runTransactionPhase(ctx, report)
	case PhaseLineItems:
		err = m.runLineItemPhase(ctx, report)
	case PhaseRelationships:
		err = m.runRelationshipPhase(ctx, report)
	case PhaseAuxiliary:
		err = m.runAuxiliaryPhase(ctx, report)
	default:
		return nil, fmt.Errorf("unknown migration phase %q", phase)
	}

	report.FinishedAt = time.Now().UTC()

	if err != nil {
		log.WithError(err).Error("migration phase failed")
		return report, err
	}

	log.WithFields(map[string]any{
		"migrated": report.Migrated,
		"skipped":  report.Skipped,
		"errored":  report.Errored,
	}).Info("migration phase finished")

	if emitErr := m.emitter.EmitPhaseCompleted(ctx, report); emitErr != nil {
		log.WithError(emitErr).Warn("failed to emit phase completion event")
	}

	return report, nil
}

// RunAll executes every phase in dependency order, stopping at the first
// phase-level failure.
func (m *Migrator) RunAll(ctx context.Context) ([]*models.PhaseReport, error) {
	reports := make([]*models.PhaseReport, 0, len(Phases))
	for _, phase := range Phases {
		report, err := m.RunPhase(ctx, phase)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}
