// Package dualwrite wraps a logical write as "write legacy, then write
// new". The legacy store is authoritative during the migration window, so
// its failure always aborts; new-store failure severity is a per-entity
// policy.
package dualwrite

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/neerajsamtani/ledgershift/pkg/database"
	apperrors "github.com/neerajsamtani/ledgershift/pkg/errors"
	"github.com/neerajsamtani/ledgershift/pkg/models"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
)

// WriteFunc is the legacy leg of a dual write. The returned payload is
// carried on the Outcome so callers can inspect it.
type WriteFunc func(ctx context.Context) (any, error)

// NewWriteFunc is the new-store leg. It receives the legacy leg's result so
// it can stamp the generated legacy id onto the row it writes.
type NewWriteFunc func(ctx context.Context, legacyResult any) (any, error)

// Outcome reports both legs of a dual write explicitly. Success is the
// overall verdict after policy: a failed non-critical new-store leg still
// reports Success=true while carrying NewErr for inspection.
type Outcome struct {
	Operation    string
	Critical     bool
	Success      bool
	LegacyResult any
	LegacyErr    error
	NewResult    any
	NewErr       error
}

// FailureRecorder persists the audit record for a failed new-store leg.
type FailureRecorder interface {
	Record(ctx context.Context, failure *models.DualWriteFailure) error
}

// FailureEmitter publishes the failure to the event stream.
type FailureEmitter interface {
	EmitDualWriteFailed(ctx context.Context, failure *models.DualWriteFailure) error
}

// Coordinator executes dual writes. The new-store leg runs inside a single
// transaction; any error rolls the whole leg back.
type Coordinator struct {
	db       database.DB
	failures FailureRecorder
	emitter  FailureEmitter
	logger   ectologger.Logger
}

func NewCoordinator(db database.DB, failures FailureRecorder, emitter FailureEmitter, logger ectologger.Logger) *Coordinator {
	return &Coordinator{
		db:       db,
		failures: failures,
		emitter:  emitter,
		logger:   logger,
	}
}

// Execute runs the legacy leg, then the new-store leg in one transaction.
// A legacy failure aborts before the new store is touched and surfaces as
// a PrimaryWriteFailure. A new-store failure is recorded for
// reconciliation; whether it also fails the caller depends on critical.
func (c *Coordinator) Execute(ctx context.Context, operation string, entityType models.EntityType, legacyID string, critical bool, writeLegacy WriteFunc, writeNew NewWriteFunc) (*Outcome, error) {
	ctx, span := tracing.StartSpan(ctx, "dualwrite.Coordinator.Execute")
	defer span.End()

	outcome := &Outcome{Operation: operation, Critical: critical}

	log := c.logger.WithContext(ctx).WithFields(map[string]any{
		"operation":   operation,
		"entity_type": entityType,
		"critical":    critical,
	})

	legacyResult, err := writeLegacy(ctx)
	outcome.LegacyResult = legacyResult
	if err != nil {
		outcome.LegacyErr = err
		log.WithError(err).Error("legacy write failed, aborting dual write")
		return outcome, apperrors.NewPrimaryWriteFailure(operation, err)
	}

	outcome.NewResult, outcome.NewErr = c.writeNewStore(ctx, writeNew, legacyResult)
	if outcome.NewErr == nil {
		outcome.Success = true
		return outcome, nil
	}

	c.recordFailure(ctx, operation, entityType, legacyID, legacyResult, outcome.NewErr)

	if critical {
		log.WithError(outcome.NewErr).Error("critical new-store write failed")
		return outcome, apperrors.NewSecondaryWriteFailure(operation, true, outcome.NewErr)
	}

	// Authoritative legacy write stands; reconciliation heals the drift.
	log.WithError(outcome.NewErr).Warn("non-critical new-store write failed, continuing")
	outcome.Success = true
	return outcome, nil
}

func (c *Coordinator) writeNewStore(ctx context.Context, writeNew NewWriteFunc, legacyResult any) (any, error) {
	ctx, tx, err := c.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	result, err := writeNew(ctx, legacyResult)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return result, nil
}

func (c *Coordinator) recordFailure(ctx context.Context, operation string, entityType models.EntityType, legacyID string, legacyResult any, writeErr error) {
	failure := &models.DualWriteFailure{
		Operation:  operation,
		EntityType: entityType.String(),
		Error:      writeErr.Error(),
	}
	if legacyID != "" {
		failure.LegacyID = &legacyID
	}
	if legacyResult != nil {
		if data, err := json.Marshal(legacyResult); err == nil {
			failure.LegacyResult = data
		}
	}

	// Audit record and event are best effort; the write path never fails
	// because its failure could not be recorded.
	if c.failures != nil {
		if err := c.failures.Record(ctx, failure); err != nil {
			c.logger.WithContext(ctx).WithError(err).Error("failed to persist dual-write failure record")
		}
	}
	if c.emitter != nil {
		if err := c.emitter.EmitDualWriteFailed(ctx, failure); err != nil {
			c.logger.WithContext(ctx).WithError(err).Error("failed to emit dual-write failure event")
		}
	}
}
