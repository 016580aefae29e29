// Package events handles event emission for migration lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/neerajsamtani/ledgershift/pkg/kafka"
	"github.com/neerajsamtani/ledgershift/pkg/models"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes migration lifecycle events. A nil *Emitter is a valid
// no-op, so callers never branch on whether Kafka is configured.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitRecordMigrated emits a record.migrated event
func (e *Emitter) EmitRecordMigrated(ctx context.Context, entityType models.EntityType, entityID, legacyID string) error {
	if e == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRecordMigrated")
	defer span.End()

	event := &kafka.MigrationEvent{
		EventType:  "record.migrated",
		EntityType: entityType.String(),
		EntityID:   entityID,
		LegacyID:   legacyID,
	}

	if err := e.producer.PublishMigrationEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit record.migrated event")
		return err
	}

	return nil
}

// EmitDualWriteFailed emits a dualwrite.failed event
func (e *Emitter) EmitDualWriteFailed(ctx context.Context, failure *models.DualWriteFailure) error {
	if e == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDualWriteFailed")
	defer span.End()

	data := map[string]any{
		"schema_version": SchemaVersion,
		"failure_id":     failure.ID,
		"error":          failure.Error,
	}
	dataJSON, _ := json.Marshal(data)

	legacyID := ""
	if failure.LegacyID != nil {
		legacyID = *failure.LegacyID
	}

	event := &kafka.MigrationEvent{
		EventType:  "dualwrite.failed",
		EntityType: failure.EntityType,
		LegacyID:   legacyID,
		Operation:  failure.Operation,
		Data:       dataJSON,
	}

	if err := e.producer.PublishMigrationEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit dualwrite.failed event")
		return err
	}

	return nil
}

// EmitPhaseCompleted emits a phase.completed event carrying the phase report
func (e *Emitter) EmitPhaseCompleted(ctx context.Context, report *models.PhaseReport) error {
	if e == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPhaseCompleted")
	defer span.End()

	dataJSON, _ := json.Marshal(report)

	event := &kafka.MigrationEvent{
		EventType: "phase.completed",
		Operation: report.Phase,
		Data:      dataJSON,
	}

	if err := e.producer.PublishMigrationEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit phase.completed event")
		return err
	}

	return nil
}

// EmitReconcileCompleted emits a reconcile.completed event carrying the report
func (e *Emitter) EmitReconcileCompleted(ctx context.Context, report *models.ReconciliationReport) error {
	if e == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitReconcileCompleted")
	defer span.End()

	dataJSON, _ := json.Marshal(report)

	event := &kafka.MigrationEvent{
		EventType: "reconcile.completed",
		Data:      dataJSON,
	}

	if err := e.producer.PublishMigrationEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit reconcile.completed event")
		return err
	}

	return nil
}
