// Package dualwritefailure persists the audit records written when the
// new-store leg of a dual write fails.
package dualwritefailure

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/neerajsamtani/ledgershift/pkg/database"
	"github.com/neerajsamtani/ledgershift/pkg/identifier"
	"github.com/neerajsamtani/ledgershift/pkg/models"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
)

const tableName = "dual_write_failures"

var columns = []string{"id", "operation", "entity_type", "legacy_id", "error", "legacy_result", "occurred_at"}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Record writes a failure row. Never fails the caller's write path: an
// error here is logged and returned for the caller to log again, not to
// abort on.
func (r *Repository) Record(ctx context.Context, failure *models.DualWriteFailure) error {
	ctx, span := tracing.StartSpan(ctx, "dualwritefailure.Repository.Record")
	defer span.End()

	if failure.ID == "" {
		failure.ID = identifier.New(identifier.PrefixFailure)
	}
	if failure.OccurredAt.IsZero() {
		failure.OccurredAt = time.Now().UTC()
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(failure.ID, failure.Operation, failure.EntityType, failure.LegacyID, failure.Error, []byte(failure.LegacyResult), failure.OccurredAt)

	query, args := sb.Build()
	if _, err := database.Reader(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"operation":   failure.Operation,
			"entity_type": failure.EntityType,
		}).Error("failed to record dual-write failure")
		return fmt.Errorf("failed to record dual-write failure: %w", err)
	}

	return nil
}

// List returns failures for an entity type, newest first. An empty entity
// type returns everything.
func (r *Repository) List(ctx context.Context, entityType string) ([]models.DualWriteFailure, error) {
	ctx, span := tracing.StartSpan(ctx, "dualwritefailure.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	if entityType != "" {
		sb.Where(sb.Equal("entity_type", entityType))
	}
	sb.OrderBy("occurred_at DESC")

	query, args := sb.Build()

	var failures []models.DualWriteFailure
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &failures, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list dual-write failures")
		return nil, fmt.Errorf("failed to list dual-write failures: %w", err)
	}

	return failures, nil
}

// Count returns the total row count.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "dualwritefailure.Repository.Count")
	defer span.End()

	var count int64
	if err := database.Reader(ctx, r.db).GetContext(ctx, &count, "SELECT COUNT(*) FROM dual_write_failures"); err != nil {
		return 0, fmt.Errorf("failed to count dual-write failures: %w", err)
	}

	return count, nil
}
