// Package transaction persists raw ingested transactions, unique on
// (source, source_id).
package transaction

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/neerajsamtani/ledgershift/pkg/database"
	"github.com/neerajsamtani/ledgershift/pkg/identifier"
	"github.com/neerajsamtani/ledgershift/pkg/models"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
)

const tableName = "transactions"

var columns = []string{"id", "source", "source_id", "occurred_at", "payload", "legacy_id", "created_at"}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

func (r *Repository) DB() database.DB {
	return r.db
}

// Create inserts a transaction. Duplicate (source, source_id) surfaces as
// the driver's unique violation.
func (r *Repository) Create(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	ctx, span := tracing.StartSpan(ctx, "transaction.Repository.Create")
	defer span.End()

	if txn.ID == "" {
		txn.ID = identifier.New(identifier.PrefixTransaction)
	}
	txn.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(txn.ID, txn.Source, txn.SourceID, txn.OccurredAt, []byte(txn.Payload), txn.LegacyID, txn.CreatedAt)

	query, args := sb.Build()
	if _, err := database.Reader(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source":    txn.Source,
			"source_id": txn.SourceID,
		}).Error("failed to create transaction")
		return nil, err
	}

	return txn, nil
}

// GetByID gets a transaction by primary key. Returns nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	return r.getWhere(ctx, "id", id)
}

// GetByLegacyID gets a transaction by its legacy raw-record id. Returns nil
// when absent.
func (r *Repository) GetByLegacyID(ctx context.Context, legacyID string) (*models.Transaction, error) {
	return r.getWhere(ctx, "legacy_id", legacyID)
}

func (r *Repository) getWhere(ctx context.Context, column, value string) (*models.Transaction, error) {
	ctx, span := tracing.StartSpan(ctx, "transaction.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal(column, value))

	query, args := sb.Build()

	var txn models.Transaction
	err := database.Reader(ctx, r.db).GetContext(ctx, &txn, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get transaction")
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &txn, nil
}

// GetBySourceID gets a transaction by its natural key. Returns nil when
// absent.
func (r *Repository) GetBySourceID(ctx context.Context, source, sourceID string) (*models.Transaction, error) {
	ctx, span := tracing.StartSpan(ctx, "transaction.Repository.GetBySourceID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("source", source), sb.Equal("source_id", sourceID))

	query, args := sb.Build()

	var txn models.Transaction
	err := database.Reader(ctx, r.db).GetContext(ctx, &txn, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"source":    source,
			"source_id": sourceID,
		}).Error("failed to get transaction by source id")
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return &txn, nil
}

// List returns every transaction for a source, ordered by occurrence.
func (r *Repository) List(ctx context.Context, source string) ([]models.Transaction, error) {
	ctx, span := tracing.StartSpan(ctx, "transaction.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	if source != "" {
		sb.Where(sb.Equal("source", source))
	}
	sb.OrderBy("occurred_at", "id")

	query, args := sb.Build()

	var txns []models.Transaction
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &txns, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list transactions")
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return txns, nil
}

// Count returns the row count, optionally scoped to one source.
func (r *Repository) Count(ctx context.Context, source string) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "transaction.Repository.Count")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(*)")
	sb.From(tableName)
	if source != "" {
		sb.Where(sb.Equal("source", source))
	}

	query, args := sb.Build()

	var count int64
	if err := database.Reader(ctx, r.db).GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	return count, nil
}

// ListLegacyIDs returns the legacy ids of migrated transactions for one
// source, for reconciliation set differences.
func (r *Repository) ListLegacyIDs(ctx context.Context, source string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "transaction.Repository.ListLegacyIDs")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("legacy_id")
	sb.From(tableName)
	sb.Where(sb.IsNotNull("legacy_id"))
	if source != "" {
		sb.Where(sb.Equal("source", source))
	}

	query, args := sb.Build()

	var ids []string
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list transaction legacy ids: %w", err)
	}

	return ids, nil
}

// MapEntries returns "source:source_id" -> id for every migrated
// transaction, used to rebuild the id map without re-running the phase.
func (r *Repository) MapEntries(ctx context.Context) (map[string]string, error) {
	ctx, span := tracing.StartSpan(ctx, "transaction.Repository.MapEntries")
	defer span.End()

	type row struct {
		ID       string `db:"id"`
		Source   string `db:"source"`
		SourceID string `db:"source_id"`
	}

	var rows []row
	query := "SELECT id, source, source_id FROM transactions"
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load transaction map entries: %w", err)
	}

	entries := make(map[string]string, len(rows))
	for _, rw := range rows {
		entries[rw.Source+":"+rw.SourceID] = rw.ID
	}

	return entries, nil
}

// Delete removes a transaction by primary key. Owned line items cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "transaction.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	if _, err := database.Reader(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("failed to delete transaction")
		return fmt.Errorf("failed to delete transaction: %w", err)
	}

	return nil
}
