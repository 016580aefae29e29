// Package lineitem persists normalized monetary lines. Every line item
// belongs to a transaction; deleting the transaction cascades here.
package lineitem

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

const tableName = "line_items"

var columns = []string{"id", "legacy_id", "transaction_id", "payment_method_id", "party_id", "occurred_at", "description", "amount", "created_at"}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Create inserts a line item. Duplicate legacy ids surface as the driver's
// unique violation.
func (r *Repository) Create(ctx context.Context, li *models.LineItem) (*models.LineItem, error) {
	ctx, span := tracing.StartSpan(ctx, "lineitem.Repository.Create")
	defer span.End()

	if li.ID == "" {
		li.ID = identifier.New(identifier.PrefixLineItem)
	}
	li.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(li.ID, li.LegacyID, li.TransactionID, li.PaymentMethodID, li.PartyID, li.OccurredAt, li.Description, li.Amount, li.CreatedAt)

	query, args := sb.Build()
	if _, err := database.Reader(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"transaction_id": li.TransactionID,
		}).Error("failed to create line item")
		return nil, err
	}

	return li, nil
}

// GetByID gets a line item by primary key. Returns nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.LineItem, error) {
	return r.getWhere(ctx, "id", id)
}

// GetByLegacyID gets a line item by its legacy id. Returns nil when absent.
func (r *Repository) GetByLegacyID(ctx context.Context, legacyID string) (*models.LineItem, error) {
	return r.getWhere(ctx, "legacy_id", legacyID)
}

func (r *Repository) getWhere(ctx context.Context, column, value string) (*models.LineItem, error) {
	ctx, span := tracing.StartSpan(ctx, "lineitem.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal(column, value))

	query, args := sb.Build()

	var li models.LineItem
	err := database.Reader(ctx, r.db).GetContext(ctx, &li, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get line item")
		return nil, fmt.Errorf("failed to get line item: %w", err)
	}

	return &li, nil
}

// List returns every line item ordered by occurrence.
func (r *Repository) List(ctx context.Context) ([]models.LineItem, error) {
	ctx, span := tracing.StartSpan(ctx, "lineitem.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.OrderBy("occurred_at", "id")

	query, args := sb.Build()

	var items []models.LineItem
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &items, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list line items")
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}

	return items, nil
}

// ListByTransaction returns the line items owned by one transaction.
func (r *Repository) ListByTransaction(ctx context.Context, transactionID string) ([]models.LineItem, error) {
	ctx, span := tracing.StartSpan(ctx, "lineitem.Repository.ListByTransaction")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal("transaction_id", transactionID))
	sb.OrderBy("occurred_at", "id")

	query, args := sb.Build()

	var items []models.LineItem
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list line items by transaction: %w", err)
	}

	return items, nil
}

// Update rewrites the mutable fields of a line item by primary key.
func (r *Repository) Update(ctx context.Context, li *models.LineItem) error {
	ctx, span := tracing.StartSpan(ctx, "lineitem.Repository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(tableName)
	sb.Set(
		sb.Assign("payment_method_id", li.PaymentMethodID),
		sb.Assign("party_id", li.PartyID),
		sb.Assign("occurred_at", li.OccurredAt),
		sb.Assign("description", li.Description),
		sb.Assign("amount", li.Amount),
	)
	sb.Where(sb.Equal("id", li.ID))

	query, args := sb.Build()
	res, err := database.Reader(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": li.ID}).Error("failed to update line item")
		return fmt.Errorf("failed to update line item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// Delete removes a line item by primary key.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "lineitem.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	if _, err := database.Reader(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("failed to delete line item")
		return fmt.Errorf("failed to delete line item: %w", err)
	}

	return nil
}

// Count returns the total row count.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "lineitem.Repository.Count")
	defer span.End()

	var count int64
	if err := database.Reader(ctx, r.db).GetContext(ctx, &count, "SELECT COUNT(*) FROM line_items"); err != nil {
		return 0, fmt.Errorf("failed to count line items: %w", err)
	}

	return count, nil
}

// ListLegacyIDs returns the legacy ids of migrated line items.
func (r *Repository) ListLegacyIDs(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "lineitem.Repository.ListLegacyIDs")
	defer span.End()

	var ids []string
	query := "SELECT legacy_id FROM line_items WHERE legacy_id IS NOT NULL"
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list line item legacy ids: %w", err)
	}

	return ids, nil
}

// LegacyIDToID returns legacy id -> new id for every migrated line item,
// used by the relationship phase to resolve event memberships in memory.
func (r *Repository) LegacyIDToID(ctx context.Context) (map[string]string, error) {
	ctx, span := tracing.StartSpan(ctx, "lineitem.Repository.LegacyIDToID")
	defer span.End()

	type row struct {
		ID       string `db:"id"`
		LegacyID string `db:"legacy_id"`
	}

	var rows []row
	query := "SELECT id, legacy_id FROM line_items WHERE legacy_id IS NOT NULL"
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load line item id map: %w", err)
	}

	m := make(map[string]string, len(rows))
	for _, rw := range rows {
		m[rw.LegacyID] = rw.ID
	}

	return m, nil
}
