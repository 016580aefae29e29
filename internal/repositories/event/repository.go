// Package event persists events and their line-item and tag memberships.
// Membership writes share a transaction with the event row so a partially
// linked event is never visible.
package event

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

const tableName = "events"

var columns = []string{"id", "legacy_id", "category_id", "description", "occurred_at", "amount", "created_at"}

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

// Create inserts an event and its memberships in one transaction. A
// duplicate legacy id rolls the whole write back and surfaces as the
// driver's unique violation.
func (r *Repository) Create(ctx context.Context, evt *models.Event, lineItemIDs, tagIDs []string) (*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.Create")
	defer span.End()

	if evt.ID == "" {
		evt.ID = identifier.New(identifier.PrefixEvent)
	}
	evt.CreatedAt = time.Now().UTC()

	ctx, tx, err := r.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(evt.ID, evt.LegacyID, evt.CategoryID, evt.Description, evt.OccurredAt, evt.Amount, evt.CreatedAt)

	query, args := sb.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"category_id": evt.CategoryID,
		}).Error("failed to create event")
		return nil, err
	}

	if err := r.insertMemberships(ctx, tx, evt.ID, lineItemIDs, tagIDs); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return evt, nil
}

func (r *Repository) insertMemberships(ctx context.Context, tx database.Tx, eventID string, lineItemIDs, tagIDs []string) error {
	if len(lineItemIDs) > 0 {
		sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
		sb.InsertInto("event_line_items")
		sb.Cols("event_id", "line_item_id")
		for _, id := range lineItemIDs {
			sb.Values(eventID, id)
		}
		query, args := sb.Build()
		query += " ON CONFLICT (event_id, line_item_id) DO NOTHING"
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"event_id": eventID}).Error("failed to link line items")
			return fmt.Errorf("failed to link line items: %w", err)
		}
	}

	if len(tagIDs) > 0 {
		sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
		sb.InsertInto("event_tags")
		sb.Cols("event_id", "tag_id")
		for _, id := range tagIDs {
			sb.Values(eventID, id)
		}
		query, args := sb.Build()
		query += " ON CONFLICT (event_id, tag_id) DO NOTHING"
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"event_id": eventID}).Error("failed to link tags")
			return fmt.Errorf("failed to link tags: %w", err)
		}
	}

	return nil
}

// GetByID gets an event by primary key. Returns nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	return r.getWhere(ctx, "id", id)
}

// GetByLegacyID gets an event by its legacy id. Returns nil when absent.
func (r *Repository) GetByLegacyID(ctx context.Context, legacyID string) (*models.Event, error) {
	return r.getWhere(ctx, "legacy_id", legacyID)
}

func (r *Repository) getWhere(ctx context.Context, column, value string) (*models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal(column, value))

	query, args := sb.Build()

	var evt models.Event
	err := database.Reader(ctx, r.db).GetContext(ctx, &evt, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get event")
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return &evt, nil
}

// Members returns the line item ids and tag ids linked to an event.
func (r *Repository) Members(ctx context.Context, eventID string) ([]string, []string, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.Members")
	defer span.End()

	var lineItemIDs []string
	query := "SELECT line_item_id FROM event_line_items WHERE event_id = $1 ORDER BY line_item_id"
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &lineItemIDs, query, eventID); err != nil {
		return nil, nil, fmt.Errorf("failed to list event line items: %w", err)
	}

	var tagIDs []string
	query = "SELECT tag_id FROM event_tags WHERE event_id = $1 ORDER BY tag_id"
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &tagIDs, query, eventID); err != nil {
		return nil, nil, fmt.Errorf("failed to list event tags: %w", err)
	}

	return lineItemIDs, tagIDs, nil
}

// List returns every event ordered by occurrence.
func (r *Repository) List(ctx context.Context) ([]models.Event, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.OrderBy("occurred_at", "id")

	query, args := sb.Build()

	var events []models.Event
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &events, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list events")
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return events, nil
}

// Delete removes an event by primary key. Memberships cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom(tableName)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	if _, err := database.Reader(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"id": id}).Error("failed to delete event")
		return fmt.Errorf("failed to delete event: %w", err)
	}

	return nil
}

// Count returns the total row count.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.Count")
	defer span.End()

	var count int64
	if err := database.Reader(ctx, r.db).GetContext(ctx, &count, "SELECT COUNT(*) FROM events"); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}

	return count, nil
}

// ListLegacyIDs returns the legacy ids of migrated events.
func (r *Repository) ListLegacyIDs(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "event.Repository.ListLegacyIDs")
	defer span.End()

	var ids []string
	query := "SELECT legacy_id FROM events WHERE legacy_id IS NOT NULL"
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list event legacy ids: %w", err)
	}

	return ids, nil
}
