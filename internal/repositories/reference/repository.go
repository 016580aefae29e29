// Package reference persists the name-keyed lookup tables: categories,
// payment methods, parties and tags. One repository serves all four; the
// entity type picks the table.
package reference

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

var columns = []string{"id", "name", "active", "legacy_id", "created_at", "updated_at"}

// prefixes maps each reference entity type to its id prefix.
var prefixes = map[models.EntityType]string{
	models.EntityCategory:      identifier.PrefixCategory,
	models.EntityPaymentMethod: identifier.PrefixPaymentMethod,
	models.EntityParty:         identifier.PrefixParty,
	models.EntityTag:           identifier.PrefixTag,
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
	entity models.EntityType
}

func NewRepository(db database.DB, logger ectologger.Logger, entity models.EntityType) *Repository {
	return &Repository{db: db, logger: logger, entity: entity}
}

func (r *Repository) EntityType() models.EntityType {
	return r.entity
}

// NewID issues a fresh primary key for this table's entity type.
func (r *Repository) NewID() string {
	return identifier.New(prefixes[r.entity])
}

// Create inserts a row. Duplicate names surface as the driver's unique
// violation so callers can decide whether a duplicate is an error or an
// idempotent no-op.
func (r *Repository) Create(ctx context.Context, ref *models.Reference) (*models.Reference, error) {
	ctx, span := tracing.StartSpan(ctx, "reference.Repository.Create")
	defer span.End()

	now := time.Now().UTC()
	if ref.ID == "" {
		ref.ID = r.NewID()
	}
	ref.CreatedAt = now
	ref.UpdatedAt = now

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(r.entity.Table())
	sb.Cols(columns...)
	sb.Values(ref.ID, ref.Name, ref.Active, ref.LegacyID, ref.CreatedAt, ref.UpdatedAt)

	query, args := sb.Build()
	if _, err := database.Reader(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity_type": r.entity,
			"name":        ref.Name,
		}).Error("failed to create reference row")
		return nil, err
	}

	return ref, nil
}

// Upsert inserts by name, or folds into the existing row when the name is
// already present. An inactive incoming duplicate never deactivates an
// active row; an active one reactivates it. Returns the stored row and
// whether the statement inserted.
func (r *Repository) Upsert(ctx context.Context, ref *models.Reference) (*models.Reference, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "reference.Repository.Upsert")
	defer span.End()

	now := time.Now().UTC()
	if ref.ID == "" {
		ref.ID = r.NewID()
	}

	table := r.entity.Table()
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, active, legacy_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (name) DO UPDATE SET
			active = %s.active OR EXCLUDED.active,
			legacy_id = COALESCE(%s.legacy_id, EXCLUDED.legacy_id),
			updated_at = EXCLUDED.updated_at
		RETURNING id, name, active, legacy_id, created_at, updated_at, (xmax = 0) AS inserted
	`, table, table, table)

	var row struct {
		models.Reference
		Inserted bool `db:"inserted"`
	}
	err := database.Reader(ctx, r.db).GetContext(ctx, &row, query, ref.ID, ref.Name, ref.Active, ref.LegacyID, now)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity_type": r.entity,
			"name":        ref.Name,
		}).Error("failed to upsert reference row")
		return nil, false, fmt.Errorf("failed to upsert %s: %w", r.entity, err)
	}

	return &row.Reference, row.Inserted, nil
}

// GetByID gets a row by primary key. Returns nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Reference, error) {
	return r.getWhere(ctx, "id", id)
}

// GetByLegacyID gets a row by its legacy store id. Returns nil when absent.
func (r *Repository) GetByLegacyID(ctx context.Context, legacyID string) (*models.Reference, error) {
	return r.getWhere(ctx, "legacy_id", legacyID)
}

// GetByName gets a row by its unique name. Returns nil when absent.
func (r *Repository) GetByName(ctx context.Context, name string) (*models.Reference, error) {
	return r.getWhere(ctx, "name", name)
}

func (r *Repository) getWhere(ctx context.Context, column, value string) (*models.Reference, error) {
	ctx, span := tracing.StartSpan(ctx, "reference.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(r.entity.Table())
	sb.Where(sb.Equal(column, value))

	query, args := sb.Build()

	var ref models.Reference
	err := database.Reader(ctx, r.db).GetContext(ctx, &ref, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity_type": r.entity,
			column:        value,
		}).Error("failed to get reference row")
		return nil, fmt.Errorf("failed to get %s: %w", r.entity, err)
	}

	return &ref, nil
}

// Update rewrites name and active for a row identified by primary key.
func (r *Repository) Update(ctx context.Context, ref *models.Reference) error {
	ctx, span := tracing.StartSpan(ctx, "reference.Repository.Update")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	sb.Update(r.entity.Table())
	sb.Set(
		sb.Assign("name", ref.Name),
		sb.Assign("active", ref.Active),
		sb.Assign("updated_at", time.Now().UTC()),
	)
	sb.Where(sb.Equal("id", ref.ID))

	query, args := sb.Build()
	res, err := database.Reader(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity_type": r.entity,
			"id":          ref.ID,
		}).Error("failed to update reference row")
		return fmt.Errorf("failed to update %s: %w", r.entity, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// Delete removes a row by primary key.
func (r *Repository) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.StartSpan(ctx, "reference.Repository.Delete")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	sb.DeleteFrom(r.entity.Table())
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	if _, err := database.Reader(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity_type": r.entity,
			"id":          id,
		}).Error("failed to delete reference row")
		return fmt.Errorf("failed to delete %s: %w", r.entity, err)
	}

	return nil
}

// List returns every row ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Reference, error) {
	ctx, span := tracing.StartSpan(ctx, "reference.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(r.entity.Table())
	sb.OrderBy("name")

	query, args := sb.Build()

	var refs []models.Reference
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &refs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"entity_type": r.entity,
		}).Error("failed to list reference rows")
		return nil, fmt.Errorf("failed to list %s: %w", r.entity, err)
	}

	return refs, nil
}

// Count returns the total row count.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "reference.Repository.Count")
	defer span.End()

	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", r.entity.Table())
	if err := database.Reader(ctx, r.db).GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.entity, err)
	}

	return count, nil
}

// ListLegacyIDs returns the legacy ids of every migrated row, for
// reconciliation set differences.
func (r *Repository) ListLegacyIDs(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "reference.Repository.ListLegacyIDs")
	defer span.End()

	var ids []string
	query := fmt.Sprintf("SELECT legacy_id FROM %s WHERE legacy_id IS NOT NULL", r.entity.Table())
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list %s legacy ids: %w", r.entity, err)
	}

	return ids, nil
}
