// Package account persists financial accounts, unique on name.
package account

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

const tableName = "accounts"

var columns = []string{"id", "name", "institution", "legacy_id", "created_at"}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Create inserts an account. Duplicate names surface as the driver's unique
// violation.
func (r *Repository) Create(ctx context.Context, acct *models.Account) (*models.Account, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.Create")
	defer span.End()

	if acct.ID == "" {
		acct.ID = identifier.New(identifier.PrefixAccount)
	}
	acct.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(acct.ID, acct.Name, acct.Institution, acct.LegacyID, acct.CreatedAt)

	query, args := sb.Build()
	if _, err := database.Reader(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": acct.Name}).Error("failed to create account")
		return nil, err
	}

	return acct, nil
}

// Upsert inserts by name or refreshes the existing row's institution and
// legacy id. Returns the stored row and whether the statement inserted.
func (r *Repository) Upsert(ctx context.Context, acct *models.Account) (*models.Account, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.Upsert")
	defer span.End()

	if acct.ID == "" {
		acct.ID = identifier.New(identifier.PrefixAccount)
	}

	query := `
		INSERT INTO accounts (id, name, institution, legacy_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			institution = EXCLUDED.institution,
			legacy_id = COALESCE(accounts.legacy_id, EXCLUDED.legacy_id)
		RETURNING id, name, institution, legacy_id, created_at, (xmax = 0) AS inserted
	`

	var row struct {
		models.Account
		Inserted bool `db:"inserted"`
	}
	err := database.Reader(ctx, r.db).GetContext(ctx, &row, query, acct.ID, acct.Name, acct.Institution, acct.LegacyID, time.Now().UTC())
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"name": acct.Name}).Error("failed to upsert account")
		return nil, false, fmt.Errorf("failed to upsert account: %w", err)
	}

	return &row.Account, row.Inserted, nil
}

// GetByID gets an account by primary key. Returns nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.getWhere(ctx, "id", id)
}

// GetByLegacyID gets an account by its legacy id. Returns nil when absent.
func (r *Repository) GetByLegacyID(ctx context.Context, legacyID string) (*models.Account, error) {
	return r.getWhere(ctx, "legacy_id", legacyID)
}

func (r *Repository) getWhere(ctx context.Context, column, value string) (*models.Account, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal(column, value))

	query, args := sb.Build()

	var acct models.Account
	err := database.Reader(ctx, r.db).GetContext(ctx, &acct, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get account")
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &acct, nil
}

// List returns every account ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Account, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.OrderBy("name")

	query, args := sb.Build()

	var accts []models.Account
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &accts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list accounts")
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	return accts, nil
}

// Count returns the total row count.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.Count")
	defer span.End()

	var count int64
	if err := database.Reader(ctx, r.db).GetContext(ctx, &count, "SELECT COUNT(*) FROM accounts"); err != nil {
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}

	return count, nil
}

// ListLegacyIDs returns the legacy ids of migrated accounts.
func (r *Repository) ListLegacyIDs(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.ListLegacyIDs")
	defer span.End()

	var ids []string
	query := "SELECT legacy_id FROM accounts WHERE legacy_id IS NOT NULL"
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list account legacy ids: %w", err)
	}

	return ids, nil
}
