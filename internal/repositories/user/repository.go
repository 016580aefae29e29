// Package user persists app users, unique on username.
package user

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

const tableName = "users"

var columns = []string{"id", "username", "email", "venmo_handle", "splitwise_handle", "legacy_id", "created_at"}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// Create inserts a user. Duplicate usernames surface as the driver's unique
// violation.
func (r *Repository) Create(ctx context.Context, u *models.User) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.Create")
	defer span.End()

	if u.ID == "" {
		u.ID = identifier.New(identifier.PrefixUser)
	}
	u.CreatedAt = time.Now().UTC()

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto(tableName)
	sb.Cols(columns...)
	sb.Values(u.ID, u.Username, u.Email, u.VenmoHandle, u.SplitwiseHandle, u.LegacyID, u.CreatedAt)

	query, args := sb.Build()
	if _, err := database.Reader(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"username": u.Username}).Error("failed to create user")
		return nil, err
	}

	return u, nil
}

// Upsert inserts by username or refreshes the existing row's contact
// fields. Returns the stored row and whether the statement inserted.
func (r *Repository) Upsert(ctx context.Context, u *models.User) (*models.User, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.Upsert")
	defer span.End()

	if u.ID == "" {
		u.ID = identifier.New(identifier.PrefixUser)
	}

	query := `
		INSERT INTO users (id, username, email, venmo_handle, splitwise_handle, legacy_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (username) DO UPDATE SET
			email = EXCLUDED.email,
			venmo_handle = EXCLUDED.venmo_handle,
			splitwise_handle = EXCLUDED.splitwise_handle,
			legacy_id = COALESCE(users.legacy_id, EXCLUDED.legacy_id)
		RETURNING id, username, email, venmo_handle, splitwise_handle, legacy_id, created_at, (xmax = 0) AS inserted
	`

	var row struct {
		models.User
		Inserted bool `db:"inserted"`
	}
	err := database.Reader(ctx, r.db).GetContext(ctx, &row, query, u.ID, u.Username, u.Email, u.VenmoHandle, u.SplitwiseHandle, u.LegacyID, time.Now().UTC())
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"username": u.Username}).Error("failed to upsert user")
		return nil, false, fmt.Errorf("failed to upsert user: %w", err)
	}

	return &row.User, row.Inserted, nil
}

// GetByID gets a user by primary key. Returns nil when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getWhere(ctx, "id", id)
}

// GetByLegacyID gets a user by its legacy id. Returns nil when absent.
func (r *Repository) GetByLegacyID(ctx context.Context, legacyID string) (*models.User, error) {
	return r.getWhere(ctx, "legacy_id", legacyID)
}

func (r *Repository) getWhere(ctx context.Context, column, value string) (*models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.Get")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.Where(sb.Equal(column, value))

	query, args := sb.Build()

	var u models.User
	err := database.Reader(ctx, r.db).GetContext(ctx, &u, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).Error("failed to get user")
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

// List returns every user ordered by username.
func (r *Repository) List(ctx context.Context) ([]models.User, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.List")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(tableName)
	sb.OrderBy("username")

	query, args := sb.Build()

	var users []models.User
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &users, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("failed to list users")
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// Count returns the total row count.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.Count")
	defer span.End()

	var count int64
	if err := database.Reader(ctx, r.db).GetContext(ctx, &count, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}

	return count, nil
}

// ListLegacyIDs returns the legacy ids of migrated users.
func (r *Repository) ListLegacyIDs(ctx context.Context) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "user.Repository.ListLegacyIDs")
	defer span.End()

	var ids []string
	query := "SELECT legacy_id FROM users WHERE legacy_id IS NOT NULL"
	if err := database.Reader(ctx, r.db).SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list user legacy ids: %w", err)
	}

	return ids, nil
}
