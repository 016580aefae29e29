package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neerajsamtani/ledgershift/config"
	"github.com/neerajsamtani/ledgershift/internal/repositories/lineitem"
	"github.com/neerajsamtani/ledgershift/internal/repositories/reference"
	"github.com/neerajsamtani/ledgershift/internal/repositories/transaction"
	"github.com/neerajsamtani/ledgershift/pkg/database"
	"github.com/neerajsamtani/ledgershift/pkg/logging"
	"github.com/neerajsamtani/ledgershift/pkg/models"
)

type testContext struct {
	ctx     context.Context
	db      database.DB
	txnRepo *transaction.Repository
	liRepo  *lineitem.Repository
}

// setupTestContext connects to the Postgres instance named by TEST_DB_HOST
// and applies the schema. Tests are skipped when no database is configured.
func setupTestContext(t *testing.T) *testContext {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("Database not configured, set TEST_DB_HOST")
	}

	cfg := &config.Config{
		DatabaseDriver:          "postgres",
		DatabaseHost:            host,
		DatabasePort:            getEnv("TEST_DB_PORT", "5432"),
		DatabaseUserName:        getEnv("TEST_DB_USER", "postgres"),
		DatabasePassword:        os.Getenv("TEST_DB_PASSWORD"),
		DatabaseName:            getEnv("TEST_DB_NAME", "ledgershift_test"),
		DatabaseSSLMode:         "disable",
		DatabaseMaxOpenConns:    5,
		DatabaseMaxIdleConns:    2,
		DatabaseConnMaxLifetime: 10 * time.Second,
	}
	logger := logging.NewNoopLogger()

	db, err := database.Connect(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	driver, err := migratepg.WithInstance(db.Unsafe().DB, &migratepg.Config{})
	require.NoError(t, err)
	service := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: "../../db/pg",
	})
	require.NoError(t, service.Migrate(cfg.DatabaseName, driver))

	return &testContext{
		ctx:     context.Background(),
		db:      db,
		txnRepo: transaction.NewRepository(db, logger),
		liRepo:  lineitem.NewRepository(db, logger),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func uniqueName(base string) string {
	return fmt.Sprintf("%s-%s", base, uuid.New().String()[:8])
}

func TestReferenceUpsertConverges(t *testing.T) {
	tc := setupTestContext(t)
	logger := logging.NewNoopLogger()
	repo := reference.NewRepository(tc.db, logger, models.EntityCategory)

	name := uniqueName("groceries")

	first, inserted, err := repo.Upsert(tc.ctx, &models.Reference{Name: name, Active: true})
	require.NoError(t, err)
	assert.True(t, inserted)

	second, inserted, err := repo.Upsert(tc.ctx, &models.Reference{Name: name, Active: false})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.Active, "an inactive duplicate must not deactivate the stored row")

	legacyID := "categories-" + uuid.New().String()[:8]
	third, inserted, err := repo.Upsert(tc.ctx, &models.Reference{Name: name, Active: true, LegacyID: &legacyID})
	require.NoError(t, err)
	assert.False(t, inserted)
	require.NotNil(t, third.LegacyID)
	assert.Equal(t, legacyID, *third.LegacyID)
}

func TestTransactionSourceIdentity(t *testing.T) {
	tc := setupTestContext(t)

	sourceID := uuid.New().String()
	legacyID := "venmo_raw_data-" + sourceID[:8]
	payload, err := json.Marshal(map[string]any{"note": "lunch", "amount": "12.50"})
	require.NoError(t, err)

	created, err := tc.txnRepo.Create(tc.ctx, &models.Transaction{
		Source:     models.SourceVenmo,
		SourceID:   sourceID,
		OccurredAt: time.Now().UTC().Truncate(time.Second),
		Payload:    payload,
		LegacyID:   &legacyID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	bySource, err := tc.txnRepo.GetBySourceID(tc.ctx, models.SourceVenmo, sourceID)
	require.NoError(t, err)
	require.NotNil(t, bySource)
	assert.Equal(t, created.ID, bySource.ID)

	byLegacy, err := tc.txnRepo.GetByLegacyID(tc.ctx, legacyID)
	require.NoError(t, err)
	require.NotNil(t, byLegacy)
	assert.Equal(t, created.ID, byLegacy.ID)

	_, err = tc.txnRepo.Create(tc.ctx, &models.Transaction{
		Source:   models.SourceVenmo,
		SourceID: sourceID,
		Payload:  payload,
	})
	assert.Error(t, err, "duplicate (source, source_id) must be rejected")

	missing, err := tc.txnRepo.GetBySourceID(tc.ctx, models.SourceCash, sourceID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLineItemCascadesFromTransaction(t *testing.T) {
	tc := setupTestContext(t)

	payload, err := json.Marshal(map[string]any{"description": "manual entry"})
	require.NoError(t, err)
	owner, err := tc.txnRepo.Create(tc.ctx, &models.Transaction{
		Source:   models.SourceManual,
		SourceID: "manual_" + uuid.New().String()[:8],
		Payload:  payload,
	})
	require.NoError(t, err)

	legacyID := "line_item_" + uuid.New().String()[:8]
	li, err := tc.liRepo.Create(tc.ctx, &models.LineItem{
		LegacyID:      &legacyID,
		TransactionID: owner.ID,
		OccurredAt:    time.Now().UTC(),
		Description:   "manual entry",
		Amount:        42.00,
	})
	require.NoError(t, err)

	owned, err := tc.liRepo.ListByTransaction(tc.ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, li.ID, owned[0].ID)

	require.NoError(t, tc.txnRepo.Delete(tc.ctx, owner.ID))

	gone, err := tc.liRepo.GetByID(tc.ctx, li.ID)
	require.NoError(t, err)
	assert.Nil(t, gone, "deleting the owning transaction must remove its line items")
}
