// Package app wires the shared dependency graph for the CLI entrypoints:
// config, logging, tracing, both stores, the Kafka emitter, and the
// repositories layered on top.
package app

import (
	"context"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/joho/godotenv"

	"github.com/neerajsamtani/ledgershift/config"
	"github.com/neerajsamtani/ledgershift/internal/repositories/account"
	"github.com/neerajsamtani/ledgershift/internal/repositories/dualwritefailure"
	"github.com/neerajsamtani/ledgershift/internal/repositories/event"
	"github.com/neerajsamtani/ledgershift/internal/repositories/lineitem"
	"github.com/neerajsamtani/ledgershift/internal/repositories/reference"
	"github.com/neerajsamtani/ledgershift/internal/repositories/transaction"
	"github.com/neerajsamtani/ledgershift/internal/repositories/user"
	"github.com/neerajsamtani/ledgershift/pkg/database"
	"github.com/neerajsamtani/ledgershift/pkg/dualwrite"
	"github.com/neerajsamtani/ledgershift/pkg/events"
	"github.com/neerajsamtani/ledgershift/pkg/kafka"
	"github.com/neerajsamtani/ledgershift/pkg/legacy"
	"github.com/neerajsamtani/ledgershift/pkg/logging"
	"github.com/neerajsamtani/ledgershift/pkg/migration"
	"github.com/neerajsamtani/ledgershift/pkg/models"
	"github.com/neerajsamtani/ledgershift/pkg/readrouter"
	"github.com/neerajsamtani/ledgershift/pkg/reconcile"
	"github.com/neerajsamtani/ledgershift/pkg/tracing"
	"github.com/neerajsamtani/ledgershift/pkg/verify"
)

// App is the wired dependency graph shared by the migrate, reconcile, and
// verify entrypoints.
type App struct {
	Config   *config.Config
	Logger   ectologger.Logger
	DB       database.DB
	Legacy   *legacy.Store
	Producer *kafka.Producer
	Emitter  *events.Emitter

	ReferenceRepos map[models.EntityType]*reference.Repository
	TxnRepo        *transaction.Repository
	LineItemRepo   *lineitem.Repository
	EventRepo      *event.Repository
	AccountRepo    *account.Repository
	UserRepo       *user.Repository
	FailureRepo    *dualwritefailure.Repository

	DualWrite  *dualwrite.Service
	Router     *readrouter.Router
	Migrator   *migration.Migrator
	Reconciler *reconcile.Reconciler
	Verifier   *verify.Suite

	tracingShutdown func(context.Context) error
}

// New loads config from the environment and connects every dependency.
// Kafka is optional; when disabled the emitter is nil and all emits are
// no-ops.
func New(ctx context.Context) (*App, error) {
	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := ectoenv.BindEnv(cfg); err != nil {
		return nil, err
	}

	logger := logging.NewLogger(cfg)

	tracingShutdown, err := tracing.Setup(ctx, cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	legacyStore, err := legacy.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	var producer *kafka.Producer
	var emitter *events.Emitter
	if cfg.KafkaEnabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		emitter = events.NewEmitter(producer, logger)
	}

	refRepos := make(map[models.EntityType]*reference.Repository, len(models.ReferenceEntityTypes))
	for _, entityType := range models.ReferenceEntityTypes {
		refRepos[entityType] = reference.NewRepository(db, logger, entityType)
	}

	a := &App{
		Config:          cfg,
		Logger:          logger,
		DB:              db,
		Legacy:          legacyStore,
		Producer:        producer,
		Emitter:         emitter,
		ReferenceRepos:  refRepos,
		TxnRepo:         transaction.NewRepository(db, logger),
		LineItemRepo:    lineitem.NewRepository(db, logger),
		EventRepo:       event.NewRepository(db, logger),
		AccountRepo:     account.NewRepository(db, logger),
		UserRepo:        user.NewRepository(db, logger),
		FailureRepo:     dualwritefailure.NewRepository(db, logger),
		tracingShutdown: tracingShutdown,
	}

	a.DualWrite = dualwrite.NewService(dualwrite.ServiceParams{
		Executor:        dualwrite.NewCoordinator(db, a.FailureRepo, emitter, logger),
		Legacy:          legacyStore,
		Logger:          logger,
		ReferenceRepos:  refRepos,
		TransactionRepo: a.TxnRepo,
		LineItemRepo:    a.LineItemRepo,
		EventRepo:       a.EventRepo,
		AccountRepo:     a.AccountRepo,
		UserRepo:        a.UserRepo,
	})

	a.Router = readrouter.NewRouter(readrouter.ModesFromConfig(cfg), legacyStore, logger)
	for entityType, repo := range refRepos {
		a.Router.Register(entityType, readrouter.NewReferenceHandler(repo))
	}
	a.Router.Register(models.EntityTransaction, readrouter.NewTransactionHandler(a.TxnRepo))
	a.Router.Register(models.EntityLineItem, readrouter.NewLineItemHandler(a.LineItemRepo))
	a.Router.Register(models.EntityEvent, readrouter.NewEventHandler(a.EventRepo))
	a.Router.Register(models.EntityAccount, readrouter.NewAccountHandler(a.AccountRepo))
	a.Router.Register(models.EntityUser, readrouter.NewUserHandler(a.UserRepo))

	a.Migrator = migration.NewMigrator(migration.MigratorParams{
		DB:              db,
		Legacy:          legacyStore,
		Logger:          logger,
		Emitter:         emitter,
		BatchSize:       cfg.MigrationBatchSize,
		MapPath:         cfg.TransactionMapPath,
		ReferenceRepos:  refRepos,
		TransactionRepo: a.TxnRepo,
		LineItemRepo:    a.LineItemRepo,
		EventRepo:       a.EventRepo,
		AccountRepo:     a.AccountRepo,
		UserRepo:        a.UserRepo,
	})

	a.Reconciler = reconcile.NewReconciler(reconcile.ReconcilerParams{
		Legacy:          legacyStore,
		Logger:          logger,
		Emitter:         emitter,
		Migrator:        a.Migrator,
		ReferenceRepos:  refRepos,
		TransactionRepo: a.TxnRepo,
		LineItemRepo:    a.LineItemRepo,
		EventRepo:       a.EventRepo,
		AccountRepo:     a.AccountRepo,
		UserRepo:        a.UserRepo,
	})

	a.Verifier = verify.NewSuite(verify.SuiteParams{
		DB:                   db,
		Legacy:               legacyStore,
		Logger:               logger,
		SampleSize:           cfg.SpotCheckSampleSize,
		AmountToleranceCents: cfg.AmountToleranceCents,
		ReferenceRepos:       refRepos,
		TransactionRepo:      a.TxnRepo,
		LineItemRepo:         a.LineItemRepo,
		EventRepo:            a.EventRepo,
		AccountRepo:          a.AccountRepo,
		UserRepo:             a.UserRepo,
	})

	return a, nil
}

// MigrateSchema applies the new-store schema migrations.
func (a *App) MigrateSchema() error {
	driver, err := migratepg.WithInstance(a.DB.Unsafe().DB, &migratepg.Config{})
	if err != nil {
		return err
	}

	service := database.NewMigrationService(a.Logger, &database.MigrationConfig{
		MigrationFolderPath: a.Config.DatabaseMigrationFolderPath,
		Version:             uint(a.Config.DatabaseMigrationVersion),
		Force:               a.Config.DatabaseMigrationForce,
		AutoRollback:        a.Config.DatabaseMigrationAutoRollback,
	})
	return service.Migrate(a.Config.DatabaseName, driver)
}

// Close releases every connection in reverse dependency order.
func (a *App) Close(ctx context.Context) {
	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil {
			a.Logger.WithError(err).Warn("failed to close Kafka producer")
		}
	}
	a.Legacy.Close()
	if err := a.DB.Close(); err != nil {
		a.Logger.WithError(err).Warn("failed to close database")
	}
	if a.tracingShutdown != nil {
		if err := a.tracingShutdown(ctx); err != nil {
			a.Logger.WithError(err).Warn("failed to shut down tracing")
		}
	}
}
