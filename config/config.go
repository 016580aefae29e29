package config

import "time"

type Config struct {
	AppName            string `env:"APP_NAME" env-default:"ledgershift"`
	LogLevel           string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs         bool   `env:"PRETTY_LOGS" env-default:"false"`
	StartupMaxAttempts int    `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL (new store)
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"ledgershift"`
	DatabaseSSLMode               string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// SurrealDB (legacy store)
	LegacyURL       string `env:"LEGACY_DB_URL" env-default:"ws://localhost:8000/rpc"`
	LegacyNamespace string `env:"LEGACY_DB_NAMESPACE" env-default:"budget"`
	LegacyDatabase  string `env:"LEGACY_DB_NAME" env-default:"budget"`
	LegacyUser      string `env:"LEGACY_DB_USER" env-default:""`
	LegacyPassword  string `env:"LEGACY_DB_PASSWORD" env-default:""`

	// Read routing. ReadFromNewStore is the process-wide default; overrides
	// are per-entity "entity_type:legacy|new" pairs.
	ReadFromNewStore  bool     `env:"READ_FROM_NEW_STORE" env-default:"false"`
	ReadModeOverrides []string `env:"READ_MODE_OVERRIDES" env-default:""`

	// Batch migration
	MigrationBatchSize   int    `env:"MIGRATION_BATCH_SIZE" env-default:"100"`
	TransactionMapPath   string `env:"TRANSACTION_MAP_PATH" env-default:"transaction_id_map.json"`
	SpotCheckSampleSize  int    `env:"SPOT_CHECK_SAMPLE_SIZE" env-default:"25"`
	AmountToleranceCents int    `env:"AMOUNT_TOLERANCE_CENTS" env-default:"1"`

	// Kafka producer (migration lifecycle events)
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaOutputTopic  string   `env:"KAFKA_OUTPUT_TOPIC" env-default:"migration-events"`
	KafkaBatchSize    int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Redis (scheduler lock)
	RedisEnabled  bool   `env:"REDIS_ENABLED" env-default:"false"`
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`

	// Reconciliation scheduler
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" env-default:"1h"`
	ReconcileLockTTL  time.Duration `env:"RECONCILE_LOCK_TTL" env-default:"30m"`

	// Tracing
	TracingEnabled      bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingOTLPEndpoint string `env:"TRACING_OTLP_ENDPOINT" env-default:"localhost:4317"`
	TracingOTLPProtocol string `env:"TRACING_OTLP_PROTOCOL" env-default:"grpc"`
	TracingInsecure     bool   `env:"TRACING_INSECURE" env-default:"true"`
}
