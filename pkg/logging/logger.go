package logging

import (
	"encoding/json"

	"github.com/Gobusters/ectologger"
	"go.uber.org/zap"

	"github.com/neerajsamtani/ledgershift/config"
)

// NewLogger builds the service-wide ectologger backed by a zap sink.
func NewLogger(cfg *config.Config) ectologger.Logger {
	var zl *zap.Logger
	if cfg.PrettyLogs {
		zl, _ = zap.NewDevelopment()
	} else {
		zl, _ = zap.NewProduction()
	}

	sugared := zl.Sugar()
	return ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		b, err := json.Marshal(msg)
		if err != nil {
			sugared.Infow("log", "entry", msg)
			return
		}
		sugared.Info(string(b))
	})
}

// NewNoopLogger returns a logger that discards everything. Used in tests.
func NewNoopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}
