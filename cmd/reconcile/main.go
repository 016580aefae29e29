// Command reconcile heals new-store records missing after dual-write
// failures. With --dry-run it only reports what would be synced. With
// --schedule it keeps running on the configured interval under a Redis
// lock instead of exiting after one pass.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neerajsamtani/ledgershift/internal/app"
	"github.com/neerajsamtani/ledgershift/pkg/redis"
	"github.com/neerajsamtani/ledgershift/pkg/scheduler"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "report divergence without writing")
	schedule := flag.Bool("schedule", false, "run continuously on the configured interval")
	flag.Parse()

	ctx := context.Background()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close(ctx)

	if *schedule {
		runScheduled(ctx, a, *dryRun)
		return
	}

	report, err := a.Reconciler.Run(ctx, *dryRun)
	if err != nil {
		a.Logger.WithError(err).Error("reconciliation failed")
		os.Exit(1)
	}

	out, jsonErr := json.MarshalIndent(report, "", "  ")
	if jsonErr != nil {
		fmt.Printf("missing=%d synced=%d\n", report.TotalMissing(), report.TotalSynced())
		return
	}
	fmt.Println(string(out))
}

func runScheduled(ctx context.Context, a *app.App, dryRun bool) {
	if !a.Config.RedisEnabled {
		a.Logger.Error("scheduled mode requires Redis for the reconciliation lock, set REDIS_ENABLED")
		os.Exit(1)
	}

	client, err := redis.NewClient(a.Config, a.Logger)
	if err != nil {
		a.Logger.WithError(err).Error("failed to connect to Redis")
		os.Exit(1)
	}
	defer client.Close()

	locker := redis.NewLocker(client, "ledgershift:")

	s := scheduler.NewScheduler(a.Reconciler, locker, scheduler.Config{
		Interval: a.Config.ReconcileInterval,
		LockTTL:  a.Config.ReconcileLockTTL,
		DryRun:   dryRun,
	}, a.Logger)

	if err := s.Start(ctx); err != nil {
		a.Logger.WithError(err).Error("failed to start scheduler")
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Stop(shutdownCtx); err != nil {
		a.Logger.WithError(err).Warn("scheduler shutdown failed")
	}
}
