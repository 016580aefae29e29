// Command migrate runs the batch migration phases against the new store.
// Phases are idempotent and independently invokable; running with no
// -phase flag runs all of them in dependency order.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/neerajsamtani/ledgershift/internal/app"
	"github.com/neerajsamtani/ledgershift/pkg/models"
)

func main() {
	phase := flag.String("phase", "", "phase to run (reference, transactions, line_items, relationships, auxiliary); empty runs all")
	skipSchema := flag.Bool("skip-schema", false, "skip applying schema migrations before running phases")
	flag.Parse()

	ctx := context.Background()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close(ctx)

	if !*skipSchema {
		if err := a.MigrateSchema(); err != nil {
			a.Logger.WithError(err).Error("schema migration failed")
			os.Exit(1)
		}
	}

	var reports []*models.PhaseReport
	if *phase == "" {
		reports, err = a.Migrator.RunAll(ctx)
	} else {
		var report *models.PhaseReport
		report, err = a.Migrator.RunPhase(ctx, *phase)
		if report != nil {
			reports = append(reports, report)
		}
	}

	printReports(reports)

	if err != nil {
		a.Logger.WithError(err).Error("migration failed")
		os.Exit(1)
	}
}

func printReports(reports []*models.PhaseReport) {
	for _, report := range reports {
		out, jsonErr := json.MarshalIndent(report, "", "  ")
		if jsonErr != nil {
			fmt.Printf("%s: migrated=%d skipped=%d errored=%d\n",
				report.Phase, report.Migrated, report.Skipped, report.Errored)
			continue
		}
		fmt.Println(string(out))
	}
}
