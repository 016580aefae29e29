// Command verify compares the two stores and exits nonzero when any
// check fails, so it can gate phase advancement and the read cutover in
// a pipeline. --thorough compares every record instead of a sample.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/neerajsamtani/ledgershift/internal/app"
	"github.com/neerajsamtani/ledgershift/pkg/verify"
)

func main() {
	thorough := flag.Bool("thorough", false, "compare every record instead of a random sample")
	flag.Parse()

	ctx := context.Background()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close(ctx)

	mode := verify.ModeSpotCheck
	if *thorough {
		mode = verify.ModeThorough
	}

	result, err := a.Verifier.Run(ctx, mode)
	if err != nil {
		a.Logger.WithError(err).Error("verification failed to run")
		os.Exit(1)
	}

	out, jsonErr := json.MarshalIndent(result, "", "  ")
	if jsonErr == nil {
		fmt.Println(string(out))
	}

	if !result.Passed() {
		fmt.Fprintln(os.Stderr, "verification FAILED")
		os.Exit(1)
	}
	fmt.Println("verification passed")
}
