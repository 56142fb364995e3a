package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"subtraction-builder/internal/bootstrap"
	"subtraction-builder/internal/domain"
)

// checkCommand prints worker diagnostics, optionally repairing failures first.
func checkCommand(c *cli.Context) error {
	log := newLogger(c)
	ctx, stop := signalContext()
	defer stop()

	app, err := bootstrap.New(ctx, log, c.String("config"))
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	report := app.GetDiagnostics()
	if c.Bool("fix") && report.HasFailures {
		failed := make([]domain.DiagnosticItem, 0, len(report.Items))
		for _, item := range report.Items {
			if item.Status == domain.DiagnosticStatusFail {
				failed = append(failed, item)
			}
		}
		for _, item := range failed {
			fmt.Printf("Fixing %s...\n", item.Name)
			if _, fixErr := app.InstallOrFixDiagnostic(ctx, item.ID); fixErr != nil {
				fmt.Printf("  could not fix %s: %v\n", item.Name, fixErr)
			}
		}

		report, err = app.RefreshDiagnostics(ctx)
		if err != nil {
			return err
		}
		fmt.Println()
	}

	printReport(report)
	if report.HasFailures {
		return fmt.Errorf("%d check(s) failed", countFailures(report))
	}
	return nil
}

// printReport renders each diagnostic check with its status.
func printReport(report domain.DiagnosticReport) {
	for _, item := range report.Items {
		marker := " ok "
		if item.Status == domain.DiagnosticStatusFail {
			marker = "FAIL"
		}
		fmt.Printf("[%s] %-18s %s\n", marker, item.Name, item.Message)
		if item.Status == domain.DiagnosticStatusFail && item.Hint != "" {
			fmt.Printf("       hint: %s\n", item.Hint)
		}
	}
}

// countFailures tallies failed items in a report.
func countFailures(report domain.DiagnosticReport) int {
	count := 0
	for _, item := range report.Items {
		if item.Status == domain.DiagnosticStatusFail {
			count++
		}
	}
	return count
}
