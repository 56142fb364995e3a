package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"subtraction-builder/internal/bootstrap"
	"subtraction-builder/internal/domain"
	"subtraction-builder/internal/pipeline"
	"subtraction-builder/internal/subtraction"
)

// runBuildCommand executes one subtraction build end to end and prints a
// per-step report plus the stats recorded for the subtraction.
func runBuildCommand(c *cli.Context) error {
	log := newLogger(c)
	ctx, stop := signalContext()
	defer stop()

	settingsStore, settings, err := loadSettings(c)
	if err != nil {
		return err
	}
	settings = applyOverrides(c, settings)

	app, err := bootstrap.NewWithStore(ctx, log, settingsStore, settings)
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	report := app.GetDiagnostics()
	if report.HasFailures {
		printReport(report)
		return fmt.Errorf("environment is not ready, see failed checks above (try `%s check --fix`)", c.App.Name)
	}

	result, runErr := app.RunBuild(ctx, bootstrap.BuildRequest{
		SubtractionID: c.String("subtraction-id"),
		FileID:        c.String("file-id"),
	})
	printSteps(result.Steps)
	if runErr != nil {
		return runErr
	}

	printSummary(result)
	return nil
}

// applyOverrides layers run flags over persisted settings without saving them.
func applyOverrides(c *cli.Context, settings domain.Settings) domain.Settings {
	if c.IsSet("data-dir") {
		settings.DataDir = c.String("data-dir")
	}
	if c.IsSet("work-dir") {
		settings.WorkDir = c.String("work-dir")
	}
	if c.IsSet("processes") {
		settings.Processes = c.Int("processes")
	}
	if c.IsSet("mongo-uri") {
		settings.MongoURI = c.String("mongo-uri")
	}
	if c.IsSet("mongo-db") {
		settings.MongoDatabase = c.String("mongo-db")
	}
	if c.IsSet("bowtie2-path") {
		settings.Bowtie2Path = c.String("bowtie2-path")
	}
	return settings
}

// printSteps renders one line per pipeline step.
func printSteps(steps []pipeline.StepResult) {
	for _, step := range steps {
		marker := " ok "
		switch step.Status {
		case pipeline.StepFailed:
			marker = "FAIL"
		case pipeline.StepCancelled:
			marker = "STOP"
		case pipeline.StepSkipped:
			marker = "skip"
		}
		fmt.Printf("[%s] %-22s %s\n", marker, step.Name, step.Duration.Round(time.Millisecond))
	}
}

// printSummary renders the finished subtraction and its recorded stats.
func printSummary(result subtraction.Result) {
	stats := result.Stats
	fmt.Println()
	fmt.Println("Subtraction ready")
	fmt.Printf("  id:         %s\n", result.Job.SubtractionID)
	fmt.Printf("  final dir:  %s\n", result.Job.FinalDir)
	fmt.Printf("  sequences:  %d\n", stats.Count)
	fmt.Printf("  bases:      %d\n", stats.TotalBases)
	fmt.Printf("  gc:         %.3f\n", stats.Composition.G+stats.Composition.C)
	fmt.Printf("  lengths:    min %d, max %d, mean %.1f, median %.1f\n",
		stats.Lengths.Min, stats.Lengths.Max, stats.Lengths.Mean, stats.Lengths.Median)
}
