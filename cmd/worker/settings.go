package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"subtraction-builder/internal/bootstrap"
	"subtraction-builder/internal/config"
	"subtraction-builder/internal/domain"
)

// settingsFlagNames lists the flags that map onto persisted settings fields.
var settingsFlagNames = []string{
	"data-dir", "work-dir", "processes", "mongo-uri", "mongo-db", "bowtie2-path",
}

// settingsCommand shows the persisted worker settings, or updates the fields
// given as flags and persists the result.
func settingsCommand(c *cli.Context) error {
	log := newLogger(c)
	ctx, stop := signalContext()
	defer stop()

	app, err := bootstrap.New(ctx, log, c.String("config"))
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	current, err := app.GetSettings()
	if err != nil {
		return err
	}

	if !anySettingsFlagSet(c) {
		printSettings(c, current)
		return nil
	}

	saved, err := app.SaveSettings(ctx, applyOverrides(c, current))
	if err != nil {
		return err
	}

	fmt.Println("Settings saved.")
	printSettings(c, saved)
	if report := app.GetDiagnostics(); report.HasFailures {
		fmt.Println()
		fmt.Printf("Some checks fail with these settings, run `%s check` for details.\n", c.App.Name)
	}
	return nil
}

// anySettingsFlagSet reports whether the invocation asked for changes.
func anySettingsFlagSet(c *cli.Context) bool {
	for _, name := range settingsFlagNames {
		if c.IsSet(name) {
			return true
		}
	}
	return false
}

// printSettings renders the settings file location and every field.
func printSettings(c *cli.Context, settings domain.Settings) {
	path := c.String("config")
	if path == "" {
		if defaultPath, err := config.DefaultPath(); err == nil {
			path = defaultPath
		}
	}
	if path != "" {
		fmt.Printf("Settings file: %s\n\n", path)
	}

	mongoURI := settings.MongoURI
	if mongoURI == "" {
		mongoURI = "(in-memory store)"
	}
	bowtie2 := settings.Bowtie2Path
	if bowtie2 == "" {
		bowtie2 = "(PATH lookup)"
	}

	fmt.Printf("%-15s %s\n", "dataDir", settings.DataDir)
	fmt.Printf("%-15s %s\n", "workDir", settings.WorkDir)
	fmt.Printf("%-15s %s\n", "mongoUri", mongoURI)
	fmt.Printf("%-15s %s\n", "mongoDatabase", settings.MongoDatabase)
	fmt.Printf("%-15s %d\n", "processes", settings.Processes)
	fmt.Printf("%-15s %s\n", "bowtie2Path", bowtie2)
}
