package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"subtraction-builder/internal/config"
	"subtraction-builder/internal/domain"
)

const appVersion = "0.1.0"

func main() {
	app := &cli.App{
		Name:    "subtraction-worker",
		Usage:   "Build Bowtie2 subtraction indexes from host genome uploads",
		Version: appVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Settings file path",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Build one subtraction from an uploaded FASTA file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "subtraction-id",
						Usage:    "Subtraction to build",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "file-id",
						Usage:    "Upload id under <dataDir>/files",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "data-dir",
						Usage: "Override the data directory",
					},
					&cli.StringFlag{
						Name:  "work-dir",
						Usage: "Override the working directory",
					},
					&cli.IntFlag{
						Name:    "processes",
						Aliases: []string{"p"},
						Usage:   "Override the indexing and compression process count",
					},
					&cli.StringFlag{
						Name:  "mongo-uri",
						Usage: "Override the document store URI (empty selects the in-memory store)",
					},
					&cli.StringFlag{
						Name:  "mongo-db",
						Usage: "Override the document store database name",
					},
					&cli.StringFlag{
						Name:  "bowtie2-path",
						Usage: "Override the bowtie2-build executable path",
					},
				},
				Action: runBuildCommand,
			},
			{
				Name:  "check",
				Usage: "Run worker diagnostics",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "fix",
						Usage: "Attempt to repair failed checks",
					},
				},
				Action: checkCommand,
			},
			{
				Name:      "fetch",
				Usage:     "List or download host genomes from the built-in catalog",
				ArgsUsage: "[genome-id]",
				Action:    fetchCommand,
			},
			{
				Name:  "settings",
				Usage: "Show persisted settings, or change the fields given as flags",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "data-dir",
						Usage: "Directory holding uploads and finished subtractions",
					},
					&cli.StringFlag{
						Name:  "work-dir",
						Usage: "Directory for ephemeral build workspaces",
					},
					&cli.IntFlag{
						Name:    "processes",
						Aliases: []string{"p"},
						Usage:   "Indexing and compression process count",
					},
					&cli.StringFlag{
						Name:  "mongo-uri",
						Usage: "Document store URI (empty selects the in-memory store)",
					},
					&cli.StringFlag{
						Name:  "mongo-db",
						Usage: "Document store database name",
					},
					&cli.StringFlag{
						Name:  "bowtie2-path",
						Usage: "Explicit bowtie2-build executable path (empty uses PATH lookup)",
					},
				},
				Action: settingsCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the worker logger; --verbose enables debug records.
func newLogger(c *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadSettings reads settings from --config or the default location.
func loadSettings(c *cli.Context) (config.Store, domain.Settings, error) {
	path := c.String("config")
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return nil, domain.Settings{}, fmt.Errorf("resolve settings path: %w", err)
		}
		path = defaultPath
	}

	settingsStore := config.NewJSONStore(path)
	settings, err := settingsStore.Load()
	if err != nil {
		return nil, domain.Settings{}, fmt.Errorf("load settings from %s: %w", path, err)
	}
	return settingsStore, settings, nil
}

// signalContext cancels on interrupt or termination so a build can run its
// cleanup handlers before the process exits.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
