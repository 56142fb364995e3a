package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"subtraction-builder/internal/bootstrap"
	"subtraction-builder/internal/domain"
)

// fetchCommand lists the host genome catalog or downloads one entry into
// the data files directory.
func fetchCommand(c *cli.Context) error {
	log := newLogger(c)
	ctx, stop := signalContext()
	defer stop()

	app, err := bootstrap.New(ctx, log, c.String("config"))
	if err != nil {
		return err
	}
	defer app.Close(context.Background())

	id := c.Args().First()
	if id == "" {
		printGenomeCatalog(app.HostGenomes())
		return nil
	}

	fileID, err := app.FetchHostGenome(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", fileID)
	fmt.Printf("Build with: %s run --subtraction-id %s --file-id %s\n", c.App.Name, id, fileID)
	return nil
}

// printGenomeCatalog renders the built-in host genome presets.
func printGenomeCatalog(genomes []domain.HostGenomeOption) {
	for _, genome := range genomes {
		marker := " "
		if genome.Downloaded {
			marker = "*"
		}
		fmt.Printf("%s %-20s %-22s %-9s %s\n", marker, genome.ID, genome.Name, genome.SizeLabel, genome.Description)
	}
	fmt.Println()
	fmt.Println("* already downloaded. Fetch one with: subtraction-worker fetch <genome-id>")
}
