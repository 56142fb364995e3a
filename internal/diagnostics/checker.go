// Package diagnostics validates that the worker can actually run builds:
// the indexer binary, the data and work directories, and the document store.
package diagnostics

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"subtraction-builder/internal/domain"
)

// storePingTimeout bounds the document store reachability probe.
const storePingTimeout = 5 * time.Second

// Checker validates external tools and required filesystem paths.
type Checker struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all worker checks and returns a combined report. ping probes
// the document store and may be nil when no store is connected.
func (c *Checker) Run(ctx context.Context, settings domain.Settings, ping func(context.Context) error) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkIndexerTool(settings.Bowtie2Path),
		c.checkWritableDir("data_dir", "Data directory", settings.DataDir, "files", "subtractions"),
		c.checkWritableDir("work_dir", "Work directory", settings.WorkDir),
		c.checkStore(ctx, settings.MongoURI, ping),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkIndexerTool verifies the bowtie2-build binary is reachable, honouring
// an explicitly configured location over PATH lookup.
func (c *Checker) checkIndexerTool(configured string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "tool_bowtie2-build",
		Name: "bowtie2-build",
	}

	if strings.TrimSpace(configured) != "" {
		info, err := c.stat(configured)
		if err != nil {
			item.Status = domain.DiagnosticStatusFail
			item.Message = fmt.Sprintf("Configured indexer not found: %s", configured)
			item.Hint = "Fix the bowtie2Path setting or clear it to use PATH lookup."
			return item
		}
		if info.IsDir() {
			item.Status = domain.DiagnosticStatusFail
			item.Message = fmt.Sprintf("Configured indexer path is a directory: %s", configured)
			item.Hint = "Point bowtie2Path at the bowtie2-build binary itself."
			return item
		}
		item.Status = domain.DiagnosticStatusPass
		item.Message = fmt.Sprintf("Found at %s", configured)
		return item
	}

	path, err := c.lookPath("bowtie2-build")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Tool not found in PATH: bowtie2-build"
		item.Hint = "Install bowtie2 and ensure bowtie2-build is available on PATH before starting a build."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Found at %s", path)
	return item
}

// checkWritableDir validates a directory exists (creating it and any listed
// subdirectories) and accepts writes.
func (c *Checker) checkWritableDir(id, name, dir string, subdirs ...string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   id,
		Name: name,
	}

	if strings.TrimSpace(dir) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("%s is not configured.", name)
		item.Hint = "Set the directory in settings before starting a build."
		return item
	}

	if err := c.mkdirAll(dir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create directory: %s", dir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}
	for _, sub := range subdirs {
		if err := c.mkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			item.Status = domain.DiagnosticStatusFail
			item.Message = fmt.Sprintf("Cannot create subdirectory: %s", filepath.Join(dir, sub))
			item.Hint = "Choose a writable location or adjust filesystem permissions."
			return item
		}
	}

	tmpFile, err := c.createTemp(dir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Directory is not writable: %s", dir)
		item.Hint = "Choose a writable directory."
		return item
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", dir)
	return item
}

// checkStore probes the document store. An empty URI means the in-memory
// store, which always passes with a warning message.
func (c *Checker) checkStore(ctx context.Context, uri string, ping func(context.Context) error) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "database",
		Name: "Document store",
	}

	if strings.TrimSpace(uri) == "" {
		item.Status = domain.DiagnosticStatusPass
		item.Message = "Using the in-memory store; records will not survive restarts."
		return item
	}
	if ping == nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Document store is not connected."
		item.Hint = "Check the mongoUri setting and that the deployment is running."
		return item
	}

	pingCtx, cancel := context.WithTimeout(ctx, storePingTimeout)
	defer cancel()
	if err := ping(pingCtx); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot reach %s: %v", uri, err)
		item.Hint = "Check the mongoUri setting and that the deployment is running."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Connected to %s", uri)
	return item
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		stat:       stat,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
