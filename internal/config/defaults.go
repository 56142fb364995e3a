package config

import (
	"os"
	"path/filepath"
	"runtime"

	"subtraction-builder/internal/domain"
)

// maxDefaultProcs caps the default worker count; indexing and compression
// gain little beyond this.
const maxDefaultProcs = 8

// DefaultSettings returns the baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		DataDir:       filepath.Join(homeDir, ".subtraction-builder", "data"),
		WorkDir:       filepath.Join(homeDir, ".subtraction-builder", "work"),
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "subtraction_builder",
		Processes:     defaultProcs(),
	}
}

// Normalize fills unset fields with defaults. MongoURI is left alone: an
// empty URI deliberately selects the in-memory store.
func Normalize(cfg domain.Settings) domain.Settings {
	defaults := DefaultSettings()
	if cfg.DataDir == "" {
		cfg.DataDir = defaults.DataDir
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = defaults.WorkDir
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = defaults.MongoDatabase
	}
	if cfg.Processes < 1 {
		cfg.Processes = defaults.Processes
	}
	return cfg
}

// defaultProcs derives the worker count from the machine, capped.
func defaultProcs() int {
	procs := runtime.NumCPU()
	if procs > maxDefaultProcs {
		procs = maxDefaultProcs
	}
	if procs < 1 {
		procs = 1
	}
	return procs
}
