// Package subtraction implements the build pipeline for host subtraction
// indexes: stage the uploaded FASTA, persist its stats, run the external
// indexer, and publish the artifacts into permanent storage.
package subtraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"subtraction-builder/internal/domain"
	"subtraction-builder/internal/fasta"
	"subtraction-builder/internal/finalize"
	"subtraction-builder/internal/index"
	"subtraction-builder/internal/pipeline"
	"subtraction-builder/internal/staging"
	"subtraction-builder/internal/store"
)

// Request describes one subtraction build.
type Request struct {
	SubtractionID string
	FileID        string
	DataDir       string
	WorkDir       string
	Procs         int

	// OnStatus and OnStep forward lifecycle updates to the caller. Either
	// may be nil.
	OnStatus func(domain.JobStatus)
	OnStep   func(pipeline.StepResult)
}

// Result reports where a finished subtraction lives and what was measured.
type Result struct {
	Job   domain.SubtractionJob
	Stats fasta.Stats
	Steps []pipeline.StepResult
}

// Pipeline runs subtraction builds against a document store and an index
// builder. A failed or cancelled build leaves no directories and no record
// behind.
type Pipeline struct {
	store   store.Store
	indexer *index.Builder
	log     *slog.Logger
}

// NewPipeline wires a build pipeline from its collaborators.
func NewPipeline(st store.Store, indexer *index.Builder, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{store: st, indexer: indexer, log: log}
}

// Run executes the full build for req and blocks until it terminates.
// The returned Result carries per-step outcomes even on failure.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	if err := validateRequest(req); err != nil {
		return Result{}, err
	}

	procs := req.Procs
	if procs < 1 {
		procs = 1
	}

	runner := pipeline.NewRunner(p.log, pipeline.Hooks{
		OnStatus: req.OnStatus,
		OnStep:   req.OnStep,
	})

	job := &domain.SubtractionJob{}
	var stats fasta.Stats

	startup := []pipeline.Step{
		{Name: "resolve_paths", Fn: func(context.Context) error {
			*job = staging.ResolvePaths(req.SubtractionID, req.FileID, req.DataDir, req.WorkDir)
			job.Procs = procs
			return nil
		}},
		{Name: "register_cleanup", Fn: func(context.Context) error {
			runner.RegisterCleanup(p.cleanupJob(job))
			return nil
		}},
	}

	steps := []pipeline.Step{
		{Name: "make_subtraction_dir", Fn: func(context.Context) error {
			return staging.EnsureWorkingDir(job.WorkingDir)
		}},
		{Name: "unpack", Fn: func(ctx context.Context) error {
			return staging.StageInput(ctx, job.SourcePath, job.FastaPath, job.Procs)
		}},
		{Name: "set_stats", Fn: func(ctx context.Context) error {
			s, err := fasta.Analyze(ctx, job.FastaPath)
			if err != nil {
				return err
			}
			stats = s
			return p.store.UpdateStats(ctx, job.SubtractionID, s.Composition, s.Count, s.Lengths)
		}},
		{Name: "build_index", Fn: func(ctx context.Context) error {
			if err := p.indexer.Build(ctx, job.FastaPath, job.IndexPrefix, job.Procs); err != nil {
				return err
			}
			return p.store.SetReady(ctx, job.SubtractionID)
		}},
		{Name: "finalize", Fn: func(ctx context.Context) error {
			if _, err := finalize.Compress(ctx, job.FastaPath, job.Procs); err != nil {
				return err
			}
			return finalize.Relocate(ctx, job.WorkingDir, job.FinalDir, job.Procs)
		}},
	}

	err := runner.Run(ctx, startup, steps)
	result := Result{Job: *job, Stats: stats, Steps: runner.Results()}
	if err != nil {
		return result, err
	}

	p.log.Info("subtraction build finished",
		"subtraction", job.SubtractionID,
		"finalDir", job.FinalDir,
		"records", stats.Count,
	)
	return result, nil
}

// cleanupJob returns the handler erasing all traces of an aborted build:
// the working tree, any partially published final tree, and the record.
func (p *Pipeline) cleanupJob(job *domain.SubtractionJob) pipeline.CleanupFn {
	return func(ctx context.Context) error {
		var errs []error
		if job.WorkingDir != "" {
			if err := finalize.RemoveTree(job.WorkingDir); err != nil {
				errs = append(errs, fmt.Errorf("remove working dir: %w", err))
			}
		}
		if job.FinalDir != "" {
			if err := finalize.RemoveTree(job.FinalDir); err != nil {
				errs = append(errs, fmt.Errorf("remove final dir: %w", err))
			}
		}
		if job.SubtractionID != "" {
			if err := p.store.Delete(ctx, job.SubtractionID); err != nil {
				errs = append(errs, fmt.Errorf("delete record: %w", err))
			}
		}
		return errors.Join(errs...)
	}
}

// validateRequest rejects builds that cannot resolve their paths.
func validateRequest(req Request) error {
	if req.SubtractionID == "" {
		return errors.New("subtraction id is required")
	}
	if req.FileID == "" {
		return errors.New("file id is required")
	}
	if req.DataDir == "" {
		return errors.New("data directory is required")
	}
	if req.WorkDir == "" {
		return errors.New("work directory is required")
	}
	return nil
}
