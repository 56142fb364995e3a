// Package bootstrap wires settings, the document store, diagnostics, the
// job manager and the build pipeline into one worker application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"subtraction-builder/internal/config"
	"subtraction-builder/internal/diagnostics"
	"subtraction-builder/internal/domain"
	"subtraction-builder/internal/index"
	"subtraction-builder/internal/jobs"
	"subtraction-builder/internal/pipeline"
	"subtraction-builder/internal/store"
	"subtraction-builder/internal/subtraction"
)

// App wires configuration, the document store, jobs and the build pipeline.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	DB          store.Store
	Jobs        *jobs.Manager
	Pipeline    buildRunner
	Diagnostics domain.DiagnosticReport

	checker *diagnostics.Checker
	log     *slog.Logger

	mu          sync.Mutex
	activeJobID string
	cancel      context.CancelFunc
	done        chan struct{}
	events      *jobs.EventBus
}

// buildRunner isolates the subtraction pipeline behind an interface.
type buildRunner interface {
	Run(ctx context.Context, req subtraction.Request) (subtraction.Result, error)
}

// BuildRequest identifies the subtraction to build and its uploaded FASTA.
type BuildRequest struct {
	SubtractionID string
	FileID        string
}

// New builds the application from the settings file at configPath, falling
// back to the default location when configPath is empty.
func New(ctx context.Context, log *slog.Logger, configPath string) (*App, error) {
	path := configPath
	if path == "" {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("resolve settings path: %w", err)
		}
		path = defaultPath
	}

	settingsStore := config.NewJSONStore(path)
	settings, err := settingsStore.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings from %s: %w", path, err)
	}
	return NewWithStore(ctx, log, settingsStore, settings)
}

// NewWithStore builds the application with an explicit settings store and
// already-loaded settings, letting callers apply flag overrides first.
func NewWithStore(ctx context.Context, log *slog.Logger, settingsStore config.Store, settings domain.Settings) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	settings = config.Normalize(settings)

	db, err := connectStore(ctx, settings, log)
	if err != nil {
		return nil, err
	}

	checker := diagnostics.NewChecker()
	app := &App{
		Settings: settings,
		Store:    settingsStore,
		DB:       db,
		Jobs:     jobs.NewManager(),
		Pipeline: subtraction.NewPipeline(db, index.NewBuilderWith(settings.Bowtie2Path, index.ExecRunner{}), log),
		checker:  checker,
		log:      log,
		events:   jobs.NewEventBus(1000),
	}
	app.Diagnostics = checker.Run(ctx, settings, db.Ping)
	return app, nil
}

// Close releases the document store connection.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	db := a.DB
	a.mu.Unlock()
	return db.Close(ctx)
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns all worker checks.
func (a *App) RefreshDiagnostics(ctx context.Context) (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = config.Normalize(settings)

	a.mu.Lock()
	db := a.DB
	a.mu.Unlock()

	report := a.checker.Run(ctx, settings, db.Ping)
	a.mu.Lock()
	a.Settings = settings
	a.Diagnostics = report
	a.mu.Unlock()
	return report, nil
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()
	return settings, nil
}

// SaveSettings normalizes and persists settings, reconnects the document
// store when its location changed, and refreshes diagnostics.
func (a *App) SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	if a.Jobs.IsActive() {
		return domain.Settings{}, errors.New("cannot change settings while a build is running")
	}

	normalized := config.Normalize(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	previous := a.Settings
	a.Settings = normalized
	a.mu.Unlock()

	if normalized.MongoURI != previous.MongoURI || normalized.MongoDatabase != previous.MongoDatabase {
		db, err := connectStore(ctx, normalized, a.log)
		if err != nil {
			return domain.Settings{}, err
		}
		a.mu.Lock()
		old := a.DB
		a.DB = db
		a.Pipeline = subtraction.NewPipeline(db, index.NewBuilderWith(normalized.Bowtie2Path, index.ExecRunner{}), a.log)
		a.mu.Unlock()
		_ = old.Close(ctx)
	} else if normalized.Bowtie2Path != previous.Bowtie2Path {
		a.mu.Lock()
		a.Pipeline = subtraction.NewPipeline(a.DB, index.NewBuilderWith(normalized.Bowtie2Path, index.ExecRunner{}), a.log)
		a.mu.Unlock()
	}

	a.mu.Lock()
	db := a.DB
	a.mu.Unlock()
	report := a.checker.Run(ctx, normalized, db.Ping)

	a.mu.Lock()
	a.Diagnostics = report
	a.mu.Unlock()
	return normalized, nil
}

// StartBuild registers a job and runs it asynchronously. The worker accepts
// one build at a time.
func (a *App) StartBuild(req BuildRequest) (domain.Job, error) {
	if strings.TrimSpace(req.SubtractionID) == "" {
		return domain.Job{}, errors.New("subtraction id is required")
	}
	if strings.TrimSpace(req.FileID) == "" {
		return domain.Job{}, errors.New("file id is required")
	}

	jobID := uuid.NewString()
	if err := a.Jobs.Start(jobID, req.SubtractionID); err != nil {
		return domain.Job{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	a.mu.Lock()
	settings := a.Settings
	a.activeJobID = jobID
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	a.publishStatus(jobID, req.SubtractionID, domain.JobStatusPending, "Build queued")

	go func() {
		defer close(done)
		defer cancel()
		a.runBuild(ctx, jobID, req, settings)
	}()
	return a.Jobs.Current(), nil
}

// RunBuild registers a job and runs it on the calling goroutine, returning
// the pipeline result. It powers the blocking CLI path.
func (a *App) RunBuild(ctx context.Context, req BuildRequest) (subtraction.Result, error) {
	if strings.TrimSpace(req.SubtractionID) == "" {
		return subtraction.Result{}, errors.New("subtraction id is required")
	}
	if strings.TrimSpace(req.FileID) == "" {
		return subtraction.Result{}, errors.New("file id is required")
	}

	jobID := uuid.NewString()
	if err := a.Jobs.Start(jobID, req.SubtractionID); err != nil {
		return subtraction.Result{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.mu.Lock()
	settings := a.Settings
	a.activeJobID = jobID
	a.cancel = cancel
	a.done = nil
	a.mu.Unlock()

	a.publishStatus(jobID, req.SubtractionID, domain.JobStatusPending, "Build queued")
	return a.runBuild(ctx, jobID, req, settings)
}

// CancelBuild requests cancellation of the running build, if any.
func (a *App) CancelBuild() error {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()

	if cancel == nil {
		return jobs.ErrNoRunningJob
	}
	cancel()
	return nil
}

// Wait blocks until the current asynchronous build finishes.
func (a *App) Wait(ctx context.Context) error {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CurrentJob returns the tracked job and its status.
func (a *App) CurrentJob() domain.Job {
	return a.Jobs.Current()
}

// BuildEvents returns all events with sequence greater than sinceSeq.
func (a *App) BuildEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// runBuild executes the pipeline for one job and maps outcomes to events.
func (a *App) runBuild(ctx context.Context, jobID string, req BuildRequest, settings domain.Settings) (subtraction.Result, error) {
	defer a.clearActiveJob(jobID)

	request := subtraction.Request{
		SubtractionID: req.SubtractionID,
		FileID:        req.FileID,
		DataDir:       settings.DataDir,
		WorkDir:       settings.WorkDir,
		Procs:         settings.Processes,
		OnStatus: func(status domain.JobStatus) {
			if err := a.Jobs.Transition(status); err == nil {
				a.publishStatus(jobID, req.SubtractionID, status, statusMessage(status))
			}
		},
		OnStep: func(result pipeline.StepResult) {
			event := jobs.Event{
				JobID:         jobID,
				SubtractionID: req.SubtractionID,
				Type:          jobs.EventTypeStep,
				Step:          result.Name,
				StepStatus:    string(result.Status),
			}
			if result.Err != nil {
				event.Message = result.Err.Error()
			}
			a.events.Publish(event)
		},
	}

	a.mu.Lock()
	pipe := a.Pipeline
	a.mu.Unlock()

	result, err := pipe.Run(ctx, request)
	if err != nil {
		a.events.Publish(jobs.Event{
			JobID:         jobID,
			SubtractionID: req.SubtractionID,
			Type:          jobs.EventTypeError,
			Status:        a.Jobs.Current().Status,
			Message:       err.Error(),
		})
		return result, err
	}

	a.events.Publish(jobs.Event{
		JobID:         jobID,
		SubtractionID: req.SubtractionID,
		Type:          jobs.EventTypeResult,
		Status:        domain.JobStatusTerminated,
		Message:       "Subtraction ready",
		FinalDir:      result.Job.FinalDir,
	})
	return result, nil
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(jobID, subtractionID string, status domain.JobStatus, message string) {
	a.events.Publish(jobs.Event{
		JobID:         jobID,
		SubtractionID: subtractionID,
		Type:          jobs.EventTypeStatus,
		Status:        status,
		Message:       message,
	})
}

// clearActiveJob clears cancellation handles for a finished job.
func (a *App) clearActiveJob(jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeJobID == jobID {
		a.activeJobID = ""
		a.cancel = nil
	}
}

// statusMessage renders a short operator-facing message per status.
func statusMessage(status domain.JobStatus) string {
	switch status {
	case domain.JobStatusRunning:
		return "Build started"
	case domain.JobStatusSucceeded:
		return "Build succeeded"
	case domain.JobStatusFailed:
		return "Build failed"
	case domain.JobStatusCancelled:
		return "Build cancelled"
	case domain.JobStatusCleaningUp:
		return "Removing partial artifacts"
	case domain.JobStatusTerminated:
		return "Build terminated"
	default:
		return ""
	}
}

// connectStore picks the document store implied by settings: MongoDB when a
// URI is configured, the in-memory store otherwise.
func connectStore(ctx context.Context, settings domain.Settings, log *slog.Logger) (store.Store, error) {
	if strings.TrimSpace(settings.MongoURI) == "" {
		log.Warn("no mongo uri configured, subtraction records will not survive restarts")
		return store.NewMemory(), nil
	}

	db, err := store.ConnectMongo(ctx, settings.MongoURI, settings.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("connect document store: %w", err)
	}
	return db, nil
}
