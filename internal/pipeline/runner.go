// Package pipeline runs ordered job steps with startup hooks and cleanup
// handlers. Cleanup runs exactly once after a failed or cancelled run and
// never after a successful one.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"subtraction-builder/internal/domain"
)

// cleanupTimeout bounds how long cleanup handlers may run after the job
// context is already gone.
const cleanupTimeout = 5 * time.Minute

// ErrAlreadyRan is returned when a runner is reused for a second job.
var ErrAlreadyRan = errors.New("pipeline runner already ran")

// StepFn is one unit of pipeline work. Implementations must honour ctx so
// cancellation interrupts the run mid-step.
type StepFn func(ctx context.Context) error

// Step pairs a StepFn with the name used in logs and events.
type Step struct {
	Name string
	Fn   StepFn
}

// CleanupFn undoes partial artifacts after a failed or cancelled run. It
// receives a fresh context because the job context is already cancelled, and
// it must tolerate partial state.
type CleanupFn func(ctx context.Context) error

// StepStatus is the outcome of a single step.
type StepStatus string

const (
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
	StepCancelled StepStatus = "cancelled"
	StepSkipped   StepStatus = "skipped"
)

// StepResult records the outcome of one step.
type StepResult struct {
	Name     string
	Status   StepStatus
	Err      error
	Duration time.Duration
}

// Hooks receives lifecycle notifications while a runner executes. Either
// callback may be nil.
type Hooks struct {
	OnStatus func(domain.JobStatus)
	OnStep   func(StepResult)
}

// Runner executes one job: startup hooks, then ordered steps. Registered
// cleanup handlers run in reverse order exactly once when the job fails or
// is cancelled.
type Runner struct {
	log   *slog.Logger
	hooks Hooks

	mu       sync.RWMutex
	status   domain.JobStatus
	results  []StepResult
	cleanups []CleanupFn
	cleaned  bool
	started  bool
}

// NewRunner returns a runner in the pending state.
func NewRunner(log *slog.Logger, hooks Hooks) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{log: log, hooks: hooks, status: domain.JobStatusPending}
}

// RegisterCleanup adds a handler for the failure and cancellation paths.
// Handlers run newest-first.
func (r *Runner) RegisterCleanup(fn CleanupFn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanups = append(r.cleanups, fn)
}

// Status returns the runner's current lifecycle status.
func (r *Runner) Status() domain.JobStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Results returns the per-step outcomes recorded so far.
func (r *Runner) Results() []StepResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]StepResult, len(r.results))
	copy(out, r.results)
	return out
}

// Run executes startup hooks and steps strictly in order and returns the
// first error. On failure or cancellation it runs cleanup before returning.
func (r *Runner) Run(ctx context.Context, startup []Step, steps []Step) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyRan
	}
	r.started = true
	r.mu.Unlock()

	r.setStatus(domain.JobStatusRunning)

	err := r.execute(ctx, startup, steps)
	if err == nil {
		r.setStatus(domain.JobStatusSucceeded)
		r.setStatus(domain.JobStatusTerminated)
		return nil
	}

	if errors.Is(err, context.Canceled) {
		r.setStatus(domain.JobStatusCancelled)
	} else {
		r.setStatus(domain.JobStatusFailed)
	}
	r.setStatus(domain.JobStatusCleaningUp)
	r.runCleanups()
	r.setStatus(domain.JobStatusTerminated)
	return err
}

// execute runs hooks and steps, marking never-started steps as skipped.
func (r *Runner) execute(ctx context.Context, startup []Step, steps []Step) error {
	for _, hook := range startup {
		if err := ctx.Err(); err != nil {
			r.skipFrom(steps, 0)
			return err
		}
		if err := hook.Fn(ctx); err != nil {
			r.skipFrom(steps, 0)
			return fmt.Errorf("%s: %w", hook.Name, err)
		}
	}

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			r.skipFrom(steps, i)
			return err
		}
		if err := r.await(ctx, step); err != nil {
			r.skipFrom(steps, i+1)
			return err
		}
	}
	return nil
}

// await runs one step on its own goroutine and waits for it to finish, so a
// cancelled context is observed even while the step is blocked.
func (r *Runner) await(ctx context.Context, step Step) error {
	r.log.Info("step started", "step", step.Name)
	start := time.Now()

	done := make(chan error, 1)
	go func() {
		done <- step.Fn(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		// The step watches ctx too; wait for it to unwind.
		err = <-done
		if err == nil {
			err = ctx.Err()
		}
	}

	result := StepResult{Name: step.Name, Err: err, Duration: time.Since(start)}
	switch {
	case err == nil:
		result.Status = StepSucceeded
		r.log.Info("step finished", "step", step.Name, "duration", result.Duration)
	case errors.Is(err, context.Canceled):
		result.Status = StepCancelled
		r.log.Warn("step cancelled", "step", step.Name)
	default:
		result.Status = StepFailed
		r.log.Error("step failed", "step", step.Name, "error", err)
	}
	r.record(result)

	if err != nil {
		return fmt.Errorf("step %s: %w", step.Name, err)
	}
	return nil
}

// runCleanups invokes registered handlers newest-first exactly once.
// Handler errors are logged and swallowed so they never mask the job error.
func (r *Runner) runCleanups() {
	r.mu.Lock()
	if r.cleaned {
		r.mu.Unlock()
		return
	}
	r.cleaned = true
	handlers := make([]CleanupFn, len(r.cleanups))
	copy(handlers, r.cleanups)
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	for i := len(handlers) - 1; i >= 0; i-- {
		if err := handlers[i](ctx); err != nil {
			r.log.Warn("cleanup handler failed", "error", err)
		}
	}
}

// setStatus records a transition and notifies the status hook.
func (r *Runner) setStatus(status domain.JobStatus) {
	r.mu.Lock()
	r.status = status
	r.mu.Unlock()

	if r.hooks.OnStatus != nil {
		r.hooks.OnStatus(status)
	}
}

// record appends a step result and notifies the step hook.
func (r *Runner) record(result StepResult) {
	r.mu.Lock()
	r.results = append(r.results, result)
	r.mu.Unlock()

	if r.hooks.OnStep != nil {
		r.hooks.OnStep(result)
	}
}

// skipFrom records skipped results for steps that never started.
func (r *Runner) skipFrom(steps []Step, start int) {
	for _, step := range steps[start:] {
		r.record(StepResult{Name: step.Name, Status: StepSkipped})
	}
}
