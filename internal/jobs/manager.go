package jobs

import (
	"errors"
	"fmt"
	"sync"

	"subtraction-builder/internal/domain"
)

// ErrJobAlreadyRunning is returned when starting a second build while one
// still occupies the worker.
var ErrJobAlreadyRunning = errors.New("build already running")

// ErrNoRunningJob is returned when cancel is requested while idle.
var ErrNoRunningJob = errors.New("no running build")

// Manager tracks the single allowed build job and validates its lifecycle
// transitions. A job occupies the worker from Start until it reaches
// terminated.
type Manager struct {
	mu      sync.RWMutex
	current domain.Job
}

// NewManager creates a manager with no tracked job.
func NewManager() *Manager {
	return &Manager{}
}

// Start registers a new pending build. It fails while an earlier job has
// not yet reached terminated.
func (m *Manager) Start(jobID, subtractionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isActive(m.current.Status) {
		return ErrJobAlreadyRunning
	}

	m.current = domain.Job{
		ID:            jobID,
		SubtractionID: subtractionID,
		Status:        domain.JobStatusPending,
	}
	return nil
}

// Transition validates and applies a state change for the current job.
func (m *Manager) Transition(status domain.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" {
		return fmt.Errorf("cannot transition without an active job")
	}
	if status == m.current.Status {
		return nil
	}
	if !isValidTransition(m.current.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, status)
	}

	m.current.Status = status
	return nil
}

// Current returns a snapshot of the tracked job.
func (m *Manager) Current() domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reset forgets the tracked job entirely.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = domain.Job{}
}

// IsActive reports whether a build currently occupies the worker.
func (m *Manager) IsActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isActive(m.current.Status)
}

// isActive reports whether a status still occupies the worker. Only an
// unset status and terminated leave room for the next build.
func isActive(status domain.JobStatus) bool {
	switch status {
	case "", domain.JobStatusTerminated:
		return false
	default:
		return true
	}
}

// isValidTransition enforces the allowed job state machine edges.
func isValidTransition(from, to domain.JobStatus) bool {
	switch from {
	case domain.JobStatusPending:
		return to == domain.JobStatusRunning
	case domain.JobStatusRunning:
		return to == domain.JobStatusSucceeded || to == domain.JobStatusFailed || to == domain.JobStatusCancelled
	case domain.JobStatusSucceeded:
		return to == domain.JobStatusTerminated
	case domain.JobStatusFailed, domain.JobStatusCancelled:
		return to == domain.JobStatusCleaningUp
	case domain.JobStatusCleaningUp:
		return to == domain.JobStatusTerminated
	default:
		return false
	}
}
