package jobs

import (
	"errors"
	"testing"

	"subtraction-builder/internal/domain"
)

// TestStartRegistersPendingJob verifies the initial job state.
func TestStartRegistersPendingJob(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1", "host_1"); err != nil {
		t.Fatalf("start: %v", err)
	}

	job := m.Current()
	if job.ID != "job-1" {
		t.Fatalf("id = %s, want job-1", job.ID)
	}
	if job.SubtractionID != "host_1" {
		t.Fatalf("subtraction id = %s, want host_1", job.SubtractionID)
	}
	if job.Status != domain.JobStatusPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}
	if !m.IsActive() {
		t.Fatal("expected manager to be active after start")
	}
}

// TestStartRejectsSecondJob verifies single-job occupancy.
func TestStartRejectsSecondJob(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1", "host_1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Start("job-2", "host_2"); !errors.Is(err, ErrJobAlreadyRunning) {
		t.Fatalf("err = %v, want ErrJobAlreadyRunning", err)
	}
}

// TestStartAllowedAfterTerminated verifies the worker frees up at terminated.
func TestStartAllowedAfterTerminated(t *testing.T) {
	m := NewManager()
	mustStart(t, m, "job-1", "host_1")
	mustTransition(t, m, domain.JobStatusRunning)
	mustTransition(t, m, domain.JobStatusSucceeded)
	mustTransition(t, m, domain.JobStatusTerminated)

	if m.IsActive() {
		t.Fatal("terminated job must not occupy the worker")
	}
	if err := m.Start("job-2", "host_2"); err != nil {
		t.Fatalf("start after terminated: %v", err)
	}
}

// TestSuccessPathTransitions verifies the succeeded lifecycle edges.
func TestSuccessPathTransitions(t *testing.T) {
	m := NewManager()
	mustStart(t, m, "job-1", "host_1")

	for _, status := range []domain.JobStatus{
		domain.JobStatusRunning,
		domain.JobStatusSucceeded,
		domain.JobStatusTerminated,
	} {
		if err := m.Transition(status); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}
}

// TestFailurePathTransitions verifies failed jobs must pass through cleanup.
func TestFailurePathTransitions(t *testing.T) {
	m := NewManager()
	mustStart(t, m, "job-1", "host_1")
	mustTransition(t, m, domain.JobStatusRunning)
	mustTransition(t, m, domain.JobStatusFailed)

	if err := m.Transition(domain.JobStatusTerminated); err == nil {
		t.Fatal("failed job must not skip cleaning_up")
	}
	mustTransition(t, m, domain.JobStatusCleaningUp)
	mustTransition(t, m, domain.JobStatusTerminated)
}

// TestCancelledPathTransitions verifies cancelled jobs clean up too.
func TestCancelledPathTransitions(t *testing.T) {
	m := NewManager()
	mustStart(t, m, "job-1", "host_1")
	mustTransition(t, m, domain.JobStatusRunning)
	mustTransition(t, m, domain.JobStatusCancelled)
	mustTransition(t, m, domain.JobStatusCleaningUp)
	mustTransition(t, m, domain.JobStatusTerminated)
}

// TestSucceededSkipsCleanup verifies success never enters cleaning_up.
func TestSucceededSkipsCleanup(t *testing.T) {
	m := NewManager()
	mustStart(t, m, "job-1", "host_1")
	mustTransition(t, m, domain.JobStatusRunning)
	mustTransition(t, m, domain.JobStatusSucceeded)

	if err := m.Transition(domain.JobStatusCleaningUp); err == nil {
		t.Fatal("succeeded job must not enter cleaning_up")
	}
}

// TestInvalidTransitions verifies a few forbidden edges.
func TestInvalidTransitions(t *testing.T) {
	m := NewManager()
	mustStart(t, m, "job-1", "host_1")

	if err := m.Transition(domain.JobStatusSucceeded); err == nil {
		t.Fatal("pending -> succeeded must be rejected")
	}
	mustTransition(t, m, domain.JobStatusRunning)
	if err := m.Transition(domain.JobStatusPending); err == nil {
		t.Fatal("running -> pending must be rejected")
	}
}

// TestTransitionWithoutJob verifies transitions need a started job.
func TestTransitionWithoutJob(t *testing.T) {
	m := NewManager()
	if err := m.Transition(domain.JobStatusRunning); err == nil {
		t.Fatal("expected error without active job")
	}
}

// TestSameStatusIsNoOp verifies repeating the current status is accepted.
func TestSameStatusIsNoOp(t *testing.T) {
	m := NewManager()
	mustStart(t, m, "job-1", "host_1")
	mustTransition(t, m, domain.JobStatusRunning)
	if err := m.Transition(domain.JobStatusRunning); err != nil {
		t.Fatalf("same-status transition: %v", err)
	}
}

// TestReset verifies reset clears occupancy.
func TestReset(t *testing.T) {
	m := NewManager()
	mustStart(t, m, "job-1", "host_1")
	m.Reset()

	if m.IsActive() {
		t.Fatal("reset manager must be inactive")
	}
	if job := m.Current(); job.ID != "" {
		t.Fatalf("job id = %s, want empty", job.ID)
	}
}

// mustStart starts a job or fails the test.
func mustStart(t *testing.T, m *Manager, jobID, subtractionID string) {
	t.Helper()
	if err := m.Start(jobID, subtractionID); err != nil {
		t.Fatalf("start %s: %v", jobID, err)
	}
}

// mustTransition applies a transition or fails the test.
func mustTransition(t *testing.T, m *Manager, status domain.JobStatus) {
	t.Helper()
	if err := m.Transition(status); err != nil {
		t.Fatalf("transition to %s: %v", status, err)
	}
}
