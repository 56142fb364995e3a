// Package store persists subtraction documents. The pipeline writes stats
// and the ready flag through it and deletes the record during cleanup.
package store

import (
	"context"
	"errors"
	"fmt"

	"subtraction-builder/internal/domain"
)

// ErrNotFound is returned when no document matches a subtraction id.
var ErrNotFound = errors.New("subtraction not found")

// Error is a fatal persistence failure: the document store collaborator
// could not apply a write the pipeline depends on.
type Error struct {
	Op  string
	ID  string
	Err error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Store is the document store for subtraction records, keyed by
// subtraction id.
type Store interface {
	// UpdateStats sets the gc, count and lengths fields computed from the
	// staged FASTA, creating the record when no placeholder exists yet.
	UpdateStats(ctx context.Context, id string, gc domain.Composition, count int, lengths domain.LengthStats) error

	// SetReady marks the subtraction usable for alignment. It fails with
	// ErrNotFound when the record has gone missing.
	SetReady(ctx context.Context, id string) error

	// Delete removes the record. Deleting an absent record is a no-op so
	// cleanup handlers stay idempotent.
	Delete(ctx context.Context, id string) error

	// Get fetches the record or ErrNotFound.
	Get(ctx context.Context, id string) (domain.SubtractionRecord, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}
