package store

import (
	"context"
	"sync"

	"subtraction-builder/internal/domain"
)

// Memory is an in-process Store used by tests and database-less trial runs.
type Memory struct {
	mu      sync.RWMutex
	records map[string]domain.SubtractionRecord
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]domain.SubtractionRecord)}
}

// UpdateStats upserts the computed FASTA stats onto the record.
func (m *Memory) UpdateStats(_ context.Context, id string, gc domain.Composition, count int, lengths domain.LengthStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record := m.records[id]
	record.ID = id
	record.GC = gc
	record.Count = count
	record.Lengths = lengths
	m.records[id] = record
	return nil
}

// SetReady flips the ready flag, failing when the record is missing.
func (m *Memory) SetReady(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[id]
	if !ok {
		return &Error{Op: "set ready", ID: id, Err: ErrNotFound}
	}
	record.Ready = true
	m.records[id] = record
	return nil
}

// Delete removes the record, treating an absent record as already deleted.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

// Get fetches one record by subtraction id.
func (m *Memory) Get(_ context.Context, id string) (domain.SubtractionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[id]
	if !ok {
		return domain.SubtractionRecord{}, ErrNotFound
	}
	return record, nil
}

// Ping always succeeds for the in-memory store.
func (m *Memory) Ping(context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (m *Memory) Close(context.Context) error { return nil }
