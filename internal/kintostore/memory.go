package kintostore

import (
	"context"
	"fmt"
	"sync"

	"github.com/tonimelisma/kinto-sync/internal/record"
)

// MemoryAdapter is a process-local, map-backed Adapter. It is the default
// adapter for tests and for callers that do not need durability across
// process restarts. A single mutex serializes access; the core's own
// single-threaded scheduling model means contention is only
// ever against concurrent goroutines the core itself spawned (e.g. the
// errgroup-driven fan-out in pullChanges), never external writers.
type MemoryAdapter struct {
	mu           sync.Mutex
	records      map[string]record.Record
	lastModified *int64
}

// NewMemoryAdapter creates an empty MemoryAdapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{records: make(map[string]record.Record)}
}

// Clear implements Adapter.
func (m *MemoryAdapter) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = make(map[string]record.Record)
	m.lastModified = nil

	return nil
}

// Create implements Adapter.
func (m *MemoryAdapter) Create(_ context.Context, r record.Record) (record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := r.ID()
	if _, exists := m.records[id]; exists {
		return nil, wrap("create", fmt.Errorf("record %q already exists", id))
	}

	stored := r.Clone()
	m.records[id] = stored

	return stored.Clone(), nil
}

// Update implements Adapter.
func (m *MemoryAdapter) Update(_ context.Context, r record.Record) (record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := r.Clone()
	m.records[r.ID()] = stored

	return stored.Clone(), nil
}

// Get implements Adapter.
func (m *MemoryAdapter) Get(_ context.Context, id string) (record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return nil, nil
	}

	return r.Clone(), nil
}

// Delete implements Adapter.
func (m *MemoryAdapter) Delete(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, id)

	return id, nil
}

// List implements Adapter.
func (m *MemoryAdapter) List(_ context.Context) ([]record.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]record.Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r.Clone())
	}

	return out, nil
}

// SaveLastModified implements Adapter.
func (m *MemoryAdapter) SaveLastModified(_ context.Context, n *int64) (*int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastModified = n

	return n, nil
}

// GetLastModified implements Adapter.
func (m *MemoryAdapter) GetLastModified(_ context.Context) (*int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastModified, nil
}
