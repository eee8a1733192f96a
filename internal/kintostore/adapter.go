// Package kintostore defines the storage adapter contract a Collection uses
// to persist records and collection metadata, plus two
// concrete adapters: an in-memory one for tests and a durable SQLite-backed
// one for real use.
//
// The two implementations here exist so the sync engine and its tests
// have something to run against; callers may supply their own.
package kintostore

import (
	"context"
	"fmt"

	"github.com/tonimelisma/kinto-sync/internal/record"
)

// Adapter is the per-collection key/value store contract.
// Two Adapter instances bound to the same (bucket, name) must observe the
// same state; the adapter need not be safe across concurrent processes,
// since the sync engine serializes its own access.
type Adapter interface {
	// Clear removes every record and metadata entry in the collection's scope.
	Clear(ctx context.Context) error
	// Create inserts record r. Fails with an *Error if r.ID() is
	// already present.
	Create(ctx context.Context, r record.Record) (record.Record, error)
	// Update overwrites an existing record. Create semantics are not
	// required: Update may succeed even if the id was not previously present.
	Update(ctx context.Context, r record.Record) (record.Record, error)
	// Get returns the record with the given id, or (nil, nil) if absent.
	Get(ctx context.Context, id string) (record.Record, error)
	// Delete hard-deletes the record with the given id and returns the id.
	Delete(ctx context.Context, id string) (string, error)
	// List returns every record in the collection, in unspecified order.
	List(ctx context.Context) ([]record.Record, error)
	// SaveLastModified persists the collection's lastModified metadata. A
	// nil value clears it.
	SaveLastModified(ctx context.Context, n *int64) (*int64, error)
	// GetLastModified reads the collection's lastModified metadata, or nil
	// if never set.
	GetLastModified(ctx context.Context) (*int64, error)
}

// Error reports a failure of the storage layer. Its message always starts
// with the failing operation name.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// wrap builds an *Error for operation op, or returns nil if err is nil.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}

	return &Error{Op: op, Err: err}
}
