// Package syncresult defines the per-sync outcome aggregate
// and the server errno-to-description table.
package syncresult

import "github.com/tonimelisma/kinto-sync/internal/record"

// ConflictType tags which side of a conflict is considered the trigger.
type ConflictType string

// The two conflict types the sync engine produces.
const (
	ConflictIncoming ConflictType = "incoming"
	ConflictOutgoing ConflictType = "outgoing"
)

// Conflict is a tagged record pair surfaced when a local and remote edit
// cannot be reconciled automatically.
type Conflict struct {
	Type   ConflictType
	Local  record.Record
	Remote record.Record // nil when the remote side has no body (e.g. deleted)
}

// SubrequestError is a per-record failure inside a batch. It is reported
// in Result.Errors, never raised.
type SubrequestError struct {
	Path        string
	Sent        record.Record
	Error       any    // the server's raw error body
	Description string // human description of the body's errno
}

// Result aggregates the outcome of one sync() call.
// Invariant: OK == (len(Errors) == 0 && len(Conflicts) == 0).
type Result struct {
	LastModified *int64

	Created   []record.Record
	Updated   []record.Record
	Deleted   []record.Record
	Published []record.Record // tombstone acknowledgements carry deleted: true
	Conflicts []Conflict
	Skipped   []record.Record
	Resolved  []record.Record
	Errors    []SubrequestError
}

// New returns a Result seeded with the lastModified value read before the
// sync started.
func New(lastModified *int64) *Result {
	return &Result{LastModified: lastModified}
}

// OK reports whether the sync is free of errors and unresolved conflicts.
func (r *Result) OK() bool {
	return len(r.Errors) == 0 && len(r.Conflicts) == 0
}

// AddError appends a subrequest error to the result.
func (r *Result) AddError(e SubrequestError) {
	r.Errors = append(r.Errors, e)
}
