// Package collection implements the core sync orchestrator: local CRUD
// over a storage adapter, and the pull-then-push-then-pull sync cycle
// that reconciles local edits against the server under optimistic
// concurrency.
package collection

import (
	"net/http"

	"github.com/tonimelisma/kinto-sync/internal/record"
)

// Outcome wraps the result of a local CRUD operation: the record plus a
// permissions slot reserved for future use, always empty here.
type Outcome struct {
	Data        record.Record
	Permissions map[string]any
}

func outcomeOf(r record.Record) Outcome {
	return Outcome{Data: r, Permissions: map[string]any{}}
}

// CreateOpts configures Create.
type CreateOpts struct {
	Synced      bool
	UseRecordID bool
}

// UpdateOpts configures Update.
type UpdateOpts struct {
	Synced bool
}

// GetOpts configures Get.
type GetOpts struct {
	IncludeDeleted bool
}

// DeleteOpts configures Delete. The zero value has Virtual false, which
// hard-deletes; DefaultDeleteOpts returns the virtual-deletion default.
type DeleteOpts struct {
	Virtual bool
}

// DefaultDeleteOpts is {Virtual: true}, the default deletion mode.
func DefaultDeleteOpts() DeleteOpts {
	return DeleteOpts{Virtual: true}
}

// ListOpts configures List.
type ListOpts struct {
	Filters        map[string]any
	Order          string // "[-]<field>"
	IncludeDeleted bool
}

// Strategy is one of the three sync conflict-resolution strategies.
type Strategy string

// The three strategies.
const (
	StrategyManual     Strategy = "manual"
	StrategyClientWins Strategy = "client_wins"
	StrategyServerWins Strategy = "server_wins"
)

// SyncOpts configures Sync.
type SyncOpts struct {
	Strategy      Strategy // defaults to StrategyManual
	Headers       http.Header
	IgnoreBackoff bool

	// resolved marks a follow-up pushChanges call spawned by client_wins'
	// republish step, so the push->resolve->push cycle terminates after a
	// single extra round.
	resolved bool
}
