// Package cleaner strips local-only fields from a record before it crosses
// the network boundary.
package cleaner

import "github.com/tonimelisma/kinto-sync/internal/record"

// Clean returns a shallow copy of r with the local-only fields _status and
// last_modified removed. id is preserved. Used to build the "data" body of
// outgoing PUT requests.
func Clean(r record.Record) record.Record {
	out := r.Clone()
	delete(out, record.FieldStatus)
	delete(out, record.FieldLastModified)

	return out
}
