// Package record defines the core data model shared by every layer of the
// sync engine: the open JSON record map, its reserved fields, and the
// local-only status lifecycle.
package record

import "maps"

// Status is the local-only lifecycle state of a record.
type Status string

// The four statuses a locally persisted record can hold.
const (
	StatusSynced  Status = "synced"
	StatusCreated Status = "created"
	StatusUpdated Status = "updated"
	StatusDeleted Status = "deleted"
)

// Reserved field names. All other keys are user data and must be preserved
// verbatim by every layer that touches a Record.
const (
	FieldID           = "id"
	FieldStatus       = "_status"
	FieldLastModified = "last_modified"
	FieldDeleted      = "deleted"
)

// Record is an open mapping from field name to JSON value. It models the
// dynamically-typed record of the source protocol: reserved fields are
// read/written through the typed accessors below, and everything else
// round-trips through the map untouched.
type Record map[string]any

// New returns an empty record with id set.
func New(id string) Record {
	return Record{FieldID: id}
}

// ID returns the record's id, or "" if absent.
func (r Record) ID() string {
	return stringField(r, FieldID)
}

// Status returns the record's local status, or "" if the _status field is
// absent or not a string. The value is not checked against the four known
// statuses.
func (r Record) Status() Status {
	return Status(stringField(r, FieldStatus))
}

func stringField(r Record, key string) string {
	v, ok := r[key]
	if !ok {
		return ""
	}

	s, _ := v.(string)

	return s
}

// WithStatus returns a shallow copy of r with _status set. r is not mutated.
func (r Record) WithStatus(s Status) Record {
	out := r.Clone()
	out[FieldStatus] = string(s)

	return out
}

// LastModified returns the record's last_modified and whether it is present.
// Numeric JSON values decode to float64 when a record crosses an
// encoding/json boundary, so both float64 and int64 representations are
// accepted.
func (r Record) LastModified() (int64, bool) {
	v, ok := r[FieldLastModified]
	if !ok || v == nil {
		return 0, false
	}

	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// WithLastModified returns a shallow copy of r with last_modified set.
func (r Record) WithLastModified(ts int64) Record {
	out := r.Clone()
	out[FieldLastModified] = ts

	return out
}

// IsDeleted reports whether the record carries deleted: true, the shape a
// remote tombstone uses.
func (r Record) IsDeleted() bool {
	v, ok := r[FieldDeleted]
	if !ok {
		return false
	}

	b, ok := v.(bool)

	return ok && b
}

// Clone returns a shallow copy of r. Nested values (slices, maps) inside
// user fields are shared with the original, matching the shallow-copy
// semantics the record cleaner relies on.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	maps.Copy(out, r)

	return out
}

// Equal reports whether two records have identical field sets and values,
// using a deep comparison of the underlying map. Used by the sync engine
// to distinguish a genuine conflict from a false conflict.
func (r Record) Equal(other Record) bool {
	if len(r) != len(other) {
		return false
	}

	for k, v := range r {
		ov, ok := other[k]
		if !ok {
			return false
		}

		if !valuesEqual(v, ov) {
			return false
		}
	}

	return true
}

func valuesEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}

		for k, v := range av {
			if !valuesEqual(v, bv[k]) {
				return false
			}
		}

		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}

		for i, v := range av {
			if !valuesEqual(v, bv[i]) {
				return false
			}
		}

		return true
	default:
		return normalizeNumber(a) == normalizeNumber(b)
	}
}

// normalizeNumber coerces int/int64/float64 to a common float64 representation
// so numeric equality is not sensitive to which numeric type a value happens
// to carry after crossing a JSON boundary.
func normalizeNumber(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return v
	}
}
