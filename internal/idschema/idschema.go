// Package idschema generates and validates record identifiers.
//
// The default schema mirrors RFC 4122 version-4 UUIDs, matching the
// identifiers a Kinto server assigns when a client does not supply its own.
// Callers may register a different schema (e.g. ULIDs) as long as it
// satisfies the Schema interface.
package idschema

import (
	"fmt"

	"github.com/google/uuid"
)

// Schema generates and validates record identifiers for a collection.
type Schema interface {
	// Generate returns a fresh identifier, statistically unique within the
	// expected deployment lifetime.
	Generate() string
	// Validate reports whether id is well-formed per this schema.
	Validate(id string) bool
}

// UUID4 is the default identifier schema, using RFC 4122 version-4 UUIDs.
type UUID4 struct{}

// Generate returns a new version-4 UUID string.
func (UUID4) Generate() string {
	return uuid.New().String()
}

// Validate reports whether id parses as a UUID.
func (UUID4) Validate(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Default is the schema used when a Collection is constructed without an
// explicit one.
var Default Schema = UUID4{}

// Register validates that schema implements both operations before handing
// it back to the caller. A schema missing either operation cannot satisfy
// the interface at compile time, but a nil schema can still reach here,
// which Validate/Generate would then panic on at call time; Register
// rejects that case up front.
func Register(schema Schema) (Schema, error) {
	if schema == nil {
		return nil, fmt.Errorf("idschema: cannot register a nil schema")
	}

	return schema, nil
}
