package entity

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrUnknownEntity is returned when the registry has no config for
	// the requested target name.
	ErrUnknownEntity = errors.New("strata: unknown entity")

	// ErrMissingSchema is returned when an entity config declares no
	// schema.
	ErrMissingSchema = errors.New("strata: entity config has no schema")

	// ErrNotFound is returned when a read or update names a record
	// that does not exist.
	ErrNotFound = errors.New("strata: record not found")

	// ErrDuplicateConfig is returned when registering an entity name
	// twice.
	ErrDuplicateConfig = errors.New("strata: entity already registered")
)

// ShapeError reports a malformed request, naming the offending fields.
type ShapeError struct {
	Fields []string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("strata: malformed request: invalid fields: %s", strings.Join(e.Fields, ", "))
}

// ConflictError reports a key collision a conflict hook chose to abort.
type ConflictError struct {
	TargetName string
	Key        string
	Message    string
}

func (e *ConflictError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "duplicate key"
	}
	return fmt.Sprintf("strata: conflict on %s[%s]: %s", e.TargetName, e.Key, msg)
}
