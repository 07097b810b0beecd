package storage

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrDriverUnavailable is returned when a descriptor requests a
	// driver kind that was not registered with the dispatcher.
	ErrDriverUnavailable = errors.New("strata: storage driver unavailable")

	// ErrUnknownFormat is returned for a format no codec handles.
	ErrUnknownFormat = errors.New("strata: unknown storage format")

	// ErrMissingKey is returned when a record has no value for the
	// descriptor's key field and the driver needs one.
	ErrMissingKey = errors.New("strata: record is missing its key field")
)

// HeaderMismatchError reports a CSV file whose header row differs from
// the declared headers.
type HeaderMismatchError struct {
	Location string
	Declared []string
	Actual   []string
}

func (e *HeaderMismatchError) Error() string {
	return fmt.Sprintf("strata: csv header mismatch at %s: declared [%s], found [%s]",
		e.Location, strings.Join(e.Declared, " "), strings.Join(e.Actual, " "))
}

// PersistenceError wraps a driver failure with operation context.
type PersistenceError struct {
	Op       string
	Entity   string
	Location string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("strata: %s %q at %s: %v", e.Op, e.Entity, e.Location, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
