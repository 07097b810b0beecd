package hook

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrUnsatisfiedDependency is returned when a hook's dependency
	// graph has a cycle or names an unknown hook, leaving hooks that
	// can never become ready.
	ErrUnsatisfiedDependency = errors.New("strata: hook dependencies cannot be satisfied")

	// ErrTimeout is returned when a hook exceeds its timeout.
	ErrTimeout = errors.New("strata: hook timed out")
)

// HookError reports a failed pipeline run.
type HookError struct {
	Event   Event
	HookID  string
	Message string
	Err     error
}

func (e *HookError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("strata: hook %q on %s: %v", e.HookID, e.Event, e.Err)
	}
	return fmt.Sprintf("strata: hook %q on %s: %s", e.HookID, e.Event, e.Message)
}

func (e *HookError) Unwrap() error { return e.Err }
