package schema

import (
	"fmt"
	"strings"
)

// Violation is one structural constraint failure.
type Violation struct {
	Field   string
	Code    string
	Message string
}

// ValidationError aggregates every structural violation found in one
// validation pass.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Message
	}
	return fmt.Sprintf("strata: schema validation failed: %s", strings.Join(msgs, "; "))
}

// Fields returns the distinct field names with violations.
func (e *ValidationError) Fields() []string {
	seen := make(map[string]bool)
	var fields []string
	for _, v := range e.Violations {
		if !seen[v.Field] {
			seen[v.Field] = true
			fields = append(fields, v.Field)
		}
	}
	return fields
}

// Failure is one business-rule failure.
type Failure struct {
	RuleID  string
	Message string
}

// RuleError aggregates every business-rule failure from one pipeline
// run.
type RuleError struct {
	Failures []Failure
}

func (e *RuleError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = fmt.Sprintf("%s: %s", f.RuleID, f.Message)
	}
	return fmt.Sprintf("strata: business rules failed: %s", strings.Join(msgs, "; "))
}
