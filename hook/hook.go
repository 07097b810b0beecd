package hook

import (
	"context"
	"time"
)

// Event is a lifecycle event hooks bind to.
type Event string

const (
	BeforeCreate   Event = "beforeCreate"
	BeforeValidate Event = "beforeValidate"
	AfterValidate  Event = "afterValidate"
	BeforePersist  Event = "beforePersist"
	AfterPersist   Event = "afterPersist"
	AfterCreate    Event = "afterCreate"
	BeforeUpdate   Event = "beforeUpdate"
	AfterUpdate    Event = "afterUpdate"
	BeforeDelete   Event = "beforeDelete"
	AfterDelete    Event = "afterDelete"
	OnConflict     Event = "onConflict"
)

// ErrorStrategy decides what a hook failure does to the pipeline.
type ErrorStrategy string

const (
	// StrategyAbort halts the pipeline and surfaces the failure.
	StrategyAbort ErrorStrategy = "abort"

	// StrategyWarn logs the failure and continues.
	StrategyWarn ErrorStrategy = "warn"
)

// Context carries the record and request metadata through a pipeline
// run. Conflict hooks additionally see the existing record.
type Context struct {
	TargetName string
	Record     map[string]any
	Metadata   map[string]any

	// Existing is the stored record a conflict was detected against.
	// Nil outside onConflict runs.
	Existing map[string]any
}

// Result is a hook's outcome. Conflict hooks use Action and Record to
// steer resolution; other events only care about Valid/Message.
type Result struct {
	Valid   bool
	Message string

	// Action is a conflict resolution verdict: "abort", "merge", or
	// empty (use Record as a replacement when set).
	Action string

	// Record is the merge overlay or replacement record.
	Record map[string]any
}

// Func is a hook handler.
type Func func(ctx context.Context, hc *Context) (*Result, error)

// Entry is one registered hook.
type Entry struct {
	// ID identifies the hook for dependency ordering. Required when
	// any hook depends on it; auto-assigned otherwise.
	ID string

	Fn Func

	// Priority breaks ties among ready hooks; higher runs first.
	Priority int

	// Condition skips the hook when false. A skipped hook still counts
	// as executed for its dependents.
	Condition func(hc *Context) bool

	// Timeout bounds the wait for the handler. Zero means no bound.
	Timeout time.Duration

	// DependsOn lists hook IDs that must execute first.
	DependsOn []string

	// OnError selects the failure strategy. Empty means abort.
	OnError ErrorStrategy
}
