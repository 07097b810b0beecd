// Package hook provides the lifecycle hook pipeline.
//
// Hooks are registered per lifecycle [Event] with optional priority,
// condition, timeout, dependencies, and error strategy. A [Pipeline]
// run executes an event's hooks via an explicit topological sort: a
// hook becomes ready once everything it depends on has executed, and
// ready hooks run sequentially in descending priority order. A cycle or
// a dependency on an unknown hook is an explicit
// [ErrUnsatisfiedDependency] — hooks never silently fail to run.
//
// A hook whose condition returns false is skipped but still counts as
// executed for its dependents. A hook returning an invalid [Result], an
// error, or exceeding its timeout fails; [StrategyAbort] (the default)
// halts the pipeline with a [*HookError], [StrategyWarn] logs and
// continues. Timeouts cancel only the wait, never work the hook
// already started.
package hook
