package hook

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Pipeline holds the registered hooks for every lifecycle event.
type Pipeline struct {
	entries map[Event][]Entry
	logger  *zap.Logger
	autoID  int
}

// NewPipeline creates an empty pipeline. logger may be nil.
func NewPipeline(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		entries: make(map[Event][]Entry),
		logger:  logger,
	}
}

// Register binds a hook to an event. Entries without an ID get one
// assigned; entries without an error strategy abort on failure.
func (p *Pipeline) Register(event Event, e Entry) {
	if e.ID == "" {
		p.autoID++
		e.ID = fmt.Sprintf("%s-%d", event, p.autoID)
	}
	if e.OnError == "" {
		e.OnError = StrategyAbort
	}
	p.entries[event] = append(p.entries[event], e)
}

// Has reports whether any hooks are registered for the event.
func (p *Pipeline) Has(event Event) bool {
	return len(p.entries[event]) > 0
}

// Run executes the event's hooks in dependency order and returns the
// results of the hooks that ran, in execution order.
func (p *Pipeline) Run(ctx context.Context, event Event, hc *Context) ([]*Result, error) {
	entries := p.entries[event]
	if len(entries) == 0 {
		return nil, nil
	}

	executed := make(map[string]bool, len(entries))
	remaining := make([]Entry, len(entries))
	copy(remaining, entries)

	var results []*Result
	for len(remaining) > 0 {
		ready, blocked := partitionReady(remaining, executed)
		if len(ready) == 0 {
			ids := make([]string, len(blocked))
			for i, e := range blocked {
				ids[i] = e.ID
			}
			return results, &HookError{
				Event:  event,
				HookID: strings.Join(ids, ","),
				Err:    errors.Wrapf(ErrUnsatisfiedDependency, "unrunnable hooks: %s", strings.Join(ids, ", ")),
			}
		}

		// Ready hooks run in descending priority, stable on
		// registration order.
		sort.SliceStable(ready, func(i, j int) bool {
			return ready[i].Priority > ready[j].Priority
		})

		for _, e := range ready {
			executed[e.ID] = true

			if e.Condition != nil && !e.Condition(hc) {
				continue
			}

			result, err := p.execute(ctx, e, hc)
			if failErr := failure(event, e, result, err); failErr != nil {
				if e.OnError == StrategyWarn {
					p.logger.Warn("hook failed, continuing",
						zap.String("event", string(event)),
						zap.String("hook", e.ID),
						zap.Error(failErr))
					continue
				}
				return results, failErr
			}
			if result != nil {
				results = append(results, result)
			}
		}
		remaining = blocked
	}

	return results, nil
}

// partitionReady splits entries into those whose dependencies have all
// executed and the rest.
func partitionReady(entries []Entry, executed map[string]bool) (ready, blocked []Entry) {
	for _, e := range entries {
		ok := true
		for _, dep := range e.DependsOn {
			if !executed[dep] {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, e)
		} else {
			blocked = append(blocked, e)
		}
	}
	return ready, blocked
}

// execute runs one hook, racing it against its timeout when set. The
// timer cancels only the wait; work the hook started keeps running.
func (p *Pipeline) execute(ctx context.Context, e Entry, hc *Context) (*Result, error) {
	if e.Timeout <= 0 {
		return e.Fn(ctx, hc)
	}

	type outcome struct {
		result *Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := e.Fn(ctx, hc)
		done <- outcome{result, err}
	}()

	timer := time.NewTimer(e.Timeout)
	defer timer.Stop()

	select {
	case o := <-done:
		return o.result, o.err
	case <-timer.C:
		return nil, errors.Wrapf(ErrTimeout, "after %s", e.Timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// failure turns a hook outcome into an error, or nil on success. A
// result carrying an Action or a Record is a verdict for the caller to
// interpret, not a failure, whatever its Valid flag says.
func failure(event Event, e Entry, result *Result, err error) error {
	if err != nil {
		return &HookError{Event: event, HookID: e.ID, Err: err}
	}
	if result != nil && !result.Valid && result.Action == "" && result.Record == nil {
		return &HookError{Event: event, HookID: e.ID, Message: result.Message}
	}
	return nil
}
