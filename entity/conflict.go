package entity

import (
	"context"

	"github.com/jacentio/strata/hook"
	"github.com/jacentio/strata/storage"
)

// persistMode says how a create reaches the store: a plain append, or
// replacing the existing record a conflict hook resolved against.
type persistMode int

const (
	modeAppend persistMode = iota
	modeReplaceExisting
)

// resolveConflict detects a key collision and dispatches onConflict
// hooks. With no key field configured, or no registered hooks, the
// engine deliberately has no conflict guard: duplicate keys are allowed
// unless a hook actively intervenes.
func (e *Engine) resolveConflict(ctx context.Context, cfg *EntityConfig, t storage.Target, candidate map[string]any, hc *hook.Context) (map[string]any, persistMode, error) {
	if cfg.Storage.KeyField == "" {
		return candidate, modeAppend, nil
	}

	keyField := t.Desc.KeyField
	key := keyString(candidate[keyField])
	if key == "" {
		return candidate, modeAppend, nil
	}

	records, err := e.store.Read(ctx, t)
	if err != nil {
		return nil, modeAppend, err
	}
	existing := findByKey(records, keyField, key)
	if existing == nil {
		return candidate, modeAppend, nil
	}

	if cfg.Hooks == nil || !cfg.Hooks.Has(hook.OnConflict) {
		return candidate, modeAppend, nil
	}

	conflictCtx := &hook.Context{
		TargetName: cfg.Name,
		Record:     candidate,
		Metadata:   hc.Metadata,
		Existing:   existing,
	}
	results, err := cfg.Hooks.Run(ctx, hook.OnConflict, conflictCtx)
	if err != nil {
		return nil, modeAppend, err
	}

	for _, result := range results {
		switch {
		case result.Action == "abort":
			return nil, modeAppend, &ConflictError{
				TargetName: cfg.Name,
				Key:        key,
				Message:    result.Message,
			}
		case result.Action == "merge":
			overlay := result.Record
			if overlay == nil {
				overlay = candidate
			}
			merged := copyMap(existing)
			for k, v := range overlay {
				merged[k] = deepCopy(v)
			}
			return merged, modeReplaceExisting, nil
		case result.Record != nil:
			return copyMap(result.Record), modeReplaceExisting, nil
		}
	}

	return candidate, modeAppend, nil
}

// findByKey returns the first record whose key field renders to key.
func findByKey(records []map[string]any, keyField, key string) map[string]any {
	for _, r := range records {
		if keyString(r[keyField]) == key {
			return r
		}
	}
	return nil
}
