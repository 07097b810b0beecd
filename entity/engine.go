package entity

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/jacentio/strata/hook"
	"github.com/jacentio/strata/query"
	"github.com/jacentio/strata/schema"
	"github.com/jacentio/strata/storage"
)

// Engine runs entity operations: normalize, build, sanitize, validate,
// hook, persist. It owns no global state; the registry and dispatcher
// are injected.
type Engine struct {
	registry *Registry
	store    *storage.Dispatcher
	logger   *zap.Logger
	source   string
	clock    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithSource sets the meta.source value stamped on created records.
func WithSource(source string) Option {
	return func(e *Engine) { e.source = source }
}

// WithClock overrides the timestamp source. Tests use this.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// New creates an engine over a registry and a storage dispatcher.
func New(registry *Registry, store *storage.Dispatcher, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		store:    store,
		logger:   zap.NewNop(),
		source:   "strata",
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// resolve looks up the target's config and checks it is usable.
func (e *Engine) resolve(targetName string) (*EntityConfig, error) {
	cfg := e.registry.Resolve(targetName)
	if cfg == nil {
		return nil, errors.Wrapf(ErrUnknownEntity, "%q", targetName)
	}
	if len(cfg.Schema) == 0 {
		return nil, errors.Wrapf(ErrMissingSchema, "%q", targetName)
	}
	return cfg, nil
}

// target resolves the config's descriptor, applies any request-level
// override, and checks CSV headers against the schema.
func (e *Engine) target(cfg *EntityConfig, override *storage.Override) (storage.Target, error) {
	desc, err := cfg.Storage.Apply(override)
	if err != nil {
		return storage.Target{}, err
	}
	if desc.Format == storage.FormatCSV {
		if err := schema.ValidateCSVHeaders(desc.Headers, cfg.Schema); err != nil {
			return storage.Target{}, err
		}
	}
	return e.store.Target(cfg.Name, desc, cfg.Schema.FieldTypes())
}

// runHooks dispatches an event and folds record replacements from hook
// results back into the context, so later hooks and the engine see the
// rewritten record.
func (e *Engine) runHooks(ctx context.Context, cfg *EntityConfig, event hook.Event, hc *hook.Context) error {
	if cfg.Hooks == nil || !cfg.Hooks.Has(event) {
		return nil
	}
	results, err := cfg.Hooks.Run(ctx, event, hc)
	if err != nil {
		return err
	}
	for _, r := range results {
		if r.Record != nil {
			hc.Record = r.Record
		}
	}
	return nil
}

func (e *Engine) validate(ctx context.Context, cfg *EntityConfig, record map[string]any, locale string) error {
	if err := schema.Validate(record, cfg.Schema); err != nil {
		return err
	}
	if cfg.Validation != nil {
		return cfg.Validation.Run(ctx, record, locale)
	}
	return nil
}

// Create normalizes the raw request, runs the full pipeline, and
// appends the record. A key collision resolved by an onConflict hook
// replaces the existing record instead.
func (e *Engine) Create(ctx context.Context, raw map[string]any) (*Response, error) {
	req, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	return e.create(ctx, req)
}

func (e *Engine) create(ctx context.Context, req *Request) (*Response, error) {
	cfg, err := e.resolve(req.TargetName)
	if err != nil {
		return nil, err
	}
	t, err := e.target(cfg, req.Persist)
	if err != nil {
		return nil, err
	}

	hc := &hook.Context{
		TargetName: cfg.Name,
		Record:     req.Payload,
		Metadata:   map[string]any{"actor": req.Actor, "locale": req.Locale},
	}
	if err := e.runHooks(ctx, cfg, hook.BeforeCreate, hc); err != nil {
		return nil, err
	}
	req.Payload = hc.Record

	built := e.buildRecord(cfg, req)
	sanitized := Sanitize(built, cfg.sanitization())
	record := map[string]any(sanitized)

	record, mode, err := e.resolveConflict(ctx, cfg, t, record, hc)
	if err != nil {
		return nil, err
	}

	if err := e.validate(ctx, cfg, record, req.Locale); err != nil {
		return nil, err
	}

	hc.Record = record
	for _, event := range []hook.Event{hook.BeforeValidate, hook.AfterValidate, hook.BeforePersist} {
		if err := e.runHooks(ctx, cfg, event, hc); err != nil {
			return nil, err
		}
	}
	record = hc.Record

	switch mode {
	case modeReplaceExisting:
		if err := e.replaceByKey(ctx, t, record); err != nil {
			return nil, err
		}
	default:
		if err := e.store.Append(ctx, t, record); err != nil {
			return nil, err
		}
	}

	for _, event := range []hook.Event{hook.AfterPersist, hook.AfterCreate} {
		if err := e.runHooks(ctx, cfg, event, hc); err != nil {
			return nil, err
		}
	}

	e.logger.Info("record created",
		zap.String("entity", cfg.Name),
		zap.String("key", keyString(record[t.Desc.KeyField])))
	return e.respond("create", cfg.Name, record, hc.Metadata, t), nil
}

// Read returns the record with the given key, or ErrNotFound.
func (e *Engine) Read(ctx context.Context, targetName, key string) (map[string]any, error) {
	cfg, err := e.resolve(targetName)
	if err != nil {
		return nil, err
	}
	t, err := e.target(cfg, nil)
	if err != nil {
		return nil, err
	}
	records, err := e.store.Read(ctx, t)
	if err != nil {
		return nil, err
	}
	record := findByKey(records, t.Desc.KeyField, key)
	if record == nil {
		return nil, errors.Wrapf(ErrNotFound, "%s[%s]", targetName, key)
	}
	return record, nil
}

// Update merges the payload over the stored record with the matching
// key, revalidates, and rewrites the record set.
func (e *Engine) Update(ctx context.Context, raw map[string]any) (*Response, error) {
	req, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	cfg, err := e.resolve(req.TargetName)
	if err != nil {
		return nil, err
	}
	t, err := e.target(cfg, req.Persist)
	if err != nil {
		return nil, err
	}

	keyField := t.Desc.KeyField
	key := keyString(req.Payload[keyField])
	if key == "" {
		return nil, &ShapeError{Fields: []string{keyField}}
	}
	records, err := e.store.Read(ctx, t)
	if err != nil {
		return nil, err
	}
	existing := findByKey(records, keyField, key)
	if existing == nil {
		return nil, errors.Wrapf(ErrNotFound, "%s[%s]", req.TargetName, key)
	}

	hc := &hook.Context{
		TargetName: cfg.Name,
		Record:     req.Payload,
		Metadata:   map[string]any{"actor": req.Actor, "locale": req.Locale},
		Existing:   existing,
	}
	if err := e.runHooks(ctx, cfg, hook.BeforeUpdate, hc); err != nil {
		return nil, err
	}

	merged := copyMap(existing)
	for k, v := range hc.Record {
		merged[k] = deepCopy(v)
	}
	meta, _ := merged["meta"].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
	}
	meta["updatedAt"] = e.clock().UTC().Format(time.RFC3339)
	meta["updatedBy"] = actorOrSystem(req.Actor)
	merged["meta"] = meta

	record := map[string]any(Sanitize(BuiltRecord(merged), cfg.sanitization()))
	if err := e.validate(ctx, cfg, record, req.Locale); err != nil {
		return nil, err
	}

	hc.Record = record
	if err := e.runHooks(ctx, cfg, hook.BeforePersist, hc); err != nil {
		return nil, err
	}
	record = hc.Record

	if err := e.replaceByKey(ctx, t, record); err != nil {
		return nil, err
	}

	for _, event := range []hook.Event{hook.AfterPersist, hook.AfterUpdate} {
		if err := e.runHooks(ctx, cfg, event, hc); err != nil {
			return nil, err
		}
	}

	e.logger.Info("record updated",
		zap.String("entity", cfg.Name),
		zap.String("key", key))
	return e.respond("update", cfg.Name, record, hc.Metadata, t), nil
}

// Delete removes the record with the given key. Deleting an absent
// record is not an error; the bool reports whether anything was
// removed.
func (e *Engine) Delete(ctx context.Context, targetName, key string) (bool, error) {
	cfg, err := e.resolve(targetName)
	if err != nil {
		return false, err
	}
	t, err := e.target(cfg, nil)
	if err != nil {
		return false, err
	}
	records, err := e.store.Read(ctx, t)
	if err != nil {
		return false, err
	}

	keyField := t.Desc.KeyField
	existing := findByKey(records, keyField, key)
	if existing == nil {
		return false, nil
	}

	hc := &hook.Context{
		TargetName: cfg.Name,
		Record:     existing,
	}
	if err := e.runHooks(ctx, cfg, hook.BeforeDelete, hc); err != nil {
		return false, err
	}

	remaining := records[:0:0]
	for _, r := range records {
		if keyString(r[keyField]) != key {
			remaining = append(remaining, r)
		}
	}
	if err := e.store.Replace(ctx, t, remaining); err != nil {
		return false, err
	}

	if err := e.runHooks(ctx, cfg, hook.AfterDelete, hc); err != nil {
		return false, err
	}

	e.logger.Info("record deleted",
		zap.String("entity", cfg.Name),
		zap.String("key", key))
	return true, nil
}

// Query returns a builder whose loader reads the target's full record
// set at execution time.
func (e *Engine) Query(targetName string) (*query.Builder, error) {
	cfg, err := e.resolve(targetName)
	if err != nil {
		return nil, err
	}
	t, err := e.target(cfg, nil)
	if err != nil {
		return nil, err
	}
	loader := func(ctx context.Context) ([]map[string]any, error) {
		return e.store.Read(ctx, t)
	}
	return query.New(loader), nil
}

// replaceByKey swaps the stored record whose key matches record's key,
// appending instead when no match exists.
func (e *Engine) replaceByKey(ctx context.Context, t storage.Target, record map[string]any) error {
	records, err := e.store.Read(ctx, t)
	if err != nil {
		return err
	}
	keyField := t.Desc.KeyField
	key := keyString(record[keyField])
	replaced := false
	for i, r := range records {
		if keyString(r[keyField]) == key {
			records[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		records = append(records, record)
	}
	return e.store.Replace(ctx, t, records)
}

func (e *Engine) respond(op, targetName string, record, metadata map[string]any, t storage.Target) *Response {
	return &Response{
		Success: true,
		Action:  fmt.Sprintf("entity.%s.%s", targetName, op),
		Payload: ResponsePayload{
			TargetName: targetName,
			Record:     record,
			Metadata:   copyMap(metadata),
		},
		Meta: ResponseMeta{
			Persisted:   true,
			StoragePath: t.Location(),
		},
	}
}
