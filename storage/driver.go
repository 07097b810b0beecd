package storage

import (
	"context"

	"go.uber.org/zap"
)

// Target is a fully resolved write/read destination: the entity name,
// its normalized descriptor, and the codec for its format.
type Target struct {
	Entity string
	Desc   Descriptor
	Codec  Codec

	// Types maps field names to declared schema types so drivers that
	// bypass the codec can still cast values on read.
	Types map[string]string
}

// Location is the concrete path or key prefix of the target.
func (t Target) Location() string {
	return t.Desc.Location(t.Entity)
}

// Key derives a record's storage key from the descriptor's key field.
func (t Target) Key(record map[string]any) (string, bool) {
	v, ok := record[t.Desc.KeyField]
	if !ok || v == nil {
		return "", false
	}
	s, err := encodeCell(v)
	if err != nil || s == "" {
		return "", false
	}
	return s, true
}

// Snapshot captures a target's raw state for batch rollback.
type Snapshot struct {
	// Raw holds file content for the file driver. Exists is false when
	// the file was absent at snapshot time.
	Raw    []byte
	Exists bool

	// Pairs holds key/document pairs for the key-value driver.
	Pairs map[string]string

	// Records holds materialized records for the object-store driver.
	Records []map[string]any
}

// Driver is a storage medium records are persisted to.
type Driver interface {
	Kind() Kind
	Read(ctx context.Context, t Target) ([]map[string]any, error)
	Append(ctx context.Context, t Target, record map[string]any) error
	Replace(ctx context.Context, t Target, records []map[string]any) error
	Snapshot(ctx context.Context, t Target) (*Snapshot, error)
	Restore(ctx context.Context, t Target, snap *Snapshot) error
}

// Dispatcher routes operations to the driver a descriptor names and
// wraps failures with operation context. The file driver is always
// registered; key-value and object-store drivers are opt-in.
type Dispatcher struct {
	drivers map[Kind]Driver
	logger  *zap.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDriver registers an additional driver.
func WithDriver(d Driver) DispatcherOption {
	return func(disp *Dispatcher) {
		disp.drivers[d.Kind()] = d
	}
}

// WithLogger sets the dispatcher's logger.
func WithLogger(l *zap.Logger) DispatcherOption {
	return func(disp *Dispatcher) {
		disp.logger = l
	}
}

// NewDispatcher creates a dispatcher with the file driver registered.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		drivers: map[Kind]Driver{KindFile: NewFileDriver()},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Target resolves a descriptor into a concrete target. types maps field
// names to declared schema types for read-side casting.
func (d *Dispatcher) Target(entity string, desc Descriptor, types map[string]string) (Target, error) {
	desc = desc.Normalize()
	codec, err := codecFor(desc, types)
	if err != nil {
		return Target{}, err
	}
	return Target{Entity: entity, Desc: desc, Codec: codec, Types: types}, nil
}

func (d *Dispatcher) driverFor(kind Kind) (Driver, error) {
	drv, ok := d.drivers[kind]
	if !ok {
		return nil, ErrDriverUnavailable
	}
	return drv, nil
}

// Read loads every record for the target.
func (d *Dispatcher) Read(ctx context.Context, t Target) ([]map[string]any, error) {
	drv, err := d.driverFor(t.Desc.Driver)
	if err != nil {
		return nil, d.wrap("read", t, err)
	}
	records, err := drv.Read(ctx, t)
	if err != nil {
		return nil, d.wrap("read", t, err)
	}
	return records, nil
}

// Append persists one record.
func (d *Dispatcher) Append(ctx context.Context, t Target, record map[string]any) error {
	drv, err := d.driverFor(t.Desc.Driver)
	if err != nil {
		return d.wrap("append", t, err)
	}
	if err := drv.Append(ctx, t, record); err != nil {
		return d.wrap("append", t, err)
	}
	d.logger.Debug("record appended",
		zap.String("entity", t.Entity),
		zap.String("location", t.Location()))
	return nil
}

// Replace rewrites the target's full record set.
func (d *Dispatcher) Replace(ctx context.Context, t Target, records []map[string]any) error {
	drv, err := d.driverFor(t.Desc.Driver)
	if err != nil {
		return d.wrap("replace", t, err)
	}
	if err := drv.Replace(ctx, t, records); err != nil {
		return d.wrap("replace", t, err)
	}
	d.logger.Debug("record set replaced",
		zap.String("entity", t.Entity),
		zap.String("location", t.Location()),
		zap.Int("count", len(records)))
	return nil
}

// Snapshot captures the target's state for rollback.
func (d *Dispatcher) Snapshot(ctx context.Context, t Target) (*Snapshot, error) {
	drv, err := d.driverFor(t.Desc.Driver)
	if err != nil {
		return nil, d.wrap("snapshot", t, err)
	}
	snap, err := drv.Snapshot(ctx, t)
	if err != nil {
		return nil, d.wrap("snapshot", t, err)
	}
	return snap, nil
}

// Restore rewinds the target to a previously captured snapshot.
func (d *Dispatcher) Restore(ctx context.Context, t Target, snap *Snapshot) error {
	drv, err := d.driverFor(t.Desc.Driver)
	if err != nil {
		return d.wrap("restore", t, err)
	}
	if err := drv.Restore(ctx, t, snap); err != nil {
		return d.wrap("restore", t, err)
	}
	return nil
}

func (d *Dispatcher) wrap(op string, t Target, err error) error {
	return &PersistenceError{Op: op, Entity: t.Entity, Location: t.Location(), Err: err}
}
