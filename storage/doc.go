// Package storage provides the persistence layer for strata entities.
//
// A storage [Descriptor] names where and how an entity's records live:
// a driver kind, a location, a serialization format, and the key field
// that identifies a record. Three drivers are provided:
//
//   - [FileDriver] — records in a single file (json, jsonl, csv, tree)
//   - [KeyValueDriver] — a SQLite-backed key-value table with
//     namespaced keys of the form kv:<entity>:<id>
//   - [ObjectStoreDriver] — a DynamoDB table keyed by obj:<entity>
//
// Drivers implement the [Driver] interface and are selected through a
// [Dispatcher], which also picks the format codec and wraps failures in
// [*PersistenceError]. Requesting a driver that was never registered
// yields [ErrDriverUnavailable].
//
// # CSV headers
//
// CSV files carry a header row. Reads require the actual header row to
// match the declared headers exactly — a permuted or divergent header
// is a [*HeaderMismatchError], never a silent reconciliation. Appending
// to a pre-existing headerless file prepends the header instead of
// failing. Nested meta fields flatten to meta_* columns.
package storage
