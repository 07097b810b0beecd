// Package entity provides the schema-driven entity engine.
//
// An [Engine] accepts normalized requests against named entities, each
// described by an [EntityConfig] held in an injectable [Registry]. A
// create flows through: request normalization → config resolution →
// record building (defaults + meta) → sanitization → conflict
// detection → structural and business validation → lifecycle hooks →
// persistence → a standardized [Response] envelope. Read, update, and
// delete follow analogous shorter paths, and [Engine.Query] exposes a
// composable query builder over an entity's records.
//
// # Pipeline stages
//
// Record data moves through distinct stage types — [RawPayload],
// [BuiltRecord], [SanitizedRecord], [ValidatedRecord] — each holding
// its own copy, so every stage's input and output can be inspected in
// isolation.
//
// # Errors
//
//   - [*ShapeError] — malformed request (missing targetName)
//   - [ErrUnknownEntity], [ErrMissingSchema] — config resolution
//   - [*ConflictError] — a conflict hook aborted the create
//   - schema.*ValidationError / schema.*RuleError — aggregated
//     validation failures
//   - storage.*PersistenceError — driver failures
//   - hook.*HookError — an aborting hook failure or dependency stall
//
// # Batches
//
// CreateMany/UpdateMany/DeleteMany snapshot the backing store before
// the batch and restore it verbatim when any item fails, giving a
// single caller all-or-nothing semantics. There is no isolation from
// concurrent writers, and no locking anywhere in the engine.
package entity
