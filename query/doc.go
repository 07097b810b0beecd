// Package query provides a fluent filter/sort/cursor/paginate engine
// over loaded records.
//
// A [Builder] accumulates predicates (AND and OR groups), sort rules,
// limit/offset, and an optional keyset cursor; it holds no state across
// executions. [Builder.Execute] reloads the full record set through the
// builder's loader and applies, in fixed order: AND predicates, the OR
// group (a record passes when every AND predicate passes and either no
// OR predicates exist or at least one passes), a stable multi-key sort,
// cursor exclusion, offset, and limit. When the returned page is
// exactly limit-sized the result carries a NextCursor pointing past the
// page.
package query
