package query

import (
	"context"
	"sort"
)

// Direction orders sorts and cursors.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Cursor is a keyset pagination marker: records strictly past Value in
// Direction along Field belong to the next page.
type Cursor struct {
	Field     string
	Value     any
	Direction Direction
}

// SortRule is one sort key.
type SortRule struct {
	Field     string
	Direction Direction
}

// Loader produces the full record set a query executes over.
type Loader func(ctx context.Context) ([]map[string]any, error)

// Result is an executed query's page.
type Result struct {
	Records []map[string]any

	// NextCursor is set only when the page is exactly limit-sized,
	// meaning more pages may exist.
	NextCursor *Cursor
}

type pred func(record map[string]any) (bool, error)

// Builder accumulates query state. It is stateless per execution:
// Execute always reloads the full record set.
type Builder struct {
	loader Loader
	and    []pred
	or     []pred
	sorts  []SortRule
	limit  int
	offset int
	cursor *Cursor
}

// New creates a builder over a record loader.
func New(loader Loader) *Builder {
	return &Builder{loader: loader}
}

// Where adds an AND predicate on a field.
func (b *Builder) Where(field string, op Op, value any) *Builder {
	return b.AndWhere(field, op, value)
}

// AndWhere adds an AND predicate on a field.
func (b *Builder) AndWhere(field string, op Op, value any) *Builder {
	b.and = append(b.and, fieldPred(field, op, value))
	return b
}

// OrWhere adds a predicate to the OR group.
func (b *Builder) OrWhere(field string, op Op, value any) *Builder {
	b.or = append(b.or, fieldPred(field, op, value))
	return b
}

// WherePredicate adds a custom AND predicate.
func (b *Builder) WherePredicate(fn func(record map[string]any) bool) *Builder {
	b.and = append(b.and, func(r map[string]any) (bool, error) {
		return fn(r), nil
	})
	return b
}

// WhereGroup builds a nested sub-query evaluated as a single predicate
// and attaches it per logical ("and" or "or").
func (b *Builder) WhereGroup(logical string, fn func(g *Builder)) *Builder {
	group := New(nil)
	fn(group)
	p := group.matches
	if logical == "or" {
		b.or = append(b.or, p)
	} else {
		b.and = append(b.and, p)
	}
	return b
}

// Sort appends a sort key. Later keys break ties of earlier ones.
func (b *Builder) Sort(field string, dir Direction) *Builder {
	if dir != Desc {
		dir = Asc
	}
	b.sorts = append(b.sorts, SortRule{Field: field, Direction: dir})
	return b
}

// Limit caps the page size. Zero means unlimited.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// Offset skips n records after sorting and cursor exclusion.
func (b *Builder) Offset(n int) *Builder {
	b.offset = n
	return b
}

// CursorAfter keeps only records strictly past value in dir along
// field.
func (b *Builder) CursorAfter(field string, value any, dir Direction) *Builder {
	if dir != Desc {
		dir = Asc
	}
	b.cursor = &Cursor{Field: field, Value: value, Direction: dir}
	return b
}

func fieldPred(field string, op Op, value any) pred {
	return func(r map[string]any) (bool, error) {
		return apply(op, r[field], value)
	}
}

// matches applies the builder's filter semantics: every AND predicate
// passes, and either the OR group is empty or at least one OR
// predicate passes.
func (b *Builder) matches(record map[string]any) (bool, error) {
	for _, p := range b.and {
		ok, err := p(record)
		if err != nil || !ok {
			return false, err
		}
	}
	if len(b.or) == 0 {
		return true, nil
	}
	for _, p := range b.or {
		ok, err := p(record)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Execute loads the record set and applies filter, sort, cursor,
// offset, and limit in that fixed order.
func (b *Builder) Execute(ctx context.Context) (*Result, error) {
	records, err := b.loader(ctx)
	if err != nil {
		return nil, err
	}

	var filtered []map[string]any
	for _, r := range records {
		ok, err := b.matches(r)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, r)
		}
	}

	b.sortRecords(filtered)

	if b.cursor != nil {
		var kept []map[string]any
		for _, r := range filtered {
			cmp, ok := compare(r[b.cursor.Field], b.cursor.Value)
			if !ok {
				continue
			}
			if (b.cursor.Direction == Asc && cmp > 0) ||
				(b.cursor.Direction == Desc && cmp < 0) {
				kept = append(kept, r)
			}
		}
		filtered = kept
	}

	if b.offset > 0 {
		if b.offset >= len(filtered) {
			filtered = nil
		} else {
			filtered = filtered[b.offset:]
		}
	}

	result := &Result{}
	if b.limit > 0 && len(filtered) > b.limit {
		filtered = filtered[:b.limit]
	}
	result.Records = filtered

	if b.limit > 0 && len(filtered) == b.limit {
		// A full page means more may exist. The cursor field comes
		// from the active cursor, falling back to the primary sort
		// key on the first page.
		field, dir := "", Asc
		switch {
		case b.cursor != nil:
			field, dir = b.cursor.Field, b.cursor.Direction
		case len(b.sorts) > 0:
			field, dir = b.sorts[0].Field, b.sorts[0].Direction
		}
		if field != "" {
			last := filtered[len(filtered)-1]
			result.NextCursor = &Cursor{Field: field, Value: last[field], Direction: dir}
		}
	}
	return result, nil
}

// sortRecords applies a stable multi-key sort. Records missing a sort
// field order before those that have it.
func (b *Builder) sortRecords(records []map[string]any) {
	if len(b.sorts) == 0 {
		return
	}
	sort.SliceStable(records, func(i, j int) bool {
		for _, rule := range b.sorts {
			vi, okI := records[i][rule.Field]
			vj, okJ := records[j][rule.Field]
			if !okI && !okJ {
				continue
			}
			if !okI || !okJ {
				less := !okI
				if rule.Direction == Desc {
					less = !less
				}
				return less
			}
			cmp, comparable := compare(vi, vj)
			if !comparable || cmp == 0 {
				continue
			}
			if rule.Direction == Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}
