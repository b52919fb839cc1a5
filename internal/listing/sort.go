package listing

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Direction is a sort order.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// SortState is the active sort key and direction of a table. The zero value
// means unsorted (fetch order).
type SortState struct {
	Key       string
	Direction Direction
}

// Toggle returns the state after the user selects key: the same key flips
// the direction, a different key starts ascending.
func (s SortState) Toggle(key string) SortState {
	if s.Key == key {
		if s.Direction == Ascending {
			s.Direction = Descending
		} else {
			s.Direction = Ascending
		}
		return s
	}
	return SortState{Key: key, Direction: Ascending}
}

// FieldKind selects how a Field compares.
type FieldKind int

const (
	TextField   FieldKind = iota // case-insensitive string order
	TimeField                    // chronological order
	NumberField                  // numeric order
)

// Field is a sortable column of T.
type Field[T any] struct {
	Name   string
	Kind   FieldKind
	text   func(T) string
	time   func(T) time.Time
	number func(T) float64
}

// Text declares a textual sort field.
func Text[T any](name string, fn func(T) string) Field[T] {
	return Field[T]{Name: name, Kind: TextField, text: fn}
}

// Time declares a chronological sort field.
func Time[T any](name string, fn func(T) time.Time) Field[T] {
	return Field[T]{Name: name, Kind: TimeField, time: fn}
}

// Number declares a numeric sort field.
func Number[T any](name string, fn func(T) float64) Field[T] {
	return Field[T]{Name: name, Kind: NumberField, number: fn}
}

func (f Field[T]) compare(a, b T) int {
	switch f.Kind {
	case TimeField:
		return f.time(a).Compare(f.time(b))
	case NumberField:
		return cmp.Compare(f.number(a), f.number(b))
	default:
		return strings.Compare(strings.ToLower(f.text(a)), strings.ToLower(f.text(b)))
	}
}

// Sort returns a sorted copy of items. The sort is stable, so equal keys
// keep their fetch order. An unknown or empty key returns the items in
// their original order.
func Sort[T any](items []T, fields []Field[T], state SortState) []T {
	out := slices.Clone(items)
	idx := slices.IndexFunc(fields, func(f Field[T]) bool { return f.Name == state.Key })
	if state.Key == "" || idx < 0 {
		return out
	}
	field := fields[idx]
	slices.SortStableFunc(out, func(a, b T) int {
		c := field.compare(a, b)
		if state.Direction == Descending {
			return -c
		}
		return c
	})
	return out
}

// FieldNames lists the names of fields in order.
func FieldNames[T any](fields []Field[T]) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
