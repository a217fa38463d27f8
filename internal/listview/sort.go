package listview

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

// Direction is the ordering direction of the active sort key.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps user input to a Direction, defaulting to Asc.
func ParseDirection(v string) Direction {
	if strings.EqualFold(strings.TrimSpace(v), string(Desc)) {
		return Desc
	}
	return Asc
}

// SortState holds the single active sort key.
type SortState struct {
	Key       string    `json:"key,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Toggle returns the state after the user selects key: the same key flips the
// direction, another key starts ascending.
func (s SortState) Toggle(key string) SortState {
	if key == "" {
		return SortState{}
	}
	if s.Key == key {
		if s.Direction == Desc {
			return SortState{Key: key, Direction: Asc}
		}
		return SortState{Key: key, Direction: Desc}
	}
	return SortState{Key: key, Direction: Asc}
}

// Comparator orders two records by one field, ascending.
type Comparator[T any] func(a, b T) int

// ByString compares case-folded strings lexicographically.
func ByString[T any](get func(T) string) Comparator[T] {
	return func(a, b T) int {
		return strings.Compare(strings.ToLower(get(a)), strings.ToLower(get(b)))
	}
}

// ByNumber compares numeric fields.
func ByNumber[T any](get func(T) float64) Comparator[T] {
	return func(a, b T) int {
		return cmp.Compare(get(a), get(b))
	}
}

// ByTime compares instants chronologically.
func ByTime[T any](get func(T) time.Time) Comparator[T] {
	return func(a, b T) int {
		return get(a).Compare(get(b))
	}
}

// Sort returns a stably sorted copy of records. An empty or unknown key keeps
// the input order.
func (s *Schema[T]) Sort(records []T, state SortState) []T {
	out := slices.Clone(records)
	compare, ok := s.sorts[state.Key]
	if state.Key == "" || !ok {
		return out
	}
	if state.Direction == Desc {
		slices.SortStableFunc(out, func(a, b T) int { return -compare(a, b) })
		return out
	}
	slices.SortStableFunc(out, compare)
	return out
}
