// Package listview derives the presented rows of a dashboard list from its
// entity store: criteria filtering, single-key stable sorting and per-id row
// expansion.
package listview

import (
	"strconv"
	"strings"
	"time"
)

// All is the wildcard criterion value.
const All = "all"

const dateLayout = "2006-01-02"

// Criteria maps a criterion name to its selected value.
type Criteria map[string]string

// Active reports whether the criterion constrains the list.
func (c Criteria) Active(name string) bool {
	v, ok := c[name]
	return ok && isConstraint(v)
}

// Clone copies the criteria, dropping wildcard entries.
func (c Criteria) Clone() Criteria {
	out := make(Criteria, len(c))
	for k, v := range c {
		if isConstraint(v) {
			out[k] = v
		}
	}
	return out
}

func isConstraint(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, All)
}

// FieldFilter reports whether a record satisfies a concrete criterion value.
type FieldFilter[T any] func(rec T, value string) bool

// Equals matches the field case-insensitively against the value.
func Equals[T any](get func(T) string) FieldFilter[T] {
	return func(rec T, value string) bool {
		return strings.EqualFold(strings.TrimSpace(get(rec)), strings.TrimSpace(value))
	}
}

// Search matches when any of the fields contains the value, ignoring case.
func Search[T any](gets ...func(T) string) FieldFilter[T] {
	return func(rec T, value string) bool {
		term := strings.ToLower(strings.TrimSpace(value))
		for _, get := range gets {
			if strings.Contains(strings.ToLower(get(rec)), term) {
				return true
			}
		}
		return false
	}
}

// DateFrom keeps records on or after the given day (YYYY-MM-DD).
func DateFrom[T any](get func(T) time.Time) FieldFilter[T] {
	return func(rec T, value string) bool {
		day, err := time.Parse(dateLayout, strings.TrimSpace(value))
		if err != nil {
			return false
		}
		ts := get(rec)
		return !ts.IsZero() && !ts.Before(day)
	}
}

// DateTo keeps records up to and including the given day (YYYY-MM-DD).
func DateTo[T any](get func(T) time.Time) FieldFilter[T] {
	return func(rec T, value string) bool {
		day, err := time.Parse(dateLayout, strings.TrimSpace(value))
		if err != nil {
			return false
		}
		ts := get(rec)
		return !ts.IsZero() && ts.Before(day.AddDate(0, 0, 1))
	}
}

// NumberAtLeast keeps records whose field is >= value.
func NumberAtLeast[T any](get func(T) float64) FieldFilter[T] {
	return func(rec T, value string) bool {
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return false
		}
		return get(rec) >= n
	}
}

// NumberAtMost keeps records whose field is <= value.
func NumberAtMost[T any](get func(T) float64) FieldFilter[T] {
	return func(rec T, value string) bool {
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return false
		}
		return get(rec) <= n
	}
}

// Match reports whether rec satisfies every constraining criterion. A
// criterion the schema does not know is treated as non-matching.
func (s *Schema[T]) Match(rec T, criteria Criteria) bool {
	for name, value := range criteria {
		if !isConstraint(value) {
			continue
		}
		filter, ok := s.filters[name]
		if !ok || !filter(rec, value) {
			return false
		}
	}
	return true
}

// Filter returns the records matching the criteria in input order.
func (s *Schema[T]) Filter(records []T, criteria Criteria) []T {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if s.Match(rec, criteria) {
			out = append(out, rec)
		}
	}
	return out
}
