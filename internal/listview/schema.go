package listview

import (
	"net/url"
	"slices"
)

// Schema describes how one record type can be filtered and sorted.
type Schema[T any] struct {
	filters map[string]FieldFilter[T]
	sorts   map[string]Comparator[T]
}

// NewSchema returns an empty schema.
func NewSchema[T any]() *Schema[T] {
	return &Schema[T]{
		filters: make(map[string]FieldFilter[T]),
		sorts:   make(map[string]Comparator[T]),
	}
}

// WithFilter registers a named criterion.
func (s *Schema[T]) WithFilter(name string, filter FieldFilter[T]) *Schema[T] {
	s.filters[name] = filter
	return s
}

// WithSort registers a sortable key.
func (s *Schema[T]) WithSort(key string, compare Comparator[T]) *Schema[T] {
	s.sorts[key] = compare
	return s
}

// Sortable reports whether key is a registered sort key.
func (s *Schema[T]) Sortable(key string) bool {
	_, ok := s.sorts[key]
	return ok
}

// FilterNames lists the registered criteria in lexical order.
func (s *Schema[T]) FilterNames() []string {
	names := make([]string, 0, len(s.filters))
	for name := range s.filters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SortKeys lists the registered sort keys in lexical order.
func (s *Schema[T]) SortKeys() []string {
	keys := make([]string, 0, len(s.sorts))
	for key := range s.sorts {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// CriteriaFromQuery picks the registered criteria out of query values.
func (s *Schema[T]) CriteriaFromQuery(values url.Values) Criteria {
	out := make(Criteria)
	for name := range s.filters {
		if values.Has(name) {
			out[name] = values.Get(name)
		}
	}
	return out
}
