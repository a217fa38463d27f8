// Package entity holds the in-memory record collections backing each
// dashboard screen.
package entity

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotFound indicates the record id is not in the store.
	ErrNotFound = errors.New("entity: record not found")
	// ErrDuplicateID indicates a second record with an id already present.
	ErrDuplicateID = errors.New("entity: duplicate record id")
	// ErrEmptyID indicates a record without identifier.
	ErrEmptyID = errors.New("entity: record id required")
)

// Record is implemented by every domain record kept in a Store.
type Record interface {
	RecordID() string
}

// Store is an ordered, id-unique collection of records. Records are held by
// value so snapshots never alias store contents.
type Store[T Record] struct {
	mu       sync.RWMutex
	records  []T
	index    map[string]int
	revision uint64
}

// NewStore constructs an empty store.
func NewStore[T Record]() *Store[T] {
	return &Store[T]{index: make(map[string]int)}
}

// Load replaces the store contents with the bulk-fetched records.
func (s *Store[T]) Load(records []T) error {
	index := make(map[string]int, len(records))
	copied := make([]T, 0, len(records))
	for _, rec := range records {
		id := rec.RecordID()
		if id == "" {
			return ErrEmptyID
		}
		if _, ok := index[id]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		index[id] = len(copied)
		copied = append(copied, rec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = copied
	s.index = index
	s.revision++
	return nil
}

// Get returns the record with the given id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return s.records[i], true
}

// Insert appends a record.
func (s *Store[T]) Insert(rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertAt(len(s.records), rec)
}

// InsertAt places a record at position index, clamped to the store bounds.
func (s *Store[T]) InsertAt(index int, rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertAt(index, rec)
}

func (s *Store[T]) insertAt(index int, rec T) error {
	id := rec.RecordID()
	if id == "" {
		return ErrEmptyID
	}
	if _, ok := s.index[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	if index < 0 {
		index = 0
	}
	if index > len(s.records) {
		index = len(s.records)
	}
	var zero T
	s.records = append(s.records, zero)
	copy(s.records[index+1:], s.records[index:])
	s.records[index] = rec
	s.reindex(index)
	s.revision++
	return nil
}

// Replace overwrites the record sharing rec's id, keeping its position.
func (s *Store[T]) Replace(rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[rec.RecordID()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, rec.RecordID())
	}
	s.records[i] = rec
	s.revision++
	return nil
}

// Swap replaces the record stored under oldID with rec, which may carry a
// different id. Used when a provisional record receives its server id.
func (s *Store[T]) Swap(oldID string, rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[oldID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, oldID)
	}
	newID := rec.RecordID()
	if newID == "" {
		return ErrEmptyID
	}
	if j, exists := s.index[newID]; exists && j != i {
		return fmt.Errorf("%w: %s", ErrDuplicateID, newID)
	}
	delete(s.index, oldID)
	s.records[i] = rec
	s.index[newID] = i
	s.revision++
	return nil
}

// Remove deletes the record by id and reports the removed record and the
// position it occupied.
func (s *Store[T]) Remove(id string) (T, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		var zero T
		return zero, -1, false
	}
	rec := s.records[i]
	s.records = append(s.records[:i], s.records[i+1:]...)
	delete(s.index, id)
	s.reindex(i)
	s.revision++
	return rec, i, true
}

// Snapshot returns a copy of the records in store order.
func (s *Store[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.records))
	copy(out, s.records)
	return out
}

// Len reports the number of records.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Revision increases on every change to the store.
func (s *Store[T]) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *Store[T]) reindex(from int) {
	for i := from; i < len(s.records); i++ {
		s.index[s.records[i].RecordID()] = i
	}
}
