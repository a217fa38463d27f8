package listview

import "sync"

// Row is one presented record.
type Row[T any] struct {
	Record   T    `json:"record"`
	Expanded bool `json:"expanded"`
}

// View is the derived, filtered and sorted list for one screen.
type View[T any] struct {
	Rows     []Row[T]  `json:"rows"`
	Total    int       `json:"total"`
	Visible  int       `json:"visible"`
	Empty    bool      `json:"empty"`
	Criteria Criteria  `json:"criteria"`
	Sort     SortState `json:"sort"`
}

// Records returns the presented records in order.
func (v View[T]) Records() []T {
	out := make([]T, 0, len(v.Rows))
	for _, row := range v.Rows {
		out = append(out, row.Record)
	}
	return out
}

// Derive computes sort(filter(records, criteria), sort). idOf is used to
// resolve row expansion; expanded may be nil.
func (s *Schema[T]) Derive(records []T, criteria Criteria, sort SortState, idOf func(T) string, expanded *Expansion) View[T] {
	presented := s.Sort(s.Filter(records, criteria), sort)
	rows := make([]Row[T], 0, len(presented))
	for _, rec := range presented {
		row := Row[T]{Record: rec}
		if expanded != nil && idOf != nil {
			row.Expanded = expanded.Has(idOf(rec))
		}
		rows = append(rows, row)
	}
	return View[T]{
		Rows:     rows,
		Total:    len(records),
		Visible:  len(rows),
		Empty:    len(rows) == 0,
		Criteria: criteria.Clone(),
		Sort:     sort,
	}
}

// Expansion tracks which rows are disclosed, addressed by record id.
type Expansion struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewExpansion returns an empty expansion set.
func NewExpansion() *Expansion {
	return &Expansion{ids: make(map[string]struct{})}
}

// Toggle flips the expansion of id and returns the new state.
func (e *Expansion) Toggle(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.ids[id]; ok {
		delete(e.ids, id)
		return false
	}
	e.ids[id] = struct{}{}
	return true
}

// Has reports whether id is expanded.
func (e *Expansion) Has(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.ids[id]
	return ok
}

// Forget drops id, used when a record leaves the store.
func (e *Expansion) Forget(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.ids, id)
}
