// Package screen owns the state of one dashboard list screen: its entity
// store, the user's filter, sort and expansion state, and the mutation
// controller that is the only writer of the store.
package screen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/marketdesk/internal/entity"
	"github.com/odyssey-erp/marketdesk/internal/export"
	"github.com/odyssey-erp/marketdesk/internal/listview"
	"github.com/odyssey-erp/marketdesk/internal/marketapi"
	"github.com/odyssey-erp/marketdesk/internal/mutation"
)

var (
	// ErrUnknownSortKey rejects sort keys the screen does not offer.
	ErrUnknownSortKey = errors.New("screen: unknown sort key")
	// ErrBusy rejects a reload while writes are outstanding.
	ErrBusy = errors.New("screen: mutations in flight")
	// ErrNotFound indicates the record is not on the screen.
	ErrNotFound = errors.New("screen: record not found")
)

const (
	loadTimeout   = 30 * time.Second
	viewCacheSize = 64
)

// Loader fetches the full record set of a screen.
type Loader[T entity.Record] func(ctx context.Context) ([]T, error)

// Config describes one screen.
type Config[T entity.Record] struct {
	Name        string
	Title       string
	Schema      *listview.Schema[T]
	Columns     []export.Column[T]
	Load        Loader[T]
	DefaultSort listview.SortState
	Formatter   *export.Formatter
	Mutation    mutation.Config
	Logger      *slog.Logger
}

// Row is a presented record with its disclosure and sync markers.
type Row[T any] struct {
	Record    T                  `json:"record"`
	Expanded  bool               `json:"expanded"`
	Sync      mutation.SyncState `json:"sync"`
	PendingID string             `json:"pending_id,omitempty"`
}

// Page is the rendered state of a screen.
type Page[T any] struct {
	Screen   string             `json:"screen"`
	Rows     []Row[T]           `json:"rows"`
	Total    int                `json:"total"`
	Visible  int                `json:"visible"`
	Empty    bool               `json:"empty"`
	Criteria listview.Criteria  `json:"criteria"`
	Sort     listview.SortState `json:"sort"`
	Filters  []string           `json:"filters"`
	SortKeys []string           `json:"sort_keys"`
}

// Screen is the controller of one list screen.
type Screen[T entity.Record] struct {
	cfg       Config[T]
	store     *entity.Store[T]
	ctrl      *mutation.Controller[T]
	expansion *listview.Expansion
	loads     singleflight.Group
	views     *lru.Cache[string, listview.View[T]]

	mu       sync.Mutex
	criteria listview.Criteria
	sort     listview.SortState
	loaded   bool
}

// New constructs an empty, unloaded screen.
func New[T entity.Record](cfg Config[T]) *Screen[T] {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Formatter == nil {
		cfg.Formatter = export.MustFormatter("id-ID", "IDR")
	}
	if cfg.Mutation.Screen == "" {
		cfg.Mutation.Screen = cfg.Name
	}
	if cfg.Mutation.Logger == nil {
		cfg.Mutation.Logger = cfg.Logger
	}
	store := entity.NewStore[T]()
	views, _ := lru.New[string, listview.View[T]](viewCacheSize)
	return &Screen[T]{
		cfg:       cfg,
		store:     store,
		ctrl:      mutation.NewController(store, cfg.Mutation),
		expansion: listview.NewExpansion(),
		views:     views,
		criteria:  make(listview.Criteria),
		sort:      cfg.DefaultSort,
	}
}

// Name returns the screen's identifier.
func (s *Screen[T]) Name() string { return s.cfg.Name }

// Mutations returns the screen's mutation controller.
func (s *Screen[T]) Mutations() *mutation.Controller[T] { return s.ctrl }

// Get returns the record with id from the store.
func (s *Screen[T]) Get(id string) (T, error) {
	rec, ok := s.store.Get(id)
	if !ok {
		return rec, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, nil
}

// Loaded reports whether the initial load completed.
func (s *Screen[T]) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// EnsureLoaded performs the initial load once.
func (s *Screen[T]) EnsureLoaded(ctx context.Context) error {
	if s.Loaded() {
		return nil
	}
	return s.load(ctx)
}

// Reload replaces the store with a fresh fetch. It is refused while writes
// are outstanding, both before the fetch and when the fetched records are
// swapped in, so a rollback never restores a pre-reload record.
func (s *Screen[T]) Reload(ctx context.Context) error {
	if s.ctrl.Busy() {
		return ErrBusy
	}
	return s.load(ctx)
}

func (s *Screen[T]) load(ctx context.Context) error {
	ch := s.loads.DoChan("load", func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		started := time.Now()
		records, err := s.cfg.Load(lctx)
		if err != nil {
			if marketapi.IsAuth(err) && s.cfg.Mutation.Escalator != nil {
				s.cfg.Mutation.Escalator.Escalate(lctx, err)
			}
			return nil, err
		}
		err = s.ctrl.Exclusive(func() error {
			return s.store.Load(records)
		})
		if errors.Is(err, mutation.ErrInFlight) {
			return nil, ErrBusy
		}
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.loaded = true
		s.mu.Unlock()
		s.cfg.Logger.Info("screen loaded",
			slog.String("screen", s.cfg.Name),
			slog.Int("records", len(records)),
			slog.Duration("duration", time.Since(started)),
		)
		return nil, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return fmt.Errorf("load %s: %w", s.cfg.Name, res.Err)
		}
		return nil
	}
}

// ApplyQuery replaces the criteria when the query names any registered
// criterion, and sets the sort state from "sort" and "dir".
func (s *Screen[T]) ApplyQuery(values url.Values) error {
	criteria := s.cfg.Schema.CriteriaFromQuery(values)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(criteria) > 0 {
		s.criteria = criteria
	}
	if key := values.Get("sort"); key != "" {
		if !s.cfg.Schema.Sortable(key) {
			return fmt.Errorf("%w: %s", ErrUnknownSortKey, key)
		}
		s.sort = listview.SortState{Key: key, Direction: listview.ParseDirection(values.Get("dir"))}
	}
	return nil
}

// SetCriteria replaces the filter criteria.
func (s *Screen[T]) SetCriteria(criteria listview.Criteria) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = criteria.Clone()
}

// ToggleSort flips the direction for the active key or starts a new key
// ascending.
func (s *Screen[T]) ToggleSort(key string) (listview.SortState, error) {
	if !s.cfg.Schema.Sortable(key) {
		return listview.SortState{}, fmt.Errorf("%w: %s", ErrUnknownSortKey, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sort = s.sort.Toggle(key)
	return s.sort, nil
}

// ToggleExpand flips the disclosure of one row.
func (s *Screen[T]) ToggleExpand(id string) (bool, error) {
	if _, ok := s.store.Get(id); !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.expansion.Toggle(id), nil
}

// View derives the current list view. Derivations are cached under the store
// revision together with the criteria and sort state.
func (s *Screen[T]) View() listview.View[T] {
	s.mu.Lock()
	criteria := s.criteria.Clone()
	sort := s.sort
	s.mu.Unlock()

	key := viewKey(s.store.Revision(), criteria, sort)
	view, ok := s.views.Get(key)
	if !ok {
		view = s.cfg.Schema.Derive(s.store.Snapshot(), criteria, sort, nil, nil)
		s.views.Add(key, view)
	}
	rows := make([]listview.Row[T], len(view.Rows))
	for i, row := range view.Rows {
		rows[i] = listview.Row[T]{Record: row.Record, Expanded: s.expansion.Has(row.Record.RecordID())}
	}
	view.Rows = rows
	return view
}

// Page renders the view with per-row sync state.
func (s *Screen[T]) Page() Page[T] {
	view := s.View()
	rows := make([]Row[T], len(view.Rows))
	for i, row := range view.Rows {
		id := row.Record.RecordID()
		pendingID, _ := s.ctrl.PendingID(id)
		rows[i] = Row[T]{
			Record:    row.Record,
			Expanded:  row.Expanded,
			Sync:      s.ctrl.SyncState(id),
			PendingID: pendingID,
		}
	}
	return Page[T]{
		Screen:   s.cfg.Name,
		Rows:     rows,
		Total:    view.Total,
		Visible:  view.Visible,
		Empty:    view.Empty,
		Criteria: view.Criteria,
		Sort:     view.Sort,
		Filters:  s.cfg.Schema.FilterNames(),
		SortKeys: s.cfg.Schema.SortKeys(),
	}
}

// Export projects the visible rows in their current order.
func (s *Screen[T]) Export() export.Table {
	return export.Project(s.cfg.Title, s.View().Records(), s.cfg.Columns, s.cfg.Formatter)
}

// Update submits a change through the mutation controller.
func (s *Screen[T]) Update(ctx context.Context, u mutation.Update[T]) (*mutation.Ticket[T], error) {
	return s.ctrl.Update(ctx, u)
}

// Create submits a new record through the mutation controller.
func (s *Screen[T]) Create(ctx context.Context, m mutation.Create[T]) (*mutation.Ticket[T], error) {
	return s.ctrl.Create(ctx, m)
}

// Delete submits a removal and collapses the row.
func (s *Screen[T]) Delete(ctx context.Context, m mutation.Delete[T]) (*mutation.Ticket[T], error) {
	ticket, err := s.ctrl.Delete(ctx, m)
	if err != nil {
		return nil, err
	}
	s.expansion.Forget(m.RecordID)
	return ticket, nil
}

func viewKey(revision uint64, criteria listview.Criteria, sort listview.SortState) string {
	names := make([]string, 0, len(criteria))
	for name := range criteria {
		names = append(names, name)
	}
	slices.Sort(names)
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%s:%s", revision, sort.Key, sort.Direction)
	for _, name := range names {
		b.WriteString("|")
		b.WriteString(url.QueryEscape(name))
		b.WriteString("=")
		b.WriteString(url.QueryEscape(criteria[name]))
	}
	return b.String()
}

// Options carries the per-session dependencies every screen shares.
type Options struct {
	Formatter *export.Formatter
	Logger    *slog.Logger
	Mutation  mutation.Config
}
