// Package mutation applies optimistic changes to an entity store and
// reconciles them with the remote API.
//
// Every change is validated, applied to the store immediately and then
// written remotely. Writes for one record run strictly in submission order;
// a response is applied to the store only while its pending mutation is still
// the newest one for that record. A failed newest write restores the last
// server-confirmed state of the record.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"

	"github.com/odyssey-erp/marketdesk/internal/entity"
	"github.com/odyssey-erp/marketdesk/internal/marketapi"
	"github.com/odyssey-erp/marketdesk/internal/notify"
)

var (
	// ErrNotFound indicates the target record is not in the store.
	ErrNotFound = errors.New("mutation: record not found")
	// ErrRecordBusy rejects changes to a record whose creation is unconfirmed.
	ErrRecordBusy = errors.New("mutation: record is still being created")
	// ErrInFlight is returned by Exclusive while writes are outstanding.
	ErrInFlight = errors.New("mutation: writes in flight")
)

const (
	defaultTimeout        = 15 * time.Second
	defaultFailureMessage = "Gagal menyimpan perubahan. Silakan coba lagi."
	defaultSuccessMessage = "Perubahan berhasil disimpan"
)

// AuthEscalator hands an authentication failure to the session flow.
type AuthEscalator interface {
	Escalate(ctx context.Context, err error)
}

// Recorder observes mutation results.
type Recorder interface {
	ObserveMutation(screen string, op Op, result Result)
}

// Config wires a Controller.
type Config struct {
	Screen         string
	Timeout        time.Duration
	Notifier       notify.Notifier
	Escalator      AuthEscalator
	Logger         *slog.Logger
	Metrics        Recorder
	Validate       *validator.Validate
	FailureMessage string
}

// Update changes fields of one existing record. Apply receives a copy of the
// current record and returns the proposed one; Write performs the remote
// change and may return the server's version of the record (zero value keeps
// the optimistic state).
type Update[T entity.Record] struct {
	RecordID string
	Op       Op
	Label    string
	Apply    func(T) (T, error)
	Write    func(ctx context.Context, next T) (T, error)
	Success  string
}

// Create inserts a record under a provisional id until the server assigns
// the real one.
type Create[T entity.Record] struct {
	Label   string
	Build   func(provisionalID string) T
	Write   func(ctx context.Context, draft T) (T, error)
	Success string
}

// Delete removes a record.
type Delete[T entity.Record] struct {
	RecordID string
	Label    string
	Write    func(ctx context.Context, rec T) error
	Success  string
}

type recordState[T entity.Record] struct {
	current   string
	confirmed T
	index     int
	inflight  int
	creating  bool
	failed    bool
	running   bool
	queue     []func()
}

// Controller is the single entry point for changes to one store.
type Controller[T entity.Record] struct {
	store  *entity.Store[T]
	cfg    Config
	mu     sync.Mutex
	states map[string]*recordState[T]
}

// NewController constructs a Controller over store.
func NewController[T entity.Record](store *entity.Store[T], cfg Config) *Controller[T] {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.FailureMessage == "" {
		cfg.FailureMessage = defaultFailureMessage
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Controller[T]{store: store, cfg: cfg, states: make(map[string]*recordState[T])}
}

// Store exposes the controlled store for reads.
func (c *Controller[T]) Store() *entity.Store[T] {
	return c.store
}

// SyncState reports the synchronisation state of a record.
func (c *Controller[T]) SyncState(id string) SyncState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[id]
	switch {
	case !ok:
		return StateConfirmed
	case st.inflight > 0:
		return StatePending
	case st.failed:
		return StateFailed
	default:
		return StateConfirmed
	}
}

// PendingID returns the id of the newest unresolved mutation for a record.
func (c *Controller[T]) PendingID(id string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[id]
	if !ok || st.inflight == 0 {
		return "", false
	}
	return st.current, true
}

// Busy reports whether any write is outstanding.
func (c *Controller[T]) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy()
}

func (c *Controller[T]) busy() bool {
	for _, st := range c.states {
		if st.inflight > 0 {
			return true
		}
	}
	return false
}

// Exclusive runs fn while no write is outstanding and none can start.
func (c *Controller[T]) Exclusive(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy() {
		return ErrInFlight
	}
	return fn()
}

// Update validates and optimistically applies u, then writes it remotely.
func (c *Controller[T]) Update(ctx context.Context, u Update[T]) (*Ticket[T], error) {
	if u.Op == "" {
		u.Op = OpUpdate
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.store.Get(u.RecordID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, u.RecordID)
	}
	if st, ok := c.states[u.RecordID]; ok && st.creating {
		return nil, ErrRecordBusy
	}
	next, err := u.Apply(cur)
	if err != nil {
		return nil, err
	}
	if next.RecordID() != u.RecordID {
		return nil, Invalid("id", "tidak boleh diubah")
	}
	if err := CheckChange(c.cfg.Validate, cur, next); err != nil {
		return nil, err
	}

	st := c.begin(u.RecordID, cur)
	p := c.newPending(u.RecordID, u.Op, u.Label)
	st.current = p.ID
	if err := c.store.Replace(next); err != nil {
		c.abandon(u.RecordID, st)
		return nil, err
	}

	ticket := newTicket(p, next)
	base := context.WithoutCancel(ctx)
	c.enqueue(st, func() {
		wctx, cancel := context.WithTimeout(base, c.cfg.Timeout)
		server, werr := u.Write(wctx, next)
		cancel()
		out := c.resolveUpdate(st, p, next, server, werr)
		final, _ := c.store.Get(u.RecordID)
		c.finish(base, ticket, out, final, u.Success)
	})
	return ticket, nil
}

// Create validates and optimistically inserts a new record.
func (c *Controller[T]) Create(ctx context.Context, m Create[T]) (*Ticket[T], error) {
	provisional := "tmp-" + ulid.Make().String()
	draft := m.Build(provisional)
	if draft.RecordID() != provisional {
		return nil, Invalid("id", "tidak boleh diisi")
	}
	if err := Check(c.cfg.Validate, draft); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Insert(draft); err != nil {
		return nil, err
	}
	var zero T
	st := c.begin(provisional, zero)
	st.creating = true
	p := c.newPending(provisional, OpCreate, m.Label)
	st.current = p.ID

	ticket := newTicket(p, draft)
	base := context.WithoutCancel(ctx)
	c.enqueue(st, func() {
		wctx, cancel := context.WithTimeout(base, c.cfg.Timeout)
		server, werr := m.Write(wctx, draft)
		cancel()
		out := c.resolveCreate(st, p, draft, server, werr)
		var final T
		if out.Err == nil {
			final = server
		}
		c.finish(base, ticket, out, final, m.Success)
	})
	return ticket, nil
}

// Delete optimistically removes a record, restoring it in place on failure.
func (c *Controller[T]) Delete(ctx context.Context, m Delete[T]) (*Ticket[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.store.Get(m.RecordID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, m.RecordID)
	}
	if st, ok := c.states[m.RecordID]; ok && st.creating {
		return nil, ErrRecordBusy
	}
	st := c.begin(m.RecordID, cur)
	_, idx, _ := c.store.Remove(m.RecordID)
	st.index = idx
	p := c.newPending(m.RecordID, OpDelete, m.Label)
	st.current = p.ID

	ticket := newTicket(p, cur)
	base := context.WithoutCancel(ctx)
	c.enqueue(st, func() {
		wctx, cancel := context.WithTimeout(base, c.cfg.Timeout)
		werr := m.Write(wctx, cur)
		cancel()
		out := c.resolveDelete(st, p, werr)
		final, _ := c.store.Get(m.RecordID)
		c.finish(base, ticket, out, final, m.Success)
	})
	return ticket, nil
}

// begin returns the record's state, resetting its confirmed baseline when no
// write is outstanding. Callers hold c.mu.
func (c *Controller[T]) begin(id string, cur T) *recordState[T] {
	st, ok := c.states[id]
	if !ok {
		st = &recordState[T]{}
		c.states[id] = st
	}
	if st.inflight == 0 {
		st.confirmed = cur
	}
	st.inflight++
	return st
}

func (c *Controller[T]) abandon(id string, st *recordState[T]) {
	st.inflight--
	if st.inflight == 0 && !st.failed {
		delete(c.states, id)
	}
}

func (c *Controller[T]) newPending(recordID string, op Op, label string) Pending {
	return Pending{
		ID:        ulid.Make().String(),
		RecordID:  recordID,
		Op:        op,
		Label:     label,
		CreatedAt: time.Now().UTC(),
	}
}

// enqueue appends a job to the record's FIFO write queue. Callers hold c.mu.
func (c *Controller[T]) enqueue(st *recordState[T], job func()) {
	st.queue = append(st.queue, job)
	if st.running {
		return
	}
	st.running = true
	go c.drain(st)
}

func (c *Controller[T]) drain(st *recordState[T]) {
	for {
		c.mu.Lock()
		if len(st.queue) == 0 {
			st.running = false
			c.mu.Unlock()
			return
		}
		job := st.queue[0]
		st.queue = st.queue[1:]
		c.mu.Unlock()
		job()
	}
}

func (c *Controller[T]) resolveUpdate(st *recordState[T], p Pending, next, server T, err error) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := st.current == p.ID
	out := Outcome{Pending: p, Err: err, Superseded: !current, Result: ResultConfirmed}
	hasEcho := server.RecordID() == p.RecordID
	confirmed := next
	if hasEcho {
		confirmed = server
	}

	if err == nil {
		st.confirmed = confirmed
		if current {
			if hasEcho {
				if rerr := c.store.Replace(server); rerr != nil {
					c.cfg.Logger.Warn("reconcile record", slog.String("screen", c.cfg.Screen), slog.String("id", p.RecordID), slog.Any("error", rerr))
				}
			}
			st.failed = false
		}
	} else {
		out.Result = ResultFailed
		if current {
			if rerr := c.store.Replace(st.confirmed); rerr == nil {
				out.RolledBack = true
			}
			st.failed = true
		}
	}
	c.settle(p.RecordID, st)
	return out
}

func (c *Controller[T]) resolveCreate(st *recordState[T], p Pending, draft, server T, err error) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := Outcome{Pending: p, Err: err, Result: ResultConfirmed}
	st.creating = false
	if err == nil && server.RecordID() == "" {
		err = errors.New("mutation: created record has no id")
		out.Err = err
	}
	if err == nil {
		if serr := c.store.Swap(draft.RecordID(), server); serr != nil {
			out.Err = serr
			err = serr
		}
	}
	if err != nil {
		out.Result = ResultFailed
		if _, _, ok := c.store.Remove(draft.RecordID()); ok {
			out.RolledBack = true
		}
	}
	st.inflight--
	delete(c.states, p.RecordID)
	return out
}

func (c *Controller[T]) resolveDelete(st *recordState[T], p Pending, err error) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := st.current == p.ID
	out := Outcome{Pending: p, Err: err, Superseded: !current, Result: ResultConfirmed}
	if err == nil {
		st.failed = false
		st.inflight--
		if st.inflight == 0 {
			delete(c.states, p.RecordID)
		}
		return out
	}
	out.Result = ResultFailed
	if current {
		if ierr := c.store.InsertAt(st.index, st.confirmed); ierr == nil {
			out.RolledBack = true
		}
		st.failed = true
	}
	c.settle(p.RecordID, st)
	return out
}

// settle releases one in-flight slot. Callers hold c.mu.
func (c *Controller[T]) settle(id string, st *recordState[T]) {
	st.inflight--
	if st.inflight == 0 && !st.failed {
		delete(c.states, id)
	}
}

func (c *Controller[T]) finish(ctx context.Context, t *Ticket[T], out Outcome, final T, success string) {
	logger := c.cfg.Logger.With(
		slog.String("screen", c.cfg.Screen),
		slog.String("op", string(out.Pending.Op)),
		slog.String("id", out.Pending.RecordID),
		slog.String("mutation_id", out.Pending.ID),
	)
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.ObserveMutation(c.cfg.Screen, out.Pending.Op, out.Result)
	}

	switch {
	case out.Err == nil:
		if success == "" {
			success = defaultSuccessMessage
		}
		c.notify(ctx, logger, notify.KindSuccess, success, out.Pending)
	case marketapi.IsAuth(out.Err):
		logger.Warn("mutation rejected: session expired", slog.Any("error", out.Err))
		if c.cfg.Escalator != nil {
			c.cfg.Escalator.Escalate(ctx, out.Err)
		}
	default:
		logger.Warn("mutation failed", slog.Bool("rolled_back", out.RolledBack), slog.Bool("superseded", out.Superseded), slog.Any("error", out.Err))
		c.notify(ctx, logger, notify.KindError, marketapi.UserMessage(out.Err, c.cfg.FailureMessage), out.Pending)
	}
	t.resolve(out, final)
}

func (c *Controller[T]) notify(ctx context.Context, logger *slog.Logger, kind notify.Kind, message string, p Pending) {
	if c.cfg.Notifier == nil {
		return
	}
	n := notify.Notification{Kind: kind, Message: message, MutationID: p.ID, RecordID: p.RecordID}
	if err := c.cfg.Notifier.Notify(ctx, n); err != nil {
		logger.Error("push notification", slog.Any("error", err))
	}
}
