package mutation

import (
	"context"
	"time"
)

// Op names the kind of change.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpAction Op = "action"
)

// Result is the resolution of one mutation attempt.
type Result string

const (
	ResultConfirmed Result = "confirmed"
	ResultFailed    Result = "failed"
)

// SyncState is the per-record synchronisation marker shown next to a row.
type SyncState string

const (
	StateConfirmed SyncState = "confirmed"
	StatePending   SyncState = "pending"
	StateFailed    SyncState = "failed"
)

// Pending identifies one mutation between user intent and server answer.
type Pending struct {
	ID        string    `json:"id"`
	RecordID  string    `json:"record_id"`
	Op        Op        `json:"op"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Outcome describes how a mutation resolved.
type Outcome struct {
	Pending    Pending
	Result     Result
	Err        error
	Superseded bool
	RolledBack bool
}

// Ticket tracks one submitted mutation.
type Ticket[T any] struct {
	Pending Pending
	// Optimistic is the record as applied locally before the write.
	Optimistic T

	done    chan struct{}
	outcome Outcome
	final   T
}

func newTicket[T any](p Pending, optimistic T) *Ticket[T] {
	return &Ticket[T]{Pending: p, Optimistic: optimistic, done: make(chan struct{})}
}

func (t *Ticket[T]) resolve(out Outcome, final T) {
	t.outcome = out
	t.final = final
	close(t.done)
}

// Done is closed once the mutation resolved.
func (t *Ticket[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the mutation resolves or ctx ends. The returned record is
// the store's version after resolution (zero when the record is gone).
func (t *Ticket[T]) Wait(ctx context.Context) (Outcome, T, error) {
	select {
	case <-t.done:
		return t.outcome, t.final, nil
	case <-ctx.Done():
		var zero T
		return Outcome{}, zero, ctx.Err()
	}
}
