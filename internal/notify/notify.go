// Package notify queues transient user-facing notifications (toasts) per
// browser session.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Kind classifies a notification for display.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
)

// Notification is one transient message.
type Notification struct {
	Kind       Kind      `json:"kind"`
	Message    string    `json:"message"`
	MutationID string    `json:"mutation_id,omitempty"`
	RecordID   string    `json:"record_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Queue stores notifications per session in Redis lists.
type Queue struct {
	client *redis.Client
	ttl    time.Duration
}

// NewQueue constructs a Queue. ttl bounds how long undelivered notifications
// are kept.
func NewQueue(client *redis.Client, ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Queue{client: client, ttl: ttl}
}

// For returns a Notifier bound to one session.
func (q *Queue) For(sessionID string) Notifier {
	return NotifierFunc(func(ctx context.Context, n Notification) error {
		return q.Push(ctx, sessionID, n)
	})
}

// Push appends a notification for the session.
func (q *Queue) Push(ctx context.Context, sessionID string, n Notification) error {
	if q == nil || q.client == nil {
		return errors.New("notify: queue not initialised")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	key := queueKey(sessionID)
	pipe := q.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, q.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Drain returns and removes every queued notification for the session.
func (q *Queue) Drain(ctx context.Context, sessionID string) ([]Notification, error) {
	if q == nil || q.client == nil {
		return nil, errors.New("notify: queue not initialised")
	}
	key := queueKey(sessionID)
	pipe := q.client.TxPipeline()
	items := pipe.LRange(ctx, key, 0, -1)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	out := make([]Notification, 0, len(items.Val()))
	for _, raw := range items.Val() {
		var n Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func queueKey(sessionID string) string {
	return "notify:" + sessionID
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Notify records n.
func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	return nil
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}
