package export

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// ErrResultNotFound is returned for unknown or expired export jobs.
var ErrResultNotFound = errors.New("export: result not found")

// Status is the lifecycle state of an asynchronous export.
type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Result is a stored asynchronous export.
type Result struct {
	ID     string `json:"id"`
	Owner  string `json:"-"`
	Title  string `json:"title"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
	PDF    []byte `json:"-"`
}

// Results keeps asynchronous export results in Redis hashes.
type Results struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResults constructs a Redis-backed result store.
func NewResults(client *redis.Client, ttl time.Duration) *Results {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Results{client: client, ttl: ttl}
}

// NewJobID returns a sortable identifier for an export job.
func NewJobID() string {
	return ulid.Make().String()
}

// Begin records a pending export owned by a browser session.
func (r *Results) Begin(ctx context.Context, id, owner, title string) error {
	return r.set(ctx, id, map[string]any{
		"owner":  owner,
		"title":  title,
		"status": string(StatusPending),
	})
}

// Complete stores the rendered document.
func (r *Results) Complete(ctx context.Context, id string, pdf []byte) error {
	return r.set(ctx, id, map[string]any{
		"status": string(StatusDone),
		"pdf":    pdf,
	})
}

// Fail marks the export as failed.
func (r *Results) Fail(ctx context.Context, id, message string) error {
	return r.set(ctx, id, map[string]any{
		"status": string(StatusFailed),
		"error":  message,
	})
}

// Get loads an export. Exports owned by another session are reported as
// missing.
func (r *Results) Get(ctx context.Context, id, owner string) (Result, error) {
	values, err := r.client.HGetAll(ctx, resultKey(id)).Result()
	if err != nil {
		return Result{}, err
	}
	if len(values) == 0 || values["owner"] != owner {
		return Result{}, ErrResultNotFound
	}
	return Result{
		ID:     id,
		Owner:  values["owner"],
		Title:  values["title"],
		Status: Status(values["status"]),
		Error:  values["error"],
		PDF:    []byte(values["pdf"]),
	}, nil
}

func (r *Results) set(ctx context.Context, id string, fields map[string]any) error {
	key := resultKey(id)
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, r.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func resultKey(id string) string {
	return "export:" + id
}
