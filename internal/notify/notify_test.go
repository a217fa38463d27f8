package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/marketdesk/internal/shared"
)

func TestQueuePushAndDrain(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	q := NewQueue(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, q.For("s1").Notify(ctx, Notification{Kind: KindSuccess, Message: "Status diperbarui"}))
	require.NoError(t, q.Push(ctx, "s1", Notification{Kind: KindError, Message: "Gagal"}))
	require.NoError(t, q.Push(ctx, "s2", Notification{Kind: KindWarning, Message: "other"}))

	items, err := q.Drain(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, KindSuccess, items[0].Kind)
	assert.Equal(t, "Gagal", items[1].Message)
	assert.False(t, items[0].CreatedAt.IsZero())

	items, err = q.Drain(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = q.Drain(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestHandlerDrainsSessionQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	q := NewQueue(client, time.Minute)
	sm := shared.NewSessionManager(client, "sid", time.Hour, false)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.NoError(t, q.Push(ctx, sess.ID, Notification{Kind: KindSuccess, Message: "Voucher PROMO berhasil dibuat"}))

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
		})
	})
	router.Route("/notifications", NewHandler(q, nil).MountRoutes)

	poll := func() []Notification {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/notifications", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var items []Notification
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &items))
		return items
	}

	items := poll()
	require.Len(t, items, 1)
	assert.Equal(t, "Voucher PROMO berhasil dibuat", items[0].Message)
	assert.Empty(t, poll())
}
