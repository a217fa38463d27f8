package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/odyssey-erp/marketdesk/internal/marketapi"
	"github.com/odyssey-erp/marketdesk/internal/notify"
	"github.com/odyssey-erp/marketdesk/internal/platform/httpx"
	"github.com/odyssey-erp/marketdesk/internal/shared"
)

// ExpiredMessage is shown when the marketplace rejects the session.
const ExpiredMessage = "Sesi Anda telah berakhir. Silakan masuk kembali."

// TokenSource yields the session's bearer token for marketplace calls. A
// missing or expired credential fails with marketapi.ErrUnauthorized before
// any request is sent.
func TokenSource(store Store, sessionID string) marketapi.TokenFunc {
	return func(ctx context.Context) (string, error) {
		cred, err := store.Load(ctx, sessionID)
		if errors.Is(err, ErrNoCredential) {
			return "", fmt.Errorf("%w: %w", marketapi.ErrUnauthorized, err)
		}
		if err != nil {
			return "", err
		}
		if cred.Expired(time.Now()) {
			return "", fmt.Errorf("%w: %w", marketapi.ErrUnauthorized, ErrExpired)
		}
		return cred.Token, nil
	}
}

// Escalator ends a session after the marketplace rejected its credential.
// It acts once; later rejections of the same session are ignored.
type Escalator struct {
	once      sync.Once
	store     Store
	sessionID string
	notifier  notify.Notifier
	onExpire  func(sessionID string)
	logger    *slog.Logger
}

// NewEscalator builds the escalator for one session. onExpire runs after the
// credential is cleared. logger is expected to already carry the session id.
func NewEscalator(store Store, sessionID string, notifier notify.Notifier, onExpire func(string), logger *slog.Logger) *Escalator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Escalator{store: store, sessionID: sessionID, notifier: notifier, onExpire: onExpire, logger: logger}
}

// Escalate implements mutation.AuthEscalator.
func (e *Escalator) Escalate(ctx context.Context, cause error) {
	e.once.Do(func() {
		e.logger.Warn("marketplace rejected credential", slog.Any("error", cause))
		if err := e.store.Clear(ctx, e.sessionID); err != nil {
			e.logger.Error("clear credential", slog.Any("error", err))
		}
		if e.notifier != nil {
			n := notify.Notification{Kind: notify.KindWarning, Message: ExpiredMessage}
			if err := e.notifier.Notify(ctx, n); err != nil {
				e.logger.Error("push session expiry", slog.Any("error", err))
			}
		}
		if e.onExpire != nil {
			e.onExpire(e.sessionID)
		}
	})
}

// RequireRole admits signed-in sessions whose role is one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				httpx.RespondError(w, fmt.Errorf("%w: sign in required", httpx.ErrUnauthorized))
				return
			}
			if !slices.Contains(roles, sess.Role()) {
				httpx.RespondError(w, fmt.Errorf("%w: role %s", httpx.ErrForbidden, sess.Role()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
