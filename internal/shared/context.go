// Package shared holds the browser session, CSRF protection and request
// context helpers used by every handler.
package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// SessionID returns the id of the request's session, or "".
func SessionID(ctx context.Context) string {
	if sess := SessionFromContext(ctx); sess != nil {
		return sess.ID
	}
	return ""
}
