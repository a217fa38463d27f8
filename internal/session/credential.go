// Package session keeps the marketplace credential of each browser session
// and reacts when the marketplace rejects it.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNoCredential indicates the session never signed in or signed out.
	ErrNoCredential = errors.New("session: no credential")
	// ErrExpired indicates the stored token is past its expiry.
	ErrExpired = errors.New("session: credential expired")
	// ErrInvalidToken rejects a token without the claims the dashboard needs.
	ErrInvalidToken = errors.New("session: invalid token")
)

// Dashboard roles.
const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
)

// Credential is the bearer token of a signed-in user with its claims.
type Credential struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the credential is unusable at now.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// ParseToken reads the sub, role and exp claims of a marketplace token. The
// signature is not checked here; the marketplace API verifies it on every
// call.
func ParseToken(raw string, now time.Time) (Credential, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Bearer "))
	if raw == "" {
		return Credential{}, ErrInvalidToken
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return Credential{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Credential{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	role, _ := claims["role"].(string)
	switch role {
	case RoleAdmin, RoleSeller:
	default:
		return Credential{}, fmt.Errorf("%w: unsupported role %q", ErrInvalidToken, role)
	}
	cred := Credential{Token: raw, UserID: sub, Role: role}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		cred.ExpiresAt = exp.Time.UTC()
	}
	if cred.Expired(now) {
		return Credential{}, ErrExpired
	}
	return cred, nil
}

// Store persists credentials per browser session.
type Store interface {
	Load(ctx context.Context, sessionID string) (Credential, error)
	Save(ctx context.Context, sessionID string, cred Credential) error
	Clear(ctx context.Context, sessionID string) error
}

// RedisStore keeps credentials as JSON under credential:{session id}.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore. ttl caps how long a credential
// without expiry is kept.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Load returns the session's credential or ErrNoCredential.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (Credential, error) {
	data, err := s.client.Get(ctx, credentialKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Credential{}, ErrNoCredential
	}
	if err != nil {
		return Credential{}, err
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return Credential{}, fmt.Errorf("session: decode credential: %w", err)
	}
	return cred, nil
}

// Save stores cred until its expiry or the configured ttl, whichever is
// sooner.
func (s *RedisStore) Save(ctx context.Context, sessionID string, cred Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	ttl := s.ttl
	if !cred.ExpiresAt.IsZero() {
		if left := time.Until(cred.ExpiresAt); left < ttl {
			ttl = left
		}
	}
	if ttl <= 0 {
		return ErrExpired
	}
	return s.client.Set(ctx, credentialKey(sessionID), data, ttl).Err()
}

// Clear removes the session's credential.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, credentialKey(sessionID)).Err()
}

func credentialKey(sessionID string) string {
	return "credential:" + sessionID
}
