// Package auth issues and validates sessions, signs users in through GitHub
// and fans session changes out to subscribers.
package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNoSession      = errors.New("auth: no session")
	ErrSessionExpired = errors.New("auth: session expired")
	ErrTokenRevoked   = errors.New("auth: token revoked")
	ErrInvalidToken   = errors.New("auth: invalid token")
)

// Session is the identity behind one issued token.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// EventType names a session transition.
type EventType string

const (
	SignedIn       EventType = "SIGNED_IN"
	SignedOut      EventType = "SIGNED_OUT"
	TokenRefreshed EventType = "TOKEN_REFRESHED"
)

// Event is delivered to session-change subscribers.
type Event struct {
	Type    EventType `json:"type"`
	Session Session   `json:"session"`
}

// Provider is what the rest of the app needs from authentication.
type Provider interface {
	// CurrentSession returns the live session bound to ctx, or ErrNoSession.
	CurrentSession(ctx context.Context) (*Session, error)
	// OnSessionChange calls fn for every session event until the returned
	// function is called or ctx ends.
	OnSessionChange(ctx context.Context, fn func(Event)) (func(), error)
	// SignOut ends the session bound to ctx.
	SignOut(ctx context.Context) error
}

type sessionKey struct{}

// WithSession binds s to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session bound to ctx, if any.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}
