package auth

import (
	"context"
	"time"

	"shiplog/internal/middleware"
)

// SessionProvider implements Provider over signed tokens, a Redis revocation
// list and the session Hub.
type SessionProvider struct {
	tokens  *TokenIssuer
	revoker *Revoker
	hub     *Hub
	now     func() time.Time
}

var _ Provider = (*SessionProvider)(nil)

func NewSessionProvider(tokens *TokenIssuer, revoker *Revoker, hub *Hub) *SessionProvider {
	return &SessionProvider{tokens: tokens, revoker: revoker, hub: hub, now: time.Now}
}

// Authenticate resolves a bearer token to a live session.
func (p *SessionProvider) Authenticate(ctx context.Context, token string) (*Session, error) {
	s, err := p.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	return s, p.checkRevoked(ctx, s)
}

// CurrentSession re-validates the session bound to ctx so a token revoked
// mid-request is not honoured.
func (p *SessionProvider) CurrentSession(ctx context.Context) (*Session, error) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return nil, ErrNoSession
	}
	if s.Expired(p.now()) {
		return nil, ErrSessionExpired
	}
	if err := p.checkRevoked(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// SignIn issues a token for an existing user and announces it.
func (p *SessionProvider) SignIn(ctx context.Context, userID, email string) (string, *Session, error) {
	token, s, err := p.tokens.Issue(userID, email)
	if err != nil {
		return "", nil, err
	}
	p.publish(ctx, SignedIn, s)
	return token, s, nil
}

// Refresh replaces the current session's token with a new one.
func (p *SessionProvider) Refresh(ctx context.Context) (string, *Session, error) {
	current, err := p.CurrentSession(ctx)
	if err != nil {
		return "", nil, err
	}
	token, s, err := p.tokens.Issue(current.UserID, current.Email)
	if err != nil {
		return "", nil, err
	}
	if err := p.revoker.Revoke(ctx, current); err != nil {
		return "", nil, err
	}
	p.publish(ctx, TokenRefreshed, s)
	return token, s, nil
}

func (p *SessionProvider) SignOut(ctx context.Context) error {
	s, err := p.CurrentSession(ctx)
	if err != nil {
		return err
	}
	if err := p.revoker.Revoke(ctx, s); err != nil {
		return err
	}
	p.publish(ctx, SignedOut, s)
	return nil
}

func (p *SessionProvider) OnSessionChange(ctx context.Context, fn func(Event)) (func(), error) {
	return p.hub.Subscribe(ctx, fn)
}

func (p *SessionProvider) checkRevoked(ctx context.Context, s *Session) error {
	revoked, err := p.revoker.IsRevoked(ctx, s.TokenID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "revocation check failed", "error", err)
		return nil
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}

func (p *SessionProvider) publish(ctx context.Context, t EventType, s *Session) {
	if p.hub == nil {
		return
	}
	if err := p.hub.Publish(Event{Type: t, Session: *s}); err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to publish session event",
			"event", string(t), "error", err)
	}
}
