package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker records signed-out token ids in Redis until the token would have
// expired anyway. Without a client nothing is ever revoked.
type Revoker struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRevoker(rdb *redis.Client) *Revoker {
	return &Revoker{rdb: rdb, now: time.Now}
}

func revokedKey(tokenID string) string {
	return "auth:revoked:" + tokenID
}

// Revoke blacklists s.TokenID.
func (r *Revoker) Revoke(ctx context.Context, s *Session) error {
	if r == nil || r.rdb == nil || s == nil || s.TokenID == "" {
		return nil
	}
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	return r.rdb.Set(ctx, revokedKey(s.TokenID), s.UserID, ttl).Err()
}

// IsRevoked reports whether tokenID was revoked.
func (r *Revoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if r == nil || r.rdb == nil || tokenID == "" {
		return false, nil
	}
	n, err := r.rdb.Exists(ctx, revokedKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
