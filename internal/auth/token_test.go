package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-123456"

func newIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	iss, err := NewTokenIssuer(testSecret, time.Hour)
	require.NoError(t, err)
	return iss
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	iss := newIssuer(t)

	token, issued, err := iss.Issue("user-1", "ada@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.TokenID)

	got, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.Equal(t, issued.TokenID, got.TokenID)
	assert.True(t, issued.ExpiresAt.Equal(got.ExpiresAt))
}

func TestTokenIssuer_Rejects(t *testing.T) {
	iss := newIssuer(t)
	token, _, err := iss.Issue("user-1", "ada@example.com")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenIssuer("a-completely-different-secret-value", time.Hour)
		require.NoError(t, err)
		_, err = other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		late := newIssuer(t)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Parse(token)
		assert.ErrorIs(t, err, ErrSessionExpired)
	})

	t.Run("foreign audience", func(t *testing.T) {
		c := jwt.MapClaims{
			"sub": "user-1", "jti": "x", "iss": Issuer, "aud": "someone-else",
			"exp": time.Now().Add(time.Hour).Unix(),
		}
		foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, err = iss.Parse(foreign)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := iss.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewTokenIssuer_Validation(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
	_, err = NewTokenIssuer(testSecret, 0)
	assert.Error(t, err)
}
