package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken("64b7f0c2a1b2c3d4e5f60718", "admin")
	require.NoError(t, err)

	claims, err := ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateRejectsTamperedAndExpired(t *testing.T) {
	tok, err := GenerateToken("u1", "user")
	require.NoError(t, err)

	_, err = ValidateToken(tok + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: "u1",
		Role:   "user",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	raw, err := expired.SignedString(secret())
	require.NoError(t, err)
	_, err = ValidateToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS384, Claims{UserID: "u1"})
	raw, err = foreign.SignedString(secret())
	require.NoError(t, err)
	_, err = ValidateToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)
	assert.True(t, CheckPassword(hash, "secret123"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestIdentityContext(t *testing.T) {
	_, ok := FromCtx(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: "u1", Role: "admin"})
	id, ok := FromCtx(ctx)
	require.True(t, ok)
	assert.True(t, id.IsAdmin())
}
