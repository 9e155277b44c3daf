package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestNewAccessToken(t *testing.T) {
	at, err := NewAccessToken("secret", 42, "ORGANIZER", 15)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), at.Exp, 2*time.Second)

	tok, err := jwt.Parse(at.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	require.True(t, tok.Valid)

	claims := tok.Claims.(jwt.MapClaims)
	require.Equal(t, float64(42), claims["sub"])
	require.Equal(t, "ORGANIZER", claims["role"])
}

func TestNewRefreshToken(t *testing.T) {
	a, err := NewRefreshToken(7)
	require.NoError(t, err)
	b, err := NewRefreshToken(7)
	require.NoError(t, err)

	require.Len(t, a.Raw, 96)
	require.NotEqual(t, a.Raw, b.Raw)
	require.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), a.Exp, 2*time.Second)
}

func TestHashRefreshRaw(t *testing.T) {
	require.Equal(t, HashRefreshRaw("tok"), HashRefreshRaw("tok"))
	require.NotEqual(t, HashRefreshRaw("tok"), HashRefreshRaw("tok2"))
	require.Len(t, HashRefreshRaw("tok"), 64)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret", 4)
	require.NoError(t, err)
	require.True(t, VerifyPassword(hash, "s3cret"))
	require.False(t, VerifyPassword(hash, "wrong"))
}
