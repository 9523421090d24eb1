package credential

import (
	"context"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.Claims) string {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestStatic(t *testing.T) {
	token, err := Static(" abc ").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = Static("").Token(context.Background())
	assert.ErrorIs(t, err, ErrMissing)
}

func TestExpiresAt(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := ExpiresAt(signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}))
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	got, err = ExpiresAt(signed(t, jwt.RegisteredClaims{Subject: "merchant-1"}))
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = ExpiresAt("opaque-api-key")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ExpiresAt("not.a.jwt")
	assert.ErrorContains(t, err, "malformed token")
}

func TestValidate(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	fresh := signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))})
	token, err := Validate(context.Background(), Static(fresh), now)
	require.NoError(t, err)
	assert.Equal(t, fresh, token)

	stale := signed(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour))})
	_, err = Validate(context.Background(), Static(stale), now)
	assert.ErrorIs(t, err, ErrExpired)
	assert.EqualError(t, err, "expired at 2024-03-01T11:00:00Z: credential expired")

	_, err = Validate(context.Background(), Static(""), now)
	assert.ErrorIs(t, err, ErrMissing)
}

func TestKeyring(t *testing.T) {
	k := NewKeyring(keyring.NewArrayKeyring(nil), "dashboard")

	_, err := k.Token(context.Background())
	assert.ErrorIs(t, err, ErrMissing)

	require.NoError(t, k.Store("secret"))
	token, err := k.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret", token)

	require.NoError(t, k.Remove())
	require.NoError(t, k.Remove())
	_, err = k.Token(context.Background())
	assert.ErrorIs(t, err, ErrMissing)
}
