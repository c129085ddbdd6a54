package main

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/qumail/qumail-client/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

	got, ok := tokenExpiry(signedToken(t, jwt.MapClaims{"sub": "u1", "exp": exp.Unix()}))
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = tokenExpiry(signedToken(t, jwt.MapClaims{"sub": "u1"}))
	assert.False(t, ok, "no exp claim")

	_, ok = tokenExpiry("opaque-session-token")
	assert.False(t, ok, "not a JWT")
}

func TestCurrentIdentity(t *testing.T) {
	issued := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	store := session.NewMemoryStore(session.WithClock(func() time.Time { return issued }))

	_, err := currentIdentity(store)
	assert.ErrorIs(t, err, errNotSignedIn)

	_, err = store.Save("u1", "a@b.com", "opaque")
	require.NoError(t, err)

	id, err := currentIdentity(store)
	require.NoError(t, err)
	assert.Equal(t, identity{UserID: "u1", Email: "a@b.com", SignedInAt: issued}, id)
}

func TestNewIdentity_WithJWT(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	id := newIdentity(&session.Credential{
		UserID: "u1",
		Email:  "a@b.com",
		Token:  signedToken(t, jwt.MapClaims{"exp": exp.Unix()}),
	})
	require.NotNil(t, id.ExpiresAt)
	assert.True(t, exp.Equal(*id.ExpiresAt))
}
