package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newChecker(t *testing.T, issuer string) *JWTChecker {
	t.Helper()
	c, err := NewJWTChecker(testSecret, issuer, nil)
	require.NoError(t, err)
	return c
}

func TestNewJWTCheckerRejectsShortSecret(t *testing.T) {
	_, err := NewJWTChecker("short", "", nil)
	assert.Error(t, err)
}

func TestJWTCheckerCapabilities(t *testing.T) {
	c := newChecker(t, "routekit")
	token, err := c.Sign("user-1", []string{"course:view"}, time.Hour)
	require.NoError(t, err)
	header := "Bearer " + token

	p, err := c.Check(context.Background(), header, "course:view")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.Subject)

	_, err = c.Check(context.Background(), header, "")
	assert.NoError(t, err)

	_, err = c.Check(context.Background(), header, "course:edit")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestJWTCheckerRejects(t *testing.T) {
	c := newChecker(t, "routekit")
	other := newChecker(t, "someone-else")
	forger, err := NewJWTChecker(strings.Repeat("k", MinSecretLength), "routekit", nil)
	require.NoError(t, err)

	forged, err := forger.Sign("user-1", []string{"*"}, time.Hour)
	require.NoError(t, err)
	foreign, err := other.Sign("user-1", []string{"*"}, time.Hour)
	require.NoError(t, err)
	valid, err := c.Sign("user-1", []string{"*"}, time.Hour)
	require.NoError(t, err)

	c.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
	_, err = c.Check(context.Background(), "Bearer "+valid, "")
	assert.ErrorIs(t, err, ErrUnauthenticated, "expired")
	c.now = time.Now

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x", "iss": "routekit"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := map[string]string{
		"missing":      "",
		"basic scheme": "Basic dXNlcjpwYXNz",
		"garbage":      "Bearer not-a-token",
		"issuer":       "Bearer " + foreign,
		"signature":    "Bearer " + forged,
		"no expiry":    "Bearer " + noExp,
	}
	for name, header := range tests {
		t.Run(strings.ReplaceAll(name, " ", "_"), func(t *testing.T) {
			_, err := c.Check(context.Background(), header, "")
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestPrincipal(t *testing.T) {
	p := &Principal{Subject: "a", Capabilities: []string{"x"}}
	assert.True(t, p.Has("x"))
	assert.False(t, p.Has("y"))
	assert.True(t, (&Principal{Capabilities: []string{"*"}}).Has("y"))

	var none *Principal
	assert.False(t, none.Has("x"))

	ctx := WithPrincipal(context.Background(), p)
	got, ok := PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Same(t, p, got)

	_, ok = PrincipalFrom(context.Background())
	assert.False(t, ok)
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", tok)

	_, ok = BearerToken("Bearer ")
	assert.False(t, ok)
	_, ok = BearerToken("abc")
	assert.False(t, ok)

	p, err := AllowAll.Check(context.Background(), "", "anything")
	require.NoError(t, err)
	assert.True(t, p.Has("anything"))
}
