package tokengenerator

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret   = "test-secret-key-for-jwt-signing"
	testIssuer   = "simple-auth"
	testAudience = "simple-auth-api"
)

func newTestGenerator() *JwtTokenGenerator {
	return NewJwtTokenGenerator(testSecret, testIssuer, testAudience)
}

func TestJwtTokenGenerator_RoundTrip(t *testing.T) {
	g := newTestGenerator()

	tokenStr, expiry, err := g.GenerateToken("user-123", time.Hour, "USER", "")
	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), expiry, 5*time.Second)

	claims, err := g.ParseToken(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.Subject)
	assert.Equal(t, "USER", claims.Role)
	assert.Empty(t, claims.Scope)
	assert.Equal(t, testIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestJwtTokenGenerator_ScopedToken(t *testing.T) {
	g := newTestGenerator()

	tokenStr, _, err := g.GenerateToken("user-123", 5*time.Minute, "USER", ScopeTwoFA)
	require.NoError(t, err)

	claims, err := g.ParseToken(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, ScopeTwoFA, claims.Scope)
}

func TestJwtTokenGenerator_ParseFailures(t *testing.T) {
	g := newTestGenerator()

	t.Run("expired", func(t *testing.T) {
		tokenStr, _, err := g.GenerateToken("user-123", -2*time.Minute, "USER", "")
		require.NoError(t, err)

		_, err = g.ParseToken(tokenStr)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJwtTokenGenerator("different-secret", testIssuer, testAudience)
		tokenStr, _, err := other.GenerateToken("user-123", time.Hour, "USER", "")
		require.NoError(t, err)

		_, err = g.ParseToken(tokenStr)
		assert.ErrorIs(t, err, ErrTokenSignature)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := g.ParseToken("not.a.token")
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJwtTokenGenerator(testSecret, "other-issuer", testAudience)
		tokenStr, _, err := other.GenerateToken("user-123", time.Hour, "USER", "")
		require.NoError(t, err)

		_, err = g.ParseToken(tokenStr)
		assert.Error(t, err)
	})
}

func TestJwtService_TokenKinds(t *testing.T) {
	g := newTestGenerator()
	js := NewJwtService(
		WithDefaultTokenGenerator(g),
		WithAccessTokenExpiry(time.Hour),
		WithTempTokenExpiry(5*time.Minute),
	)

	t.Run("access token has role and no scope", func(t *testing.T) {
		tokenStr, expiry, err := js.GenerateAccessToken("user-123", "ADMIN")
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), expiry, 5*time.Second)

		claims, err := js.ParseToken(ACCESS_TOKEN_NAME, tokenStr)
		require.NoError(t, err)
		assert.Equal(t, "ADMIN", claims.Role)
		assert.Empty(t, claims.Scope)
	})

	t.Run("temp token is 2fa-scoped and short-lived", func(t *testing.T) {
		tokenStr, expiry, err := js.GenerateTempToken("user-123", "USER")
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC().Add(5*time.Minute), expiry, 5*time.Second)

		claims, err := js.ParseToken(TEMP_TOKEN_NAME, tokenStr)
		require.NoError(t, err)
		assert.Equal(t, ScopeTwoFA, claims.Scope)
	})
}

func TestCookieSetter(t *testing.T) {
	setter := NewCookieSetter(true, true)

	t.Run("set", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := setter.SetCookie(w, ACCESS_TOKEN_NAME, "token-value", time.Now().Add(time.Hour))
		require.NoError(t, err)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, ACCESS_TOKEN_NAME, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
		assert.True(t, cookies[0].Secure)
	})

	t.Run("clear", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := setter.ClearCookie(w, ACCESS_TOKEN_NAME)
		require.NoError(t, err)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Empty(t, cookies[0].Value)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})
}
