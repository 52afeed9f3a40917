package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-jwt-secret")

func newContext(t *testing.T, cookie string) echo.Context {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: cookie})
	}
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec)
}

func signedToken(t *testing.T, secret []byte, sub any) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": sub})
	s, err := token.SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestResolveAuthenticatedUserWins(t *testing.T) {
	r := &Resolver{JWTSecret: testSecret}
	c := newContext(t, signedToken(t, testSecret, 42))

	owner, err := r.Resolve(c, "some-session")
	require.NoError(t, err)
	require.True(t, owner.IsAuthenticated())
	require.Equal(t, uint(42), owner.UserID)
	require.Empty(t, owner.SessionToken)
}

func TestResolveFallsBackToSession(t *testing.T) {
	r := &Resolver{JWTSecret: testSecret}

	owner, err := r.Resolve(newContext(t, ""), "sess-abc")
	require.NoError(t, err)
	require.False(t, owner.IsAuthenticated())
	require.Equal(t, "sess-abc", owner.SessionToken)
}

func TestResolveBadSignatureFallsBack(t *testing.T) {
	r := &Resolver{JWTSecret: testSecret}
	c := newContext(t, signedToken(t, []byte("wrong-secret"), 42))

	owner, err := r.Resolve(c, "sess-abc")
	require.NoError(t, err)
	require.Equal(t, "sess-abc", owner.SessionToken)
}

func TestResolveInvalidSubjectFallsBack(t *testing.T) {
	r := &Resolver{JWTSecret: testSecret}
	c := newContext(t, signedToken(t, testSecret, "not-a-number"))

	owner, err := r.Resolve(c, "sess-abc")
	require.NoError(t, err)
	require.False(t, owner.IsAuthenticated())
}

func TestResolveNothingPresent(t *testing.T) {
	r := &Resolver{JWTSecret: testSecret}

	_, err := r.Resolve(newContext(t, ""), "")
	require.ErrorIs(t, err, ErrMissingIdentity)
}
