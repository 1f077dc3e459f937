package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "jwt-test-secret"

func signToken(t *testing.T, secret, subject string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: subject + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

type fakeRoles struct {
	roles map[string]string
	err   error
}

func (f *fakeRoles) HasRole(_ context.Context, userID, role string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.roles[userID] == role, nil
}

func (f *fakeRoles) Grant(_ context.Context, userID, role string) error {
	f.roles[userID] = role
	return nil
}

func run(t *testing.T, authHeader string, chain ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := func(c echo.Context) error {
		return c.String(http.StatusOK, UserID(c)+"|"+UserEmail(c))
	}
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return rec, h(c)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected echo.HTTPError, got %v", err)
	return he.Code
}

func TestAuthenticate_ValidToken(t *testing.T) {
	token := signToken(t, testSecret, "u1", time.Now().Add(time.Hour))

	rec, err := run(t, "Bearer "+token, Authenticate(testSecret), RequireAuth())
	require.NoError(t, err)
	assert.Equal(t, "u1|u1@example.com", rec.Body.String())
}

func TestAuthenticate_Anonymous(t *testing.T) {
	rec, err := run(t, "", Authenticate(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "|", rec.Body.String())

	_, err = run(t, "", Authenticate(testSecret), RequireAuth())
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestAuthenticate_Rejects(t *testing.T) {
	tests := map[string]string{
		"wrong secret": "Bearer " + signToken(t, "other", "u1", time.Now().Add(time.Hour)),
		"expired":      "Bearer " + signToken(t, testSecret, "u1", time.Now().Add(-time.Hour)),
		"no subject":   "Bearer " + signToken(t, testSecret, "", time.Now().Add(time.Hour)),
		"not bearer":   "Basic abc",
		"garbage":      "Bearer not.a.jwt",
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := run(t, header, Authenticate(testSecret))
			assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
		})
	}
}

func TestRequireRole(t *testing.T) {
	roles := &fakeRoles{roles: map[string]string{"admin1": "admin"}}
	admin := signToken(t, testSecret, "admin1", time.Now().Add(time.Hour))
	user := signToken(t, testSecret, "u1", time.Now().Add(time.Hour))
	chain := []echo.MiddlewareFunc{Authenticate(testSecret), RequireAuth(), RequireRole(roles, "admin")}

	_, err := run(t, "Bearer "+admin, chain...)
	assert.NoError(t, err)

	_, err = run(t, "Bearer "+user, chain...)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, err = run(t, "", chain...)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	roles.err = errors.New("db down")
	_, err = run(t, "Bearer "+admin, chain...)
	assert.EqualError(t, err, "db down")
}
