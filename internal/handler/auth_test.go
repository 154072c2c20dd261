package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/qr-attendance/internal/config"
	"github.com/iliyamo/qr-attendance/internal/repository"
)

type authFixture struct {
	e *echo.Echo
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	cfg := config.Config{
		JWTSecret:      "auth-test-secret",
		AccessTTLMin:   5,
		RefreshTTLDays: 7,
		BcryptCost:     bcrypt.MinCost,
	}
	h := NewAuthHandler(cfg, repository.NewMemoryUsers(), repository.NewMemoryTokens())

	e := echo.New()
	e.POST("/v1/auth/register", h.Register)
	e.POST("/v1/auth/login", h.Login)
	e.POST("/v1/auth/refresh", h.Refresh)
	e.POST("/v1/auth/logout", h.Logout)
	return &authFixture{e: e}
}

func (f *authFixture) post(t *testing.T, path string, body map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(b)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

// refreshToken pulls the raw refresh token out of an auth response.
func refreshToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Refresh struct {
			Token string `json:"token"`
		} `json:"refresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Refresh.Token)
	return resp.Refresh.Token
}

func TestRegisterThenLogin(t *testing.T) {
	f := newAuthFixture(t)
	creds := map[string]string{"email": "Ms.Frizzle@School.edu", "password": "seatbelts"}

	rec := f.post(t, "/v1/auth/register", creds)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Same email again conflicts regardless of case.
	rec = f.post(t, "/v1/auth/register", map[string]string{"email": "ms.frizzle@school.edu", "password": "other"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.post(t, "/v1/auth/login", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.post(t, "/v1/auth/login", map[string]string{"email": creds["email"], "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutRevokesAllRefreshTokens(t *testing.T) {
	f := newAuthFixture(t)
	creds := map[string]string{"email": "t@school.edu", "password": "pw"}

	// Two sessions for the same account: one from registration, one
	// from a later login on a second device.
	first := refreshToken(t, f.post(t, "/v1/auth/register", creds))
	second := refreshToken(t, f.post(t, "/v1/auth/login", creds))
	require.NotEqual(t, first, second)

	rec := f.post(t, "/v1/auth/logout", map[string]string{"refresh_token": second})
	require.Equal(t, http.StatusNoContent, rec.Code)

	// The sibling token died with the one that was presented.
	rec = f.post(t, "/v1/auth/refresh", map[string]string{"refresh_token": first})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.post(t, "/v1/auth/refresh", map[string]string{"refresh_token": second})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logging out again with a dead token is still a quiet success.
	rec = f.post(t, "/v1/auth/logout", map[string]string{"refresh_token": second})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRefreshRotation(t *testing.T) {
	f := newAuthFixture(t)
	creds := map[string]string{"email": "r@school.edu", "password": "pw"}

	old := refreshToken(t, f.post(t, "/v1/auth/register", creds))

	rec := f.post(t, "/v1/auth/refresh", map[string]string{"refresh_token": old})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fresh := refreshToken(t, rec)
	require.NotEqual(t, old, fresh)

	// The spent token cannot be replayed; the new one works.
	rec = f.post(t, "/v1/auth/refresh", map[string]string{"refresh_token": old})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = f.post(t, "/v1/auth/refresh", map[string]string{"refresh_token": fresh})
	assert.Equal(t, http.StatusOK, rec.Code)
}
