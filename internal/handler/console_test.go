package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/qr-attendance/internal/middleware"
	"github.com/iliyamo/qr-attendance/internal/model"
	"github.com/iliyamo/qr-attendance/internal/repository"
	"github.com/iliyamo/qr-attendance/internal/service"
	"github.com/iliyamo/qr-attendance/internal/token"
	"github.com/iliyamo/qr-attendance/internal/utils"
)

const consoleJWTSecret = "console-test-secret"

type consoleFixture struct {
	e        *echo.Echo
	sessions *repository.MemorySessions
	ledger   *repository.MemorySubmissions
}

func newConsoleFixture(t *testing.T) *consoleFixture {
	t.Helper()
	sessions := repository.NewMemorySessions()
	ledger := repository.NewMemorySubmissions()
	codec := token.NewCodec([]byte("console-qr-secret"))
	svc := service.NewAttendanceService(sessions, ledger, codec, nil)
	sh := NewSessionHandler(sessions, ledger, svc)
	xh := NewExportHandler(sessions, ledger)

	e := echo.New()
	g := e.Group("/v1", middleware.JWTAuth(consoleJWTSecret), middleware.RequireRole("TEACHER"))
	g.POST("/sessions", sh.Start)
	g.GET("/sessions/:id", sh.Get)
	g.POST("/sessions/:id/stop", sh.Stop)
	g.GET("/sessions/:id/export", xh.CSV)

	return &consoleFixture{e: e, sessions: sessions, ledger: ledger}
}

func bearerFor(t *testing.T, teacherID uint64) string {
	t.Helper()
	at, err := utils.NewAccessToken(consoleJWTSecret, teacherID, "TEACHER", 5)
	require.NoError(t, err)
	return "Bearer " + at.Token
}

func (f *consoleFixture) do(t *testing.T, method, path, body, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestStartStopSessionRoundTrip(t *testing.T) {
	f := newConsoleFixture(t)
	owner := bearerFor(t, 7)

	rec := f.do(t, http.MethodPost, "/v1/sessions", `{"ttl_seconds":300}`, owner)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID        string    `json:"id"`
		CreatedAt time.Time `json:"created_at"`
		ExpiresAt time.Time `json:"expires_at"`
		IsActive  bool      `json:"is_active"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.True(t, strings.HasPrefix(created.ID, "SESSION_"))
	assert.True(t, created.IsActive)
	assert.Equal(t, 300*time.Second, created.ExpiresAt.Sub(created.CreatedAt))

	// Another teacher cannot stop it.
	rec = f.do(t, http.MethodPost, "/v1/sessions/"+created.ID+"/stop", "", bearerFor(t, 8))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/sessions/"+created.ID+"/stop", "", owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"is_active":false`)

	rec = f.do(t, http.MethodGet, "/v1/sessions/"+created.ID, "", owner)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		IsActive bool `json:"is_active"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.False(t, got.IsActive)

	// No token at all never reaches the handler.
	rec = f.do(t, http.MethodPost, "/v1/sessions", `{}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExportCSVDownload(t *testing.T) {
	f := newConsoleFixture(t)
	now := time.Now().UTC()
	s := model.Session{
		ID:        "SESSION_202608281200_ab12cd",
		TeacherID: 7,
		CreatedAt: now.Add(-time.Minute),
		ExpiresAt: now.Add(10 * time.Minute),
		IsActive:  true,
	}
	f.sessions.Put(s)
	require.NoError(t, f.ledger.Create(context.Background(), &model.Submission{
		SessionID: s.ID,
		StudentID: `Doe, "Jane"`,
		Timestamp: now,
		Verified:  true,
	}))

	rec := f.do(t, http.MethodGet, "/v1/sessions/"+s.ID+"/export", "", bearerFor(t, 7))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, `attachment; filename="attendance-SESSION_202608281200_ab12cd.csv"`,
		rec.Header().Get(echo.HeaderContentDisposition))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Student ID,Timestamp,Verified,Liveness Action", lines[0])
	assert.Contains(t, lines[1], `"Doe, ""Jane"""`)
	assert.Contains(t, lines[1], "Yes")

	// Someone else's session is off limits.
	rec = f.do(t, http.MethodGet, "/v1/sessions/"+s.ID+"/export", "", bearerFor(t, 8))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
