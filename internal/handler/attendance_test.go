package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/qr-attendance/internal/model"
	"github.com/iliyamo/qr-attendance/internal/repository"
	"github.com/iliyamo/qr-attendance/internal/service"
	"github.com/iliyamo/qr-attendance/internal/token"
)

const handlerTestSecret = "handler-test-secret"

type webFixture struct {
	e        *echo.Echo
	sessions *repository.MemorySessions
	codec    *token.Codec
}

func newWebFixture(t *testing.T) *webFixture {
	t.Helper()
	sessions := repository.NewMemorySessions()
	ledger := repository.NewMemorySubmissions()
	codec := token.NewCodec([]byte(handlerTestSecret))
	svc := service.NewAttendanceService(sessions, ledger, codec, nil)

	e := echo.New()
	ah := NewAttendanceHandler(svc)
	sh := NewSessionHandler(sessions, ledger, svc)
	e.POST("/v1/attendance/submit", ah.Submit)
	e.GET("/v1/sessions/:id/status", sh.Status)

	return &webFixture{e: e, sessions: sessions, codec: codec}
}

func (f *webFixture) session(active bool, until time.Duration) model.Session {
	now := time.Now().UTC()
	s := model.Session{
		ID:        "SESSION_202608281200_ab12cd",
		TeacherID: 7,
		CreatedAt: now.Add(-time.Minute),
		ExpiresAt: now.Add(until),
		IsActive:  active,
	}
	f.sessions.Put(s)
	return s
}

func (f *webFixture) rawToken(t *testing.T, sid string) string {
	t.Helper()
	p, err := f.codec.Generate(sid, token.DefaultTTL)
	require.NoError(t, err)
	b, err := json.Marshal(p)
	require.NoError(t, err)
	return string(b)
}

func (f *webFixture) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func submitBody(t *testing.T, sid, student, raw string) string {
	t.Helper()
	b, err := json.Marshal(map[string]string{
		"session_id": sid,
		"student_id": student,
		"token":      raw,
	})
	require.NoError(t, err)
	return string(b)
}

func TestSubmitEndpointHappyPath(t *testing.T) {
	f := newWebFixture(t)
	s := f.session(true, 10*time.Minute)

	rec := f.do(http.MethodPost, "/v1/attendance/submit",
		submitBody(t, s.ID, "S-1001", f.rawToken(t, s.ID)))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		ID        uint64 `json:"id"`
		SessionID string `json:"session_id"`
		StudentID string `json:"student_id"`
		Verified  bool   `json:"verified"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotZero(t, resp.ID)
	assert.Equal(t, s.ID, resp.SessionID)
	assert.Equal(t, "S-1001", resp.StudentID)
	assert.True(t, resp.Verified)
}

func TestSubmitEndpointDuplicateConflict(t *testing.T) {
	f := newWebFixture(t)
	s := f.session(true, 10*time.Minute)

	first := f.do(http.MethodPost, "/v1/attendance/submit",
		submitBody(t, s.ID, "S-1001", f.rawToken(t, s.ID)))
	require.Equal(t, http.StatusCreated, first.Code)

	second := f.do(http.MethodPost, "/v1/attendance/submit",
		submitBody(t, s.ID, "S-1001", f.rawToken(t, s.ID)))
	require.Equal(t, http.StatusConflict, second.Code)
	assert.Contains(t, second.Body.String(), "ALREADY_SUBMITTED")
}

func TestSubmitEndpointValidation(t *testing.T) {
	f := newWebFixture(t)
	s := f.session(true, 10*time.Minute)
	raw := f.rawToken(t, s.ID)

	cases := map[string]string{
		"missing student": submitBody(t, s.ID, "", raw),
		"missing token":   submitBody(t, s.ID, "S-1", ""),
		"missing session": submitBody(t, "", "S-1", raw),
		"short session":   submitBody(t, "abc", "S-1", raw),
		"long student":    submitBody(t, s.ID, strings.Repeat("x", 101), raw),
		"not json":        "{nope",
	}
	for name, body := range cases {
		rec := f.do(http.MethodPost, "/v1/attendance/submit", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR", name)
	}
}

func TestSubmitEndpointTokenFailures(t *testing.T) {
	f := newWebFixture(t)
	s := f.session(true, 10*time.Minute)

	rec := f.do(http.MethodPost, "/v1/attendance/submit",
		submitBody(t, s.ID, "S-1", `{"sid":"x"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TOKEN_FORMAT")

	other := token.NewCodec([]byte("some-other-secret"))
	p, err := other.Generate(s.ID, token.DefaultTTL)
	require.NoError(t, err)
	b, _ := json.Marshal(p)
	rec = f.do(http.MethodPost, "/v1/attendance/submit", submitBody(t, s.ID, "S-1", string(b)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_OR_EXPIRED_TOKEN")

	rec = f.do(http.MethodPost, "/v1/attendance/submit",
		submitBody(t, s.ID, "S-1", f.rawToken(t, "SESSION_202608281200_ffffff")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "SESSION_MISMATCH")
}

func TestSubmitEndpointSessionStates(t *testing.T) {
	f := newWebFixture(t)

	stopped := f.session(false, 10*time.Minute)
	rec := f.do(http.MethodPost, "/v1/attendance/submit",
		submitBody(t, stopped.ID, "S-1", f.rawToken(t, stopped.ID)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "SESSION_STOPPED")

	expired := model.Session{
		ID:        "SESSION_202608281100_dead01",
		TeacherID: 7,
		CreatedAt: time.Now().UTC().Add(-time.Hour),
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
		IsActive:  true,
	}
	f.sessions.Put(expired)
	rec = f.do(http.MethodPost, "/v1/attendance/submit",
		submitBody(t, expired.ID, "S-1", f.rawToken(t, expired.ID)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "SESSION_EXPIRED")

	missing := "SESSION_202608281200_000000"
	rec = f.do(http.MethodPost, "/v1/attendance/submit",
		submitBody(t, missing, "S-1", f.rawToken(t, missing)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "SESSION_NOT_FOUND")
}

func TestStatusEndpoint(t *testing.T) {
	f := newWebFixture(t)
	s := f.session(true, 10*time.Minute)

	sub := f.do(http.MethodPost, "/v1/attendance/submit",
		submitBody(t, s.ID, "S-1", f.rawToken(t, s.ID)))
	require.Equal(t, http.StatusCreated, sub.Code)

	rec := f.do(http.MethodGet, "/v1/sessions/"+s.ID+"/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		SessionID string `json:"session_id"`
		Usable    bool   `json:"usable"`
		IsActive  bool   `json:"is_active"`
		Count     int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, s.ID, resp.SessionID)
	assert.True(t, resp.Usable)
	assert.Equal(t, 1, resp.Count)

	rec = f.do(http.MethodGet, "/v1/sessions/SESSION_202608281200_000000/status", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
