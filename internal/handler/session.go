package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/qr-attendance/internal/model"
	"github.com/iliyamo/qr-attendance/internal/repository"
	"github.com/iliyamo/qr-attendance/internal/service"
)

// SessionStore is the session persistence surface the HTTP layer uses.
// Satisfied by repository.SessionRepo and repository.MemorySessions.
type SessionStore interface {
	Create(ctx context.Context, teacherID uint64, classID *uint64, ttlSeconds int) (model.Session, error)
	GetByID(ctx context.Context, id string) (model.Session, error)
	GetForOwner(ctx context.Context, id string, teacherID uint64) (model.Session, error)
	Stop(ctx context.Context, id string, teacherID uint64) error
}

// SubmissionStore adds the read side needed by the teacher dashboard.
type SubmissionStore interface {
	ListBySession(ctx context.Context, sessionID string) ([]model.Submission, error)
	CountBySession(ctx context.Context, sessionID string) (int, error)
}

// SessionHandler serves the teacher-facing session lifecycle plus the
// public status endpoint students poll while waiting for the QR code.
type SessionHandler struct {
	Sessions    SessionStore
	Submissions SubmissionStore
	Attendance  *service.AttendanceService

	// DefaultTTLSec is used when a start request omits ttl_seconds.
	// Zero falls through to the repository default.
	DefaultTTLSec int
}

func NewSessionHandler(sessions SessionStore, submissions SubmissionStore, att *service.AttendanceService) *SessionHandler {
	return &SessionHandler{Sessions: sessions, Submissions: submissions, Attendance: att}
}

type startSessionReq struct {
	ClassID    *uint64 `json:"class_id"`
	TTLSeconds int     `json:"ttl_seconds"`
}

type sessionResp struct {
	ID        string    `json:"id"`
	ClassID   *uint64   `json:"class_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	IsActive  bool      `json:"is_active"`
}

func toSessionResp(s model.Session) sessionResp {
	return sessionResp{
		ID:        s.ID,
		ClassID:   s.ClassID,
		CreatedAt: s.CreatedAt,
		ExpiresAt: s.ExpiresAt,
		IsActive:  s.IsActive,
	}
}

// Start opens a new attendance session for the authenticated teacher.
// A ttl outside the allowed window is clamped, not rejected.
func (h *SessionHandler) Start(c echo.Context) error {
	teacherID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req startSessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "code": "VALIDATION_ERROR"})
	}

	ttl := req.TTLSeconds
	if ttl == 0 {
		ttl = h.DefaultTTLSec
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Sessions.Create(ctx, teacherID, req.ClassID, ttl)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
	}
	return c.JSON(http.StatusCreated, toSessionResp(s))
}

// Stop flips the session's kill switch.  Once stopped a session never
// admits again, even inside its original window.
func (h *SessionHandler) Stop(c echo.Context) error {
	teacherID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session id required", "code": "VALIDATION_ERROR"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Sessions.Stop(ctx, id, teacherID); err {
	case nil:
		return c.JSON(http.StatusOK, echo.Map{"id": id, "is_active": false})
	case repository.ErrSessionNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found", "code": "SESSION_NOT_FOUND"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your session", "code": "FORBIDDEN"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "stop session failed"})
	}
}

// Get returns a session owned by the caller.
func (h *SessionHandler) Get(c echo.Context) error {
	teacherID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Sessions.GetForOwner(ctx, c.Param("id"), teacherID)
	switch err {
	case nil:
		return c.JSON(http.StatusOK, toSessionResp(s))
	case repository.ErrSessionNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found", "code": "SESSION_NOT_FOUND"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your session", "code": "FORBIDDEN"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
}

// QR issues a fresh signed payload for an owned, still-usable session.
// The projector page calls this every few seconds, so the only storage
// work is the ownership lookup.
func (h *SessionHandler) QR(c echo.Context) error {
	teacherID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Sessions.GetForOwner(ctx, c.Param("id"), teacherID)
	switch err {
	case nil:
	case repository.ErrSessionNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found", "code": "SESSION_NOT_FOUND"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your session", "code": "FORBIDDEN"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !s.Usable(time.Now().UTC()) {
		if !s.IsActive {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "session has been stopped", "code": "SESSION_STOPPED"})
		}
		return c.JSON(http.StatusForbidden, echo.Map{"error": "session has expired", "code": "SESSION_EXPIRED"})
	}

	p, err := h.Attendance.IssueQRPayload(s.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue qr failed"})
	}
	return c.JSON(http.StatusOK, p)
}

type submissionPart struct {
	ID             uint64    `json:"id"`
	StudentID      string    `json:"student_id"`
	StudentName    string    `json:"student_name,omitempty"`
	StudentEmail   string    `json:"student_email,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Verified       bool      `json:"verified"`
	LivenessAction string    `json:"liveness_action,omitempty"`
	IPAddress      string    `json:"ip_address,omitempty"`
}

// Submissions lists the admitted records for an owned session, newest
// first.  The raw selfie payload stays server-side; the dashboard only
// needs identity and timing.
func (h *SessionHandler) ListSubmissions(c echo.Context) error {
	teacherID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Sessions.GetForOwner(ctx, c.Param("id"), teacherID)
	switch err {
	case nil:
	case repository.ErrSessionNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found", "code": "SESSION_NOT_FOUND"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your session", "code": "FORBIDDEN"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	subs, err := h.Submissions.ListBySession(ctx, s.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]submissionPart, 0, len(subs))
	for _, sub := range subs {
		out = append(out, submissionPart{
			ID:             sub.ID,
			StudentID:      sub.StudentID,
			StudentName:    sub.StudentName,
			StudentEmail:   sub.StudentEmail,
			Timestamp:      sub.Timestamp,
			Verified:       sub.Verified,
			LivenessAction: sub.LivenessAction,
			IPAddress:      sub.IPAddress,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"session_id":  s.ID,
		"count":       len(out),
		"submissions": out,
	})
}

// Status is the public view of a session.  Students hit this before
// scanning, so it leaks nothing beyond liveness and the headcount.
func (h *SessionHandler) Status(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Sessions.GetByID(ctx, c.Param("id"))
	switch err {
	case nil:
	case repository.ErrSessionNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found", "code": "SESSION_NOT_FOUND"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	count, err := h.Submissions.CountBySession(ctx, s.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	now := time.Now().UTC()
	return c.JSON(http.StatusOK, echo.Map{
		"session_id": s.ID,
		"usable":     s.Usable(now),
		"is_active":  s.IsActive,
		"expires_at": s.ExpiresAt,
		"count":      count,
	})
}
