package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/qr-attendance/internal/repository"
	"github.com/iliyamo/qr-attendance/internal/service"
)

const (
	maxStudentIDLen = 100
	minSessionIDLen = 10
)

// AttendanceHandler serves the public submission endpoint.  Students
// are unauthenticated; the signed QR token is the proof of presence.
type AttendanceHandler struct {
	Attendance *service.AttendanceService
}

func NewAttendanceHandler(att *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{Attendance: att}
}

type submitReq struct {
	SessionID      string `json:"session_id"`
	StudentID      string `json:"student_id"`
	Token          string `json:"token"`
	SelfieImage    string `json:"selfie_image"`
	LivenessAction string `json:"liveness_action"`
}

type submitResp struct {
	ID        uint64    `json:"id"`
	SessionID string    `json:"session_id"`
	StudentID string    `json:"student_id"`
	Timestamp time.Time `json:"timestamp"`
	Verified  bool      `json:"verified"`
}

// Submit records one student's attendance.  Field presence and lengths
// are checked here; everything semantic (signature, expiry, session
// state, duplicates) happens in the service, whose sentinel errors map
// onto the reason codes below.
func (h *AttendanceHandler) Submit(c echo.Context) error {
	var req submitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "code": "VALIDATION_ERROR"})
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.StudentID = strings.TrimSpace(req.StudentID)
	if req.SessionID == "" || req.StudentID == "" || strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "session_id, student_id and token are required", "code": "VALIDATION_ERROR"})
	}
	if len(req.StudentID) > maxStudentIDLen {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "student_id too long", "code": "VALIDATION_ERROR"})
	}
	if len(req.SessionID) < minSessionIDLen {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "session_id too short", "code": "VALIDATION_ERROR"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sub, err := h.Attendance.Submit(ctx, service.SubmitInput{
		SessionID:      req.SessionID,
		StudentID:      req.StudentID,
		RawToken:       req.Token,
		SelfieImage:    req.SelfieImage,
		LivenessAction: req.LivenessAction,
		IPAddress:      c.RealIP(),
		UserAgent:      c.Request().UserAgent(),
	})
	if err != nil {
		return submitError(c, err)
	}
	return c.JSON(http.StatusCreated, submitResp{
		ID:        sub.ID,
		SessionID: sub.SessionID,
		StudentID: sub.StudentID,
		Timestamp: sub.Timestamp,
		Verified:  sub.Verified,
	})
}

// submitError translates admission failures into status codes plus the
// machine-readable reason codes the scanning app branches on.
func submitError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidTokenFormat):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "invalid token format", "code": "INVALID_TOKEN_FORMAT"})
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"error": "invalid or expired token", "code": "INVALID_OR_EXPIRED_TOKEN"})
	case errors.Is(err, service.ErrSessionMismatch):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "token was issued for a different session", "code": "SESSION_MISMATCH"})
	case errors.Is(err, repository.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "session not found", "code": "SESSION_NOT_FOUND"})
	case errors.Is(err, service.ErrSessionInactive):
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "session has been stopped", "code": "SESSION_STOPPED"})
	case errors.Is(err, service.ErrSessionExpired):
		return c.JSON(http.StatusForbidden, echo.Map{
			"error": "session has expired", "code": "SESSION_EXPIRED"})
	case errors.Is(err, repository.ErrDuplicateSubmission):
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "attendance already submitted for this session", "code": "ALREADY_SUBMITTED"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "submission failed"})
	}
}
