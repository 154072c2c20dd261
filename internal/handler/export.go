package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/qr-attendance/internal/repository"
	"github.com/iliyamo/qr-attendance/internal/service"
)

// ExportHandler streams session submissions as CSV for the teacher's
// grade book.
type ExportHandler struct {
	Sessions    SessionStore
	Submissions SubmissionStore
}

func NewExportHandler(sessions SessionStore, submissions SubmissionStore) *ExportHandler {
	return &ExportHandler{Sessions: sessions, Submissions: submissions}
}

// CSV returns the attendance records of an owned session as a CSV
// download.  The file always carries the header row, even when the
// session had no submissions.
func (h *ExportHandler) CSV(c echo.Context) error {
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
	data, err := service.SubmissionsCSV(subs)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "encode failed"})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="attendance-%s.csv"`, s.ID))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", data)
}
