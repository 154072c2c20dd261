package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/qr-attendance/internal/model"
	"github.com/iliyamo/qr-attendance/internal/repository"
)

// ClassHandler manages the teacher's class rosters.  Rosters are
// optional: sessions work without one, but a linked roster lets the
// dashboard and CSV export show names next to student IDs.
type ClassHandler struct {
	Classes *repository.ClassRepo
}

func NewClassHandler(classes *repository.ClassRepo) *ClassHandler {
	return &ClassHandler{Classes: classes}
}

type studentReq struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

type classReq struct {
	Name     string       `json:"name"`
	Students []studentReq `json:"students"`
}

func (req classReq) toStudents() []model.Student {
	out := make([]model.Student, 0, len(req.Students))
	for _, s := range req.Students {
		out = append(out, model.Student{
			StudentID: strings.TrimSpace(s.StudentID),
			Name:      strings.TrimSpace(s.Name),
			Email:     strings.ToLower(strings.TrimSpace(s.Email)),
		})
	}
	return out
}

func validateRoster(students []model.Student) string {
	seen := make(map[string]struct{}, len(students))
	for _, s := range students {
		if s.StudentID == "" {
			return "student_id required for every roster entry"
		}
		if len(s.StudentID) > maxStudentIDLen {
			return "student_id too long"
		}
		if _, dup := seen[s.StudentID]; dup {
			return "duplicate student_id in roster: " + s.StudentID
		}
		seen[s.StudentID] = struct{}{}
	}
	return ""
}

func classIDParam(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// Create stores a new class with its roster in one transaction.
func (h *ClassHandler) Create(c echo.Context) error {
	teacherID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req classReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "code": "VALIDATION_ERROR"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name required", "code": "VALIDATION_ERROR"})
	}
	students := req.toStudents()
	if msg := validateRoster(students); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "VALIDATION_ERROR"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cls, err := h.Classes.Create(ctx, teacherID, req.Name, students)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create class failed"})
	}
	return c.JSON(http.StatusCreated, cls)
}

// List returns all classes owned by the caller, rosters included.
func (h *ClassHandler) List(c echo.Context) error {
	teacherID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	classes, err := h.Classes.ListByTeacher(ctx, teacherID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"classes": classes})
}

// Get returns one owned class.
func (h *ClassHandler) Get(c echo.Context) error {
	teacherID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := classIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id", "code": "VALIDATION_ERROR"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cls, err := h.Classes.GetForOwner(ctx, id, teacherID)
	switch err {
	case nil:
		return c.JSON(http.StatusOK, cls)
	case repository.ErrClassNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found", "code": "CLASS_NOT_FOUND"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your class", "code": "FORBIDDEN"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
}

// ReplaceStudents swaps the roster wholesale.  Partial edits are not
// supported; the web client always uploads the full list.
func (h *ClassHandler) ReplaceStudents(c echo.Context) error {
	teacherID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := classIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id", "code": "VALIDATION_ERROR"})
	}
	var req classReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "code": "VALIDATION_ERROR"})
	}
	students := req.toStudents()
	if msg := validateRoster(students); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "VALIDATION_ERROR"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Classes.ReplaceStudents(ctx, id, teacherID, students); err {
	case nil:
		return c.JSON(http.StatusOK, echo.Map{"class_id": id, "students": len(students)})
	case repository.ErrClassNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found", "code": "CLASS_NOT_FOUND"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your class", "code": "FORBIDDEN"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update roster failed"})
	}
}

// Delete removes an owned class and its roster.  Past submissions stay
// in the ledger; sessions that pointed at the class are detached.
func (h *ClassHandler) Delete(c echo.Context) error {
	teacherID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := classIDParam(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid class id", "code": "VALIDATION_ERROR"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	switch err := h.Classes.Delete(ctx, id, teacherID); err {
	case nil:
		return c.NoContent(http.StatusNoContent)
	case repository.ErrClassNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found", "code": "CLASS_NOT_FOUND"})
	case repository.ErrForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your class", "code": "FORBIDDEN"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete class failed"})
	}
}
