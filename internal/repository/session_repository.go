package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/qr-attendance/internal/model"
	"github.com/iliyamo/qr-attendance/internal/token"
)

// Session TTL bounds in seconds.  Values outside the range are clamped
// silently rather than rejected, matching the observed behaviour of the
// product; see DESIGN.md for the note on revisiting that choice.
const (
	MinSessionTTLSec     = 60
	MaxSessionTTLSec     = 3600
	DefaultSessionTTLSec = 600
)

// ClampSessionTTL normalizes a caller-supplied ttl in seconds into the
// allowed window.  Zero or negative means "use the default".
func ClampSessionTTL(seconds int) int {
	if seconds <= 0 {
		return DefaultSessionTTLSec
	}
	if seconds < MinSessionTTLSec {
		return MinSessionTTLSec
	}
	if seconds > MaxSessionTTLSec {
		return MaxSessionTTLSec
	}
	return seconds
}

// SessionRepo provides persistence for attendance sessions.  Sessions
// are small and hot: every submission re-reads its row to evaluate the
// usability predicate, and the teacher dashboard polls it too.
type SessionRepo struct{ DB *sql.DB }

// NewSessionRepo returns a SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create opens a new session for the teacher.  The ttl is clamped into
// [MinSessionTTLSec, MaxSessionTTLSec] before use.  The generated ID
// embeds a UTC minute stamp; on the unlikely duplicate-key collision
// the ID is rolled again instead of surfacing the conflict.
func (r *SessionRepo) Create(ctx context.Context, teacherID uint64, classID *uint64, ttlSeconds int) (model.Session, error) {
	ttl := ClampSessionTTL(ttlSeconds)
	now := time.Now().UTC().Truncate(time.Second)
	s := model.Session{
		TeacherID: teacherID,
		ClassID:   classID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(ttl) * time.Second),
		IsActive:  true,
	}
	for attempt := 0; attempt < 3; attempt++ {
		id, err := token.NewSessionID()
		if err != nil {
			return model.Session{}, err
		}
		_, err = r.DB.ExecContext(ctx,
			"INSERT INTO sessions (id, teacher_id, class_id, created_at, expires_at, is_active) VALUES (?,?,?,?,?,1)",
			id, teacherID, classID, s.CreatedAt, s.ExpiresAt)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "1062") { // mysql duplicate entry, roll a new id
				continue
			}
			return model.Session{}, err
		}
		s.ID = id
		return s, nil
	}
	return model.Session{}, errors.New("could not allocate a unique session id")
}

// GetByID fetches a session regardless of owner.  Used on the
// submission path, where the caller is an unauthenticated student.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (model.Session, error) {
	var (
		s       model.Session
		classID sql.NullInt64
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, teacher_id, class_id, created_at, expires_at, is_active FROM sessions WHERE id=? LIMIT 1",
		id).Scan(&s.ID, &s.TeacherID, &classID, &s.CreatedAt, &s.ExpiresAt, &s.IsActive)
	if err == sql.ErrNoRows {
		return model.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	if classID.Valid {
		cid := uint64(classID.Int64)
		s.ClassID = &cid
	}
	return s, nil
}

// GetForOwner fetches a session and enforces ownership.  A session
// owned by someone else yields ErrForbidden, distinct from not-found,
// so handlers can decide how much to reveal.
func (r *SessionRepo) GetForOwner(ctx context.Context, id string, teacherID uint64) (model.Session, error) {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if s.TeacherID != teacherID {
		return model.Session{}, ErrForbidden
	}
	return s, nil
}

// Stop flips the session's kill switch for its owner.  The update is
// scoped by teacher_id; a mismatch is reported as ErrForbidden rather
// than silently ignored.
func (r *SessionRepo) Stop(ctx context.Context, id string, teacherID uint64) error {
	var actual uint64
	err := r.DB.QueryRowContext(ctx, "SELECT teacher_id FROM sessions WHERE id=? LIMIT 1", id).Scan(&actual)
	if err == sql.ErrNoRows {
		return ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	if actual != teacherID {
		return ErrForbidden
	}
	_, err = r.DB.ExecContext(ctx, "UPDATE sessions SET is_active=0 WHERE id=?", id)
	return err
}

// DeactivateExpired flags sessions whose window has passed but that
// are still marked active.  Storage hygiene only: the usability
// predicate already treats them as dead, so nothing depends on this
// sweep running.
func (r *SessionRepo) DeactivateExpired(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET is_active=0 WHERE is_active=1 AND expires_at <= UTC_TIMESTAMP()")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
