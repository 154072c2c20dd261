package model

import "time"

// Session represents a single attendance-taking window opened by a
// teacher.  Students submit against a session while it is usable; the
// teacher can end it early with the is_active kill switch, and it
// lapses on its own once expires_at passes.  Sessions are never
// deleted, only deactivated, so submissions keep a valid parent.
//
// Fields:
//  ID        – human-debuggable identifier (SESSION_<utc stamp>_<rand>).
//  TeacherID – user who opened the session.
//  ClassID   – optional roster link; nil when attendance is free-form.
//  CreatedAt – creation timestamp (UTC).
//  ExpiresAt – hard end of the submission window (UTC).
//  IsActive  – teacher-controlled flag, independent of expiry.
type Session struct {
	ID        string    // sessions.id
	TeacherID uint64    // sessions.teacher_id
	ClassID   *uint64   // sessions.class_id (nullable)
	CreatedAt time.Time // sessions.created_at
	ExpiresAt time.Time // sessions.expires_at
	IsActive  bool      // sessions.is_active
}

// Usable reports whether the session admits submissions at the given
// instant: it must still be flagged active and not yet expired.  The
// predicate is evaluated on every admission rather than cached, so
// expiry takes effect without a background sweep.
func (s Session) Usable(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}
