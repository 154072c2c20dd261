package model

import "time"

// Submission is one student's attendance record within a session.
// Records are write-once: they are created on successful admission and
// never updated.  A UNIQUE KEY on (session_id, student_id) in the
// attendance_submissions table enforces at most one record per student
// per session, which is the central invariant of the service.
//
// Fields:
//  ID             – primary key identifier.
//  SessionID      – session this record belongs to.
//  StudentID      – self-reported student identifier.
//  Timestamp      – admission time (UTC).
//  Verified       – whether the QR token check passed at admission.
//  SelfieImage    – opaque client payload, stored but never interpreted.
//  LivenessAction – opaque liveness challenge label, if any.
//  QRTokenHash    – SHA-256 hex of the raw token, kept for audit.
//  IPAddress      – client address at submission time.
//  UserAgent      – client user agent at submission time.
//  StudentName    – roster display name (read-side enrichment only).
//  StudentEmail   – roster email (read-side enrichment only).
type Submission struct {
	ID             uint64    // attendance_submissions.id
	SessionID      string    // attendance_submissions.session_id
	StudentID      string    // attendance_submissions.student_id
	Timestamp      time.Time // attendance_submissions.timestamp
	Verified       bool      // attendance_submissions.verified
	SelfieImage    string    // attendance_submissions.selfie_image
	LivenessAction string    // attendance_submissions.liveness_action
	QRTokenHash    string    // attendance_submissions.qr_token_hash
	IPAddress      string    // attendance_submissions.ip_address
	UserAgent      string    // attendance_submissions.user_agent
	StudentName    string    // joined from students, empty without roster
	StudentEmail   string    // joined from students, empty without roster
}
