// Package queue defines message payloads exchanged over the message
// broker and the background consumer that turns them into an audit log.
package queue

// AttendanceRecordedEvent is published after a submission has been
// durably admitted.  It carries enough for downstream consumers to
// audit or notify without querying the primary database.  The raw QR
// token never leaves the service, so the event carries nothing derived
// from it.
type AttendanceRecordedEvent struct {
	SubmissionID uint64 `json:"submission_id"`
	SessionID    string `json:"session_id"`
	StudentID    string `json:"student_id"`
	Verified     bool   `json:"verified"`
	RecordedAt   string `json:"recorded_at"`
}
