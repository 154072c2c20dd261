package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/qr-attendance/internal/model"
)

// SubmissionRepo provides persistence for attendance submissions.  The
// attendance_submissions table carries UNIQUE KEY (session_id,
// student_id); the check-then-insert race between concurrent submits
// for the same pair is closed by the database, not by application
// locking.  Rows are write-once and never updated.
type SubmissionRepo struct{ DB *sql.DB }

// NewSubmissionRepo returns a SubmissionRepo bound to the given database.
func NewSubmissionRepo(db *sql.DB) *SubmissionRepo { return &SubmissionRepo{DB: db} }

// Create inserts the submission and populates its generated ID.  When
// the student already has a record in the session, the unique key
// fires and ErrDuplicateSubmission is returned with no state change.
// Two concurrent calls for the same (session, student) pair therefore
// yield exactly one success and one duplicate.
func (r *SubmissionRepo) Create(ctx context.Context, sub *model.Submission) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO attendance_submissions
		 (session_id, student_id, timestamp, verified, selfie_image, liveness_action, qr_token_hash, ip_address, user_agent)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		sub.SessionID, sub.StudentID, sub.Timestamp, sub.Verified,
		nullIfEmpty(sub.SelfieImage), nullIfEmpty(sub.LivenessAction), nullIfEmpty(sub.QRTokenHash),
		nullIfEmpty(sub.IPAddress), nullIfEmpty(sub.UserAgent))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") { // mysql duplicate entry
			return ErrDuplicateSubmission
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	sub.ID = uint64(id)
	return nil
}

// ListBySession returns all submissions for a session, most recent
// first.  When the session is linked to a class, each row is joined
// with the roster so display name and email ride along; students who
// typed an ID not on the roster simply come back without them.  The
// enrichment is read-side only and never gates admission.
func (r *SubmissionRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Submission, error) {
	const q = `SELECT a.id, a.session_id, a.student_id, a.timestamp, a.verified,
	                  a.selfie_image, a.liveness_action, a.qr_token_hash, a.ip_address, a.user_agent,
	                  st.name, st.email
	           FROM attendance_submissions a
	           JOIN sessions s ON s.id = a.session_id
	           LEFT JOIN students st ON st.class_id = s.class_id AND st.student_id = a.student_id
	           WHERE a.session_id = ?
	           ORDER BY a.timestamp DESC, a.id DESC`
	rows, err := r.DB.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	subs := make([]model.Submission, 0)
	for rows.Next() {
		var (
			sub                         model.Submission
			selfie, liveness, tokenHash sql.NullString
			ip, agent, stName, stEmail  sql.NullString
		)
		if err := rows.Scan(&sub.ID, &sub.SessionID, &sub.StudentID, &sub.Timestamp, &sub.Verified,
			&selfie, &liveness, &tokenHash, &ip, &agent, &stName, &stEmail); err != nil {
			return nil, err
		}
		sub.SelfieImage = selfie.String
		sub.LivenessAction = liveness.String
		sub.QRTokenHash = tokenHash.String
		sub.IPAddress = ip.String
		sub.UserAgent = agent.String
		sub.StudentName = stName.String
		sub.StudentEmail = stEmail.String
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

// CountBySession returns how many submissions a session has received.
// Drives the live counter on the session status endpoint.
func (r *SubmissionRepo) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM attendance_submissions WHERE session_id=?", sessionID).Scan(&n)
	return n, err
}

// nullIfEmpty maps "" to NULL so optional columns stay NULL instead of
// accumulating empty strings.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
