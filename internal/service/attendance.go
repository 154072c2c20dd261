// Package service contains the attendance admission flow.  The
// AttendanceService is the single entry point a submission passes
// through: token parsing and verification first (pure CPU, no storage),
// then session state, then the atomic ledger insert.  Handlers stay
// thin and storage backends stay swappable.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/iliyamo/qr-attendance/internal/model"
	"github.com/iliyamo/qr-attendance/internal/queue"
	"github.com/iliyamo/qr-attendance/internal/token"
)

// Admission failure reasons.  Each maps to one machine-readable reason
// code on the wire; clients branch on them (re-scan vs. re-enter ID vs.
// contact the teacher).
var (
	ErrInvalidTokenFormat    = errors.New("invalid token format")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrSessionMismatch       = errors.New("token was issued for a different session")
	ErrSessionInactive       = errors.New("session has been stopped")
	ErrSessionExpired        = errors.New("session has expired")
)

// SessionStore is the slice of session persistence the admission flow
// needs.  Both repository.SessionRepo and repository.MemorySessions
// satisfy it.
type SessionStore interface {
	GetByID(ctx context.Context, id string) (model.Session, error)
}

// SubmissionStore is the slice of ledger persistence the admission
// flow needs.  Create must be atomic per (session, student) pair:
// of two concurrent calls exactly one may succeed.
type SubmissionStore interface {
	Create(ctx context.Context, sub *model.Submission) error
}

// SubmitInput is a fully validated submission request.  The HTTP layer
// checks field presence and lengths before building one; the service
// never sees raw request bodies.
type SubmitInput struct {
	SessionID      string
	StudentID      string
	RawToken       string
	SelfieImage    string
	LivenessAction string
	IPAddress      string
	UserAgent      string
}

// AttendanceService orchestrates submission admission.
type AttendanceService struct {
	sessions    SessionStore
	submissions SubmissionStore
	codec       *token.Codec
	now         func() time.Time
	publish     func(ctx context.Context, ev queue.AttendanceRecordedEvent) error
}

// NewAttendanceService wires the admission flow.  publish may be nil
// when no broker is configured; events are then skipped.
func NewAttendanceService(sessions SessionStore, submissions SubmissionStore, codec *token.Codec,
	publish func(ctx context.Context, ev queue.AttendanceRecordedEvent) error) *AttendanceService {
	if sessions == nil || submissions == nil || codec == nil {
		panic("nil dependency passed to NewAttendanceService")
	}
	return &AttendanceService{
		sessions:    sessions,
		submissions: submissions,
		codec:       codec,
		now:         time.Now,
		publish:     publish,
	}
}

// WithClock replaces the service's time source.  Intended for tests.
func (s *AttendanceService) WithClock(now func() time.Time) *AttendanceService {
	s.now = now
	return s
}

// Submit runs the admission state machine.  The order is deliberate:
// the stateless checks (parse, signature, session match) run before
// any storage access, so malformed or expired requests are rejected
// without touching shared state.
//
//  1. parse the raw token           -> ErrInvalidTokenFormat
//  2. verify signature and expiry   -> ErrInvalidOrExpiredToken
//  3. token.sid vs requested sid    -> ErrSessionMismatch
//  4. session lookup                -> repository.ErrSessionNotFound
//  5. usability predicate           -> ErrSessionInactive / ErrSessionExpired
//  6. atomic ledger insert          -> repository.ErrDuplicateSubmission
func (s *AttendanceService) Submit(ctx context.Context, in SubmitInput) (model.Submission, error) {
	payload, err := token.Parse(in.RawToken)
	if err != nil {
		return model.Submission{}, ErrInvalidTokenFormat
	}
	if !s.codec.Verify(payload) {
		return model.Submission{}, ErrInvalidOrExpiredToken
	}
	if payload.SID != in.SessionID {
		return model.Submission{}, ErrSessionMismatch
	}

	sess, err := s.sessions.GetByID(ctx, in.SessionID)
	if err != nil {
		return model.Submission{}, err
	}
	now := s.now().UTC()
	if !sess.Usable(now) {
		if !sess.IsActive {
			return model.Submission{}, ErrSessionInactive
		}
		return model.Submission{}, ErrSessionExpired
	}

	sub := model.Submission{
		SessionID:      sess.ID,
		StudentID:      in.StudentID,
		Timestamp:      now,
		Verified:       true, // the token check passed above
		SelfieImage:    in.SelfieImage,
		LivenessAction: in.LivenessAction,
		QRTokenHash:    token.Hash(in.RawToken),
		IPAddress:      in.IPAddress,
		UserAgent:      in.UserAgent,
	}
	if err := s.submissions.Create(ctx, &sub); err != nil {
		return model.Submission{}, err
	}

	if s.publish != nil {
		ev := queue.AttendanceRecordedEvent{
			SubmissionID: sub.ID,
			SessionID:    sub.SessionID,
			StudentID:    sub.StudentID,
			Verified:     sub.Verified,
			RecordedAt:   sub.Timestamp.Format(time.RFC3339),
		}
		if err := s.publish(ctx, ev); err != nil {
			// Best effort: the submission is already durable.
			log.Printf("attendance: publish event failed: %v", err)
		}
	}
	return sub, nil
}

// QRTTL is how long generated QR payloads stay valid.  Kept as a
// variable so the config layer can override it at startup.
var QRTTL = token.DefaultTTL

// IssueQRPayload produces a fresh signed payload for the session.
// Ownership must be checked by the caller; this path is hot (one call
// per active session every few seconds) and does no storage work.
func (s *AttendanceService) IssueQRPayload(sessionID string) (token.Payload, error) {
	p, err := s.codec.Generate(sessionID, QRTTL)
	if err != nil {
		return token.Payload{}, fmt.Errorf("issue qr payload: %w", err)
	}
	return p, nil
}
