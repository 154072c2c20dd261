// Package repository implements data access for sessions, submissions,
// classes and user accounts on top of MySQL.  Sentinel errors defined
// here let handlers map failure scenarios to distinct HTTP responses
// with errors.Is instead of string matching.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource owned by another teacher.  Handlers translate this into a
// 403, or into a 404 when they prefer not to leak existence.
var ErrForbidden = errors.New("forbidden")

// ErrSessionNotFound is returned when no session exists with the
// requested ID.
var ErrSessionNotFound = errors.New("session not found")

// ErrClassNotFound is returned when no class exists with the requested
// ID for the given teacher.
var ErrClassNotFound = errors.New("class not found")

// ErrEmailExists is returned when registration hits an email address
// that is already taken.  Handlers map it to 409.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicateSubmission is returned when a student already has a
// submission in the session.  It is the expected signal that the
// one-record-per-student invariant held; handlers map it to 409.
var ErrDuplicateSubmission = errors.New("student already submitted for this session")
