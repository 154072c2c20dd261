package model

import "time"

// Class groups a teacher's students into a reusable roster.  Attaching
// a class to a session lets submission listings and CSV exports show
// names and emails next to self-reported student IDs.  The roster is
// read-side only: admission never requires the student to be on it.
//
// Fields:
//  ID        – primary key identifier.
//  TeacherID – owner of the roster.
//  Name      – display name chosen by the teacher.
//  Students  – roster entries, loaded on demand.
//  CreatedAt – creation timestamp.
type Class struct {
	ID        uint64    // classes.id
	TeacherID uint64    // classes.teacher_id
	Name      string    // classes.name
	Students  []Student // students rows for this class
	CreatedAt time.Time // classes.created_at
}

// Student is one roster entry inside a class.  StudentID is the
// external identifier students type when submitting; it is matched
// against submissions for display enrichment.
//
// Fields:
//  ID        – primary key identifier.
//  ClassID   – owning class.
//  StudentID – external identifier used on submission.
//  Name      – display name.
//  Email     – optional contact address.
type Student struct {
	ID        uint64 // students.id
	ClassID   uint64 // students.class_id
	StudentID string // students.student_id
	Name      string // students.name
	Email     string // students.email
}
