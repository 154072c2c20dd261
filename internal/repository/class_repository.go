package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/qr-attendance/internal/model"
)

// ClassRepo provides persistence for classes and their student
// rosters.  Rosters only enrich submission listings and exports; the
// admission path never touches them.
type ClassRepo struct{ DB *sql.DB }

// NewClassRepo returns a ClassRepo bound to the given database.
func NewClassRepo(db *sql.DB) *ClassRepo { return &ClassRepo{DB: db} }

// Create inserts a class with its initial roster inside one
// transaction, so a half-written roster never survives a failure.
func (r *ClassRepo) Create(ctx context.Context, teacherID uint64, name string, students []model.Student) (model.Class, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Class{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO classes (teacher_id, name) VALUES (?,?)", teacherID, name)
	if err != nil {
		return model.Class{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Class{}, err
	}
	cls := model.Class{ID: uint64(id), TeacherID: teacherID, Name: name}

	if err := insertStudentsTx(ctx, tx, cls.ID, students); err != nil {
		return model.Class{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Class{}, err
	}
	committed = true
	cls.Students = students
	return cls, nil
}

// ListByTeacher returns the teacher's classes, newest first, with
// rosters populated.
func (r *ClassRepo) ListByTeacher(ctx context.Context, teacherID uint64) ([]model.Class, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, teacher_id, name, created_at FROM classes WHERE teacher_id=? ORDER BY created_at DESC, id DESC",
		teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	classes := make([]model.Class, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var c model.Class
		if err := rows.Scan(&c.ID, &c.TeacherID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Students = []model.Student{}
		index[c.ID] = len(classes)
		classes = append(classes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(classes) == 0 {
		return classes, nil
	}

	srows, err := r.DB.QueryContext(ctx,
		`SELECT st.id, st.class_id, st.student_id, st.name, st.email
		 FROM students st
		 JOIN classes c ON c.id = st.class_id
		 WHERE c.teacher_id = ?
		 ORDER BY st.class_id, st.name`, teacherID)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var (
			st    model.Student
			email sql.NullString
		)
		if err := srows.Scan(&st.ID, &st.ClassID, &st.StudentID, &st.Name, &email); err != nil {
			return nil, err
		}
		st.Email = email.String
		if i, ok := index[st.ClassID]; ok {
			classes[i].Students = append(classes[i].Students, st)
		}
	}
	if err := srows.Err(); err != nil {
		return nil, err
	}
	return classes, nil
}

// GetForOwner fetches one class with its roster, enforcing ownership.
func (r *ClassRepo) GetForOwner(ctx context.Context, classID, teacherID uint64) (model.Class, error) {
	var c model.Class
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, teacher_id, name, created_at FROM classes WHERE id=? LIMIT 1",
		classID).Scan(&c.ID, &c.TeacherID, &c.Name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Class{}, ErrClassNotFound
	}
	if err != nil {
		return model.Class{}, err
	}
	if c.TeacherID != teacherID {
		return model.Class{}, ErrForbidden
	}
	c.Students = []model.Student{}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, class_id, student_id, name, email FROM students WHERE class_id=? ORDER BY name", classID)
	if err != nil {
		return model.Class{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			st    model.Student
			email sql.NullString
		)
		if err := rows.Scan(&st.ID, &st.ClassID, &st.StudentID, &st.Name, &email); err != nil {
			return model.Class{}, err
		}
		st.Email = email.String
		c.Students = append(c.Students, st)
	}
	if err := rows.Err(); err != nil {
		return model.Class{}, err
	}
	return c, nil
}

// ReplaceStudents swaps the class roster for a new list inside one
// transaction.  Ownership is checked first.
func (r *ClassRepo) ReplaceStudents(ctx context.Context, classID, teacherID uint64, students []model.Student) error {
	if err := r.checkOwner(ctx, classID, teacherID); err != nil {
		return err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM students WHERE class_id=?", classID); err != nil {
		return err
	}
	if err := insertStudentsTx(ctx, tx, classID, students); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes the class and its roster rows.  Sessions that pointed
// at the class keep their class_id set NULL by the foreign key, and
// submissions are retained untouched: the attendance record outlives
// the roster.
func (r *ClassRepo) Delete(ctx context.Context, classID, teacherID uint64) error {
	if err := r.checkOwner(ctx, classID, teacherID); err != nil {
		return err
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, "DELETE FROM students WHERE class_id=?", classID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE sessions SET class_id=NULL WHERE class_id=?", classID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM classes WHERE id=?", classID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (r *ClassRepo) checkOwner(ctx context.Context, classID, teacherID uint64) error {
	var actual uint64
	err := r.DB.QueryRowContext(ctx, "SELECT teacher_id FROM classes WHERE id=? LIMIT 1", classID).Scan(&actual)
	if err == sql.ErrNoRows {
		return ErrClassNotFound
	}
	if err != nil {
		return err
	}
	if actual != teacherID {
		return ErrForbidden
	}
	return nil
}

// insertStudentsTx bulk-inserts roster rows.  An empty list is a no-op.
func insertStudentsTx(ctx context.Context, tx *sql.Tx, classID uint64, students []model.Student) error {
	if len(students) == 0 {
		return nil
	}
	query := "INSERT INTO students (class_id, student_id, name, email) VALUES "
	args := make([]interface{}, 0, len(students)*4)
	for i, st := range students {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, classID, st.StudentID, st.Name, nullIfEmpty(st.Email))
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
