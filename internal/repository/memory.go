package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/qr-attendance/internal/model"
	"github.com/iliyamo/qr-attendance/internal/token"
)

// MemorySessions is an in-memory session store with the same behaviour
// as SessionRepo.  It backs tests and single-process deployments; the
// admission logic upstairs does not care which backend it talks to.
type MemorySessions struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

// NewMemorySessions returns an empty in-memory session store.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]model.Session)}
}

// Create opens a session with the same clamping rules as the MySQL
// backend.
func (m *MemorySessions) Create(ctx context.Context, teacherID uint64, classID *uint64, ttlSeconds int) (model.Session, error) {
	id, err := token.NewSessionID()
	if err != nil {
		return model.Session{}, err
	}
	now := time.Now().UTC().Truncate(time.Second)
	s := model.Session{
		ID:        id,
		TeacherID: teacherID,
		ClassID:   classID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(ClampSessionTTL(ttlSeconds)) * time.Second),
		IsActive:  true,
	}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	return s, nil
}

// Put stores a session verbatim.  Tests use it to plant sessions with
// hand-picked expiry timestamps.
func (m *MemorySessions) Put(s model.Session) {
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
}

// GetByID fetches a session or ErrSessionNotFound.
func (m *MemorySessions) GetByID(ctx context.Context, id string) (model.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	return s, nil
}

// GetForOwner fetches a session and enforces ownership.
func (m *MemorySessions) GetForOwner(ctx context.Context, id string, teacherID uint64) (model.Session, error) {
	s, err := m.GetByID(ctx, id)
	if err != nil {
		return model.Session{}, err
	}
	if s.TeacherID != teacherID {
		return model.Session{}, ErrForbidden
	}
	return s, nil
}

// Stop flips the kill switch with the same ownership semantics as the
// MySQL backend.
func (m *MemorySessions) Stop(ctx context.Context, id string, teacherID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if s.TeacherID != teacherID {
		return ErrForbidden
	}
	s.IsActive = false
	m.sessions[id] = s
	return nil
}

// MemorySubmissions is an in-memory submission ledger.  The mutex is
// held across the duplicate check and the insert, which is the whole
// point: the uniqueness invariant needs the check-then-insert to be
// atomic, exactly like the UNIQUE KEY does for the MySQL backend.
type MemorySubmissions struct {
	mu     sync.Mutex
	nextID uint64
	bySess map[string]map[string]model.Submission // sessionID -> studentID -> record
}

// NewMemorySubmissions returns an empty in-memory ledger.
func NewMemorySubmissions() *MemorySubmissions {
	return &MemorySubmissions{bySess: make(map[string]map[string]model.Submission)}
}

// Create admits the submission or returns ErrDuplicateSubmission.
func (m *MemorySubmissions) Create(ctx context.Context, sub *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	students, ok := m.bySess[sub.SessionID]
	if !ok {
		students = make(map[string]model.Submission)
		m.bySess[sub.SessionID] = students
	}
	if _, exists := students[sub.StudentID]; exists {
		return ErrDuplicateSubmission
	}
	m.nextID++
	sub.ID = m.nextID
	students[sub.StudentID] = *sub
	return nil
}

// ListBySession returns the session's submissions, most recent first.
// No roster enrichment here; the memory backend carries no classes.
func (m *MemorySubmissions) ListBySession(ctx context.Context, sessionID string) ([]model.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := make([]model.Submission, 0, len(m.bySess[sessionID]))
	for _, s := range m.bySess[sessionID] {
		subs = append(subs, s)
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].Timestamp.Equal(subs[j].Timestamp) {
			return subs[i].Timestamp.After(subs[j].Timestamp)
		}
		return subs[i].ID > subs[j].ID
	})
	return subs, nil
}

// CountBySession returns the number of submissions for a session.
func (m *MemorySubmissions) CountBySession(ctx context.Context, sessionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bySess[sessionID]), nil
}
