package repository

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/qr-attendance/internal/model"
	"github.com/iliyamo/qr-attendance/internal/utils"
)

// MemoryUsers is an in-memory account store mirroring UserRepo, for
// tests and single-process runs.  Missing rows surface as
// sql.ErrNoRows so handler error mapping works unchanged.
type MemoryUsers struct {
	mu      sync.Mutex
	nextID  uint64
	byEmail map[string]model.User
}

// NewMemoryUsers returns an empty in-memory account store.
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byEmail: make(map[string]model.User)}
}

// Create stores an account with a bcrypt password hash, enforcing
// email uniqueness like the users.email unique key does.
func (m *MemoryUsers) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byEmail[email]; exists {
		return 0, ErrEmailExists
	}
	m.nextID++
	now := time.Now().UTC()
	m.byEmail[email] = model.User{
		ID:           m.nextID,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return m.nextID, nil
}

// GetByEmail fetches an account by normalized email.
func (m *MemoryUsers) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[email]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

// GetByID fetches an account by ID.
func (m *MemoryUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

// MemoryTokens is an in-memory refresh token store mirroring
// TokenRepo, keyed by token digest.
type MemoryTokens struct {
	mu   sync.Mutex
	rows map[string]memToken
}

type memToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

// NewMemoryTokens returns an empty in-memory token store.
func NewMemoryTokens() *MemoryTokens {
	return &MemoryTokens{rows: make(map[string]memToken)}
}

// StoreRefresh records a token digest with its expiry.
func (m *MemoryTokens) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	m.mu.Lock()
	m.rows[tokenHash] = memToken{userID: userID, exp: exp}
	m.mu.Unlock()
	return nil
}

// ValidateRefresh resolves a digest to its owner.  Revoked and expired
// rows surface as sql.ErrNoRows, same as the MySQL backend.
func (m *MemoryTokens) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[tokenHash]
	if !ok || row.revoked || time.Now().UTC().After(row.exp) {
		return 0, sql.ErrNoRows
	}
	return row.userID, nil
}

// RevokeByHash retires a single token; idempotent.
func (m *MemoryTokens) RevokeByHash(ctx context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[tokenHash]; ok {
		row.revoked = true
		m.rows[tokenHash] = row
	}
	return nil
}

// RevokeAllForUser retires every active token of one user.
func (m *MemoryTokens) RevokeAllForUser(ctx context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h, row := range m.rows {
		if row.userID == userID {
			row.revoked = true
			m.rows[h] = row
		}
	}
	return nil
}
