package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/qr-attendance/internal/model"
)

func TestClampSessionTTL(t *testing.T) {
	assert.Equal(t, DefaultSessionTTLSec, ClampSessionTTL(0))
	assert.Equal(t, DefaultSessionTTLSec, ClampSessionTTL(-5))
	assert.Equal(t, MinSessionTTLSec, ClampSessionTTL(10))
	assert.Equal(t, MaxSessionTTLSec, ClampSessionTTL(999999))
	assert.Equal(t, 600, ClampSessionTTL(600))
	assert.Equal(t, MinSessionTTLSec, ClampSessionTTL(60))
	assert.Equal(t, MaxSessionTTLSec, ClampSessionTTL(3600))
}

func TestMemorySessionsLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessions()

	s, err := store.Create(ctx, 7, nil, 600)
	require.NoError(t, err)
	assert.True(t, s.IsActive)
	assert.Equal(t, 600*time.Second, s.ExpiresAt.Sub(s.CreatedAt))
	assert.True(t, s.Usable(time.Now().UTC()))

	got, err := store.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	_, err = store.GetByID(ctx, "SESSION_000000000000_ffffff")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Stop by the wrong teacher is rejected, not ignored.
	assert.ErrorIs(t, store.Stop(ctx, s.ID, 8), ErrForbidden)
	got, err = store.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	// Stop by the owner makes the session unusable even before expiry.
	require.NoError(t, store.Stop(ctx, s.ID, 7))
	got, err = store.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, got.Usable(time.Now().UTC()))
}

func TestSessionUsableBoundaries(t *testing.T) {
	now := time.Date(2026, 2, 14, 10, 30, 0, 0, time.UTC)
	s := model.Session{IsActive: true, ExpiresAt: now.Add(10 * time.Minute)}

	assert.True(t, s.Usable(now))
	assert.False(t, s.Usable(s.ExpiresAt), "session dies at exactly expires_at")
	assert.False(t, s.Usable(s.ExpiresAt.Add(time.Second)))

	s.IsActive = false
	assert.False(t, s.Usable(now), "kill switch overrides remaining time")
}

func TestMemorySubmissionsDuplicate(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemorySubmissions()

	first := &model.Submission{SessionID: "SESSION_A", StudentID: "S1", Timestamp: time.Now().UTC()}
	require.NoError(t, ledger.Create(ctx, first))
	assert.NotZero(t, first.ID)

	dup := &model.Submission{SessionID: "SESSION_A", StudentID: "S1", Timestamp: time.Now().UTC()}
	assert.ErrorIs(t, ledger.Create(ctx, dup), ErrDuplicateSubmission)

	// Same student in another session is a separate record.
	other := &model.Submission{SessionID: "SESSION_B", StudentID: "S1", Timestamp: time.Now().UTC()}
	require.NoError(t, ledger.Create(ctx, other))

	n, err := ledger.CountBySession(ctx, "SESSION_A")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemorySubmissionsConcurrentSameStudent(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemorySubmissions()

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := &model.Submission{SessionID: "SESSION_A", StudentID: "S1", Timestamp: time.Now().UTC()}
			results <- ledger.Create(ctx, sub)
		}()
	}
	wg.Wait()
	close(results)

	successes, duplicates := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case err == ErrDuplicateSubmission:
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent admit may win")
	assert.Equal(t, attempts-1, duplicates)
}

func TestMemorySubmissionsListOrder(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemorySubmissions()
	base := time.Date(2026, 2, 14, 10, 30, 0, 0, time.UTC)

	for i, student := range []string{"S1", "S2", "S3"} {
		sub := &model.Submission{
			SessionID: "SESSION_A",
			StudentID: student,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, ledger.Create(ctx, sub))
	}

	subs, err := ledger.ListBySession(ctx, "SESSION_A")
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, "S3", subs[0].StudentID, "most recent first")
	assert.Equal(t, "S1", subs[2].StudentID)
}
