package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shotsync/internal/models"
	"github.com/iudanet/shotsync/internal/server/storage"
)

const testTTL = 5 * time.Minute

func TestLockStorage_AcquireLock_Exclusive(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		setup   func(t *testing.T, s *Storage, clock *testClock)
		name    string
		holder  string
		wantAcq bool
	}{
		{
			name:    "free resource",
			setup:   func(t *testing.T, s *Storage, clock *testClock) {},
			holder:  "client-b",
			wantAcq: true,
		},
		{
			name: "live lock of another holder",
			setup: func(t *testing.T, s *Storage, clock *testClock) {
				ok, err := s.AcquireLock(ctx, models.ResourceBoardEdit, "board-1", "client-a", testTTL)
				require.NoError(t, err)
				require.True(t, ok)
			},
			holder:  "client-b",
			wantAcq: false,
		},
		{
			name: "expired lock of another holder is replaced",
			setup: func(t *testing.T, s *Storage, clock *testClock) {
				ok, err := s.AcquireLock(ctx, models.ResourceBoardEdit, "board-1", "client-a", testTTL)
				require.NoError(t, err)
				require.True(t, ok)
				clock.Advance(testTTL + time.Second)
			},
			holder:  "client-b",
			wantAcq: true,
		},
		{
			name: "same holder reacquires",
			setup: func(t *testing.T, s *Storage, clock *testClock) {
				ok, err := s.AcquireLock(ctx, models.ResourceBoardEdit, "board-1", "client-b", testTTL)
				require.NoError(t, err)
				require.True(t, ok)
			},
			holder:  "client-b",
			wantAcq: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, clock := setupTestStorage(t)
			tt.setup(t, s, clock)

			ok, err := s.AcquireLock(ctx, models.ResourceBoardEdit, "board-1", tt.holder, testTTL)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAcq, ok)

			_, err = s.QueryLock(ctx, models.ResourceBoardEdit, "board-1", tt.holder)
			if tt.wantAcq {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, storage.ErrLockNotFound)
			}
		})
	}
}

func TestLockStorage_AcquireLock_Concurrent(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStorage(t)

	const clients = 10
	results := make([]bool, clients)

	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := s.AcquireLock(ctx, models.ResourceProjectReorder, "project-1", string(rune('a'+i)), 30*time.Second)
			assert.NoError(t, err)
			results[i] = ok
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, ok := range results {
		if ok {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestLockStorage_AcquireLock_SharedSession(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStorage(t)

	for _, holder := range []string{"client-a", "client-b", "client-c"} {
		ok, err := s.AcquireLock(ctx, models.ResourceProjectSession, "project-1", holder, testTTL)
		require.NoError(t, err)
		assert.True(t, ok, holder)
	}

	var rows int
	err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM locks WHERE resource_type = ?`,
		string(models.ResourceProjectSession)).Scan(&rows)
	require.NoError(t, err)
	assert.Equal(t, 3, rows)

	// освобождение одного держателя не трогает остальных
	require.NoError(t, s.ReleaseLock(ctx, models.ResourceProjectSession, "project-1", "client-b"))

	_, err = s.QueryLock(ctx, models.ResourceProjectSession, "project-1", "client-a")
	assert.NoError(t, err)
	_, err = s.QueryLock(ctx, models.ResourceProjectSession, "project-1", "client-b")
	assert.ErrorIs(t, err, storage.ErrLockNotFound)
}

func TestLockStorage_AcquireLock_InvalidType(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStorage(t)

	_, err := s.AcquireLock(ctx, models.ResourceType("bogus"), "x", "client-a", testTTL)
	assert.ErrorIs(t, err, storage.ErrInvalidResourceType)
}

func TestLockStorage_RefreshLock(t *testing.T) {
	ctx := context.Background()
	s, clock := setupTestStorage(t)

	ok, err := s.AcquireLock(ctx, models.ResourceBoardEdit, "board-1", "client-a", testTTL)
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(4 * time.Minute)

	ok, err = s.RefreshLock(ctx, models.ResourceBoardEdit, "board-1", "client-a", testTTL)
	require.NoError(t, err)
	assert.True(t, ok)

	lock, err := s.QueryLock(ctx, models.ResourceBoardEdit, "board-1", "client-a")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(testTTL).UnixMilli(), lock.ExpiresAt.UnixMilli())

	t.Run("non-holder cannot refresh", func(t *testing.T) {
		ok, err := s.RefreshLock(ctx, models.ResourceBoardEdit, "board-1", "client-b", testTTL)
		require.NoError(t, err)
		assert.False(t, ok)

		lock, err := s.QueryLock(ctx, models.ResourceBoardEdit, "board-1", "client-a")
		require.NoError(t, err)
		assert.Equal(t, "client-a", lock.Holder)
	})

	t.Run("expired lock cannot be refreshed", func(t *testing.T) {
		clock.Advance(testTTL + time.Second)

		ok, err := s.RefreshLock(ctx, models.ResourceBoardEdit, "board-1", "client-a", testTTL)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestLockStorage_ReleaseLock(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStorage(t)

	ok, err := s.AcquireLock(ctx, models.ResourceProjectEdit, "project-1", "client-a", testTTL)
	require.NoError(t, err)
	require.True(t, ok)

	// чужое освобождение ничего не меняет
	require.NoError(t, s.ReleaseLock(ctx, models.ResourceProjectEdit, "project-1", "client-b"))
	_, err = s.QueryLock(ctx, models.ResourceProjectEdit, "project-1", "client-a")
	require.NoError(t, err)

	require.NoError(t, s.ReleaseLock(ctx, models.ResourceProjectEdit, "project-1", "client-a"))
	_, err = s.QueryLock(ctx, models.ResourceProjectEdit, "project-1", "client-a")
	assert.ErrorIs(t, err, storage.ErrLockNotFound)

	// повторное освобождение не ошибка
	assert.NoError(t, s.ReleaseLock(ctx, models.ResourceProjectEdit, "project-1", "client-a"))

	ok, err = s.AcquireLock(ctx, models.ResourceProjectEdit, "project-1", "client-b", testTTL)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockStorage_QueryLock_Expired(t *testing.T) {
	ctx := context.Background()
	s, clock := setupTestStorage(t)

	ok, err := s.AcquireLock(ctx, models.ResourceBoardEdit, "board-1", "client-a", testTTL)
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(testTTL)

	_, err = s.QueryLock(ctx, models.ResourceBoardEdit, "board-1", "client-a")
	assert.ErrorIs(t, err, storage.ErrLockNotFound)
}

func TestLockStorage_DeleteExpiredLocks(t *testing.T) {
	ctx := context.Background()
	s, clock := setupTestStorage(t)

	_, err := s.AcquireLock(ctx, models.ResourceBoardEdit, "board-1", "client-a", time.Minute)
	require.NoError(t, err)
	_, err = s.AcquireLock(ctx, models.ResourceProjectSession, "project-1", "client-a", time.Minute)
	require.NoError(t, err)
	_, err = s.AcquireLock(ctx, models.ResourceBoardEdit, "board-2", "client-b", time.Hour)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	deleted, err := s.DeleteExpiredLocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = s.QueryLock(ctx, models.ResourceBoardEdit, "board-2", "client-b")
	assert.NoError(t, err)

	deleted, err = s.DeleteExpiredLocks(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
