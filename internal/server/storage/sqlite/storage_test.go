package sqlite

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shotsync/internal/models"
)

// testClock управляемые часы для проверки истечения аренды
type testClock struct {
	now time.Time
	mu  sync.Mutex
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupTestStorage(t *testing.T) (*Storage, *testClock) {
	t.Helper()
	ctx := context.Background()
	clock := newTestClock()

	// Используем in-memory database для тестов
	s, err := New(ctx, ":memory:", WithClock(clock.Now))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s, clock
}

func createTestProject(t *testing.T, ctx context.Context, s *Storage) *models.Project {
	t.Helper()
	project := &models.Project{
		ID:    uuid.New().String(),
		Title: "Project " + uuid.New().String()[:8],
	}
	require.NoError(t, s.CreateProject(ctx, project))
	return project
}

func createTestBoard(t *testing.T, ctx context.Context, s *Storage, projectID string, shot int) *models.Board {
	t.Helper()
	board := &models.Board{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Shot:      shot,
		Title:     "Board",
	}
	require.NoError(t, s.CreateBoard(ctx, board))
	return board
}
