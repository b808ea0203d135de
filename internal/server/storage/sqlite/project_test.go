package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shotsync/internal/models"
	"github.com/iudanet/shotsync/internal/server/storage"
)

func TestProjectStorage_CRUD(t *testing.T) {
	ctx := context.Background()
	s, clock := setupTestStorage(t)

	first := createTestProject(t, ctx, s)
	clock.Advance(time.Second)
	second := createTestProject(t, ctx, s)

	got, err := s.GetProject(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Title, got.Title)

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, second.ID, projects[0].ID)

	clock.Advance(time.Second)
	first.Title = "Renamed"
	first.Description = "new description"
	require.NoError(t, s.UpdateProject(ctx, first))

	projects, err = s.ListProjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, projects[0].ID)
	assert.Equal(t, "Renamed", projects[0].Title)
	assert.Equal(t, "new description", projects[0].Description)

	_, err = s.GetProject(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrProjectNotFound)
	assert.ErrorIs(t, s.UpdateProject(ctx, &models.Project{ID: "missing"}), storage.ErrProjectNotFound)
}

func TestProjectStorage_SafeDeleteProject_Refused(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStorage(t)
	project := createTestProject(t, ctx, s)
	board := createTestBoard(t, ctx, s, project.ID, 1)

	_, err := s.AcquireLock(ctx, models.ResourceProjectSession, project.ID, "viewer-1", testTTL)
	require.NoError(t, err)
	_, err = s.AcquireLock(ctx, models.ResourceProjectSession, project.ID, "viewer-2", testTTL)
	require.NoError(t, err)
	_, err = s.AcquireLock(ctx, models.ResourceBoardEdit, board.ID, "viewer-1", testTTL)
	require.NoError(t, err)
	// собственная сессия запрашивающего не считается
	_, err = s.AcquireLock(ctx, models.ResourceProjectSession, project.ID, "requester", testTTL)
	require.NoError(t, err)

	err = s.SafeDeleteProject(ctx, project.ID, "requester")

	var refused *storage.DeleteRefusedError
	require.ErrorAs(t, err, &refused)
	assert.Equal(t, 3, refused.BlockingCount)
	assert.Equal(t, "project", refused.Resource)
	assert.Equal(t, "Project cannot be deleted: 3 user(s) are currently working on it", refused.Error())

	_, err = s.GetProject(ctx, project.ID)
	assert.NoError(t, err)
	boards, err := s.ListBoards(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, boards, 1)
}

func TestProjectStorage_SafeDeleteProject_Deletes(t *testing.T) {
	ctx := context.Background()
	s, clock := setupTestStorage(t)
	project := createTestProject(t, ctx, s)
	board := createTestBoard(t, ctx, s, project.ID, 1)
	keep := createTestProject(t, ctx, s)

	// истекшая сессия упавшего клиента не блокирует удаление
	_, err := s.AcquireLock(ctx, models.ResourceProjectSession, project.ID, "crashed", time.Minute)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	_, err = s.AcquireLock(ctx, models.ResourceProjectSession, project.ID, "requester", testTTL)
	require.NoError(t, err)
	_, err = s.AcquireLock(ctx, models.ResourceBoardEdit, board.ID, "requester", testTTL)
	require.NoError(t, err)
	_, err = s.AcquireLock(ctx, models.ResourceProjectSession, keep.ID, "other", testTTL)
	require.NoError(t, err)

	require.NoError(t, s.SafeDeleteProject(ctx, project.ID, "requester"))

	_, err = s.GetProject(ctx, project.ID)
	assert.ErrorIs(t, err, storage.ErrProjectNotFound)
	_, err = s.GetBoard(ctx, board.ID)
	assert.ErrorIs(t, err, storage.ErrBoardNotFound)

	var lockRows int
	err = s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM locks`).Scan(&lockRows)
	require.NoError(t, err)
	assert.Equal(t, 1, lockRows)
}

func TestProjectStorage_SafeDeleteProject_NotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStorage(t)

	err := s.SafeDeleteProject(ctx, "missing", "requester")
	assert.ErrorIs(t, err, storage.ErrProjectNotFound)
}
