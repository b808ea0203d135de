package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/shotsync/internal/models"
	"github.com/iudanet/shotsync/internal/server/storage"
)

// setupTestLogger creates a logger for testing
func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type lockKey struct {
	resourceType models.ResourceType
	resourceID   string
	holder       string
}

// mockLockStorage is a mock implementation of LockStorage for testing.
// Эксклюзивность не моделируется: достаточно проверить, что handler передает держателя из токена.
type mockLockStorage struct {
	locks      map[lockKey]time.Time
	denyHolder string
	err        error
	lastTTL    time.Duration
	mu         sync.Mutex
}

func newMockLockStorage() *mockLockStorage {
	return &mockLockStorage{locks: make(map[lockKey]time.Time)}
}

func (m *mockLockStorage) AcquireLock(ctx context.Context, rt models.ResourceType, id, holder string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	m.lastTTL = ttl
	if holder == m.denyHolder {
		return false, nil
	}
	m.locks[lockKey{rt, id, holder}] = time.Now().Add(ttl)
	return true, nil
}

func (m *mockLockStorage) RefreshLock(ctx context.Context, rt models.ResourceType, id, holder string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	m.lastTTL = ttl
	key := lockKey{rt, id, holder}
	if _, ok := m.locks[key]; !ok {
		return false, nil
	}
	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *mockLockStorage) ReleaseLock(ctx context.Context, rt models.ResourceType, id, holder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.locks, lockKey{rt, id, holder})
	return nil
}

func (m *mockLockStorage) QueryLock(ctx context.Context, rt models.ResourceType, id, holder string) (*models.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	expiresAt, ok := m.locks[lockKey{rt, id, holder}]
	if !ok {
		return nil, storage.ErrLockNotFound
	}
	return &models.Lock{ResourceType: rt, ResourceID: id, Holder: holder, ExpiresAt: expiresAt}, nil
}

func (m *mockLockStorage) DeleteExpiredLocks(ctx context.Context) (int, error) {
	return 0, nil
}

func (m *mockLockStorage) has(rt models.ResourceType, id, holder string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locks[lockKey{rt, id, holder}]
	return ok
}

// mockBoardStorage is a mock implementation of BoardStorage for testing
type mockBoardStorage struct {
	boards      map[string]*models.Board
	refusal     *storage.DeleteRefusedError
	lastDeleter string
}

func newMockBoardStorage(boards ...*models.Board) *mockBoardStorage {
	m := &mockBoardStorage{boards: make(map[string]*models.Board)}
	for _, b := range boards {
		m.boards[b.ID] = b
	}
	return m
}

func (m *mockBoardStorage) CreateBoard(ctx context.Context, board *models.Board) error {
	m.boards[board.ID] = board.Clone()
	return nil
}

func (m *mockBoardStorage) GetBoard(ctx context.Context, id string) (*models.Board, error) {
	b, ok := m.boards[id]
	if !ok {
		return nil, storage.ErrBoardNotFound
	}
	return b.Clone(), nil
}

func (m *mockBoardStorage) ListBoards(ctx context.Context, projectID string) ([]*models.Board, error) {
	boards := make([]*models.Board, 0)
	for _, b := range m.boards {
		if b.ProjectID == projectID {
			boards = append(boards, b.Clone())
		}
	}
	sort.Slice(boards, func(i, j int) bool { return boards[i].Shot < boards[j].Shot })
	return boards, nil
}

func (m *mockBoardStorage) UpdateBoard(ctx context.Context, board *models.Board) error {
	if _, ok := m.boards[board.ID]; !ok {
		return storage.ErrBoardNotFound
	}
	m.boards[board.ID] = board.Clone()
	return nil
}

func (m *mockBoardStorage) SetBoardShot(ctx context.Context, id string, shot int) error {
	b, ok := m.boards[id]
	if !ok {
		return storage.ErrBoardNotFound
	}
	b.Shot = shot
	return nil
}

func (m *mockBoardStorage) SafeDeleteBoard(ctx context.Context, id, requester string) (*models.Board, error) {
	m.lastDeleter = requester
	if m.refusal != nil {
		return nil, m.refusal
	}
	b, ok := m.boards[id]
	if !ok {
		return nil, storage.ErrBoardNotFound
	}
	delete(m.boards, id)
	return b, nil
}

// mockProjectStorage is a mock implementation of ProjectStorage for testing
type mockProjectStorage struct {
	projects    map[string]*models.Project
	refusal     *storage.DeleteRefusedError
	err         error
	lastDeleter string
}

func newMockProjectStorage(projects ...*models.Project) *mockProjectStorage {
	m := &mockProjectStorage{projects: make(map[string]*models.Project)}
	for _, p := range projects {
		m.projects[p.ID] = p
	}
	return m
}

func (m *mockProjectStorage) CreateProject(ctx context.Context, project *models.Project) error {
	if m.err != nil {
		return m.err
	}
	cp := *project
	m.projects[project.ID] = &cp
	return nil
}

func (m *mockProjectStorage) GetProject(ctx context.Context, id string) (*models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.projects[id]
	if !ok {
		return nil, storage.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProjectStorage) ListProjects(ctx context.Context) ([]*models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	projects := make([]*models.Project, 0, len(m.projects))
	for _, p := range m.projects {
		cp := *p
		projects = append(projects, &cp)
	}
	return projects, nil
}

func (m *mockProjectStorage) UpdateProject(ctx context.Context, project *models.Project) error {
	if _, ok := m.projects[project.ID]; !ok {
		return storage.ErrProjectNotFound
	}
	cp := *project
	m.projects[project.ID] = &cp
	return nil
}

func (m *mockProjectStorage) SafeDeleteProject(ctx context.Context, id, requester string) error {
	m.lastDeleter = requester
	if m.refusal != nil {
		return m.refusal
	}
	if _, ok := m.projects[id]; !ok {
		return storage.ErrProjectNotFound
	}
	delete(m.projects, id)
	return nil
}

// mockPublisher collects published events
type mockPublisher struct {
	events []models.ChangeEvent
}

func (m *mockPublisher) Publish(event models.ChangeEvent) {
	m.events = append(m.events, event)
}

// mockRecorder collects recorded metrics
type mockRecorder struct {
	lockOps  []string
	refusals []string
}

func (m *mockRecorder) RecordLockOperation(operation, resourceType, result string) {
	m.lockOps = append(m.lockOps, operation+":"+resourceType+":"+result)
}

func (m *mockRecorder) RecordDeleteRefusal(resource string) {
	m.refusals = append(m.refusals, resource)
}

type mockTokenIssuer struct {
	err error
}

func (m *mockTokenIssuer) GenerateToken(holder string) (string, int64, error) {
	if m.err != nil {
		return "", 0, m.err
	}
	return "token-for-" + holder, 3600, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

var errStorage = errors.New("storage unavailable")
