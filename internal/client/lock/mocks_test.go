package lock

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/iudanet/shotsync/internal/models"
	"github.com/iudanet/shotsync/pkg/api"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockLockAPI implements LockAPI for testing
type mockLockAPI struct {
	err          error
	lastTTL      time.Duration
	acquired     bool
	present      bool
	releaseCalls int
	mu           sync.Mutex
}

func (m *mockLockAPI) AcquireLock(ctx context.Context, rt models.ResourceType, id string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTTL = ttl
	return m.acquired, m.err
}

func (m *mockLockAPI) RefreshLock(ctx context.Context, rt models.ResourceType, id string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTTL = ttl
	return m.acquired, m.err
}

func (m *mockLockAPI) ReleaseLock(ctx context.Context, rt models.ResourceType, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseCalls++
	return m.err
}

func (m *mockLockAPI) QueryLock(ctx context.Context, rt models.ResourceType, id string) (*api.LockStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &api.LockStatus{Present: m.present}, nil
}

// fakeHolder implements Holder for monitor tests
type fakeHolder struct {
	err          error
	held         bool
	checks       int
	releaseCalls int
	mu           sync.Mutex
}

func (f *fakeHolder) Held(ctx context.Context, rt models.ResourceType, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	return f.held, f.err
}

func (f *fakeHolder) Release(ctx context.Context, rt models.ResourceType, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalls++
	return true
}

func (f *fakeHolder) set(held bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held = held
	f.err = err
}

func (f *fakeHolder) counts() (checks, releases int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checks, f.releaseCalls
}
