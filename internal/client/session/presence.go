package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/iudanet/shotsync/internal/models"
)

// ErrJoinFailed сервер не выдал блокировку присутствия
var ErrJoinFailed = errors.New("failed to access project: someone might be deleting it")

// touchDivisor продление присутствия не чаще одного раза за ttl/touchDivisor
const touchDivisor = 10

// Presence разделяемая блокировка project_session: пока она жива,
// проект нельзя удалить другому клиенту.
type Presence struct {
	locks     Locks
	limiter   *rate.Limiter
	logger    *slog.Logger
	projectID string
	ttl       time.Duration
	mu        sync.Mutex
	left      bool
}

// Join захватывает блокировку присутствия в проекте
func (m *Manager) Join(ctx context.Context, projectID string) (*Presence, error) {
	ttl := m.cfg.SessionTTL
	if !m.locks.Acquire(ctx, models.ResourceProjectSession, projectID, ttl) {
		return nil, fmt.Errorf("%w: %s", ErrJoinFailed, projectID)
	}

	p := &Presence{
		locks:     m.locks,
		projectID: projectID,
		ttl:       ttl,
		limiter:   rate.NewLimiter(rate.Every(ttl/touchDivisor), 1),
		logger:    m.logger.With("project_id", projectID),
	}
	// Захват только что продлил аренду
	p.limiter.Allow()

	p.logger.DebugContext(ctx, "Joined project")
	return p, nil
}

// ProjectID возвращает проект
func (p *Presence) ProjectID() string {
	return p.projectID
}

// Touch продлевает присутствие при активности пользователя.
// Частые вызовы пропускаются. false означает, что блокировка потеряна.
func (p *Presence) Touch(ctx context.Context) bool {
	p.mu.Lock()
	if p.left {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	if !p.limiter.Allow() {
		return true
	}

	if !p.locks.Refresh(ctx, models.ResourceProjectSession, p.projectID, p.ttl) {
		p.logger.WarnContext(ctx, "Project session lock lost")
		return false
	}
	return true
}

// Leave освобождает присутствие. Повторный вызов ничего не делает.
func (p *Presence) Leave(ctx context.Context) {
	p.mu.Lock()
	if p.left {
		p.mu.Unlock()
		return
	}
	p.left = true
	p.mu.Unlock()

	p.locks.Release(ctx, models.ResourceProjectSession, p.projectID)
	p.logger.DebugContext(ctx, "Left project")
}
