// Package reorder выполняет перенумерацию шотов под эксклюзивной блокировкой проекта.
package reorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/shotsync/internal/models"
)

// ErrReorderBusy блокировку перестановки держит другой клиент
var ErrReorderBusy = errors.New("someone else is reordering this project")

// BusyMessage сообщение пользователю при отказе в блокировке
const BusyMessage = "Someone else is reordering shots right now. The order has been refreshed."

// Locker захват и освобождение блокировок
type Locker interface {
	Acquire(ctx context.Context, resourceType models.ResourceType, resourceID string, ttl time.Duration) bool
	Release(ctx context.Context, resourceType models.ResourceType, resourceID string) bool
}

// Renumberer записывает новый порядок шотов
type Renumberer interface {
	Renumber(ctx context.Context, ordered []string) error
}

// OrderState локальное представление порядка бордов
type OrderState interface {
	// Apply показывает новый порядок сразу, до записи на сервер
	Apply(order []string)
	// Reload заменяет локальный порядок авторитетным с сервера
	Reload(ctx context.Context) error
}

// Gate пропускает перестановку, только если удалось захватить project_reorder
type Gate struct {
	locks  Locker
	seq    Renumberer
	state  OrderState
	notify func(string)
	logger *slog.Logger
	ttl    time.Duration
}

// NewGate создает Gate. notify получает сообщения для пользователя и может быть nil.
func NewGate(locks Locker, seq Renumberer, state OrderState, ttl time.Duration, notify func(string), logger *slog.Logger) *Gate {
	if ttl <= 0 {
		ttl = models.DefaultReorderTTL
	}
	return &Gate{
		locks:  locks,
		seq:    seq,
		state:  state,
		ttl:    ttl,
		notify: notify,
		logger: logger,
	}
}

// Reorder применяет порядок локально, затем перенумеровывает борды под блокировкой.
// Если блокировку держит другой клиент, локальный порядок откатывается перезагрузкой
// и возвращается ErrReorderBusy.
func (g *Gate) Reorder(ctx context.Context, projectID string, newOrder []string) (err error) {
	g.state.Apply(newOrder)

	if !g.locks.Acquire(ctx, models.ResourceProjectReorder, projectID, g.ttl) {
		g.logger.InfoContext(ctx, "Reorder lock is busy, reloading order", "project_id", projectID)

		reloadErr := g.state.Reload(ctx)
		if reloadErr != nil {
			g.logger.ErrorContext(ctx, "Failed to reload order", "project_id", projectID, "error", reloadErr)
		}
		if g.notify != nil {
			g.notify(BusyMessage)
		}
		return errors.Join(ErrReorderBusy, reloadErr)
	}

	// Блокировка освобождается даже при отмене ctx
	defer g.locks.Release(context.WithoutCancel(ctx), models.ResourceProjectReorder, projectID)

	if err := g.seq.Renumber(ctx, newOrder); err != nil {
		return fmt.Errorf("renumber failed: %w", err)
	}
	return nil
}
