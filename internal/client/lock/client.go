// Package lock управляет арендой блокировок на стороне клиента:
// захват, продление и освобождение, а также наблюдение за потерей блокировки.
package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/iudanet/shotsync/internal/models"
	"github.com/iudanet/shotsync/pkg/api"
)

// LockAPI серверные операции над блокировками.
// Держатель определяется токеном, которым подписан запрос.
type LockAPI interface {
	AcquireLock(ctx context.Context, resourceType models.ResourceType, resourceID string, ttl time.Duration) (bool, error)
	RefreshLock(ctx context.Context, resourceType models.ResourceType, resourceID string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, resourceType models.ResourceType, resourceID string) error
	QueryLock(ctx context.Context, resourceType models.ResourceType, resourceID string) (*api.LockStatus, error)
}

// Client захватывает и освобождает блокировки от имени одного держателя.
// Ошибки транспорта не возвращаются: захват в этом случае считается неудачным.
type Client struct {
	api    LockAPI
	logger *slog.Logger
	holder string
}

// NewClient создает клиент блокировок для держателя holder
func NewClient(lockAPI LockAPI, holder string, logger *slog.Logger) *Client {
	return &Client{
		api:    lockAPI,
		holder: holder,
		logger: logger.With("holder", holder),
	}
}

// Holder возвращает идентификатор держателя
func (c *Client) Holder() string {
	return c.holder
}

// Acquire пытается захватить блокировку.
// false означает, что ресурс занят или сервер недоступен; повторов нет.
func (c *Client) Acquire(ctx context.Context, resourceType models.ResourceType, resourceID string, ttl time.Duration) bool {
	ok, err := c.api.AcquireLock(ctx, resourceType, resourceID, c.ttl(resourceType, ttl))
	if err != nil {
		c.logger.WarnContext(ctx, "Lock cannot be acquired",
			"resource_type", resourceType, "resource_id", resourceID, "error", err)
		return false
	}
	c.logger.DebugContext(ctx, "Lock acquire",
		"resource_type", resourceType, "resource_id", resourceID, "acquired", ok)
	return ok
}

// Refresh продлевает аренду, если клиент все еще держит блокировку
func (c *Client) Refresh(ctx context.Context, resourceType models.ResourceType, resourceID string, ttl time.Duration) bool {
	ok, err := c.api.RefreshLock(ctx, resourceType, resourceID, c.ttl(resourceType, ttl))
	if err != nil {
		c.logger.WarnContext(ctx, "Lock cannot be refreshed",
			"resource_type", resourceType, "resource_id", resourceID, "error", err)
		return false
	}
	if !ok {
		c.logger.InfoContext(ctx, "Lock is no longer held",
			"resource_type", resourceType, "resource_id", resourceID)
	}
	return ok
}

// Release освобождает блокировку. Идемпотентна; ошибка только логируется.
func (c *Client) Release(ctx context.Context, resourceType models.ResourceType, resourceID string) bool {
	if err := c.api.ReleaseLock(ctx, resourceType, resourceID); err != nil {
		c.logger.WarnContext(ctx, "Error releasing lock",
			"resource_type", resourceType, "resource_id", resourceID, "error", err)
		return false
	}
	return true
}

// Held сообщает, держит ли клиент неистекшую блокировку
func (c *Client) Held(ctx context.Context, resourceType models.ResourceType, resourceID string) (bool, error) {
	status, err := c.api.QueryLock(ctx, resourceType, resourceID)
	if err != nil {
		return false, err
	}
	return status.Present, nil
}

// ttl подставляет аренду по умолчанию для типа блокировки
func (c *Client) ttl(resourceType models.ResourceType, ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return resourceType.DefaultTTL()
	}
	return ttl
}
