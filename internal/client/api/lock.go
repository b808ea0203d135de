package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/iudanet/shotsync/internal/models"
	"github.com/iudanet/shotsync/pkg/api"
)

// AcquireLock захватывает блокировку; false означает, что ресурс занят
func (c *Client) AcquireLock(ctx context.Context, resourceType models.ResourceType, resourceID string, ttl time.Duration) (bool, error) {
	return c.lease(ctx, "/api/v1/locks/acquire", resourceType, resourceID, ttl)
}

// RefreshLock продлевает блокировку; false означает, что клиент ее больше не держит
func (c *Client) RefreshLock(ctx context.Context, resourceType models.ResourceType, resourceID string, ttl time.Duration) (bool, error) {
	return c.lease(ctx, "/api/v1/locks/refresh", resourceType, resourceID, ttl)
}

func (c *Client) lease(ctx context.Context, path string, resourceType models.ResourceType, resourceID string, ttl time.Duration) (bool, error) {
	req := api.LockRequest{
		ResourceType: string(resourceType),
		ResourceID:   resourceID,
		TTLSeconds:   ttlSeconds(ttl),
	}

	var resp api.LockResponse
	if err := c.doRequest(ctx, http.MethodPost, path, req, &resp); err != nil {
		return false, fmt.Errorf("lock request failed: %w", err)
	}
	return resp.Acquired, nil
}

// ttlSeconds переводит аренду в целые секунды с округлением вверх.
// 0 просит сервер применить аренду по умолчанию.
func ttlSeconds(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return int64((ttl + time.Second - 1) / time.Second)
}

// ReleaseLock освобождает блокировку текущего клиента
func (c *Client) ReleaseLock(ctx context.Context, resourceType models.ResourceType, resourceID string) error {
	req := api.LockRequest{
		ResourceType: string(resourceType),
		ResourceID:   resourceID,
	}
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/locks/release", req, nil); err != nil {
		return fmt.Errorf("release request failed: %w", err)
	}
	return nil
}

// QueryLock возвращает состояние блокировки текущего клиента
func (c *Client) QueryLock(ctx context.Context, resourceType models.ResourceType, resourceID string) (*api.LockStatus, error) {
	q := url.Values{}
	q.Set("resource_type", string(resourceType))
	q.Set("resource_id", resourceID)

	var resp api.LockStatus
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/locks?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("query lock request failed: %w", err)
	}
	return &resp, nil
}
