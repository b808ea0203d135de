package storage

import (
	"context"
	"time"

	"github.com/iudanet/shotsync/internal/models"
)

// LockStorage defines the lease contract the coordination core relies on.
// Every method is a single atomic read-modify-write on the lock rows.
type LockStorage interface {
	// AcquireLock claims (resourceType, resourceID) for holder for ttl.
	// For exclusive types returns false while another holder has a live row;
	// an expired row is replaced atomically. For shared types the holder's
	// own row is created or extended.
	AcquireLock(ctx context.Context, resourceType models.ResourceType, resourceID, holder string, ttl time.Duration) (bool, error)

	// RefreshLock extends expires_at only if holder currently holds a live row.
	// Returns false otherwise, leaving the row untouched.
	RefreshLock(ctx context.Context, resourceType models.ResourceType, resourceID, holder string, ttl time.Duration) (bool, error)

	// ReleaseLock deletes holder's row if present. Idempotent.
	ReleaseLock(ctx context.Context, resourceType models.ResourceType, resourceID, holder string) error

	// QueryLock returns holder's live row.
	// Returns ErrLockNotFound if the row is absent or expired
	QueryLock(ctx context.Context, resourceType models.ResourceType, resourceID, holder string) (*models.Lock, error)

	// DeleteExpiredLocks removes all expired rows
	// Returns number of deleted rows
	DeleteExpiredLocks(ctx context.Context) (int, error)
}
