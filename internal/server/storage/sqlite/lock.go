package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/shotsync/internal/models"
	"github.com/iudanet/shotsync/internal/server/storage"
)

// holderKey возвращает ключ строки: у эксклюзивной блокировки одна строка на ресурс,
// у разделяемой по строке на каждого держателя
func holderKey(resourceType models.ResourceType, holder string) string {
	if resourceType.Exclusive() {
		return ""
	}
	return holder
}

// AcquireLock claims (resourceType, resourceID) for holder.
// The conflict check and the write are one statement: the upsert only overwrites
// an existing row when it is expired or already belongs to holder.
func (s *Storage) AcquireLock(ctx context.Context, resourceType models.ResourceType, resourceID, holder string, ttl time.Duration) (bool, error) {
	if !resourceType.Valid() {
		return false, storage.ErrInvalidResourceType
	}

	now := s.nowMillis()
	expiresAt := now + ttl.Milliseconds()

	query := `
		INSERT INTO locks (resource_type, resource_id, holder_key, holder, expires_at, acquired_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (resource_type, resource_id, holder_key) DO UPDATE
		SET holder = excluded.holder,
		    expires_at = excluded.expires_at,
		    acquired_at = CASE WHEN locks.holder = excluded.holder
		                       THEN locks.acquired_at ELSE excluded.acquired_at END
		WHERE locks.expires_at <= ? OR locks.holder = excluded.holder
	`

	result, err := s.db.ExecContext(ctx, query,
		string(resourceType),
		resourceID,
		holderKey(resourceType, holder),
		holder,
		expiresAt,
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	// 0 строк: живая блокировка другого держателя, upsert ничего не изменил
	return rows > 0, nil
}

// RefreshLock extends expires_at only if holder currently holds a live row
func (s *Storage) RefreshLock(ctx context.Context, resourceType models.ResourceType, resourceID, holder string, ttl time.Duration) (bool, error) {
	if !resourceType.Valid() {
		return false, storage.ErrInvalidResourceType
	}

	now := s.nowMillis()

	query := `
		UPDATE locks
		SET expires_at = ?
		WHERE resource_type = ? AND resource_id = ? AND holder_key = ?
		  AND holder = ? AND expires_at > ?
	`

	result, err := s.db.ExecContext(ctx, query,
		now+ttl.Milliseconds(),
		string(resourceType),
		resourceID,
		holderKey(resourceType, holder),
		holder,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to refresh lock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows == 1, nil
}

// ReleaseLock deletes holder's row if present
func (s *Storage) ReleaseLock(ctx context.Context, resourceType models.ResourceType, resourceID, holder string) error {
	if !resourceType.Valid() {
		return storage.ErrInvalidResourceType
	}

	query := `
		DELETE FROM locks
		WHERE resource_type = ? AND resource_id = ? AND holder_key = ? AND holder = ?
	`

	if _, err := s.db.ExecContext(ctx, query,
		string(resourceType),
		resourceID,
		holderKey(resourceType, holder),
		holder,
	); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	return nil
}

// QueryLock returns holder's live row
// Returns ErrLockNotFound if the row is absent or expired
func (s *Storage) QueryLock(ctx context.Context, resourceType models.ResourceType, resourceID, holder string) (*models.Lock, error) {
	if !resourceType.Valid() {
		return nil, storage.ErrInvalidResourceType
	}

	query := `
		SELECT resource_type, resource_id, holder, expires_at
		FROM locks
		WHERE resource_type = ? AND resource_id = ? AND holder_key = ?
		  AND holder = ? AND expires_at > ?
	`

	lock := &models.Lock{}
	var rt string
	var expiresAt int64

	err := s.db.QueryRowContext(ctx, query,
		string(resourceType),
		resourceID,
		holderKey(resourceType, holder),
		holder,
		s.nowMillis(),
	).Scan(&rt, &lock.ResourceID, &lock.Holder, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrLockNotFound
		}
		return nil, fmt.Errorf("failed to query lock: %w", err)
	}

	lock.ResourceType = models.ResourceType(rt)
	lock.ExpiresAt = millisToTime(expiresAt)

	return lock, nil
}

// DeleteExpiredLocks removes all expired lock rows
func (s *Storage) DeleteExpiredLocks(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM locks WHERE expires_at <= ?`, s.nowMillis())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired locks: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

// execer общий интерфейс *sql.DB и *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// countProjectBlockers считает живые блокировки других клиентов, мешающие удалить проект
func countProjectBlockers(ctx context.Context, q execer, projectID, requester string, now int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM locks
		WHERE expires_at > ? AND holder <> ?
		  AND (
		        (resource_type IN (?, ?, ?) AND resource_id = ?)
		     OR (resource_type = ? AND resource_id IN (SELECT id FROM boards WHERE project_id = ?))
		  )
	`

	var count int
	err := q.QueryRowContext(ctx, query,
		now,
		requester,
		string(models.ResourceProjectSession),
		string(models.ResourceProjectEdit),
		string(models.ResourceProjectReorder),
		projectID,
		string(models.ResourceBoardEdit),
		projectID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count project blockers: %w", err)
	}

	return count, nil
}

// countBoardBlockers считает блокировки других клиентов, мешающие удалить борд:
// редактирование самого борда и перенумерация его проекта
func countBoardBlockers(ctx context.Context, q execer, boardID, projectID, requester string, now int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM locks
		WHERE expires_at > ? AND holder <> ?
		  AND (
		        (resource_type = ? AND resource_id = ?)
		     OR (resource_type = ? AND resource_id = ?)
		  )
	`

	var count int
	err := q.QueryRowContext(ctx, query,
		now,
		requester,
		string(models.ResourceBoardEdit),
		boardID,
		string(models.ResourceProjectReorder),
		projectID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count board blockers: %w", err)
	}

	return count, nil
}
