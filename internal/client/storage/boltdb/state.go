package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/iudanet/shotsync/internal/client/storage"
)

var currentProjectKey = []byte("current_project")

// SetCurrentProject запоминает выбранный проект; пустой ID сбрасывает выбор
func (s *Storage) SetCurrentProject(ctx context.Context, projectID string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketState)
		if bucket == nil {
			return fmt.Errorf("state bucket not found")
		}

		if projectID == "" {
			return bucket.Delete(currentProjectKey)
		}
		if err := bucket.Put(currentProjectKey, []byte(projectID)); err != nil {
			return fmt.Errorf("failed to save current project: %w", err)
		}
		return nil
	})
}

// GetCurrentProject возвращает выбранный проект
func (s *Storage) GetCurrentProject(ctx context.Context) (string, error) {
	var projectID string

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketState)
		if bucket == nil {
			return fmt.Errorf("state bucket not found")
		}

		data := bucket.Get(currentProjectKey)
		if data == nil {
			return storage.ErrNoCurrentProject
		}
		projectID = string(data)
		return nil
	})

	return projectID, err
}
