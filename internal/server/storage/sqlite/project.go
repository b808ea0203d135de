package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/shotsync/internal/models"
	"github.com/iudanet/shotsync/internal/server/storage"
)

// CreateProject inserts a new project
func (s *Storage) CreateProject(ctx context.Context, project *models.Project) error {
	now := s.now()
	project.CreatedAt = now
	project.UpdatedAt = now

	query := `
		INSERT INTO projects (id, title, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		project.ID,
		project.Title,
		project.Description,
		project.CreatedAt.UnixMilli(),
		project.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	return nil
}

// GetProject retrieves project by ID
func (s *Storage) GetProject(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT id, title, description, created_at, updated_at FROM projects WHERE id = ?`

	project, err := scanProject(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// ListProjects returns all projects, most recently updated first
func (s *Storage) ListProjects(ctx context.Context) ([]*models.Project, error) {
	query := `SELECT id, title, description, created_at, updated_at FROM projects ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	projects := make([]*models.Project, 0)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return projects, nil
}

// UpdateProject overwrites title and description
func (s *Storage) UpdateProject(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = s.now()

	result, err := s.db.ExecContext(ctx,
		`UPDATE projects SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
		project.Title,
		project.Description,
		project.UpdatedAt.UnixMilli(),
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	return expectOneRow(result, storage.ErrProjectNotFound)
}

// SafeDeleteProject deletes the project, its boards and their lock rows,
// unless another client holds a session, edit or reorder lock on it.
func (s *Storage) SafeDeleteProject(ctx context.Context, id, requester string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if exists == 0 {
		return storage.ErrProjectNotFound
	}

	blocking, err := countProjectBlockers(ctx, tx, id, requester, s.nowMillis())
	if err != nil {
		return err
	}
	if blocking > 0 {
		return storage.NewProjectDeleteRefused(id, blocking)
	}

	// Сначала блокировки бордов: после удаления бордов подзапрос их уже не найдет
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM locks WHERE resource_type = ? AND resource_id IN (SELECT id FROM boards WHERE project_id = ?)`,
		string(models.ResourceBoardEdit), id,
	); err != nil {
		return fmt.Errorf("failed to delete board locks: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM locks WHERE resource_type IN (?, ?, ?) AND resource_id = ?`,
		string(models.ResourceProjectSession),
		string(models.ResourceProjectEdit),
		string(models.ResourceProjectReorder),
		id,
	); err != nil {
		return fmt.Errorf("failed to delete project locks: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE project_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete boards: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func scanProject(row rowScanner) (*models.Project, error) {
	project := &models.Project{}
	var createdAt, updatedAt int64

	if err := row.Scan(
		&project.ID,
		&project.Title,
		&project.Description,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	project.CreatedAt = millisToTime(createdAt)
	project.UpdatedAt = millisToTime(updatedAt)

	return project, nil
}
