package storage

import (
	"context"

	"github.com/iudanet/shotsync/internal/models"
)

// ProjectStorage defines interface for project persistence
type ProjectStorage interface {
	CreateProject(ctx context.Context, project *models.Project) error

	// GetProject retrieves project by ID
	// Returns ErrProjectNotFound if project doesn't exist
	GetProject(ctx context.Context, id string) (*models.Project, error)

	// ListProjects returns all projects, most recently updated first
	ListProjects(ctx context.Context) ([]*models.Project, error)

	// UpdateProject overwrites title and description
	// Returns ErrProjectNotFound if project doesn't exist
	UpdateProject(ctx context.Context, project *models.Project) error

	// SafeDeleteProject deletes the project and its boards unless any session,
	// edit or reorder lock on it (or edit lock on its boards) is held by someone
	// other than requester. Returns *DeleteRefusedError on refusal.
	SafeDeleteProject(ctx context.Context, id, requester string) error
}
