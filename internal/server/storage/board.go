package storage

import (
	"context"

	"github.com/iudanet/shotsync/internal/models"
)

// BoardStorage defines interface for board persistence
type BoardStorage interface {
	// CreateBoard inserts a new board. The shot is stored as given, collisions are
	// the caller's concern.
	CreateBoard(ctx context.Context, board *models.Board) error

	// GetBoard retrieves board by ID
	// Returns ErrBoardNotFound if board doesn't exist
	GetBoard(ctx context.Context, id string) (*models.Board, error)

	// ListBoards returns all boards of a project ordered by shot ascending
	// Returns empty slice if no boards found
	ListBoards(ctx context.Context, projectID string) ([]*models.Board, error)

	// UpdateBoard overwrites every content field and the shot of a board
	// Returns ErrBoardNotFound if board doesn't exist
	UpdateBoard(ctx context.Context, board *models.Board) error

	// SetBoardShot writes only the shot number
	// Returns ErrBoardNotFound if board doesn't exist
	SetBoardShot(ctx context.Context, id string, shot int) error

	// SafeDeleteBoard deletes the board unless someone other than requester holds
	// its edit lock or the project reorder lock. Returns *DeleteRefusedError on refusal.
	SafeDeleteBoard(ctx context.Context, id, requester string) (*models.Board, error)
}
