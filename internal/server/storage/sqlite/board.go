package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/shotsync/internal/models"
	"github.com/iudanet/shotsync/internal/server/storage"
)

const boardColumns = `
	id, project_id, shot, title, description, duration, transition,
	aspect_ratio, camera_angle, camera_movement, lens_focal_mm, image_url,
	created_at, updated_at
`

// CreateBoard inserts a new board
func (s *Storage) CreateBoard(ctx context.Context, board *models.Board) error {
	now := s.now()
	if board.CreatedAt.IsZero() {
		board.CreatedAt = now
	}
	board.UpdatedAt = now

	query := `INSERT INTO boards (` + boardColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		board.ID,
		board.ProjectID,
		board.Shot,
		board.Title,
		board.Description,
		nullFloat(board.Duration),
		board.Transition,
		board.AspectRatio,
		board.CameraAngle,
		board.CameraMovement,
		nullInt(board.LensFocalMM),
		board.ImageURL,
		board.CreatedAt.UnixMilli(),
		board.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert board: %w", err)
	}

	return nil
}

// GetBoard retrieves board by ID
func (s *Storage) GetBoard(ctx context.Context, id string) (*models.Board, error) {
	query := `SELECT ` + boardColumns + ` FROM boards WHERE id = ?`

	board, err := scanBoard(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrBoardNotFound
		}
		return nil, fmt.Errorf("failed to get board: %w", err)
	}

	return board, nil
}

// ListBoards returns all boards of a project ordered by shot
func (s *Storage) ListBoards(ctx context.Context, projectID string) ([]*models.Board, error) {
	query := `SELECT ` + boardColumns + ` FROM boards WHERE project_id = ? ORDER BY shot ASC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query boards: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	boards := make([]*models.Board, 0)
	for rows.Next() {
		board, err := scanBoard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan board: %w", err)
		}
		boards = append(boards, board)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return boards, nil
}

// UpdateBoard overwrites the whole board record
func (s *Storage) UpdateBoard(ctx context.Context, board *models.Board) error {
	board.UpdatedAt = s.now()

	query := `
		UPDATE boards
		SET shot = ?, title = ?, description = ?, duration = ?, transition = ?,
		    aspect_ratio = ?, camera_angle = ?, camera_movement = ?,
		    lens_focal_mm = ?, image_url = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		board.Shot,
		board.Title,
		board.Description,
		nullFloat(board.Duration),
		board.Transition,
		board.AspectRatio,
		board.CameraAngle,
		board.CameraMovement,
		nullInt(board.LensFocalMM),
		board.ImageURL,
		board.UpdatedAt.UnixMilli(),
		board.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update board: %w", err)
	}

	return expectOneRow(result, storage.ErrBoardNotFound)
}

// SetBoardShot writes only the shot number
func (s *Storage) SetBoardShot(ctx context.Context, id string, shot int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE boards SET shot = ?, updated_at = ? WHERE id = ?`,
		shot, s.nowMillis(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to set board shot: %w", err)
	}

	return expectOneRow(result, storage.ErrBoardNotFound)
}

// SafeDeleteBoard deletes the board unless another client holds a blocking lock.
// The check and the delete run in one transaction.
func (s *Storage) SafeDeleteBoard(ctx context.Context, id, requester string) (*models.Board, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	board, err := scanBoard(tx.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrBoardNotFound
		}
		return nil, fmt.Errorf("failed to get board: %w", err)
	}

	now := s.nowMillis()
	blocking, err := countBoardBlockers(ctx, tx, id, board.ProjectID, requester, now)
	if err != nil {
		return nil, err
	}
	if blocking > 0 {
		return nil, storage.NewBoardDeleteRefused(id, blocking)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM boards WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete board: %w", err)
	}

	// Собственные блокировки запрашивающего на удаленный борд больше не нужны
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM locks WHERE resource_type = ? AND resource_id = ?`,
		string(models.ResourceBoardEdit), id,
	); err != nil {
		return nil, fmt.Errorf("failed to delete board locks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return board, nil
}

// rowScanner общий интерфейс *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBoard(row rowScanner) (*models.Board, error) {
	board := &models.Board{}
	var duration sql.NullFloat64
	var lens sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&board.ID,
		&board.ProjectID,
		&board.Shot,
		&board.Title,
		&board.Description,
		&duration,
		&board.Transition,
		&board.AspectRatio,
		&board.CameraAngle,
		&board.CameraMovement,
		&lens,
		&board.ImageURL,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if duration.Valid {
		d := duration.Float64
		board.Duration = &d
	}
	if lens.Valid {
		l := int(lens.Int64)
		board.LensFocalMM = &l
	}
	board.CreatedAt = millisToTime(createdAt)
	board.UpdatedAt = millisToTime(updatedAt)

	return board, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

// expectOneRow превращает 0 затронутых строк в notFound
func expectOneRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
