package storage

import (
	"errors"
	"fmt"
)

// Common storage errors
var (
	// ErrLockNotFound indicates that no live lock row exists for the holder
	ErrLockNotFound = errors.New("lock not found")

	// ErrBoardNotFound indicates that board was not found in storage
	ErrBoardNotFound = errors.New("board not found")

	// ErrProjectNotFound indicates that project was not found in storage
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvalidResourceType indicates unknown lock class
	ErrInvalidResourceType = errors.New("invalid resource type")
)

// DeleteRefusedError возвращается safe-delete, когда ресурс занят другими клиентами.
// Reason предназначен для показа пользователю без изменений.
type DeleteRefusedError struct {
	Resource      string // "project" или "board"
	ID            string
	Reason        string
	BlockingCount int
}

func (e *DeleteRefusedError) Error() string {
	return e.Reason
}

// NewProjectDeleteRefused формирует отказ удаления проекта
func NewProjectDeleteRefused(projectID string, blocking int) *DeleteRefusedError {
	return &DeleteRefusedError{
		Resource:      "project",
		ID:            projectID,
		BlockingCount: blocking,
		Reason:        fmt.Sprintf("Project cannot be deleted: %d user(s) are currently working on it", blocking),
	}
}

// NewBoardDeleteRefused формирует отказ удаления борда
func NewBoardDeleteRefused(boardID string, blocking int) *DeleteRefusedError {
	return &DeleteRefusedError{
		Resource:      "board",
		ID:            boardID,
		BlockingCount: blocking,
		Reason:        "Board cannot be deleted: it is currently being edited by another user",
	}
}
