// Package workspace держит упорядоченный список бордов проекта и проводит
// все изменения через нумерацию шотов и блокировку перестановки.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/iudanet/shotsync/internal/client/autosave"
	"github.com/iudanet/shotsync/internal/client/reorder"
	"github.com/iudanet/shotsync/internal/client/sequencer"
	"github.com/iudanet/shotsync/internal/models"
	"github.com/iudanet/shotsync/internal/validation"
)

// ErrBoardNotInProject борд принадлежит другому проекту
var ErrBoardNotInProject = errors.New("board does not belong to this project")

// API серверные операции над бордами
type API interface {
	ListBoards(ctx context.Context, projectID string) ([]*models.Board, error)
	GetBoard(ctx context.Context, boardID string) (*models.Board, error)
	CreateBoard(ctx context.Context, projectID string, board *models.Board) (*models.Board, error)
	UpdateBoard(ctx context.Context, board *models.Board) (*models.Board, error)
	SetBoardShot(ctx context.Context, boardID string, shot int) error
	DeleteBoard(ctx context.Context, boardID string) error
}

// Workspace локальное представление бордов одного проекта
type Workspace struct {
	api       API
	seq       *sequencer.Sequencer
	gate      *reorder.Gate
	logger    *slog.Logger
	projectID string
	boards    []*models.Board
	mu        sync.RWMutex
}

// New создает Workspace проекта. Перестановки выполняются под блокировкой
// project_reorder с арендой reorderTTL; notify получает сообщения для пользователя.
func New(api API, locks reorder.Locker, projectID string, reorderTTL time.Duration, notify func(string), logger *slog.Logger) *Workspace {
	logger = logger.With("project_id", projectID)
	w := &Workspace{
		api:       api,
		projectID: projectID,
		logger:    logger,
	}
	w.seq = sequencer.New(api, logger)
	w.gate = reorder.NewGate(locks, w.seq, w, reorderTTL, notify, logger)
	return w
}

// ProjectID возвращает проект
func (w *Workspace) ProjectID() string {
	return w.projectID
}

// Reload загружает авторитетный порядок бордов с сервера
func (w *Workspace) Reload(ctx context.Context) error {
	boards, err := w.api.ListBoards(ctx, w.projectID)
	if err != nil {
		return fmt.Errorf("failed to load boards: %w", err)
	}

	w.mu.Lock()
	w.boards = boards
	w.mu.Unlock()
	return nil
}

// Boards возвращает копию списка бордов в порядке шотов
func (w *Workspace) Boards() []*models.Board {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]*models.Board, len(w.boards))
	for i, b := range w.boards {
		out[i] = b.Clone()
	}
	return out
}

// Apply показывает новый порядок до записи на сервер
func (w *Workspace) Apply(order []string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	byID := make(map[string]*models.Board, len(w.boards))
	for _, b := range w.boards {
		byID[b.ID] = b
	}

	reordered := make([]*models.Board, 0, len(order))
	for _, id := range order {
		b, ok := byID[id]
		if !ok {
			continue
		}
		c := b.Clone()
		c.Shot = len(reordered) + 1
		reordered = append(reordered, c)
	}
	w.boards = reordered
}

// HandleEvent обновляет список по событию ленты изменений этого проекта.
// Лента не используется для обнаружения потери блокировки.
func (w *Workspace) HandleEvent(ctx context.Context, ev models.ChangeEvent) {
	if ev.Entity != models.EntityBoard || ev.ProjectID != w.projectID {
		return
	}
	if err := w.Reload(ctx); err != nil {
		w.logger.WarnContext(ctx, "Failed to refresh boards after change", "board_id", ev.ID, "error", err)
	}
}

// AddBoard создает борд из сырых значений полей.
// Без номера шота борд добавляется в конец; занятый номер освобождается сдвигом.
func (w *Workspace) AddBoard(ctx context.Context, rec autosave.Record) (*models.Board, error) {
	draft, err := autosave.Normalize(&models.Board{ProjectID: w.projectID}, rec)
	if err != nil {
		return nil, err
	}
	if draft.Shot == 0 {
		draft.Shot = w.nextShot()
	}
	if err := validation.ValidateBoard(draft); err != nil {
		return nil, err
	}

	if err := w.seq.ResolveConflict(ctx, w.projectID, draft.Shot, ""); err != nil {
		return nil, fmt.Errorf("failed to resolve shot conflict: %w", err)
	}

	created, err := w.api.CreateBoard(ctx, w.projectID, draft)
	if err != nil {
		return nil, err
	}

	w.reloadQuietly(ctx)
	return created, nil
}

// UpdateBoard записывает правки борда целиком.
// Если номер шота изменился, занятый номер освобождается сдвигом.
func (w *Workspace) UpdateBoard(ctx context.Context, boardID string, rec autosave.Record) (*models.Board, error) {
	current, err := w.api.GetBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if current.ProjectID != w.projectID {
		return nil, ErrBoardNotInProject
	}

	updated, err := autosave.Normalize(current, rec)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateBoard(updated); err != nil {
		return nil, err
	}

	if updated.Shot != current.Shot {
		if err := w.seq.ResolveConflict(ctx, w.projectID, updated.Shot, boardID); err != nil {
			return nil, fmt.Errorf("failed to resolve shot conflict: %w", err)
		}
	}

	saved, err := w.api.UpdateBoard(ctx, updated)
	if err != nil {
		return nil, err
	}

	w.reloadQuietly(ctx)
	return saved, nil
}

// DeleteBoard удаляет борд через safe delete сервера.
// Локальный список меняется только после успешного удаления.
func (w *Workspace) DeleteBoard(ctx context.Context, boardID string) error {
	if err := w.api.DeleteBoard(ctx, boardID); err != nil {
		return err
	}

	w.mu.Lock()
	w.boards = slices.DeleteFunc(w.boards, func(b *models.Board) bool {
		return b.ID == boardID
	})
	w.mu.Unlock()
	return nil
}

// Move переносит борд с позиции from на позицию to и перенумеровывает проект
func (w *Workspace) Move(ctx context.Context, from, to int) error {
	w.mu.RLock()
	ids := make([]string, len(w.boards))
	for i, b := range w.boards {
		ids[i] = b.ID
	}
	w.mu.RUnlock()

	order, err := sequencer.Move(ids, from, to)
	if err != nil {
		return err
	}
	return w.gate.Reorder(ctx, w.projectID, order)
}

func (w *Workspace) nextShot() int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	last := 0
	for _, b := range w.boards {
		last = max(last, b.Shot)
	}
	return last + 1
}

func (w *Workspace) reloadQuietly(ctx context.Context) {
	if err := w.Reload(ctx); err != nil {
		w.logger.WarnContext(ctx, "Failed to reload boards", "error", err)
	}
}
