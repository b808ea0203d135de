// Package sequencer поддерживает плотную нумерацию шотов внутри проекта.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/iudanet/shotsync/internal/models"
)

// ErrInvalidMove индексы перемещения вне диапазона
var ErrInvalidMove = errors.New("move index out of range")

// BoardStore чтение бордов проекта и запись номера шота
type BoardStore interface {
	ListBoards(ctx context.Context, projectID string) ([]*models.Board, error)
	SetBoardShot(ctx context.Context, boardID string, shot int) error
}

// Sequencer разрешает конфликты номеров шотов и перенумеровывает борды
type Sequencer struct {
	store  BoardStore
	logger *slog.Logger
}

// New создает Sequencer
func New(store BoardStore, logger *slog.Logger) *Sequencer {
	return &Sequencer{
		store:  store,
		logger: logger,
	}
}

// ResolveConflict освобождает номер shot в проекте перед вставкой или обновлением борда.
// Если номер занят (не считая борда ignoreID), непрерывная серия shot, shot+1, ...
// сдвигается на единицу. Запись идет от старшего номера к младшему, поэтому
// два борда никогда не получают один номер даже на время сдвига.
// Борды за первой дыркой в нумерации не трогаются.
func (s *Sequencer) ResolveConflict(ctx context.Context, projectID string, shot int, ignoreID string) error {
	boards, err := s.store.ListBoards(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to load boards: %w", err)
	}

	run := contiguousRun(boards, shot, ignoreID)
	if len(run) == 0 {
		return nil
	}

	s.logger.DebugContext(ctx, "Shifting shots to resolve conflict",
		"project_id", projectID, "shot", shot, "shifted", len(run))

	for i := len(run) - 1; i >= 0; i-- {
		b := run[i]
		if err := s.store.SetBoardShot(ctx, b.ID, b.Shot+1); err != nil {
			return fmt.Errorf("failed to shift board %s from shot %d: %w", b.ID, b.Shot, err)
		}
	}

	return nil
}

// Renumber записывает shot = индекс + 1 для каждого борда в порядке ordered.
// Записи не атомарны между собой, поэтому вызывается только под блокировкой
// project_reorder. Ошибка отдельной записи логируется, цикл продолжается.
func (s *Sequencer) Renumber(ctx context.Context, ordered []string) error {
	var errs []error
	for i, id := range ordered {
		if err := s.store.SetBoardShot(ctx, id, i+1); err != nil {
			s.logger.ErrorContext(ctx, "Failed to renumber board", "board_id", id, "shot", i+1, "error", err)
			errs = append(errs, fmt.Errorf("board %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Move возвращает новый порядок после перетаскивания элемента с позиции from на позицию to
func Move(ids []string, from, to int) ([]string, error) {
	if from < 0 || from >= len(ids) || to < 0 || to >= len(ids) {
		return nil, fmt.Errorf("%w: from=%d to=%d len=%d", ErrInvalidMove, from, to, len(ids))
	}

	result := slices.Delete(slices.Clone(ids), from, from+1)
	return slices.Insert(result, to, ids[from]), nil
}

// contiguousRun возвращает борды с номерами shot, shot+1, ... до первого свободного номера
// по возрастанию. Пусто, если shot свободен.
func contiguousRun(boards []*models.Board, shot int, ignoreID string) []*models.Board {
	byShot := make(map[int][]*models.Board, len(boards))
	for _, b := range boards {
		if b.ID == ignoreID {
			continue
		}
		byShot[b.Shot] = append(byShot[b.Shot], b)
	}

	var run []*models.Board
	for n := shot; ; n++ {
		occupants, ok := byShot[n]
		if !ok {
			break
		}
		run = append(run, occupants...)
	}
	return run
}
