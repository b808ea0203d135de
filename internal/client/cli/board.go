package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iudanet/shotsync/internal/client/autosave"
	"github.com/iudanet/shotsync/internal/client/session"
	"github.com/iudanet/shotsync/internal/client/workspace"
)

// BoardList печатает борды текущего проекта
func (c *Cli) BoardList(ctx context.Context) error {
	projectID, err := c.currentProject(ctx)
	if err != nil {
		return err
	}
	boards, err := c.api.ListBoards(ctx, projectID)
	if err != nil {
		return err
	}
	c.printBoards(boards)
	return nil
}

// BoardAdd создает борд; занятый номер шота освобождается сдвигом
func (c *Cli) BoardAdd(ctx context.Context, rec autosave.Record) error {
	return c.inProject(ctx, func(ctx context.Context, ws *workspace.Workspace, presence *session.Presence) error {
		board, err := ws.AddBoard(ctx, rec)
		if err != nil {
			return err
		}
		c.io.Printf("Added board %q at shot %d (%s)\n", board.Title, board.Shot, board.ID)
		c.printBoards(ws.Boards())
		return nil
	})
}

// BoardEdit редактирует борд под блокировкой board_edit.
// В интерактивном режиме правки вводятся строками field=value и сохраняются
// после паузы; пустая строка завершает редактирование.
func (c *Cli) BoardEdit(ctx context.Context, boardID string, rec autosave.Record, interactive bool) error {
	return c.inProject(ctx, func(ctx context.Context, ws *workspace.Workspace, presence *session.Presence) error {
		board, err := c.api.GetBoard(ctx, boardID)
		if err != nil {
			return err
		}

		s, err := c.sessions(ws).OpenBoard(ctx, board)
		if err != nil {
			if errors.Is(err, session.ErrLocked) {
				return fmt.Errorf("board %s is locked", boardID)
			}
			return err
		}
		defer s.Close(context.WithoutCancel(ctx))

		for field, value := range rec {
			if err := s.Set(field, value); err != nil {
				return err
			}
		}

		if interactive {
			if err := c.editLoop(ctx, s, presence, board.Title); err != nil {
				return err
			}
		}

		if err := s.Submit(ctx); err != nil {
			return err
		}
		c.io.Println("Board saved.")
		c.printBoards(ws.Boards())
		return nil
	})
}

func (c *Cli) editLoop(ctx context.Context, s *session.EditSession, presence *session.Presence, title string) error {
	c.io.Printf("Editing %q. Enter field=value, empty line to finish.\n", title)
	c.io.Printf("Fields: %s\n", strings.Join(autosave.BoardFields, ", "))

	for {
		line, err := c.io.ReadInput("> ")
		if errors.Is(err, io.EOF) || (err == nil && line == "") {
			return nil
		}
		if err != nil {
			return err
		}

		select {
		case <-s.Evicted():
			return session.ErrEvicted
		default:
		}

		field, value, ok := strings.Cut(line, "=")
		if !ok {
			c.io.Println("expected field=value")
			continue
		}
		err = s.Set(strings.TrimSpace(field), value)
		if errors.Is(err, autosave.ErrUnknownField) {
			c.io.Println(err.Error())
			continue
		}
		if err != nil {
			return err
		}
		presence.Touch(ctx)
	}
}

// BoardMove переносит борд с позиции from на позицию to (с единицы)
func (c *Cli) BoardMove(ctx context.Context, from, to int) error {
	return c.inProject(ctx, func(ctx context.Context, ws *workspace.Workspace, presence *session.Presence) error {
		if err := ws.Move(ctx, from-1, to-1); err != nil {
			return err
		}
		c.printBoards(ws.Boards())
		return nil
	})
}

// BoardDelete удаляет борд, если его никто не редактирует
func (c *Cli) BoardDelete(ctx context.Context, boardID string, yes bool) error {
	return c.inProject(ctx, func(ctx context.Context, ws *workspace.Workspace, presence *session.Presence) error {
		board, err := c.api.GetBoard(ctx, boardID)
		if err != nil {
			return err
		}
		if err := c.confirm(yes, fmt.Sprintf("Delete board %q (shot %d)?", board.Title, board.Shot)); err != nil {
			return err
		}

		if err := ws.DeleteBoard(ctx, boardID); err != nil {
			return c.deleteError(err)
		}
		c.io.Printf("Deleted board %q\n", board.Title)
		return nil
	})
}
