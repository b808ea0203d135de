package cli

import (
	"context"
	"errors"

	"github.com/iudanet/shotsync/internal/client/session"
	"github.com/iudanet/shotsync/internal/client/workspace"
	"github.com/iudanet/shotsync/internal/models"
)

// Watch печатает борды текущего проекта при каждом изменении до отмены ctx.
// Клиент все это время присутствует в проекте.
func (c *Cli) Watch(ctx context.Context) error {
	return c.inProject(ctx, func(ctx context.Context, ws *workspace.Workspace, presence *session.Presence) error {
		c.printBoards(ws.Boards())

		err := c.api.Subscribe(ctx, ws.ProjectID(), func(ev models.ChangeEvent) {
			// Изменения в проекте считаются активностью
			if !presence.Touch(ctx) {
				c.notify("Project session expired. The project may have been deleted.")
			}

			c.io.Printf("-- %s %s %s\n", ev.Kind, ev.Entity, ev.ID)
			ws.HandleEvent(ctx, ev)
			c.printBoards(ws.Boards())
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}
