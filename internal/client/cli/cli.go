// Package cli команды клиента shotsync.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/iudanet/shotsync/internal/client/api"
	"github.com/iudanet/shotsync/internal/client/identity"
	"github.com/iudanet/shotsync/internal/client/iocli"
	"github.com/iudanet/shotsync/internal/client/lock"
	"github.com/iudanet/shotsync/internal/client/session"
	"github.com/iudanet/shotsync/internal/client/storage"
	"github.com/iudanet/shotsync/internal/client/storage/boltdb"
	"github.com/iudanet/shotsync/internal/client/workspace"
	"github.com/iudanet/shotsync/internal/config"
	"github.com/iudanet/shotsync/internal/models"
)

var (
	// ErrNoProject проект не выбран
	ErrNoProject = errors.New("no project selected: run 'shotsync project use <id>' or pass --project")

	// ErrDeleteRefused сервер отказал в удалении; причина уже показана пользователю
	ErrDeleteRefused = errors.New("delete refused")

	// ErrAborted пользователь не подтвердил действие
	ErrAborted = errors.New("aborted")
)

// Cli выполняет команды от имени одного клиента
type Cli struct {
	io       iocli.IO
	api      *api.Client
	locks    *lock.Client
	state    storage.StateStorage
	logger   *slog.Logger
	clientID string
	project  string
	cfg      config.ClientConfig
}

// New создает Cli из готовых зависимостей
func New(io iocli.IO, apiClient *api.Client, locks *lock.Client, state storage.StateStorage, cfg config.ClientConfig, logger *slog.Logger) *Cli {
	return &Cli{
		io:       io,
		api:      apiClient,
		locks:    locks,
		state:    state,
		cfg:      cfg,
		logger:   logger,
		clientID: locks.Holder(),
	}
}

// Setup открывает локальное хранилище, инициализирует идентичность и
// возвращает Cli вместе с функцией закрытия ресурсов.
func Setup(ctx context.Context, io iocli.IO, cfg *config.Config, logger *slog.Logger) (*Cli, func() error, error) {
	store, err := boltdb.New(ctx, cfg.Client.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open local database: %w", err)
	}

	apiClient := api.NewClient(cfg.Client.ServerURL, cfg.Client.RequestTimeout)
	provider := identity.New(store, apiClient, logger)
	if err := provider.Init(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to initialize client identity: %w", err)
	}
	apiClient.SetToken(provider.Token())
	apiClient.SetReauth(provider.Renew)

	locks := lock.NewClient(apiClient, provider.ID(), logger)
	c := New(io, apiClient, locks, store, cfg.Client, logger)

	closeFn := func() error {
		return errors.Join(provider.Close(), store.Close())
	}
	return c, closeFn, nil
}

// SetProject задает проект для текущей команды вместо сохраненного
func (c *Cli) SetProject(projectID string) {
	c.project = projectID
}

// WhoAmI печатает идентификатор клиента
func (c *Cli) WhoAmI(ctx context.Context) error {
	c.io.Println(c.clientID)
	return nil
}

func (c *Cli) currentProject(ctx context.Context) (string, error) {
	if c.project != "" {
		return c.project, nil
	}
	projectID, err := c.state.GetCurrentProject(ctx)
	if errors.Is(err, storage.ErrNoCurrentProject) {
		return "", ErrNoProject
	}
	if err != nil {
		return "", err
	}
	return projectID, nil
}

// inProject выполняет fn, пока клиент присутствует в проекте.
// Присутствие не дает другим клиентам удалить проект.
func (c *Cli) inProject(ctx context.Context, fn func(ctx context.Context, ws *workspace.Workspace, presence *session.Presence) error) error {
	projectID, err := c.currentProject(ctx)
	if err != nil {
		return err
	}

	presence, err := c.sessions(nil).Join(ctx, projectID)
	if err != nil {
		return err
	}
	defer presence.Leave(context.WithoutCancel(ctx))

	ws := workspace.New(c.api, c.locks, projectID, c.cfg.ReorderTTL, c.notify, c.logger)
	if err := ws.Reload(ctx); err != nil {
		return err
	}
	return fn(ctx, ws, presence)
}

func (c *Cli) sessions(ws *workspace.Workspace) *session.Manager {
	var boards session.BoardWriter
	if ws != nil {
		boards = ws
	}
	return session.NewManager(c.locks, boards, c.api, session.Config{
		PollInterval:  c.cfg.PollInterval,
		AutosaveDelay: c.cfg.AutosaveDelay,
		EditTTL:       c.cfg.EditTTL,
		SessionTTL:    c.cfg.SessionTTL,
	}, c.notify, c.logger)
}

// notify показывает сообщение пользователю
func (c *Cli) notify(msg string) {
	c.io.Println("! " + msg)
}

// confirm спрашивает подтверждение, если оно не дано флагом
func (c *Cli) confirm(yes bool, prompt string) error {
	if yes {
		return nil
	}
	ok, err := c.io.Confirm(prompt)
	if errors.Is(err, iocli.ErrNotInteractive) {
		return fmt.Errorf("%w (pass --yes to skip confirmation)", err)
	}
	if err != nil {
		return err
	}
	if !ok {
		return ErrAborted
	}
	return nil
}

// deleteError показывает причину отказа safe delete без изменений
func (c *Cli) deleteError(err error) error {
	var refusal *api.DeleteRefusal
	if errors.As(err, &refusal) {
		c.io.Println(refusal.Message)
		return ErrDeleteRefused
	}
	return err
}

func (c *Cli) printBoards(boards []*models.Board) {
	if len(boards) == 0 {
		c.io.Println("No boards yet.")
		return
	}

	w := tabwriter.NewWriter(c.io, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tSHOT\tTITLE\tDURATION\tLENS\tID")
	for i, b := range boards {
		duration, lens := "-", "-"
		if b.Duration != nil {
			duration = fmt.Sprintf("%gs", *b.Duration)
		}
		if b.LensFocalMM != nil {
			lens = fmt.Sprintf("%dmm", *b.LensFocalMM)
		}
		_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n", i+1, b.Shot, b.Title, duration, lens, b.ID)
	}
	_ = w.Flush()
}
