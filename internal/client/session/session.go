// Package session открывает сессии редактирования бордов и проектов
// под эксклюзивной блокировкой и отслеживает присутствие в проекте.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/shotsync/internal/client/autosave"
	"github.com/iudanet/shotsync/internal/client/lock"
	"github.com/iudanet/shotsync/internal/models"
)

var (
	// ErrLocked ресурс редактирует другой клиент
	ErrLocked = errors.New("resource is being edited by someone else")

	// ErrEvicted блокировка сессии потеряна
	ErrEvicted = errors.New("edit session lost its lock")

	// ErrSessionClosed сессия уже закрыта
	ErrSessionClosed = errors.New("edit session is closed")
)

// Сообщения пользователю
const (
	BoardLockedMessage    = "This board is currently being edited by someone else."
	ProjectLockedMessage  = "This project is currently being edited by someone else."
	BoardEvictedMessage   = "Someone else is now editing this board. Your unsaved changes were discarded."
	ProjectEvictedMessage = "Someone else is now editing this project. Your unsaved changes were discarded."
)

// Locks операции клиента блокировок, нужные сессиям
type Locks interface {
	lock.Holder
	Acquire(ctx context.Context, resourceType models.ResourceType, resourceID string, ttl time.Duration) bool
	Refresh(ctx context.Context, resourceType models.ResourceType, resourceID string, ttl time.Duration) bool
}

// BoardWriter записывает борд целиком; сырые значения нормализуются им же
type BoardWriter interface {
	UpdateBoard(ctx context.Context, boardID string, rec autosave.Record) (*models.Board, error)
}

// ProjectWriter записывает заголовок и описание проекта
type ProjectWriter interface {
	UpdateProject(ctx context.Context, projectID, title, description string) (*models.Project, error)
}

// Config параметры сессий
type Config struct {
	PollInterval  time.Duration
	AutosaveDelay time.Duration
	EditTTL       time.Duration
	SessionTTL    time.Duration
}

// Manager открывает сессии редактирования
type Manager struct {
	locks    Locks
	boards   BoardWriter
	projects ProjectWriter
	notify   func(string)
	logger   *slog.Logger
	cfg      Config
}

// NewManager создает Manager. notify получает сообщения для пользователя и может быть nil.
// Сообщение о вытеснении приходит на горутине монитора; из notify можно закрыть сессию.
func NewManager(locks Locks, boards BoardWriter, projects ProjectWriter, cfg Config, notify func(string), logger *slog.Logger) *Manager {
	if cfg.EditTTL <= 0 {
		cfg.EditTTL = models.DefaultEditTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = models.DefaultSessionTTL
	}
	if notify == nil {
		notify = func(string) {}
	}
	return &Manager{
		locks:    locks,
		boards:   boards,
		projects: projects,
		cfg:      cfg,
		notify:   notify,
		logger:   logger,
	}
}

// OpenBoard захватывает board_edit и открывает сессию редактирования борда
func (m *Manager) OpenBoard(ctx context.Context, board *models.Board) (*EditSession, error) {
	persist := func(ctx context.Context, rec autosave.Record) error {
		_, err := m.boards.UpdateBoard(ctx, board.ID, rec)
		return err
	}
	return m.open(ctx, models.ResourceBoardEdit, board.ID, autosave.BoardFields, persist, BoardLockedMessage, BoardEvictedMessage)
}

// OpenProject захватывает project_edit и открывает сессию редактирования проекта
func (m *Manager) OpenProject(ctx context.Context, project *models.Project) (*EditSession, error) {
	base := *project
	persist := func(ctx context.Context, rec autosave.Record) error {
		title, description := base.Title, base.Description
		if v, ok := rec[autosave.FieldTitle]; ok {
			title = v
		}
		if v, ok := rec[autosave.FieldDescription]; ok {
			description = v
		}
		_, err := m.projects.UpdateProject(ctx, base.ID, title, description)
		return err
	}
	return m.open(ctx, models.ResourceProjectEdit, project.ID, autosave.ProjectFields, persist, ProjectLockedMessage, ProjectEvictedMessage)
}

func (m *Manager) open(ctx context.Context, resourceType models.ResourceType, resourceID string, fields []string, persist autosave.PersistFunc, lockedMsg, evictedMsg string) (*EditSession, error) {
	if !m.locks.Acquire(ctx, resourceType, resourceID, m.cfg.EditTTL) {
		m.notify(lockedMsg)
		return nil, fmt.Errorf("%w: %s %s", ErrLocked, resourceType, resourceID)
	}

	// Фоновые записи и опрос живут дольше ctx открытия
	bg := context.WithoutCancel(ctx)

	s := &EditSession{
		locks:        m.locks,
		resourceType: resourceType,
		resourceID:   resourceID,
		fields:       fields,
		ttl:          m.cfg.EditTTL,
		evicted:      make(chan struct{}),
		logger:       m.logger.With("resource_type", resourceType, "resource_id", resourceID),
	}

	s.coalescer = autosave.New(bg, m.cfg.AutosaveDelay, func(ctx context.Context, rec autosave.Record) error {
		if err := persist(ctx, rec); err != nil {
			return err
		}
		// Каждая сохраненная правка продлевает аренду; потерю заметит монитор
		s.locks.Refresh(ctx, resourceType, resourceID, s.ttl)
		return nil
	}, nil, m.logger)

	s.monitor = lock.NewMonitor(m.locks, resourceType, resourceID, m.cfg.PollInterval, func() {
		m.notify(evictedMsg)
		s.evict()
	}, m.logger)

	if err := s.monitor.Watch(bg); err != nil {
		s.coalescer.Close()
		m.locks.Release(ctx, resourceType, resourceID)
		return nil, fmt.Errorf("failed to start lock monitor: %w", err)
	}

	s.logger.DebugContext(ctx, "Edit session opened")
	return s, nil
}

// EditSession правки одного ресурса под его блокировкой
type EditSession struct {
	locks        Locks
	monitor      *lock.Monitor
	coalescer    *autosave.Coalescer
	evicted      chan struct{}
	logger       *slog.Logger
	resourceType models.ResourceType
	resourceID   string
	fields       []string
	ttl          time.Duration
	mu           sync.Mutex
	closed       bool
}

// ResourceID возвращает ID редактируемого ресурса
func (s *EditSession) ResourceID() string {
	return s.resourceID
}

// Set запоминает правку поля; запись на сервер произойдет после паузы.
// Неизвестное поле отклоняется и в буфер не попадает.
func (s *EditSession) Set(field, value string) error {
	if err := s.usable(); err != nil {
		return err
	}
	if err := autosave.CheckField(field, s.fields); err != nil {
		return err
	}
	return s.coalescer.Set(field, value)
}

// Snapshot возвращает текущие правки
func (s *EditSession) Snapshot() autosave.Record {
	return s.coalescer.Snapshot()
}

// Evicted закрывается, когда сессия потеряла блокировку
func (s *EditSession) Evicted() <-chan struct{} {
	return s.evicted
}

// Submit сохраняет правки и закрывает сессию.
// При ошибке записи сессия остается открытой, чтобы правки не потерялись.
func (s *EditSession) Submit(ctx context.Context) error {
	if err := s.usable(); err != nil {
		return err
	}
	if err := s.coalescer.Flush(ctx); err != nil {
		return fmt.Errorf("failed to save changes: %w", err)
	}
	s.finish(ctx)
	return nil
}

// Close сохраняет оставшиеся правки и освобождает блокировку.
// Ошибка записи только логируется: блокировка освобождается в любом случае.
func (s *EditSession) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	if s.monitor.State() == lock.StateWatching {
		if err := s.coalescer.Flush(ctx); err != nil && !errors.Is(err, autosave.ErrClosed) {
			s.logger.ErrorContext(ctx, "Failed to save changes on close", "error", err)
		}
	}
	s.finish(ctx)
}

func (s *EditSession) finish(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.coalescer.Close()
	s.monitor.Release(ctx)
	s.monitor.Stop()
	s.logger.DebugContext(ctx, "Edit session closed")
}

func (s *EditSession) usable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	select {
	case <-s.evicted:
		return ErrEvicted
	default:
		return nil
	}
}

// evict вызывается монитором один раз: несохраненные правки выбрасываются
func (s *EditSession) evict() {
	s.coalescer.Discard()
	s.coalescer.Close()
	close(s.evicted)
}
