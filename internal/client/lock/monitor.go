package lock

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/shotsync/internal/models"
)

// DefaultPollInterval интервал опроса по умолчанию.
// Потеря блокировки обнаруживается не позже чем через один интервал плюс время запроса.
const DefaultPollInterval = 2 * time.Second

// ErrMonitorStarted Watch вызван повторно
var ErrMonitorStarted = errors.New("monitor already started")

// State состояние монитора
type State int

const (
	StateIdle State = iota
	StateWatching
	StateEvicted
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StateEvicted:
		return "evicted"
	case StateReleased:
		return "released"
	}
	return "unknown"
}

// Holder операции, нужные монитору
type Holder interface {
	Held(ctx context.Context, resourceType models.ResourceType, resourceID string) (bool, error)
	Release(ctx context.Context, resourceType models.ResourceType, resourceID string) bool
}

// Monitor опрашивает сервер и сообщает о потере блокировки.
// Переходы: Idle -> Watching -> Evicted | Released. Evicted и Released конечны.
type Monitor struct {
	locks        Holder
	onEvict      func()
	logger       *slog.Logger
	cancel       context.CancelFunc
	done         chan struct{}
	resourceType models.ResourceType
	resourceID   string
	interval     time.Duration
	state        State
	mu           sync.Mutex
}

// NewMonitor создает монитор блокировки. onEvict вызывается ровно один раз
// на горутине опроса; из него можно вызывать Release и Stop.
func NewMonitor(locks Holder, resourceType models.ResourceType, resourceID string, interval time.Duration, onEvict func(), logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Monitor{
		locks:        locks,
		resourceType: resourceType,
		resourceID:   resourceID,
		interval:     interval,
		onEvict:      onEvict,
		logger:       logger.With("resource_type", resourceType, "resource_id", resourceID),
	}
}

// Watch начинает опрос. Первая проверка выполняется сразу.
// Отмена ctx останавливает опрос без вытеснения.
func (m *Monitor) Watch(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return ErrMonitorStarted
	}

	pollCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.state = StateWatching

	go m.poll(pollCtx, cancel)
	return nil
}

// State возвращает текущее состояние
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Release останавливает опрос и освобождает блокировку.
// После вытеснения блокировка уже чужая, поэтому освобождать нечего.
func (m *Monitor) Release(ctx context.Context) bool {
	m.mu.Lock()
	switch m.state {
	case StateEvicted, StateReleased:
		m.mu.Unlock()
		return false
	}
	m.state = StateReleased
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	return m.locks.Release(ctx, m.resourceType, m.resourceID)
}

// Stop останавливает опрос, не освобождая блокировку.
// Нужен при завершении процесса, когда аренда истечет сама.
// После вытеснения не ждет горутину опроса: Stop мог быть вызван из onEvict.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done, state := m.cancel, m.done, m.state
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if state != StateEvicted {
		<-done
	}
}

func (m *Monitor) poll(ctx context.Context, cancel context.CancelFunc) {
	done := m.done
	defer close(done)
	defer cancel()

	if m.check(ctx) {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.check(ctx) {
				return
			}
		}
	}
}

// check возвращает true, если опрос нужно прекратить
func (m *Monitor) check(ctx context.Context) bool {
	held, err := m.locks.Held(ctx, m.resourceType, m.resourceID)
	if ctx.Err() != nil {
		return true
	}
	if err == nil && held {
		return false
	}

	if err != nil {
		m.logger.WarnContext(ctx, "Lock check failed, treating lock as lost", "error", err)
	}
	m.evict(ctx)
	return true
}

func (m *Monitor) evict(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateWatching {
		m.mu.Unlock()
		return
	}
	m.state = StateEvicted
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "Lock lost")
	if m.onEvict != nil {
		m.onEvict()
	}
}
