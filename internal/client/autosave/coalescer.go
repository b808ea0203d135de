// Package autosave объединяет частые правки записи в одну отложенную запись на сервер.
package autosave

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"time"
)

// DefaultDelay пауза после последней правки перед записью
const DefaultDelay = 300 * time.Millisecond

// ErrClosed Set или Flush после Close
var ErrClosed = errors.New("coalescer is closed")

// Record сырые значения полей в том виде, в каком их ввел пользователь
type Record map[string]string

// PersistFunc записывает запись целиком
type PersistFunc func(ctx context.Context, rec Record) error

// Coalescer копит правки одной записи и сохраняет их после паузы.
// Таймер срабатывает на своей горутине, поэтому состояние защищено мьютексом,
// а записи на сервер выполняются строго по одной.
type Coalescer struct {
	ctx       context.Context
	persist   PersistFunc
	onChange  func(field, value string)
	logger    *slog.Logger
	timer     *time.Timer
	latest    Record
	delay     time.Duration
	gen       uint64
	persistMu sync.Mutex
	mu        sync.Mutex
	dirty     bool
	closed    bool
}

// New создает Coalescer. ctx ограничивает фоновые записи по таймеру.
// onChange вызывается после каждой правки и может быть nil.
func New(ctx context.Context, delay time.Duration, persist PersistFunc, onChange func(field, value string), logger *slog.Logger) *Coalescer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Coalescer{
		ctx:      ctx,
		delay:    delay,
		persist:  persist,
		onChange: onChange,
		logger:   logger,
		latest:   Record{},
	}
}

// Set запоминает значение поля и перезапускает таймер паузы
func (c *Coalescer) Set(field, value string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	c.latest[field] = value
	c.dirty = true
	c.gen++
	gen := c.gen
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, func() {
		c.fire(gen)
	})
	c.mu.Unlock()

	if c.onChange != nil {
		c.onChange(field, value)
	}
	return nil
}

// Snapshot возвращает копию текущего буфера
func (c *Coalescer) Snapshot() Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.latest)
}

// Dirty сообщает, есть ли несохраненные правки
func (c *Coalescer) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Flush отменяет таймер и синхронно сохраняет несохраненные правки
func (c *Coalescer) Flush(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.stopTimerLocked()
	rec, ok := c.takeLocked()
	c.mu.Unlock()

	if !ok {
		return nil
	}
	return c.write(ctx, rec)
}

// Discard отменяет таймер и выбрасывает несохраненные правки
func (c *Coalescer) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTimerLocked()
	c.latest = Record{}
	c.dirty = false
}

// Close останавливает таймер. Несохраненные правки теряются, поэтому
// перед Close вызывают Flush. Ждет завершения начатой записи.
func (c *Coalescer) Close() {
	// Дожидаемся записи, начатой таймером до Close
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopTimerLocked()
}

func (c *Coalescer) fire(gen uint64) {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	// Устаревший таймер: после него была правка, Flush или Discard
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	rec, ok := c.takeLocked()
	c.mu.Unlock()

	if !ok {
		return
	}
	if err := c.write(c.ctx, rec); err != nil {
		c.logger.ErrorContext(c.ctx, "Autosave failed", "error", err)
	}
}

// write сохраняет снимок; при ошибке правки снова помечаются несохраненными
func (c *Coalescer) write(ctx context.Context, rec Record) error {
	if err := c.persist(ctx, rec); err != nil {
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Coalescer) takeLocked() (Record, bool) {
	if !c.dirty {
		return nil, false
	}
	c.dirty = false
	return maps.Clone(c.latest), true
}

func (c *Coalescer) stopTimerLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
