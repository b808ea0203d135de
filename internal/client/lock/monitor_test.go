package lock

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shotsync/internal/models"
)

const testInterval = 10 * time.Millisecond

func TestMonitor_EvictsOnLockLoss(t *testing.T) {
	tests := []struct {
		err  error
		name string
	}{
		{name: "lock absent"},
		{name: "query error", err: errors.New("offline")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			holder := &fakeHolder{held: true}
			var evictions atomic.Int32
			m := NewMonitor(holder, models.ResourceBoardEdit, "b1", testInterval, func() {
				evictions.Add(1)
			}, setupTestLogger())

			require.NoError(t, m.Watch(context.Background()))
			assert.Equal(t, StateWatching, m.State())

			holder.set(false, tt.err)

			require.Eventually(t, func() bool {
				return m.State() == StateEvicted
			}, time.Second, testInterval)

			// Колбэк вызывается ровно один раз, даже спустя несколько интервалов
			time.Sleep(5 * testInterval)
			assert.Equal(t, int32(1), evictions.Load())

			// После вытеснения освобождать нечего
			assert.False(t, m.Release(context.Background()))
			_, releases := holder.counts()
			assert.Equal(t, 0, releases)
			m.Stop()
		})
	}
}

func TestMonitor_ImmediateCheck(t *testing.T) {
	holder := &fakeHolder{held: false}
	evicted := make(chan struct{})
	// Интервал намеренно большой: вытеснение должно прийти от первой проверки
	m := NewMonitor(holder, models.ResourceBoardEdit, "b1", time.Hour, func() {
		close(evicted)
	}, setupTestLogger())

	require.NoError(t, m.Watch(context.Background()))

	select {
	case <-evicted:
	case <-time.After(time.Second):
		t.Fatal("eviction was not reported by the initial check")
	}
	m.Stop()
}

func TestMonitor_StopFromEvictCallback(t *testing.T) {
	holder := &fakeHolder{held: false}
	stopped := make(chan struct{})

	var m *Monitor
	m = NewMonitor(holder, models.ResourceBoardEdit, "b1", testInterval, func() {
		m.Stop()
		close(stopped)
	}, setupTestLogger())

	require.NoError(t, m.Watch(context.Background()))

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked inside the eviction callback")
	}
	assert.Equal(t, StateEvicted, m.State())
	m.Stop()
}

func TestMonitor_Release(t *testing.T) {
	holder := &fakeHolder{held: true}
	var evictions atomic.Int32
	m := NewMonitor(holder, models.ResourceBoardEdit, "b1", testInterval, func() {
		evictions.Add(1)
	}, setupTestLogger())

	require.NoError(t, m.Watch(context.Background()))
	require.Eventually(t, func() bool {
		checks, _ := holder.counts()
		return checks >= 2
	}, time.Second, testInterval)

	assert.True(t, m.Release(context.Background()))
	assert.Equal(t, StateReleased, m.State())

	// Опрос остановлен: потеря блокировки больше не сообщается
	holder.set(false, nil)
	checks, releases := holder.counts()
	time.Sleep(5 * testInterval)
	checksAfter, _ := holder.counts()

	assert.Equal(t, checks, checksAfter)
	assert.Equal(t, 1, releases)
	assert.Equal(t, int32(0), evictions.Load())

	// Повторное освобождение ничего не делает
	assert.False(t, m.Release(context.Background()))
}

func TestMonitor_ReleaseFromCallback(t *testing.T) {
	holder := &fakeHolder{held: false}
	var m *Monitor
	released := make(chan bool, 1)
	m = NewMonitor(holder, models.ResourceBoardEdit, "b1", testInterval, func() {
		released <- m.Release(context.Background())
	}, setupTestLogger())

	require.NoError(t, m.Watch(context.Background()))

	select {
	case ok := <-released:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("callback deadlocked")
	}
	m.Stop()
}

func TestMonitor_WatchTwice(t *testing.T) {
	holder := &fakeHolder{held: true}
	m := NewMonitor(holder, models.ResourceBoardEdit, "b1", testInterval, nil, setupTestLogger())

	require.NoError(t, m.Watch(context.Background()))
	assert.ErrorIs(t, m.Watch(context.Background()), ErrMonitorStarted)
	m.Stop()
}

func TestMonitor_ContextCancelStopsWithoutEviction(t *testing.T) {
	holder := &fakeHolder{held: true}
	var evictions atomic.Int32
	m := NewMonitor(holder, models.ResourceBoardEdit, "b1", testInterval, func() {
		evictions.Add(1)
	}, setupTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Watch(ctx))
	cancel()
	m.Stop()

	assert.Equal(t, int32(0), evictions.Load())
	assert.Equal(t, StateWatching, m.State())
}

func TestMonitor_ReleaseBeforeWatch(t *testing.T) {
	holder := &fakeHolder{held: true}
	m := NewMonitor(holder, models.ResourceBoardEdit, "b1", testInterval, nil, setupTestLogger())

	assert.True(t, m.Release(context.Background()))
	assert.Equal(t, StateReleased, m.State())
	assert.ErrorIs(t, m.Watch(context.Background()), ErrMonitorStarted)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "watching", StateWatching.String())
	assert.Equal(t, "evicted", StateEvicted.String())
	assert.Equal(t, "released", StateReleased.String())
}
