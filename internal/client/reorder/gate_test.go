package reorder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shotsync/internal/models"
)

// fakeLocker одна эксклюзивная блокировка на ресурс, общая для всех клиентов теста
type fakeLocker struct {
	holders  map[string]string
	events   *[]string
	holder   string
	mu       *sync.Mutex
	lastTTL  time.Duration
	released int
}

func newLockers(holders ...string) []*fakeLocker {
	shared := map[string]string{}
	events := &[]string{}
	mu := &sync.Mutex{}
	lockers := make([]*fakeLocker, 0, len(holders))
	for _, h := range holders {
		lockers = append(lockers, &fakeLocker{holders: shared, events: events, holder: h, mu: mu})
	}
	return lockers
}

func (f *fakeLocker) Acquire(ctx context.Context, rt models.ResourceType, id string, ttl time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTTL = ttl
	key := string(rt) + "/" + id
	if h, ok := f.holders[key]; ok && h != f.holder {
		return false
	}
	f.holders[key] = f.holder
	*f.events = append(*f.events, f.holder+":acquire")
	return true
}

func (f *fakeLocker) Release(ctx context.Context, rt models.ResourceType, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := string(rt) + "/" + id
	if f.holders[key] == f.holder {
		delete(f.holders, key)
	}
	f.released++
	*f.events = append(*f.events, f.holder+":release")
	return true
}

type fakeRenumberer struct {
	err     error
	before  func()
	ordered []string
}

func (f *fakeRenumberer) Renumber(ctx context.Context, ordered []string) error {
	if f.before != nil {
		f.before()
	}
	f.ordered = ordered
	return f.err
}

type fakeState struct {
	reloadErr     error
	authoritative []string
	current       []string
	reloads       int
}

func (f *fakeState) Apply(order []string) {
	f.current = order
}

func (f *fakeState) Reload(ctx context.Context) error {
	f.reloads++
	if f.reloadErr != nil {
		return f.reloadErr
	}
	f.current = f.authoritative
	return nil
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGate_Reorder(t *testing.T) {
	lockers := newLockers("alice")
	seq := &fakeRenumberer{}
	state := &fakeState{current: []string{"A", "B", "C"}}
	g := NewGate(lockers[0], seq, state, 0, nil, setupTestLogger())

	require.NoError(t, g.Reorder(context.Background(), "p1", []string{"C", "A", "B"}))

	assert.Equal(t, []string{"C", "A", "B"}, state.current)
	assert.Equal(t, []string{"C", "A", "B"}, seq.ordered)
	assert.Equal(t, models.DefaultReorderTTL, lockers[0].lastTTL)
	assert.Equal(t, []string{"alice:acquire", "alice:release"}, *lockers[0].events)
	assert.Zero(t, state.reloads)
}

func TestGate_ReleasesAfterRenumberFailure(t *testing.T) {
	lockers := newLockers("alice")
	seq := &fakeRenumberer{err: errors.New("write failed")}
	g := NewGate(lockers[0], seq, &fakeState{}, time.Second, nil, setupTestLogger())

	err := g.Reorder(context.Background(), "p1", []string{"B", "A"})
	require.Error(t, err)
	assert.ErrorIs(t, err, seq.err)
	assert.Equal(t, 1, lockers[0].released)
}

func TestGate_ConcurrentReorder(t *testing.T) {
	lockers := newLockers("alice", "bob")
	aliceState := &fakeState{current: []string{"A", "B", "C"}}
	bobState := &fakeState{current: []string{"A", "B", "C"}, authoritative: []string{"C", "B", "A"}}

	var messages []string
	bob := NewGate(lockers[1], &fakeRenumberer{}, bobState, 0, func(msg string) {
		messages = append(messages, msg)
	}, setupTestLogger())

	// Пока alice перенумеровывает, bob пытается переставить тот же проект
	var bobErr error
	aliceSeq := &fakeRenumberer{before: func() {
		bobErr = bob.Reorder(context.Background(), "p1", []string{"B", "A", "C"})
	}}
	alice := NewGate(lockers[0], aliceSeq, aliceState, 0, nil, setupTestLogger())

	require.NoError(t, alice.Reorder(context.Background(), "p1", []string{"C", "B", "A"}))

	assert.ErrorIs(t, bobErr, ErrReorderBusy)
	// Оптимистичный порядок bob заменен авторитетным
	assert.Equal(t, []string{"C", "B", "A"}, bobState.current)
	assert.Equal(t, 1, bobState.reloads)
	assert.Equal(t, []string{BusyMessage}, messages)
	// bob не освобождает чужую блокировку
	assert.Zero(t, lockers[1].released)
	assert.Equal(t, []string{"alice:acquire", "alice:release"}, *lockers[0].events)
}

func TestGate_BusyReloadFailure(t *testing.T) {
	lockers := newLockers("alice", "bob")
	require.True(t, lockers[0].Acquire(context.Background(), models.ResourceProjectReorder, "p1", time.Second))

	state := &fakeState{reloadErr: errors.New("offline")}
	g := NewGate(lockers[1], &fakeRenumberer{}, state, 0, nil, setupTestLogger())

	err := g.Reorder(context.Background(), "p1", []string{"A"})
	assert.ErrorIs(t, err, ErrReorderBusy)
	assert.ErrorIs(t, err, state.reloadErr)
}

func TestGate_ReleaseSurvivesCancellation(t *testing.T) {
	lockers := newLockers("alice")
	ctx, cancel := context.WithCancel(context.Background())
	seq := &fakeRenumberer{before: cancel}
	g := NewGate(lockers[0], seq, &fakeState{}, 0, nil, setupTestLogger())

	require.NoError(t, g.Reorder(ctx, "p1", []string{"A"}))
	assert.Equal(t, 1, lockers[0].released)
}
