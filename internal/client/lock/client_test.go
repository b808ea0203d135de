package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shotsync/internal/models"
)

func TestClient_Acquire(t *testing.T) {
	tests := []struct {
		err      error
		name     string
		acquired bool
		want     bool
	}{
		{name: "acquired", acquired: true, want: true},
		{name: "contention", acquired: false, want: false},
		{name: "transport error fails closed", acquired: true, err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockLockAPI{acquired: tt.acquired, err: tt.err}
			c := NewClient(mock, "client-1", setupTestLogger())

			got := c.Acquire(context.Background(), models.ResourceBoardEdit, "b1", time.Minute)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_DefaultTTL(t *testing.T) {
	tests := []struct {
		resourceType models.ResourceType
		want         time.Duration
	}{
		{resourceType: models.ResourceBoardEdit, want: 300 * time.Second},
		{resourceType: models.ResourceProjectSession, want: 300 * time.Second},
		{resourceType: models.ResourceProjectReorder, want: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(string(tt.resourceType), func(t *testing.T) {
			mock := &mockLockAPI{acquired: true}
			c := NewClient(mock, "client-1", setupTestLogger())

			require.True(t, c.Acquire(context.Background(), tt.resourceType, "r1", 0))
			assert.Equal(t, tt.want, mock.lastTTL)
		})
	}
}

func TestClient_Refresh(t *testing.T) {
	mock := &mockLockAPI{acquired: false}
	c := NewClient(mock, "client-1", setupTestLogger())
	assert.False(t, c.Refresh(context.Background(), models.ResourceProjectSession, "p1", time.Minute))

	mock.err = errors.New("timeout")
	mock.acquired = true
	assert.False(t, c.Refresh(context.Background(), models.ResourceProjectSession, "p1", time.Minute))
}

func TestClient_Release(t *testing.T) {
	mock := &mockLockAPI{}
	c := NewClient(mock, "client-1", setupTestLogger())

	assert.True(t, c.Release(context.Background(), models.ResourceBoardEdit, "b1"))
	assert.True(t, c.Release(context.Background(), models.ResourceBoardEdit, "b1"))
	assert.Equal(t, 2, mock.releaseCalls)

	// Ошибка не возвращается, а сообщается как false
	mock.err = errors.New("offline")
	assert.False(t, c.Release(context.Background(), models.ResourceBoardEdit, "b1"))
}

func TestClient_Held(t *testing.T) {
	mock := &mockLockAPI{present: true}
	c := NewClient(mock, "client-1", setupTestLogger())

	held, err := c.Held(context.Background(), models.ResourceBoardEdit, "b1")
	require.NoError(t, err)
	assert.True(t, held)

	mock.err = errors.New("offline")
	_, err = c.Held(context.Background(), models.ResourceBoardEdit, "b1")
	assert.Error(t, err)
}
