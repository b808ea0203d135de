package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shotsync/internal/models"
	"github.com/iudanet/shotsync/pkg/api"
)

func newLockRequest(t *testing.T, method, target, holder string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if holder != "" {
		req = req.WithContext(WithHolder(req.Context(), holder))
	}
	return req
}

func TestLockHandler_Acquire(t *testing.T) {
	tests := []struct {
		body       interface{}
		name       string
		holder     string
		wantStatus int
		wantAcq    bool
	}{
		{
			name:       "granted",
			holder:     "client-a",
			body:       api.LockRequest{ResourceType: "board_edit", ResourceID: "board-1", TTLSeconds: 300},
			wantStatus: http.StatusOK,
			wantAcq:    true,
		},
		{
			name:       "denied on contention",
			holder:     "busy",
			body:       api.LockRequest{ResourceType: "board_edit", ResourceID: "board-1", TTLSeconds: 300},
			wantStatus: http.StatusOK,
			wantAcq:    false,
		},
		{
			name:       "unknown resource type",
			holder:     "client-a",
			body:       api.LockRequest{ResourceType: "board", ResourceID: "board-1"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing resource id",
			holder:     "client-a",
			body:       api.LockRequest{ResourceType: "board_edit"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative ttl",
			holder:     "client-a",
			body:       api.LockRequest{ResourceType: "board_edit", ResourceID: "board-1", TTLSeconds: -1},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "ttl above maximum",
			holder:     "client-a",
			body:       api.LockRequest{ResourceType: "board_edit", ResourceID: "board-1", TTLSeconds: 7200},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no holder in context",
			body:       api.LockRequest{ResourceType: "board_edit", ResourceID: "board-1"},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locks := newMockLockStorage()
			locks.denyHolder = "busy"
			handler := NewLockHandler(setupTestLogger(), locks, nil)

			w := httptest.NewRecorder()
			handler.Acquire(w, newLockRequest(t, http.MethodPost, "/api/v1/locks/acquire", tt.holder, tt.body))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp api.LockResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.wantAcq, resp.Acquired)
		})
	}
}

func TestLockHandler_Acquire_DefaultTTL(t *testing.T) {
	locks := newMockLockStorage()
	recorder := &mockRecorder{}
	handler := NewLockHandler(setupTestLogger(), locks, recorder)

	w := httptest.NewRecorder()
	handler.Acquire(w, newLockRequest(t, http.MethodPost, "/api/v1/locks/acquire", "client-a",
		api.LockRequest{ResourceType: "project_reorder", ResourceID: "project-1"}))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 30*time.Second, locks.lastTTL)
	assert.Equal(t, []string{"acquire:project_reorder:granted"}, recorder.lockOps)
}

func TestLockHandler_Acquire_StorageError(t *testing.T) {
	locks := newMockLockStorage()
	locks.err = errStorage
	recorder := &mockRecorder{}
	handler := NewLockHandler(setupTestLogger(), locks, recorder)

	w := httptest.NewRecorder()
	handler.Acquire(w, newLockRequest(t, http.MethodPost, "/api/v1/locks/acquire", "client-a",
		api.LockRequest{ResourceType: "board_edit", ResourceID: "board-1"}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, []string{"acquire:board_edit:error"}, recorder.lockOps)
}

func TestLockHandler_RefreshUsesTokenHolder(t *testing.T) {
	locks := newMockLockStorage()
	handler := NewLockHandler(setupTestLogger(), locks, nil)
	body := api.LockRequest{ResourceType: "board_edit", ResourceID: "board-1", TTLSeconds: 60}

	w := httptest.NewRecorder()
	handler.Acquire(w, newLockRequest(t, http.MethodPost, "/api/v1/locks/acquire", "client-a", body))
	require.Equal(t, http.StatusOK, w.Code)

	// client-b не владеет строкой client-a
	w = httptest.NewRecorder()
	handler.Refresh(w, newLockRequest(t, http.MethodPost, "/api/v1/locks/refresh", "client-b", body))
	require.Equal(t, http.StatusOK, w.Code)
	var resp api.LockResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Acquired)

	w = httptest.NewRecorder()
	handler.Refresh(w, newLockRequest(t, http.MethodPost, "/api/v1/locks/refresh", "client-a", body))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Acquired)
}

func TestLockHandler_ReleaseOnlyOwnLock(t *testing.T) {
	locks := newMockLockStorage()
	handler := NewLockHandler(setupTestLogger(), locks, nil)
	body := api.LockRequest{ResourceType: "project_edit", ResourceID: "project-1"}

	w := httptest.NewRecorder()
	handler.Acquire(w, newLockRequest(t, http.MethodPost, "/api/v1/locks/acquire", "client-a", body))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.Release(w, newLockRequest(t, http.MethodPost, "/api/v1/locks/release", "client-b", body))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, locks.has(models.ResourceProjectEdit, "project-1", "client-a"))

	w = httptest.NewRecorder()
	handler.Release(w, newLockRequest(t, http.MethodPost, "/api/v1/locks/release", "client-a", body))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, locks.has(models.ResourceProjectEdit, "project-1", "client-a"))

	// идемпотентно
	w = httptest.NewRecorder()
	handler.Release(w, newLockRequest(t, http.MethodPost, "/api/v1/locks/release", "client-a", body))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestLockHandler_Query(t *testing.T) {
	locks := newMockLockStorage()
	handler := NewLockHandler(setupTestLogger(), locks, nil)

	w := httptest.NewRecorder()
	handler.Acquire(w, newLockRequest(t, http.MethodPost, "/api/v1/locks/acquire", "client-a",
		api.LockRequest{ResourceType: "board_edit", ResourceID: "board-1", TTLSeconds: 60}))
	require.Equal(t, http.StatusOK, w.Code)

	tests := []struct {
		name        string
		holder      string
		query       string
		wantStatus  int
		wantPresent bool
	}{
		{name: "holder sees own lock", holder: "client-a", query: "?resource_type=board_edit&resource_id=board-1", wantStatus: http.StatusOK, wantPresent: true},
		{name: "other client sees nothing", holder: "client-b", query: "?resource_type=board_edit&resource_id=board-1", wantStatus: http.StatusOK, wantPresent: false},
		{name: "bad type", holder: "client-a", query: "?resource_type=x&resource_id=board-1", wantStatus: http.StatusBadRequest},
		{name: "missing id", holder: "client-a", query: "?resource_type=board_edit", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.Query(w, newLockRequest(t, http.MethodGet, "/api/v1/locks"+tt.query, tt.holder, nil))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var status api.LockStatus
			require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
			assert.Equal(t, tt.wantPresent, status.Present)
			if tt.wantPresent {
				assert.True(t, status.ExpiresAt.After(time.Now()))
			}
		})
	}
}

func TestLockHandler_InvalidJSON(t *testing.T) {
	handler := NewLockHandler(setupTestLogger(), newMockLockStorage(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/locks/acquire", bytes.NewReader([]byte("invalid json")))
	req = req.WithContext(WithHolder(req.Context(), "client-a"))
	w := httptest.NewRecorder()
	handler.Acquire(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
