package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/shotsync/internal/models"
	"github.com/iudanet/shotsync/internal/server/storage"
	"github.com/iudanet/shotsync/internal/validation"
	"github.com/iudanet/shotsync/pkg/api"
)

// maxLockTTL верхняя граница аренды, запрошенной клиентом
const maxLockTTL = time.Hour

// LockHandler обрабатывает acquire/refresh/release/query.
// Держатель всегда берется из токена.
type LockHandler struct {
	logger   *slog.Logger
	storage  storage.LockStorage
	recorder Recorder
}

// NewLockHandler создает новый handler блокировок. recorder может быть nil.
func NewLockHandler(logger *slog.Logger, lockStorage storage.LockStorage, recorder Recorder) *LockHandler {
	return &LockHandler{
		logger:   logger,
		storage:  lockStorage,
		recorder: recorder,
	}
}

// Acquire обрабатывает POST /api/v1/locks/acquire
func (h *LockHandler) Acquire(w http.ResponseWriter, r *http.Request) {
	h.handleLease(w, r, "acquire")
}

// Refresh обрабатывает POST /api/v1/locks/refresh
func (h *LockHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.handleLease(w, r, "refresh")
}

func (h *LockHandler) handleLease(w http.ResponseWriter, r *http.Request, operation string) {
	ctx := r.Context()

	holder, ok := requireHolder(h.logger, w, r)
	if !ok {
		return
	}

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	ttl, err := leaseTTL(req)
	if err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	resourceType := models.ResourceType(req.ResourceType)

	var granted bool
	if operation == "acquire" {
		granted, err = h.storage.AcquireLock(ctx, resourceType, req.ResourceID, holder, ttl)
	} else {
		granted, err = h.storage.RefreshLock(ctx, resourceType, req.ResourceID, holder, ttl)
	}
	if err != nil {
		h.record(operation, req.ResourceType, "error")
		h.logger.ErrorContext(ctx, "lock operation failed",
			slog.String("operation", operation),
			slog.String("resource_type", req.ResourceType),
			slog.String("resource_id", req.ResourceID),
			slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	result := "granted"
	if !granted {
		result = "denied"
	}
	h.record(operation, req.ResourceType, result)

	h.logger.DebugContext(ctx, "lock operation",
		slog.String("operation", operation),
		slog.String("resource_type", req.ResourceType),
		slog.String("resource_id", req.ResourceID),
		slog.String("holder", holder),
		slog.Bool("granted", granted))

	sendJSON(h.logger, w, api.LockResponse{Acquired: granted}, http.StatusOK)
}

// Release обрабатывает POST /api/v1/locks/release
// Повторное освобождение и освобождение чужой блокировки не ошибка: строка просто не найдется
func (h *LockHandler) Release(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	holder, ok := requireHolder(h.logger, w, r)
	if !ok {
		return
	}

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	if err := h.storage.ReleaseLock(ctx, models.ResourceType(req.ResourceType), req.ResourceID, holder); err != nil {
		h.record("release", req.ResourceType, "error")
		h.logger.ErrorContext(ctx, "failed to release lock",
			slog.String("resource_type", req.ResourceType),
			slog.String("resource_id", req.ResourceID),
			slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.record("release", req.ResourceType, "granted")
	w.WriteHeader(http.StatusNoContent)
}

// Query обрабатывает GET /api/v1/locks?resource_type=&resource_id=
// Возвращает живую строку вызывающего клиента
func (h *LockHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	holder, ok := requireHolder(h.logger, w, r)
	if !ok {
		return
	}

	resourceType := r.URL.Query().Get("resource_type")
	resourceID := r.URL.Query().Get("resource_id")

	if err := validation.ValidateResourceType(resourceType); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}
	if resourceID == "" {
		sendError(h.logger, w, "resource_id is required", http.StatusBadRequest)
		return
	}

	lock, err := h.storage.QueryLock(ctx, models.ResourceType(resourceType), resourceID, holder)
	if err != nil {
		if errors.Is(err, storage.ErrLockNotFound) {
			sendJSON(h.logger, w, api.LockStatus{Present: false}, http.StatusOK)
			return
		}
		h.record("query", resourceType, "error")
		h.logger.ErrorContext(ctx, "failed to query lock", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, api.LockStatus{Present: true, ExpiresAt: lock.ExpiresAt}, http.StatusOK)
}

func (h *LockHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (api.LockRequest, bool) {
	var req api.LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to decode lock request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return req, false
	}

	if err := validation.ValidateResourceType(req.ResourceType); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return req, false
	}
	if req.ResourceID == "" {
		sendError(h.logger, w, "resource_id is required", http.StatusBadRequest)
		return req, false
	}

	return req, true
}

func (h *LockHandler) record(operation, resourceType, result string) {
	if h.recorder == nil {
		return
	}
	h.recorder.RecordLockOperation(operation, resourceType, result)
}

// leaseTTL переводит ttl_seconds в длительность; 0 означает TTL по умолчанию для типа
func leaseTTL(req api.LockRequest) (time.Duration, error) {
	if req.TTLSeconds < 0 {
		return 0, errors.New("ttl_seconds cannot be negative")
	}
	if req.TTLSeconds == 0 {
		return models.ResourceType(req.ResourceType).DefaultTTL(), nil
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl > maxLockTTL {
		return 0, errors.New("ttl_seconds exceeds maximum lease")
	}
	return ttl, nil
}
