package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/shotsync/internal/models"
	"github.com/iudanet/shotsync/internal/server/storage"
	"github.com/iudanet/shotsync/pkg/api"
)

// Publisher рассылает события об изменениях (реализуется feed.Hub)
type Publisher interface {
	Publish(event models.ChangeEvent)
}

// Recorder принимает метрики операций (реализуется metrics.Metrics)
type Recorder interface {
	RecordLockOperation(operation, resourceType, result string)
	RecordDeleteRefusal(resource string)
}

// sendJSON отправляет JSON ответ
func sendJSON(logger *slog.Logger, w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// sendError отправляет JSON ответ с ошибкой
func sendError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	sendJSON(logger, w, resp, statusCode)
}

// sendRefusal отправляет 409 с причиной отказа удаления без изменений
func sendRefusal(logger *slog.Logger, w http.ResponseWriter, refused *storage.DeleteRefusedError) {
	resp := api.ErrorResponse{
		Error:         http.StatusText(http.StatusConflict),
		Message:       refused.Reason,
		BlockingCount: refused.BlockingCount,
	}
	sendJSON(logger, w, resp, http.StatusConflict)
}

// requireHolder извлекает держателя или отвечает 401
func requireHolder(logger *slog.Logger, w http.ResponseWriter, r *http.Request) (string, bool) {
	holder, ok := GetHolder(r.Context())
	if !ok {
		logger.ErrorContext(r.Context(), "holder not found in context")
		sendError(logger, w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return holder, true
}
