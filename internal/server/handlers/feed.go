package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/iudanet/shotsync/internal/server/storage"
)

// FeedServer подключает websocket-подписчика (реализуется feed.Hub)
type FeedServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, projectID string)
}

// FeedHandler обрабатывает подписку на изменения проекта
type FeedHandler struct {
	logger   *slog.Logger
	hub      FeedServer
	projects storage.ProjectStorage
}

// NewFeedHandler создает handler ленты изменений
func NewFeedHandler(logger *slog.Logger, hub FeedServer, projects storage.ProjectStorage) *FeedHandler {
	return &FeedHandler{
		logger:   logger,
		hub:      hub,
		projects: projects,
	}
}

// Subscribe обрабатывает GET /api/v1/projects/{id}/feed (websocket upgrade)
func (h *FeedHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")

	if _, err := h.projects.GetProject(r.Context(), projectID); err != nil {
		if errors.Is(err, storage.ErrProjectNotFound) {
			sendError(h.logger, w, "project not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to get project", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.hub.ServeWS(w, r, projectID)
}
