package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/shotsync/internal/models"
	"github.com/iudanet/shotsync/internal/server/storage"
	"github.com/iudanet/shotsync/internal/validation"
	"github.com/iudanet/shotsync/pkg/api"
)

// ProjectHandler обрабатывает запросы к проектам
type ProjectHandler struct {
	logger    *slog.Logger
	projects  storage.ProjectStorage
	publisher Publisher
	recorder  Recorder
}

// NewProjectHandler создает новый handler проектов. publisher и recorder могут быть nil.
func NewProjectHandler(logger *slog.Logger, projects storage.ProjectStorage, publisher Publisher, recorder Recorder) *ProjectHandler {
	return &ProjectHandler{
		logger:    logger,
		projects:  projects,
		publisher: publisher,
		recorder:  recorder,
	}
}

// List обрабатывает GET /api/v1/projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projects, err := h.projects.ListProjects(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list projects", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, api.ProjectsResponse{Projects: projects}, http.StatusOK)
}

// Create обрабатывает POST /api/v1/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	project := &models.Project{
		ID:          uuid.New().String(),
		Title:       req.Title,
		Description: req.Description,
	}

	if err := h.projects.CreateProject(ctx, project); err != nil {
		h.logger.ErrorContext(ctx, "failed to create project", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "project created", slog.String("project_id", project.ID))
	h.publish(models.EventInsert, project.ID)
	sendJSON(h.logger, w, project, http.StatusCreated)
}

// Get обрабатывает GET /api/v1/projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := r.PathValue("id")

	project, err := h.projects.GetProject(ctx, projectID)
	if err != nil {
		h.sendStorageError(w, r, err)
		return
	}

	sendJSON(h.logger, w, project, http.StatusOK)
}

// Update обрабатывает PUT /api/v1/projects/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := r.PathValue("id")

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	existing, err := h.projects.GetProject(ctx, projectID)
	if err != nil {
		h.sendStorageError(w, r, err)
		return
	}

	existing.Title = req.Title
	existing.Description = req.Description

	if err := h.projects.UpdateProject(ctx, existing); err != nil {
		h.sendStorageError(w, r, err)
		return
	}

	h.publish(models.EventUpdate, existing.ID)
	sendJSON(h.logger, w, existing, http.StatusOK)
}

// Delete обрабатывает DELETE /api/v1/projects/{id}
// Удаление отклоняется (409), пока в проекте работают другие клиенты
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := r.PathValue("id")

	holder, ok := requireHolder(h.logger, w, r)
	if !ok {
		return
	}

	if err := h.projects.SafeDeleteProject(ctx, projectID, holder); err != nil {
		var refused *storage.DeleteRefusedError
		if errors.As(err, &refused) {
			h.logger.InfoContext(ctx, "project delete refused",
				slog.String("project_id", projectID),
				slog.Int("blocking", refused.BlockingCount))
			if h.recorder != nil {
				h.recorder.RecordDeleteRefusal(refused.Resource)
			}
			sendRefusal(h.logger, w, refused)
			return
		}
		h.sendStorageError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "project deleted", slog.String("project_id", projectID), slog.String("holder", holder))
	h.publish(models.EventDelete, projectID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (api.ProjectRequest, bool) {
	var req api.ProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to decode project request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return req, false
	}
	if err := validation.ValidateProject(req.Title, req.Description); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (h *ProjectHandler) sendStorageError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrProjectNotFound) {
		sendError(h.logger, w, "project not found", http.StatusNotFound)
		return
	}
	h.logger.ErrorContext(r.Context(), "project storage error", slog.Any("error", err))
	sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
}

func (h *ProjectHandler) publish(kind models.EventKind, projectID string) {
	if h.publisher == nil {
		return
	}
	h.publisher.Publish(models.ChangeEvent{
		Timestamp: time.Now(),
		Kind:      kind,
		Entity:    models.EntityProject,
		ProjectID: projectID,
		ID:        projectID,
	})
}
