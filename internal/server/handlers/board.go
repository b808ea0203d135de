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

// BoardHandler обрабатывает запросы к бордам
type BoardHandler struct {
	logger    *slog.Logger
	boards    storage.BoardStorage
	projects  storage.ProjectStorage
	publisher Publisher
	recorder  Recorder
}

// NewBoardHandler создает новый handler бордов. publisher и recorder могут быть nil.
func NewBoardHandler(logger *slog.Logger, boards storage.BoardStorage, projects storage.ProjectStorage, publisher Publisher, recorder Recorder) *BoardHandler {
	return &BoardHandler{
		logger:    logger,
		boards:    boards,
		projects:  projects,
		publisher: publisher,
		recorder:  recorder,
	}
}

// List обрабатывает GET /api/v1/projects/{id}/boards
func (h *BoardHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := r.PathValue("id")

	if !h.projectExists(w, r, projectID) {
		return
	}

	boards, err := h.boards.ListBoards(ctx, projectID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list boards", slog.String("project_id", projectID), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, api.BoardsResponse{Boards: boards}, http.StatusOK)
}

// Create обрабатывает POST /api/v1/projects/{id}/boards
// Сдвиг конфликтующих шотов выполняет клиент до вызова
func (h *BoardHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := r.PathValue("id")

	var req api.BoardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode board request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	board := req.ToBoard()
	board.ID = uuid.New().String()
	board.ProjectID = projectID

	if err := validation.ValidateBoard(board); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	if !h.projectExists(w, r, projectID) {
		return
	}

	if err := h.boards.CreateBoard(ctx, board); err != nil {
		h.logger.ErrorContext(ctx, "failed to create board", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "board created",
		slog.String("project_id", projectID),
		slog.String("board_id", board.ID),
		slog.Int("shot", board.Shot))

	h.publish(models.EventInsert, board.ProjectID, board.ID)
	sendJSON(h.logger, w, board, http.StatusCreated)
}

// Get обрабатывает GET /api/v1/boards/{id}
func (h *BoardHandler) Get(w http.ResponseWriter, r *http.Request) {
	board, ok := h.loadBoard(w, r)
	if !ok {
		return
	}
	sendJSON(h.logger, w, board, http.StatusOK)
}

// Update обрабатывает PUT /api/v1/boards/{id}
// Запись целиком: автосохранение всегда отправляет весь буфер
func (h *BoardHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.BoardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode board request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	existing, ok := h.loadBoard(w, r)
	if !ok {
		return
	}

	board := req.ToBoard()
	board.ID = existing.ID
	board.ProjectID = existing.ProjectID
	board.CreatedAt = existing.CreatedAt

	if err := validation.ValidateBoard(board); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.boards.UpdateBoard(ctx, board); err != nil {
		if errors.Is(err, storage.ErrBoardNotFound) {
			sendError(h.logger, w, "board not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to update board", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.publish(models.EventUpdate, board.ProjectID, board.ID)
	sendJSON(h.logger, w, board, http.StatusOK)
}

// SetShot обрабатывает PATCH /api/v1/boards/{id}/shot
// Используется сдвигом конфликтов и перенумерацией
func (h *BoardHandler) SetShot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.ShotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode shot request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Shot < 1 {
		sendError(h.logger, w, "shot must be a positive number", http.StatusBadRequest)
		return
	}

	board, ok := h.loadBoard(w, r)
	if !ok {
		return
	}

	if err := h.boards.SetBoardShot(ctx, board.ID, req.Shot); err != nil {
		if errors.Is(err, storage.ErrBoardNotFound) {
			sendError(h.logger, w, "board not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(ctx, "failed to set board shot", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.publish(models.EventUpdate, board.ProjectID, board.ID)
	w.WriteHeader(http.StatusNoContent)
}

// Delete обрабатывает DELETE /api/v1/boards/{id}
// Удаление отклоняется (409), если борд редактирует или проект перенумеровывает другой клиент
func (h *BoardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	boardID := r.PathValue("id")

	holder, ok := requireHolder(h.logger, w, r)
	if !ok {
		return
	}

	board, err := h.boards.SafeDeleteBoard(ctx, boardID, holder)
	if err != nil {
		var refused *storage.DeleteRefusedError
		switch {
		case errors.As(err, &refused):
			h.logger.InfoContext(ctx, "board delete refused",
				slog.String("board_id", boardID),
				slog.Int("blocking", refused.BlockingCount))
			if h.recorder != nil {
				h.recorder.RecordDeleteRefusal(refused.Resource)
			}
			sendRefusal(h.logger, w, refused)
		case errors.Is(err, storage.ErrBoardNotFound):
			sendError(h.logger, w, "board not found", http.StatusNotFound)
		default:
			h.logger.ErrorContext(ctx, "failed to delete board", slog.Any("error", err))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.logger.InfoContext(ctx, "board deleted", slog.String("board_id", boardID), slog.String("holder", holder))
	h.publish(models.EventDelete, board.ProjectID, board.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *BoardHandler) loadBoard(w http.ResponseWriter, r *http.Request) (*models.Board, bool) {
	ctx := r.Context()
	boardID := r.PathValue("id")

	board, err := h.boards.GetBoard(ctx, boardID)
	if err != nil {
		if errors.Is(err, storage.ErrBoardNotFound) {
			sendError(h.logger, w, "board not found", http.StatusNotFound)
			return nil, false
		}
		h.logger.ErrorContext(ctx, "failed to get board", slog.String("board_id", boardID), slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return board, true
}

func (h *BoardHandler) projectExists(w http.ResponseWriter, r *http.Request, projectID string) bool {
	if _, err := h.projects.GetProject(r.Context(), projectID); err != nil {
		if errors.Is(err, storage.ErrProjectNotFound) {
			sendError(h.logger, w, "project not found", http.StatusNotFound)
			return false
		}
		h.logger.ErrorContext(r.Context(), "failed to get project", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return false
	}
	return true
}

func (h *BoardHandler) publish(kind models.EventKind, projectID, boardID string) {
	if h.publisher == nil {
		return
	}
	h.publisher.Publish(models.ChangeEvent{
		Timestamp: time.Now(),
		Kind:      kind,
		Entity:    models.EntityBoard,
		ProjectID: projectID,
		ID:        boardID,
	})
}
