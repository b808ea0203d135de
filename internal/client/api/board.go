package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/iudanet/shotsync/internal/models"
	"github.com/iudanet/shotsync/pkg/api"
)

// ListProjects возвращает все проекты, свежие первыми
func (c *Client) ListProjects(ctx context.Context) ([]*models.Project, error) {
	var resp api.ProjectsResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/projects", nil, &resp); err != nil {
		return nil, fmt.Errorf("list projects request failed: %w", err)
	}
	return resp.Projects, nil
}

// CreateProject создает проект
func (c *Client) CreateProject(ctx context.Context, title, description string) (*models.Project, error) {
	var project models.Project
	req := api.ProjectRequest{Title: title, Description: description}
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/projects", req, &project); err != nil {
		return nil, fmt.Errorf("create project request failed: %w", err)
	}
	return &project, nil
}

// GetProject получает проект по ID
func (c *Client) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	var project models.Project
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/projects/"+url.PathEscape(projectID), nil, &project); err != nil {
		return nil, fmt.Errorf("get project request failed: %w", err)
	}
	return &project, nil
}

// UpdateProject обновляет заголовок и описание проекта
func (c *Client) UpdateProject(ctx context.Context, projectID, title, description string) (*models.Project, error) {
	var project models.Project
	req := api.ProjectRequest{Title: title, Description: description}
	if err := c.doRequest(ctx, http.MethodPut, "/api/v1/projects/"+url.PathEscape(projectID), req, &project); err != nil {
		return nil, fmt.Errorf("update project request failed: %w", err)
	}
	return &project, nil
}

// DeleteProject удаляет проект. Возвращает *DeleteRefusal, если в нем работают другие клиенты.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/api/v1/projects/"+url.PathEscape(projectID), nil, nil); err != nil {
		return fmt.Errorf("delete project request failed: %w", err)
	}
	return nil
}

// ListBoards возвращает борды проекта, упорядоченные по shot
func (c *Client) ListBoards(ctx context.Context, projectID string) ([]*models.Board, error) {
	var resp api.BoardsResponse
	path := "/api/v1/projects/" + url.PathEscape(projectID) + "/boards"
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list boards request failed: %w", err)
	}
	return resp.Boards, nil
}

// CreateBoard создает борд в проекте
func (c *Client) CreateBoard(ctx context.Context, projectID string, board *models.Board) (*models.Board, error) {
	var created models.Board
	path := "/api/v1/projects/" + url.PathEscape(projectID) + "/boards"
	if err := c.doRequest(ctx, http.MethodPost, path, api.NewBoardRequest(board), &created); err != nil {
		return nil, fmt.Errorf("create board request failed: %w", err)
	}
	return &created, nil
}

// GetBoard получает борд по ID
func (c *Client) GetBoard(ctx context.Context, boardID string) (*models.Board, error) {
	var board models.Board
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/boards/"+url.PathEscape(boardID), nil, &board); err != nil {
		return nil, fmt.Errorf("get board request failed: %w", err)
	}
	return &board, nil
}

// UpdateBoard записывает борд целиком
func (c *Client) UpdateBoard(ctx context.Context, board *models.Board) (*models.Board, error) {
	var updated models.Board
	path := "/api/v1/boards/" + url.PathEscape(board.ID)
	if err := c.doRequest(ctx, http.MethodPut, path, api.NewBoardRequest(board), &updated); err != nil {
		return nil, fmt.Errorf("update board request failed: %w", err)
	}
	return &updated, nil
}

// SetBoardShot записывает только номер шота
func (c *Client) SetBoardShot(ctx context.Context, boardID string, shot int) error {
	path := "/api/v1/boards/" + url.PathEscape(boardID) + "/shot"
	if err := c.doRequest(ctx, http.MethodPatch, path, api.ShotRequest{Shot: shot}, nil); err != nil {
		return fmt.Errorf("set board shot request failed: %w", err)
	}
	return nil
}

// DeleteBoard удаляет борд. Возвращает *DeleteRefusal, если его редактирует другой клиент.
func (c *Client) DeleteBoard(ctx context.Context, boardID string) error {
	if err := c.doRequest(ctx, http.MethodDelete, "/api/v1/boards/"+url.PathEscape(boardID), nil, nil); err != nil {
		return fmt.Errorf("delete board request failed: %w", err)
	}
	return nil
}
