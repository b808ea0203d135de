package api

import "github.com/iudanet/shotsync/internal/models"

// BoardRequest тело запроса на создание или полное обновление борда.
// Запись передается целиком, чтобы частичные записи не теряли поля.
type BoardRequest struct {
	Duration       *float64 `json:"duration,omitempty"`
	LensFocalMM    *int     `json:"lens_focal_mm,omitempty"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Transition     string   `json:"transition"`
	AspectRatio    string   `json:"aspect_ratio"`
	CameraAngle    string   `json:"camera_angle"`
	CameraMovement string   `json:"camera_movement"`
	ImageURL       string   `json:"image_url,omitempty"`
	Shot           int      `json:"shot"`
}

// ShotRequest тело запроса на изменение только номера шота
type ShotRequest struct {
	Shot int `json:"shot"`
}

// ProjectRequest тело запроса на создание или обновление проекта
type ProjectRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// BoardsResponse список бордов проекта, упорядоченный по shot
type BoardsResponse struct {
	Boards []*models.Board `json:"boards"`
}

// ProjectsResponse список проектов, свежие первыми
type ProjectsResponse struct {
	Projects []*models.Project `json:"projects"`
}

// ToBoard конвертирует запрос в модель
func (r *BoardRequest) ToBoard() *models.Board {
	return &models.Board{
		Duration:       r.Duration,
		LensFocalMM:    r.LensFocalMM,
		Title:          r.Title,
		Description:    r.Description,
		Transition:     r.Transition,
		AspectRatio:    r.AspectRatio,
		CameraAngle:    r.CameraAngle,
		CameraMovement: r.CameraMovement,
		ImageURL:       r.ImageURL,
		Shot:           r.Shot,
	}
}

// NewBoardRequest строит запрос из модели
func NewBoardRequest(b *models.Board) BoardRequest {
	return BoardRequest{
		Duration:       b.Duration,
		LensFocalMM:    b.LensFocalMM,
		Title:          b.Title,
		Description:    b.Description,
		Transition:     b.Transition,
		AspectRatio:    b.AspectRatio,
		CameraAngle:    b.CameraAngle,
		CameraMovement: b.CameraMovement,
		ImageURL:       b.ImageURL,
		Shot:           b.Shot,
	}
}
