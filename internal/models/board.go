package models

import "time"

// Board представляет один шот внутри проекта.
// Shot уникален среди активных бордов проекта и задает их порядок.
type Board struct {
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Duration       *float64  `json:"duration,omitempty"`      // длительность в секундах
	LensFocalMM    *int      `json:"lens_focal_mm,omitempty"` // фокусное расстояние объектива, мм
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Transition     string    `json:"transition"`
	AspectRatio    string    `json:"aspect_ratio"`
	CameraAngle    string    `json:"camera_angle"`
	CameraMovement string    `json:"camera_movement"`
	ImageURL       string    `json:"image_url,omitempty"`
	Shot           int       `json:"shot"`
}

// Clone возвращает глубокую копию борда
func (b *Board) Clone() *Board {
	c := *b
	if b.Duration != nil {
		d := *b.Duration
		c.Duration = &d
	}
	if b.LensFocalMM != nil {
		l := *b.LensFocalMM
		c.LensFocalMM = &l
	}
	return &c
}

// Project владеет набором бордов
type Project struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}
