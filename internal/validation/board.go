package validation

import (
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iudanet/shotsync/internal/models"
)

const (
	// MaxTitleLen максимальная длина заголовка борда или проекта (в символах)
	MaxTitleLen = 200
	// MaxDescriptionLen максимальная длина описания
	MaxDescriptionLen = 10000
)

// ValidateClientID проверяет, что идентификатор клиента является UUID
func ValidateClientID(clientID string) error {
	if clientID == "" {
		return fmt.Errorf("client_id cannot be empty")
	}
	if _, err := uuid.Parse(clientID); err != nil {
		return fmt.Errorf("client_id must be a UUID")
	}
	return nil
}

// ValidateResourceType проверяет класс блокировки
func ValidateResourceType(resourceType string) error {
	if !models.ResourceType(resourceType).Valid() {
		return fmt.Errorf("unknown resource_type %q", resourceType)
	}
	return nil
}

// ValidateProject проверяет заголовок и описание проекта
func ValidateProject(title, description string) error {
	if title == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleLen {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLen)
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLen {
		return fmt.Errorf("description must not exceed %d characters", MaxDescriptionLen)
	}
	return nil
}

// ValidateBoard проверяет поля борда перед записью
func ValidateBoard(b *models.Board) error {
	if b.Shot < 1 {
		return fmt.Errorf("shot must be a positive number")
	}
	if utf8.RuneCountInString(b.Title) > MaxTitleLen {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLen)
	}
	if utf8.RuneCountInString(b.Description) > MaxDescriptionLen {
		return fmt.Errorf("description must not exceed %d characters", MaxDescriptionLen)
	}
	if b.Duration != nil && *b.Duration < 0 {
		return fmt.Errorf("duration cannot be negative")
	}
	if b.LensFocalMM != nil && *b.LensFocalMM <= 0 {
		return fmt.Errorf("lens focal length must be positive")
	}
	return nil
}
