package models

import "time"

// ResourceType определяет класс блокировки
type ResourceType string

const (
	ResourceBoardEdit      ResourceType = "board_edit"      // эксклюзивное редактирование борда
	ResourceProjectEdit    ResourceType = "project_edit"    // эксклюзивное редактирование title/description проекта
	ResourceProjectSession ResourceType = "project_session" // разделяемая: присутствие пользователя в проекте
	ResourceProjectReorder ResourceType = "project_reorder" // эксклюзивная: перенумерация шотов проекта
)

// Valid проверяет, что тип блокировки известен
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceBoardEdit, ResourceProjectEdit, ResourceProjectSession, ResourceProjectReorder:
		return true
	}
	return false
}

// Exclusive сообщает, может ли у ресурса быть только один держатель.
// project_session разделяемая: одна строка на каждого держателя.
func (t ResourceType) Exclusive() bool {
	return t != ResourceProjectSession
}

// Lock представляет аренду (lease) ресурса с ограниченным сроком жизни
type Lock struct {
	ExpiresAt    time.Time    `json:"expires_at"`    // абсолютное время истечения аренды
	ResourceType ResourceType `json:"resource_type"` // класс блокировки
	ResourceID   string       `json:"resource_id"`   // ID проекта или борда
	Holder       string       `json:"holder"`        // идентификатор клиента-держателя
}

// Exclusive сообщает, эксклюзивна ли блокировка
func (l *Lock) Exclusive() bool {
	return l.ResourceType.Exclusive()
}

// ExpiredAt сообщает, истекла ли аренда к моменту now.
// Истекшая блокировка считается отсутствующей.
func (l *Lock) ExpiredAt(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// Аренда по умолчанию для каждого класса блокировки
const (
	DefaultEditTTL    = 300 * time.Second
	DefaultSessionTTL = 300 * time.Second
	DefaultReorderTTL = 30 * time.Second
)

// DefaultTTL возвращает аренду по умолчанию для типа
func (t ResourceType) DefaultTTL() time.Duration {
	switch t {
	case ResourceProjectReorder:
		return DefaultReorderTTL
	case ResourceProjectSession:
		return DefaultSessionTTL
	default:
		return DefaultEditTTL
	}
}
