package models

import "time"

// EventKind тип изменения в хранилище
type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// EntityKind тип измененной сущности
type EntityKind string

const (
	EntityBoard   EntityKind = "board"
	EntityProject EntityKind = "project"
)

// ChangeEvent описывает зафиксированное изменение борда или проекта.
// Используется только для обновления read-only представлений,
// но не для обнаружения потери блокировки.
type ChangeEvent struct {
	Timestamp time.Time  `json:"timestamp"`
	Kind      EventKind  `json:"kind"`
	Entity    EntityKind `json:"entity"`
	ProjectID string     `json:"project_id"`
	ID        string     `json:"id"`
}
