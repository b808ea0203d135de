package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound ресурс не найден на сервере (404)
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized токен держателя отсутствует или недействителен (401)
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusError ответ сервера с неуспешным статусом
type StatusError struct {
	Message    string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

// Is позволяет сравнивать с ErrNotFound и ErrUnauthorized через errors.Is
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// DeleteRefusal сервер отказался удалять ресурс, пока с ним работают другие клиенты
type DeleteRefusal struct {
	Message       string
	BlockingCount int
}

func (e *DeleteRefusal) Error() string {
	return e.Message
}
