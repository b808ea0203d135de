package storage

import (
	"context"
	"time"
)

// IdentityStorage хранит идентификатор устройства и последний токен держателя.
// Идентификатор генерируется один раз и больше не меняется.
type IdentityStorage interface {
	// SaveIdentity stores identity data as-is
	SaveIdentity(ctx context.Context, identity *IdentityData) error

	// GetIdentity returns ErrIdentityNotFound if no identity was saved yet
	GetIdentity(ctx context.Context) (*IdentityData, error)
}

// StateStorage хранит локальное состояние CLI между запусками
type StateStorage interface {
	// SetCurrentProject запоминает выбранный проект
	SetCurrentProject(ctx context.Context, projectID string) error

	// GetCurrentProject returns ErrNoCurrentProject if nothing was selected
	GetCurrentProject(ctx context.Context) (string, error)
}

// IdentityData represents the client identity in storage
type IdentityData struct {
	ClientID    string `json:"client_id"`
	AccessToken string `json:"access_token,omitempty"`
	ExpiresAt   int64  `json:"expires_at,omitempty"` // unix seconds
}

// TokenValid сообщает, можно ли использовать сохраненный токен в момент now.
// Токен с запасом margin до истечения считается устаревшим.
func (d *IdentityData) TokenValid(now time.Time, margin time.Duration) bool {
	if d.AccessToken == "" {
		return false
	}
	return now.Add(margin).Before(time.Unix(d.ExpiresAt, 0))
}
