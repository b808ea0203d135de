package api

import "time"

// LockRequest представляет запрос на захват или продление блокировки.
// Держатель берется из токена, а не из тела запроса.
type LockRequest struct {
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	TTLSeconds   int64  `json:"ttl_seconds,omitempty"`
}

// LockResponse результат acquire/refresh
type LockResponse struct {
	Acquired bool `json:"acquired"`
}

// LockStatus ответ на запрос состояния блокировки текущего клиента
type LockStatus struct {
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Present   bool      `json:"present"`
}
