package api

// RegisterClientRequest представляет запрос на регистрацию идентификатора клиента
type RegisterClientRequest struct {
	ClientID string `json:"client_id"` // UUID, сгенерированный и сохраненный на устройстве
}

// TokenResponse представляет ответ с токеном держателя блокировок
type TokenResponse struct {
	AccessToken string `json:"access_token"` // JWT, subject = client_id
	ExpiresIn   int64  `json:"expires_in"`   // время жизни токена в секундах
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error         string `json:"error"`                    // описание ошибки
	Message       string `json:"message,omitempty"`        // дополнительное сообщение
	BlockingCount int    `json:"blocking_count,omitempty"` // число блокировок, мешающих удалению
}
