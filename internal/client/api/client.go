package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/iudanet/shotsync/pkg/api"
)

// ReauthFunc получает новый токен держателя, когда сервер отверг текущий
type ReauthFunc func(ctx context.Context) (string, error)

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	reauth     ReauthFunc
	baseURL    string
	token      string
	mu         sync.RWMutex
}

// NewClient создает новый API клиент
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// SetToken устанавливает токен держателя для последующих запросов
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// SetReauth устанавливает функцию повторной регистрации при 401
func (c *Client) SetReauth(fn ReauthFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reauth = fn
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// RegisterClient регистрирует идентификатор устройства и возвращает токен держателя
func (c *Client) RegisterClient(ctx context.Context, clientID string) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	err := c.send(ctx, http.MethodPost, "/api/v1/clients", api.RegisterClientRequest{ClientID: clientID}, &resp)
	if err != nil {
		return nil, fmt.Errorf("register client request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос; при 401 один раз обновляет токен и повторяет
func (c *Client) doRequest(ctx context.Context, method, path string, body, result interface{}) error {
	err := c.send(ctx, method, path, body, result)
	if err == nil || !errors.Is(err, ErrUnauthorized) {
		return err
	}

	c.mu.RLock()
	reauth := c.reauth
	c.mu.RUnlock()
	if reauth == nil {
		return err
	}

	token, rerr := reauth(ctx)
	if rerr != nil {
		return errors.Join(err, fmt.Errorf("reauth failed: %w", rerr))
	}
	c.SetToken(token)

	return c.send(ctx, method, path, body, result)
}

// send выполняет один HTTP запрос
func (c *Client) send(ctx context.Context, method, path string, body, result interface{}) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(method, resp.StatusCode, respBody)
	}

	// Декодируем успешный ответ
	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func decodeError(method string, statusCode int, body []byte) error {
	var errResp api.ErrorResponse
	message := string(bytes.TrimSpace(body))
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		message = errResp.Message
	}

	// Отказ safe-delete: причина показывается пользователю без изменений
	if statusCode == http.StatusConflict && method == http.MethodDelete {
		return &DeleteRefusal{
			Message:       message,
			BlockingCount: errResp.BlockingCount,
		}
	}

	return &StatusError{StatusCode: statusCode, Message: message}
}
