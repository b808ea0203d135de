package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/iudanet/shotsync/internal/models"
)

// Subscribe подписывается на ленту изменений проекта и вызывает handle для каждого события.
// Блокирует до отмены ctx или закрытия соединения сервером.
// Лента служит только для обновления списка бордов, не для обнаружения потери блокировки.
func (c *Client) Subscribe(ctx context.Context, projectID string, handle func(models.ChangeEvent)) error {
	wsURL, err := c.feedURL(projectID)
	if err != nil {
		return err
	}

	header := http.Header{}
	if token := c.currentToken(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return fmt.Errorf("feed dial failed: %w", &StatusError{StatusCode: resp.StatusCode, Message: resp.Status})
		}
		return fmt.Errorf("feed dial failed: %w", err)
	}

	// Закрываем соединение при отмене контекста, чтобы прервать ReadJSON
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	})
	defer func() {
		stop()
		_ = conn.Close()
	}()

	for {
		var event models.ChangeEvent
		if err := conn.ReadJSON(&event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && (closeErr.Code == websocket.CloseNormalClosure || closeErr.Code == websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("feed read failed: %w", err)
		}
		handle(event)
	}
}

func (c *Client) feedURL(projectID string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/v1/projects/" + url.PathEscape(projectID) + "/feed"

	return u.String(), nil
}
