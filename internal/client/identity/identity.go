// Package identity выдает клиенту постоянный идентификатор устройства
// и токен держателя блокировок, полученный на сервере.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/shotsync/internal/client/storage"
	"github.com/iudanet/shotsync/pkg/api"
)

// ErrNotInitialized идентификатор запрошен до Init или после Close
var ErrNotInitialized = errors.New("identity is not initialized")

// tokenMargin токен, истекающий раньше чем через tokenMargin, обновляется заранее
const tokenMargin = time.Minute

// Registrar регистрирует идентификатор на сервере
type Registrar interface {
	RegisterClient(ctx context.Context, clientID string) (*api.TokenResponse, error)
}

// Provider хранит идентичность клиента.
// ID и Token действительны только между Init и Close.
type Provider struct {
	store     storage.IdentityStorage
	registrar Registrar
	logger    *slog.Logger
	now       func() time.Time
	identity  *storage.IdentityData
	mu        sync.RWMutex
}

// New создает провайдер идентичности
func New(store storage.IdentityStorage, registrar Registrar, logger *slog.Logger) *Provider {
	return &Provider{
		store:     store,
		registrar: registrar,
		logger:    logger,
		now:       time.Now,
	}
}

// Init загружает идентификатор устройства или генерирует новый,
// затем получает токен держателя, если сохраненный устарел.
func (p *Provider) Init(ctx context.Context) error {
	identity, err := p.store.GetIdentity(ctx)
	switch {
	case errors.Is(err, storage.ErrIdentityNotFound):
		identity = &storage.IdentityData{ClientID: uuid.New().String()}
		if err := p.store.SaveIdentity(ctx, identity); err != nil {
			return fmt.Errorf("failed to persist identity: %w", err)
		}
		p.logger.InfoContext(ctx, "Generated new client identity", "client_id", identity.ClientID)
	case err != nil:
		return fmt.Errorf("failed to load identity: %w", err)
	}

	p.mu.Lock()
	p.identity = identity
	p.mu.Unlock()

	if identity.TokenValid(p.now(), tokenMargin) {
		return nil
	}

	if _, err := p.Renew(ctx); err != nil {
		return err
	}
	return nil
}

// Renew заново регистрирует идентификатор и сохраняет новый токен.
// Сигнатура совпадает с api.ReauthFunc.
func (p *Provider) Renew(ctx context.Context) (string, error) {
	p.mu.RLock()
	if p.identity == nil {
		p.mu.RUnlock()
		return "", ErrNotInitialized
	}
	clientID := p.identity.ClientID
	p.mu.RUnlock()

	resp, err := p.registrar.RegisterClient(ctx, clientID)
	if err != nil {
		return "", fmt.Errorf("failed to register identity: %w", err)
	}

	updated := &storage.IdentityData{
		ClientID:    clientID,
		AccessToken: resp.AccessToken,
		ExpiresAt:   p.now().Add(time.Duration(resp.ExpiresIn) * time.Second).Unix(),
	}
	if err := p.store.SaveIdentity(ctx, updated); err != nil {
		// Токен все равно пригоден до конца процесса
		p.logger.WarnContext(ctx, "Failed to persist holder token", "error", err)
	}

	p.mu.Lock()
	p.identity = updated
	p.mu.Unlock()

	p.logger.DebugContext(ctx, "Holder token issued", "client_id", clientID, "expires_in", resp.ExpiresIn)
	return resp.AccessToken, nil
}

// ID возвращает идентификатор клиента или пустую строку до Init
func (p *Provider) ID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.identity == nil {
		return ""
	}
	return p.identity.ClientID
}

// Token возвращает текущий токен держателя
func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.identity == nil {
		return ""
	}
	return p.identity.AccessToken
}

// Close забывает идентичность в памяти; сохраненный идентификатор остается
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identity = nil
	return nil
}
