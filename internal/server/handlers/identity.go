package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/shotsync/internal/validation"
	"github.com/iudanet/shotsync/pkg/api"
)

// TokenIssuer выпускает токен держателя (реализуется jwt.Service)
type TokenIssuer interface {
	GenerateToken(holder string) (string, int64, error)
}

// IdentityHandler регистрирует идентификаторы клиентов
type IdentityHandler struct {
	logger *slog.Logger
	tokens TokenIssuer
}

// NewIdentityHandler создает новый handler регистрации клиентов
func NewIdentityHandler(logger *slog.Logger, tokens TokenIssuer) *IdentityHandler {
	return &IdentityHandler{
		logger: logger,
		tokens: tokens,
	}
}

// Register обрабатывает POST /api/v1/clients
// Клиент присылает свой UUID и получает токен, subject которого равен этому UUID
func (h *IdentityHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode register request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateClientID(req.ClientID); err != nil {
		h.logger.WarnContext(ctx, "invalid client id", slog.String("client_id", req.ClientID), slog.Any("error", err))
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	token, expiresIn, err := h.tokens.GenerateToken(req.ClientID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate token", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "client registered", slog.String("client_id", req.ClientID))

	sendJSON(h.logger, w, api.TokenResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
	}, http.StatusOK)
}
