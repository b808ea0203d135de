package handlers

import (
	"context"
)

// contextKey тип для ключей контекста
type contextKey string

// HolderKey ключ для хранения идентификатора держателя блокировок в контексте
const HolderKey contextKey = "holder"

// WithHolder возвращает контекст с идентификатором держателя (устанавливается AuthMiddleware)
func WithHolder(ctx context.Context, holder string) context.Context {
	return context.WithValue(ctx, HolderKey, holder)
}

// GetHolder извлекает идентификатор держателя из контекста запроса
func GetHolder(ctx context.Context) (string, bool) {
	holder, ok := ctx.Value(HolderKey).(string)
	return holder, ok && holder != ""
}
