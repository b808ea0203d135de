// Package server assembles the HTTP API of the lock server
package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iudanet/shotsync/internal/server/feed"
	"github.com/iudanet/shotsync/internal/server/handlers"
	"github.com/iudanet/shotsync/internal/server/jwt"
	"github.com/iudanet/shotsync/internal/server/metrics"
	"github.com/iudanet/shotsync/internal/server/middleware"
	"github.com/iudanet/shotsync/internal/server/storage/sqlite"
)

// Deps зависимости роутера
type Deps struct {
	Logger   *slog.Logger
	Storage  *sqlite.Storage
	Tokens   *jwt.Service
	Hub      *feed.Hub
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Limiter  *middleware.RateLimiter
	Version  string
}

// leasePaths маршруты опроса и продления аренд держателем.
// Они не ограничиваются по IP: за одним NAT может работать много редакторов.
var leasePaths = []string{
	"/api/v1/locks",
	"/api/v1/locks/refresh",
	"/api/v1/locks/release",
}

// NewRouter регистрирует все маршруты /api/v1
func NewRouter(d Deps) http.Handler {
	identity := handlers.NewIdentityHandler(d.Logger, d.Tokens)
	locks := handlers.NewLockHandler(d.Logger, d.Storage, d.Metrics)
	boards := handlers.NewBoardHandler(d.Logger, d.Storage, d.Storage, d.Hub, d.Metrics)
	projects := handlers.NewProjectHandler(d.Logger, d.Storage, d.Hub, d.Metrics)
	feedHandler := handlers.NewFeedHandler(d.Logger, d.Hub, d.Storage)
	health := handlers.NewHealthHandler(d.Logger, d.Storage, d.Version)

	auth := middleware.AuthMiddleware(d.Logger, d.Tokens)
	protected := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}

	mux := http.NewServeMux()

	// Публичные маршруты
	mux.HandleFunc("POST /api/v1/clients", identity.Register)
	mux.HandleFunc("GET /api/v1/health", health.Health)
	if d.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// Блокировки
	mux.Handle("POST /api/v1/locks/acquire", protected(locks.Acquire))
	mux.Handle("POST /api/v1/locks/refresh", protected(locks.Refresh))
	mux.Handle("POST /api/v1/locks/release", protected(locks.Release))
	mux.Handle("GET /api/v1/locks", protected(locks.Query))

	// Проекты
	mux.Handle("GET /api/v1/projects", protected(projects.List))
	mux.Handle("POST /api/v1/projects", protected(projects.Create))
	mux.Handle("GET /api/v1/projects/{id}", protected(projects.Get))
	mux.Handle("PUT /api/v1/projects/{id}", protected(projects.Update))
	mux.Handle("DELETE /api/v1/projects/{id}", protected(projects.Delete))
	mux.Handle("GET /api/v1/projects/{id}/boards", protected(boards.List))
	mux.Handle("POST /api/v1/projects/{id}/boards", protected(boards.Create))
	mux.Handle("GET /api/v1/projects/{id}/feed", protected(feedHandler.Subscribe))

	// Борды
	mux.Handle("GET /api/v1/boards/{id}", protected(boards.Get))
	mux.Handle("PUT /api/v1/boards/{id}", protected(boards.Update))
	mux.Handle("PATCH /api/v1/boards/{id}/shot", protected(boards.SetShot))
	mux.Handle("DELETE /api/v1/boards/{id}", protected(boards.Delete))

	var handler http.Handler = mux
	if d.Limiter != nil {
		handler = middleware.RateLimitWithSkip(d.Limiter, leasePaths)(handler)
	}
	handler = middleware.LoggingWithSkip(d.Logger, d.Metrics, []string{"/api/v1/health", "/metrics"})(handler)
	handler = middleware.RecoveryMiddleware(d.Logger)(handler)

	return handler
}
