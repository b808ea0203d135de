// Package servertest запускает полный сервер в памяти для интеграционных тестов клиента.
package servertest

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/shotsync/internal/server"
	"github.com/iudanet/shotsync/internal/server/feed"
	"github.com/iudanet/shotsync/internal/server/jwt"
	"github.com/iudanet/shotsync/internal/server/metrics"
	"github.com/iudanet/shotsync/internal/server/storage/sqlite"
)

// Start поднимает сервер на SQLite в памяти и возвращает его базовый URL.
// Сервер останавливается в t.Cleanup.
func Start(t testing.TB) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	require.NoError(t, err)

	hub := feed.NewHub(logger, m)
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()

	srv := httptest.NewServer(server.NewRouter(server.Deps{
		Logger:   logger,
		Storage:  store,
		Tokens:   jwt.NewService("servertest-secret", time.Hour),
		Hub:      hub,
		Metrics:  m,
		Gatherer: registry,
		Version:  "test",
	}))

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
		_ = store.Close()
	})
	return srv.URL
}
