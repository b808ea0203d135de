package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults задает значения по умолчанию для всех ключей.
// Каждый ключ должен иметь default, иначе AutomaticEnv не подхватит его при Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.db", "shotsync.db")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("server.token_ttl", 24*time.Hour)
	v.SetDefault("server.janitor_interval", time.Minute)
	v.SetDefault("server.rate_limit.rate", 600)
	v.SetDefault("server.rate_limit.window", time.Minute)

	// Client
	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("client.db", "shotsync-client.db")
	v.SetDefault("client.poll_interval", 2*time.Second)
	v.SetDefault("client.autosave_delay", 300*time.Millisecond)
	v.SetDefault("client.edit_ttl", 300*time.Second)
	v.SetDefault("client.session_ttl", 300*time.Second)
	v.SetDefault("client.reorder_ttl", 30*time.Second)
	v.SetDefault("client.request_timeout", 10*time.Second)

	// Logging
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
