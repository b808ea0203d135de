// Package config loads server and client configuration.
// Sources in order of precedence: environment (SHOTSYNC_*), config file, defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "SHOTSYNC"

// Config содержит все параметры приложения
type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Client ClientConfig `mapstructure:"client"`
	Log    LogConfig    `mapstructure:"log"`
}

// ServerConfig параметры сервера блокировок
type ServerConfig struct {
	Addr            string          `mapstructure:"addr"`
	DB              string          `mapstructure:"db"`
	JWTSecret       string          `mapstructure:"jwt_secret"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
	TokenTTL        time.Duration   `mapstructure:"token_ttl"`
	JanitorInterval time.Duration   `mapstructure:"janitor_interval"`
}

// RateLimitConfig ограничение частоты запросов с одного адреса
type RateLimitConfig struct {
	Rate   int           `mapstructure:"rate"`
	Window time.Duration `mapstructure:"window"`
}

// ClientConfig параметры клиента
type ClientConfig struct {
	ServerURL string `mapstructure:"server_url"`
	DB        string `mapstructure:"db"`

	// PollInterval период проверки блокировки монитором.
	// Потеря блокировки обнаруживается не позже чем через PollInterval плюс время одного запроса.
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	AutosaveDelay  time.Duration `mapstructure:"autosave_delay"`
	EditTTL        time.Duration `mapstructure:"edit_ttl"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	ReorderTTL     time.Duration `mapstructure:"reorder_ttl"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// LogConfig параметры логирования
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug|info|warn|error
	Format string `mapstructure:"format"` // text|json
}

// New создает viper с значениями по умолчанию и привязкой к окружению
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load читает конфигурацию. configFile может быть пустым.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}

// ValidateServer проверяет серверную часть конфигурации
func (c *Config) ValidateServer() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.DB == "" {
		errs = append(errs, errors.New("server.db is required"))
	}
	if c.Server.JWTSecret == "" {
		errs = append(errs, errors.New("server.jwt_secret is required"))
	}
	errs = append(errs,
		positive("server.token_ttl", c.Server.TokenTTL),
		positive("server.janitor_interval", c.Server.JanitorInterval),
		positive("server.rate_limit.window", c.Server.RateLimit.Window),
	)
	if c.Server.RateLimit.Rate <= 0 {
		errs = append(errs, errors.New("server.rate_limit.rate must be positive"))
	}
	errs = append(errs, c.Log.validate())

	return errors.Join(errs...)
}

// ValidateClient проверяет клиентскую часть конфигурации
func (c *Config) ValidateClient() error {
	var errs []error

	if c.Client.ServerURL == "" {
		errs = append(errs, errors.New("client.server_url is required"))
	}
	if c.Client.DB == "" {
		errs = append(errs, errors.New("client.db is required"))
	}
	errs = append(errs,
		positive("client.poll_interval", c.Client.PollInterval),
		positive("client.autosave_delay", c.Client.AutosaveDelay),
		positive("client.edit_ttl", c.Client.EditTTL),
		positive("client.session_ttl", c.Client.SessionTTL),
		positive("client.reorder_ttl", c.Client.ReorderTTL),
		positive("client.request_timeout", c.Client.RequestTimeout),
	)
	// Монитор должен успеть заметить потерю аренды до ее истечения у продлевающего клиента
	if c.Client.PollInterval >= c.Client.EditTTL && c.Client.EditTTL > 0 {
		errs = append(errs, errors.New("client.poll_interval must be shorter than client.edit_ttl"))
	}
	errs = append(errs, c.Log.validate())

	return errors.Join(errs...)
}

func (l LogConfig) validate() error {
	var errs []error
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug|info|warn|error", l.Level))
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text|json", l.Format))
	}
	return errors.Join(errs...)
}

// NewLogger создает slog.Logger по настройкам log.*
func (l LogConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(l.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func positive(key string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive", key)
	}
	return nil
}
