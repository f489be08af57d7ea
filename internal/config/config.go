// Package config loads gateway configuration into an explicitly
// constructed value. There is no process-global cached instance: Load is
// called once in main and the result is passed down.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all gateway settings.
type Config struct {
	Port           int
	CORSOrigins    []string
	RateLimitRPS   int
	RequestTimeout time.Duration

	UpstreamBaseURL string
	UpstreamTimeout time.Duration

	LogLevel string
	Debug    bool
}

// Load reads gateway.yaml (from ./configs or the working directory) and
// the environment, then returns a fully defaulted Config. A missing config
// file is not an error; a malformed one is.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("gateway")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath(".")
	v.SetEnvPrefix("mcpgw")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("upstream.base_url", "")
	v.SetDefault("upstream.timeout", "15s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.debug", false)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		Port:            v.GetInt("server.port"),
		CORSOrigins:     v.GetStringSlice("server.cors_origins"),
		RateLimitRPS:    v.GetInt("server.rate_limit_rps"),
		RequestTimeout:  v.GetDuration("server.request_timeout"),
		UpstreamBaseURL: v.GetString("upstream.base_url"),
		UpstreamTimeout: v.GetDuration("upstream.timeout"),
		LogLevel:        v.GetString("log.level"),
		Debug:           v.GetBool("log.debug"),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid server.port %d", cfg.Port)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = 15 * time.Second
	}
	return cfg, nil
}

// AllowAllOrigins reports whether the CORS origin list contains "*".
func (c Config) AllowAllOrigins() bool {
	for _, o := range c.CORSOrigins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}
