package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	RuntimeHTTP   = "http"
	RuntimeLambda = "lambda"
)

// DefaultAllowedOrigins are the frontends allowed to call the relay when
// ALLOWED_ORIGINS is unset. Wildcard origins are only honoured when listed
// explicitly in ALLOWED_ORIGINS.
var DefaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:5500",
	"http://localhost:5500",
	"https://mohammod2.github.io",
}

// ConfigurationError reports a setting the process cannot start without.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Reason)
}

// Config is read once at startup and never mutated afterwards.
type Config struct {
	// Server
	Port           string
	Runtime        string
	AllowedOrigins []string

	// OpenRouter
	APIKey          string
	APIKeyParam     string
	BaseURL         string
	Model           string
	MaxTokens       int
	Referer         string
	Title           string
	UpstreamTimeout time.Duration

	// Relay
	WorkerPoolSize   int
	MaxMessageLength int

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads the environment, after merging a .env file when one exists.
// The API key may be left empty only when APIKeyParam names an SSM parameter
// to resolve it from.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, which has os.LookupEnv semantics.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key, def string) string {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return def
		}
		return strings.TrimSpace(v)
	}

	cfg := &Config{
		Port:             get("PORT", "8000"),
		Runtime:          strings.ToLower(get("RUNTIME", RuntimeHTTP)),
		AllowedOrigins:   splitList(get("ALLOWED_ORIGINS", "")),
		APIKey:           get("OPENROUTER_API_KEY", ""),
		APIKeyParam:      get("OPENROUTER_API_KEY_PARAM", ""),
		BaseURL:          get("OPENROUTER_BASE_URL", ""),
		Model:            get("OPENROUTER_MODEL", ""),
		Referer:          get("OPENROUTER_REFERER", ""),
		Title:            get("OPENROUTER_TITLE", ""),
		LogLevel:         get("LOG_LEVEL", "info"),
		LogFormat:        strings.ToLower(get("LOG_FORMAT", "json")),
		MaxTokens:        500,
		UpstreamTimeout:  30 * time.Second,
		WorkerPoolSize:   16,
		MaxMessageLength: 4000,
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}

	var errs []error
	intVar := func(key string, dst *int) {
		raw := get(key, "")
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errs = append(errs, &ConfigurationError{Key: key, Reason: fmt.Sprintf("must be a positive integer, got %q", raw)})
			return
		}
		*dst = n
	}
	intVar("OPENROUTER_MAX_TOKENS", &cfg.MaxTokens)
	intVar("WORKER_POOL_SIZE", &cfg.WorkerPoolSize)
	intVar("MAX_MESSAGE_LENGTH", &cfg.MaxMessageLength)

	if raw := get("UPSTREAM_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, &ConfigurationError{Key: "UPSTREAM_TIMEOUT", Reason: fmt.Sprintf("must be a positive duration, got %q", raw)})
		} else {
			cfg.UpstreamTimeout = d
		}
	}

	if p, err := strconv.Atoi(cfg.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, &ConfigurationError{Key: "PORT", Reason: fmt.Sprintf("invalid port %q", cfg.Port)})
	}
	if cfg.Runtime != RuntimeHTTP && cfg.Runtime != RuntimeLambda {
		errs = append(errs, &ConfigurationError{Key: "RUNTIME", Reason: fmt.Sprintf("unknown runtime %q", cfg.Runtime)})
	}
	if cfg.APIKey == "" && cfg.APIKeyParam == "" {
		errs = append(errs, &ConfigurationError{Key: "OPENROUTER_API_KEY", Reason: "environment variable is not set"})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP runtime.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimRight(strings.TrimSpace(part), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}
