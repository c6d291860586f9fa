package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar names the environment variable pointing at an optional YAML config file.
const PathEnvVar = "FOODGRAM_CONFIG"

const defaultAddr = ":8080"

// Config captures the runtime configuration for the application.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Logging  LoggingConfig  `koanf:"logging"`
	Auth     AuthConfig     `koanf:"auth"`
	Redis    RedisConfig    `koanf:"redis"`
	Media    MediaConfig    `koanf:"media"`
	Shopping ShoppingConfig `koanf:"shopping"`
	API      APIConfig      `koanf:"api"`
}

// ServerConfig configures the HTTP server runtime behavior.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// DatabaseConfig contains the database connection settings.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	UseMock         bool          `koanf:"use_mock"`
}

type LoggingConfig struct {
	Level string `koanf:"level"`
}

type AuthConfig struct {
	Session SessionConfig `koanf:"session"`
}

// SessionConfig controls the lifetime of issued auth tokens.
type SessionConfig struct {
	Lifetime    time.Duration `koanf:"lifetime"`
	IdleTimeout time.Duration `koanf:"idle_timeout"`
}

// RedisConfig enables the redis token store when URL is set.
type RedisConfig struct {
	URL string `koanf:"url"`
}

type MediaConfig struct {
	Root string `koanf:"root"`
	URL  string `koanf:"url"`
}

// ShoppingConfig configures shopping list exports. An empty FontPath selects
// the embedded Go Regular face.
type ShoppingConfig struct {
	FontPath string `koanf:"font_path"`
}

type APIConfig struct {
	PageSize           int           `koanf:"page_size"`
	CORSAllowedOrigins []string      `koanf:"cors_allowed_origins"`
	LoginRateLimit     int           `koanf:"login_rate_limit"`
	LoginRateWindow    time.Duration `koanf:"login_rate_window"`
}

func defaultConfig() *Config {
	return &Config{
		Server:  ServerConfig{},
		Logging: LoggingConfig{Level: "info"},
		Auth: AuthConfig{
			Session: SessionConfig{Lifetime: 24 * time.Hour},
		},
		Media: MediaConfig{Root: "media", URL: "/media/"},
		API: APIConfig{
			PageSize:           6,
			CORSAllowedOrigins: []string{"*"},
			LoginRateLimit:     10,
			LoginRateWindow:    time.Minute,
		},
	}
}

var envKeys = map[string]string{
	"server_addr":                 "server.addr",
	"addr":                        "aliases.addr",
	"database_url":                "database.url",
	"db_url":                      "aliases.db_url",
	"database_max_idle_conns":     "database.max_idle_conns",
	"database_max_open_conns":     "database.max_open_conns",
	"database_conn_max_lifetime":  "database.conn_max_lifetime",
	"database_conn_max_idle_time": "database.conn_max_idle_time",
	"database_use_mock":           "database.use_mock",
	"log_level":                   "logging.level",
	"session_lifetime":            "auth.session.lifetime",
	"session_idle_timeout":        "auth.session.idle_timeout",
	"redis_url":                   "redis.url",
	"media_root":                  "media.root",
	"media_url":                   "media.url",
	"shopping_font_path":          "shopping.font_path",
	"page_size":                   "api.page_size",
	"cors_allowed_origins":        "api.cors_allowed_origins",
	"login_rate_limit":            "api.login_rate_limit",
	"login_rate_window":           "api.login_rate_window",
}

// envTransform maps known variables onto config paths. Unknown and blank
// variables are skipped.
func envTransform(key, value string) (string, any) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return envKeys[strings.ToLower(key)], value
}

// Load layers built-in defaults, the optional YAML file named by
// FOODGRAM_CONFIG and the environment, in that order, into a Config value.
func Load() (Config, error) {
	k := koanf.New(".")
	defaults := defaultConfig()

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := strings.TrimSpace(os.Getenv(PathEnvVar)); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := normalize(k, defaults); err != nil {
		return Config{}, err
	}

	cfg := Config{}
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return Config{}, fmt.Errorf("server address must not be empty")
	}

	return cfg, nil
}

// normalize resolves aliases and replaces malformed scalar values with their
// defaults so a typo in one variable does not prevent startup.
func normalize(k *koanf.Koanf, defaults *Config) error {
	set := func(key string, value any) error {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
		return nil
	}

	addr := firstNonEmpty(k.String("server.addr"), k.String("aliases.addr"), defaultAddr)
	if err := set("server.addr", addr); err != nil {
		return err
	}
	url := firstNonEmpty(k.String("database.url"), k.String("aliases.db_url"), "")
	if err := set("database.url", url); err != nil {
		return err
	}
	k.Delete("aliases")

	ints := map[string]int{
		"database.max_idle_conns": defaults.Database.MaxIdleConns,
		"database.max_open_conns": defaults.Database.MaxOpenConns,
		"api.page_size":           defaults.API.PageSize,
		"api.login_rate_limit":    defaults.API.LoginRateLimit,
	}
	for key, def := range ints {
		if err := set(key, parseIntWithDefault(k.String(key), def)); err != nil {
			return err
		}
	}

	durations := map[string]time.Duration{
		"database.conn_max_lifetime":  defaults.Database.ConnMaxLifetime,
		"database.conn_max_idle_time": defaults.Database.ConnMaxIdleTime,
		"auth.session.lifetime":       defaults.Auth.Session.Lifetime,
		"auth.session.idle_timeout":   defaults.Auth.Session.IdleTimeout,
		"api.login_rate_window":       defaults.API.LoginRateWindow,
	}
	for key, def := range durations {
		if err := set(key, parseDurationWithDefault(k.String(key), def)); err != nil {
			return err
		}
	}

	if err := set("database.use_mock", parseBoolWithDefault(k.String("database.use_mock"), defaults.Database.UseMock)); err != nil {
		return err
	}

	if raw, ok := k.Get("api.cors_allowed_origins").(string); ok {
		origins := splitList(raw)
		if len(origins) == 0 {
			origins = defaults.API.CORSAllowedOrigins
		}
		if err := set("api.cors_allowed_origins", origins); err != nil {
			return err
		}
	}

	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func parseIntWithDefault(value string, def int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}

func parseDurationWithDefault(value string, def time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if nanos, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(nanos)
	}
	return def
}

func parseBoolWithDefault(value string, def bool) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}
