// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gridbase/internal/ddl"
)

// AuthConfig holds bearer-token authentication settings. With neither an
// issuer nor a secret configured, authentication is disabled.
type AuthConfig struct {
	IssuerURL string // OIDC issuer URL; tokens are verified against its JWKS
	JWTSecret string // HS256 shared secret for local/dev tokens
	Audience  string // required aud claim (optional for HS256)
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool { return a.IssuerURL != "" }

// Enabled returns true when requests must carry a bearer token.
func (a *AuthConfig) Enabled() bool { return a.IssuerURL != "" || a.JWTSecret != "" }

// GridConfig tunes the grid query engine.
type GridConfig struct {
	DefaultLimit int  // page size when none is requested (default 100)
	MaxLimit     int  // upper bound on requested page sizes (default 1000)
	StrictFields bool // reject unknown fields instead of dropping them
}

// Config holds the configuration of the grid server and CLI.
type Config struct {
	Dialect     ddl.Dialect // DB_DRIVER: sqlite (default) or postgres
	MetaDBPath  string      // SQLite database file
	DatabaseURL string      // Postgres connection string
	ListenAddr  string      // HTTP listen address (default ":8080")
	TLSCertFile string
	TLSKeyFile  string
	LogLevel    string // debug, info, warn, error (default "info")
	LogFormat   string // text or json (default json in production)
	Env         string // "development" (default) or "production"

	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	CORSAllowedOrigins []string // default ["*"]

	Auth AuthConfig
	Grid GridConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// DSN returns the connection string for the configured dialect.
func (c *Config) DSN() string {
	if c.Dialect == ddl.Postgres {
		return c.DatabaseURL
	}
	return c.MetaDBPath
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		MetaDBPath:  os.Getenv("META_DB_PATH"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ListenAddr:  os.Getenv("LISTEN_ADDR"),
		TLSCertFile: os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:  os.Getenv("TLS_KEY_FILE"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		LogFormat:   strings.ToLower(os.Getenv("LOG_FORMAT")),
		Env:         os.Getenv("ENV"),
		Auth: AuthConfig{
			IssuerURL: os.Getenv("AUTH_ISSUER_URL"),
			JWTSecret: os.Getenv("JWT_SECRET"),
			Audience:  os.Getenv("AUTH_AUDIENCE"),
		},
	}

	dialect, err := ddl.ParseDialect(os.Getenv("DB_DRIVER"))
	if err != nil {
		return nil, fmt.Errorf("DB_DRIVER: %w", err)
	}
	cfg.Dialect = dialect

	if cfg.RateLimitRPS, err = floatEnv("RATE_LIMIT_RPS", 100); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = intEnv("RATE_LIMIT_BURST", 200); err != nil {
		return nil, err
	}
	if cfg.Grid.DefaultLimit, err = intEnv("GRID_DEFAULT_LIMIT", 100); err != nil {
		return nil, err
	}
	if cfg.Grid.MaxLimit, err = intEnv("GRID_MAX_LIMIT", 1000); err != nil {
		return nil, err
	}
	cfg.Grid.StrictFields = parseBoolEnvDefault("GRID_STRICT_FIELDS", false)

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORSAllowedOrigins = splitList(v)
	}

	// Defaults
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = "gridbase.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
		if cfg.IsProduction() {
			cfg.LogFormat = "json"
		}
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if !cfg.Auth.Enabled() {
		cfg.Warnings = append(cfg.Warnings, "authentication is disabled: set AUTH_ISSUER_URL or JWT_SECRET")
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Dialect == ddl.Postgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("both TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.Grid.DefaultLimit <= 0 {
		return fmt.Errorf("GRID_DEFAULT_LIMIT must be positive")
	}
	if c.Grid.MaxLimit < c.Grid.DefaultLimit {
		return fmt.Errorf("GRID_MAX_LIMIT (%d) must be at least GRID_DEFAULT_LIMIT (%d)", c.Grid.MaxLimit, c.Grid.DefaultLimit)
	}
	if c.Auth.OIDCEnabled() && c.Auth.Audience == "" {
		return fmt.Errorf("AUTH_AUDIENCE is required when AUTH_ISSUER_URL is set")
	}

	// Production mode: insecure defaults are fatal errors.
	if c.IsProduction() {
		if !c.Auth.Enabled() {
			return fmt.Errorf("authentication must be configured in production (set AUTH_ISSUER_URL or JWT_SECRET)")
		}
		if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes in production")
		}
		for _, o := range c.CORSAllowedOrigins {
			if o == "*" {
				return fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
			}
		}
	}
	return nil
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, v)
	}
	return f, nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	switch strings.TrimSpace(strings.ToLower(os.Getenv(key))) {
	case "0", "false", "no", "off":
		return false
	case "1", "true", "yes", "on":
		return true
	default:
		return defaultVal
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes matching surrounding double or single quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
