package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"port"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`
	Timezone string `mapstructure:"timezone"`

	StorageServiceURL string `mapstructure:"storage_service_url"`
	UserServiceURL    string `mapstructure:"user_service_url"`

	JWTSecret   string `mapstructure:"auth_jwt_secret"`
	JWTIssuer   string `mapstructure:"auth_issuer"`
	JWTAudience string `mapstructure:"auth_audience"`
	LoginURL    string `mapstructure:"auth_login_url"`

	SessionCookieName   string `mapstructure:"session_cookie_name"`
	SessionCookieSecure bool   `mapstructure:"session_cookie_secure"`
	CSRFKey             string `mapstructure:"csrf_key"`

	AllowedOrigins       []string      `mapstructure:"allowed_origins"`
	UpstreamTimeout      time.Duration `mapstructure:"upstream_timeout"`
	UpstreamMaxBodyBytes int64         `mapstructure:"upstream_max_body_bytes"`
	RateLimitRPS         float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst       int           `mapstructure:"rate_limit_burst"`

	RedisURL         string `mapstructure:"redis_url"`
	DatabaseURL      string `mapstructure:"database_url"`
	AuditAutoMigrate bool   `mapstructure:"audit_auto_migrate"`
}

var defaults = map[string]any{
	"port":                    "8080",
	"app_env":                 "production",
	"log_level":               "info",
	"timezone":                "UTC",
	"auth_login_url":          "/login",
	"session_cookie_name":     "admin_session",
	"session_cookie_secure":   true,
	"allowed_origins":         "http://localhost:3000",
	"upstream_timeout":        "15s",
	"upstream_max_body_bytes": 10 << 20,
	"rate_limit_rps":          20,
	"rate_limit_burst":        40,
	"audit_auto_migrate":      false,
}

// Load reads configuration from environment variables. When path names an
// existing file (any viper format, including .env) it is read first and the
// environment overrides it.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key := range keys() {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			v.SetConfigFile(path)
			if strings.HasSuffix(path, ".env") {
				v.SetConfigType("env")
			}
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.StorageServiceURL = strings.TrimRight(cfg.StorageServiceURL, "/")
	cfg.UserServiceURL = strings.TrimRight(cfg.UserServiceURL, "/")
	cfg.AllowedOrigins = splitList(cfg.AllowedOrigins)
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	for name, raw := range map[string]string{
		"STORAGE_SERVICE_URL": c.StorageServiceURL,
		"USER_SERVICE_URL":    c.UserServiceURL,
	} {
		if raw == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL", name))
		}
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if c.CSRFKey != "" && len(c.CSRFKey) != 32 {
		errs = append(errs, errors.New("CSRF_KEY must be 32 bytes"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Location returns the time zone the calendar and "today" filters use.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func keys() map[string]struct{} {
	m := make(map[string]struct{})
	for key := range defaults {
		m[key] = struct{}{}
	}
	for _, key := range []string{
		"storage_service_url", "user_service_url",
		"auth_jwt_secret", "auth_issuer", "auth_audience",
		"csrf_key", "redis_url", "database_url",
	} {
		m[key] = struct{}{}
	}
	return m
}

// splitList accepts both a real list and a single comma separated entry.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
