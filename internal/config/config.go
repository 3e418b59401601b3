// Package config loads the portal server configuration from the environment and an optional
// YAML service catalog.
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/errors/v5"
	"gopkg.in/yaml.v3"
)

// Session stores selectable with SESSION_STORE.
const (
	StoreCookie   = "cookie"
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSpanner  = "spanner"
)

// Config is the portal server configuration.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	BackendURL     string
	BackendTimeout time.Duration
	ExchangePath   string

	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string

	CookieKey     string
	CookieDomain  string
	SecureCookies bool
	XSRF          bool

	SessionTimeout time.Duration
	SessionStore   string
	DatabaseURL    string
	DBMaxConns     int
	SpannerDB      string
	PurgeInterval  time.Duration

	DisplayTimeZone string
	PendingURL      string
	HomeURL         string

	Services map[string]*url.URL
}

// Load reads the configuration. Required values that are missing and malformed values are
// reported as errors.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		BackendURL:      getEnv("BACKEND_URL", ""),
		BackendTimeout:  getEnvDuration("BACKEND_TIMEOUT", 10*time.Second),
		ExchangePath:    getEnv("BACKEND_EXCHANGE_PATH", "/auth/exchange"),
		IssuerURL:       getEnv("OIDC_ISSUER_URL", ""),
		ClientID:        getEnv("OIDC_CLIENT_ID", ""),
		ClientSecret:    getEnv("OIDC_CLIENT_SECRET", ""),
		RedirectURL:     getEnv("OIDC_REDIRECT_URL", ""),
		CookieKey:       getEnv("COOKIE_KEY", ""),
		CookieDomain:    getEnv("COOKIE_DOMAIN", ""),
		SecureCookies:   getEnvBool("SECURE_COOKIES", true),
		XSRF:            getEnvBool("XSRF_PROTECTION", true),
		SessionTimeout:  getEnvDuration("SESSION_TIMEOUT", 8*time.Hour),
		SessionStore:    strings.ToLower(getEnv("SESSION_STORE", StoreCookie)),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		DBMaxConns:      getEnvInt("DB_MAX_CONNS", 4),
		SpannerDB:       getEnv("SPANNER_DATABASE", ""),
		PurgeInterval:   getEnvDuration("SESSION_PURGE_INTERVAL", 15*time.Minute),
		DisplayTimeZone: getEnv("DISPLAY_TIME_ZONE", "UTC"),
		PendingURL:      getEnv("PENDING_URL", "/pending"),
		HomeURL:         getEnv("HOME_URL", "/"),
	}

	var missing []string
	for _, v := range []struct{ name, value string }{
		{"BACKEND_URL", cfg.BackendURL},
		{"OIDC_ISSUER_URL", cfg.IssuerURL},
		{"OIDC_CLIENT_ID", cfg.ClientID},
		{"OIDC_REDIRECT_URL", cfg.RedirectURL},
		{"COOKIE_KEY", cfg.CookieKey},
	} {
		if v.value == "" {
			missing = append(missing, v.name)
		}
	}

	switch cfg.SessionStore {
	case StoreCookie, StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case StoreSpanner:
		if cfg.SpannerDB == "" {
			missing = append(missing, "SPANNER_DATABASE")
		}
	default:
		return nil, errors.Newf("SESSION_STORE %q must be one of %s, %s, %s or %s", cfg.SessionStore, StoreCookie, StoreMemory, StorePostgres, StoreSpanner)
	}

	if len(missing) > 0 {
		return nil, errors.Newf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg.Services = make(map[string]*url.URL)
	if path := getEnv("SERVICES_FILE", ""); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "os.ReadFile()")
		}
		services, err := ParseServices(b)
		if err != nil {
			return nil, errors.Wrapf(err, "ParseServices(): %s", path)
		}
		cfg.Services = services
	}

	return cfg, nil
}

type serviceCatalog struct {
	Services []struct {
		Name string `yaml:"name"`
		URL  string `yaml:"url"`
	} `yaml:"services"`
}

// ParseServices parses the YAML service catalog:
//
//	services:
//	  - name: chat
//	    url: http://chat.internal:8080
func ParseServices(b []byte) (map[string]*url.URL, error) {
	var catalog serviceCatalog
	if err := yaml.Unmarshal(b, &catalog); err != nil {
		return nil, errors.Wrap(err, "yaml.Unmarshal()")
	}

	services := make(map[string]*url.URL, len(catalog.Services))
	for _, s := range catalog.Services {
		if s.Name == "" || strings.Contains(s.Name, "/") {
			return nil, errors.Newf("invalid service name %q", s.Name)
		}
		if _, ok := services[s.Name]; ok {
			return nil, errors.Newf("service %q listed twice", s.Name)
		}
		u, err := url.Parse(s.URL)
		if err != nil {
			return nil, errors.Wrapf(err, "url.Parse(): service %q", s.Name)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.Newf("service %q url %q must be absolute", s.Name, s.URL)
		}
		services[s.Name] = u
	}

	return services, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}

	return fallback
}
