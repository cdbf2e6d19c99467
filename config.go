package sessions

import (
	"errors"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the cookie and TTL policy shared by sessions. It is read-only
// after construction; multiple sessions reference one instance. The core
// consumes Name and MaxAge; the remaining attributes are carried for the
// cookie-emission layer, where a zero value means "use transport default".
type Config struct {
	// Name is the session cookie name.
	Name string `env:"SESSION_COOKIE_NAME" envDefault:"sessions.sid"`
	// MaxAge is the session lifetime applied when persisting state.
	MaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"24h"`

	Domain   string        `env:"SESSION_COOKIE_DOMAIN" envDefault:""`
	Path     string        `env:"SESSION_COOKIE_PATH" envDefault:""`
	Secure   bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	HTTPOnly bool          `env:"SESSION_COOKIE_HTTP_ONLY" envDefault:"false"`
	SameSite http.SameSite `env:"SESSION_COOKIE_SAME_SITE" envDefault:"0"`
}

// defaultConfig returns the default policy: "sessions.sid" cookie, 24h
// lifetime, all transport attributes unset.
func defaultConfig() *Config {
	return &Config{
		Name:   "sessions.sid",
		MaxAge: 24 * time.Hour,
	}
}

// LoadConfig populates a Config from environment variables, falling back to
// the documented defaults for unset values.
func LoadConfig() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, errors.Join(ErrConfig, err)
	}
	return &cfg, nil
}

// ConfigOption is a functional option applied to a Config at construction.
type ConfigOption func(*Config)

// WithName sets the session cookie name.
func WithName(name string) ConfigOption {
	return func(c *Config) {
		c.Name = name
	}
}

// WithMaxAge sets the session lifetime.
func WithMaxAge(maxAge time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxAge = maxAge
	}
}

// WithDomain sets the cookie domain attribute.
func WithDomain(domain string) ConfigOption {
	return func(c *Config) {
		c.Domain = domain
	}
}

// WithPath sets the cookie path attribute.
func WithPath(path string) ConfigOption {
	return func(c *Config) {
		c.Path = path
	}
}

// WithSecure restricts the cookie to HTTPS transports.
func WithSecure(secure bool) ConfigOption {
	return func(c *Config) {
		c.Secure = secure
	}
}

// WithHTTPOnly prevents script access to the cookie.
func WithHTTPOnly(httpOnly bool) ConfigOption {
	return func(c *Config) {
		c.HTTPOnly = httpOnly
	}
}

// WithSameSite sets the SameSite attribute.
func WithSameSite(sameSite http.SameSite) ConfigOption {
	return func(c *Config) {
		c.SameSite = sameSite
	}
}

// NewConfig builds a Config from defaults and options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
