package oauth2

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Default token lifetimes.
const (
	DefaultAccessTokenTTL  = time.Hour
	DefaultRefreshTokenTTL = time.Hour
)

// Config holds the tunable settings of an Authorization server. Zero
// values fall back to defaults via ApplyDefaults.
type Config struct {
	// AccessTokenTTL is how long issued access tokens remain valid.
	AccessTokenTTL time.Duration `env:"OAUTH_ACCESS_TOKEN_TTL"`

	// RefreshTokenTTL is how long issued refresh tokens remain valid.
	RefreshTokenTTL time.Duration `env:"OAUTH_REFRESH_TOKEN_TTL"`

	// ScopeDelimiter separates scope identifiers in the scope parameter.
	ScopeDelimiter string `env:"OAUTH_SCOPE_DELIMITER"`

	// DefaultScopes are substituted when a request carries no scope
	// parameter.
	DefaultScopes []string `env:"OAUTH_DEFAULT_SCOPES" envSeparator:" "`

	// ScopeRequired makes an empty requested scope set a request error.
	ScopeRequired bool `env:"OAUTH_SCOPE_REQUIRED"`

	// TokenLength is the length of generated token strings.
	TokenLength int `env:"OAUTH_TOKEN_LENGTH"`
}

// ApplyDefaults fills zero values with the documented defaults.
func (c *Config) ApplyDefaults() {
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if c.RefreshTokenTTL <= 0 {
		c.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if c.ScopeDelimiter == "" {
		c.ScopeDelimiter = DefaultScopeDelimiter
	}
	if c.TokenLength <= 0 {
		c.TokenLength = DefaultTokenLength
	}
}

// ConfigFromEnv loads a Config from OAUTH_* environment variables and
// applies defaults.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("oauth2: parsing environment config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}
