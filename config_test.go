package oauth2

import (
	"testing"
	"time"

	"github.com/dingo/oauth2-server/internal/testutil"
)

func TestConfigApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	testutil.AssertEqual(t, cfg.AccessTokenTTL, DefaultAccessTokenTTL)
	testutil.AssertEqual(t, cfg.RefreshTokenTTL, DefaultRefreshTokenTTL)
	testutil.AssertEqual(t, cfg.ScopeDelimiter, DefaultScopeDelimiter)
	testutil.AssertEqual(t, cfg.TokenLength, DefaultTokenLength)
	testutil.AssertFalse(t, cfg.ScopeRequired, "scope must not be required by default")
}

func TestConfigApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		AccessTokenTTL: 30 * time.Minute,
		ScopeDelimiter: ",",
		TokenLength:    64,
	}
	cfg.ApplyDefaults()

	testutil.AssertEqual(t, cfg.AccessTokenTTL, 30*time.Minute)
	testutil.AssertEqual(t, cfg.RefreshTokenTTL, DefaultRefreshTokenTTL)
	testutil.AssertEqual(t, cfg.ScopeDelimiter, ",")
	testutil.AssertEqual(t, cfg.TokenLength, 64)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OAUTH_ACCESS_TOKEN_TTL", "30m")
	t.Setenv("OAUTH_REFRESH_TOKEN_TTL", "24h")
	t.Setenv("OAUTH_DEFAULT_SCOPES", "read write")
	t.Setenv("OAUTH_SCOPE_REQUIRED", "true")

	cfg, err := ConfigFromEnv()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, cfg.AccessTokenTTL, 30*time.Minute)
	testutil.AssertEqual(t, cfg.RefreshTokenTTL, 24*time.Hour)
	testutil.AssertEqual(t, len(cfg.DefaultScopes), 2)
	testutil.AssertEqual(t, cfg.DefaultScopes[0], "read")
	testutil.AssertTrue(t, cfg.ScopeRequired, "scope required flag must parse")
	// Unset settings still receive defaults.
	testutil.AssertEqual(t, cfg.ScopeDelimiter, DefaultScopeDelimiter)
	testutil.AssertEqual(t, cfg.TokenLength, DefaultTokenLength)
}

func TestConfigFromEnvInvalidDuration(t *testing.T) {
	t.Setenv("OAUTH_ACCESS_TOKEN_TTL", "not-a-duration")

	_, err := ConfigFromEnv()
	testutil.AssertError(t, err)
}
