package authgate

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigNeedsOnlyAKey(t *testing.T) {
	cfg := DefaultConfig()
	require.Error(t, cfg.Validate())

	cfg = testConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"/logout"}, cfg.CSRF.ProtectedPaths)
	assert.Equal(t, 100, cfg.RateLimit.Limit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, "/api/admin", cfg.Gate.AdminPathPrefix)
}

func TestConfigValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"zero access ttl":       func(c *Config) { c.JWT.AccessTTL = 0 },
		"refresh before access": func(c *Config) { c.JWT.RefreshTTL = c.JWT.AccessTTL / 2 },
		"unknown method":        func(c *Config) { c.JWT.SigningMethod = "rs256" },
		"ed25519 without keys":  func(c *Config) { c.JWT.SigningMethod = "ed25519" },
		"leeway too large":      func(c *Config) { c.JWT.Leeway = time.Hour },
		"zero rate limit":       func(c *Config) { c.RateLimit.Limit = 0 },
		"zero rate window":      func(c *Config) { c.RateLimit.Window = 0 },
		"demo without prefix": func(c *Config) {
			c.Gate.DemoMode = true
			c.Gate.AdminPathPrefix = ""
		},
		"empty cookie name": func(c *Config) { c.Transport.SessionIDCookie = "" },
		"empty header name": func(c *Config) { c.Transport.APIKeyHeader = "" },
		"samesite none": func(c *Config) {
			c.Transport.CookieSameSite = http.SameSiteNoneMode
			c.Transport.CookieSecure = false
		},
		"negative cache ttl": func(c *Config) { c.Roles.CacheTTL = -time.Second },
		"audit zero buffer": func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		},
		"unknown log format":  func(c *Config) { c.Log.Format = "xml" },
		"nameless capability": func(c *Config) { c.Gate.Capabilities[0].Name = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCloneConfigIsDeep(t *testing.T) {
	cfg := testConfig()
	out := cloneConfig(cfg)
	out.JWT.AccessPrivateKey[0] ^= 0xFF
	out.CSRF.ProtectedPaths[0] = "/other"
	out.Gate.Capabilities[0].Prefixes[0] = "/other"

	assert.Equal(t, testAccessSecret[0], cfg.JWT.AccessPrivateKey[0])
	assert.Equal(t, "/logout", cfg.CSRF.ProtectedPaths[0])
	assert.Equal(t, "/api/exchange/order", cfg.Gate.Capabilities[0].Prefixes[0])
}

func TestConfigFromEnvMap(t *testing.T) {
	cfg, err := ConfigFromEnvMap(map[string]string{
		EnvDemoStatus:        "true",
		EnvMaintenanceStatus: "TRUE",
		EnvRateLimit:         "5",
		EnvRateLimitExpire:   "30",
		EnvAccessSecret:      "a-secret",
		EnvRefreshSecret:     "r-secret",
		EnvAccessExpiry:      "10m",
		EnvRefreshExpiry:     "86400",
		EnvRedisAddr:         "redis:6379",
		EnvRedisDB:           "2",
		EnvLogLevel:          "debug",
	})
	require.NoError(t, err)

	assert.True(t, cfg.Gate.DemoMode)
	assert.False(t, cfg.Maintenance.Enabled, "only the exact string true enables a flag")
	assert.Equal(t, 5, cfg.RateLimit.Limit)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, []byte("a-secret"), cfg.JWT.AccessPrivateKey)
	assert.Equal(t, []byte("r-secret"), cfg.JWT.RefreshPrivateKey)
	assert.Equal(t, 10*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestConfigFromEnvMapRejectsBadNumbers(t *testing.T) {
	for _, key := range []string{EnvRateLimit, EnvRateLimitExpire, EnvRedisDB, EnvAccessExpiry} {
		_, err := ConfigFromEnvMap(map[string]string{key: "abc"})
		assert.Error(t, err, key)
	}
	_, err := ConfigFromEnvMap(map[string]string{EnvRateLimitExpire: "0"})
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("AUTHGATE_TEST_ONLY=loaded\n"), 0o600))
	t.Setenv("AUTHGATE_TEST_ONLY", "")
	require.NoError(t, os.Unsetenv("AUTHGATE_TEST_ONLY"))

	require.NoError(t, LoadEnvFile(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("AUTHGATE_TEST_ONLY"))
	assert.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env")))
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "debug", Format: "console", Output: "stderr"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "authgate.log")
	logger, err = NewLogger(LogConfig{Output: path})
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, logger.Sync())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
