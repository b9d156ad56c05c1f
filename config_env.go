package authgate

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by [ConfigFromEnv].
const (
	EnvDemoStatus        = "NEXT_PUBLIC_DEMO_STATUS"
	EnvMaintenanceStatus = "NEXT_PUBLIC_MAINTENANCE_STATUS"
	EnvRateLimit         = "RATE_LIMIT"
	EnvRateLimitExpire   = "RATE_LIMIT_EXPIRE"
	EnvAccessSecret      = "APP_ACCESS_TOKEN_SECRET"
	EnvRefreshSecret     = "APP_REFRESH_TOKEN_SECRET"
	EnvAccessExpiry      = "ACCESS_TOKEN_EXPIRY"
	EnvRefreshExpiry     = "REFRESH_TOKEN_EXPIRY"
	EnvRedisAddr         = "REDIS_ADDR"
	EnvRedisPassword     = "REDIS_PASSWORD"
	EnvRedisDB           = "REDIS_DB"
	EnvLogLevel          = "LOG_LEVEL"
	EnvLogFormat         = "LOG_FORMAT"
)

// LoadEnvFile loads .env files into the process environment. Variables that
// are already set win. Missing files are ignored; with no paths it reads ".env".
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ConfigFromEnv returns [DefaultConfig] overlaid with the process environment.
// The demo and maintenance flags are only "true" when the variable is exactly "true".
func ConfigFromEnv() (Config, error) {
	return configFromLookup(os.LookupEnv)
}

// ConfigFromEnvMap is like [ConfigFromEnv] but reads from env, typically the
// result of godotenv.Read.
func ConfigFromEnvMap(env map[string]string) (Config, error) {
	return configFromLookup(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
}

func configFromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()

	get := func(k string) (string, bool) {
		v, ok := lookup(k)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	if v, ok := get(EnvDemoStatus); ok {
		cfg.Gate.DemoMode = v == "true"
	}
	if v, ok := get(EnvMaintenanceStatus); ok {
		cfg.Maintenance.Enabled = v == "true"
	}

	if v, ok := get(EnvRateLimit); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvRateLimit, err)
		}
		cfg.RateLimit.Limit = n
	}
	if v, ok := get(EnvRateLimitExpire); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvRateLimitExpire, err)
		}
		cfg.RateLimit.Window = d
	}

	if v, ok := get(EnvAccessSecret); ok {
		cfg.JWT.SigningMethod = "hs256"
		cfg.JWT.AccessPrivateKey = []byte(v)
	}
	if v, ok := get(EnvRefreshSecret); ok {
		cfg.JWT.RefreshPrivateKey = []byte(v)
	}
	if v, ok := get(EnvAccessExpiry); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvAccessExpiry, err)
		}
		cfg.JWT.AccessTTL = d
	}
	if v, ok := get(EnvRefreshExpiry); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvRefreshExpiry, err)
		}
		cfg.JWT.RefreshTTL = d
	}

	if v, ok := get(EnvRedisAddr); ok {
		cfg.Redis.Addr = v
	}
	if v, ok := lookup(EnvRedisPassword); ok {
		cfg.Redis.Password = v
	}
	if v, ok := get(EnvRedisDB); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvRedisDB, err)
		}
		cfg.Redis.DB = n
	}

	if v, ok := get(EnvLogLevel); ok {
		cfg.Log.Level = v
	}
	if v, ok := get(EnvLogFormat); ok {
		cfg.Log.Format = v
	}

	return cfg, nil
}

// parseSeconds accepts a bare integer number of seconds or a Go duration string.
func parseSeconds(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("must be > 0, got %d", n)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be > 0, got %s", v)
	}
	return d, nil
}
