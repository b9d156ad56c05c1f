package authgate

import (
	"testing"

	"github.com/MrEthical07/authgate/internal/security"
	"github.com/stretchr/testify/assert"
)

func TestSecurityReportReflectsConfig(t *testing.T) {
	env := newTestEnv(t, func(c *Config) {
		c.Gate.DemoMode = true
		c.RateLimit.Limit = 7
	})

	r := env.engine.SecurityReport()
	assert.Equal(t, "hs256", r.SigningAlgorithm)
	assert.Equal(t, 7, r.RateLimit)
	assert.True(t, r.DemoMode)
	assert.True(t, r.SecureCookies)
	assert.False(t, r.AuditEnabled)
	assert.Contains(t, r.Warnings, security.WarnDemoMode)
	assert.Contains(t, r.Warnings, security.WarnSharedSecret)

	var nilEngine *Engine
	assert.Empty(t, nilEngine.SecurityReport().Warnings)
}
