package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackLimiterEnforcesBurst(t *testing.T) {
	ip := "203.0.113.9"
	limit := 3

	for i := 0; i < limit; i++ {
		assert.True(t, fallbackAllow(ip, limit), "request %d should pass", i)
	}
	assert.False(t, fallbackAllow(ip, limit), "request over the limit should be rejected")

	// A different client has its own bucket
	assert.True(t, fallbackAllow("203.0.113.10", limit))
}
