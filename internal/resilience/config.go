package resilience

import (
	"time"

	"github.com/sinergia/leadquote/internal/config"
)

// FromConfig builds retry and breaker settings from the retry config
// section. Zero values fall back to the defaults.
func FromConfig(c config.RetryConfig) (RetryConfig, BreakerConfig) {
	rc := DefaultRetryConfig()
	if c.MaxAttempts > 0 {
		rc.MaxAttempts = c.MaxAttempts
	}
	if c.InitialBackoffMs > 0 {
		rc.InitialBackoff = time.Duration(c.InitialBackoffMs) * time.Millisecond
	}
	if c.MaxBackoffMs > 0 {
		rc.MaxBackoff = time.Duration(c.MaxBackoffMs) * time.Millisecond
	}

	bc := DefaultBreakerConfig()
	if c.CircuitThreshold > 0 {
		bc.FailureThreshold = c.CircuitThreshold
	}
	if c.CircuitResetSecs > 0 {
		bc.ResetTimeout = time.Duration(c.CircuitResetSecs) * time.Second
	}
	return rc, bc
}
