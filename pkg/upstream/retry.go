package upstream

import (
	"math"
	"net/http"
	"time"
)

// RetryConfig controls the retry policy for upstream calls. A call makes at
// most MaxRetries+1 attempts.
type RetryConfig struct {
	MaxRetries      int
	BaseDelay       time.Duration
	ExponentialBase float64
	MaxDelay        time.Duration
}

// DefaultRetryConfig returns the default policy: 3 retries, 1s base delay
// doubling per attempt, capped at 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		BaseDelay:       time.Second,
		ExponentialBase: 2.0,
		MaxDelay:        30 * time.Second,
	}
}

// BackoffDelay returns the delay to wait after failed attempt i (0-indexed):
// min(BaseDelay * ExponentialBase^i, MaxDelay).
func (c RetryConfig) BackoffDelay(attempt int) time.Duration {
	delay := time.Duration(float64(c.BaseDelay) * math.Pow(c.ExponentialBase, float64(attempt)))
	if delay > c.MaxDelay || delay <= 0 {
		return c.MaxDelay
	}
	return delay
}

// RetryableStatus reports whether an HTTP status code warrants another
// attempt. Every other status is surfaced immediately.
func RetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
