package upstream

import (
	"net/http"
	"testing"
	"time"
)

func TestBackoffDelayTable(t *testing.T) {
	cfg := DefaultRetryConfig()
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
	}
	for attempt, expected := range want {
		if got := cfg.BackoffDelay(attempt); got != expected {
			t.Errorf("BackoffDelay(%d) = %v, want %v", attempt, got, expected)
		}
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	cfg := DefaultRetryConfig()
	if got := cfg.BackoffDelay(20); got != cfg.MaxDelay {
		t.Errorf("BackoffDelay(20) = %v, want cap %v", got, cfg.MaxDelay)
	}
}

func TestRetryableStatus(t *testing.T) {
	tests := []struct {
		status int
		want   bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusGatewayTimeout, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
		{http.StatusNotFound, false},
		{http.StatusRequestEntityTooLarge, false},
	}
	for _, tt := range tests {
		if got := RetryableStatus(tt.status); got != tt.want {
			t.Errorf("RetryableStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
