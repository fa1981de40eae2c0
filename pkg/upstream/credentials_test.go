package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type failingSource struct{}

func (failingSource) Token(ctx context.Context) (string, error) {
	return "", errors.New("no token configured")
}

func TestCredentialCacheSingleFlight(t *testing.T) {
	var exchanges atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges.Add(1)
		time.Sleep(10 * time.Millisecond)
		fmt.Fprintf(w, `{"token":"bearer-1","expires_at":%d}`, time.Now().Add(2*time.Hour).Unix())
	}))
	defer srv.Close()

	cache := NewCredentialCache(srv.URL, staticSource("oauth-token"), srv.Client())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := cache.Bearer(context.Background())
			if err != nil {
				t.Errorf("Bearer: %v", err)
				return
			}
			if token != "bearer-1" {
				t.Errorf("token = %q", token)
			}
		}()
	}
	wg.Wait()

	if got := exchanges.Load(); got != 1 {
		t.Errorf("exchanges = %d, want 1", got)
	}
}

func TestCredentialCacheReusesUntilExpiry(t *testing.T) {
	var exchanges atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"token":"bearer-%d","expires_at":%d}`,
			exchanges.Add(1), time.Now().Add(2*time.Hour).Unix())
	}))
	defer srv.Close()

	now := time.Now()
	cache := NewCredentialCache(srv.URL, staticSource("oauth-token"), srv.Client())
	cache.now = func() time.Time { return now }

	first, err := cache.Bearer(context.Background())
	if err != nil {
		t.Fatalf("Bearer: %v", err)
	}
	second, err := cache.Bearer(context.Background())
	if err != nil {
		t.Fatalf("Bearer: %v", err)
	}
	if first != second {
		t.Errorf("cached token changed: %q vs %q", first, second)
	}
	if got := exchanges.Load(); got != 1 {
		t.Errorf("exchanges = %d, want 1", got)
	}

	// Advance past the 2h TTL.
	now = now.Add(3 * time.Hour)
	third, err := cache.Bearer(context.Background())
	if err != nil {
		t.Fatalf("Bearer: %v", err)
	}
	if third == first {
		t.Error("expired credential was reused")
	}
	if got := exchanges.Load(); got != 2 {
		t.Errorf("exchanges = %d, want 2", got)
	}
}

func TestCredentialCacheInvalidate(t *testing.T) {
	var exchanges atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"token":"bearer-%d","expires_at":%d}`,
			exchanges.Add(1), time.Now().Add(2*time.Hour).Unix())
	}))
	defer srv.Close()

	cache := NewCredentialCache(srv.URL, staticSource("oauth-token"), srv.Client())

	first, _ := cache.Bearer(context.Background())
	cache.Invalidate()
	second, err := cache.Bearer(context.Background())
	if err != nil {
		t.Fatalf("Bearer: %v", err)
	}
	if first == second {
		t.Error("invalidated credential was reused")
	}
}

func TestCredentialCacheSourceFailure(t *testing.T) {
	cache := NewCredentialCache("http://unused.invalid", failingSource{}, nil)

	_, err := cache.Bearer(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCredentialCacheExchangeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cache := NewCredentialCache(srv.URL, staticSource("oauth-token"), srv.Client())
	_, err := cache.Bearer(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCredentialValid(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		cred Credential
		want bool
	}{
		{"fresh", Credential{Token: "t", IssuedAt: now, TTL: 2 * time.Hour}, true},
		{"expired", Credential{Token: "t", IssuedAt: now.Add(-3 * time.Hour), TTL: 2 * time.Hour}, false},
		{"empty", Credential{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cred.Valid(now); got != tt.want {
				t.Errorf("Valid = %v, want %v", got, tt.want)
			}
		})
	}
}
