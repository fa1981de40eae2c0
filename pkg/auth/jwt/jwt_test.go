package jwt

import (
	"context"
	"net/http"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/pilotgw/pilotgw/pkg/auth"
)

const testSecret = "test-signing-secret"

// signToken creates an HS256 token with the given claims.
func signToken(t *testing.T, secret string, claims jwtlib.MapClaims) string {
	t.Helper()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func bearerRequest(t *testing.T, token string) *http.Request {
	t.Helper()
	r, err := http.NewRequest("POST", "/v1/chat/completions", nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestValidToken(t *testing.T) {
	a := New(Config{Secret: testSecret})
	token := signToken(t, testSecret, jwtlib.MapClaims{
		"sub":   "alice",
		"scope": "read write",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	result := a.Authenticate(context.Background(), bearerRequest(t, token))

	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes (err: %v)", result.Decision, result.Err)
	}
	if result.Identity.Subject != "alice" {
		t.Errorf("Subject = %q, want %q", result.Identity.Subject, "alice")
	}
	if len(result.Identity.Scopes) != 2 || result.Identity.Scopes[0] != "read" {
		t.Errorf("Scopes = %v, want [read write]", result.Identity.Scopes)
	}
}

func TestWrongSecret(t *testing.T) {
	a := New(Config{Secret: testSecret})
	token := signToken(t, "some-other-secret", jwtlib.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	result := a.Authenticate(context.Background(), bearerRequest(t, token))
	if result.Decision != auth.No {
		t.Fatalf("Decision = %d, want No", result.Decision)
	}
}

func TestExpiredToken(t *testing.T) {
	a := New(Config{Secret: testSecret})
	token := signToken(t, testSecret, jwtlib.MapClaims{
		"sub": "alice",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	result := a.Authenticate(context.Background(), bearerRequest(t, token))
	if result.Decision != auth.No {
		t.Fatalf("Decision = %d, want No (expired)", result.Decision)
	}
}

func TestIssuerValidation(t *testing.T) {
	a := New(Config{Secret: testSecret, Issuer: "pilotgw"})

	good := signToken(t, testSecret, jwtlib.MapClaims{
		"sub": "alice",
		"iss": "pilotgw",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if result := a.Authenticate(context.Background(), bearerRequest(t, good)); result.Decision != auth.Yes {
		t.Errorf("matching issuer: Decision = %d, want Yes (err: %v)", result.Decision, result.Err)
	}

	bad := signToken(t, testSecret, jwtlib.MapClaims{
		"sub": "alice",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if result := a.Authenticate(context.Background(), bearerRequest(t, bad)); result.Decision != auth.No {
		t.Errorf("wrong issuer: Decision = %d, want No", result.Decision)
	}
}

func TestAudienceValidation(t *testing.T) {
	a := New(Config{Secret: testSecret, Audience: "gateway"})

	bad := signToken(t, testSecret, jwtlib.MapClaims{
		"sub": "alice",
		"aud": "other-service",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	if result := a.Authenticate(context.Background(), bearerRequest(t, bad)); result.Decision != auth.No {
		t.Errorf("wrong audience: Decision = %d, want No", result.Decision)
	}
}

func TestMissingSubject(t *testing.T) {
	a := New(Config{Secret: testSecret})
	token := signToken(t, testSecret, jwtlib.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	result := a.Authenticate(context.Background(), bearerRequest(t, token))
	if result.Decision != auth.No {
		t.Fatalf("Decision = %d, want No (no subject)", result.Decision)
	}
}

func TestCustomClaims(t *testing.T) {
	a := New(Config{Secret: testSecret, UserClaim: "email", ScopesClaim: "permissions"})
	token := signToken(t, testSecret, jwtlib.MapClaims{
		"email":       "alice@example.com",
		"permissions": []string{"chat", "models"},
		"exp":         time.Now().Add(time.Hour).Unix(),
	})

	result := a.Authenticate(context.Background(), bearerRequest(t, token))
	if result.Decision != auth.Yes {
		t.Fatalf("Decision = %d, want Yes (err: %v)", result.Decision, result.Err)
	}
	if result.Identity.Subject != "alice@example.com" {
		t.Errorf("Subject = %q", result.Identity.Subject)
	}
	if len(result.Identity.Scopes) != 2 || result.Identity.Scopes[1] != "models" {
		t.Errorf("Scopes = %v, want [chat models]", result.Identity.Scopes)
	}
}

func TestNoHeaderAbstains(t *testing.T) {
	a := New(Config{Secret: testSecret})
	result := a.Authenticate(context.Background(), bearerRequest(t, ""))
	if result.Decision != auth.Abstain {
		t.Fatalf("Decision = %d, want Abstain", result.Decision)
	}
}

func TestGarbageTokenRejected(t *testing.T) {
	a := New(Config{Secret: testSecret})
	result := a.Authenticate(context.Background(), bearerRequest(t, "not-a-jwt"))
	if result.Decision != auth.No {
		t.Fatalf("Decision = %d, want No", result.Decision)
	}
}

func TestExtractScopes(t *testing.T) {
	tests := []struct {
		name   string
		claims jwtlib.MapClaims
		want   []string
	}{
		{"space separated", jwtlib.MapClaims{"scope": "a b c"}, []string{"a", "b", "c"}},
		{"json array", jwtlib.MapClaims{"scope": []interface{}{"a", "b"}}, []string{"a", "b"}},
		{"empty string", jwtlib.MapClaims{"scope": ""}, nil},
		{"missing", jwtlib.MapClaims{}, nil},
		{"wrong type", jwtlib.MapClaims{"scope": 42}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractScopes(tt.claims, "scope")
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("scope[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
