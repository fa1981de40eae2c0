package api

import (
	"net/http"
	"testing"
)

func TestKindForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{400, ErrorKindInvalidRequest},
		{422, ErrorKindInvalidRequest},
		{401, ErrorKindAuthentication},
		{403, ErrorKindPermission},
		{404, ErrorKindNotFound},
		{413, ErrorKindRequestTooLarge},
		{429, ErrorKindRateLimit},
		{500, ErrorKindServerError},
		{502, ErrorKindServerError},
		{503, ErrorKindServiceUnavailable},
		{504, ErrorKindTimeout},
		{418, ErrorKindUpstream},
		{599, ErrorKindUpstream},
	}

	for _, tt := range tests {
		if got := KindForStatus(tt.status); got != tt.want {
			t.Errorf("KindForStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestHTTPStatusPreservesOrigin(t *testing.T) {
	err := NewErrorFromStatus(503, "backend down")
	if got := err.HTTPStatus(); got != 503 {
		t.Errorf("HTTPStatus() = %d, want 503", got)
	}
}

func TestHTTPStatusFromKind(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want int
	}{
		{ErrorKindAuthentication, http.StatusUnauthorized},
		{ErrorKindInvalidRequest, http.StatusBadRequest},
		{ErrorKindRateLimit, http.StatusTooManyRequests},
		{ErrorKindServerError, http.StatusInternalServerError},
		{ErrorKindUpstream, http.StatusBadGateway},
	}
	for _, tt := range tests {
		err := &APIError{Kind: tt.kind, Message: "x"}
		if got := err.HTTPStatus(); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestAsAPIError(t *testing.T) {
	orig := NewAuthenticationError("no credential")
	if got := AsAPIError(orig); got != orig {
		t.Error("APIError should pass through unchanged")
	}
	wrapped := AsAPIError(http.ErrServerClosed)
	if wrapped.Kind != ErrorKindServerError {
		t.Errorf("wrapped kind = %s, want server_error", wrapped.Kind)
	}
	if AsAPIError(nil) != nil {
		t.Error("nil should map to nil")
	}
}
