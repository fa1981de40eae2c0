package api

import (
	"fmt"
	"net/http"
)

// ErrorKind categorizes gateway and upstream failures. The values appear
// verbatim in caller-facing error envelopes.
type ErrorKind string

const (
	ErrorKindInvalidRequest     ErrorKind = "invalid_request"
	ErrorKindAuthentication     ErrorKind = "authentication"
	ErrorKindPermission         ErrorKind = "permission"
	ErrorKindNotFound           ErrorKind = "not_found"
	ErrorKindRequestTooLarge    ErrorKind = "request_too_large"
	ErrorKindRateLimit          ErrorKind = "rate_limit"
	ErrorKindServerError        ErrorKind = "server_error"
	ErrorKindServiceUnavailable ErrorKind = "service_unavailable"
	ErrorKindTimeout            ErrorKind = "timeout"
	ErrorKindUpstream           ErrorKind = "upstream_error"
)

// APIError is a structured error with a kind, an optional originating HTTP
// status, and a message. Status is zero when the error did not originate
// from an upstream HTTP response.
type APIError struct {
	Kind    ErrorKind `json:"type"`
	Status  int       `json:"-"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// HTTPStatus returns the status code to surface to the caller: the
// originating upstream status when known, otherwise one derived from the kind.
func (e *APIError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Kind {
	case ErrorKindInvalidRequest:
		return http.StatusBadRequest
	case ErrorKindAuthentication:
		return http.StatusUnauthorized
	case ErrorKindPermission:
		return http.StatusForbidden
	case ErrorKindNotFound:
		return http.StatusNotFound
	case ErrorKindRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorKindRateLimit:
		return http.StatusTooManyRequests
	case ErrorKindServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrorKindTimeout:
		return http.StatusGatewayTimeout
	case ErrorKindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// KindForStatus maps an upstream HTTP status to an error kind. The mapping
// is fixed; unknown statuses fall back to upstream_error.
func KindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrorKindInvalidRequest
	case http.StatusUnauthorized:
		return ErrorKindAuthentication
	case http.StatusForbidden:
		return ErrorKindPermission
	case http.StatusNotFound:
		return ErrorKindNotFound
	case http.StatusRequestEntityTooLarge:
		return ErrorKindRequestTooLarge
	case http.StatusTooManyRequests:
		return ErrorKindRateLimit
	case http.StatusInternalServerError, http.StatusBadGateway:
		return ErrorKindServerError
	case http.StatusServiceUnavailable:
		return ErrorKindServiceUnavailable
	case http.StatusGatewayTimeout:
		return ErrorKindTimeout
	default:
		return ErrorKindUpstream
	}
}

// NewErrorFromStatus builds an APIError from an upstream HTTP status.
func NewErrorFromStatus(status int, message string) *APIError {
	return &APIError{Kind: KindForStatus(status), Status: status, Message: message}
}

// NewInvalidRequestError creates an APIError for malformed caller input.
func NewInvalidRequestError(message string) *APIError {
	return &APIError{Kind: ErrorKindInvalidRequest, Message: message}
}

// NewAuthenticationError creates an APIError for missing or unobtainable
// credentials.
func NewAuthenticationError(message string) *APIError {
	return &APIError{Kind: ErrorKindAuthentication, Message: message}
}

// NewServerError creates an APIError for internal gateway failures.
func NewServerError(message string) *APIError {
	return &APIError{Kind: ErrorKindServerError, Message: message}
}

// NewUpstreamError creates an APIError for upstream failures that do not map
// to a specific kind, including exhausted retries on network errors.
func NewUpstreamError(message string) *APIError {
	return &APIError{Kind: ErrorKindUpstream, Message: message}
}

// AsAPIError returns err as an *APIError, wrapping it as a server error when
// it is any other error type.
func AsAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}
	return NewServerError(err.Error())
}
