package upstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pilotgw/pilotgw/pkg/api"
)

// MapHTTPError converts a non-2xx upstream response into an APIError with
// the fixed status-to-kind mapping. It reads a bounded slice of the body to
// extract a descriptive message.
func MapHTTPError(resp *http.Response) *api.APIError {
	message := ExtractErrorMessage(resp.Body)
	if message == "" {
		message = fmt.Sprintf("upstream returned HTTP %d", resp.StatusCode)
	}
	return api.NewErrorFromStatus(resp.StatusCode, message)
}

// MapNetworkError converts a network-level failure (connection refused,
// timeout, DNS) into an APIError. Used once the retry budget is exhausted.
func MapNetworkError(err error) *api.APIError {
	return api.NewUpstreamError("upstream connection error: " + err.Error())
}

// upstreamErrorBody matches the error envelopes the upstream emits, both the
// OpenAI `{"error":{"message"}}` shape and the flat `{"message"}` shape.
type upstreamErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Message string `json:"message"`
}

// ExtractErrorMessage tries to parse an error message out of a response body.
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var parsed upstreamErrorBody
	if err := json.Unmarshal(data, &parsed); err == nil {
		if parsed.Error.Message != "" {
			return parsed.Error.Message
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return ""
}
