package transport

import (
	"encoding/json"
	"net/http"

	"github.com/pilotgw/pilotgw/pkg/api"
	"github.com/pilotgw/pilotgw/pkg/dialect/chat"
	"github.com/pilotgw/pilotgw/pkg/dialect/claude"
)

// WriteChatError writes the OpenAI-shaped error envelope used by the
// Chat Completions and Responses endpoints. The HTTP status is derived
// from the error, preserving the upstream status when known.
func WriteChatError(w http.ResponseWriter, apiErr *api.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatus())
	json.NewEncoder(w).Encode(chat.ErrorResponse{Error: chat.ErrorBody{
		Message: apiErr.Message,
		Type:    string(apiErr.Kind),
	}})
}

// WriteClaudeError writes the Anthropic-shaped error envelope used by
// the /v1/messages endpoint.
func WriteClaudeError(w http.ResponseWriter, apiErr *api.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.HTTPStatus())
	json.NewEncoder(w).Encode(claude.ErrorResponse{
		Type: "error",
		Error: claude.ErrorBody{
			Type:    string(apiErr.Kind),
			Message: apiErr.Message,
		},
	})
}

// ErrorWriter writes an APIError in one dialect's envelope. The adapter
// picks the writer matching the endpoint's dialect.
type ErrorWriter func(w http.ResponseWriter, apiErr *api.APIError)
