package upstream

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pilotgw/pilotgw/pkg/api"
)

// ModelInfo describes one model advertised by the upstream catalog.
type ModelInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Vendor string `json:"vendor,omitempty"`
}

// modelsResponse is the upstream catalog body.
type modelsResponse struct {
	Data []ModelInfo `json:"data"`
}

// ListModels fetches the model catalog from the upstream.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	bearer, err := c.creds.Bearer(ctx)
	if err != nil {
		return nil, api.AsAPIError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ModelsURL, nil)
	if err != nil {
		return nil, api.NewServerError("failed to create models request: " + err.Error())
	}
	req.Header = c.buildHeaders(bearer, false, false)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, MapHTTPError(resp)
	}

	var parsed modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, api.NewServerError("failed to parse models response: " + err.Error())
	}
	return parsed.Data, nil
}
