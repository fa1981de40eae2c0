package upstream

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pilotgw/pilotgw/pkg/api"
)

// QuotaSnapshot is one quota bucket from the upstream account endpoint.
type QuotaSnapshot struct {
	Entitlement      int     `json:"entitlement"`
	Remaining        float64 `json:"remaining"`
	PercentRemaining float64 `json:"percent_remaining"`
	Unlimited        bool    `json:"unlimited"`
}

// UsageReport is the reshaped account quota state.
type UsageReport struct {
	QuotaResetDate string                   `json:"quota_reset_date,omitempty"`
	Snapshots      map[string]QuotaSnapshot `json:"quota_snapshots"`
}

// Usage queries the upstream account endpoint. The call authenticates with
// the long-lived OAuth token directly, not the exchanged bearer.
func (c *Client) Usage(ctx context.Context) (*UsageReport, error) {
	oauth, err := c.source.Token(ctx)
	if err != nil {
		return nil, api.NewAuthenticationError("no upstream credential available: " + err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UsageURL, nil)
	if err != nil {
		return nil, api.NewServerError("failed to create usage request: " + err.Error())
	}
	req.Header.Set("Authorization", "token "+oauth)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, MapHTTPError(resp)
	}

	var report UsageReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, api.NewServerError("failed to parse usage response: " + err.Error())
	}
	return &report, nil
}
