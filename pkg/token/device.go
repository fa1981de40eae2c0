package token

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Device-authorization flow against the OAuth provider. No HTML confirmation
// page: the user code and verification URI are handed to a Prompt callback
// and the flow polls until the user approves, denies, or the code expires.

const (
	defaultClientID       = "Iv1.b507a08c87ecfe98"
	defaultDeviceCodeURL  = "https://github.com/login/device/code"
	defaultAccessTokenURL = "https://github.com/login/oauth/access_token"
	defaultScope          = "read:user"

	pollDeadline    = 15 * time.Minute
	maxPollInterval = 30 * time.Second
)

// DeviceFlow runs the device-authorization grant.
type DeviceFlow struct {
	ClientID       string
	DeviceCodeURL  string
	AccessTokenURL string
	HTTPClient     *http.Client

	// Prompt presents the user code and verification URI to the user. It
	// must not block for the duration of the approval; the poll loop waits.
	Prompt func(userCode, verificationURI string)

	// pollInterval overrides the server-provided interval in tests.
	pollInterval time.Duration
}

// NewDeviceFlow returns a flow with the default endpoints.
func NewDeviceFlow(prompt func(userCode, verificationURI string)) *DeviceFlow {
	return &DeviceFlow{
		ClientID:       defaultClientID,
		DeviceCodeURL:  defaultDeviceCodeURL,
		AccessTokenURL: defaultAccessTokenURL,
		HTTPClient:     &http.Client{Timeout: 30 * time.Second},
		Prompt:         prompt,
	}
}

type deviceCodeResponse struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
}

// Authorize requests a device code, prompts the user, and polls for the
// access token. authorization_pending keeps the current interval, slow_down
// raises it (capped), expired_token and access_denied end the flow.
func (f *DeviceFlow) Authorize(ctx context.Context) (string, error) {
	code, err := f.requestDeviceCode(ctx)
	if err != nil {
		return "", err
	}
	if f.Prompt != nil {
		f.Prompt(code.UserCode, code.VerificationURI)
	}

	interval := time.Duration(code.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if f.pollInterval > 0 {
		interval = f.pollInterval
	}

	deadline := time.Now().Add(pollDeadline)
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}

		tok, err := f.pollAccessToken(ctx, code.DeviceCode)
		if err != nil {
			return "", err
		}
		switch tok.Error {
		case "":
			if tok.AccessToken == "" {
				return "", fmt.Errorf("device flow returned empty access token")
			}
			return tok.AccessToken, nil
		case "authorization_pending":
		case "slow_down":
			interval += 5 * time.Second
			if interval > maxPollInterval {
				interval = maxPollInterval
			}
		case "expired_token":
			return "", fmt.Errorf("device code expired before approval")
		case "access_denied":
			return "", fmt.Errorf("authorization denied by user")
		default:
			return "", fmt.Errorf("device flow failed: %s", tok.Error)
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("device flow timed out after %s", pollDeadline)
		}
		timer.Reset(interval)
	}
}

func (f *DeviceFlow) requestDeviceCode(ctx context.Context) (*deviceCodeResponse, error) {
	form := url.Values{
		"client_id": {f.ClientID},
		"scope":     {defaultScope},
	}
	var code deviceCodeResponse
	if err := f.postForm(ctx, f.DeviceCodeURL, form, &code); err != nil {
		return nil, err
	}
	if code.DeviceCode == "" {
		return nil, fmt.Errorf("device code request returned no code")
	}
	return &code, nil
}

func (f *DeviceFlow) pollAccessToken(ctx context.Context, deviceCode string) (*accessTokenResponse, error) {
	form := url.Values{
		"client_id":   {f.ClientID},
		"device_code": {deviceCode},
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
	}
	var tok accessTokenResponse
	if err := f.postForm(ctx, f.AccessTokenURL, form, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (f *DeviceFlow) postForm(ctx context.Context, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating device flow request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("device flow request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("device flow endpoint returned HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing device flow response: %w", err)
	}
	return nil
}
