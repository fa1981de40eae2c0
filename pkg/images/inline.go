// Package images rewrites remote image references as data: URIs so the
// upstream never has to fetch caller-supplied URLs itself. The fetch is
// bounded by a size cap and a timeout, and every failure leaves the original
// URL in place; inlining is best-effort by contract.
package images

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pilotgw/pilotgw/pkg/api"
)

const (
	// maxImageBytes caps the downloaded payload.
	maxImageBytes = 10 << 20
	// fetchTimeout bounds one download.
	fetchTimeout = 10 * time.Second
)

// Inliner downloads http(s) images and rewrites them as data: URIs.
type Inliner struct {
	httpClient *http.Client
	maxBytes   int64
}

// NewInliner creates an Inliner with the default cap and timeout.
func NewInliner() *Inliner {
	return &Inliner{
		httpClient: &http.Client{Timeout: fetchTimeout},
		maxBytes:   maxImageBytes,
	}
}

// InlineRequest rewrites every http(s) image part in the request in place.
// data: URIs pass through untouched.
func (i *Inliner) InlineRequest(ctx context.Context, req *api.Request) {
	for mi := range req.Messages {
		parts := req.Messages[mi].Content.Parts
		for pi := range parts {
			if parts[pi].Type != api.PartImageURL || parts[pi].ImageURL == nil {
				continue
			}
			parts[pi].ImageURL.URL = i.Inline(ctx, parts[pi].ImageURL.URL)
		}
	}
}

// Inline fetches one URL and returns a data: URI, or the original URL on any
// failure or when the URL is not a remote http(s) reference.
func (i *Inliner) Inline(ctx context.Context, url string) string {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return url
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return url
	}
	resp, err := i.httpClient.Do(req)
	if err != nil {
		slog.Warn("image inlining failed", "url", url, "error", err.Error())
		return url
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("image inlining failed", "url", url, "status", resp.StatusCode)
		return url
	}
	if resp.ContentLength > i.maxBytes {
		slog.Warn("image too large to inline", "url", url, "content_length", resp.ContentLength)
		return url
	}

	// Read one byte past the cap so an unlabeled oversized body is detected.
	data, err := io.ReadAll(io.LimitReader(resp.Body, i.maxBytes+1))
	if err != nil {
		slog.Warn("image inlining failed", "url", url, "error", err.Error())
		return url
	}
	if int64(len(data)) > i.maxBytes {
		slog.Warn("image too large to inline", "url", url)
		return url
	}

	mediaType := resp.Header.Get("Content-Type")
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = strings.TrimSpace(mediaType[:idx])
	}
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = "image/jpeg"
	}

	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
