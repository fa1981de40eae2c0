// Package gateway orchestrates one chat call: it applies the configured
// model mapping, inlines remote images, invokes the upstream client, and for
// streaming calls drives the transcoder over the raw upstream stream. The
// caller-facing dialect is the transport's concern; the gateway speaks the
// canonical form on both sides.
package gateway

import (
	"context"
	"io"
	"time"

	"github.com/pilotgw/pilotgw/pkg/api"
	"github.com/pilotgw/pilotgw/pkg/images"
	"github.com/pilotgw/pilotgw/pkg/observability"
	"github.com/pilotgw/pilotgw/pkg/stream"
	"github.com/pilotgw/pilotgw/pkg/upstream"
)

// Options configures a Gateway.
type Options struct {
	// ModelMapping maps caller-facing model aliases to upstream model names.
	ModelMapping map[string]string
}

// Gateway owns the upstream client and the per-request orchestration.
type Gateway struct {
	client  *upstream.Client
	inliner *images.Inliner
	mapping map[string]string
	catalog *Catalog
}

// New creates a Gateway around an upstream client.
func New(client *upstream.Client, opts Options) *Gateway {
	return &Gateway{
		client:  client,
		inliner: images.NewInliner(),
		mapping: opts.ModelMapping,
		catalog: NewCatalog(client),
	}
}

// Close releases the upstream client's resources.
func (g *Gateway) Close() error {
	return g.client.Close()
}

// MapModel resolves a caller-facing model alias to the upstream model name.
// Unmapped names pass through unchanged.
func (g *Gateway) MapModel(model string) string {
	if mapped, ok := g.mapping[model]; ok {
		return mapped
	}
	return model
}

// Run executes a non-streaming call and returns the canonical result.
func (g *Gateway) Run(ctx context.Context, req *api.Request) (*api.Response, error) {
	prepared := g.prepare(ctx, req)
	start := time.Now()
	resp, err := g.client.Complete(ctx, prepared)
	observability.ObserveUpstream(g.endpoint(prepared.Model), err, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	observability.ObserveTokens(prepared.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	// Callers see the alias they asked for, not the upstream name.
	resp.Model = req.Model
	return resp, nil
}

// RunStream executes a streaming call and returns the canonical event
// stream. The channel closes after the terminal event; cancellation of ctx
// releases the upstream connection.
func (g *Gateway) RunStream(ctx context.Context, req *api.Request) (<-chan api.StreamEvent, error) {
	prepared := g.prepare(ctx, req)
	body, err := g.client.Stream(ctx, prepared)
	if err != nil {
		return nil, err
	}

	parsed := make(chan api.StreamEvent, 16)
	go func(body io.ReadCloser) {
		defer close(parsed)
		defer body.Close()
		stream.Parse(ctx, body, parsed)
	}(body)

	// Forward events to the caller while observing the stream outcome.
	ch := make(chan api.StreamEvent, 16)
	go func() {
		defer close(ch)
		start := time.Now()
		var failed error
		for ev := range parsed {
			switch ev.Type {
			case api.EventFinish:
				if ev.Usage != nil {
					observability.ObserveTokens(prepared.Model, ev.Usage.PromptTokens, ev.Usage.CompletionTokens)
				}
			case api.EventError:
				if ev.Err != nil {
					failed = ev.Err
				}
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
		observability.ObserveUpstream(g.endpoint(prepared.Model), failed, time.Since(start).Seconds())
	}()
	return ch, nil
}

// endpoint names the upstream endpoint a model routes to, for metrics labels.
func (g *Gateway) endpoint(model string) string {
	if upstream.UsesResponsesEndpoint(model) {
		return "responses"
	}
	return "chat_completions"
}

// Models returns the model catalog, from the cache or the static fallback.
func (g *Gateway) Models(ctx context.Context) []upstream.ModelInfo {
	return g.catalog.Models(ctx)
}

// Usage reports the upstream account quota state.
func (g *Gateway) Usage(ctx context.Context) (*upstream.UsageReport, error) {
	return g.client.Usage(ctx)
}

// prepare applies model mapping and image inlining to a copy of the request.
func (g *Gateway) prepare(ctx context.Context, req *api.Request) *api.Request {
	prepared := *req
	prepared.Model = g.MapModel(req.Model)
	if api.HasImageContent(prepared.Messages) {
		g.inliner.InlineRequest(ctx, &prepared)
	}
	return &prepared
}
