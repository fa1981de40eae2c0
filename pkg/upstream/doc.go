// Package upstream implements the resilient client for the upstream chat
// provider. It owns the pooled HTTP transport and the cached short-lived
// bearer credential, executes chat calls with retry and exponential backoff,
// and classifies upstream failures into the shared error taxonomy.
//
// The client accepts requests in the canonical form and speaks the upstream's
// two wire formats itself: the legacy Chat Completions endpoint and the newer
// Responses endpoint, selected per model name. Streaming calls hand the raw
// response body to the caller once the status line is known to be good;
// failures after that point are terminal and are never retried here.
package upstream
