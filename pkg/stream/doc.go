// Package stream implements the streaming transcoder. A parser consumes the
// upstream's line-oriented event stream, reassembling logical lines across
// arbitrary chunk boundaries and normalizing the upstream's event shapes into
// canonical stream events. Renderers turn those events back into the caller's
// dialect-specific SSE frames, enforcing each dialect's ordering invariants.
//
// The parser tolerates upstream noise: lines that fail to parse are logged
// and skipped, never fatal to the stream. Failures of the connection itself
// surface as a single terminal error event.
package stream
