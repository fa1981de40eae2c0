package http

import (
	"fmt"
	"net/http"
)

// sseWriter writes pre-rendered SSE frames to an http.ResponseWriter,
// flushing after every frame. Headers are sent lazily on the first frame
// so that errors occurring before any output can still use a JSON body
// and status code.
type sseWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	return &sseWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// WriteFrame sends one SSE frame. The frame must already carry its own
// "event:"/"data:" lines and trailing blank line.
func (s *sseWriter) WriteFrame(frame string) error {
	if !s.started {
		s.w.Header().Set("Content-Type", "text/event-stream")
		s.w.Header().Set("Cache-Control", "no-cache")
		s.w.Header().Set("Connection", "keep-alive")
		s.started = true
	}

	if _, err := fmt.Fprint(s.w, frame); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flushing event: %w", err)
	}
	return nil
}

// Started reports whether any frame has been written.
func (s *sseWriter) Started() bool {
	return s.started
}
