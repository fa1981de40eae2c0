package http

import (
	"net/http/httptest"
	"testing"
)

func TestSSEWriterSetsHeadersOnFirstFrame(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := newSSEWriter(rec)

	if sw.Started() {
		t.Error("writer started before any frame")
	}

	if err := sw.WriteFrame("data: {\"a\":1}\n\n"); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	if !sw.Started() {
		t.Error("writer not marked started")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q", cc)
	}
}

func TestSSEWriterAppendsFrames(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := newSSEWriter(rec)

	sw.WriteFrame("data: one\n\n")
	sw.WriteFrame("data: two\n\n")

	want := "data: one\n\ndata: two\n\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("body = %q, want %q", got, want)
	}
	if !rec.Flushed {
		t.Error("response was not flushed")
	}
}
