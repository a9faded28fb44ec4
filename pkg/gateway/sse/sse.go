// Package sse writes server-sent events. The chat surface uses the bare
// data-line form (`data: <json>` frames terminated by `data: [DONE]`);
// Send supports the named-event form for other consumers.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// DoneMarker is the literal end-of-turn frame payload.
const DoneMarker = "[DONE]"

// Writer serializes SSE frames onto an http.ResponseWriter, flushing after
// every frame. Safe for concurrent use.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
}

// New wraps w, failing when the writer cannot flush.
func New(w http.ResponseWriter) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}
	return &Writer{w: w, flusher: f}, nil
}

// SetHeaders writes the standard event-stream response headers. Must be
// called before the first frame.
func SetHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// SendData writes a bare `data: <json>` frame.
func (sw *Writer) SendData(data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return sw.writeFrame("", b)
}

// SendDone writes the terminal `data: [DONE]` frame.
func (sw *Writer) SendDone() error {
	return sw.writeFrame("", []byte(DoneMarker))
}

// Send writes an `event:` + `data:` frame pair.
func (sw *Writer) Send(event string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return sw.writeFrame(event, b)
}

func (sw *Writer) writeFrame(event string, payload []byte) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if event != "" {
		if _, err := fmt.Fprintf(sw.w, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	sw.flusher.Flush()
	return nil
}
