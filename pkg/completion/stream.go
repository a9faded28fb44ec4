package completion

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// doneMarker is the explicit end-of-turn sentinel some upstreams emit in
// place of a message_stop event.
const doneMarker = "[DONE]"

// Stream is a live, incrementally produced agent reply. Next returns text
// deltas in arrival order; the full reply is their concatenation. Terminal
// conditions: io.EOF on normal completion, a *Error for an upstream error
// event (the stream delivers nothing further), or the context error when
// the caller cancels the request. Stream is not safe for concurrent use.
type Stream struct {
	reader *bufio.Reader
	closer io.Closer
	err    error
}

func newStream(body io.ReadCloser) *Stream {
	return &Stream{
		reader: bufio.NewReader(body),
		closer: body,
	}
}

// streamEvent is the union of upstream SSE payloads we care about.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Next returns the next text delta. Once a terminal condition is reached it
// is sticky: further calls return the same result.
func (s *Stream) Next() (string, error) {
	if s.err != nil {
		return "", s.err
	}

	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				s.err = io.EOF
				return "", io.EOF
			}
			s.err = err
			return "", err
		}

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "event:") || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

		// The end marker is a hard stop even when trailing bytes from a
		// concatenated network chunk are still sitting in the buffer.
		if data == doneMarker {
			s.err = io.EOF
			return "", io.EOF
		}

		var ev streamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			// Skip malformed frames; the terminal event decides the outcome.
			continue
		}

		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Type == "text_delta" && ev.Delta.Text != "" {
				return ev.Delta.Text, nil
			}
		case "message_stop":
			s.err = io.EOF
			return "", io.EOF
		case "error":
			s.err = &Error{
				Type:    errorTypeFor(ev.Error.Type),
				Message: ev.Error.Message,
			}
			return "", s.err
		case "ping", "message_start", "content_block_start", "content_block_stop", "message_delta":
			// Bookkeeping events carry no reply text.
		}
	}
}

// Close releases the underlying connection. Safe to call after a terminal
// event or to abandon an in-flight stream.
func (s *Stream) Close() error {
	return s.closer.Close()
}
