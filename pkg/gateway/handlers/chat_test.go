package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dome317/lead-intelligence-bot/pkg/completion"
	"github.com/dome317/lead-intelligence-bot/pkg/gateway/config"
)

func testConfig() config.Config {
	return config.Config{
		MaxBodyBytes:         1 << 20,
		MaxMessages:          64,
		SSEMaxStreamDuration: 5 * time.Second,
		ExtractTimeout:       5 * time.Second,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCompletionUpstream serves a fixed SSE body for every request.
func fakeCompletionUpstream(t *testing.T, frames ...string) *completion.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range frames {
			_, _ = io.WriteString(w, f)
		}
	}))
	t.Cleanup(srv.Close)
	return completion.New("test-key", completion.WithBaseURL(srv.URL))
}

func deltaFrame(text string) string {
	return `data: {"type":"content_block_delta","delta":{"type":"text_delta","text":"` + text + `"}}` + "\n\n"
}

// dataFrames pulls the payload out of each data: line of an SSE body.
func dataFrames(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "data: ") {
			out = append(out, strings.TrimPrefix(line, "data: "))
		}
	}
	return out
}

const chatBody = `{"messages":[{"role":"assistant","content":"hi"},{"role":"user","content":"hello"}]}`

func TestChatHandlerStreams(t *testing.T) {
	t.Parallel()
	h := ChatHandler{
		Config: testConfig(),
		Completion: fakeCompletionUpstream(t,
			deltaFrame("Hello"),
			deltaFrame(" there"),
			"data: {\"type\":\"message_stop\"}\n\n",
		),
		Logger: testLogger(),
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(chatBody))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("Content-Type = %q", ct)
	}

	frames := dataFrames(rec.Body.String())
	want := []string{`{"text":"Hello"}`, `{"text":" there"}`, "[DONE]"}
	if len(frames) != len(want) {
		t.Fatalf("frames = %v", frames)
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Fatalf("frame %d = %q, want %q", i, frames[i], want[i])
		}
	}
}

func TestChatHandlerMidStreamError(t *testing.T) {
	t.Parallel()
	h := ChatHandler{
		Config: testConfig(),
		Completion: fakeCompletionUpstream(t,
			deltaFrame("partial"),
			"data: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n",
		),
		Logger: testLogger(),
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(chatBody))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	frames := dataFrames(rec.Body.String())
	want := []string{`{"text":"partial"}`, `{"error":"Stream error"}`}
	if len(frames) != len(want) {
		t.Fatalf("frames = %v", frames)
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Fatalf("frame %d = %q, want %q", i, frames[i], want[i])
		}
	}
	// No [DONE] after an error frame.
	if strings.Contains(rec.Body.String(), "[DONE]") {
		t.Fatal("error stream still sent [DONE]")
	}
}

func TestChatHandlerMissingCredential(t *testing.T) {
	t.Parallel()
	h := ChatHandler{Config: testConfig(), Logger: testLogger()}

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(chatBody))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ANTHROPIC_API_KEY not configured") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestChatHandlerBadBody(t *testing.T) {
	t.Parallel()
	h := ChatHandler{
		Config:     testConfig(),
		Completion: fakeCompletionUpstream(t, "data: [DONE]\n\n"),
		Logger:     testLogger(),
	}

	for _, body := range []string{"", "{}", `{"messages":[]}`, `{"messages":[{"role":"user","content":"  "}]}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d", body, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Messages array is required") {
			t.Fatalf("body %q: response = %s", body, rec.Body.String())
		}
	}
}

func TestChatHandlerMethodNotAllowed(t *testing.T) {
	t.Parallel()
	h := ChatHandler{Config: testConfig(), Logger: testLogger()}
	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestChatHandlerUpstreamRejection(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))
	defer srv.Close()

	h := ChatHandler{
		Config:     testConfig(),
		Completion: completion.New("test-key", completion.WithBaseURL(srv.URL)),
		Logger:     testLogger(),
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(chatBody))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}
