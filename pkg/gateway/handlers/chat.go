package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dome317/lead-intelligence-bot/pkg/completion"
	"github.com/dome317/lead-intelligence-bot/pkg/gateway/apierror"
	"github.com/dome317/lead-intelligence-bot/pkg/gateway/config"
	"github.com/dome317/lead-intelligence-bot/pkg/gateway/mw"
	"github.com/dome317/lead-intelligence-bot/pkg/gateway/sse"
	"github.com/dome317/lead-intelligence-bot/pkg/persona"
)

// textEvent and errorEvent are the chat stream's wire frames.
type textEvent struct {
	Text string `json:"text"`
}

type errorEvent struct {
	Error string `json:"error"`
}

// inputEvent tells a session client to show a structured contact field.
type inputEvent struct {
	InputRequested string `json:"input_requested"`
}

// ChatHandler streams the agent's reply for a caller-held transcript.
// Stateless: the caller appends the reassembled reply to its own history.
type ChatHandler struct {
	Config     config.Config
	Completion *completion.Client // nil when the credential is unconfigured
	Logger     *slog.Logger
}

func (h ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Completion == nil {
		apierror.Write(w, http.StatusInternalServerError, "ANTHROPIC_API_KEY not configured")
		return
	}

	transcript, err := decodeTranscript(w, r, h.Config.MaxBodyBytes, h.Config.MaxMessages)
	if err != nil {
		apierror.Write(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Config.SSEMaxStreamDuration)
	defer cancel()

	stream, err := h.Completion.StreamReply(ctx, persona.SystemPrompt, transcript)
	if err != nil {
		reqID, _ := mw.RequestIDFrom(r.Context())
		h.Logger.Error("completion stream failed to start", "request_id", reqID, "error", err)
		status, msg := apierror.FromError(err)
		apierror.Write(w, status, msg)
		return
	}
	defer func() { _ = stream.Close() }()

	sse.SetHeaders(w)
	sw, err := sse.New(w)
	if err != nil {
		apierror.Write(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	ServeTextStream(ctx, sw, stream, h.Logger)
}

// ServeTextStream pumps a completion stream onto an SSE writer using the
// chat wire contract: one {"text"} frame per delta, a single {"error"}
// frame then termination on upstream failure (no [DONE] after an error),
// and [DONE] on normal completion. Shared by the stateless chat endpoint
// and the session message endpoint.
func ServeTextStream(ctx context.Context, sw *sse.Writer, stream *completion.Stream, logger *slog.Logger) string {
	var full []byte
	for {
		text, err := stream.Next()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				_ = sw.SendDone()
			case ctx.Err() != nil:
				// Consumer cancelled; the stream is abandoned silently.
			default:
				if logger != nil {
					logger.Error("stream error", "error", err)
				}
				_ = sw.SendData(errorEvent{Error: "Stream error"})
			}
			return string(full)
		}
		full = append(full, text...)
		if err := sw.SendData(textEvent{Text: text}); err != nil {
			// Client went away; stop consuming the upstream.
			return string(full)
		}
	}
}

// systemPromptFor lets the session surface reuse ChatHandler's streaming
// path with the voice persona when a live channel is attached.
func systemPromptFor(hasLiveChannel bool) string {
	if hasLiveChannel {
		return persona.VoiceSystemPrompt
	}
	return persona.SystemPrompt
}
