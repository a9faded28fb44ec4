package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dome317/lead-intelligence-bot/pkg/capture"
	"github.com/dome317/lead-intelligence-bot/pkg/completion"
	"github.com/dome317/lead-intelligence-bot/pkg/core/types"
	"github.com/dome317/lead-intelligence-bot/pkg/dispatch"
	"github.com/dome317/lead-intelligence-bot/pkg/extract"
	"github.com/dome317/lead-intelligence-bot/pkg/gateway/apierror"
	"github.com/dome317/lead-intelligence-bot/pkg/gateway/config"
	"github.com/dome317/lead-intelligence-bot/pkg/gateway/sse"
	"github.com/dome317/lead-intelligence-bot/pkg/session"
)

// SessionSource tags leads extracted from server-hosted sessions.
const SessionSource = "session"

// SessionsHandler hosts server-side conversation sessions: transcript,
// contact capture, and the extraction hand-off all live in the process so
// thin clients (and the avatar bridge) only ship text back and forth.
type SessionsHandler struct {
	Config     config.Config
	Manager    *session.Manager
	Completion *completion.Client // nil when the credential is unconfigured
	Extractor  *extract.Extractor
	Store      interface {
		AddLead(ctx context.Context, lead types.Lead) (types.Lead, error)
	}
	Dispatcher *dispatch.Dispatcher
	Logger     *slog.Logger
}

type sessionResponse struct {
	ID           string           `json:"id"`
	Messages     types.Transcript `json:"messages"`
	CaptureState string           `json:"capture_state"`
}

// Create starts a session seeded with the opening greeting.
func (h SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	s := h.Manager.Create()
	writeJSON(w, http.StatusCreated, sessionResponse{
		ID:           s.ID,
		Messages:     s.Transcript(),
		CaptureState: s.CaptureState().String(),
	})
}

// Get returns the session's transcript and capture state.
func (h SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.Manager.Get(r.PathValue("id"))
	if !ok {
		apierror.Write(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		ID:           s.ID,
		Messages:     s.Transcript(),
		CaptureState: s.CaptureState().String(),
	})
}

type messageRequest struct {
	Content string `json:"content"`
}

// Message appends a user turn and streams the agent's reply back as SSE.
// After the reply lands, the capture machine is evaluated and any input
// request rides both the live channel and a final SSE frame.
func (h SessionsHandler) Message(w http.ResponseWriter, r *http.Request) {
	s, ok := h.Manager.Get(r.PathValue("id"))
	if !ok {
		apierror.Write(w, http.StatusNotFound, "Session not found")
		return
	}
	if h.Completion == nil {
		apierror.Write(w, http.StatusInternalServerError, "ANTHROPIC_API_KEY not configured")
		return
	}

	var req messageRequest
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		apierror.Write(w, http.StatusBadRequest, "Message content is required")
		return
	}

	transcript, ok := s.BeginReply(strings.TrimSpace(req.Content))
	if !ok {
		apierror.Write(w, http.StatusConflict, "Session is busy or ended")
		return
	}

	// The stream dies with whichever goes first: the HTTP request, the
	// stream duration budget, or the session itself (user hit "end call").
	ctx, cancel := context.WithTimeout(r.Context(), h.Config.SSEMaxStreamDuration)
	defer cancel()
	stop := context.AfterFunc(s.Context(), cancel)
	defer stop()

	stream, err := h.Completion.StreamReply(ctx, systemPromptFor(true), transcript)
	if err != nil {
		s.FinishReply("")
		h.Logger.Error("session stream failed to start", "session_id", s.ID, "error", err)
		status, msg := apierror.FromError(err)
		apierror.Write(w, status, msg)
		return
	}
	defer func() { _ = stream.Close() }()

	sse.SetHeaders(w)
	sw, err := sse.New(w)
	if err != nil {
		s.FinishReply("")
		apierror.Write(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	reply, completed := h.pumpReply(ctx, sw, stream)
	s.FinishReply(reply)
	if !completed {
		return
	}

	// Evaluate capture triggers on the finished turn. Live-channel clients
	// get the input request as an event; SSE clients get a frame before
	// [DONE].
	switch s.ObserveCapture(ctx) {
	case capture.ActionRequestName:
		_ = sw.SendData(inputEvent{InputRequested: "name"})
	case capture.ActionRequestEmail:
		_ = sw.SendData(inputEvent{InputRequested: "email"})
	}
	_ = sw.SendDone()
}

// pumpReply forwards deltas without terminating the SSE stream on normal
// completion; the capture frame and [DONE] may still follow. The second
// return value is false when the stream ended on error or cancellation, in
// which case the response is already terminated.
func (h SessionsHandler) pumpReply(ctx context.Context, sw *sse.Writer, stream *completion.Stream) (string, bool) {
	var full strings.Builder
	for {
		text, err := stream.Next()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				return full.String(), true
			case ctx.Err() != nil:
				return full.String(), false
			default:
				h.Logger.Error("session stream error", "error", err)
				_ = sw.SendData(errorEvent{Error: "Stream error"})
				return full.String(), false
			}
		}
		full.WriteString(text)
		if sendErr := sw.SendData(textEvent{Text: text}); sendErr != nil {
			return full.String(), false
		}
	}
}

type contactRequest struct {
	Field string `json:"field"` // "name" or "email"
	Value string `json:"value"`
}

type contactResponse struct {
	Accepted     bool   `json:"accepted"`
	CaptureState string `json:"capture_state"`
}

// Contact receives a structured name/email submission from the side
// channel. Empty values and out-of-order fields are rejected without side
// effects; a duplicate email submission cannot re-trigger extraction.
func (h SessionsHandler) Contact(w http.ResponseWriter, r *http.Request) {
	s, ok := h.Manager.Get(r.PathValue("id"))
	if !ok {
		apierror.Write(w, http.StatusNotFound, "Session not found")
		return
	}

	var req contactRequest
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.Write(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Value) == "" {
		apierror.Write(w, http.StatusBadRequest, "Value is required")
		return
	}

	var accepted bool
	switch req.Field {
	case "name":
		accepted = s.SubmitName(req.Value)
	case "email":
		var fireExtract bool
		accepted, fireExtract = s.SubmitEmail(req.Value)
		if fireExtract {
			go h.runExtraction(s)
		}
	default:
		apierror.Write(w, http.StatusBadRequest, "Unknown contact field")
		return
	}

	writeJSON(w, http.StatusOK, contactResponse{
		Accepted:     accepted,
		CaptureState: s.CaptureState().String(),
	})
}

// End terminates the session. Any in-flight reply stream is abandoned and
// nothing is appended afterward.
func (h SessionsHandler) End(w http.ResponseWriter, r *http.Request) {
	if !h.Manager.End(r.PathValue("id")) {
		apierror.Write(w, http.StatusNotFound, "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// runExtraction is the once-per-session extraction hand-off. It runs in the
// background off the request path: failure is logged for operators but
// silent to the prospect, and the conversation keeps running either way.
func (h SessionsHandler) runExtraction(s *session.Session) {
	if h.Extractor == nil || h.Store == nil {
		h.Logger.Warn("extraction skipped: extractor or store unavailable", "session_id", s.ID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.Config.ExtractTimeout)
	defer cancel()

	lead, err := h.Extractor.Extract(ctx, s.Transcript())
	if err != nil {
		h.Logger.Error("session lead extraction failed", "session_id", s.ID, "error", err)
		return
	}

	lead.Source = SessionSource
	lead.Timestamp = time.Now().UTC()

	stored, err := h.Store.AddLead(ctx, lead)
	if err != nil {
		h.Logger.Error("session lead persist failed", "session_id", s.ID, "error", err)
		return
	}

	if h.Dispatcher != nil && h.Dispatcher.Enabled() {
		h.Dispatcher.Enqueue(stored)
	}
	s.LeadCaptured(stored)

	h.Logger.Info("session lead captured",
		"session_id", s.ID,
		"lead_id", stored.ID,
		"score", stored.Score,
		"label", stored.ScoreLabel,
	)
}
