package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dome317/lead-intelligence-bot/pkg/avatar"
)

func TestAvatarSessionHandler(t *testing.T) {
	t.Parallel()
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/auth/session-token" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer vendor-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req struct {
			PersonaConfig struct {
				Name         string `json:"name"`
				SystemPrompt string `json:"systemPrompt"`
			} `json:"personaConfig"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.PersonaConfig.Name != "Alex" || req.PersonaConfig.SystemPrompt == "" {
			t.Errorf("persona config = %+v", req.PersonaConfig)
		}
		_, _ = io.WriteString(w, `{"sessionToken":"tok_123"}`)
	}))
	defer vendor.Close()

	h := AvatarSessionHandler{
		Avatar: avatar.New("vendor-key", avatar.WithBaseURL(vendor.URL)),
		Logger: testLogger(),
	}

	req := httptest.NewRequest(http.MethodPost, "/api/avatar-session", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"sessionToken":"tok_123"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestAvatarSessionHandlerMissingCredential(t *testing.T) {
	t.Parallel()
	h := AvatarSessionHandler{Logger: testLogger()}
	req := httptest.NewRequest(http.MethodPost, "/api/avatar-session", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ANAM_API_KEY not configured") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestAvatarSessionHandlerVendorFailure(t *testing.T) {
	t.Parallel()
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer vendor.Close()

	h := AvatarSessionHandler{
		Avatar: avatar.New("bad-key", avatar.WithBaseURL(vendor.URL)),
		Logger: testLogger(),
	}
	req := httptest.NewRequest(http.MethodPost, "/api/avatar-session", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Failed to create session token") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
