package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/dome317/lead-intelligence-bot/pkg/gateway/config"
	gatewayserver "github.com/dome317/lead-intelligence-bot/pkg/gateway/server"
)

func testServerConfig() config.Config {
	return config.Config{
		Addr:               "127.0.0.1:0",
		CORSAllowedOrigins: map[string]struct{}{},
		ClassifierMode:     config.ClassifierKeyword,
		SessionIdleTTL:     time.Hour,

		MaxBodyBytes: 1 << 20,
		MaxMessages:  64,

		SSEMaxStreamDuration: time.Minute,
		ExtractTimeout:       time.Minute,
		ReadHeaderTimeout:    time.Second,
		ReadTimeout:          time.Second,
		ShutdownGracePeriod:  time.Second,
	}
}

func TestRunMainReturnsNonZeroWhenConfigLoadFails(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	exitCode := runMain(context.Background(), &stderr, botDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{}, errors.New("boom")
		},
		newGateway: func(cfg config.Config, logger *slog.Logger) *gatewayserver.Server {
			t.Fatal("newGateway should not be called when config load fails")
			return nil
		},
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {},
		signalStop:   func(c chan<- os.Signal) {},
	})

	if exitCode != 1 {
		t.Fatalf("exitCode=%d, want 1", exitCode)
	}
	if stderr.String() == "" {
		t.Fatal("expected stderr output for startup error")
	}
}

func TestBuildHTTPServerUsesConfiguredTimeouts(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Addr:              "127.0.0.1:9999",
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       3 * time.Second,
	}
	srv := buildHTTPServer(cfg, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	if srv.Addr != cfg.Addr {
		t.Fatalf("Addr=%q, want %q", srv.Addr, cfg.Addr)
	}
	if srv.ReadHeaderTimeout != cfg.ReadHeaderTimeout || srv.ReadTimeout != cfg.ReadTimeout {
		t.Fatalf("timeouts = %v %v", srv.ReadHeaderTimeout, srv.ReadTimeout)
	}
}

func TestRunBotShutsDownOnSignal(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sigCh := make(chan chan<- os.Signal, 1)
	deps := botDeps{
		loadConfig: func() (config.Config, error) { return testServerConfig(), nil },
		newGateway: gatewayserver.New,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			sigCh <- c
		},
		signalStop: func(c chan<- os.Signal) {},
	}

	done := make(chan error, 1)
	go func() { done <- runBot(context.Background(), logger, deps) }()

	select {
	case c := <-sigCh:
		// Give the listener a beat to start, then deliver the signal.
		time.Sleep(100 * time.Millisecond)
		c <- syscall.SIGTERM
	case <-time.After(5 * time.Second):
		t.Fatal("signal channel never registered")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runBot: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("runBot did not shut down after signal")
	}
}

func TestGatewayHandlerStackSmoke(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := gatewayserver.New(testServerConfig(), logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		gw.Close(ctx)
	}()

	rr := httptest.NewRecorder()
	gw.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}
