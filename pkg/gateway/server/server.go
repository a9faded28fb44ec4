// Package server assembles the gateway: upstream clients, store selection,
// the session manager, the dispatch worker, and the HTTP routes.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dome317/lead-intelligence-bot/pkg/avatar"
	"github.com/dome317/lead-intelligence-bot/pkg/capture"
	"github.com/dome317/lead-intelligence-bot/pkg/completion"
	"github.com/dome317/lead-intelligence-bot/pkg/dispatch"
	"github.com/dome317/lead-intelligence-bot/pkg/extract"
	"github.com/dome317/lead-intelligence-bot/pkg/gateway/config"
	"github.com/dome317/lead-intelligence-bot/pkg/gateway/handlers"
	"github.com/dome317/lead-intelligence-bot/pkg/gateway/mw"
	"github.com/dome317/lead-intelligence-bot/pkg/persona"
	"github.com/dome317/lead-intelligence-bot/pkg/session"
	"github.com/dome317/lead-intelligence-bot/pkg/store"
)

// startupPingTimeout bounds the one-time Redis connectivity check.
const startupPingTimeout = 3 * time.Second

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	completion *completion.Client // nil without a credential
	avatar     *avatar.Client     // nil without a credential
	extractor  *extract.Extractor // nil without a completion client

	store        store.Store
	storeBackend string
	redis        *store.RedisStore // non-nil only when the redis backend is selected
	manager      *session.Manager
	dispatcher   *dispatch.Dispatcher
}

// New wires the full gateway. The store backend is selected exactly once
// here: REDIS_URL present means redis, otherwise the in-process store. A
// redis store that fails its startup ping is still selected; the failure is
// logged and surfaced per request.
func New(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	if cfg.CompletionAPIKey != "" {
		var opts []completion.Option
		if cfg.CompletionBaseURL != "" {
			opts = append(opts, completion.WithBaseURL(cfg.CompletionBaseURL))
		}
		if cfg.CompletionModel != "" {
			opts = append(opts, completion.WithModel(cfg.CompletionModel))
		}
		s.completion = completion.New(cfg.CompletionAPIKey, opts...)
		s.extractor = extract.New(s.completion)
	}

	if cfg.AvatarAPIKey != "" {
		var opts []avatar.Option
		if cfg.AvatarBaseURL != "" {
			opts = append(opts, avatar.WithBaseURL(cfg.AvatarBaseURL))
		}
		s.avatar = avatar.New(cfg.AvatarAPIKey, opts...)
	}

	s.store, s.storeBackend = selectStore(cfg, logger)
	if rs, ok := s.store.(*store.RedisStore); ok {
		s.redis = rs
	}

	var classifier capture.TurnClassifier = capture.KeywordClassifier{}
	if cfg.ClassifierMode == config.ClassifierModel && s.completion != nil {
		classifier = capture.CompletionClassifier{Client: s.completion}
	}

	s.manager = session.NewManager(classifier, persona.Greeting, cfg.SessionIdleTTL, logger)

	s.dispatcher = dispatch.New(dispatch.Options{
		WebhookURL:      cfg.WebhookURL,
		SlackWebhookURL: cfg.SlackWebhookURL,
		QueueSize:       cfg.DispatchQueueSize,
		Logger:          logger,
		Store:           s.store,
	})

	s.routes()
	return s
}

func selectStore(cfg config.Config, logger *slog.Logger) (store.Store, string) {
	if cfg.RedisURL == "" {
		logger.Info("using in-process lead store")
		return store.NewMemory(), "memory"
	}

	rs, err := store.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Error("redis store unavailable, falling back to in-process store", "error", err)
		return store.NewMemory(), "memory"
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupPingTimeout)
	defer cancel()
	if err := rs.Ping(ctx); err != nil {
		logger.Warn("redis ping failed at startup", "error", err)
	}
	logger.Info("using redis lead store")
	return rs, "redis"
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Config: s.cfg, StoreBackend: s.storeBackend})

	s.mux.Handle("/api/chat", handlers.ChatHandler{
		Config:     s.cfg,
		Completion: s.completion,
		Logger:     s.logger,
	})
	s.mux.Handle("/api/extract-lead", handlers.ExtractLeadHandler{
		Config:     s.cfg,
		Extractor:  s.extractor,
		Store:      s.store,
		Dispatcher: s.dispatcher,
		Logger:     s.logger,
		Source:     "chat",
	})
	s.mux.Handle("/api/leads", handlers.LeadsHandler{
		Store:  s.store,
		Logger: s.logger,
	})
	s.mux.Handle("/api/avatar-session", handlers.AvatarSessionHandler{
		Avatar: s.avatar,
		Logger: s.logger,
	})

	sh := handlers.SessionsHandler{
		Config:     s.cfg,
		Manager:    s.manager,
		Completion: s.completion,
		Extractor:  s.extractor,
		Store:      s.store,
		Dispatcher: s.dispatcher,
		Logger:     s.logger,
	}
	s.mux.HandleFunc("POST /api/sessions", sh.Create)
	s.mux.HandleFunc("GET /api/sessions/{id}", sh.Get)
	s.mux.HandleFunc("POST /api/sessions/{id}/messages", sh.Message)
	s.mux.HandleFunc("POST /api/sessions/{id}/contact", sh.Contact)
	s.mux.HandleFunc("DELETE /api/sessions/{id}", sh.End)

	s.mux.Handle("GET /api/sessions/{id}/live", handlers.LiveHandler{
		Manager:        s.manager,
		Logger:         s.logger,
		AllowedOrigins: s.cfg.CORSAllowedOrigins,
	})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.CORS(s.cfg.CORSAllowedOrigins, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// Run drives the session idle sweeper until ctx is cancelled.
func (s *Server) Run(ctx context.Context) {
	s.manager.Run(ctx)
}

// Close drains for shutdown: ends every session so live channels close,
// lets the dispatch worker finish queued forwards within ctx, then releases
// the store.
func (s *Server) Close(ctx context.Context) {
	s.manager.CloseAll()
	s.dispatcher.Close(ctx)
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("redis close failed", "error", err)
		}
	}
}
