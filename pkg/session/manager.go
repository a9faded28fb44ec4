package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dome317/lead-intelligence-bot/pkg/capture"
)

// DefaultIdleTTL evicts sessions with no activity for this long.
const DefaultIdleTTL = 30 * time.Minute

// sweepInterval is how often the background sweeper runs.
const sweepInterval = time.Minute

// Manager owns all live sessions in the process.
type Manager struct {
	classifier capture.TurnClassifier
	greeting   string
	idleTTL    time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. Every new session's transcript is seeded
// with the greeting as the opening agent turn.
func NewManager(classifier capture.TurnClassifier, greeting string, idleTTL time.Duration, logger *slog.Logger) *Manager {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		classifier: classifier,
		greeting:   greeting,
		idleTTL:    idleTTL,
		logger:     logger,
		sessions:   make(map[string]*Session),
	}
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	s := newSession("sess_"+uuid.NewString(), m.classifier, m.greeting)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get looks up a live session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// End terminates and removes a session. Reports whether it existed.
func (m *Manager) End(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.End()
	}
	return ok
}

// Len returns the live session count.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep evicts sessions idle past the TTL and returns how many it ended.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastActive) > m.idleTTL
		s.mu.Unlock()
		if idle {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.End()
	}
	if len(stale) > 0 {
		m.logger.Info("swept idle sessions", "count", len(stale))
	}
	return len(stale)
}

// Run sweeps periodically until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

// CloseAll ends every session; used during graceful shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.End()
	}
}
