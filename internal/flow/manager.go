package flow

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/punchamoorthee/billpay/internal/gateway"
)

// Manager owns the live sessions, one per user interaction context. Sessions
// never share state; the registry only maps ids to exclusively-owned sessions.
type Manager struct {
	mu       sync.RWMutex
	gw       Gateway
	log      *zap.Logger
	sessions map[string]*Session
}

func NewManager(gw Gateway, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		gw:       gw,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session bound to the caller's credential and returns
// its id.
func (m *Manager) Create(cred gateway.Credential) (string, *Session) {
	id := uuid.NewString()
	s := NewSession(m.gw, cred, m.log.With(zap.String("session_id", id)))

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.log.Info("session created", zap.String("session_id", id))
	return id, s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove drops a session. The session is reset first so any in-flight call's
// result is discarded rather than applied to a dead session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Reset()
		m.log.Info("session removed", zap.String("session_id", id))
	}
}
