package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/laibashaikh28/twee-webapp/internal/auth"
)

var ErrSessionNotFound = errors.New("session not found")

type entry struct {
	session  *Session
	hub      *auth.Hub
	owner    string
	lastSeen time.Time
}

// Manager keeps the server-side sessions of connected clients. Each session
// gets its own auth hub, fed with the identity verified from the client's
// requests.
type Manager struct {
	mu          sync.Mutex
	sessions    map[string]*entry
	profiles    ProfileStore
	idleTimeout time.Duration
	log         *zap.Logger
	now         func() time.Time
}

func NewManager(profiles ProfileStore, idleTimeout time.Duration, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		sessions:    make(map[string]*entry),
		profiles:    profiles,
		idleTimeout: idleTimeout,
		log:         log,
		now:         time.Now,
	}
}

// Create mounts a new session signed in as u and returns its id.
func (m *Manager) Create(u auth.User) (string, *Session) {
	hub := auth.NewHub()
	hub.SignIn(u)

	id := uuid.NewString()
	sess := New(hub, m.profiles, m.log.With(zap.String("session_id", id)))

	m.mu.Lock()
	m.sessions[id] = &entry{session: sess, hub: hub, owner: u.UID, lastSeen: m.now()}
	m.mu.Unlock()

	m.log.Info("session created", zap.String("session_id", id), zap.String("user_id", u.UID))
	return id, sess
}

// Get returns the session if it exists and belongs to userID.
func (m *Manager) Get(id, userID string) (*Session, error) {
	e, err := m.lookup(id, userID)
	if err != nil {
		return nil, err
	}
	return e.session, nil
}

// SignIn publishes a sign-in on the session's hub, possibly as a different user.
func (m *Manager) SignIn(id, ownerID string, u auth.User) error {
	e, err := m.lookup(id, ownerID)
	if err != nil {
		return err
	}
	e.hub.SignIn(u)

	m.mu.Lock()
	e.owner = u.UID
	m.mu.Unlock()
	return nil
}

// SignOut publishes a sign-out on the session's hub. The session stays mounted.
func (m *Manager) SignOut(id, userID string) error {
	e, err := m.lookup(id, userID)
	if err != nil {
		return err
	}
	e.hub.SignOut()
	return nil
}

// Remove closes and forgets the session.
func (m *Manager) Remove(id, userID string) error {
	e, err := m.lookup(id, userID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	e.session.Close()
	m.log.Info("session removed", zap.String("session_id", id))
	return nil
}

func (m *Manager) lookup(id, userID string) (*entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok || e.owner != userID {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = m.now()
	return e, nil
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ReapIdle closes sessions not used within the idle timeout and returns how
// many were closed.
func (m *Manager) ReapIdle() int {
	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.Lock()
	var idle []*entry
	for id, e := range m.sessions {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, e)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, e := range idle {
		e.session.Close()
	}
	if len(idle) > 0 {
		m.log.Info("reaped idle sessions", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Run reaps idle sessions until ctx ends, then closes all remaining sessions.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.ReapIdle()
		case <-ctx.Done():
			m.CloseAll()
			return
		}
	}
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*entry, 0, len(m.sessions))
	for id, e := range m.sessions {
		all = append(all, e)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, e := range all {
		e.session.Close()
	}
}
