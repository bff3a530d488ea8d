package session

import (
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"docqa-be/internal/pkg/logger"
)

// Manager owns the id -> session mapping. It is the only structure touched
// by multiple sessions' control paths; each session's internals stay
// exclusively owned by that session.
//
// Attached sessions live without expiration. When the channel detaches the
// entry is demoted to a TTL, and eviction closes the session if nobody
// reconnected in time.
type Manager struct {
	sessions  *gocache.Cache
	detachTTL time.Duration
	logger    logger.ILogger
}

func NewManager(detachTTL time.Duration, log logger.ILogger) *Manager {
	c := gocache.New(gocache.NoExpiration, time.Minute)
	m := &Manager{
		sessions:  c,
		detachTTL: detachTTL,
		logger:    log,
	}
	c.OnEvicted(func(id string, v interface{}) {
		if sess, ok := v.(*Session); ok {
			sess.Close()
			m.logger.Info("SessionManager", "Session evicted and closed", map[string]interface{}{"session_id": id})
		}
	})
	return m
}

// Create registers a new Idle session and returns it.
func (m *Manager) Create() *Session {
	sess := newSession()
	m.sessions.Set(sess.ID.String(), sess, gocache.NoExpiration)
	m.logger.Info("SessionManager", "Session created", map[string]interface{}{"session_id": sess.ID})
	return sess
}

// Get looks up a session by id.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	v, found := m.sessions.Get(id.String())
	if !found {
		return nil, ErrNotFound
	}
	return v.(*Session), nil
}

// Close tears down a session and removes it from the registry. Idempotent.
func (m *Manager) Close(id uuid.UUID) {
	// Delete fires OnEvicted, which closes the session.
	m.sessions.Delete(id.String())
}

// MarkDetached starts the detach grace period for a session whose channel
// closed. If no reconnection happens before the TTL the session is closed.
func (m *Manager) MarkDetached(id uuid.UUID) {
	v, found := m.sessions.Get(id.String())
	if !found {
		return
	}
	m.sessions.Set(id.String(), v, m.detachTTL)
	m.logger.Info("SessionManager", "Session detached, close scheduled", map[string]interface{}{
		"session_id": id,
		"ttl":        m.detachTTL.String(),
	})
}

// MarkAttached cancels a pending detach-close after a reconnect.
func (m *Manager) MarkAttached(id uuid.UUID) {
	v, found := m.sessions.Get(id.String())
	if !found {
		return
	}
	m.sessions.Set(id.String(), v, gocache.NoExpiration)
}

// Count reports the number of live sessions.
func (m *Manager) Count() int {
	return m.sessions.ItemCount()
}
