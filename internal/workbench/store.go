package workbench

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/syedazmehaider/maxlife-diet-planner/internal/logger"
)

// Store keeps form sessions in memory. Nothing survives a restart.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	backend  Backend
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(backend Backend, ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		backend:  backend,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create starts a fresh session with a new random ID for owner.
func (st *Store) Create(owner string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.create(owner)
}

func (st *Store) create(owner string) *Session {
	sess := newSession(uuid.New().String(), st.backend, st.now)
	sess.owner = owner
	st.sessions[sess.id] = sess
	return sess
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[id]
	return sess, ok
}

// GetOrCreate returns the session for id when it belongs to owner. An
// unknown or expired id gets a new session; one owned by someone else is
// discarded and replaced. The bool reports whether a new session was created.
func (st *Store) GetOrCreate(id, owner string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if sess, ok := st.sessions[id]; ok && id != "" {
		if sess.owner == owner {
			return sess, false
		}
		delete(st.sessions, id)
	}
	return st.create(owner), true
}

// Delete discards a session, the equivalent of reloading the page.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep evicts sessions idle for longer than the TTL. Sessions with a
// request in flight are kept.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.now().Add(-st.ttl)
	removed := 0
	for id, sess := range st.sessions {
		lastSeen, busy := sess.idleSince()
		if busy || lastSeen.After(cutoff) {
			continue
		}
		delete(st.sessions, id)
		removed++
	}
	return removed
}

// Run sweeps on every tick until ctx is cancelled.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				logger.Debug("expired sessions removed", zap.Int("count", n), zap.Int("active", st.Len()))
			}
		}
	}
}
