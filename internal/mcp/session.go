// ABOUTME: In-memory MCP session store with the initialize state machine
// ABOUTME: Sessions are GC'd by inactivity; active calls pin a session alive

package mcp

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session states. A session is created by initialize and lives until the
// client deletes it or the idle sweeper collects it.
const (
	stateUninitialized = iota
	stateInitialized
)

// Session tracks one authenticated client conversation.
type Session struct {
	id              string
	protocolVersion string
	capabilities    json.RawMessage
	clientName      string
	clientVersion   string
	ownerIdentity   string // authenticated identity that ran initialize
	createdAt       time.Time

	mu           sync.Mutex
	state        int
	lastActivity time.Time
	processing   int // in-flight tools/call count; no single-flight coalescing
}

// ID returns the session id carried in the Mcp-Session-Id header.
func (s *Session) ID() string { return s.id }

// touch records activity for idle GC.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// beginCall marks one tools/call in flight. Multiple calls may run
// concurrently on the same session, each with its own marker.
func (s *Session) beginCall() {
	s.mu.Lock()
	s.processing++
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// endCall clears one in-flight marker.
func (s *Session) endCall() {
	s.mu.Lock()
	s.processing--
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// initialized reports whether the session completed the handshake.
func (s *Session) initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateInitialized
}

// idleSince reports whether the session has been inactive past the cutoff.
// Sessions with calls in flight are never idle.
func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processing == 0 && s.lastActivity.Before(cutoff)
}

// sessionStore manages active MCP sessions in memory. A background
// sweeper collects sessions idle past the configured timeout.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	idleTimeout time.Duration
	done        chan struct{}
	closeOnce   sync.Once
	onEvict     func(id string)
}

// newSessionStore creates a session store. With idleTimeout > 0 a sweeper
// goroutine runs until Close.
func newSessionStore(idleTimeout time.Duration, onEvict func(id string)) *sessionStore {
	s := &sessionStore{
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
		done:        make(chan struct{}),
		onEvict:     onEvict,
	}
	if idleTimeout > 0 {
		go s.sweepLoop()
	}
	return s
}

// create adds a new initialized session.
func (s *sessionStore) create(protocolVersion string, caps json.RawMessage, client ClientInfo, ownerIdentity string) *Session {
	now := time.Now()
	sess := &Session{
		id:              uuid.New().String(),
		protocolVersion: protocolVersion,
		capabilities:    caps,
		clientName:      client.Name,
		clientVersion:   client.Version,
		ownerIdentity:   ownerIdentity,
		createdAt:       now,
		state:           stateInitialized,
		lastActivity:    now,
	}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess
}

// get returns the session and touches its activity clock.
func (s *sessionStore) get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		sess.touch()
	}
	return sess, ok
}

// delete removes a session. Reports whether it existed.
func (s *sessionStore) delete(id string) bool {
	s.mu.Lock()
	_, existed := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	return existed
}

// count returns the number of live sessions.
func (s *sessionStore) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// sweepLoop periodically evicts idle sessions.
func (s *sessionStore) sweepLoop() {
	interval := s.idleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(time.Now().Add(-s.idleTimeout))
		case <-s.done:
			return
		}
	}
}

// sweep evicts sessions idle since before cutoff.
func (s *sessionStore) sweep(cutoff time.Time) {
	var evicted []string
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.idleSince(cutoff) {
			delete(s.sessions, id)
			evicted = append(evicted, id)
		}
	}
	s.mu.Unlock()

	if s.onEvict != nil {
		for _, id := range evicted {
			s.onEvict(id)
		}
	}
}

// Close stops the sweeper. Safe to call multiple times.
func (s *sessionStore) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
