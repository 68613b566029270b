package session

import (
	"sync"
	"time"
)

// Session holds the ordered message log of one conversation.
//
// Safe for concurrent use. Messages() returns a copy so callers can iterate
// without holding the session lock.
type Session struct {
	key string

	mu        sync.RWMutex
	messages  []Message
	createdAt time.Time
	updatedAt time.Time
}

// Key returns the opaque session key.
func (s *Session) Key() string {
	return s.key
}

// Append adds messages to the end of the log.
func (s *Session) Append(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
	s.updatedAt = time.Now()
}

// Messages returns a copy of the message log.
func (s *Session) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Clear removes all messages but keeps the session alive.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.updatedAt = time.Now()
}

// UpdatedAt returns the time of the last mutation.
func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// Store maps session keys to live sessions, creating them on first use.
//
// Safe for concurrent use by multiple goroutines; each session is
// independently locked so concurrent conversations do not contend.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Get returns the session for key, creating it if it does not exist.
func (st *Store) Get(key string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[key]; ok {
		return s
	}
	now := time.Now()
	s := &Session{key: key, createdAt: now, updatedAt: now}
	st.sessions[key] = s
	return s
}

// Reset discards the session for key, if any.
// The next Get with the same key starts a fresh conversation.
func (st *Store) Reset(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, key)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
