package core

import (
	"sync"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ConversationTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionStore keeps per-session conversation history in memory, bounded to
// the most recent maxTurns turns per session (oldest evicted first). Sessions
// live for the lifetime of the process.
type SessionStore struct {
	mu       sync.Mutex
	maxTurns int
	sessions map[string]*sessionHistory
}

// sessionHistory carries its own lock so appends for one session serialize
// without blocking other sessions.
type sessionHistory struct {
	mu    sync.Mutex
	turns []ConversationTurn
}

func NewSessionStore(maxTurns int) *SessionStore {
	return &SessionStore{
		maxTurns: maxTurns,
		sessions: make(map[string]*sessionHistory),
	}
}

func (s *SessionStore) session(sessionID string) *sessionHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.sessions[sessionID]
	if !ok {
		h = &sessionHistory{}
		s.sessions[sessionID] = h
	}
	return h
}

// Append adds a turn to the session's history, creating the session on first
// use and evicting the oldest turn once the retention bound is exceeded.
func (s *SessionStore) Append(sessionID string, turn ConversationTurn) {
	h := s.session(sessionID)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
	if len(h.turns) > s.maxTurns {
		h.turns = h.turns[len(h.turns)-s.maxTurns:]
	}
}

// History returns the retained window for a session in chronological order.
// Unknown session ids yield an empty slice, not an error.
func (s *SessionStore) History(sessionID string) []ConversationTurn {
	s.mu.Lock()
	h, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return []ConversationTurn{}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ConversationTurn(nil), h.turns...)
}
