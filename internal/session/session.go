// Package session owns per-conversation state and orchestrates the
// turn-taking cycle between the user, the order pipeline, and the language
// model collaborator. All session state lives in an explicit Session value;
// nothing is kept in ambient globals.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"concierge/internal/cart"
	"concierge/internal/finder"
	"concierge/internal/ledger"
	"concierge/internal/llm"
)

// Session is the isolated state of one conversation. Turns within a session
// are strictly sequential: the mutex is held for a whole turn, including the
// blocking model call. Separate sessions never share state.
type Session struct {
	ID        string
	CreatedAt time.Time

	Cart       *cart.Cart
	Ledger     *ledger.Ledger
	Transcript []llm.Message

	// Dynamic-menu context: the matched restaurant list, the currently
	// selected restaurant, and its parsed menu.
	Matched    []string
	Restaurant string
	Menu       []finder.MenuItem

	mu sync.Mutex
}

// Lock serializes a turn against the session. Callers must Unlock when the
// turn completes.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session after a turn.
func (s *Session) Unlock() { s.mu.Unlock() }

// AppendMessage adds one message to the transcript. The transcript is
// append-only and replayed wholesale to the model each turn.
func (s *Session) AppendMessage(role, content string) {
	s.Transcript = append(s.Transcript, llm.Message{Role: role, Content: content})
}

// Manager is the registry of live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty session registry.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create registers a new empty session and returns it.
func (m *Manager) Create() *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Cart:      cart.New(),
		Ledger:    ledger.New(),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session with the given id, or false if unknown.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete removes a session from the registry.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
