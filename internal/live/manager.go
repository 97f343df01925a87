// Package live serves the dashboard page over a WebSocket: each connection
// owns the page's task view and its chat and voice assistant widgets.
package live

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// SessionManager tracks the open page connections of every user.
type SessionManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// Count returns how many pages the user has open.
func (m *SessionManager) Count(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active[userID])
}

// Register adds a page connection for a user.
func (m *SessionManager) Register(userID, pageID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]*websocket.Conn)
	}
	if existing, exists := m.active[userID][pageID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "page replaced")
	}

	m.active[userID][pageID] = conn
	slog.Info("Live page registered", "user_id", userID, "page_id", pageID)
}

// Unregister removes a page connection. A connection that has already been
// replaced is left alone.
func (m *SessionManager) Unregister(userID, pageID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pages, ok := m.active[userID]; ok {
		if current, exists := pages[pageID]; exists && current == conn {
			delete(pages, pageID)
			if len(pages) == 0 {
				delete(m.active, userID)
			}
			slog.Info("Live page unregistered", "user_id", userID, "page_id", pageID)
		}
	}
}

// CloseUser closes every open page of a user, e.g. after sign-out.
func (m *SessionManager) CloseUser(userID string) {
	m.mu.Lock()
	pages := m.active[userID]
	delete(m.active, userID)
	m.mu.Unlock()

	for pid, conn := range pages {
		_ = conn.Close(websocket.StatusPolicyViolation, "signed out")
		slog.Info("Live page closed", "user_id", userID, "page_id", pid)
	}
}
