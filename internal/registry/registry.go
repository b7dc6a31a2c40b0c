// Package registry tracks live protocol sessions so operators can inspect
// what is running and with which parameters. The backing store is redis; an
// in-memory implementation serves tests and single-process runs.
package registry

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSessionNotFound is returned when a session is not in the registry.
var ErrSessionNotFound = errors.New("session not found")

// SessionStatus is the lifecycle state of a registered session.
type SessionStatus string

const (
	StatusActive   SessionStatus = "active"
	StatusDraining SessionStatus = "draining"
	StatusClosed   SessionStatus = "closed"
	StatusFailed   SessionStatus = "failed"
)

// Role distinguishes the two endpoint kinds.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// Session is one registered protocol endpoint and its latest counters.
type Session struct {
	ID            string        `json:"id"`
	Role          Role          `json:"role"`
	Status        SessionStatus `json:"status"`
	RemoteAddr    string        `json:"remote_addr,omitempty"`
	WindowSize    int           `json:"window_size"`
	TimeoutMs     int64         `json:"timeout_ms"`
	CreatedAt     time.Time     `json:"created_at"`
	LastHeartbeat time.Time     `json:"last_heartbeat"`
	Stats         SessionStats  `json:"stats"`
}

// SessionStats is the counter snapshot stored with a session. Sender and
// receiver sessions populate their own halves.
type SessionStats struct {
	PacketsSent       uint64 `json:"packets_sent,omitempty"`
	PacketsLost       uint64 `json:"packets_lost,omitempty"`
	Retransmissions   uint64 `json:"retransmissions,omitempty"`
	AcksReceived      uint64 `json:"acks_received,omitempty"`
	TimeoutsOccurred  uint64 `json:"timeouts_occurred,omitempty"`
	PacketsReceived   uint64 `json:"packets_received,omitempty"`
	PacketsInOrder    uint64 `json:"packets_in_order,omitempty"`
	PacketsOutOfOrder uint64 `json:"packets_out_of_order,omitempty"`
	AcksSent          uint64 `json:"acks_sent,omitempty"`
	AcksLost          uint64 `json:"acks_lost,omitempty"`
}

// Registry stores and retrieves session records.
type Registry interface {
	// Register adds a session. Registering an existing ID refreshes it but
	// preserves CreatedAt.
	Register(ctx context.Context, session *Session) error

	// Unregister removes a session by ID.
	Unregister(ctx context.Context, sessionID string) error

	// Get retrieves a session by ID.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// List returns all registered sessions.
	List(ctx context.Context) ([]*Session, error)

	// UpdateHeartbeat refreshes a session's liveness timestamp and TTL.
	UpdateHeartbeat(ctx context.Context, sessionID string) error

	// UpdateStatus transitions a session's lifecycle state.
	UpdateStatus(ctx context.Context, sessionID string, status SessionStatus) error

	// UpdateStats stores a fresh counter snapshot.
	UpdateStats(ctx context.Context, sessionID string, stats SessionStats) error

	// Close releases any resources held by the registry.
	Close() error
}

// MemoryRegistry is a map-backed Registry for tests and single-process runs.
type MemoryRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{sessions: make(map[string]*Session)}
}

func (m *MemoryRegistry) Register(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[session.ID]; ok {
		session.CreatedAt = existing.CreatedAt
	} else if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	session.LastHeartbeat = time.Now()
	m.sessions[session.ID] = session
	return nil
}

func (m *MemoryRegistry) Unregister(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryRegistry) Get(ctx context.Context, sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *MemoryRegistry) List(ctx context.Context) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		copied := *s
		sessions = append(sessions, &copied)
	}
	return sessions, nil
}

func (m *MemoryRegistry) UpdateHeartbeat(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	session.LastHeartbeat = time.Now()
	return nil
}

func (m *MemoryRegistry) UpdateStatus(ctx context.Context, sessionID string, status SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	session.Status = status
	session.LastHeartbeat = time.Now()
	return nil
}

func (m *MemoryRegistry) UpdateStats(ctx context.Context, sessionID string, stats SessionStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	session.Stats = stats
	session.LastHeartbeat = time.Now()
	return nil
}

func (m *MemoryRegistry) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string]*Session)
	return nil
}
