package serial

import (
	"context"
	"fmt"
	"sync"

	"github.com/dayuer/satoshi-bridge/internal/bus"
)

// Manager owns both bridge connections. Each connection reconnects on its own
// schedule; the failure of one never affects the other.
type Manager struct {
	mu    sync.RWMutex
	conns map[string]*Conn
	bus   *bus.Bus
}

// NewManager creates an empty manager.
func NewManager(evBus *bus.Bus) *Manager {
	return &Manager{
		conns: make(map[string]*Conn),
		bus:   evBus,
	}
}

// Register adds a connection for its role.
func (m *Manager) Register(cfg Config, dial Dialer) *Conn {
	conn := NewConn(cfg, dial, m.bus)
	m.mu.Lock()
	m.conns[cfg.Role] = conn
	m.mu.Unlock()
	return conn
}

// Get returns the connection for a role, or nil.
func (m *Manager) Get(role string) *Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conns[role]
}

// Write sends a line on the named connection, queueing if not Ready.
func (m *Manager) Write(role, line string) error {
	conn := m.Get(role)
	if conn == nil {
		return fmt.Errorf("serial: unknown connection %q", role)
	}
	return conn.Write(line)
}

// StartAll starts every connection's reconnect loop.
func (m *Manager) StartAll(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, conn := range m.conns {
		conn.Start(ctx)
	}
}

// WaitAll blocks until every connection loop has stopped.
func (m *Manager) WaitAll() {
	m.mu.RLock()
	conns := make([]*Conn, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.RUnlock()
	for _, c := range conns {
		c.Wait()
	}
}

// States reports the lifecycle state of every connection.
func (m *Manager) States() map[string]State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	states := make(map[string]State, len(m.conns))
	for role, conn := range m.conns {
		states[role] = conn.State()
	}
	return states
}
