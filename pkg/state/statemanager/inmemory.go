package statemanager

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ayushsoni02/Canvas-Flow/pkg/state"
	"github.com/google/uuid"
)

// InMemoryManager keeps every live connection in a single map guarded by one
// mutex. Membership queries filter that map rather than maintaining per-room
// collections, so a connection can never be half-removed from one view.
type InMemoryManager struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]*state.Connection

	logger *slog.Logger
}

func NewInMemoryManager(logger *slog.Logger) *InMemoryManager {
	return &InMemoryManager{
		conns:  make(map[uuid.UUID]*state.Connection),
		logger: logger.With(slog.String("component", "state_manager_inmemory")),
	}
}

// compile-time check to ensure InMemoryManager implements Manager.
var _ state.Manager = (*InMemoryManager)(nil)

func (m *InMemoryManager) RegisterConnection(t state.Transport, ident state.Identity) (*state.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	connID := t.ID()
	if _, exists := m.conns[connID]; exists {
		return nil, errors.New("connection is already registered")
	}
	conn := &state.Connection{
		ID:        connID,
		Identity:  ident,
		Transport: t,
		Rooms:     make(map[string]struct{}),
		CreatedAt: time.Now(),
	}
	m.conns[connID] = conn
	m.logger.Debug("Connection registered", slog.String("connID", connID.String()), slog.String("userID", ident.UserID))
	return conn, nil
}

func (m *InMemoryManager) DeregisterConnection(connID uuid.UUID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		// already deregistered
		return nil, nil
	}
	delete(m.conns, connID)

	rooms := make([]string, 0, len(conn.Rooms))
	for roomID := range conn.Rooms {
		rooms = append(rooms, roomID)
	}
	sort.Strings(rooms)

	m.logger.Debug("Connection deregistered", slog.String("connID", connID.String()), slog.Int("rooms", len(rooms)))
	return rooms, nil
}

func (m *InMemoryManager) GetConnection(connID uuid.UUID) (*state.Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.conns[connID]
	return conn, ok
}

func (m *InMemoryManager) AllConnections() []*state.Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conns := make([]*state.Connection, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	return conns
}

func (m *InMemoryManager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

func (m *InMemoryManager) UserConnectionCount(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, c := range m.conns {
		if c.Identity.UserID == userID {
			count++
		}
	}
	return count
}

func (m *InMemoryManager) FindOldestUserConnection(userID string) (*state.Connection, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var oldest *state.Connection
	for _, c := range m.conns {
		if c.Identity.UserID != userID {
			continue
		}
		if oldest == nil || c.CreatedAt.Before(oldest.CreatedAt) {
			oldest = c
		}
	}
	return oldest, oldest != nil
}

func (m *InMemoryManager) Join(connID uuid.UUID, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		return errors.New("cannot join room: connection not found")
	}
	if _, already := conn.Rooms[roomID]; already {
		// re-join is a no-op for membership
		return nil
	}
	conn.Rooms[roomID] = struct{}{}
	m.logger.Debug("Connection joined room", slog.String("connID", connID.String()), slog.String("roomID", roomID))
	return nil
}

func (m *InMemoryManager) Leave(connID uuid.UUID, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		return errors.New("cannot leave room: connection not found")
	}
	delete(conn.Rooms, roomID)
	m.logger.Debug("Connection left room", slog.String("connID", connID.String()), slog.String("roomID", roomID))
	return nil
}

func (m *InMemoryManager) RoomMembers(roomID string) []*state.Connection {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var members []*state.Connection
	for _, c := range m.conns {
		if _, in := c.Rooms[roomID]; in {
			members = append(members, c)
		}
	}
	return members
}

func (m *InMemoryManager) Presence(roomID string) []state.PresenceEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	var entries []state.PresenceEntry
	for _, c := range m.conns {
		if _, in := c.Rooms[roomID]; !in {
			continue
		}
		if _, dup := seen[c.Identity.UserID]; dup {
			continue
		}
		seen[c.Identity.UserID] = struct{}{}
		entries = append(entries, state.PresenceEntry{
			UserID: c.Identity.UserID,
			Name:   c.Identity.Name,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UserID < entries[j].UserID })
	return entries
}
