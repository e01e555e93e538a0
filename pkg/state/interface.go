package state

import "github.com/google/uuid"

// Manager owns all live-connection state. Room membership is always derived
// by filtering connections; there is no separately maintained room collection
// to drift out of sync.
type Manager interface {
	// --- Connection Lifecycle ---
	RegisterConnection(t Transport, ident Identity) (*Connection, error)
	// DeregisterConnection removes the connection and returns the rooms it had
	// joined, atomically, so departure fan-out can run after removal without a
	// concurrent lookup ever seeing a half-removed connection.
	DeregisterConnection(connID uuid.UUID) ([]string, error)
	GetConnection(connID uuid.UUID) (*Connection, bool)
	AllConnections() []*Connection
	ConnectionCount() int

	// --- Per-user accounting (connection limit middleware) ---
	UserConnectionCount(userID string) int
	FindOldestUserConnection(userID string) (*Connection, bool)

	// --- Room Membership ---
	// Join is idempotent; joining a room twice is a no-op.
	Join(connID uuid.UUID, roomID string) error
	Leave(connID uuid.UUID, roomID string) error
	RoomMembers(roomID string) []*Connection
	// Presence returns one entry per distinct identity joined to the room,
	// ordered by user id.
	Presence(roomID string) []PresenceEntry
}
