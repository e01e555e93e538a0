package state

import (
	"time"

	"github.com/google/uuid"
)

// Identity is derived once from the verified credential at connect time and
// never changes for the connection's lifetime.
type Identity struct {
	UserID string
	Name   string
}

// Transport is the only channel through which a connection can be sent data.
type Transport interface {
	ID() uuid.UUID
	Send(message []byte)
	Close(err error)
}

// Connection is the registry's representation of a single live socket.
type Connection struct {
	ID        uuid.UUID
	Identity  Identity
	Transport Transport
	Rooms     map[string]struct{} // joined room slugs
	CreatedAt time.Time
}

// PresenceEntry is one distinct identity currently joined to a room. The JSON
// field names are the client contract.
type PresenceEntry struct {
	UserID string `json:"odId"`
	Name   string `json:"name,omitempty"`
}
