package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayushsoni02/Canvas-Flow/internal/shape"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("store: not found")

// User is an account able to sign in and own rooms.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// Room is a named collaboration session. The slug is the external identifier;
// the numeric id is a storage-layer artifact.
type Room struct {
	ID        int64
	Slug      string
	Title     string
	AdminID   string
	CreatedAt time.Time
}

// ShapeRecord is one persisted shape row. The uid is the client-generated
// identifier used for update/delete addressing; the numeric ID only orders
// and keys rows internally.
type ShapeRecord struct {
	ID     int64
	RoomID int64
	UID    string
	shape.Fields
	CreatedAt time.Time
}

// Store is the persistence collaborator consumed by the router and the HTTP
// surface. Both PostgresStore and SQLiteStore implement it.
type Store interface {
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, email, name, passwordHash string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// Room operations
	CreateRoom(ctx context.Context, slug, title, adminID string) (*Room, error)
	GetRoomBySlug(ctx context.Context, slug string) (*Room, error)
	ResolveRoom(ctx context.Context, slug string) (int64, error)
	ListRooms(ctx context.Context) ([]Room, error)

	// Shape operations, all addressed by (room, uid)
	CreateShape(ctx context.Context, roomID int64, uid string, f shape.Fields) (*ShapeRecord, error)
	UpdateShape(ctx context.Context, roomID int64, uid string, f shape.Fields) (int64, error)
	DeleteShape(ctx context.Context, roomID int64, uid string) (int64, error)
	ListShapes(ctx context.Context, roomID int64) ([]ShapeRecord, error)
}

// Open builds the store selected by the storage driver.
func Open(ctx context.Context, driver, databaseURL, sqlitePath string) (Store, error) {
	switch driver {
	case "postgres":
		return NewPostgresStore(ctx, databaseURL)
	case "sqlite", "":
		return NewSQLiteStore(ctx, sqlitePath)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", driver)
	}
}
