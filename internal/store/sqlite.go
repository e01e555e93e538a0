package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ayushsoni02/Canvas-Flow/internal/shape"
)

// SQLiteStore handles SQLite database operations. It is the default driver
// for development and tests.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/canvasflow.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/canvasflow.db"
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise open its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		name TEXT DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS rooms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT UNIQUE NOT NULL,
		title TEXT DEFAULT '',
		admin_id TEXT REFERENCES users(id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS shapes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		uid TEXT NOT NULL,
		type TEXT NOT NULL,
		x REAL NOT NULL DEFAULT 0,
		y REAL NOT NULL DEFAULT 0,
		width REAL NOT NULL DEFAULT 0,
		height REAL NOT NULL DEFAULT 0,
		radius REAL NOT NULL DEFAULT 0,
		points TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(room_id, uid)
	);

	CREATE INDEX IF NOT EXISTS idx_rooms_slug ON rooms(slug);
	CREATE INDEX IF NOT EXISTS idx_shapes_room ON shapes(room_id);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) CreateUser(ctx context.Context, email, name, passwordHash string) (*User, error) {
	id := uuid.New().String()
	now := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, email, name, passwordHash, now)
	if err != nil {
		return nil, err
	}
	return &User{ID: id, Email: email, Name: name, PasswordHash: passwordHash, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM users WHERE email = ?
	`, email).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *SQLiteStore) CreateRoom(ctx context.Context, slug, title, adminID string) (*Room, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (slug, title, admin_id, created_at)
		VALUES (?, ?, ?, ?)
	`, slug, title, adminID, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Room{ID: id, Slug: slug, Title: title, AdminID: adminID, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetRoomBySlug(ctx context.Context, slug string) (*Room, error) {
	room := &Room{}
	var adminID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, slug, title, admin_id, created_at
		FROM rooms WHERE slug = ?
	`, slug).Scan(&room.ID, &room.Slug, &room.Title, &adminID, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	room.AdminID = adminID.String
	return room, nil
}

func (s *SQLiteStore) ResolveRoom(ctx context.Context, slug string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM rooms WHERE slug = ?`, slug).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

func (s *SQLiteStore) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, slug, title, admin_id, created_at
		FROM rooms ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		var adminID sql.NullString
		if err := rows.Scan(&room.ID, &room.Slug, &room.Title, &adminID, &room.CreatedAt); err != nil {
			return nil, err
		}
		room.AdminID = adminID.String
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (s *SQLiteStore) CreateShape(ctx context.Context, roomID int64, uid string, f shape.Fields) (*ShapeRecord, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO shapes (room_id, uid, type, x, y, width, height, radius, points, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, roomID, uid, f.Type, f.X, f.Y, f.Width, f.Height, f.Radius, f.Points, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &ShapeRecord{ID: id, RoomID: roomID, UID: uid, Fields: f, CreatedAt: now}, nil
}

func (s *SQLiteStore) UpdateShape(ctx context.Context, roomID int64, uid string, f shape.Fields) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE shapes
		SET type = ?, x = ?, y = ?, width = ?, height = ?, radius = ?, points = ?
		WHERE room_id = ? AND uid = ?
	`, f.Type, f.X, f.Y, f.Width, f.Height, f.Radius, f.Points, roomID, uid)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) DeleteShape(ctx context.Context, roomID int64, uid string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shapes WHERE room_id = ? AND uid = ?`, roomID, uid)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) ListShapes(ctx context.Context, roomID int64) ([]ShapeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_id, uid, type, x, y, width, height, radius, points, created_at
		FROM shapes WHERE room_id = ? ORDER BY id ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ShapeRecord
	for rows.Next() {
		var rec ShapeRecord
		if err := rows.Scan(&rec.ID, &rec.RoomID, &rec.UID, &rec.Type, &rec.X, &rec.Y,
			&rec.Width, &rec.Height, &rec.Radius, &rec.Points, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
