package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayushsoni02/Canvas-Flow/internal/shape"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgreSQL store with a connection pool and
// runs the schema migration.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS rooms (
		id BIGSERIAL PRIMARY KEY,
		slug TEXT UNIQUE NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		admin_id UUID REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS shapes (
		id BIGSERIAL PRIMARY KEY,
		room_id BIGINT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		uid TEXT NOT NULL,
		type TEXT NOT NULL,
		x DOUBLE PRECISION NOT NULL DEFAULT 0,
		y DOUBLE PRECISION NOT NULL DEFAULT 0,
		width DOUBLE PRECISION NOT NULL DEFAULT 0,
		height DOUBLE PRECISION NOT NULL DEFAULT 0,
		radius DOUBLE PRECISION NOT NULL DEFAULT 0,
		points TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE(room_id, uid)
	);

	CREATE INDEX IF NOT EXISTS idx_rooms_slug ON rooms(slug);
	CREATE INDEX IF NOT EXISTS idx_shapes_room ON shapes(room_id);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) CreateUser(ctx context.Context, email, name, passwordHash string) (*User, error) {
	user := &User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, name, password_hash, created_at
	`, uuid.New().String(), email, name, passwordHash).Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM users WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *PostgresStore) CreateRoom(ctx context.Context, slug, title, adminID string) (*Room, error) {
	room := &Room{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO rooms (slug, title, admin_id)
		VALUES ($1, $2, NULLIF($3, '')::uuid)
		RETURNING id, slug, title, COALESCE(admin_id::text, ''), created_at
	`, slug, title, adminID).Scan(&room.ID, &room.Slug, &room.Title, &room.AdminID, &room.CreatedAt)
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (s *PostgresStore) GetRoomBySlug(ctx context.Context, slug string) (*Room, error) {
	room := &Room{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, slug, title, COALESCE(admin_id::text, ''), created_at
		FROM rooms WHERE slug = $1
	`, slug).Scan(&room.ID, &room.Slug, &room.Title, &room.AdminID, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return room, nil
}

func (s *PostgresStore) ResolveRoom(ctx context.Context, slug string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `SELECT id FROM rooms WHERE slug = $1`, slug).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

func (s *PostgresStore) ListRooms(ctx context.Context) ([]Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, slug, title, COALESCE(admin_id::text, ''), created_at
		FROM rooms ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.Slug, &room.Title, &room.AdminID, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (s *PostgresStore) CreateShape(ctx context.Context, roomID int64, uid string, f shape.Fields) (*ShapeRecord, error) {
	rec := &ShapeRecord{RoomID: roomID, UID: uid, Fields: f}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO shapes (room_id, uid, type, x, y, width, height, radius, points)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, roomID, uid, f.Type, f.X, f.Y, f.Width, f.Height, f.Radius, f.Points).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *PostgresStore) UpdateShape(ctx context.Context, roomID int64, uid string, f shape.Fields) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE shapes
		SET type = $1, x = $2, y = $3, width = $4, height = $5, radius = $6, points = $7
		WHERE room_id = $8 AND uid = $9
	`, f.Type, f.X, f.Y, f.Width, f.Height, f.Radius, f.Points, roomID, uid)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteShape(ctx context.Context, roomID int64, uid string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM shapes WHERE room_id = $1 AND uid = $2`, roomID, uid)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ListShapes(ctx context.Context, roomID int64) ([]ShapeRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, room_id, uid, type, x, y, width, height, radius, points, created_at
		FROM shapes WHERE room_id = $1 ORDER BY id ASC
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
