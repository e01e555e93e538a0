package router_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/ayushsoni02/Canvas-Flow/internal/router"
	"github.com/ayushsoni02/Canvas-Flow/internal/shape"
	"github.com/ayushsoni02/Canvas-Flow/internal/store"
	"github.com/ayushsoni02/Canvas-Flow/pkg/state"
	"github.com/ayushsoni02/Canvas-Flow/pkg/state/statemanager"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

type mockConn struct {
	id     uuid.UUID
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newMockConn() *mockConn { return &mockConn{id: uuid.New()} }

func (m *mockConn) ID() uuid.UUID { return m.id }

func (m *mockConn) Send(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = append(m.frames, data)
}

func (m *mockConn) Close(_ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockConn) received() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.frames))
	copy(out, m.frames)
	return out
}

func (m *mockConn) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames = nil
}

// eventTypes decodes the "type" field of every received frame, in order.
func (m *mockConn) eventTypes() []string {
	var types []string
	for _, frame := range m.received() {
		var env struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(frame, &env); err == nil {
			types = append(types, env.Type)
		}
	}
	return types
}

type fakeStore struct {
	mu     sync.Mutex
	rooms  map[string]int64
	shapes map[int64]map[string]shape.Fields

	failCreate bool
	failDelete bool

	createCalls int
	updateCalls int
	deleteCalls int
}

func newFakeStore(rooms ...string) *fakeStore {
	f := &fakeStore{
		rooms:  make(map[string]int64),
		shapes: make(map[int64]map[string]shape.Fields),
	}
	for i, slug := range rooms {
		id := int64(i + 1)
		f.rooms[slug] = id
		f.shapes[id] = make(map[string]shape.Fields)
	}
	return f
}

func (f *fakeStore) ResolveRoom(_ context.Context, slug string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.rooms[slug]
	if !ok {
		return 0, store.ErrNotFound
	}
	return id, nil
}

func (f *fakeStore) CreateShape(_ context.Context, roomID int64, uid string, fields shape.Fields) (*store.ShapeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreate {
		return nil, errors.New("store unavailable")
	}
	f.shapes[roomID][uid] = fields
	return &store.ShapeRecord{ID: int64(f.createCalls), RoomID: roomID, UID: uid, Fields: fields}, nil
}

func (f *fakeStore) UpdateShape(_ context.Context, roomID int64, uid string, fields shape.Fields) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if _, ok := f.shapes[roomID][uid]; !ok {
		return 0, nil
	}
	f.shapes[roomID][uid] = fields
	return 1, nil
}

func (f *fakeStore) DeleteShape(_ context.Context, roomID int64, uid string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.failDelete {
		return 0, errors.New("store unavailable")
	}
	if _, ok := f.shapes[roomID][uid]; !ok {
		return 0, nil
	}
	delete(f.shapes[roomID], uid)
	return 1, nil
}

func (f *fakeStore) shapeFields(roomID int64, uid string) (shape.Fields, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fields, ok := f.shapes[roomID][uid]
	return fields, ok
}

// --- Harness ---

type fixture struct {
	registry *statemanager.InMemoryManager
	router   *router.EventRouter
	store    *fakeStore
}

func newFixture(t *testing.T, rooms ...string) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	registry := statemanager.NewInMemoryManager(logger)
	st := newFakeStore(rooms...)
	return &fixture{
		registry: registry,
		router:   router.NewEventRouter(logger, registry, st),
		store:    st,
	}
}

func (f *fixture) connect(t *testing.T, userID, name string) *mockConn {
	t.Helper()
	conn := newMockConn()
	_, err := f.registry.RegisterConnection(conn, state.Identity{UserID: userID, Name: name})
	require.NoError(t, err)
	return conn
}

func (f *fixture) send(conn *mockConn, frame string) {
	f.router.HandleMessage(context.Background(), conn.ID(), []byte(frame))
}

func (f *fixture) join(t *testing.T, conn *mockConn, room string) {
	t.Helper()
	f.send(conn, fmt.Sprintf(`{"type":"join_room","roomId":%q}`, room))
}

// --- Membership & Presence ---

func TestJoinRoomSendsPresenceAndAnnounces(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "u-alice", "Alice")
	bob := f.connect(t, "u-bob", "Bob")

	f.join(t, alice, "r1")

	// the first joiner gets a snapshot, nobody else exists to announce to
	require.Equal(t, []string{"presence"}, alice.eventTypes())

	f.join(t, bob, "r1")

	var snapshot struct {
		Type  string `json:"type"`
		Users []struct {
			UserID string `json:"odId"`
			Name   string `json:"name"`
		} `json:"users"`
	}
	frames := bob.received()
	require.Len(t, frames, 1)
	require.NoError(t, json.Unmarshal(frames[0], &snapshot))
	assert.Equal(t, "presence", snapshot.Type)
	require.Len(t, snapshot.Users, 2)
	assert.Equal(t, "u-alice", snapshot.Users[0].UserID)
	assert.Equal(t, "u-bob", snapshot.Users[1].UserID)

	// alice is told about bob, with the same updated member list
	var joined struct {
		Type     string `json:"type"`
		UserID   string `json:"userId"`
		UserName string `json:"userName"`
		Users    []any  `json:"users"`
	}
	frames = alice.received()
	require.Len(t, frames, 2)
	require.NoError(t, json.Unmarshal(frames[1], &joined))
	assert.Equal(t, "user_joined", joined.Type)
	assert.Equal(t, "u-bob", joined.UserID)
	assert.Equal(t, "Bob", joined.UserName)
	assert.Len(t, joined.Users, 2)
}

func TestRejoinNeverDuplicatesPresence(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "u-alice", "Alice")
	bob := f.connect(t, "u-bob", "Bob")
	f.join(t, alice, "r1")
	f.join(t, bob, "r1")
	alice.reset()
	bob.reset()

	// alice joins again; membership must stay a set
	f.join(t, alice, "r1")

	var snapshot struct {
		Users []struct {
			UserID string `json:"odId"`
		} `json:"users"`
	}
	frames := alice.received()
	require.Len(t, frames, 1, "rejoin resends the snapshot to the joiner only")
	require.NoError(t, json.Unmarshal(frames[0], &snapshot))
	assert.Len(t, snapshot.Users, 2, "presence must never contain duplicate identities")

	for _, frame := range bob.received() {
		var joined struct {
			Users []any `json:"users"`
		}
		require.NoError(t, json.Unmarshal(frame, &joined))
		assert.Len(t, joined.Users, 2)
	}
}

func TestLeaveRoomNotifiesRemainingMembers(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "u-alice", "Alice")
	bob := f.connect(t, "u-bob", "Bob")
	f.join(t, alice, "r1")
	f.join(t, bob, "r1")
	alice.reset()
	bob.reset()

	f.send(alice, `{"type":"leave_room","roomId":"r1"}`)

	assert.Empty(t, alice.received(), "the leaver gets no departure echo")

	frames := bob.received()
	require.Len(t, frames, 1)
	var left struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	}
	require.NoError(t, json.Unmarshal(frames[0], &left))
	assert.Equal(t, "user_left", left.Type)
	assert.Equal(t, "u-alice", left.UserID)
}

func TestDisconnectBroadcastsToEveryJoinedRoomOnce(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "u-alice", "Alice")
	bob := f.connect(t, "u-bob", "Bob")
	carol := f.connect(t, "u-carol", "Carol")

	f.join(t, alice, "r1")
	f.join(t, alice, "r2")
	f.join(t, bob, "r1")
	f.join(t, carol, "r2")
	bob.reset()
	carol.reset()

	f.router.HandleDisconnect(alice.ID())

	assert.Equal(t, []string{"user_left"}, bob.eventTypes())
	assert.Equal(t, []string{"user_left"}, carol.eventTypes())

	_, found := f.registry.GetConnection(alice.ID())
	assert.False(t, found, "connection must be removed from the registry")

	// a second disconnect is a quiet no-op
	f.router.HandleDisconnect(alice.ID())
	assert.Len(t, bob.received(), 1)
}

// --- Ephemeral events ---

func TestCursorUpdateFansOutToOthersOnly(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "u-alice", "Alice")
	bob := f.connect(t, "u-bob", "Bob")
	outsider := f.connect(t, "u-eve", "Eve")
	f.join(t, alice, "r1")
	f.join(t, bob, "r1")
	f.join(t, outsider, "r2")
	alice.reset()
	bob.reset()
	outsider.reset()

	f.send(alice, `{"type":"cursor_update","roomId":"r1","x":12.5,"y":7}`)

	assert.Empty(t, alice.received(), "no acknowledgment to the sender")
	assert.Empty(t, outsider.received(), "no cross-room leakage")

	frames := bob.received()
	require.Len(t, frames, 1)
	var cursor struct {
		Type   string  `json:"type"`
		UserID string  `json:"userId"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
	}
	require.NoError(t, json.Unmarshal(frames[0], &cursor))
	assert.Equal(t, "cursor_update", cursor.Type)
	assert.Equal(t, "u-alice", cursor.UserID)
	assert.Equal(t, 12.5, cursor.X)
	assert.Equal(t, 7.0, cursor.Y)
}

func TestDrawingStatusFansOut(t *testing.T) {
	f := newFixture(t)
	alice := f.connect(t, "u-alice", "Alice")
	bob := f.connect(t, "u-bob", "Bob")
	f.join(t, alice, "r1")
	f.join(t, bob, "r1")
	bob.reset()

	f.send(alice, `{"type":"drawing_status","roomId":"r1","isDrawing":true}`)

	frames := bob.received()
	require.Len(t, frames, 1)
	var status struct {
		Type      string `json:"type"`
		UserID    string `json:"userId"`
		IsDrawing bool   `json:"isDrawing"`
	}
	require.NoError(t, json.Unmarshal(frames[0], &status))
	assert.Equal(t, "drawing_status", status.Type)
	assert.True(t, status.IsDrawing)
}

// --- Robustness ---

func TestMalformedAndUnknownFramesAreDropped(t *testing.T) {
	f := newFixture(t, "r1")
	alice := f.connect(t, "u-alice", "Alice")
	bob := f.connect(t, "u-bob", "Bob")
	f.join(t, alice, "r1")
	f.join(t, bob, "r1")
	alice.reset()
	bob.reset()

	frames := []string{
		`not json at all`,
		`{"type":"teleport","roomId":"r1"}`,
		`{"type":"cursor_update"}`,
		`{"type":"shape_update","roomId":"r1"}`,
		`{"type":"shape_update","roomId":"r1","shape":{"type":"rect"}}`,
		`{"type":"shape_delete","roomId":"r1"}`,
	}
	for _, frame := range frames {
		f.send(alice, frame)
	}

	assert.Empty(t, alice.received())
	assert.Empty(t, bob.received())
	assert.Zero(t, f.store.updateCalls)
	assert.Zero(t, f.store.deleteCalls)
}

func TestFrameFromUnregisteredConnectionIsIgnored(t *testing.T) {
	f := newFixture(t, "r1")
	ghost := newMockConn()
	// never registered; must not panic or broadcast
	f.send(ghost, `{"type":"join_room","roomId":"r1"}`)
	assert.Empty(t, ghost.received())
}
