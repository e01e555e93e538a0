package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/ayushsoni02/Canvas-Flow/internal/api"
	"github.com/ayushsoni02/Canvas-Flow/internal/auth"
	"github.com/ayushsoni02/Canvas-Flow/internal/shape"
	"github.com/ayushsoni02/Canvas-Flow/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	server *httptest.Server
	store  store.Store
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1}))

	st, err := store.NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(st.Close)

	verifier := auth.NewVerifier("test-secret")
	router := api.NewRouter(logger, st, verifier, time.Hour, nil)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &apiFixture{server: server, store: st}
}

func (f *apiFixture) post(t *testing.T, path, token string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, f.server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func (f *apiFixture) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.server.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func (f *apiFixture) signupAndSignin(t *testing.T, email, name string) string {
	t.Helper()
	resp := f.post(t, "/signup", "", map[string]string{
		"email": email, "name": name, "password": "hunter22secret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = f.post(t, "/signin", "", map[string]string{
		"email": email, "password": "hunter22secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &body)
	require.NotEmpty(t, body.Token)
	return body.Token
}

func TestSignupSigninFlow(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.post(t, "/signup", "", map[string]string{
		"email": "alice@example.com", "name": "Alice", "password": "hunter22secret",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		UserID string `json:"userId"`
	}
	decodeBody(t, resp, &created)
	assert.NotEmpty(t, created.UserID)

	// duplicate email
	resp = f.post(t, "/signup", "", map[string]string{
		"email": "alice@example.com", "name": "Alice2", "password": "hunter22secret",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// wrong password
	resp = f.post(t, "/signin", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = f.post(t, "/signin", "", map[string]string{
		"email": "alice@example.com", "password": "hunter22secret",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestSignupValidation(t *testing.T) {
	f := newAPIFixture(t)

	cases := []struct {
		name string
		body map[string]string
	}{
		{"bad email", map[string]string{"email": "not-an-email", "password": "hunter22secret"}},
		{"short password", map[string]string{"email": "bob@example.com", "password": "short"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := f.post(t, "/signup", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			resp.Body.Close()
		})
	}
}

func TestRoomLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	token := f.signupAndSignin(t, "alice@example.com", "Alice")

	// creating a room requires auth
	resp := f.post(t, "/room", "", map[string]string{"slug": "noauth"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = f.post(t, "/room", token, map[string]string{"slug": "design-review", "title": "Design Review"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var room struct {
		ID   int64  `json:"id"`
		Slug string `json:"slug"`
	}
	decodeBody(t, resp, &room)
	assert.Equal(t, "design-review", room.Slug)
	assert.NotZero(t, room.ID)

	// duplicate slug
	resp = f.post(t, "/room", token, map[string]string{"slug": "design-review"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, "/room/design-review", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, "/room/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = f.get(t, "/rooms", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Rooms []struct {
			Slug string `json:"slug"`
		} `json:"rooms"`
	}
	decodeBody(t, resp, &listing)
	require.Len(t, listing.Rooms, 1)
	assert.Equal(t, "design-review", listing.Rooms[0].Slug)
}

func TestShapeReplayEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	token := f.signupAndSignin(t, "alice@example.com", "Alice")

	resp := f.post(t, "/room", token, map[string]string{"slug": "board"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var room struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, resp, &room)

	ctx := context.Background()
	_, err := f.store.CreateShape(ctx, room.ID, "s1", shape.Fields{Type: "rect", X: 10, Y: 10, Width: 50, Height: 50})
	require.NoError(t, err)
	_, err = f.store.CreateShape(ctx, room.ID, "s2", shape.Fields{Type: "circle", X: 5, Y: 6, Radius: 7})
	require.NoError(t, err)

	resp = f.get(t, "/shapes/board", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var shapes struct {
		Shapes []map[string]any `json:"shapes"`
	}
	decodeBody(t, resp, &shapes)
	require.Len(t, shapes.Shapes, 2)
	assert.Equal(t, "s1", shapes.Shapes[0]["id"])
	assert.Equal(t, 50.0, shapes.Shapes[0]["width"])
	assert.Equal(t, "s2", shapes.Shapes[1]["id"])
	assert.Equal(t, 5.0, shapes.Shapes[1]["centerX"])

	// legacy replay wraps each shape in the serialized chat envelope
	resp = f.get(t, "/chats/board", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var chats struct {
		Messages []struct {
			Message string `json:"message"`
		} `json:"messages"`
	}
	decodeBody(t, resp, &chats)
	require.Len(t, chats.Messages, 2)

	var envelope struct {
		Shape map[string]any `json:"shape"`
	}
	require.NoError(t, json.Unmarshal([]byte(chats.Messages[0].Message), &envelope))
	assert.Equal(t, "rect", envelope.Shape["type"])
	assert.Equal(t, 10.0, envelope.Shape["x"])

	resp = f.get(t, "/shapes/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.get(t, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
