package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	apimw "github.com/ayushsoni02/Canvas-Flow/internal/api/middleware"
	"github.com/ayushsoni02/Canvas-Flow/internal/auth"
	"github.com/ayushsoni02/Canvas-Flow/internal/metrics"
	"github.com/ayushsoni02/Canvas-Flow/internal/shape"
	"github.com/ayushsoni02/Canvas-Flow/internal/store"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	slugRegex  = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]{0,62}$`)
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	logger   *slog.Logger
	store    store.Store
	verifier *auth.Verifier
	tokenTTL time.Duration
}

func NewHandler(logger *slog.Logger, st store.Store, verifier *auth.Verifier, tokenTTL time.Duration) *Handler {
	return &Handler{logger: logger, store: st, verifier: verifier, tokenTTL: tokenTTL}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// Health reports liveness of the process and its store.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Error("Health check failed", slog.Any("error", err))
		h.Error(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	h.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Signup creates an account. Registration is open; abuse is bounded by the
// rate limiter in front of this handler.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if !emailRegex.MatchString(req.Email) {
		h.Error(w, http.StatusBadRequest, "invalid email")
		return
	}
	if len(req.Password) < 8 {
		h.Error(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	if _, err := h.store.GetUserByEmail(r.Context(), req.Email); err == nil {
		h.Error(w, http.StatusConflict, "email already registered")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Email, req.Name, string(hash))
	if err != nil {
		h.logger.Error("User creation failed", slog.Any("error", err))
		h.Error(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	metrics.UsersRegistered.Inc()
	h.JSON(w, http.StatusCreated, map[string]string{"userId": user.ID})
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signin exchanges credentials for the token both surfaces accept.
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		h.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := h.verifier.Mint(user.ID, user.Name, h.tokenTTL)
	if err != nil {
		h.logger.Error("Token mint failed", slog.Any("error", err))
		h.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.JSON(w, http.StatusOK, map[string]string{"token": token})
}

type roomResponse struct {
	ID        int64     `json:"id"`
	Slug      string    `json:"slug"`
	Title     string    `json:"title,omitempty"`
	AdminID   string    `json:"adminId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toRoomResponse(room *store.Room) roomResponse {
	return roomResponse{
		ID:        room.ID,
		Slug:      room.Slug,
		Title:     room.Title,
		AdminID:   room.AdminID,
		CreatedAt: room.CreatedAt,
	}
}

type createRoomRequest struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// CreateRoom registers a new collaboration session under a unique slug.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	ident, ok := apimw.IdentityFrom(r.Context())
	if !ok {
		h.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugRegex.MatchString(req.Slug) {
		h.Error(w, http.StatusBadRequest, "slug must be lowercase alphanumeric with dashes")
		return
	}

	if _, err := h.store.GetRoomBySlug(r.Context(), req.Slug); err == nil {
		h.Error(w, http.StatusConflict, "slug already taken")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	room, err := h.store.CreateRoom(r.Context(), req.Slug, strings.TrimSpace(req.Title), ident.UserID)
	if err != nil {
		h.logger.Error("Room creation failed", slog.Any("error", err))
		h.Error(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	metrics.RoomsCreated.Inc()
	h.JSON(w, http.StatusCreated, toRoomResponse(room))
}

// ListRooms returns every room, newest first.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.store.ListRooms(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	out := make([]roomResponse, 0, len(rooms))
	for i := range rooms {
		out = append(out, toRoomResponse(&rooms[i]))
	}
	h.JSON(w, http.StatusOK, map[string]any{"rooms": out})
}

// GetRoom returns a single room's metadata by slug.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.store.GetRoomBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.Error(w, http.StatusNotFound, "room not found")
			return
		}
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	h.JSON(w, http.StatusOK, map[string]any{"room": toRoomResponse(room)})
}

// ListShapes replays the persisted shapes of a room in creation order, in the
// client's wire form rather than the raw column layout.
func (h *Handler) ListShapes(w http.ResponseWriter, r *http.Request) {
	records, ok := h.shapesForSlug(w, r)
	if !ok {
		return
	}

	shapes := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		wire, err := shape.Rewire(rec.UID, rec.Fields)
		if err != nil {
			// a corrupt row loses itself, not the whole replay
			h.logger.Warn("Skipping unrewirable shape row",
				slog.Int64("id", rec.ID), slog.Any("error", err))
			continue
		}
		shapes = append(shapes, wire)
	}
	h.JSON(w, http.StatusOK, map[string]any{"shapes": shapes})
}

// ListChats is the legacy replay endpoint: each shape row is wrapped back
// into the serialized chat envelope older clients parse.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	records, ok := h.shapesForSlug(w, r)
	if !ok {
		return
	}

	type chatMessage struct {
		Message string `json:"message"`
	}
	messages := make([]chatMessage, 0, len(records))
	for _, rec := range records {
		wire, err := shape.Rewire(rec.UID, rec.Fields)
		if err != nil {
			h.logger.Warn("Skipping unrewirable shape row",
				slog.Int64("id", rec.ID), slog.Any("error", err))
			continue
		}
		envelope, err := json.Marshal(map[string]json.RawMessage{"shape": wire})
		if err != nil {
			continue
		}
		messages = append(messages, chatMessage{Message: string(envelope)})
	}
	h.JSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (h *Handler) shapesForSlug(w http.ResponseWriter, r *http.Request) ([]store.ShapeRecord, bool) {
	roomID, err := h.store.ResolveRoom(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.Error(w, http.StatusNotFound, "room not found")
			return nil, false
		}
		h.Error(w, http.StatusInternalServerError, "database error")
		return nil, false
	}

	records, err := h.store.ListShapes(r.Context(), roomID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return nil, false
	}
	return records, true
}
