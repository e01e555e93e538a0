package router

import (
	"encoding/json"
	"log/slog"

	"github.com/ayushsoni02/Canvas-Flow/pkg/state"
	"github.com/google/uuid"
)

func (r *EventRouter) handleJoinRoom(conn *state.Connection, roomID string) {
	if roomID == "" {
		return
	}
	if err := r.registry.Join(conn.ID, roomID); err != nil {
		r.logger.Warn("Join failed", slog.String("roomID", roomID), slog.Any("error", err))
		return
	}

	// Presence is computed once, after the join, so both the snapshot and the
	// announcement carry the same member list.
	presence := r.registry.Presence(roomID)

	r.sendEvent(conn, presenceEvent{Type: EventPresence, Users: presence})

	announce, err := json.Marshal(userJoinedEvent{
		Type:     EventUserJoined,
		UserID:   conn.Identity.UserID,
		UserName: conn.Identity.Name,
		Users:    presence,
	})
	if err != nil {
		r.logger.Error("Failed to marshal user_joined", slog.Any("error", err))
		return
	}
	r.broadcastToRoom(roomID, conn.ID, announce)
}

func (r *EventRouter) handleLeaveRoom(conn *state.Connection, roomID string) {
	if roomID == "" {
		return
	}
	if err := r.registry.Leave(conn.ID, roomID); err != nil {
		r.logger.Warn("Leave failed", slog.String("roomID", roomID), slog.Any("error", err))
		return
	}
	r.announceDeparture(conn.Identity, roomID, conn.ID)
}

// HandleDisconnect removes the connection from the registry and broadcasts
// its departure to every room it had joined, exactly once per room. Removal
// is atomic, so an in-flight broadcast from another handler can no longer
// target the closed connection once this returns.
func (r *EventRouter) HandleDisconnect(connID uuid.UUID) {
	conn, ok := r.registry.GetConnection(connID)
	if !ok {
		return
	}
	ident := conn.Identity

	rooms, err := r.registry.DeregisterConnection(connID)
	if err != nil {
		r.logger.Error("Deregister failed", slog.String("connID", connID.String()), slog.Any("error", err))
		return
	}
	for _, roomID := range rooms {
		r.announceDeparture(ident, roomID, connID)
	}
}

func (r *EventRouter) announceDeparture(ident state.Identity, roomID string, origin uuid.UUID) {
	payload, err := json.Marshal(userLeftEvent{
		Type:     EventUserLeft,
		UserID:   ident.UserID,
		UserName: ident.Name,
	})
	if err != nil {
		r.logger.Error("Failed to marshal user_left", slog.Any("error", err))
		return
	}
	r.broadcastToRoom(roomID, origin, payload)
}
