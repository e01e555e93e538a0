package router

import (
	"encoding/json"

	"github.com/ayushsoni02/Canvas-Flow/pkg/state"
)

// Cursor and drawing-status events are pure fan-out: never persisted, never
// acknowledged to the sender, dropped silently when malformed.

func (r *EventRouter) handleCursorUpdate(conn *state.Connection, msg inboundMessage) {
	if msg.RoomID == "" {
		return
	}
	payload, err := json.Marshal(cursorEvent{
		Type:     EventCursorUpdate,
		UserID:   conn.Identity.UserID,
		UserName: conn.Identity.Name,
		X:        msg.X,
		Y:        msg.Y,
	})
	if err != nil {
		return
	}
	r.broadcastToRoom(msg.RoomID, conn.ID, payload)
}

func (r *EventRouter) handleDrawingStatus(conn *state.Connection, msg inboundMessage) {
	if msg.RoomID == "" {
		return
	}
	// Concurrent drawers are not deduplicated here; how to render several
	// "X is sketching" hints at once is the receiver's concern.
	payload, err := json.Marshal(drawingStatusEvent{
		Type:      EventDrawingStatus,
		UserID:    conn.Identity.UserID,
		UserName:  conn.Identity.Name,
		IsDrawing: msg.IsDrawing,
	})
	if err != nil {
		return
	}
	r.broadcastToRoom(msg.RoomID, conn.ID, payload)
}
