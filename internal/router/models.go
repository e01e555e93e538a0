package router

import (
	"encoding/json"

	"github.com/ayushsoni02/Canvas-Flow/pkg/state"
)

// Inbound event types. The router's dispatch switch is exhaustive over these;
// adding a type means adding a case.
const (
	EventJoinRoom      = "join_room"
	EventLeaveRoom     = "leave_room"
	EventCursorUpdate  = "cursor_update"
	EventDrawingStatus = "drawing_status"
	EventChat          = "chat"
	EventShapeUpdate   = "shape_update"
	EventShapeDelete   = "shape_delete"
)

// Server-emitted event types.
const (
	EventPresence   = "presence"
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"
	EventError      = "error"
)

// inboundMessage is the superset of every client frame; Type selects which
// fields are meaningful.
type inboundMessage struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"roomId"`
	Message   string          `json:"message"`   // chat: serialized shape envelope
	Shape     json.RawMessage `json:"shape"`     // shape_update
	ShapeID   string          `json:"shapeId"`   // shape_delete
	X         float64         `json:"x"`         // cursor_update
	Y         float64         `json:"y"`         // cursor_update
	IsDrawing bool            `json:"isDrawing"` // drawing_status
}

type presenceEvent struct {
	Type  string                `json:"type"`
	Users []state.PresenceEntry `json:"users"`
}

type userJoinedEvent struct {
	Type     string                `json:"type"`
	UserID   string                `json:"userId"`
	UserName string                `json:"userName,omitempty"`
	Users    []state.PresenceEntry `json:"users"`
}

type userLeftEvent struct {
	Type     string `json:"type"`
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

type cursorEvent struct {
	Type     string  `json:"type"`
	UserID   string  `json:"userId"`
	UserName string  `json:"userName,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

type drawingStatusEvent struct {
	Type      string `json:"type"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName,omitempty"`
	IsDrawing bool   `json:"isDrawing"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
