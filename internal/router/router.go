// Package router is the single dispatch point for the WebSocket protocol: it
// classifies inbound frames, applies per-type effects, and fans the resulting
// events out to the right subset of room members.
package router

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ayushsoni02/Canvas-Flow/internal/metrics"
	"github.com/ayushsoni02/Canvas-Flow/internal/shape"
	"github.com/ayushsoni02/Canvas-Flow/internal/store"
	"github.com/ayushsoni02/Canvas-Flow/pkg/state"
	"github.com/google/uuid"
)

// ShapeStore is the slice of the persistence collaborator the router consumes.
type ShapeStore interface {
	ResolveRoom(ctx context.Context, slug string) (int64, error)
	CreateShape(ctx context.Context, roomID int64, uid string, f shape.Fields) (*store.ShapeRecord, error)
	UpdateShape(ctx context.Context, roomID int64, uid string, f shape.Fields) (int64, error)
	DeleteShape(ctx context.Context, roomID int64, uid string) (int64, error)
}

type EventRouter struct {
	logger   *slog.Logger
	registry state.Manager
	shapes   ShapeStore
}

func NewEventRouter(logger *slog.Logger, registry state.Manager, shapes ShapeStore) *EventRouter {
	return &EventRouter{
		logger:   logger.With(slog.String("component", "event_router")),
		registry: registry,
		shapes:   shapes,
	}
}

// HandleMessage dispatches one inbound frame. It never panics outward; one
// bad message must not take down the connection loop or its neighbors.
func (r *EventRouter) HandleMessage(ctx context.Context, connID uuid.UUID, raw []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Handler panicked", slog.String("connID", connID.String()), slog.Any("panic", rec))
		}
	}()

	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		r.logger.Debug("Dropping unparseable frame", slog.String("connID", connID.String()), slog.Any("error", err))
		return
	}

	conn, ok := r.registry.GetConnection(connID)
	if !ok {
		// connection already torn down; the frame raced its close
		return
	}

	label := msg.Type
	switch msg.Type {
	case EventJoinRoom, EventLeaveRoom, EventCursorUpdate, EventDrawingStatus,
		EventChat, EventShapeUpdate, EventShapeDelete:
	default:
		label = "unknown"
	}
	metrics.EventsTotal.WithLabelValues(label).Inc()

	switch msg.Type {
	case EventJoinRoom:
		r.handleJoinRoom(conn, msg.RoomID)
	case EventLeaveRoom:
		r.handleLeaveRoom(conn, msg.RoomID)
	case EventCursorUpdate:
		r.handleCursorUpdate(conn, msg)
	case EventDrawingStatus:
		r.handleDrawingStatus(conn, msg)
	case EventChat:
		r.handleChat(ctx, conn, msg, raw)
	case EventShapeUpdate:
		r.handleShapeUpdate(ctx, conn, msg, raw)
	case EventShapeDelete:
		r.handleShapeDelete(ctx, conn, msg, raw)
	default:
		r.logger.Warn("Received unknown event type", slog.String("type", msg.Type), slog.String("connID", connID.String()))
	}
}

// broadcastToRoom delivers payload to every member of roomID except origin
// (echo suppression) and returns the number of sends.
func (r *EventRouter) broadcastToRoom(roomID string, origin uuid.UUID, payload []byte) int {
	sent := 0
	for _, member := range r.registry.RoomMembers(roomID) {
		if member.ID == origin {
			continue
		}
		member.Transport.Send(payload)
		sent++
	}
	if sent > 0 {
		metrics.BroadcastsTotal.Add(float64(sent))
	}
	return sent
}

func (r *EventRouter) sendEvent(conn *state.Connection, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("Failed to marshal outbound event", slog.Any("error", err))
		return
	}
	conn.Transport.Send(payload)
}

func (r *EventRouter) sendError(conn *state.Connection, message string) {
	r.sendEvent(conn, errorEvent{Type: EventError, Message: message})
}
