package router

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ayushsoni02/Canvas-Flow/internal/metrics"
	"github.com/ayushsoni02/Canvas-Flow/internal/shape"
	"github.com/ayushsoni02/Canvas-Flow/internal/store"
	"github.com/ayushsoni02/Canvas-Flow/pkg/state"
	"github.com/oklog/ulid/v2"
	"github.com/tidwall/gjson"
)

// handleChat is the legacy create path: the payload carries a serialized
// envelope holding either a new shape or a delete directive. Persistence is
// best-effort; the raw inbound frame is rebroadcast verbatim to the other
// members either way, so live clients stay consistent through transient
// storage failures.
func (r *EventRouter) handleChat(ctx context.Context, conn *state.Connection, msg inboundMessage, raw []byte) {
	roomID, ok := r.resolveRoom(ctx, conn, msg.RoomID)
	if !ok {
		return
	}

	// The nested envelope is client-controlled free text; probe it rather
	// than trusting it to decode. A bad piece is skipped, not fatal.
	if del := gjson.Get(msg.Message, "deleteShape"); del.Exists() && del.String() != "" {
		r.persistDelete(ctx, roomID, del.String())
	} else if sh := gjson.Get(msg.Message, "shape"); sh.Exists() {
		r.persistCreate(ctx, roomID, []byte(sh.Raw))
	}

	r.broadcastToRoom(msg.RoomID, conn.ID, raw)
}

func (r *EventRouter) handleShapeUpdate(ctx context.Context, conn *state.Connection, msg inboundMessage, raw []byte) {
	if len(msg.Shape) == 0 {
		return
	}
	uid, fields, err := shape.Decode(msg.Shape)
	if err != nil || uid == "" {
		r.logger.Debug("Dropping shape_update with unusable shape", slog.Any("error", err))
		return
	}

	roomID, ok := r.resolveRoom(ctx, conn, msg.RoomID)
	if !ok {
		return
	}

	// A zero-row update is fine: the store is only the replay source, not the
	// live source of truth, so the broadcast goes out regardless.
	if _, err := r.shapes.UpdateShape(ctx, roomID, uid, fields); err != nil {
		metrics.ShapeWriteFailures.WithLabelValues("update").Inc()
		r.logger.Warn("Shape update persistence failed", slog.String("uid", uid), slog.Any("error", err))
	}

	r.broadcastToRoom(msg.RoomID, conn.ID, raw)
}

func (r *EventRouter) handleShapeDelete(ctx context.Context, conn *state.Connection, msg inboundMessage, raw []byte) {
	if msg.ShapeID == "" {
		return
	}

	roomID, ok := r.resolveRoom(ctx, conn, msg.RoomID)
	if !ok {
		return
	}

	r.persistDelete(ctx, roomID, msg.ShapeID)
	r.broadcastToRoom(msg.RoomID, conn.ID, raw)
}

func (r *EventRouter) persistCreate(ctx context.Context, roomID int64, rawShape []byte) {
	uid, fields, err := shape.Decode(rawShape)
	if err != nil {
		r.logger.Debug("Skipping unparseable shape in chat envelope", slog.Any("error", err))
		return
	}
	if uid == "" {
		// legacy clients may omit the uid; mint one so the row stays addressable
		uid = ulid.Make().String()
	}
	if _, err := r.shapes.CreateShape(ctx, roomID, uid, fields); err != nil {
		metrics.ShapeWriteFailures.WithLabelValues("create").Inc()
		r.logger.Warn("Shape create persistence failed", slog.String("uid", uid), slog.Any("error", err))
	}
}

func (r *EventRouter) persistDelete(ctx context.Context, roomID int64, uid string) {
	if _, err := r.shapes.DeleteShape(ctx, roomID, uid); err != nil {
		metrics.ShapeWriteFailures.WithLabelValues("delete").Inc()
		r.logger.Warn("Shape delete persistence failed", slog.String("uid", uid), slog.Any("error", err))
	}
}

// resolveRoom maps the external slug to the storage id. Unlike shape writes,
// a failed resolution aborts the handler: there is nothing to address the
// persistence to, and the sender is told so.
func (r *EventRouter) resolveRoom(ctx context.Context, conn *state.Connection, slug string) (int64, bool) {
	if slug == "" {
		r.sendError(conn, "Room not found")
		return 0, false
	}
	roomID, err := r.shapes.ResolveRoom(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.sendError(conn, "Room not found")
		} else {
			r.logger.Error("Room resolution failed", slog.String("slug", slug), slog.Any("error", err))
			r.sendError(conn, "Room lookup failed")
		}
		return 0, false
	}
	return roomID, true
}
