package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/service/room"
	"github.com/cinesync/server/pkg/ctxlogger"
	"github.com/cinesync/server/pkg/rest"
	"github.com/cinesync/server/pkg/wsrouter"
)

type createRoomQuery struct {
	Username string `json:"username" validate:"required,max=32"`
	RoomName string `json:"name" validate:"required,max=64"`
	Password string `json:"password" validate:"max=64"`
	Location string `json:"location" validate:"required,max=64"`
}

func (c *controller) createRoom(w http.ResponseWriter, r *http.Request) {
	query := createRoomQuery{
		Username: r.URL.Query().Get("username"),
		RoomName: r.URL.Query().Get("name"),
		Password: r.URL.Query().Get("password"),
		Location: r.URL.Query().Get("location"),
	}

	if validationErrors, ok := c.validate.Validate(query); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}

	resp, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		Conn:     conn,
		Username: query.Username,
		RoomName: query.RoomName,
		Password: query.Password,
		Location: query.Location,
	})
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to create room", "error", err)
		c.writeError(conn, "could not create room")
		conn.Close()
		return
	}

	c.serveConn(r.Context(), conn, resp.RoomId, resp.MemberId)
}

type joinRoomQuery struct {
	Username string `json:"username" validate:"required,max=32"`
	Password string `json:"password" validate:"max=64"`
}

func (c *controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	if roomId == "" {
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
		return
	}

	query := joinRoomQuery{
		Username: r.URL.Query().Get("username"),
		Password: r.URL.Query().Get("password"),
	}

	if validationErrors, ok := c.validate.Validate(query); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}

	resp, err := c.roomService.JoinRoom(r.Context(), &room.JoinRoomParams{
		Conn:     conn,
		RoomId:   roomId,
		Username: query.Username,
		Password: query.Password,
	})
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to join room", "error", err)
		// one generic message for every join failure so callers cannot
		// probe which rooms exist
		c.writeError(conn, "could not join room, make sure the password is correct if there is one")
		conn.Close()
		return
	}

	c.serveConn(r.Context(), conn, roomId, resp.MemberId)
}

// serveConn pumps inbound messages until the connection drops, then
// detaches the member from the room on every exit path.
func (c *controller) serveConn(ctx context.Context, conn *websocket.Conn, roomId, memberId string) {
	ctx = withRoomId(ctx, roomId)
	ctx = withMemberId(ctx, memberId)
	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", roomId))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("member_id", memberId))

	err := c.getWSRouter().ServeConn(ctx, conn)
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.DebugContext(ctx, "connection closed", "error", err)
	}

	if _, err := c.roomService.DisconnectMember(ctx, &room.DisconnectMemberParams{
		RoomId:   roomId,
		MemberId: memberId,
	}); err != nil {
		c.logger.ErrorContext(ctx, "failed to disconnect member", "error", err)
	}

	conn.Close()
}

type errorPayload struct {
	Message string `json:"message"`
}

// writeError writes directly to a connection that has no outbound queue
// yet. Only safe before the connection is attached to the sender.
func (c *controller) writeError(conn *websocket.Conn, message string) {
	conn.WriteJSON(&room.Output{
		Type:    "ERROR",
		Payload: errorPayload{Message: message},
	})
}

// sendError replies to an attached connection through its outbound queue
// so the reply cannot interleave with a broadcast write.
func (c *controller) sendError(conn *websocket.Conn, message string) {
	c.sender.Send([]*websocket.Conn{conn}, &room.Output{
		Type:    "ERROR",
		Payload: errorPayload{Message: message},
	})
}

// userErrorMessage maps service errors to the message sent back to the
// offending viewer. Unexpected errors stay generic.
func (c *controller) userErrorMessage(err error) string {
	switch {
	case errors.Is(err, room.ErrNotAMember):
		return "you are not a member of this room"
	case errors.Is(err, room.ErrInvalidVideo):
		return "invalid video url"
	case errors.Is(err, room.ErrPlaylistLimitReached):
		return "the queue is full"
	case errors.Is(err, room.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, wsrouter.ErrUnknownMessageType):
		return "unknown message type"
	case errors.Is(err, errInvalidPayload):
		return "invalid payload"
	default:
		return "something went wrong"
	}
}
