package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/pkg/wsrouter"
)

var errInvalidPayload = errors.New("invalid payload")

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Handle("ALIVE", handleWS(c, c.handleAlive))

	// playlist
	mux.Handle("ADD_VIDEO", handleWS(c, c.handleAddVideo))
	mux.Handle("REMOVE_VIDEO", handleWS(c, c.handleRemoveVideo))
	mux.Handle("SKIP_VIDEO", handleWS(c, c.handleSkipVideo))
	mux.Handle("RESET_PLAYLIST", handleWS(c, c.handleResetPlaylist))
	mux.Handle("VIDEO_ENDED", handleWS(c, c.handleVideoEnded))

	// player
	mux.Handle("SET_PAUSED", handleWS(c, c.handleSetPaused))
	mux.Handle("SET_POSITION", handleWS(c, c.handleSetPosition))
	mux.Handle("SEEK", handleWS(c, c.handleSeek))
	mux.Handle("SET_VOLUME", handleWS(c, c.handleSetVolume))
	mux.Handle("REPORT_POSITION", handleWS(c, c.handleReportPosition))

	mux.OnError(func(ctx context.Context, conn *websocket.Conn, err error) {
		c.logger.InfoContext(ctx, "ws handler error",
			"message_type", wsrouter.GetMessageTypeFromCtx(ctx),
			"error", err,
		)
		c.sendError(conn, c.userErrorMessage(err))
	})

	return mux
}

// handleWS adapts a typed handler to the router: unmarshal, validate,
// handle. A malformed payload degrades to an error reply, never further.
func handleWS[T any](c *controller, handler func(ctx context.Context, conn *websocket.Conn, input T) error) wsrouter.HandlerFunc {
	return func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error {
		var input T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &input); err != nil {
				return errInvalidPayload
			}
		}

		if validationErrors, ok := c.validate.Validate(input); !ok {
			return fmt.Errorf("%w: %v", errInvalidPayload, validationErrors)
		}

		return handler(ctx, conn, input)
	}
}
