package wsrouter

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gorilla/websocket"
)

var ErrUnknownMessageType = errors.New("unknown message type")

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

// ErrorFunc is called when a handler fails or a message has no route.
type ErrorFunc func(ctx context.Context, conn *websocket.Conn, err error)

type WSRouter struct {
	routes  map[string]HandlerFunc
	onError ErrorFunc
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

func (r *WSRouter) OnError(f ErrorFunc) {
	r.onError = f
}

// ServeConn reads messages from the connection until it fails, dispatching
// each one by its type. Handler errors do not terminate the loop.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		msgCtx := withMessageType(ctx, msg.Type)

		handler, exists := r.routes[msg.Type]
		if !exists {
			if r.onError != nil {
				r.onError(msgCtx, conn, ErrUnknownMessageType)
			}
			continue
		}

		if err := handler(msgCtx, conn, msg.Payload); err != nil {
			if r.onError != nil {
				r.onError(msgCtx, conn, err)
			}
		}
	}
}
