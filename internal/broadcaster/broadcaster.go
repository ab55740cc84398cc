package broadcaster

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Sender fans room-state messages out to viewer connections. Each attached
// connection gets a buffered queue drained by a single writer goroutine, so
// messages enqueued in mutation order arrive in that order. Delivery is
// at-most-once: a queue that fills up (a stalled viewer) drops the
// connection rather than stalling the room.
type Sender struct {
	mu        sync.Mutex
	queues    map[*websocket.Conn]chan []byte
	queueSize int
	logger    *slog.Logger
}

func New(queueSize int, logger *slog.Logger) *Sender {
	return &Sender{
		queues:    make(map[*websocket.Conn]chan []byte),
		queueSize: queueSize,
		logger:    logger,
	}
}

func (s *Sender) Attach(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.queues[conn]; ok {
		return
	}

	queue := make(chan []byte, s.queueSize)
	s.queues[conn] = queue

	go s.writeLoop(conn, queue)
}

func (s *Sender) Detach(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.detachLocked(conn)
}

func (s *Sender) detachLocked(conn *websocket.Conn) {
	queue, ok := s.queues[conn]
	if !ok {
		return
	}

	delete(s.queues, conn)
	close(queue)
}

// Send marshals the message once and enqueues it for every connection.
// Must be called in mutation order (the room service calls it while
// holding the room lock).
func (s *Sender) Send(conns []*websocket.Conn, msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to marshal broadcast", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, conn := range conns {
		queue, ok := s.queues[conn]
		if !ok {
			continue
		}

		select {
		case queue <- b:
		default:
			s.logger.Warn("viewer queue full, dropping connection")
			s.detachLocked(conn)
			conn.Close()
		}
	}
}

func (s *Sender) writeLoop(conn *websocket.Conn, queue <-chan []byte) {
	for b := range queue {
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			s.logger.Debug("failed to write to viewer", "error", err)
			s.Detach(conn)
			conn.Close()

			// drain whatever is still queued
			for range queue {
			}
			return
		}
	}
}
