package broadcaster

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newConnPair dials a throwaway websocket server and hands back both ends.
func newConnPair(t *testing.T) (server, client *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverConns := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		serverConns <- conn
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	server = <-serverConns
	t.Cleanup(func() { server.Close() })

	return server, client
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendPreservesOrder(t *testing.T) {
	server, client := newConnPair(t)

	s := New(64, discardLogger())
	s.Attach(server)
	defer s.Detach(server)

	for i := 0; i < 50; i++ {
		s.Send([]*websocket.Conn{server}, map[string]int{"seq": i})
	}

	for i := 0; i < 50; i++ {
		client.SetReadDeadline(time.Now().Add(time.Second))
		_, b, err := client.ReadMessage()
		require.NoError(t, err)

		var msg struct {
			Seq int `json:"seq"`
		}
		require.NoError(t, json.Unmarshal(b, &msg))
		assert.Equal(t, i, msg.Seq, "messages must arrive in enqueue order")
	}
}

func TestSendToUnattachedConnIsNoop(t *testing.T) {
	server, client := newConnPair(t)

	s := New(64, discardLogger())
	s.Send([]*websocket.Conn{server}, map[string]string{"hello": "world"})

	client.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	_, _, err := client.ReadMessage()
	assert.Error(t, err, "nothing may be delivered to an unattached conn")
}

func TestDetachIsIdempotent(t *testing.T) {
	server, _ := newConnPair(t)

	s := New(64, discardLogger())
	s.Attach(server)
	s.Attach(server) // second attach is ignored

	s.Detach(server)
	s.Detach(server)
}

func TestSendAfterDetachDeliversNothing(t *testing.T) {
	server, client := newConnPair(t)

	s := New(64, discardLogger())
	s.Attach(server)
	s.Detach(server)

	s.Send([]*websocket.Conn{server}, map[string]string{"hello": "world"})

	client.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	_, _, err := client.ReadMessage()
	assert.Error(t, err)
}

func TestSendFansOut(t *testing.T) {
	serverA, clientA := newConnPair(t)
	serverB, clientB := newConnPair(t)

	s := New(64, discardLogger())
	s.Attach(serverA)
	s.Attach(serverB)
	defer s.Detach(serverA)
	defer s.Detach(serverB)

	s.Send([]*websocket.Conn{serverA, serverB}, map[string]string{"hello": "world"})

	for _, client := range []*websocket.Conn{clientA, clientB} {
		client.SetReadDeadline(time.Now().Add(time.Second))
		_, b, err := client.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, `{"hello":"world"}`, string(b))
	}
}
