package inmemory

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinesync/server/internal/repository/connection"
)

func TestAddAndGet(t *testing.T) {
	r := NewRepo()
	conn := &websocket.Conn{}

	require.NoError(t, r.Add(conn, "m1"))

	memberId, err := r.GetMemberId(conn)
	require.NoError(t, err)
	assert.Equal(t, "m1", memberId)

	got, err := r.GetConn("m1")
	require.NoError(t, err)
	assert.Same(t, conn, got)
}

func TestAddDuplicate(t *testing.T) {
	r := NewRepo()
	conn := &websocket.Conn{}

	require.NoError(t, r.Add(conn, "m1"))
	assert.ErrorIs(t, r.Add(conn, "m2"), connection.ErrAlreadyExists)
	assert.ErrorIs(t, r.Add(&websocket.Conn{}, "m1"), connection.ErrAlreadyExists)
}

func TestRemove(t *testing.T) {
	r := NewRepo()
	conn := &websocket.Conn{}

	require.NoError(t, r.Add(conn, "m1"))
	require.NoError(t, r.RemoveByMemberId("m1"))

	_, err := r.GetMemberId(conn)
	assert.ErrorIs(t, err, connection.ErrNotFound)
	_, err = r.GetConn("m1")
	assert.ErrorIs(t, err, connection.ErrNotFound)

	assert.ErrorIs(t, r.RemoveByMemberId("m1"), connection.ErrNotFound)

	// both lookup sides drop together
	require.NoError(t, r.Add(conn, "m1"))
	require.NoError(t, r.RemoveByConn(conn))
	assert.ErrorIs(t, r.RemoveByConn(conn), connection.ErrNotFound)
}
