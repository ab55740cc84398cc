package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinesync/server/internal/service/room"
)

type fakeSurface struct {
	mu       sync.Mutex
	calls    []string
	released bool
}

func (f *fakeSurface) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSurface) SetVideo(videoURL string) { f.record("video:" + videoURL) }
func (f *fakeSurface) SetPaused(isPaused bool)  { f.record(fmt.Sprintf("paused:%t", isPaused)) }
func (f *fakeSurface) SetTime(position int)     { f.record(fmt.Sprintf("time:%d", position)) }
func (f *fakeSurface) SetVolume(volume int)     { f.record(fmt.Sprintf("volume:%d", volume)) }

func (f *fakeSurface) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
}

func (f *fakeSurface) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type fakeSurfaceProvider struct {
	surface *fakeSurface
	roomId  string
}

func (f *fakeSurfaceProvider) Acquire(roomId string) (Surface, error) {
	f.roomId = roomId
	return f.surface, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

func (f *fakeNotifier) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

// scriptedServer upgrades one connection, sends the given messages and
// records everything the proxy sends back.
type scriptedServer struct {
	srv      *httptest.Server
	mu       sync.Mutex
	received []inbound
}

func newScriptedServer(t *testing.T, script []outbound) *scriptedServer {
	t.Helper()

	s := &scriptedServer{}
	upgrader := websocket.Upgrader{}

	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for _, msg := range script {
			require.NoError(t, conn.WriteJSON(msg))
		}

		for {
			var msg inbound
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			s.mu.Lock()
			s.received = append(s.received, msg)
			s.mu.Unlock()
		}
	}))
	t.Cleanup(s.srv.Close)

	return s
}

func (s *scriptedServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *scriptedServer) receivedTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	types := make([]string, 0, len(s.received))
	for _, msg := range s.received {
		types = append(types, msg.Type)
	}
	return types
}

func roomJoined() outbound {
	return outbound{
		Type: "ROOM_JOINED",
		Payload: room.RoomJoinedPayload{
			MemberId: "m1",
			Room: room.Room{
				RoomId: "abc12345",
				Name:   "movie night",
				Player: room.Player{Volume: 50},
				Playlist: room.Playlist{
					Videos:  []room.Video{},
					History: []room.Video{},
				},
				Members: []room.Member{{Id: "m1", Username: "alice"}},
			},
		},
	}
}

func TestProxyMirrorsBroadcasts(t *testing.T) {
	server := newScriptedServer(t, []outbound{
		roomJoined(),
		{
			Type: "MEMBER_JOINED",
			Payload: room.MemberJoinedPayload{
				JoinedMember: room.Member{Id: "m2", Username: "bob"},
				Members: []room.Member{
					{Id: "m1", Username: "alice"},
					{Id: "m2", Username: "bob"},
				},
			},
		},
		{
			Type: "VIDEO_ADDED",
			Payload: room.VideoAddedPayload{
				AddedVideo: room.Video{Id: "v1", SourceId: "dQw4w9WgXcQ", URL: "https://youtu.be/dQw4w9WgXcQ"},
				AddedBy:    "m2",
				Playlist: room.Playlist{
					Videos:       []room.Video{{Id: "v1", SourceId: "dQw4w9WgXcQ"}},
					History:      []room.Video{{Id: "v1", SourceId: "dQw4w9WgXcQ"}},
					CurrentVideo: &room.Video{Id: "v1", SourceId: "dQw4w9WgXcQ"},
				},
				Player: room.Player{VideoId: "v1", VideoURL: "https://youtu.be/dQw4w9WgXcQ", Volume: 50},
			},
		},
		{
			Type: "PLAYER_UPDATED",
			Payload: room.PlayerUpdatedPayload{
				UpdatedBy: "m2",
				Player:    room.Player{VideoId: "v1", VideoURL: "https://youtu.be/dQw4w9WgXcQ", IsPaused: true, Position: 3, Volume: 50},
			},
		},
	})

	surface := &fakeSurface{}
	surfaces := &fakeSurfaceProvider{surface: surface}
	notifier := &fakeNotifier{}

	proxy, err := JoinRoom(context.Background(), &JoinRoomParams{
		ServerURL: server.wsURL(),
		RoomId:    "abc12345",
		Username:  "alice",
	}, &Options{
		Surfaces:       surfaces,
		Notifier:       notifier,
		ReportInterval: time.Hour,
	})
	require.NoError(t, err)
	defer proxy.Close()

	assert.Equal(t, "abc12345", surfaces.roomId)
	assert.Equal(t, "m1", proxy.Session().MemberId())

	require.Eventually(t, func() bool {
		player := proxy.Session().Player()
		return player.VideoId == "v1" && player.IsPaused && player.Position == 3
	}, time.Second, 10*time.Millisecond)

	playlist := proxy.Session().Playlist()
	require.NotNil(t, playlist.CurrentVideo)
	assert.Equal(t, "v1", playlist.CurrentVideo.Id)
	assert.Len(t, proxy.Session().Members(), 2)

	messages := notifier.snapshot()
	assert.Contains(t, messages, "bob added a video to the queue")
	assert.Contains(t, messages, "bob paused the video")

	calls := surface.snapshot()
	assert.Contains(t, calls, "video:https://youtu.be/dQw4w9WgXcQ")
	assert.Contains(t, calls, "paused:true")
	assert.Contains(t, calls, "time:3")
}

func TestProxyForwardsIntents(t *testing.T) {
	server := newScriptedServer(t, []outbound{roomJoined()})

	proxy, err := JoinRoom(context.Background(), &JoinRoomParams{
		ServerURL: server.wsURL(),
		RoomId:    "abc12345",
		Username:  "alice",
	}, &Options{
		Surfaces:       &fakeSurfaceProvider{surface: &fakeSurface{}},
		ReportInterval: time.Hour,
	})
	require.NoError(t, err)
	defer proxy.Close()

	require.NoError(t, proxy.AddVideo("https://youtu.be/dQw4w9WgXcQ"))
	require.NoError(t, proxy.SetPaused(true))
	require.NoError(t, proxy.SkipVideo())

	require.Eventually(t, func() bool {
		return len(server.receivedTypes()) == 3
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"ADD_VIDEO", "SET_PAUSED", "SKIP_VIDEO"}, server.receivedTypes())
}

func TestProxyReportsPosition(t *testing.T) {
	joined := roomJoined()
	payload := joined.Payload.(room.RoomJoinedPayload)
	payload.Room.Player = room.Player{VideoId: "v1", VideoURL: "https://youtu.be/dQw4w9WgXcQ", Volume: 50}
	joined.Payload = payload

	server := newScriptedServer(t, []outbound{joined})

	proxy, err := JoinRoom(context.Background(), &JoinRoomParams{
		ServerURL: server.wsURL(),
		RoomId:    "abc12345",
		Username:  "alice",
	}, &Options{
		Surfaces:       &fakeSurfaceProvider{surface: &fakeSurface{}},
		ReportInterval: 20 * time.Millisecond,
	})
	require.NoError(t, err)
	defer proxy.Close()

	require.Eventually(t, func() bool {
		for _, messageType := range server.receivedTypes() {
			if messageType == "REPORT_POSITION" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestProxyJoinRejected(t *testing.T) {
	server := newScriptedServer(t, []outbound{
		{Type: "ERROR", Payload: map[string]string{"message": "could not join room, make sure the password is correct if there is one"}},
	})

	_, err := JoinRoom(context.Background(), &JoinRoomParams{
		ServerURL: server.wsURL(),
		RoomId:    "abc12345",
		Username:  "alice",
	}, &Options{
		Surfaces: &fakeSurfaceProvider{surface: &fakeSurface{}},
	})
	require.ErrorIs(t, err, ErrJoinRejected)
}

func TestProxyCloseReleasesSurface(t *testing.T) {
	server := newScriptedServer(t, []outbound{roomJoined()})

	surface := &fakeSurface{}
	proxy, err := JoinRoom(context.Background(), &JoinRoomParams{
		ServerURL: server.wsURL(),
		RoomId:    "abc12345",
		Username:  "alice",
	}, &Options{
		Surfaces:       &fakeSurfaceProvider{surface: surface},
		ReportInterval: time.Hour,
	})
	require.NoError(t, err)

	proxy.Close()
	proxy.Close()

	surface.mu.Lock()
	released := surface.released
	surface.mu.Unlock()
	assert.True(t, released)

	select {
	case <-proxy.Done():
	case <-time.After(time.Second):
		t.Fatal("proxy did not shut down")
	}
}
