package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinesync/server/internal/broadcaster"
	"github.com/cinesync/server/internal/client"
	"github.com/cinesync/server/internal/controller"
	"github.com/cinesync/server/internal/repository/connection/inmemory"
	roomRedis "github.com/cinesync/server/internal/repository/room/redis"
	"github.com/cinesync/server/internal/service/room"
	"github.com/cinesync/server/pkg/ytvideodata"
)

type testSurface struct {
	mu    sync.Mutex
	calls []string
}

func (s *testSurface) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *testSurface) SetVideo(videoURL string) { s.record("video:" + videoURL) }
func (s *testSurface) SetPaused(isPaused bool)  { s.record(fmt.Sprintf("paused:%t", isPaused)) }
func (s *testSurface) SetTime(position int)     { s.record(fmt.Sprintf("time:%d", position)) }
func (s *testSurface) SetVolume(volume int)     { s.record(fmt.Sprintf("volume:%d", volume)) }
func (s *testSurface) Release()                 { s.record("release") }

func (s *testSurface) has(call string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c == call {
			return true
		}
	}
	return false
}

type testSurfaceProvider struct {
	surface *testSurface
}

func (p *testSurfaceProvider) Acquire(string) (client.Surface, error) {
	return p.surface, nil
}

type testNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *testNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

func (n *testNotifier) has(message string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.messages {
		if m == message {
			return true
		}
	}
	return false
}

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	s := miniredis.RunT(t)
	rc := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sender := broadcaster.New(64, logger)
	roomService := room.NewService(roomRedis.NewRepo(rc, time.Hour), inmemory.NewRepo(), sender, logger, &room.Config{
		MembersLimit:  9,
		PlaylistLimit: 25,
		DefaultVolume: 50,
	})

	// metadata lookups fail instantly instead of reaching out
	ctrl := controller.NewController(roomService, sender, ytvideodata.NewClient(time.Millisecond), logger)

	srv := httptest.NewServer(ctrl.GetMux())
	t.Cleanup(srv.Close)

	return srv
}

func wsBaseURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func listRooms(t *testing.T, srv *httptest.Server, location string) []map[string]any {
	t.Helper()

	resp, err := http.Get(srv.URL + "/api/v1/rooms?location=" + location)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body.Data
}

func TestHealthz(t *testing.T) {
	srv := startTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEndToEndRoomSession(t *testing.T) {
	srv := startTestServer(t)
	ctx := context.Background()

	aliceSurface := &testSurface{}
	aliceNotifier := &testNotifier{}
	alice, err := client.CreateRoom(ctx, &client.CreateRoomParams{
		ServerURL: wsBaseURL(srv),
		Location:  "downtown",
		RoomName:  "movie night",
		Username:  "alice",
		Password:  "hunter2",
	}, &client.Options{
		Surfaces:       &testSurfaceProvider{surface: aliceSurface},
		Notifier:       aliceNotifier,
		ReportInterval: time.Hour,
	})
	require.NoError(t, err)
	defer alice.Close()

	roomId := alice.Session().Room().RoomId
	require.NotEmpty(t, roomId)

	// the room shows up in location discovery, without its password
	rooms := listRooms(t, srv, "downtown")
	require.Len(t, rooms, 1)
	assert.Equal(t, roomId, rooms[0]["room_id"])
	assert.Equal(t, true, rooms[0]["has_password"])
	assert.Empty(t, listRooms(t, srv, "uptown"))

	// joining with the wrong password fails with the generic message
	_, err = client.JoinRoom(ctx, &client.JoinRoomParams{
		ServerURL: wsBaseURL(srv),
		RoomId:    roomId,
		Username:  "mallory",
		Password:  "wrong",
	}, &client.Options{
		Surfaces: &testSurfaceProvider{surface: &testSurface{}},
	})
	require.ErrorIs(t, err, client.ErrJoinRejected)

	bobSurface := &testSurface{}
	bobNotifier := &testNotifier{}
	bob, err := client.JoinRoom(ctx, &client.JoinRoomParams{
		ServerURL: wsBaseURL(srv),
		RoomId:    roomId,
		Username:  "bob",
		Password:  "hunter2",
	}, &client.Options{
		Surfaces:       &testSurfaceProvider{surface: bobSurface},
		Notifier:       bobNotifier,
		ReportInterval: time.Hour,
	})
	require.NoError(t, err)
	defer bob.Close()

	require.Eventually(t, func() bool {
		return len(alice.Session().Members()) == 2
	}, 2*time.Second, 10*time.Millisecond, "alice must see bob join")

	// bob queues a video, both mirrors converge on it playing
	require.NoError(t, bob.AddVideo("https://youtu.be/dQw4w9WgXcQ"))

	require.Eventually(t, func() bool {
		return alice.Session().Player().VideoId != "" &&
			bob.Session().Player().VideoId == alice.Session().Player().VideoId
	}, 2*time.Second, 10*time.Millisecond)

	playlist := alice.Session().Playlist()
	require.NotNil(t, playlist.CurrentVideo)
	assert.Equal(t, "dQw4w9WgXcQ", playlist.CurrentVideo.SourceId)
	assert.Len(t, playlist.History, 1)
	assert.True(t, aliceNotifier.has("bob added a video to the queue"))
	assert.True(t, aliceSurface.has("video:https://youtu.be/dQw4w9WgXcQ"))

	// bob pauses, alice sees it
	require.NoError(t, bob.SetPaused(true))
	require.Eventually(t, func() bool {
		return alice.Session().Player().IsPaused
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, aliceNotifier.has("bob paused the video"))
	assert.True(t, aliceSurface.has("paused:true"))

	// alice skips the only video, the room goes idle on both sides
	require.NoError(t, alice.SkipVideo())
	require.Eventually(t, func() bool {
		return alice.Session().Player().VideoId == "" && bob.Session().Player().VideoId == ""
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, bobNotifier.has("alice skipped the video"))

	history := bob.Session().Playlist().History
	assert.Len(t, history, 1, "skipped video stays in the history")

	// everyone leaves, the room is torn down
	alice.Close()
	bob.Close()

	require.Eventually(t, func() bool {
		return len(listRooms(t, srv, "downtown")) == 0
	}, 2*time.Second, 10*time.Millisecond, "empty room must be deleted")

	assert.True(t, aliceSurface.has("release"))
}

func TestMalformedMessagesGetErrorReply(t *testing.T) {
	srv := startTestServer(t)
	ctx := context.Background()

	notifier := &testNotifier{}
	proxy, err := client.CreateRoom(ctx, &client.CreateRoomParams{
		ServerURL: wsBaseURL(srv),
		Location:  "downtown",
		RoomName:  "movie night",
		Username:  "alice",
	}, &client.Options{
		Surfaces:       &testSurfaceProvider{surface: &testSurface{}},
		Notifier:       notifier,
		ReportInterval: time.Hour,
	})
	require.NoError(t, err)
	defer proxy.Close()

	// invalid video url degrades to an error reply, the session survives
	require.NoError(t, proxy.AddVideo("   "))

	require.Eventually(t, func() bool {
		return notifier.has("invalid video url")
	}, 2*time.Second, 10*time.Millisecond)

	// the connection still works afterwards
	require.NoError(t, proxy.AddVideo("dQw4w9WgXcQ"))
	require.Eventually(t, func() bool {
		return proxy.Session().Player().VideoId != ""
	}, 2*time.Second, 10*time.Millisecond)
}
