package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinesync/server/internal/repository/room"
)

func newTestRepo(t *testing.T) *repo {
	t.Helper()

	s := miniredis.RunT(t)
	rc := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, time.Hour)
}

func TestRoomLifecycle(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	exists, err := r.RoomExists(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = r.GetRoom(ctx, "r1")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{
		RoomId:       "r1",
		Name:         "movie night",
		PasswordHash: "hash",
		Location:     "downtown",
		CreatedAt:    1700000000,
	}))

	exists, err = r.RoomExists(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, exists)

	rm, err := r.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "movie night", rm.Name)
	assert.Equal(t, "hash", rm.PasswordHash)
	assert.Equal(t, "downtown", rm.Location)
	assert.Equal(t, int64(1700000000), rm.CreatedAt)

	roomIds, err := r.GetLocationRoomIds(ctx, "downtown")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, roomIds)

	require.NoError(t, r.RemoveRoom(ctx, "r1"))

	_, err = r.GetRoom(ctx, "r1")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	roomIds, err = r.GetLocationRoomIds(ctx, "downtown")
	require.NoError(t, err)
	assert.Empty(t, roomIds, "deleted room must leave the location index")
}

func TestMembers(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SetMember(ctx, &room.SetMemberParams{RoomId: "r1", MemberId: "m1", Username: "alice"}))
	require.NoError(t, r.SetMember(ctx, &room.SetMemberParams{RoomId: "r1", MemberId: "m2", Username: "bob"}))

	memberIds, err := r.GetMemberIds(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, memberIds, "join order must be preserved")

	count, err := r.GetMembersCount(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	member, err := r.GetMember(ctx, &room.GetMemberParams{RoomId: "r1", MemberId: "m2"})
	require.NoError(t, err)
	assert.Equal(t, "bob", member.Username)

	require.NoError(t, r.UpdateMemberReportedTime(ctx, &room.UpdateMemberReportedTimeParams{
		RoomId:       "r1",
		MemberId:     "m2",
		ReportedTime: 42,
	}))
	member, err = r.GetMember(ctx, &room.GetMemberParams{RoomId: "r1", MemberId: "m2"})
	require.NoError(t, err)
	assert.Equal(t, 42, member.ReportedTime)

	require.NoError(t, r.RemoveMember(ctx, &room.RemoveMemberParams{RoomId: "r1", MemberId: "m1"}))
	assert.ErrorIs(t, r.RemoveMember(ctx, &room.RemoveMemberParams{RoomId: "r1", MemberId: "m1"}), room.ErrMemberNotFound)

	_, err = r.GetMember(ctx, &room.GetMemberParams{RoomId: "r1", MemberId: "m1"})
	assert.ErrorIs(t, err, room.ErrMemberNotFound)
}

func TestPlaylistOrdering(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for _, videoId := range []string{"v1", "v2", "v3"} {
		require.NoError(t, r.AddVideoToPlaylist(ctx, &room.VideoListParams{RoomId: "r1", VideoId: videoId}))
	}

	videoIds, err := r.GetPlaylistVideoIds(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2", "v3"}, videoIds)

	length, err := r.GetPlaylistLength(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 3, length)

	// removing from the middle keeps the rest in order
	require.NoError(t, r.RemoveVideoFromPlaylist(ctx, &room.VideoListParams{RoomId: "r1", VideoId: "v2"}))
	videoIds, err = r.GetPlaylistVideoIds(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v3"}, videoIds)

	// a later add always lands at the tail, even after removals
	require.NoError(t, r.AddVideoToPlaylist(ctx, &room.VideoListParams{RoomId: "r1", VideoId: "v4"}))
	videoIds, err = r.GetPlaylistVideoIds(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v3", "v4"}, videoIds)

	assert.ErrorIs(t,
		r.RemoveVideoFromPlaylist(ctx, &room.VideoListParams{RoomId: "r1", VideoId: "nosuch"}),
		room.ErrVideoNotFound)

	require.NoError(t, r.AddVideoToHistory(ctx, &room.VideoListParams{RoomId: "r1", VideoId: "v1"}))

	require.NoError(t, r.ClearPlaylists(ctx, "r1"))
	videoIds, err = r.GetPlaylistVideoIds(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, videoIds)
	videoIds, err = r.GetHistoryVideoIds(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, videoIds)
}

func TestVideos(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SetVideo(ctx, &room.SetVideoParams{
		RoomId:    "r1",
		VideoId:   "v1",
		SourceId:  "dQw4w9WgXcQ",
		URL:       "https://youtu.be/dQw4w9WgXcQ",
		Title:     "some title",
		AddedById: "m1",
	}))

	video, err := r.GetVideo(ctx, &room.GetVideoParams{RoomId: "r1", VideoId: "v1"})
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", video.SourceId)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", video.URL)
	assert.Equal(t, "some title", video.Title)
	assert.Equal(t, "m1", video.AddedById)

	require.NoError(t, r.RemoveVideo(ctx, &room.RemoveVideoParams{RoomId: "r1", VideoId: "v1"}))

	_, err = r.GetVideo(ctx, &room.GetVideoParams{RoomId: "r1", VideoId: "v1"})
	assert.ErrorIs(t, err, room.ErrVideoNotFound)
}

func TestPlayer(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.GetPlayer(ctx, "r1")
	assert.ErrorIs(t, err, room.ErrPlayerNotFound)

	require.NoError(t, r.SetPlayer(ctx, &room.SetPlayerParams{
		RoomId:    "r1",
		VideoId:   "",
		IsPaused:  false,
		Position:  0,
		Volume:    50,
		UpdatedAt: 1700000000,
	}))

	player, err := r.GetPlayer(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, player.VideoId)
	assert.Equal(t, 50, player.Volume)

	require.NoError(t, r.UpdatePlayerState(ctx, &room.UpdatePlayerStateParams{
		RoomId:    "r1",
		IsPaused:  true,
		Position:  42,
		Volume:    80,
		UpdatedAt: 1700000001,
	}))

	player, err = r.GetPlayer(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, player.IsPaused)
	assert.Equal(t, 42, player.Position)
	assert.Equal(t, 80, player.Volume)

	// switching videos resets the clock
	require.NoError(t, r.UpdatePlayerVideo(ctx, &room.UpdatePlayerVideoParams{
		RoomId:    "r1",
		VideoId:   "v1",
		UpdatedAt: 1700000002,
	}))

	player, err = r.GetPlayer(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "v1", player.VideoId)
	assert.False(t, player.IsPaused)
	assert.Equal(t, 0, player.Position)
	assert.Equal(t, 80, player.Volume, "volume survives a video change")

	assert.ErrorIs(t, r.UpdatePlayerState(ctx, &room.UpdatePlayerStateParams{RoomId: "r2"}), room.ErrPlayerNotFound)
}
