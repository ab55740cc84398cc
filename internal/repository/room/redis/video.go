package redis

import (
	"context"

	"github.com/cinesync/server/internal/repository/room"
)

func (r repo) getVideoKey(roomId, videoId string) string {
	return "room:" + roomId + ":video:" + videoId
}

func (r repo) getPlaylistKey(roomId string) string {
	return "room:" + roomId + ":playlist"
}

func (r repo) getHistoryKey(roomId string) string {
	return "room:" + roomId + ":history"
}

func (r repo) SetVideo(ctx context.Context, params *room.SetVideoParams) error {
	pipe := r.rc.TxPipeline()

	videoKey := r.getVideoKey(params.RoomId, params.VideoId)
	if err := r.hSetStruct(ctx, pipe, videoKey, room.Video{
		SourceId:  params.SourceId,
		URL:       params.URL,
		Title:     params.Title,
		AddedById: params.AddedById,
	}); err != nil {
		return err
	}
	pipe.Expire(ctx, videoKey, r.expireDuration)

	return r.executePipe(ctx, pipe)
}

func (r repo) GetVideo(ctx context.Context, params *room.GetVideoParams) (room.Video, error) {
	videoKey := r.getVideoKey(params.RoomId, params.VideoId)

	var video room.Video
	if err := r.rc.HGetAll(ctx, videoKey).Scan(&video); err != nil {
		return room.Video{}, err
	}

	if video.SourceId == "" {
		return room.Video{}, room.ErrVideoNotFound
	}

	r.rc.Expire(ctx, videoKey, r.expireDuration)

	return video, nil
}

func (r repo) RemoveVideo(ctx context.Context, params *room.RemoveVideoParams) error {
	return r.rc.Del(ctx, r.getVideoKey(params.RoomId, params.VideoId)).Err()
}

func (r repo) AddVideoToPlaylist(ctx context.Context, params *room.VideoListParams) error {
	pipe := r.rc.TxPipeline()

	playlistKey := r.getPlaylistKey(params.RoomId)
	r.addWithIncrement(ctx, pipe, playlistKey, params.VideoId)
	pipe.Expire(ctx, playlistKey, r.expireDuration)

	return r.executePipe(ctx, pipe)
}

func (r repo) AddVideoToHistory(ctx context.Context, params *room.VideoListParams) error {
	pipe := r.rc.TxPipeline()

	historyKey := r.getHistoryKey(params.RoomId)
	r.addWithIncrement(ctx, pipe, historyKey, params.VideoId)
	pipe.Expire(ctx, historyKey, r.expireDuration)

	return r.executePipe(ctx, pipe)
}

func (r repo) RemoveVideoFromPlaylist(ctx context.Context, params *room.VideoListParams) error {
	res, err := r.rc.ZRem(ctx, r.getPlaylistKey(params.RoomId), params.VideoId).Result()
	if err != nil {
		return err
	}

	if res == 0 {
		return room.ErrVideoNotFound
	}

	return nil
}

func (r repo) RemoveVideoFromHistory(ctx context.Context, params *room.VideoListParams) error {
	res, err := r.rc.ZRem(ctx, r.getHistoryKey(params.RoomId), params.VideoId).Result()
	if err != nil {
		return err
	}

	if res == 0 {
		return room.ErrVideoNotFound
	}

	return nil
}

func (r repo) GetPlaylistVideoIds(ctx context.Context, roomId string) ([]string, error) {
	playlistKey := r.getPlaylistKey(roomId)
	videoIds, err := r.rc.ZRange(ctx, playlistKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	r.rc.Expire(ctx, playlistKey, r.expireDuration)

	return videoIds, nil
}

func (r repo) GetHistoryVideoIds(ctx context.Context, roomId string) ([]string, error) {
	historyKey := r.getHistoryKey(roomId)
	videoIds, err := r.rc.ZRange(ctx, historyKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	r.rc.Expire(ctx, historyKey, r.expireDuration)

	return videoIds, nil
}

func (r repo) GetPlaylistLength(ctx context.Context, roomId string) (int, error) {
	length, err := r.rc.ZCard(ctx, r.getPlaylistKey(roomId)).Result()
	if err != nil {
		return 0, err
	}

	return int(length), nil
}

// ClearPlaylists drops both ordered lists; used by the atomic playlist
// replacement.
func (r repo) ClearPlaylists(ctx context.Context, roomId string) error {
	return r.rc.Del(ctx, r.getPlaylistKey(roomId), r.getHistoryKey(roomId)).Err()
}
