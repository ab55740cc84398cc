package redis

import (
	"context"

	"github.com/cinesync/server/internal/repository/room"
)

func (r repo) getPlayerKey(roomId string) string {
	return "room:" + roomId + ":player"
}

func (r repo) SetPlayer(ctx context.Context, params *room.SetPlayerParams) error {
	pipe := r.rc.TxPipeline()

	playerKey := r.getPlayerKey(params.RoomId)
	if err := r.hSetStruct(ctx, pipe, playerKey, room.Player{
		VideoId:   params.VideoId,
		IsPaused:  params.IsPaused,
		Position:  params.Position,
		Volume:    params.Volume,
		UpdatedAt: params.UpdatedAt,
	}); err != nil {
		return err
	}
	pipe.Expire(ctx, playerKey, r.expireDuration)

	return r.executePipe(ctx, pipe)
}

func (r repo) GetPlayer(ctx context.Context, roomId string) (room.Player, error) {
	playerKey := r.getPlayerKey(roomId)
	cmd := r.rc.Exists(ctx, playerKey)
	if err := cmd.Err(); err != nil {
		return room.Player{}, err
	}

	if cmd.Val() == 0 {
		return room.Player{}, room.ErrPlayerNotFound
	}

	var player room.Player
	if err := r.rc.HGetAll(ctx, playerKey).Scan(&player); err != nil {
		return room.Player{}, err
	}

	r.rc.Expire(ctx, playerKey, r.expireDuration)

	return player, nil
}

func (r repo) UpdatePlayerState(ctx context.Context, params *room.UpdatePlayerStateParams) error {
	playerKey := r.getPlayerKey(params.RoomId)
	cmd := r.rc.Exists(ctx, playerKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return room.ErrPlayerNotFound
	}

	return r.rc.HSet(ctx, playerKey,
		"is_paused", params.IsPaused,
		"position", params.Position,
		"volume", params.Volume,
		"updated_at", params.UpdatedAt,
	).Err()
}

// UpdatePlayerVideo switches the current video and resets the clock.
func (r repo) UpdatePlayerVideo(ctx context.Context, params *room.UpdatePlayerVideoParams) error {
	playerKey := r.getPlayerKey(params.RoomId)
	cmd := r.rc.Exists(ctx, playerKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return room.ErrPlayerNotFound
	}

	return r.rc.HSet(ctx, playerKey,
		"video_id", params.VideoId,
		"is_paused", false,
		"position", 0,
		"updated_at", params.UpdatedAt,
	).Err()
}
