package redis

import (
	"context"

	"github.com/cinesync/server/internal/repository/room"
)

func (r repo) getRoomKey(roomId string) string {
	return "room:" + roomId
}

func (r repo) getLocationKey(location string) string {
	return "location:" + location + ":rooms"
}

func (r repo) SetRoom(ctx context.Context, params *room.SetRoomParams) error {
	pipe := r.rc.TxPipeline()

	roomKey := r.getRoomKey(params.RoomId)
	if err := r.hSetStruct(ctx, pipe, roomKey, room.Room{
		Name:         params.Name,
		PasswordHash: params.PasswordHash,
		Location:     params.Location,
		CreatedAt:    params.CreatedAt,
	}); err != nil {
		return err
	}
	pipe.Expire(ctx, roomKey, r.expireDuration)

	pipe.SAdd(ctx, r.getLocationKey(params.Location), params.RoomId)

	return r.executePipe(ctx, pipe)
}

func (r repo) GetRoom(ctx context.Context, roomId string) (room.Room, error) {
	roomKey := r.getRoomKey(roomId)

	var rm room.Room
	if err := r.rc.HGetAll(ctx, roomKey).Scan(&rm); err != nil {
		return room.Room{}, err
	}

	if rm.Name == "" {
		return room.Room{}, room.ErrRoomNotFound
	}

	r.rc.Expire(ctx, roomKey, r.expireDuration)

	return rm, nil
}

func (r repo) RoomExists(ctx context.Context, roomId string) (bool, error) {
	res, err := r.rc.Exists(ctx, r.getRoomKey(roomId)).Result()
	if err != nil {
		return false, err
	}

	return res > 0, nil
}

// RemoveRoom deletes the room hash, its player, lists and location index
// entry. Member and video hashes are removed by their own calls.
func (r repo) RemoveRoom(ctx context.Context, roomId string) error {
	rm, err := r.GetRoom(ctx, roomId)
	if err != nil {
		return err
	}

	pipe := r.rc.TxPipeline()
	pipe.SRem(ctx, r.getLocationKey(rm.Location), roomId)
	pipe.Del(ctx,
		r.getRoomKey(roomId),
		r.getPlayerKey(roomId),
		r.getPlaylistKey(roomId),
		r.getHistoryKey(roomId),
		r.getMemberlistKey(roomId),
	)

	return r.executePipe(ctx, pipe)
}

func (r repo) GetLocationRoomIds(ctx context.Context, location string) ([]string, error) {
	return r.rc.SMembers(ctx, r.getLocationKey(location)).Result()
}
