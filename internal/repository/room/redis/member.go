package redis

import (
	"context"

	"github.com/cinesync/server/internal/repository/room"
)

func (r repo) getMemberKey(roomId, memberId string) string {
	return "room:" + roomId + ":member:" + memberId
}

func (r repo) getMemberlistKey(roomId string) string {
	return "room:" + roomId + ":memberlist"
}

func (r repo) SetMember(ctx context.Context, params *room.SetMemberParams) error {
	pipe := r.rc.TxPipeline()

	memberKey := r.getMemberKey(params.RoomId, params.MemberId)
	if err := r.hSetStruct(ctx, pipe, memberKey, room.Member{
		Username: params.Username,
	}); err != nil {
		return err
	}
	pipe.Expire(ctx, memberKey, r.expireDuration)

	memberlistKey := r.getMemberlistKey(params.RoomId)
	r.addWithIncrement(ctx, pipe, memberlistKey, params.MemberId)
	pipe.Expire(ctx, memberlistKey, r.expireDuration)

	return r.executePipe(ctx, pipe)
}

func (r repo) GetMember(ctx context.Context, params *room.GetMemberParams) (room.Member, error) {
	memberKey := r.getMemberKey(params.RoomId, params.MemberId)

	var member room.Member
	if err := r.rc.HGetAll(ctx, memberKey).Scan(&member); err != nil {
		return room.Member{}, err
	}

	if member.Username == "" {
		return room.Member{}, room.ErrMemberNotFound
	}

	r.rc.Expire(ctx, memberKey, r.expireDuration)

	return member, nil
}

func (r repo) RemoveMember(ctx context.Context, params *room.RemoveMemberParams) error {
	res, err := r.rc.ZRem(ctx, r.getMemberlistKey(params.RoomId), params.MemberId).Result()
	if err != nil {
		return err
	}

	if res == 0 {
		return room.ErrMemberNotFound
	}

	return r.rc.Del(ctx, r.getMemberKey(params.RoomId, params.MemberId)).Err()
}

func (r repo) GetMemberIds(ctx context.Context, roomId string) ([]string, error) {
	memberlistKey := r.getMemberlistKey(roomId)
	memberIds, err := r.rc.ZRange(ctx, memberlistKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	r.rc.Expire(ctx, memberlistKey, r.expireDuration)

	return memberIds, nil
}

func (r repo) GetMembersCount(ctx context.Context, roomId string) (int, error) {
	count, err := r.rc.ZCard(ctx, r.getMemberlistKey(roomId)).Result()
	if err != nil {
		return 0, err
	}

	return int(count), nil
}

func (r repo) UpdateMemberReportedTime(ctx context.Context, params *room.UpdateMemberReportedTimeParams) error {
	memberKey := r.getMemberKey(params.RoomId, params.MemberId)
	cmd := r.rc.Exists(ctx, memberKey)
	if err := cmd.Err(); err != nil {
		return err
	}

	if cmd.Val() == 0 {
		return room.ErrMemberNotFound
	}

	return r.rc.HSet(ctx, memberKey, "reported_time", params.ReportedTime).Err()
}
