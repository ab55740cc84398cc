package controller

import "context"

type ctxKey string

const (
	roomIdKey   ctxKey = "room_id"
	memberIdKey ctxKey = "member_id"
)

func withRoomId(ctx context.Context, roomId string) context.Context {
	return context.WithValue(ctx, roomIdKey, roomId)
}

func withMemberId(ctx context.Context, memberId string) context.Context {
	return context.WithValue(ctx, memberIdKey, memberId)
}

func (c *controller) getRoomIdFromCtx(ctx context.Context) string {
	roomId, _ := ctx.Value(roomIdKey).(string)
	return roomId
}

func (c *controller) getMemberIdFromCtx(ctx context.Context) string {
	memberId, _ := ctx.Value(memberIdKey).(string)
	return memberId
}
