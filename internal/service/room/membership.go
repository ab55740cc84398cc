package room

import (
	"context"
	"fmt"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/room"
)

type CreateRoomParams struct {
	Conn     *websocket.Conn
	Username string
	RoomName string
	Password string
	Location string
}

type CreateRoomResponse struct {
	RoomId   string
	MemberId string
}

func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) (CreateRoomResponse, error) {
	roomId, err := s.generateRoomId(ctx)
	if err != nil {
		return CreateRoomResponse{}, err
	}

	unlock := s.locker.lock(roomId)
	defer unlock()

	passwordHash := ""
	if params.Password != "" {
		passwordHash, err = argon2id.CreateHash(params.Password, argon2id.DefaultParams)
		if err != nil {
			return CreateRoomResponse{}, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	if err := s.roomRepo.SetRoom(ctx, &room.SetRoomParams{
		RoomId:       roomId,
		Name:         params.RoomName,
		PasswordHash: passwordHash,
		Location:     params.Location,
		CreatedAt:    time.Now().Unix(),
	}); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to set room: %w", err)
	}

	if err := s.roomRepo.SetPlayer(ctx, &room.SetPlayerParams{
		RoomId:    roomId,
		VideoId:   "",
		IsPaused:  false,
		Position:  0,
		Volume:    s.defaultVolume,
		UpdatedAt: time.Now().Unix(),
	}); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to set player: %w", err)
	}

	memberId := uuid.NewString()
	if err := s.roomRepo.SetMember(ctx, &room.SetMemberParams{
		RoomId:   roomId,
		MemberId: memberId,
		Username: params.Username,
	}); err != nil {
		return CreateRoomResponse{}, fmt.Errorf("failed to set member: %w", err)
	}

	if err := s.attachConn(ctx, params.Conn, roomId, memberId); err != nil {
		return CreateRoomResponse{}, err
	}

	s.logger.InfoContext(ctx, "room created", "room_id", roomId, "location", params.Location)

	return CreateRoomResponse{
		RoomId:   roomId,
		MemberId: memberId,
	}, nil
}

type JoinRoomParams struct {
	Conn     *websocket.Conn
	RoomId   string
	Username string
	Password string
}

type JoinRoomResponse struct {
	MemberId string
}

func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	unlock := s.locker.lock(params.RoomId)
	defer unlock()

	rm, err := s.roomRepo.GetRoom(ctx, params.RoomId)
	if err != nil {
		if err == room.ErrRoomNotFound {
			return JoinRoomResponse{}, ErrRoomNotFound
		}
		return JoinRoomResponse{}, fmt.Errorf("failed to get room: %w", err)
	}

	if rm.PasswordHash != "" {
		match, err := argon2id.ComparePasswordAndHash(params.Password, rm.PasswordHash)
		if err != nil {
			return JoinRoomResponse{}, fmt.Errorf("failed to compare password: %w", err)
		}
		if !match {
			return JoinRoomResponse{}, ErrWrongPassword
		}
	}

	membersCount, err := s.roomRepo.GetMembersCount(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to get members count: %w", err)
	}
	if membersCount >= s.membersLimit {
		return JoinRoomResponse{}, ErrMembersLimitReached
	}

	memberId := uuid.NewString()
	if err := s.roomRepo.SetMember(ctx, &room.SetMemberParams{
		RoomId:   params.RoomId,
		MemberId: memberId,
		Username: params.Username,
	}); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to set member: %w", err)
	}

	if err := s.attachConn(ctx, params.Conn, params.RoomId, memberId); err != nil {
		return JoinRoomResponse{}, err
	}

	members, err := s.getMembers(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	otherConns := make([]*websocket.Conn, 0, len(conns))
	for _, conn := range conns {
		if conn != params.Conn {
			otherConns = append(otherConns, conn)
		}
	}

	joinedMember := Member{Id: memberId, Username: params.Username}
	s.broadcast(otherConns, "MEMBER_JOINED", &MemberJoinedPayload{
		JoinedMember: joinedMember,
		Members:      members,
	})

	s.logger.InfoContext(ctx, "member joined", "room_id", params.RoomId, "member_id", memberId)

	return JoinRoomResponse{MemberId: memberId}, nil
}

// attachConn registers the connection, attaches its outbound queue and
// sends the full room snapshot to the joiner.
func (s *service) attachConn(ctx context.Context, conn *websocket.Conn, roomId, memberId string) error {
	if err := s.connRepo.Add(conn, memberId); err != nil {
		return fmt.Errorf("failed to add connection: %w", err)
	}

	s.sender.Attach(conn)

	snapshot, err := s.getRoomSnapshot(ctx, roomId)
	if err != nil {
		s.sender.Detach(conn)
		s.connRepo.RemoveByMemberId(memberId)
		return err
	}

	s.broadcast([]*websocket.Conn{conn}, "ROOM_JOINED", &RoomJoinedPayload{
		MemberId: memberId,
		Room:     snapshot,
	})

	return nil
}

type DisconnectMemberParams struct {
	RoomId   string
	MemberId string
}

type DisconnectMemberResponse struct {
	IsRoomDeleted bool
}

// DisconnectMember removes the member and tears the room down when it was
// the last one. Idempotent: disconnecting an absent member is a no-op.
func (s *service) DisconnectMember(ctx context.Context, params *DisconnectMemberParams) (DisconnectMemberResponse, error) {
	unlock := s.locker.lock(params.RoomId)
	defer unlock()

	if conn, err := s.connRepo.GetConn(params.MemberId); err == nil {
		s.sender.Detach(conn)
		s.connRepo.RemoveByMemberId(params.MemberId)
	}

	if err := s.roomRepo.RemoveMember(ctx, &room.RemoveMemberParams{
		RoomId:   params.RoomId,
		MemberId: params.MemberId,
	}); err != nil {
		if err == room.ErrMemberNotFound {
			return DisconnectMemberResponse{}, nil
		}
		return DisconnectMemberResponse{}, fmt.Errorf("failed to remove member: %w", err)
	}

	membersCount, err := s.roomRepo.GetMembersCount(ctx, params.RoomId)
	if err != nil {
		return DisconnectMemberResponse{}, fmt.Errorf("failed to get members count: %w", err)
	}

	if membersCount == 0 {
		if err := s.removeRoom(ctx, params.RoomId); err != nil {
			return DisconnectMemberResponse{}, err
		}

		s.logger.InfoContext(ctx, "room deleted", "room_id", params.RoomId)

		return DisconnectMemberResponse{IsRoomDeleted: true}, nil
	}

	members, err := s.getMembers(ctx, params.RoomId)
	if err != nil {
		return DisconnectMemberResponse{}, err
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return DisconnectMemberResponse{}, err
	}

	s.broadcast(conns, "MEMBER_LEFT", &MemberLeftPayload{
		LeftMemberId: params.MemberId,
		Members:      members,
	})

	return DisconnectMemberResponse{}, nil
}

// removeRoom deletes every key the room owns: video hashes referenced by
// history or the queue, then the room itself.
func (s *service) removeRoom(ctx context.Context, roomId string) error {
	historyIds, err := s.roomRepo.GetHistoryVideoIds(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to get history video ids: %w", err)
	}

	playlistIds, err := s.roomRepo.GetPlaylistVideoIds(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to get playlist video ids: %w", err)
	}

	seen := make(map[string]struct{}, len(historyIds)+len(playlistIds))
	for _, videoId := range append(historyIds, playlistIds...) {
		if _, ok := seen[videoId]; ok {
			continue
		}
		seen[videoId] = struct{}{}

		if err := s.roomRepo.RemoveVideo(ctx, &room.RemoveVideoParams{
			RoomId:  roomId,
			VideoId: videoId,
		}); err != nil {
			return fmt.Errorf("failed to remove video: %w", err)
		}
	}

	if err := s.roomRepo.RemoveRoom(ctx, roomId); err != nil {
		return fmt.Errorf("failed to remove room: %w", err)
	}

	return nil
}

type GetRoomsByLocationParams struct {
	Location string
}

type GetRoomsByLocationResponse struct {
	Rooms []RoomSummary
}

// GetRoomsByLocation serves discovery queries. Rooms torn down while the
// listing is built are skipped.
func (s *service) GetRoomsByLocation(ctx context.Context, params *GetRoomsByLocationParams) (GetRoomsByLocationResponse, error) {
	roomIds, err := s.roomRepo.GetLocationRoomIds(ctx, params.Location)
	if err != nil {
		return GetRoomsByLocationResponse{}, fmt.Errorf("failed to get location room ids: %w", err)
	}

	rooms := make([]RoomSummary, 0, len(roomIds))
	for _, roomId := range roomIds {
		rm, err := s.roomRepo.GetRoom(ctx, roomId)
		if err != nil {
			if err == room.ErrRoomNotFound {
				continue
			}
			return GetRoomsByLocationResponse{}, fmt.Errorf("failed to get room: %w", err)
		}

		membersCount, err := s.roomRepo.GetMembersCount(ctx, roomId)
		if err != nil {
			return GetRoomsByLocationResponse{}, fmt.Errorf("failed to get members count: %w", err)
		}

		rooms = append(rooms, RoomSummary{
			RoomId:       roomId,
			Name:         rm.Name,
			HasPassword:  rm.PasswordHash != "",
			MembersCount: membersCount,
		})
	}

	return GetRoomsByLocationResponse{Rooms: rooms}, nil
}

func (s *service) generateRoomId(ctx context.Context) (string, error) {
	for i := 0; i < 5; i++ {
		roomId := s.generator.GenerateRandomString(8)

		exists, err := s.roomRepo.RoomExists(ctx, roomId)
		if err != nil {
			return "", fmt.Errorf("failed to check room exists: %w", err)
		}

		if !exists {
			return roomId, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique room id")
}
