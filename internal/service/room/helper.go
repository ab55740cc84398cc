package room

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/room"
)

func (s *service) checkMembership(ctx context.Context, roomId, memberId string) (room.Member, error) {
	member, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{
		RoomId:   roomId,
		MemberId: memberId,
	})
	if err != nil {
		if err == room.ErrMemberNotFound {
			return room.Member{}, ErrNotAMember
		}
		return room.Member{}, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

func (s *service) getConnsByRoomId(ctx context.Context, roomId string) ([]*websocket.Conn, error) {
	memberIds, err := s.roomRepo.GetMemberIds(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	conns := make([]*websocket.Conn, 0, len(memberIds))
	for _, memberId := range memberIds {
		conn, err := s.connRepo.GetConn(memberId)
		if err != nil {
			// member exists but never connected or already dropped
			continue
		}

		conns = append(conns, conn)
	}

	return conns, nil
}

func (s *service) getMembers(ctx context.Context, roomId string) ([]Member, error) {
	memberIds, err := s.roomRepo.GetMemberIds(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to get member ids: %w", err)
	}

	members := make([]Member, 0, len(memberIds))
	for _, memberId := range memberIds {
		member, err := s.roomRepo.GetMember(ctx, &room.GetMemberParams{
			RoomId:   roomId,
			MemberId: memberId,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get member: %w", err)
		}

		members = append(members, Member{
			Id:       memberId,
			Username: member.Username,
		})
	}

	return members, nil
}

func (s *service) getVideos(ctx context.Context, roomId string, videoIds []string) ([]Video, error) {
	videos := make([]Video, 0, len(videoIds))
	for _, videoId := range videoIds {
		video, err := s.roomRepo.GetVideo(ctx, &room.GetVideoParams{
			RoomId:  roomId,
			VideoId: videoId,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get video: %w", err)
		}

		videos = append(videos, Video{
			Id:        videoId,
			SourceId:  video.SourceId,
			URL:       video.URL,
			Title:     video.Title,
			AddedById: video.AddedById,
		})
	}

	return videos, nil
}

func (s *service) getPlaylist(ctx context.Context, roomId string) (Playlist, error) {
	playlistIds, err := s.roomRepo.GetPlaylistVideoIds(ctx, roomId)
	if err != nil {
		return Playlist{}, fmt.Errorf("failed to get playlist video ids: %w", err)
	}

	videos, err := s.getVideos(ctx, roomId, playlistIds)
	if err != nil {
		return Playlist{}, err
	}

	historyIds, err := s.roomRepo.GetHistoryVideoIds(ctx, roomId)
	if err != nil {
		return Playlist{}, fmt.Errorf("failed to get history video ids: %w", err)
	}

	history, err := s.getVideos(ctx, roomId, historyIds)
	if err != nil {
		return Playlist{}, err
	}

	playlist := Playlist{
		Videos:  videos,
		History: history,
	}

	player, err := s.roomRepo.GetPlayer(ctx, roomId)
	if err != nil {
		return Playlist{}, fmt.Errorf("failed to get player: %w", err)
	}

	if player.VideoId != "" {
		for i := range videos {
			if videos[i].Id == player.VideoId {
				playlist.CurrentVideo = &videos[i]
				break
			}
		}
	}

	return playlist, nil
}

func (s *service) getPlayer(ctx context.Context, roomId string) (Player, error) {
	player, err := s.roomRepo.GetPlayer(ctx, roomId)
	if err != nil {
		return Player{}, fmt.Errorf("failed to get player: %w", err)
	}

	videoURL := ""
	if player.VideoId != "" {
		video, err := s.roomRepo.GetVideo(ctx, &room.GetVideoParams{
			RoomId:  roomId,
			VideoId: player.VideoId,
		})
		if err != nil {
			return Player{}, fmt.Errorf("failed to get current video: %w", err)
		}

		videoURL = video.URL
	}

	return Player{
		VideoId:   player.VideoId,
		VideoURL:  videoURL,
		IsPaused:  player.IsPaused,
		Position:  player.Position,
		Volume:    player.Volume,
		UpdatedAt: player.UpdatedAt,
	}, nil
}

func (s *service) getRoomSnapshot(ctx context.Context, roomId string) (Room, error) {
	rm, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		if err == room.ErrRoomNotFound {
			return Room{}, ErrRoomNotFound
		}
		return Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	player, err := s.getPlayer(ctx, roomId)
	if err != nil {
		return Room{}, err
	}

	playlist, err := s.getPlaylist(ctx, roomId)
	if err != nil {
		return Room{}, err
	}

	members, err := s.getMembers(ctx, roomId)
	if err != nil {
		return Room{}, err
	}

	return Room{
		RoomId:      roomId,
		Name:        rm.Name,
		HasPassword: rm.PasswordHash != "",
		Player:      player,
		Playlist:    playlist,
		Members:     members,
	}, nil
}

func (s *service) broadcast(conns []*websocket.Conn, messageType string, payload any) {
	s.sender.Send(conns, &Output{
		Type:    messageType,
		Payload: payload,
	})
}
