package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cinesync/server/internal/repository/room"
	"github.com/cinesync/server/pkg/ytvideodata"
)

type AddVideoParams struct {
	SenderId string
	RoomId   string
	VideoURL string
	Title    string
}

type AddVideoResponse struct {
	AddedVideo Video
	Playlist   Playlist
	Player     Player
}

// AddVideo appends to the queue and the history. The first video queued
// onto an idle room starts playing; a playing room is never interrupted.
func (s *service) AddVideo(ctx context.Context, params *AddVideoParams) (AddVideoResponse, error) {
	unlock := s.locker.lock(params.RoomId)
	defer unlock()

	if err := s.checkRoomExists(ctx, params.RoomId); err != nil {
		return AddVideoResponse{}, err
	}

	if _, err := s.checkMembership(ctx, params.RoomId, params.SenderId); err != nil {
		return AddVideoResponse{}, err
	}

	sourceId, err := ytvideodata.ExtractVideoId(params.VideoURL)
	if err != nil {
		return AddVideoResponse{}, ErrInvalidVideo
	}

	playlistLength, err := s.roomRepo.GetPlaylistLength(ctx, params.RoomId)
	if err != nil {
		return AddVideoResponse{}, fmt.Errorf("failed to get playlist length: %w", err)
	}
	if playlistLength >= s.playlistLimit {
		return AddVideoResponse{}, ErrPlaylistLimitReached
	}

	videoId := uuid.NewString()
	if err := s.roomRepo.SetVideo(ctx, &room.SetVideoParams{
		RoomId:    params.RoomId,
		VideoId:   videoId,
		SourceId:  sourceId,
		URL:       params.VideoURL,
		Title:     params.Title,
		AddedById: params.SenderId,
	}); err != nil {
		return AddVideoResponse{}, fmt.Errorf("failed to set video: %w", err)
	}

	if err := s.roomRepo.AddVideoToPlaylist(ctx, &room.VideoListParams{
		RoomId:  params.RoomId,
		VideoId: videoId,
	}); err != nil {
		return AddVideoResponse{}, fmt.Errorf("failed to add video to playlist: %w", err)
	}

	if err := s.roomRepo.AddVideoToHistory(ctx, &room.VideoListParams{
		RoomId:  params.RoomId,
		VideoId: videoId,
	}); err != nil {
		return AddVideoResponse{}, fmt.Errorf("failed to add video to history: %w", err)
	}

	player, err := s.roomRepo.GetPlayer(ctx, params.RoomId)
	if err != nil {
		return AddVideoResponse{}, fmt.Errorf("failed to get player: %w", err)
	}

	if player.VideoId == "" {
		if err := s.roomRepo.UpdatePlayerVideo(ctx, &room.UpdatePlayerVideoParams{
			RoomId:    params.RoomId,
			VideoId:   videoId,
			UpdatedAt: time.Now().Unix(),
		}); err != nil {
			return AddVideoResponse{}, fmt.Errorf("failed to update player video: %w", err)
		}
	}

	resp, err := s.buildPlaylistResponse(ctx, params.RoomId)
	if err != nil {
		return AddVideoResponse{}, err
	}

	addedVideo := Video{
		Id:        videoId,
		SourceId:  sourceId,
		URL:       params.VideoURL,
		Title:     params.Title,
		AddedById: params.SenderId,
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return AddVideoResponse{}, err
	}

	s.broadcast(conns, "VIDEO_ADDED", &VideoAddedPayload{
		AddedVideo: addedVideo,
		AddedBy:    params.SenderId,
		Playlist:   resp.playlist,
		Player:     resp.player,
	})

	return AddVideoResponse{
		AddedVideo: addedVideo,
		Playlist:   resp.playlist,
		Player:     resp.player,
	}, nil
}

type RemoveVideoParams struct {
	SenderId string
	RoomId   string
	VideoId  string
}

type RemoveVideoResponse struct {
	Playlist Playlist
	Player   Player
}

// RemoveVideo deletes the video from the queue and the history. Removing
// the current video advances to the next one; removing an absent video is
// a no-op.
func (s *service) RemoveVideo(ctx context.Context, params *RemoveVideoParams) (RemoveVideoResponse, error) {
	unlock := s.locker.lock(params.RoomId)
	defer unlock()

	if err := s.checkRoomExists(ctx, params.RoomId); err != nil {
		return RemoveVideoResponse{}, err
	}

	if _, err := s.checkMembership(ctx, params.RoomId, params.SenderId); err != nil {
		return RemoveVideoResponse{}, err
	}

	player, err := s.roomRepo.GetPlayer(ctx, params.RoomId)
	if err != nil {
		return RemoveVideoResponse{}, fmt.Errorf("failed to get player: %w", err)
	}

	inPlaylist := true
	if err := s.roomRepo.RemoveVideoFromPlaylist(ctx, &room.VideoListParams{
		RoomId:  params.RoomId,
		VideoId: params.VideoId,
	}); err != nil {
		if !errors.Is(err, room.ErrVideoNotFound) {
			return RemoveVideoResponse{}, fmt.Errorf("failed to remove video from playlist: %w", err)
		}
		inPlaylist = false
	}

	inHistory := true
	if err := s.roomRepo.RemoveVideoFromHistory(ctx, &room.VideoListParams{
		RoomId:  params.RoomId,
		VideoId: params.VideoId,
	}); err != nil {
		if !errors.Is(err, room.ErrVideoNotFound) {
			return RemoveVideoResponse{}, fmt.Errorf("failed to remove video from history: %w", err)
		}
		inHistory = false
	}

	if !inPlaylist && !inHistory {
		// absent video, nothing changed and nothing to broadcast
		resp, err := s.buildPlaylistResponse(ctx, params.RoomId)
		if err != nil {
			return RemoveVideoResponse{}, err
		}

		return RemoveVideoResponse{Playlist: resp.playlist, Player: resp.player}, nil
	}

	if err := s.roomRepo.RemoveVideo(ctx, &room.RemoveVideoParams{
		RoomId:  params.RoomId,
		VideoId: params.VideoId,
	}); err != nil {
		return RemoveVideoResponse{}, fmt.Errorf("failed to remove video: %w", err)
	}

	if player.VideoId == params.VideoId {
		// removed the playing video, start the new queue head
		if err := s.playQueueHead(ctx, params.RoomId); err != nil {
			return RemoveVideoResponse{}, err
		}
	}

	resp, err := s.buildPlaylistResponse(ctx, params.RoomId)
	if err != nil {
		return RemoveVideoResponse{}, err
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return RemoveVideoResponse{}, err
	}

	s.broadcast(conns, "VIDEO_REMOVED", &VideoRemovedPayload{
		RemovedVideoId: params.VideoId,
		RemovedBy:      params.SenderId,
		Playlist:       resp.playlist,
		Player:         resp.player,
	})

	return RemoveVideoResponse{Playlist: resp.playlist, Player: resp.player}, nil
}

type SkipVideoParams struct {
	SenderId string
	RoomId   string
	// VideoId optionally names the queued video to skip forward to;
	// everything queued before it is dropped.
	VideoId *string
}

type SkipVideoResponse struct {
	Playlist Playlist
	Player   Player
}

func (s *service) SkipVideo(ctx context.Context, params *SkipVideoParams) (SkipVideoResponse, error) {
	unlock := s.locker.lock(params.RoomId)
	defer unlock()

	if err := s.checkRoomExists(ctx, params.RoomId); err != nil {
		return SkipVideoResponse{}, err
	}

	if _, err := s.checkMembership(ctx, params.RoomId, params.SenderId); err != nil {
		return SkipVideoResponse{}, err
	}

	changed, err := s.advance(ctx, params.RoomId, params.VideoId)
	if err != nil {
		return SkipVideoResponse{}, err
	}

	resp, err := s.buildPlaylistResponse(ctx, params.RoomId)
	if err != nil {
		return SkipVideoResponse{}, err
	}

	if changed {
		conns, err := s.getConnsByRoomId(ctx, params.RoomId)
		if err != nil {
			return SkipVideoResponse{}, err
		}

		s.broadcast(conns, "VIDEO_SKIPPED", &VideoSkippedPayload{
			SkippedBy: params.SenderId,
			Playlist:  resp.playlist,
			Player:    resp.player,
		})
	}

	return SkipVideoResponse{Playlist: resp.playlist, Player: resp.player}, nil
}

type VideoEndedParams struct {
	SenderId string
	RoomId   string
	// VideoId is the video the viewer saw finish. A report that does not
	// match the authoritative current video is stale and ignored.
	VideoId string
}

type VideoEndedResponse struct {
	Ignored bool
}

func (s *service) VideoEnded(ctx context.Context, params *VideoEndedParams) (VideoEndedResponse, error) {
	unlock := s.locker.lock(params.RoomId)
	defer unlock()

	if err := s.checkRoomExists(ctx, params.RoomId); err != nil {
		return VideoEndedResponse{}, err
	}

	if _, err := s.checkMembership(ctx, params.RoomId, params.SenderId); err != nil {
		return VideoEndedResponse{}, err
	}

	player, err := s.roomRepo.GetPlayer(ctx, params.RoomId)
	if err != nil {
		return VideoEndedResponse{}, fmt.Errorf("failed to get player: %w", err)
	}

	if player.VideoId == "" || player.VideoId != params.VideoId {
		s.logger.DebugContext(ctx, "stale video ended report",
			"room_id", params.RoomId, "reported", params.VideoId, "current", player.VideoId)
		return VideoEndedResponse{Ignored: true}, nil
	}

	if _, err := s.advance(ctx, params.RoomId, nil); err != nil {
		return VideoEndedResponse{}, err
	}

	resp, err := s.buildPlaylistResponse(ctx, params.RoomId)
	if err != nil {
		return VideoEndedResponse{}, err
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return VideoEndedResponse{}, err
	}

	s.broadcast(conns, "VIDEO_ENDED", &VideoEndedPayload{
		Playlist: resp.playlist,
		Player:   resp.player,
	})

	return VideoEndedResponse{}, nil
}

type ResetPlaylistVideo struct {
	VideoURL string
	Title    string
}

type ResetPlaylistParams struct {
	SenderId string
	RoomId   string
	Videos   []ResetPlaylistVideo
	History  []ResetPlaylistVideo
}

type ResetPlaylistResponse struct {
	Playlist Playlist
	Player   Player
}

// ResetPlaylist atomically replaces the queue and the history. Queue
// entries missing from the supplied history are appended to it so the
// current video always stays part of the history.
func (s *service) ResetPlaylist(ctx context.Context, params *ResetPlaylistParams) (ResetPlaylistResponse, error) {
	unlock := s.locker.lock(params.RoomId)
	defer unlock()

	if err := s.checkRoomExists(ctx, params.RoomId); err != nil {
		return ResetPlaylistResponse{}, err
	}

	if _, err := s.checkMembership(ctx, params.RoomId, params.SenderId); err != nil {
		return ResetPlaylistResponse{}, err
	}

	// validate before touching anything
	historySourceIds := make(map[string]struct{}, len(params.History))
	type newVideo struct {
		videoId  string
		sourceId string
		url      string
		title    string
	}
	toHistory := make([]newVideo, 0, len(params.History)+len(params.Videos))
	toPlaylist := make([]newVideo, 0, len(params.Videos))

	for _, v := range params.History {
		sourceId, err := ytvideodata.ExtractVideoId(v.VideoURL)
		if err != nil {
			return ResetPlaylistResponse{}, ErrInvalidVideo
		}
		historySourceIds[sourceId] = struct{}{}
		toHistory = append(toHistory, newVideo{uuid.NewString(), sourceId, v.VideoURL, v.Title})
	}

	for _, v := range params.Videos {
		sourceId, err := ytvideodata.ExtractVideoId(v.VideoURL)
		if err != nil {
			return ResetPlaylistResponse{}, ErrInvalidVideo
		}
		nv := newVideo{uuid.NewString(), sourceId, v.VideoURL, v.Title}
		toPlaylist = append(toPlaylist, nv)
		if _, ok := historySourceIds[sourceId]; !ok {
			toHistory = append(toHistory, nv)
		}
	}

	if len(toPlaylist) > s.playlistLimit {
		return ResetPlaylistResponse{}, ErrPlaylistLimitReached
	}

	// drop the old videos
	oldIds, err := s.roomRepo.GetHistoryVideoIds(ctx, params.RoomId)
	if err != nil {
		return ResetPlaylistResponse{}, fmt.Errorf("failed to get history video ids: %w", err)
	}
	for _, videoId := range oldIds {
		if err := s.roomRepo.RemoveVideo(ctx, &room.RemoveVideoParams{
			RoomId:  params.RoomId,
			VideoId: videoId,
		}); err != nil {
			return ResetPlaylistResponse{}, fmt.Errorf("failed to remove video: %w", err)
		}
	}
	if err := s.roomRepo.ClearPlaylists(ctx, params.RoomId); err != nil {
		return ResetPlaylistResponse{}, fmt.Errorf("failed to clear playlists: %w", err)
	}

	seen := make(map[string]struct{}, len(toHistory))
	for _, v := range toHistory {
		if _, ok := seen[v.videoId]; ok {
			continue
		}
		seen[v.videoId] = struct{}{}

		if err := s.roomRepo.SetVideo(ctx, &room.SetVideoParams{
			RoomId:    params.RoomId,
			VideoId:   v.videoId,
			SourceId:  v.sourceId,
			URL:       v.url,
			Title:     v.title,
			AddedById: params.SenderId,
		}); err != nil {
			return ResetPlaylistResponse{}, fmt.Errorf("failed to set video: %w", err)
		}

		if err := s.roomRepo.AddVideoToHistory(ctx, &room.VideoListParams{
			RoomId:  params.RoomId,
			VideoId: v.videoId,
		}); err != nil {
			return ResetPlaylistResponse{}, fmt.Errorf("failed to add video to history: %w", err)
		}
	}

	for _, v := range toPlaylist {
		if err := s.roomRepo.AddVideoToPlaylist(ctx, &room.VideoListParams{
			RoomId:  params.RoomId,
			VideoId: v.videoId,
		}); err != nil {
			return ResetPlaylistResponse{}, fmt.Errorf("failed to add video to playlist: %w", err)
		}
	}

	if err := s.playQueueHead(ctx, params.RoomId); err != nil {
		return ResetPlaylistResponse{}, err
	}

	resp, err := s.buildPlaylistResponse(ctx, params.RoomId)
	if err != nil {
		return ResetPlaylistResponse{}, err
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return ResetPlaylistResponse{}, err
	}

	s.broadcast(conns, "PLAYLIST_RESET", &PlaylistResetPayload{
		Playlist: resp.playlist,
		Player:   resp.player,
	})

	return ResetPlaylistResponse{Playlist: resp.playlist, Player: resp.player}, nil
}

// advance drops the queue head, or everything strictly before the target
// when one is given, and starts the new head. Reports whether anything
// changed: advancing an empty queue or naming an unknown target is a
// no-op.
func (s *service) advance(ctx context.Context, roomId string, target *string) (bool, error) {
	playlistIds, err := s.roomRepo.GetPlaylistVideoIds(ctx, roomId)
	if err != nil {
		return false, fmt.Errorf("failed to get playlist video ids: %w", err)
	}

	if len(playlistIds) == 0 {
		return false, nil
	}

	dropUntil := 1
	if target != nil {
		dropUntil = -1
		for i, videoId := range playlistIds {
			if videoId == *target {
				dropUntil = i
				break
			}
		}
		if dropUntil == -1 {
			// stale target, likely raced a concurrent skip
			return false, nil
		}
	}

	// skipped videos leave the queue but stay in the history
	for _, videoId := range playlistIds[:dropUntil] {
		if err := s.roomRepo.RemoveVideoFromPlaylist(ctx, &room.VideoListParams{
			RoomId:  roomId,
			VideoId: videoId,
		}); err != nil {
			return false, fmt.Errorf("failed to remove video from playlist: %w", err)
		}
	}

	if err := s.playQueueHead(ctx, roomId); err != nil {
		return false, err
	}

	return true, nil
}

// playQueueHead points the player at the current queue head, or parks it
// idle when the queue is empty. Position resets to 0 either way.
func (s *service) playQueueHead(ctx context.Context, roomId string) error {
	playlistIds, err := s.roomRepo.GetPlaylistVideoIds(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to get playlist video ids: %w", err)
	}

	headId := ""
	if len(playlistIds) > 0 {
		headId = playlistIds[0]
	}

	if err := s.roomRepo.UpdatePlayerVideo(ctx, &room.UpdatePlayerVideoParams{
		RoomId:    roomId,
		VideoId:   headId,
		UpdatedAt: time.Now().Unix(),
	}); err != nil {
		return fmt.Errorf("failed to update player video: %w", err)
	}

	return nil
}

type playlistResponse struct {
	playlist Playlist
	player   Player
}

func (s *service) buildPlaylistResponse(ctx context.Context, roomId string) (playlistResponse, error) {
	playlist, err := s.getPlaylist(ctx, roomId)
	if err != nil {
		return playlistResponse{}, err
	}

	player, err := s.getPlayer(ctx, roomId)
	if err != nil {
		return playlistResponse{}, err
	}

	return playlistResponse{playlist: playlist, player: player}, nil
}

func (s *service) checkRoomExists(ctx context.Context, roomId string) error {
	exists, err := s.roomRepo.RoomExists(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to check room exists: %w", err)
	}
	if !exists {
		return ErrRoomNotFound
	}

	return nil
}
