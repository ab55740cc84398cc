package controller

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/service/room"
	"github.com/cinesync/server/pkg/ytvideodata"
)

type EmptyStruct struct{}

func (c *controller) handleAlive(ctx context.Context, conn *websocket.Conn, input EmptyStruct) error {
	return nil
}

type AddVideoInput struct {
	VideoURL string `json:"video_url" validate:"required,max=256"`
}

func (c *controller) handleAddVideo(ctx context.Context, conn *websocket.Conn, input AddVideoInput) error {
	title := ""
	if sourceId, err := ytvideodata.ExtractVideoId(input.VideoURL); err == nil {
		if data, err := c.videoData.Get(ctx, sourceId); err == nil {
			title = data.Title
		} else {
			c.logger.DebugContext(ctx, "failed to fetch video metadata", "error", err)
		}
	}

	if _, err := c.roomService.AddVideo(ctx, &room.AddVideoParams{
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		VideoURL: input.VideoURL,
		Title:    title,
	}); err != nil {
		return fmt.Errorf("failed to add video: %w", err)
	}

	return nil
}

type RemoveVideoInput struct {
	VideoId string `json:"video_id" validate:"required"`
}

func (c *controller) handleRemoveVideo(ctx context.Context, conn *websocket.Conn, input RemoveVideoInput) error {
	if _, err := c.roomService.RemoveVideo(ctx, &room.RemoveVideoParams{
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		VideoId:  input.VideoId,
	}); err != nil {
		return fmt.Errorf("failed to remove video: %w", err)
	}

	return nil
}

type SkipVideoInput struct {
	VideoId *string `json:"video_id"`
}

func (c *controller) handleSkipVideo(ctx context.Context, conn *websocket.Conn, input SkipVideoInput) error {
	if _, err := c.roomService.SkipVideo(ctx, &room.SkipVideoParams{
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		VideoId:  input.VideoId,
	}); err != nil {
		return fmt.Errorf("failed to skip video: %w", err)
	}

	return nil
}

type ResetPlaylistVideoInput struct {
	VideoURL string `json:"video_url" validate:"required,max=256"`
	Title    string `json:"title" validate:"max=256"`
}

type ResetPlaylistInput struct {
	Videos  []ResetPlaylistVideoInput `json:"videos" validate:"dive"`
	History []ResetPlaylistVideoInput `json:"history" validate:"dive"`
}

func (c *controller) handleResetPlaylist(ctx context.Context, conn *websocket.Conn, input ResetPlaylistInput) error {
	toVideos := func(inputs []ResetPlaylistVideoInput) []room.ResetPlaylistVideo {
		videos := make([]room.ResetPlaylistVideo, 0, len(inputs))
		for _, v := range inputs {
			videos = append(videos, room.ResetPlaylistVideo{
				VideoURL: v.VideoURL,
				Title:    v.Title,
			})
		}
		return videos
	}

	if _, err := c.roomService.ResetPlaylist(ctx, &room.ResetPlaylistParams{
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		Videos:   toVideos(input.Videos),
		History:  toVideos(input.History),
	}); err != nil {
		return fmt.Errorf("failed to reset playlist: %w", err)
	}

	return nil
}

type VideoEndedInput struct {
	VideoId string `json:"video_id" validate:"required"`
}

func (c *controller) handleVideoEnded(ctx context.Context, conn *websocket.Conn, input VideoEndedInput) error {
	if _, err := c.roomService.VideoEnded(ctx, &room.VideoEndedParams{
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		VideoId:  input.VideoId,
	}); err != nil {
		return fmt.Errorf("failed to handle video ended: %w", err)
	}

	return nil
}

type SetPausedInput struct {
	IsPaused bool `json:"is_paused"`
}

func (c *controller) handleSetPaused(ctx context.Context, conn *websocket.Conn, input SetPausedInput) error {
	if _, err := c.roomService.UpdatePlayerState(ctx, &room.UpdatePlayerStateParams{
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		IsPaused: &input.IsPaused,
	}); err != nil {
		return fmt.Errorf("failed to set paused: %w", err)
	}

	return nil
}

type SetPositionInput struct {
	Position int `json:"position" validate:"gte=0"`
}

func (c *controller) handleSetPosition(ctx context.Context, conn *websocket.Conn, input SetPositionInput) error {
	if _, err := c.roomService.UpdatePlayerState(ctx, &room.UpdatePlayerStateParams{
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		Position: &input.Position,
	}); err != nil {
		return fmt.Errorf("failed to set position: %w", err)
	}

	return nil
}

type SeekInput struct {
	Delta int `json:"delta"`
}

func (c *controller) handleSeek(ctx context.Context, conn *websocket.Conn, input SeekInput) error {
	if _, err := c.roomService.UpdatePlayerState(ctx, &room.UpdatePlayerStateParams{
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		Delta:    &input.Delta,
	}); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	return nil
}

type SetVolumeInput struct {
	Volume int `json:"volume" validate:"gte=0,lte=100"`
}

func (c *controller) handleSetVolume(ctx context.Context, conn *websocket.Conn, input SetVolumeInput) error {
	if _, err := c.roomService.UpdatePlayerState(ctx, &room.UpdatePlayerStateParams{
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		Volume:   &input.Volume,
	}); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}

	return nil
}

type ReportPositionInput struct {
	Position int `json:"position" validate:"gte=0"`
}

func (c *controller) handleReportPosition(ctx context.Context, conn *websocket.Conn, input ReportPositionInput) error {
	if err := c.roomService.ReportPosition(ctx, &room.ReportPositionParams{
		SenderId: c.getMemberIdFromCtx(ctx),
		RoomId:   c.getRoomIdFromCtx(ctx),
		Position: input.Position,
	}); err != nil {
		return fmt.Errorf("failed to report position: %w", err)
	}

	return nil
}
