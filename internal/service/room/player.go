package room

import (
	"context"
	"fmt"
	"time"

	"github.com/cinesync/server/internal/repository/room"
)

const (
	minVolume = 0
	maxVolume = 100
)

type UpdatePlayerStateParams struct {
	SenderId string
	RoomId   string
	IsPaused *bool
	Position *int
	// Delta moves the clock relative to its current position.
	Delta  *int
	Volume *int
}

type UpdatePlayerStateResponse struct {
	Player Player
}

// UpdatePlayerState applies an explicit clock mutation: pause toggle,
// absolute seek, relative seek or volume change. Nil fields keep their
// current value; pausing never moves the clock.
func (s *service) UpdatePlayerState(ctx context.Context, params *UpdatePlayerStateParams) (UpdatePlayerStateResponse, error) {
	unlock := s.locker.lock(params.RoomId)
	defer unlock()

	if err := s.checkRoomExists(ctx, params.RoomId); err != nil {
		return UpdatePlayerStateResponse{}, err
	}

	if _, err := s.checkMembership(ctx, params.RoomId, params.SenderId); err != nil {
		return UpdatePlayerStateResponse{}, err
	}

	player, err := s.roomRepo.GetPlayer(ctx, params.RoomId)
	if err != nil {
		return UpdatePlayerStateResponse{}, fmt.Errorf("failed to get player: %w", err)
	}

	isPaused := player.IsPaused
	if params.IsPaused != nil {
		isPaused = *params.IsPaused
	}

	position := player.Position
	if params.Position != nil {
		position = *params.Position
	}
	if params.Delta != nil {
		position += *params.Delta
	}
	if position < 0 {
		position = 0
	}

	volume := player.Volume
	if params.Volume != nil {
		volume = *params.Volume
	}
	if volume < minVolume {
		volume = minVolume
	}
	if volume > maxVolume {
		volume = maxVolume
	}

	updatedAt := time.Now().Unix()
	if err := s.roomRepo.UpdatePlayerState(ctx, &room.UpdatePlayerStateParams{
		RoomId:    params.RoomId,
		IsPaused:  isPaused,
		Position:  position,
		Volume:    volume,
		UpdatedAt: updatedAt,
	}); err != nil {
		return UpdatePlayerStateResponse{}, fmt.Errorf("failed to update player state: %w", err)
	}

	updatedPlayer, err := s.getPlayer(ctx, params.RoomId)
	if err != nil {
		return UpdatePlayerStateResponse{}, err
	}

	conns, err := s.getConnsByRoomId(ctx, params.RoomId)
	if err != nil {
		return UpdatePlayerStateResponse{}, err
	}

	s.broadcast(conns, "PLAYER_UPDATED", &PlayerUpdatedPayload{
		UpdatedBy: params.SenderId,
		Player:    updatedPlayer,
	})

	return UpdatePlayerStateResponse{Player: updatedPlayer}, nil
}

type ReportPositionParams struct {
	SenderId string
	RoomId   string
	Position int
}

// ReportPosition records a viewer's locally observed position. Reports are
// telemetry only: folding them back into the authoritative clock would let
// lagging viewers drag the room backwards.
func (s *service) ReportPosition(ctx context.Context, params *ReportPositionParams) error {
	unlock := s.locker.lock(params.RoomId)
	defer unlock()

	if err := s.checkRoomExists(ctx, params.RoomId); err != nil {
		return err
	}

	if _, err := s.checkMembership(ctx, params.RoomId, params.SenderId); err != nil {
		return err
	}

	position := params.Position
	if position < 0 {
		position = 0
	}

	if err := s.roomRepo.UpdateMemberReportedTime(ctx, &room.UpdateMemberReportedTimeParams{
		RoomId:       params.RoomId,
		MemberId:     params.SenderId,
		ReportedTime: position,
	}); err != nil {
		return fmt.Errorf("failed to update member reported time: %w", err)
	}

	return nil
}
