package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/service/room"
	"github.com/cinesync/server/pkg/validator"
	"github.com/cinesync/server/pkg/ytvideodata"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (room.CreateRoomResponse, error)
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	DisconnectMember(context.Context, *room.DisconnectMemberParams) (room.DisconnectMemberResponse, error)
	GetRoomsByLocation(context.Context, *room.GetRoomsByLocationParams) (room.GetRoomsByLocationResponse, error)
	AddVideo(context.Context, *room.AddVideoParams) (room.AddVideoResponse, error)
	RemoveVideo(context.Context, *room.RemoveVideoParams) (room.RemoveVideoResponse, error)
	SkipVideo(context.Context, *room.SkipVideoParams) (room.SkipVideoResponse, error)
	VideoEnded(context.Context, *room.VideoEndedParams) (room.VideoEndedResponse, error)
	ResetPlaylist(context.Context, *room.ResetPlaylistParams) (room.ResetPlaylistResponse, error)
	UpdatePlayerState(context.Context, *room.UpdatePlayerStateParams) (room.UpdatePlayerStateResponse, error)
	ReportPosition(context.Context, *room.ReportPositionParams) error
}

type iSender interface {
	Send(conns []*websocket.Conn, msg any)
}

type controller struct {
	roomService iRoomService
	sender      iSender
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	videoData   *ytvideodata.Client
	logger      *slog.Logger
}

func NewController(roomService iRoomService, sender iSender, videoData *ytvideodata.Client, logger *slog.Logger) *controller {
	return &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		sender:      sender,
		validate:    validator.NewValidator(),
		videoData:   videoData,
		logger:      logger,
	}
}
