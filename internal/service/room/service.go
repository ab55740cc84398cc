package room

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/repository/room"
	"github.com/cinesync/server/pkg/randstr"
)

var (
	ErrRoomNotFound         = errors.New("room not found")
	ErrWrongPassword        = errors.New("wrong password")
	ErrNotAMember           = errors.New("not a member of the room")
	ErrInvalidVideo         = errors.New("invalid video reference")
	ErrMembersLimitReached  = errors.New("members limit reached")
	ErrPlaylistLimitReached = errors.New("playlist limit reached")
)

type iRoomRepo interface {
	// room
	SetRoom(context.Context, *room.SetRoomParams) error
	GetRoom(context.Context, string) (room.Room, error)
	RoomExists(context.Context, string) (bool, error)
	RemoveRoom(context.Context, string) error
	GetLocationRoomIds(context.Context, string) ([]string, error)
	// member
	SetMember(context.Context, *room.SetMemberParams) error
	GetMember(context.Context, *room.GetMemberParams) (room.Member, error)
	RemoveMember(context.Context, *room.RemoveMemberParams) error
	GetMemberIds(context.Context, string) ([]string, error)
	GetMembersCount(context.Context, string) (int, error)
	UpdateMemberReportedTime(context.Context, *room.UpdateMemberReportedTimeParams) error
	// video
	SetVideo(context.Context, *room.SetVideoParams) error
	GetVideo(context.Context, *room.GetVideoParams) (room.Video, error)
	RemoveVideo(context.Context, *room.RemoveVideoParams) error
	AddVideoToPlaylist(context.Context, *room.VideoListParams) error
	AddVideoToHistory(context.Context, *room.VideoListParams) error
	RemoveVideoFromPlaylist(context.Context, *room.VideoListParams) error
	RemoveVideoFromHistory(context.Context, *room.VideoListParams) error
	GetPlaylistVideoIds(context.Context, string) ([]string, error)
	GetHistoryVideoIds(context.Context, string) ([]string, error)
	GetPlaylistLength(context.Context, string) (int, error)
	ClearPlaylists(context.Context, string) error
	// player
	SetPlayer(context.Context, *room.SetPlayerParams) error
	GetPlayer(context.Context, string) (room.Player, error)
	UpdatePlayerState(context.Context, *room.UpdatePlayerStateParams) error
	UpdatePlayerVideo(context.Context, *room.UpdatePlayerVideoParams) error
}

type iConnRepo interface {
	Add(*websocket.Conn, string) error
	RemoveByMemberId(string) error
	RemoveByConn(*websocket.Conn) error
	GetConn(string) (*websocket.Conn, error)
	GetMemberId(*websocket.Conn) (string, error)
}

// iSender fans replicated state out to viewers. Send preserves enqueue
// order per connection, which together with the per-room lock gives the
// FIFO-per-room delivery guarantee.
type iSender interface {
	Attach(*websocket.Conn)
	Detach(*websocket.Conn)
	Send(conns []*websocket.Conn, msg any)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	MembersLimit  int
	PlaylistLimit int
	DefaultVolume int
}

type service struct {
	roomRepo iRoomRepo
	connRepo iConnRepo
	sender   iSender
	logger   *slog.Logger

	generator iGenerator
	locker    roomLocker

	membersLimit  int
	playlistLimit int
	defaultVolume int
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, sender iSender, logger *slog.Logger, cfg *Config) *service {
	s := service{
		roomRepo:      roomRepo,
		connRepo:      connRepo,
		sender:        sender,
		logger:        logger,
		membersLimit:  cfg.MembersLimit,
		playlistLimit: cfg.PlaylistLimit,
		defaultVolume: cfg.DefaultVolume,
	}

	letterBytes := []byte("abcdefghijklmnopqrstuvwxyz0123456789")
	s.generator = randstr.New(letterBytes)
	s.locker.locks = make(map[string]*roomLock)

	return &s
}
