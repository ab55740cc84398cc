package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cinesync/server/internal/service/room"
)

const defaultReportInterval = 5 * time.Second

var ErrJoinRejected = errors.New("join rejected")

// Options configure a proxy. Surfaces is required, the rest have
// defaults.
type Options struct {
	Surfaces       SurfaceProvider
	Notifier       Notifier
	Logger         *slog.Logger
	ReportInterval time.Duration
}

type CreateRoomParams struct {
	ServerURL string
	Location  string
	RoomName  string
	Username  string
	Password  string
}

type JoinRoomParams struct {
	ServerURL string
	RoomId    string
	Username  string
	Password  string
}

// Proxy mirrors one room on the viewer's side. It applies broadcasts to
// the local session, drives the playback surface, and forwards user
// intents to the coordinator. Intents are never applied locally first.
type Proxy struct {
	conn     *websocket.Conn
	session  *Session
	surface  Surface
	notifier Notifier
	logger   *slog.Logger

	reportInterval time.Duration

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// CreateRoom opens a room on the coordinator and returns a proxy attached
// to it.
func CreateRoom(ctx context.Context, params *CreateRoomParams, opts *Options) (*Proxy, error) {
	query := url.Values{}
	query.Set("location", params.Location)
	query.Set("name", params.RoomName)
	query.Set("username", params.Username)
	if params.Password != "" {
		query.Set("password", params.Password)
	}

	return dial(ctx, params.ServerURL+"/api/v1/ws/room/create?"+query.Encode(), opts)
}

// JoinRoom attaches a proxy to an existing room.
func JoinRoom(ctx context.Context, params *JoinRoomParams, opts *Options) (*Proxy, error) {
	query := url.Values{}
	query.Set("username", params.Username)
	if params.Password != "" {
		query.Set("password", params.Password)
	}

	return dial(ctx, params.ServerURL+"/api/v1/ws/room/"+params.RoomId+"/join?"+query.Encode(), opts)
}

func dial(ctx context.Context, wsURL string, opts *Options) (*Proxy, error) {
	if opts.Surfaces == nil {
		return nil, errors.New("surface provider is required")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	joined, err := awaitRoomJoined(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	surface, err := opts.Surfaces.Acquire(joined.Room.RoomId)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to acquire surface: %w", err)
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = nopNotifier{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reportInterval := opts.ReportInterval
	if reportInterval <= 0 {
		reportInterval = defaultReportInterval
	}

	p := &Proxy{
		conn:           conn,
		session:        newSession(joined.MemberId, joined.Room),
		surface:        surface,
		notifier:       notifier,
		logger:         logger,
		reportInterval: reportInterval,
		done:           make(chan struct{}),
	}

	p.driveSurface(room.Player{}, joined.Room.Player)

	go p.readLoop()
	go p.reportLoop()

	return p, nil
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// awaitRoomJoined reads the first message of the connection: either the
// room snapshot or the generic rejection.
func awaitRoomJoined(conn *websocket.Conn) (room.RoomJoinedPayload, error) {
	var msg inbound
	if err := conn.ReadJSON(&msg); err != nil {
		return room.RoomJoinedPayload{}, fmt.Errorf("failed to read first message: %w", err)
	}

	switch msg.Type {
	case "ROOM_JOINED":
		var payload room.RoomJoinedPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return room.RoomJoinedPayload{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
		}
		return payload, nil
	case "ERROR":
		var payload struct {
			Message string `json:"message"`
		}
		json.Unmarshal(msg.Payload, &payload)
		return room.RoomJoinedPayload{}, fmt.Errorf("%w: %s", ErrJoinRejected, payload.Message)
	default:
		return room.RoomJoinedPayload{}, fmt.Errorf("unexpected first message type %q", msg.Type)
	}
}

func (p *Proxy) Session() *Session {
	return p.session
}

// Done closes when the proxy shuts down, whatever the reason.
func (p *Proxy) Done() <-chan struct{} {
	return p.done
}

// Close releases the surface and drops the connection. Safe to call more
// than once.
func (p *Proxy) Close() {
	p.closeOnce.Do(func() {
		close(p.done)

		p.writeMu.Lock()
		p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		p.writeMu.Unlock()

		p.conn.Close()
		p.surface.Release()
	})
}

func (p *Proxy) readLoop() {
	defer p.Close()

	for {
		var msg inbound
		if err := p.conn.ReadJSON(&msg); err != nil {
			select {
			case <-p.done:
			default:
				p.logger.Debug("connection closed", "error", err)
			}
			return
		}

		if err := p.apply(msg); err != nil {
			p.logger.Warn("failed to apply message", "type", msg.Type, "error", err)
		}
	}
}

// apply folds one broadcast into the session and the surface. Every
// payload carries full fields, so applying is unconditional overwrite.
func (p *Proxy) apply(msg inbound) error {
	switch msg.Type {
	case "MEMBER_JOINED":
		var payload room.MemberJoinedPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		p.session.setMembers(payload.Members)

	case "MEMBER_LEFT":
		var payload room.MemberLeftPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		p.session.setMembers(payload.Members)

	case "VIDEO_ADDED":
		var payload room.VideoAddedPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		p.notifier.Notify(fmt.Sprintf("%s added a video to the queue", p.session.memberName(payload.AddedBy)))
		p.applyPlaylist(payload.Playlist, payload.Player)

	case "VIDEO_REMOVED":
		var payload room.VideoRemovedPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		p.applyPlaylist(payload.Playlist, payload.Player)

	case "VIDEO_SKIPPED":
		var payload room.VideoSkippedPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		p.notifier.Notify(fmt.Sprintf("%s skipped the video", p.session.memberName(payload.SkippedBy)))
		p.applyPlaylist(payload.Playlist, payload.Player)

	case "VIDEO_ENDED":
		var payload room.VideoEndedPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		p.applyPlaylist(payload.Playlist, payload.Player)

	case "PLAYLIST_RESET":
		var payload room.PlaylistResetPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		p.applyPlaylist(payload.Playlist, payload.Player)

	case "PLAYER_UPDATED":
		var payload room.PlayerUpdatedPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		prev := p.session.Player()
		p.notifyPlayerChange(payload.UpdatedBy, prev, payload.Player)
		p.session.setPlayer(payload.Player)
		p.driveSurface(prev, payload.Player)

	case "ERROR":
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return err
		}
		p.notifier.Notify(payload.Message)

	default:
		p.logger.Debug("unknown message type", "type", msg.Type)
	}

	return nil
}

func (p *Proxy) applyPlaylist(playlist room.Playlist, player room.Player) {
	prev := p.session.Player()
	p.session.setPlaylistAndPlayer(playlist, player)
	p.driveSurface(prev, player)
}

func (p *Proxy) notifyPlayerChange(updatedBy string, prev, next room.Player) {
	name := p.session.memberName(updatedBy)

	switch {
	case prev.IsPaused != next.IsPaused && next.IsPaused:
		p.notifier.Notify(fmt.Sprintf("%s paused the video", name))
	case prev.IsPaused != next.IsPaused:
		p.notifier.Notify(fmt.Sprintf("%s unpaused the video", name))
	case prev.Position != next.Position:
		p.notifier.Notify(fmt.Sprintf("%s advanced the video to %ds", name, next.Position))
	}
}

func (p *Proxy) driveSurface(prev, next room.Player) {
	if next.VideoId != prev.VideoId {
		p.surface.SetVideo(next.VideoURL)
		p.surface.SetTime(next.Position)
		p.surface.SetPaused(next.IsPaused)
	} else {
		if next.IsPaused != prev.IsPaused {
			p.surface.SetPaused(next.IsPaused)
		}
		if next.Position != prev.Position {
			p.surface.SetTime(next.Position)
		}
	}

	if next.Volume != prev.Volume {
		p.surface.SetVolume(next.Volume)
	}
}

// reportLoop periodically reports the locally observed position. The
// coordinator treats it as telemetry, never as a clock mutation.
func (p *Proxy) reportLoop() {
	ticker := time.NewTicker(p.reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			if p.session.Player().VideoId == "" {
				continue
			}

			if err := p.send("REPORT_POSITION", map[string]any{"position": p.session.EstimatedPosition()}); err != nil {
				return
			}
		}
	}
}

func (p *Proxy) send(messageType string, payload any) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	return p.conn.WriteJSON(&outbound{Type: messageType, Payload: payload})
}

func (p *Proxy) AddVideo(videoURL string) error {
	return p.send("ADD_VIDEO", map[string]any{"video_url": videoURL})
}

func (p *Proxy) RemoveVideo(videoId string) error {
	return p.send("REMOVE_VIDEO", map[string]any{"video_id": videoId})
}

func (p *Proxy) SkipVideo() error {
	return p.send("SKIP_VIDEO", map[string]any{})
}

// SkipVideoTo advances straight to the given queued video.
func (p *Proxy) SkipVideoTo(videoId string) error {
	return p.send("SKIP_VIDEO", map[string]any{"video_id": videoId})
}

func (p *Proxy) SetPaused(isPaused bool) error {
	return p.send("SET_PAUSED", map[string]any{"is_paused": isPaused})
}

func (p *Proxy) SetPosition(position int) error {
	return p.send("SET_POSITION", map[string]any{"position": position})
}

func (p *Proxy) Seek(delta int) error {
	return p.send("SEEK", map[string]any{"delta": delta})
}

func (p *Proxy) SetVolume(volume int) error {
	return p.send("SET_VOLUME", map[string]any{"volume": volume})
}

type ResetPlaylistVideo struct {
	VideoURL string `json:"video_url"`
	Title    string `json:"title"`
}

func (p *Proxy) ResetPlaylist(videos, history []ResetPlaylistVideo) error {
	return p.send("RESET_PLAYLIST", map[string]any{
		"videos":  videos,
		"history": history,
	})
}

func (p *Proxy) VideoEnded(videoId string) error {
	return p.send("VIDEO_ENDED", map[string]any{"video_id": videoId})
}
