package client

import (
	"sync"
	"time"

	"github.com/cinesync/server/internal/service/room"
)

// Session is the local mirror of one room. Broadcasts overwrite fields
// unconditionally, so whatever arrived last wins.
type Session struct {
	mu        sync.RWMutex
	memberId  string
	room      room.Room
	appliedAt time.Time
}

func newSession(memberId string, rm room.Room) *Session {
	return &Session{
		memberId:  memberId,
		room:      rm,
		appliedAt: time.Now(),
	}
}

func (s *Session) MemberId() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.memberId
}

func (s *Session) Room() room.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.room
}

func (s *Session) Player() room.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.room.Player
}

func (s *Session) Playlist() room.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.room.Playlist
}

func (s *Session) Members() []room.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.room.Members
}

// EstimatedPosition extrapolates the mirrored clock while playback runs.
func (s *Session) EstimatedPosition() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	position := s.room.Player.Position
	if s.room.Player.VideoId != "" && !s.room.Player.IsPaused {
		position += int(time.Since(s.appliedAt).Seconds())
	}

	return position
}

func (s *Session) memberName(memberId string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.room.Members {
		if m.Id == memberId {
			return m.Username
		}
	}

	return "someone"
}

func (s *Session) setMembers(members []room.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.room.Members = members
}

func (s *Session) setPlayer(player room.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.room.Player = player
	s.appliedAt = time.Now()
}

func (s *Session) setPlaylistAndPlayer(playlist room.Playlist, player room.Player) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.room.Playlist = playlist
	s.room.Player = player
	s.appliedAt = time.Now()
}
