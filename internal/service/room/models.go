package room

type Video struct {
	Id        string `json:"id"`
	SourceId  string `json:"source_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	AddedById string `json:"added_by_id"`
}

type Member struct {
	Id       string `json:"id"`
	Username string `json:"username"`
}

// Playlist is the canonical queue shape carried by every broadcast:
// the pending queue, the append-only history and the current video.
type Playlist struct {
	Videos       []Video `json:"videos"`
	History      []Video `json:"history"`
	CurrentVideo *Video  `json:"current_video"`
}

// Player is the replicated playback clock. VideoId is empty while the
// room is idle.
type Player struct {
	VideoId   string `json:"video_id"`
	VideoURL  string `json:"video_url"`
	IsPaused  bool   `json:"is_paused"`
	Position  int    `json:"position"`
	Volume    int    `json:"volume"`
	UpdatedAt int64  `json:"updated_at"`
}

type Room struct {
	RoomId      string   `json:"room_id"`
	Name        string   `json:"name"`
	HasPassword bool     `json:"has_password"`
	Player      Player   `json:"player"`
	Playlist    Playlist `json:"playlist"`
	Members     []Member `json:"members"`
}

// RoomSummary is what location discovery exposes. The password hash never
// leaves the repository layer.
type RoomSummary struct {
	RoomId       string `json:"room_id"`
	Name         string `json:"name"`
	HasPassword  bool   `json:"has_password"`
	MembersCount int    `json:"members_count"`
}

// Output is the envelope of every message sent to viewers.
type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type RoomJoinedPayload struct {
	MemberId string `json:"member_id"`
	Room     Room   `json:"room"`
}

type MemberJoinedPayload struct {
	JoinedMember Member   `json:"joined_member"`
	Members      []Member `json:"members"`
}

type MemberLeftPayload struct {
	LeftMemberId string   `json:"left_member_id"`
	Members      []Member `json:"members"`
}

type VideoAddedPayload struct {
	AddedVideo Video    `json:"added_video"`
	AddedBy    string   `json:"added_by"`
	Playlist   Playlist `json:"playlist"`
	Player     Player   `json:"player"`
}

type VideoRemovedPayload struct {
	RemovedVideoId string   `json:"removed_video_id"`
	RemovedBy      string   `json:"removed_by"`
	Playlist       Playlist `json:"playlist"`
	Player         Player   `json:"player"`
}

type VideoSkippedPayload struct {
	SkippedBy string   `json:"skipped_by"`
	Playlist  Playlist `json:"playlist"`
	Player    Player   `json:"player"`
}

type VideoEndedPayload struct {
	Playlist Playlist `json:"playlist"`
	Player   Player   `json:"player"`
}

type PlaylistResetPayload struct {
	Playlist Playlist `json:"playlist"`
	Player   Player   `json:"player"`
}

type PlayerUpdatedPayload struct {
	UpdatedBy string `json:"updated_by"`
	Player    Player `json:"player"`
}
