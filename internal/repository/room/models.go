package room

type Room struct {
	Name         string `redis:"name"`
	PasswordHash string `redis:"password_hash"`
	Location     string `redis:"location"`
	CreatedAt    int64  `redis:"created_at"`
}

type Member struct {
	Username     string `redis:"username"`
	ReportedTime int    `redis:"reported_time"`
}

type Video struct {
	SourceId  string `redis:"source_id"`
	URL       string `redis:"url"`
	Title     string `redis:"title"`
	AddedById string `redis:"added_by_id"`
}

// Player is the authoritative playback clock of a room. An empty VideoId
// means the room is idle.
type Player struct {
	VideoId   string `redis:"video_id"`
	IsPaused  bool   `redis:"is_paused"`
	Position  int    `redis:"position"`
	Volume    int    `redis:"volume"`
	UpdatedAt int64  `redis:"updated_at"`
}
