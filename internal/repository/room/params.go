package room

type SetRoomParams struct {
	RoomId       string
	Name         string
	PasswordHash string
	Location     string
	CreatedAt    int64
}

type SetMemberParams struct {
	RoomId   string
	MemberId string
	Username string
}

type RemoveMemberParams struct {
	RoomId   string
	MemberId string
}

type GetMemberParams struct {
	RoomId   string
	MemberId string
}

type UpdateMemberReportedTimeParams struct {
	RoomId       string
	MemberId     string
	ReportedTime int
}

type SetVideoParams struct {
	RoomId    string
	VideoId   string
	SourceId  string
	URL       string
	Title     string
	AddedById string
}

type RemoveVideoParams struct {
	RoomId  string
	VideoId string
}

type GetVideoParams struct {
	RoomId  string
	VideoId string
}

type VideoListParams struct {
	RoomId  string
	VideoId string
}

type SetPlayerParams struct {
	RoomId    string
	VideoId   string
	IsPaused  bool
	Position  int
	Volume    int
	UpdatedAt int64
}

type UpdatePlayerStateParams struct {
	RoomId    string
	IsPaused  bool
	Position  int
	Volume    int
	UpdatedAt int64
}

type UpdatePlayerVideoParams struct {
	RoomId    string
	VideoId   string
	UpdatedAt int64
}
