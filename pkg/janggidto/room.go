package janggidto

// Seat is one side of a room. Side is "초" or "한".
type Seat struct {
	Side   string
	UserID string
	Name   string
}

type Score struct {
	Cho float64
	Han float64
}

// RoomSnapshot is what the chat layer needs to show a room.
type RoomSnapshot struct {
	RoomID     string
	Code       string
	State      string
	Cho        Seat
	Han        Seat
	Turn       Seat
	Winner     *Seat
	MoveCount  int64
	LastMove   string
	Score      Score
	BoardImage []byte
}

func (r *RoomSnapshot) Waiting() bool { return r != nil && (r.Cho.UserID == "" || r.Han.UserID == "") }
