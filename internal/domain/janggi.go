package domain

import "time"

// JanggiGame is the archived result of one finished game.
type JanggiGame struct {
	ID          string
	RoomID      string
	RoomCode    string
	Player1ID   string
	Player1Name string
	Player2ID   string
	Player2Name string
	Winner      string
	WinnerID    string
	Method      string
	MoveCount   int
	Moves       []string
	Record      string
	StartedAt   time.Time
	EndedAt     time.Time
	Duration    time.Duration
}

// ParticipantOf reports whether userID played in g.
func (g *JanggiGame) ParticipantOf(userID string) bool {
	return g != nil && userID != "" && (g.Player1ID == userID || g.Player2ID == userID)
}
