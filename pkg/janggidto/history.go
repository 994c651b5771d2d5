package janggidto

import "time"

type HistoryEntry struct {
	Seq  int64
	Line string
}

// GameSummary is one archived game seen from the requesting player.
type GameSummary struct {
	ID       string
	Opponent string
	Won      bool
	Moves    int
	EndedAt  time.Time
}
