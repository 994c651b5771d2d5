package archive

import (
	"fmt"
	"strings"
	"time"

	"github.com/park285/Cheese-Janggi/internal/domain"
	"github.com/park285/Cheese-Janggi/internal/janggi"
)

// MethodKingCapture is the only way a game ends; there is no check or draw detection.
const MethodKingCapture = "king_capture"

// Participants identifies the room and its two seats at the time the game ended.
type Participants struct {
	RoomID      string
	RoomCode    string
	Player1ID   string
	Player1Name string
	Player2ID   string
	Player2Name string
}

// BuildGame assembles the archive entry from the ordered history of a finished room.
func BuildGame(p Participants, history []janggi.HistoryRecord, winner janggi.Player) *domain.JanggiGame {
	g := &domain.JanggiGame{
		RoomID:      p.RoomID,
		RoomCode:    p.RoomCode,
		Player1ID:   p.Player1ID,
		Player1Name: p.Player1Name,
		Player2ID:   p.Player2ID,
		Player2Name: p.Player2Name,
		Winner:      string(winner),
		Method:      MethodKingCapture,
		MoveCount:   len(history),
		Moves:       make([]string, 0, len(history)),
	}
	switch winner {
	case janggi.Player1:
		g.WinnerID = p.Player1ID
	case janggi.Player2:
		g.WinnerID = p.Player2ID
	}
	for _, h := range history {
		g.Moves = append(g.Moves, h.Move.Describe(h.Mover))
	}
	if n := len(history); n > 0 {
		g.StartedAt = history[0].CreatedAt
		g.EndedAt = history[n-1].CreatedAt
	} else {
		g.StartedAt = time.Now()
		g.EndedAt = g.StartedAt
	}
	g.Duration = g.EndedAt.Sub(g.StartedAt)
	if g.Duration < 0 {
		g.Duration = 0
	}
	g.ID = fmt.Sprintf("%s-%d", p.RoomID, g.StartedAt.UnixMilli())
	g.Record = buildRecord(g)
	return g
}

func resultToken(winner string) string {
	switch janggi.Player(winner) {
	case janggi.Player1:
		return "1-0"
	case janggi.Player2:
		return "0-1"
	default:
		return "*"
	}
}

// buildRecord renders a PGN-like text: bracket headers, then numbered move pairs.
func buildRecord(g *domain.JanggiGame) string {
	var b strings.Builder
	date := g.EndedAt
	if date.IsZero() {
		date = time.Now()
	}
	result := resultToken(g.Winner)
	b.WriteString("[Event \"KakaoJanggi\"]\n")
	b.WriteString("[Site \"Iris\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	if g.RoomCode != "" {
		b.WriteString(fmt.Sprintf("[Room \"%s\"]\n", sanitize(g.RoomCode)))
	}
	b.WriteString(fmt.Sprintf("[Cho \"%s\"]\n", sanitize(nameOr(g.Player1Name, g.Player1ID))))
	b.WriteString(fmt.Sprintf("[Han \"%s\"]\n", sanitize(nameOr(g.Player2Name, g.Player2ID))))
	if g.Method != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitize(g.Method)))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", result))

	for i := 0; i < len(g.Moves); i += 2 {
		b.WriteString(fmt.Sprintf("%d. %s", i/2+1, g.Moves[i]))
		if i+1 < len(g.Moves) {
			b.WriteString(" / ")
			b.WriteString(g.Moves[i+1])
		}
		b.WriteString("\n")
	}
	b.WriteString(result)
	return b.String()
}

func nameOr(name, id string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return id
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
