package janggi

import (
	"fmt"
	"strings"
)

const files = "abcdefghi"

// Notation renders pos as file letter a-i (x) followed by rank digit 0-9 (y).
func (p Position) Notation() string {
	if !p.InBounds() {
		return p.String()
	}
	return fmt.Sprintf("%c%d", files[p.X], p.Y)
}

// ParseSquare parses the Notation form, case-insensitive.
func ParseSquare(s string) (Position, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 {
		return Position{}, fmt.Errorf("bad square %q", s)
	}
	x := strings.IndexByte(files, s[0])
	if x < 0 || s[1] < '0' || s[1] > '9' {
		return Position{}, fmt.Errorf("bad square %q", s)
	}
	return Position{X: x, Y: int(s[1] - '0')}, nil
}

// ParseMove splits "a6a5" or "a6 a5" or "a6-a5" into two squares.
func ParseMove(s string) (from, to Position, err error) {
	compact := strings.NewReplacer(" ", "", "-", "", ">", "").Replace(strings.TrimSpace(s))
	if len(compact) != 4 {
		return Position{}, Position{}, fmt.Errorf("bad move %q", s)
	}
	if from, err = ParseSquare(compact[:2]); err != nil {
		return Position{}, Position{}, err
	}
	if to, err = ParseSquare(compact[2:]); err != nil {
		return Position{}, Position{}, err
	}
	return from, to, nil
}

// Describe renders a move record as e.g. "초 졸 a6-a5" with an "x마" suffix on capture.
func (m *MoveRecord) Describe(mover Player) string {
	if m == nil {
		return ""
	}
	out := fmt.Sprintf("%s %s %s-%s", mover.Side(), m.PieceType.Korean(), m.From.Notation(), m.To.Notation())
	if m.CapturedID != "" {
		out += " x" + m.CapturedType.Korean()
	}
	return out
}
