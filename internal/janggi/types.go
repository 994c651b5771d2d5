package janggi

import (
	"fmt"
	"time"
)

const (
	Cols = 9
	Rows = 10
)

// Player identifies a side. Player1 (초) starts at the bottom and moves first.
type Player string

const (
	NoPlayer Player = ""
	Player1  Player = "player1"
	Player2  Player = "player2"
)

// Valid reports whether p names one of the two sides.
func (p Player) Valid() bool { return p == Player1 || p == Player2 }

// Opponent returns the other side, or NoPlayer for an unknown side.
func (p Player) Opponent() Player {
	switch p {
	case Player1:
		return Player2
	case Player2:
		return Player1
	default:
		return NoPlayer
	}
}

// PieceType is the closed set of Janggi piece kinds.
type PieceType string

const (
	King     PieceType = "king"
	Guard    PieceType = "guard"
	Elephant PieceType = "elephant"
	Horse    PieceType = "horse"
	Chariot  PieceType = "chariot"
	Cannon   PieceType = "cannon"
	Soldier  PieceType = "soldier"
)

// PieceTypes lists every piece kind in a stable order.
var PieceTypes = []PieceType{King, Guard, Elephant, Horse, Chariot, Cannon, Soldier}

func (t PieceType) Valid() bool {
	switch t {
	case King, Guard, Elephant, Horse, Chariot, Cannon, Soldier:
		return true
	}
	return false
}

// Position is an intersection on the 9x10 grid.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) InBounds() bool { return p.X >= 0 && p.X < Cols && p.Y >= 0 && p.Y < Rows }

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Piece is one entry in the board arena. Captured pieces stay with Alive=false.
type Piece struct {
	ID    string    `json:"id"`
	Type  PieceType `json:"type"`
	Owner Player    `json:"owner"`
	X     int       `json:"x"`
	Y     int       `json:"y"`
	Alive bool      `json:"alive"`
}

func (p Piece) Pos() Position { return Position{X: p.X, Y: p.Y} }

// Board is the authoritative state of one game.
type Board struct {
	Pieces map[Player][]Piece `json:"pieces"`
	Turn   Player             `json:"turn"`
	Winner Player             `json:"winner,omitempty"`
}

// Clone returns a deep copy so callers can derive a next state without touching the input.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	out := &Board{Turn: b.Turn, Winner: b.Winner, Pieces: make(map[Player][]Piece, len(b.Pieces))}
	for owner, list := range b.Pieces {
		out.Pieces[owner] = append([]Piece(nil), list...)
	}
	return out
}

// Find returns a pointer into the arena for id, searching both sides.
func (b *Board) Find(id string) *Piece {
	if b == nil {
		return nil
	}
	for _, owner := range []Player{Player1, Player2} {
		list := b.Pieces[owner]
		for i := range list {
			if list[i].ID == id {
				return &list[i]
			}
		}
	}
	return nil
}

// PieceAt returns the alive piece at pos, if any.
func (b *Board) PieceAt(pos Position) *Piece {
	if b == nil {
		return nil
	}
	for _, owner := range []Player{Player1, Player2} {
		list := b.Pieces[owner]
		for i := range list {
			if list[i].Alive && list[i].X == pos.X && list[i].Y == pos.Y {
				return &list[i]
			}
		}
	}
	return nil
}

// KingAlive reports whether owner still has an alive king.
func (b *Board) KingAlive(owner Player) bool {
	for _, p := range b.Pieces[owner] {
		if p.Type == King && p.Alive {
			return true
		}
	}
	return false
}

// Captured returns the captured pieces of owner in arena order.
func (b *Board) Captured(owner Player) []Piece {
	var out []Piece
	for _, p := range b.Pieces[owner] {
		if !p.Alive {
			out = append(out, p)
		}
	}
	return out
}

// MoveRequest is an already identity-resolved move attempt.
type MoveRequest struct {
	PieceID string
	ToX     int
	ToY     int
	Player  Player
}

// MoveRecord describes an applied move for replay and record text.
type MoveRecord struct {
	PieceID      string    `json:"piece_id"`
	PieceType    PieceType `json:"piece_type"`
	From         Position  `json:"from"`
	To           Position  `json:"to"`
	CapturedID   string    `json:"captured_id,omitempty"`
	CapturedType PieceType `json:"captured_type,omitempty"`
}

// HistoryRecord is written once per accepted move and never mutated.
type HistoryRecord struct {
	Seq       int64       `json:"seq"`
	Board     Board       `json:"board"`
	TurnAfter Player      `json:"turn_after"`
	Mover     Player      `json:"mover"`
	Move      *MoveRecord `json:"move,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

var pieceNames = map[PieceType]string{
	King:     "궁",
	Guard:    "사",
	Elephant: "상",
	Horse:    "마",
	Chariot:  "차",
	Cannon:   "포",
	Soldier:  "졸",
}

// Korean returns the one-letter Korean name used in records and board labels.
func (t PieceType) Korean() string { return pieceNames[t] }

// Side returns the Korean side name: 초 for Player1, 한 for Player2.
func (p Player) Side() string {
	switch p {
	case Player1:
		return "초"
	case Player2:
		return "한"
	}
	return ""
}
