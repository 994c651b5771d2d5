package janggi

import "fmt"

// backRank is the home row order from column 0 to 8; the king sits one row inside.
var backRank = [Cols]PieceType{Chariot, Horse, Elephant, Guard, "", Guard, Elephant, Horse, Chariot}

var soldierCols = []int{0, 2, 4, 6, 8}

// NewBoard returns the starting position: Player1 on rows 6-9, Player2 on rows 0-3,
// turn=Player1 and no winner.
func NewBoard() *Board {
	return &Board{
		Pieces: map[Player][]Piece{
			Player1: homePieces(Player1),
			Player2: homePieces(Player2),
		},
		Turn: Player1,
	}
}

// homePieces lays out one side. Rows are mirrored around the river.
func homePieces(owner Player) []Piece {
	row := func(y int) int {
		if owner == Player1 {
			return Rows - 1 - y
		}
		return y
	}
	prefix := "p1"
	if owner == Player2 {
		prefix = "p2"
	}
	counts := map[PieceType]int{}
	add := func(out []Piece, t PieceType, x, y int) []Piece {
		counts[t]++
		id := fmt.Sprintf("%s_%s%d", prefix, t, counts[t])
		if t == King {
			id = prefix + "_king"
		}
		return append(out, Piece{ID: id, Type: t, Owner: owner, X: x, Y: row(y), Alive: true})
	}

	out := make([]Piece, 0, 16)
	for x, t := range backRank {
		if t == "" {
			continue
		}
		out = add(out, t, x, 0)
	}
	out = add(out, King, 4, 1)
	out = add(out, Cannon, 1, 2)
	out = add(out, Cannon, 7, 2)
	for _, x := range soldierCols {
		out = add(out, Soldier, x, 3)
	}
	return out
}
