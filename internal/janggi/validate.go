package janggi

import (
	"errors"
	"fmt"
)

// ErrInvalidBoard marks a structurally broken board. Callers treat it as fatal.
var ErrInvalidBoard = errors.New("invalid board")

// Validate checks the structural invariants a stored board must hold.
func (b *Board) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil board", ErrInvalidBoard)
	}
	if b.Turn != NoPlayer && !b.Turn.Valid() {
		return fmt.Errorf("%w: unknown turn %q", ErrInvalidBoard, b.Turn)
	}
	if b.Winner != NoPlayer && !b.Winner.Valid() {
		return fmt.Errorf("%w: unknown winner %q", ErrInvalidBoard, b.Winner)
	}
	ids := make(map[string]struct{})
	occupied := make(map[Position]string)
	kings := map[Player]int{}
	for owner, list := range b.Pieces {
		if !owner.Valid() {
			return fmt.Errorf("%w: unknown side %q", ErrInvalidBoard, owner)
		}
		for _, p := range list {
			if p.ID == "" {
				return fmt.Errorf("%w: piece without id", ErrInvalidBoard)
			}
			if _, dup := ids[p.ID]; dup {
				return fmt.Errorf("%w: duplicate piece id %s", ErrInvalidBoard, p.ID)
			}
			ids[p.ID] = struct{}{}
			if p.Owner != owner {
				return fmt.Errorf("%w: piece %s listed under %s but owned by %s", ErrInvalidBoard, p.ID, owner, p.Owner)
			}
			if !p.Type.Valid() {
				return fmt.Errorf("%w: piece %s has unknown type %q", ErrInvalidBoard, p.ID, p.Type)
			}
			if !p.Pos().InBounds() {
				return fmt.Errorf("%w: piece %s out of bounds at %s", ErrInvalidBoard, p.ID, p.Pos())
			}
			if !p.Alive {
				continue
			}
			if other, taken := occupied[p.Pos()]; taken {
				return fmt.Errorf("%w: %s and %s share %s", ErrInvalidBoard, other, p.ID, p.Pos())
			}
			occupied[p.Pos()] = p.ID
			if p.Type == King {
				kings[owner]++
			}
		}
	}
	for _, owner := range []Player{Player1, Player2} {
		if kings[owner] > 1 {
			return fmt.Errorf("%w: %s has %d alive kings", ErrInvalidBoard, owner, kings[owner])
		}
	}
	return nil
}
