package pvpjanggi

import (
	"errors"
	"time"

	"github.com/park285/Cheese-Janggi/internal/janggi"
	"github.com/park285/Cheese-Janggi/internal/lobby"
	"github.com/park285/Cheese-Janggi/internal/roomstate"
)

var (
	// ErrNoActiveRoom means the requester has no room bound to the chat they wrote in.
	ErrNoActiveRoom = errors.New("no active janggi room")
	// ErrNotStarted rejects moves while a seat is still empty.
	ErrNotStarted = errors.New("janggi room is waiting for an opponent")
)

// Options tune the manager. Zero values fall back to defaults.
type Options struct {
	RoomTTL      time.Duration
	HistoryLimit int
	// Store overrides the Redis-backed room state (tests, single-process runs).
	Store roomstate.Store
}

// RoomView is a room with its authoritative board.
type RoomView struct {
	Meta     *lobby.RoomMeta
	Board    *janggi.Board
	LastMove *janggi.MoveRecord
	Seq      int64
}

// Preview is the read-only legal-move hint for one square.
type Preview struct {
	Meta  *lobby.RoomMeta
	Board *janggi.Board
	Piece *janggi.Piece
	Moves []janggi.Position
}

// MoveOutcome is the result of one move attempt. Rejections are reported in Result, not as errors.
type MoveOutcome struct {
	Meta    *lobby.RoomMeta
	Player  janggi.Player
	Result  janggi.MoveResult
	Record  *janggi.HistoryRecord
	Outcome janggi.Outcome
}

func (o *MoveOutcome) Accepted() bool { return o != nil && o.Result.Accepted }
