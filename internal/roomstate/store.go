package roomstate

import (
	"context"
	"errors"
	"strings"

	"github.com/park285/Cheese-Janggi/internal/janggi"
)

var (
	// ErrRoomNotFound is returned when a room has no stored board. It is never replaced by a fresh board.
	ErrRoomNotFound = errors.New("roomstate: room not found")
	// ErrCorruptState wraps a stored board that fails janggi.Board.Validate or cannot be decoded.
	ErrCorruptState = errors.New("roomstate: corrupt state")
	// ErrConcurrentUpdate means the optimistic retries were exhausted.
	ErrConcurrentUpdate = errors.New("roomstate: concurrent update")
	// ErrInvalidRoomID rejects blank room ids.
	ErrInvalidRoomID = errors.New("roomstate: invalid room id")
)

// Mutation computes the next state from the current board inside the room's critical section.
// It returns nil to leave the room untouched (a rejected move). It may run more than once, so
// it must not have side effects beyond its own return value.
type Mutation func(cur *janggi.Board) *janggi.HistoryRecord

// Store holds one authoritative board per room plus its append-only history.
type Store interface {
	// Load returns a snapshot of the current board. Callers may read it outside the critical section.
	Load(ctx context.Context, roomID string) (*janggi.Board, error)
	// Init replaces the room's board and clears its history.
	Init(ctx context.Context, roomID string, board *janggi.Board) error
	// Apply reads, mutates and commits under a per-room exclusive section. The board in the
	// returned record is the committed state; Seq and CreatedAt are assigned by the store.
	Apply(ctx context.Context, roomID string, fn Mutation) (*janggi.HistoryRecord, error)
	// LoadHistory returns the last limit records in sequence order; limit <= 0 means all.
	LoadHistory(ctx context.Context, roomID string, limit int) ([]janggi.HistoryRecord, error)
	Delete(ctx context.Context, roomID string) error
}

func normalizeID(roomID string) (string, error) {
	id := strings.TrimSpace(roomID)
	if id == "" {
		return "", ErrInvalidRoomID
	}
	return id, nil
}

func tail(list []janggi.HistoryRecord, limit int) []janggi.HistoryRecord {
	if limit > 0 && len(list) > limit {
		return list[len(list)-limit:]
	}
	return list
}
