package roomstate

import (
	"context"
	"sync"
	"time"

	"github.com/park285/Cheese-Janggi/internal/janggi"
)

// MemoryStore is the single-process store used when Redis is not wired (tests, local runs).
// Each room has its own mutex; rooms never block each other.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]*memRoom
}

type memRoom struct {
	mu      sync.Mutex
	board   *janggi.Board
	seq     int64
	history []janggi.HistoryRecord
	deleted bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]*memRoom)}
}

func (m *MemoryStore) room(id string, create bool) *memRoom {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok && create {
		r = &memRoom{}
		m.rooms[id] = r
	}
	return r
}

func copyRecord(rec janggi.HistoryRecord) janggi.HistoryRecord {
	out := rec
	out.Board = *rec.Board.Clone()
	if rec.Move != nil {
		mv := *rec.Move
		out.Move = &mv
	}
	return out
}

func (m *MemoryStore) Load(_ context.Context, roomID string) (*janggi.Board, error) {
	id, err := normalizeID(roomID)
	if err != nil {
		return nil, err
	}
	r := m.room(id, false)
	if r == nil {
		return nil, ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleted || r.board == nil {
		return nil, ErrRoomNotFound
	}
	return r.board.Clone(), nil
}

func (m *MemoryStore) Init(_ context.Context, roomID string, board *janggi.Board) error {
	id, err := normalizeID(roomID)
	if err != nil {
		return err
	}
	if err := board.Validate(); err != nil {
		return err
	}
	for {
		r := m.room(id, true)
		r.mu.Lock()
		if r.deleted {
			// 삭제 직후 재생성: 새 엔트리로 다시 시도
			r.mu.Unlock()
			continue
		}
		r.board = board.Clone()
		r.seq = 0
		r.history = nil
		r.mu.Unlock()
		return nil
	}
}

func (m *MemoryStore) Apply(_ context.Context, roomID string, fn Mutation) (*janggi.HistoryRecord, error) {
	id, err := normalizeID(roomID)
	if err != nil {
		return nil, err
	}
	r := m.room(id, false)
	if r == nil {
		return nil, ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleted || r.board == nil {
		return nil, ErrRoomNotFound
	}
	rec := fn(r.board.Clone())
	if rec == nil {
		return nil, nil
	}
	if err := rec.Board.Validate(); err != nil {
		return nil, err
	}
	r.seq++
	rec.Seq = r.seq
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	r.board = rec.Board.Clone()
	r.history = append(r.history, copyRecord(*rec))
	return rec, nil
}

func (m *MemoryStore) LoadHistory(_ context.Context, roomID string, limit int) ([]janggi.HistoryRecord, error) {
	id, err := normalizeID(roomID)
	if err != nil {
		return nil, err
	}
	r := m.room(id, false)
	if r == nil {
		return nil, ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleted || r.board == nil {
		return nil, ErrRoomNotFound
	}
	list := tail(r.history, limit)
	out := make([]janggi.HistoryRecord, 0, len(list))
	for _, rec := range list {
		out = append(out, copyRecord(rec))
	}
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, roomID string) error {
	id, err := normalizeID(roomID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	r, ok := m.rooms[id]
	delete(m.rooms, id)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	r.mu.Lock()
	r.deleted = true
	r.mu.Unlock()
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
