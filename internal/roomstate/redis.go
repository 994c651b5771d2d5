package roomstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/park285/Cheese-Janggi/internal/janggi"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL  = 24 * time.Hour
	maxAttempts = 5
)

// RedisStore keeps each room under two keys: a JSON state document and a history list.
// Apply uses WATCH on the state key so only one writer per sequence number can commit.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl < 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func stateKey(id string) string   { return "janggi:room:" + id + ":state" }
func historyKey(id string) string { return "janggi:room:" + id + ":history" }

type envelope struct {
	Board     janggi.Board `json:"board"`
	Seq       int64        `json:"seq"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func decodeState(raw []byte, err error) (*envelope, error) {
	if errors.Is(err, redis.Nil) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if err := env.Board.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptState, err)
	}
	return &env, nil
}

func (s *RedisStore) Load(ctx context.Context, roomID string) (*janggi.Board, error) {
	id, err := normalizeID(roomID)
	if err != nil {
		return nil, err
	}
	env, err := decodeState(s.rdb.Get(ctx, stateKey(id)).Bytes())
	if err != nil {
		return nil, err
	}
	return &env.Board, nil
}

func (s *RedisStore) Init(ctx context.Context, roomID string, board *janggi.Board) error {
	id, err := normalizeID(roomID)
	if err != nil {
		return err
	}
	if err := board.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(envelope{Board: *board, UpdatedAt: time.Now()})
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, historyKey(id))
		pipe.Set(ctx, stateKey(id), raw, s.ttl)
		return nil
	})
	return err
}

func (s *RedisStore) Apply(ctx context.Context, roomID string, fn Mutation) (*janggi.HistoryRecord, error) {
	id, err := normalizeID(roomID)
	if err != nil {
		return nil, err
	}
	key, hkey := stateKey(id), historyKey(id)

	var committed *janggi.HistoryRecord
	txf := func(tx *redis.Tx) error {
		committed = nil
		env, err := decodeState(tx.Get(ctx, key).Bytes())
		if err != nil {
			return err
		}
		rec := fn(&env.Board)
		if rec == nil {
			return nil
		}
		if err := rec.Board.Validate(); err != nil {
			return fmt.Errorf("%w: next board: %w", ErrCorruptState, err)
		}
		rec.Seq = env.Seq + 1
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now()
		}
		stateRaw, err := json.Marshal(envelope{Board: rec.Board, Seq: rec.Seq, UpdatedAt: rec.CreatedAt})
		if err != nil {
			return err
		}
		histRaw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		// EXEC fails with TxFailedErr if the state key changed since WATCH
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, stateRaw, s.ttl)
			pipe.RPush(ctx, hkey, histRaw)
			if s.ttl > 0 {
				pipe.Expire(ctx, hkey, s.ttl)
			}
			return nil
		})
		if err != nil {
			return err
		}
		committed = rec
		return nil
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return committed, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, ErrConcurrentUpdate
}

func (s *RedisStore) LoadHistory(ctx context.Context, roomID string, limit int) ([]janggi.HistoryRecord, error) {
	id, err := normalizeID(roomID)
	if err != nil {
		return nil, err
	}
	n, err := s.rdb.Exists(ctx, stateKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrRoomNotFound
	}
	start := int64(0)
	if limit > 0 {
		start = -int64(limit)
	}
	items, err := s.rdb.LRange(ctx, historyKey(id), start, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]janggi.HistoryRecord, 0, len(items))
	for _, raw := range items {
		var rec janggi.HistoryRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("%w: history: %v", ErrCorruptState, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, roomID string) error {
	id, err := normalizeID(roomID)
	if err != nil {
		return err
	}
	return s.rdb.Del(ctx, stateKey(id), historyKey(id)).Err()
}
