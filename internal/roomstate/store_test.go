package roomstate

import (
	"context"
	"errors"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/Cheese-Janggi/internal/janggi"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, DefaultTTL), mr
}

func stores(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t)
	return map[string]Store{"redis": rs, "memory": NewMemoryStore()}
}

// moveMutation applies req and keeps the last result for the caller.
func moveMutation(req janggi.MoveRequest, out *janggi.MoveResult) Mutation {
	return func(cur *janggi.Board) *janggi.HistoryRecord {
		res := janggi.ApplyMove(cur, req)
		*out = res
		if !res.Accepted {
			return nil
		}
		return &janggi.HistoryRecord{Board: *res.Next, TurnAfter: res.Next.Turn, Mover: res.Mover, Move: res.Move}
	}
}

func TestMissingRoomIsAnError(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		if _, err := s.Load(ctx, "nope"); !errors.Is(err, ErrRoomNotFound) {
			t.Fatalf("%s Load: err=%v", name, err)
		}
		var res janggi.MoveResult
		req := janggi.MoveRequest{PieceID: "p1_soldier1", ToX: 0, ToY: 5, Player: janggi.Player1}
		if _, err := s.Apply(ctx, "nope", moveMutation(req, &res)); !errors.Is(err, ErrRoomNotFound) {
			t.Fatalf("%s Apply: err=%v", name, err)
		}
		if _, err := s.LoadHistory(ctx, "nope", 0); !errors.Is(err, ErrRoomNotFound) {
			t.Fatalf("%s LoadHistory: err=%v", name, err)
		}
		if _, err := s.Load(ctx, "  "); !errors.Is(err, ErrInvalidRoomID) {
			t.Fatalf("%s blank id: err=%v", name, err)
		}
	}
}

func TestApplyCommitsAndAppendsHistory(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		if err := s.Init(ctx, "r1", janggi.NewBoard()); err != nil {
			t.Fatalf("%s Init: %v", name, err)
		}
		moves := []janggi.MoveRequest{
			{PieceID: "p1_soldier1", ToX: 0, ToY: 5, Player: janggi.Player1},
			{PieceID: "p2_soldier1", ToX: 0, ToY: 4, Player: janggi.Player2},
			{PieceID: "p1_soldier2", ToX: 2, ToY: 5, Player: janggi.Player1},
		}
		for i, req := range moves {
			var res janggi.MoveResult
			rec, err := s.Apply(ctx, "r1", moveMutation(req, &res))
			if err != nil || rec == nil {
				t.Fatalf("%s move %d: rec=%v err=%v reason=%s", name, i, rec, err, res.Reason)
			}
			if rec.Seq != int64(i+1) {
				t.Fatalf("%s move %d: seq=%d", name, i, rec.Seq)
			}
		}

		b, err := s.Load(ctx, "r1")
		if err != nil {
			t.Fatalf("%s Load: %v", name, err)
		}
		if b.Turn != janggi.Player2 {
			t.Fatalf("%s turn=%q", name, b.Turn)
		}
		hist, err := s.LoadHistory(ctx, "r1", 0)
		if err != nil || len(hist) != 3 {
			t.Fatalf("%s history len=%d err=%v", name, len(hist), err)
		}
		for i, h := range hist {
			if h.Seq != int64(i+1) || h.Move == nil || h.CreatedAt.IsZero() {
				t.Fatalf("%s record %d: %+v", name, i, h)
			}
		}
		if hist[1].Mover != janggi.Player2 || hist[1].TurnAfter != janggi.Player1 {
			t.Fatalf("%s record 2 mover=%q turnAfter=%q", name, hist[1].Mover, hist[1].TurnAfter)
		}
		last, _ := s.LoadHistory(ctx, "r1", 2)
		if len(last) != 2 || last[0].Seq != 2 || last[1].Seq != 3 {
			t.Fatalf("%s tail: %+v", name, last)
		}
	}
}

func TestRejectedMutationLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		_ = s.Init(ctx, "r1", janggi.NewBoard())
		var res janggi.MoveResult
		req := janggi.MoveRequest{PieceID: "p2_soldier1", ToX: 0, ToY: 4, Player: janggi.Player2}
		rec, err := s.Apply(ctx, "r1", moveMutation(req, &res))
		if err != nil || rec != nil {
			t.Fatalf("%s: rec=%v err=%v", name, rec, err)
		}
		if res.Reason != janggi.ReasonNotYourTurn {
			t.Fatalf("%s: reason=%s", name, res.Reason)
		}
		hist, _ := s.LoadHistory(ctx, "r1", 0)
		if len(hist) != 0 {
			t.Fatalf("%s: history grew on rejection", name)
		}
	}
}

func TestInitResetsHistoryAndDeleteRemoves(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		_ = s.Init(ctx, "r1", janggi.NewBoard())
		var res janggi.MoveResult
		_, _ = s.Apply(ctx, "r1", moveMutation(janggi.MoveRequest{PieceID: "p1_soldier1", ToX: 0, ToY: 5, Player: janggi.Player1}, &res))
		if err := s.Init(ctx, "r1", janggi.NewBoard()); err != nil {
			t.Fatalf("%s re-Init: %v", name, err)
		}
		hist, _ := s.LoadHistory(ctx, "r1", 0)
		if len(hist) != 0 {
			t.Fatalf("%s: history survived reset", name)
		}
		b, _ := s.Load(ctx, "r1")
		if b.Turn != janggi.Player1 {
			t.Fatalf("%s: turn after reset=%q", name, b.Turn)
		}
		if err := s.Delete(ctx, "r1"); err != nil {
			t.Fatalf("%s Delete: %v", name, err)
		}
		if _, err := s.Load(ctx, "r1"); !errors.Is(err, ErrRoomNotFound) {
			t.Fatalf("%s: load after delete err=%v", name, err)
		}
	}
}

func TestInitRejectsBrokenBoard(t *testing.T) {
	ctx := context.Background()
	b := janggi.NewBoard()
	b.Pieces[janggi.Player1][0].X = 42
	for name, s := range stores(t) {
		if err := s.Init(ctx, "r1", b); !errors.Is(err, janggi.ErrInvalidBoard) {
			t.Fatalf("%s: err=%v", name, err)
		}
	}
}

func TestCorruptStateSurfaces(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t)
	if err := mr.Set(stateKey("bad"), "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.Load(ctx, "bad"); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("Load: err=%v", err)
	}
	// 같은 칸에 두 기물이 있는 보드
	if err := mr.Set(stateKey("stacked"), `{"board":{"pieces":{"player1":[{"id":"a","type":"king","owner":"player1","x":4,"y":8,"alive":true},{"id":"b","type":"guard","owner":"player1","x":4,"y":8,"alive":true}]},"turn":"player1"},"seq":0}`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.Load(ctx, "stacked"); !errors.Is(err, ErrCorruptState) {
		t.Fatalf("Load stacked: err=%v", err)
	}
}

func TestConcurrentMovesAcceptExactlyOne(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		if err := s.Init(ctx, "race", janggi.NewBoard()); err != nil {
			t.Fatalf("%s Init: %v", name, err)
		}
		// 서로 다른 수 두 개를 여러 고루틴이 동시에 시도
		reqs := []janggi.MoveRequest{
			{PieceID: "p1_soldier1", ToX: 0, ToY: 5, Player: janggi.Player1},
			{PieceID: "p1_soldier5", ToX: 8, ToY: 5, Player: janggi.Player1},
		}
		const workers = 16
		var wg sync.WaitGroup
		var mu sync.Mutex
		accepted := 0
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(req janggi.MoveRequest) {
				defer wg.Done()
				var res janggi.MoveResult
				rec, err := s.Apply(ctx, "race", moveMutation(req, &res))
				if err != nil && !errors.Is(err, ErrConcurrentUpdate) {
					t.Errorf("%s Apply: %v", name, err)
					return
				}
				if rec != nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}(reqs[i%len(reqs)])
		}
		wg.Wait()
		if accepted != 1 {
			t.Fatalf("%s: accepted %d moves, want exactly 1", name, accepted)
		}
		hist, _ := s.LoadHistory(ctx, "race", 0)
		if len(hist) != 1 {
			t.Fatalf("%s: history len=%d", name, len(hist))
		}
		b, _ := s.Load(ctx, "race")
		if b.Turn != janggi.Player2 {
			t.Fatalf("%s: turn=%q", name, b.Turn)
		}
	}
}
