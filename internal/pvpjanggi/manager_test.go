package pvpjanggi

import (
    "context"
    "errors"
    "fmt"
    "path/filepath"
    "sync"
    "testing"

    miniredis "github.com/alicebob/miniredis/v2"
    "github.com/park285/Cheese-Janggi/internal/archive"
    "github.com/park285/Cheese-Janggi/internal/janggi"
    "github.com/park285/Cheese-Janggi/internal/lobby"
    "github.com/park285/Cheese-Janggi/internal/roomstate"
)

func newTestManager(t *testing.T, opts Options) *Manager {
    t.Helper()
    mr, err := miniredis.Run()
    if err != nil { t.Fatalf("miniredis: %v", err) }
    t.Cleanup(func() { mr.Close() })
    url := fmt.Sprintf("redis://%s/0", mr.Addr())
    m, err := NewManager(url, opts)
    if err != nil { t.Fatalf("pvpjanggi.NewManager: %v", err) }
    t.Cleanup(func() { _ = m.Close() })
    return m
}

// startRoom seats u1 (Player1) in chatA and u2 (Player2) in chatB.
func startRoom(t *testing.T, m *Manager) *lobby.RoomMeta {
    t.Helper()
    ctx := context.Background()
    v, err := m.CreateRoom(ctx, "chatA", "u1", "Alice")
    if err != nil { t.Fatalf("CreateRoom: %v", err) }
    jr, _, err := m.JoinRoom(ctx, "chatB", v.Meta.Code, "u2", "Bob")
    if err != nil { t.Fatalf("JoinRoom: %v", err) }
    if !jr.Started { t.Fatalf("room did not start") }
    return jr.Meta
}

func sq(t *testing.T, s string) janggi.Position {
    t.Helper()
    p, err := janggi.ParseSquare(s)
    if err != nil { t.Fatalf("ParseSquare(%q): %v", s, err) }
    return p
}

func TestPlayMoveAlternatesTurns(t *testing.T) {
    m := newTestManager(t, Options{})
    startRoom(t, m)
    ctx := context.Background()

    out, err := m.PlayMove(ctx, "chatA", "u1", sq(t, "a6"), sq(t, "a5"))
    if err != nil { t.Fatalf("PlayMove: %v", err) }
    if !out.Accepted() || out.Outcome != janggi.OutcomeContinue || out.Record.Seq != 1 {
        t.Fatalf("unexpected outcome: %+v", out)
    }

    again, err := m.PlayMove(ctx, "chatA", "u1", sq(t, "c6"), sq(t, "c5"))
    if err != nil { t.Fatalf("PlayMove again: %v", err) }
    if again.Accepted() || again.Result.Reason != janggi.ReasonNotYourTurn {
        t.Fatalf("expected NOT_YOUR_TURN, got %+v", again.Result)
    }

    // 상대 기물을 옮기려는 시도
    enemy, err := m.PlayMove(ctx, "chatB", "u2", sq(t, "a6"), sq(t, "a7"))
    if err != nil { t.Fatalf("PlayMove enemy: %v", err) }
    if enemy.Result.Reason != janggi.ReasonPieceNotFound && enemy.Result.Reason != janggi.ReasonNotYourPiece {
        t.Fatalf("unexpected reason %s", enemy.Result.Reason)
    }

    ok, err := m.PlayMove(ctx, "chatB", "u2", sq(t, "a3"), sq(t, "a4"))
    if err != nil || !ok.Accepted() { t.Fatalf("Player2 move: %+v %v", ok, err) }

    _, hist, err := m.History(ctx, "chatA", "u1", 0)
    if err != nil || len(hist) != 2 { t.Fatalf("History: len=%d err=%v", len(hist), err) }
    if hist[0].Mover != janggi.Player1 || hist[1].Mover != janggi.Player2 { t.Fatalf("movers: %q %q", hist[0].Mover, hist[1].Mover) }

    v, err := m.LoadGame(ctx, "chatB", "u2")
    if err != nil { t.Fatalf("LoadGame: %v", err) }
    if v.Board.Turn != janggi.Player1 || v.Seq != 2 || v.LastMove == nil { t.Fatalf("view: turn=%q seq=%d", v.Board.Turn, v.Seq) }
}

func TestPlayMoveRequiresRoomAndOpponent(t *testing.T) {
    m := newTestManager(t, Options{})
    ctx := context.Background()
    if _, err := m.PlayMove(ctx, "chatA", "nobody", sq(t, "a6"), sq(t, "a5")); !errors.Is(err, ErrNoActiveRoom) {
        t.Fatalf("expected ErrNoActiveRoom, got %v", err)
    }
    if _, err := m.CreateRoom(ctx, "chatA", "u1", "u1"); err != nil { t.Fatalf("CreateRoom: %v", err) }
    if _, err := m.PlayMove(ctx, "chatA", "u1", sq(t, "a6"), sq(t, "a5")); !errors.Is(err, ErrNotStarted) {
        t.Fatalf("expected ErrNotStarted, got %v", err)
    }
    // 다른 채팅방에서는 방이 보이지 않음
    if _, err := m.LoadGame(ctx, "chatZ", "u1"); !errors.Is(err, ErrNoActiveRoom) {
        t.Fatalf("expected ErrNoActiveRoom for foreign chat, got %v", err)
    }
}

func TestMovePieceByIDRejectsStranger(t *testing.T) {
    m := newTestManager(t, Options{})
    meta := startRoom(t, m)
    out, err := m.MovePiece(context.Background(), meta.ID, "intruder", "p1_soldier1", janggi.Position{X: 0, Y: 5})
    if err != nil { t.Fatalf("MovePiece: %v", err) }
    if out.Accepted() || out.Result.Reason != janggi.ReasonNotInGame {
        t.Fatalf("expected NOT_IN_GAME, got %+v", out.Result)
    }
}

func TestLegalMovesPreview(t *testing.T) {
    m := newTestManager(t, Options{})
    startRoom(t, m)
    ctx := context.Background()

    p, err := m.LegalMoves(ctx, "chatA", "u1", sq(t, "a6"))
    if err != nil { t.Fatalf("LegalMoves: %v", err) }
    if p.Piece == nil || p.Piece.ID != "p1_soldier1" || len(p.Moves) != 2 {
        t.Fatalf("unexpected preview: piece=%+v moves=%v", p.Piece, p.Moves)
    }
    other, err := m.LegalMoves(ctx, "chatA", "u1", sq(t, "a3"))
    if err != nil { t.Fatalf("LegalMoves opponent: %v", err) }
    if other.Piece != nil || len(other.Moves) != 0 {
        t.Fatalf("opponent piece should give an empty preview: %+v", other)
    }
}

func TestKingCaptureFinishesAndArchives(t *testing.T) {
    store := roomstate.NewMemoryStore()
    m := newTestManager(t, Options{Store: store})
    repo, err := archive.OpenSQLite(filepath.Join(t.TempDir(), "archive.db"))
    if err != nil { t.Fatalf("OpenSQLite: %v", err) }
    m.AttachRepository(repo)
    meta := startRoom(t, m)
    ctx := context.Background()

    endgame := &janggi.Board{
        Pieces: map[janggi.Player][]janggi.Piece{
            janggi.Player1: {
                {ID: "p1_king", Type: janggi.King, Owner: janggi.Player1, X: 4, Y: 8, Alive: true},
                {ID: "p1_chariot1", Type: janggi.Chariot, Owner: janggi.Player1, X: 4, Y: 5, Alive: true},
            },
            janggi.Player2: {
                {ID: "p2_king", Type: janggi.King, Owner: janggi.Player2, X: 4, Y: 1, Alive: true},
            },
        },
        Turn: janggi.Player1,
    }
    if err := store.Init(ctx, meta.ID, endgame); err != nil { t.Fatalf("seed: %v", err) }

    out, err := m.PlayMove(ctx, "chatA", "u1", sq(t, "e5"), sq(t, "e1"))
    if err != nil { t.Fatalf("PlayMove: %v", err) }
    if !out.Accepted() || out.Outcome != janggi.OutcomeWin || out.Result.Winner != janggi.Player1 {
        t.Fatalf("expected win: %+v", out.Result)
    }
    if out.Meta.State != lobby.StateFinished || out.Meta.WinnerID != "u1" {
        t.Fatalf("room not finished: %+v", out.Meta)
    }

    games, err := m.RecentGames(ctx, "u2", 5)
    if err != nil || len(games) != 1 { t.Fatalf("RecentGames: %d %v", len(games), err) }
    if games[0].WinnerID != "u1" || games[0].MoveCount != 1 { t.Fatalf("archived: %+v", games[0]) }

    after, err := m.PlayMove(ctx, "chatB", "u2", sq(t, "e1"), sq(t, "e2"))
    if err != nil { t.Fatalf("PlayMove after win: %v", err) }
    if after.Accepted() || after.Result.Reason != janggi.ReasonGameOver {
        t.Fatalf("expected GAME_OVER, got %+v", after.Result)
    }

    v, err := m.ResetGame(ctx, "chatB", "u2")
    if err != nil { t.Fatalf("ResetGame: %v", err) }
    if v.Meta.State != lobby.StatePlaying || v.Board.Winner != janggi.NoPlayer || len(v.Board.Pieces[janggi.Player1]) != 16 {
        t.Fatalf("reset view: %+v", v.Meta)
    }
    if _, hist, _ := m.History(ctx, "chatA", "u1", 0); len(hist) != 0 {
        t.Fatalf("history survived reset: %d", len(hist))
    }
}

func TestConcurrentPlayMoveAcceptsOne(t *testing.T) {
    m := newTestManager(t, Options{})
    startRoom(t, m)
    ctx := context.Background()

    from, to := sq(t, "a6"), sq(t, "a5")
    const workers = 12
    var wg sync.WaitGroup
    var mu sync.Mutex
    accepted := 0
    for i := 0; i < workers; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            out, err := m.PlayMove(ctx, "chatA", "u1", from, to)
            if err != nil {
                if !errors.Is(err, roomstate.ErrConcurrentUpdate) { t.Errorf("PlayMove: %v", err) }
                return
            }
            if out.Accepted() {
                mu.Lock()
                accepted++
                mu.Unlock()
            }
        }()
    }
    wg.Wait()
    if accepted != 1 { t.Fatalf("accepted %d moves, want 1", accepted) }
    _, hist, _ := m.History(ctx, "chatA", "u1", 0)
    if len(hist) != 1 { t.Fatalf("history len=%d", len(hist)) }
}

func TestLeaveDeletesBoardWithLastPlayer(t *testing.T) {
    store := roomstate.NewMemoryStore()
    m := newTestManager(t, Options{Store: store})
    meta := startRoom(t, m)
    ctx := context.Background()

    if _, err := m.LeaveRoom(ctx, "u1"); err != nil { t.Fatalf("Leave u1: %v", err) }
    if _, err := store.Load(ctx, meta.ID); err != nil { t.Fatalf("board gone too early: %v", err) }
    lr, err := m.LeaveRoom(ctx, "u2")
    if err != nil || !lr.Deleted { t.Fatalf("Leave u2: %+v %v", lr, err) }
    if _, err := store.Load(ctx, meta.ID); !errors.Is(err, roomstate.ErrRoomNotFound) {
        t.Fatalf("expected board deletion, got %v", err)
    }
    if _, err := m.LeaveRoom(ctx, "u2"); !errors.Is(err, ErrNoActiveRoom) {
        t.Fatalf("expected ErrNoActiveRoom, got %v", err)
    }
}
