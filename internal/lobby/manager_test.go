package lobby

import (
    "context"
    "errors"
    "strings"
    "sync"
    "testing"

    miniredis "github.com/alicebob/miniredis/v2"
    "github.com/park285/Cheese-Janggi/internal/janggi"
    "github.com/redis/go-redis/v9"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
    t.Helper()
    mr, err := miniredis.Run()
    if err != nil { t.Fatalf("miniredis: %v", err) }
    t.Cleanup(func() { mr.Close() })
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return NewManager(rdb, 0), mr
}

func TestCreateJoinStartsRoom(t *testing.T) {
    m, _ := newTestManager(t)
    ctx := context.Background()

    meta, err := m.Create(ctx, "chatA", "u1", "Alice")
    if err != nil { t.Fatalf("Create: %v", err) }
    if !strings.HasPrefix(meta.Code, "JG-") || len(meta.Code) != 9 { t.Fatalf("unexpected code %q", meta.Code) }
    if meta.ID == "" || meta.State != StateWaiting || meta.Player1ID != "u1" { t.Fatalf("unexpected meta: %+v", meta) }

    jr, err := m.Join(ctx, "chatB", strings.ToLower(meta.Code), "u2", "Bob")
    if err != nil { t.Fatalf("Join: %v", err) }
    if !jr.Started || jr.Player != janggi.Player2 || jr.Meta.State != StatePlaying {
        t.Fatalf("expected start on second join: %+v meta=%+v", jr, jr.Meta)
    }
    if jr.Meta.Name(janggi.Player1) != "Alice" || jr.Meta.Name(janggi.Player2) != "Bob" {
        t.Fatalf("names: %q %q", jr.Meta.Name(janggi.Player1), jr.Meta.Name(janggi.Player2))
    }

    chats, err := m.Chats(ctx, meta.ID)
    if err != nil || len(chats) != 2 { t.Fatalf("expected 2 chats, got %v (%v)", chats, err) }

    got, err := m.RoomOfUserInChat(ctx, "u2", "chatB")
    if err != nil || got.ID != meta.ID { t.Fatalf("RoomOfUserInChat: %v", err) }
    if _, err := m.RoomOfUserInChat(ctx, "u2", "chatZ"); !errors.Is(err, ErrRoomNotFound) {
        t.Fatalf("expected ErrRoomNotFound for foreign chat, got %v", err)
    }
}

func TestRejoinIsIdempotent(t *testing.T) {
    m, _ := newTestManager(t)
    ctx := context.Background()
    meta, err := m.Create(ctx, "chatA", "u1", "u1")
    if err != nil { t.Fatalf("Create: %v", err) }
    jr, err := m.Join(ctx, "chatA", meta.Code, "u1", "u1")
    if err != nil { t.Fatalf("Join: %v", err) }
    if !jr.Rejoined || jr.Player != janggi.Player1 || jr.Started { t.Fatalf("unexpected rejoin result: %+v", jr) }
    if jr.Meta.Player2ID != "" { t.Fatalf("creator took both slots") }
}

func TestThirdJoinRejected(t *testing.T) {
    m, _ := newTestManager(t)
    ctx := context.Background()
    meta, err := m.Create(ctx, "chatA", "u1", "u1")
    if err != nil { t.Fatalf("Create: %v", err) }
    if _, err := m.Join(ctx, "chatB", meta.Code, "u2", "u2"); err != nil { t.Fatalf("Join#1: %v", err) }
    if _, err := m.Join(ctx, "chatC", meta.Code, "u3", "u3"); !errors.Is(err, ErrRoomFull) {
        t.Fatalf("expected ErrRoomFull, got %v", err)
    }
}

func TestUserCannotSitInTwoRooms(t *testing.T) {
    m, _ := newTestManager(t)
    ctx := context.Background()
    if _, err := m.Create(ctx, "chatA", "u1", "u1"); err != nil { t.Fatalf("Create: %v", err) }
    if _, err := m.Create(ctx, "chatB", "u1", "u1"); !errors.Is(err, ErrAlreadyJoined) {
        t.Fatalf("expected ErrAlreadyJoined, got %v", err)
    }
    other, err := m.Create(ctx, "chatB", "u2", "u2")
    if err != nil { t.Fatalf("Create other: %v", err) }
    if _, err := m.Join(ctx, "chatB", other.Code, "u1", "u1"); !errors.Is(err, ErrAlreadyJoined) {
        t.Fatalf("expected ErrAlreadyJoined on join, got %v", err)
    }
}

func TestJoinUnknownCode(t *testing.T) {
    m, _ := newTestManager(t)
    if _, err := m.Join(context.Background(), "chatA", "JG-NOPE00", "u1", "u1"); !errors.Is(err, ErrRoomNotFound) {
        t.Fatalf("expected ErrRoomNotFound, got %v", err)
    }
    if _, err := m.Join(context.Background(), "", "JG-NOPE00", "u1", "u1"); !errors.Is(err, ErrInvalidArgs) {
        t.Fatalf("expected ErrInvalidArgs, got %v", err)
    }
}

func TestLeaveClearsSlotAndDeletesEmptyRoom(t *testing.T) {
    m, mr := newTestManager(t)
    ctx := context.Background()
    meta, _ := m.Create(ctx, "chatA", "u1", "u1")
    if _, err := m.Join(ctx, "chatA", meta.Code, "u2", "u2"); err != nil { t.Fatalf("Join: %v", err) }

    lr, err := m.Leave(ctx, "u1")
    if err != nil { t.Fatalf("Leave u1: %v", err) }
    if lr.Deleted || lr.Player != janggi.Player1 || lr.Meta.State != StateWaiting || lr.Meta.Player1ID != "" {
        t.Fatalf("unexpected leave result: %+v meta=%+v", lr, lr.Meta)
    }
    // 빈 자리에 새 참가자가 들어올 수 있어야 함
    jr, err := m.Join(ctx, "chatC", meta.Code, "u3", "u3")
    if err != nil || jr.Player != janggi.Player1 || !jr.Started { t.Fatalf("refill: %+v %v", jr, err) }

    if _, err := m.Leave(ctx, "u2"); err != nil { t.Fatalf("Leave u2: %v", err) }
    lr, err = m.Leave(ctx, "u3")
    if err != nil { t.Fatalf("Leave u3: %v", err) }
    if !lr.Deleted { t.Fatalf("expected room deletion") }
    if mr.Exists("jg:room:" + meta.ID) || mr.Exists("jg:code:" + meta.Code) {
        t.Fatalf("room keys survived deletion")
    }
    if _, err := m.Leave(ctx, "u3"); !errors.Is(err, ErrRoomNotFound) {
        t.Fatalf("expected ErrRoomNotFound after leaving, got %v", err)
    }
}

func TestMarkFinishedAndRestart(t *testing.T) {
    m, _ := newTestManager(t)
    ctx := context.Background()
    meta, _ := m.Create(ctx, "chatA", "u1", "u1")
    _, _ = m.Join(ctx, "chatA", meta.Code, "u2", "u2")

    fin, err := m.MarkFinished(ctx, meta.ID, "u2")
    if err != nil || fin.State != StateFinished || fin.WinnerID != "u2" { t.Fatalf("MarkFinished: %+v %v", fin, err) }
    again, err := m.Restart(ctx, meta.ID)
    if err != nil || again.State != StatePlaying || again.WinnerID != "" { t.Fatalf("Restart: %+v %v", again, err) }
}

func TestConcurrentJoinsFillOneSlot(t *testing.T) {
    m, _ := newTestManager(t)
    ctx := context.Background()
    meta, _ := m.Create(ctx, "chatA", "host", "host")

    const joiners = 8
    var wg sync.WaitGroup
    var mu sync.Mutex
    seated := 0
    for i := 0; i < joiners; i++ {
        wg.Add(1)
        go func(n int) {
            defer wg.Done()
            user := "guest" + string(rune('a'+n))
            _, err := m.Join(ctx, "chatA", meta.Code, user, user)
            if err == nil {
                mu.Lock()
                seated++
                mu.Unlock()
                return
            }
            if !errors.Is(err, ErrRoomFull) && !errors.Is(err, ErrConflict) {
                t.Errorf("Join %s: %v", user, err)
            }
        }(i)
    }
    wg.Wait()
    if seated != 1 { t.Fatalf("seated %d guests, want 1", seated) }
    got, err := m.Get(ctx, meta.ID)
    if err != nil || !got.Full() { t.Fatalf("room not full: %+v %v", got, err) }
}
