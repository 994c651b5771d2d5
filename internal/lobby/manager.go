package lobby

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/park285/Cheese-Janggi/internal/janggi"
    "github.com/park285/Cheese-Janggi/internal/obslog"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
)

const maxAttempts = 5

// errUnchanged lets an update callback skip the write without failing.
var errUnchanged = errors.New("unchanged")

type Manager struct {
    rdb   *redis.Client
    store *Store
}

func NewManager(rdb *redis.Client, ttl time.Duration) *Manager {
    return &Manager{rdb: rdb, store: NewStore(rdb, ttl)}
}

// Create opens a room in chat with the creator seated as Player1.
func (m *Manager) Create(ctx context.Context, chat, userID, userName string) (*RoomMeta, error) {
    chat, userID = strings.TrimSpace(chat), strings.TrimSpace(userID)
    if chat == "" || userID == "" {
        return nil, ErrInvalidArgs
    }
    if cur, err := m.activeRoomOf(ctx, userID); err != nil {
        return nil, err
    } else if cur != nil {
        return nil, ErrAlreadyJoined
    }
    id := uuid.NewString()
    for i := 0; i < maxAttempts; i++ {
        code, err := codeGen()
        if err != nil { return nil, err }
        // 코드 선점: 이미 쓰인 코드면 다시 생성
        ok, err := m.rdb.SetNX(ctx, m.store.keyCode(code), id, m.store.ttl).Result()
        if err != nil { return nil, err }
        if !ok { continue }
        now := time.Now()
        meta := &RoomMeta{
            ID:          id,
            Code:        code,
            State:       StateWaiting,
            CreatedAt:   now,
            UpdatedAt:   now,
            CreatorRoom: chat,
            Player1ID:   userID,
            Player1Name: strings.TrimSpace(userName),
        }
        if err := m.store.SaveMeta(ctx, meta); err != nil { return nil, err }
        if err := m.store.AddChat(ctx, id, chat); err != nil { return nil, err }
        if err := m.rdb.Set(ctx, m.store.keyUserIdx(userID), id, m.store.ttl).Err(); err != nil { return nil, err }
        obslog.L().Info("room_create", zap.String("room_id", id), zap.String("code", code), zap.String("chat", chat), zap.String("user_id", userID))
        return meta, nil
    }
    return nil, fmt.Errorf("failed to allocate room code")
}

// Join seats userID in the first free slot. Joining a room the user already sits in is a no-op.
func (m *Manager) Join(ctx context.Context, chat, code, userID, userName string) (*JoinResult, error) {
    chat, code, userID = strings.TrimSpace(chat), strings.TrimSpace(code), strings.TrimSpace(userID)
    if chat == "" || code == "" || userID == "" {
        return nil, ErrInvalidArgs
    }
    id, err := m.store.ResolveCode(ctx, code)
    if err != nil { return nil, err }
    if id == "" { return nil, ErrRoomNotFound }
    if cur, err := m.activeRoomOf(ctx, userID); err != nil {
        return nil, err
    } else if cur != nil && cur.ID != id {
        return nil, ErrAlreadyJoined
    }

    var res JoinResult
    meta, err := m.update(ctx, id, func(meta *RoomMeta) error {
        res = JoinResult{}
        if p := meta.Resolve(userID); p != janggi.NoPlayer {
            res.Player, res.Rejoined = p, true
            return errUnchanged
        }
        name := strings.TrimSpace(userName)
        switch {
        case meta.Player1ID == "":
            meta.Player1ID, meta.Player1Name = userID, name
            res.Player = janggi.Player1
        case meta.Player2ID == "":
            meta.Player2ID, meta.Player2Name = userID, name
            res.Player = janggi.Player2
        default:
            return ErrRoomFull
        }
        if meta.Full() && meta.State == StateWaiting {
            meta.State = StatePlaying
            res.Started = true
        }
        return nil
    })
    if err != nil {
        obslog.L().Warn("room_join_error", zap.String("code", code), zap.String("chat", chat), zap.String("user_id", userID), zap.Error(err))
        return nil, err
    }
    if err := m.store.AddChat(ctx, id, chat); err != nil { return nil, err }
    if err := m.rdb.Set(ctx, m.store.keyUserIdx(userID), id, m.store.ttl).Err(); err != nil { return nil, err }
    res.Meta = meta
    obslog.L().Info("room_join",
        zap.String("room_id", id),
        zap.String("code", meta.Code),
        zap.String("chat", chat),
        zap.String("user_id", userID),
        zap.String("player", string(res.Player)),
        zap.Bool("started", res.Started),
        zap.Bool("rejoined", res.Rejoined),
    )
    return &res, nil
}

// Leave frees the user's slot. The room is deleted once both slots are empty.
func (m *Manager) Leave(ctx context.Context, userID string) (*LeaveResult, error) {
    userID = strings.TrimSpace(userID)
    if userID == "" { return nil, ErrInvalidArgs }
    id, err := m.store.UserRoom(ctx, userID)
    if err != nil { return nil, err }
    if id == "" { return nil, ErrRoomNotFound }

    var res LeaveResult
    meta, err := m.update(ctx, id, func(meta *RoomMeta) error {
        res = LeaveResult{}
        p := meta.Resolve(userID)
        if p == janggi.NoPlayer { return ErrRoomNotFound }
        res.Player = p
        if p == janggi.Player1 {
            meta.Player1ID, meta.Player1Name = "", ""
        } else {
            meta.Player2ID, meta.Player2Name = "", ""
        }
        meta.State = StateWaiting
        meta.WinnerID = ""
        res.Deleted = meta.Empty()
        return nil
    })
    _ = m.store.ClearUserRoom(ctx, userID, id)
    if err != nil { return nil, err }
    res.Meta = meta
    obslog.L().Info("room_leave", zap.String("room_id", id), zap.String("user_id", userID), zap.String("player", string(res.Player)), zap.Bool("deleted", res.Deleted))
    return &res, nil
}

// MarkFinished records the winner; the room stays until reset or left.
func (m *Manager) MarkFinished(ctx context.Context, id, winnerID string) (*RoomMeta, error) {
    return m.update(ctx, id, func(meta *RoomMeta) error {
        meta.State = StateFinished
        meta.WinnerID = strings.TrimSpace(winnerID)
        return nil
    })
}

// Restart clears a finished result so a fresh board can be played in the same room.
func (m *Manager) Restart(ctx context.Context, id string) (*RoomMeta, error) {
    return m.update(ctx, id, func(meta *RoomMeta) error {
        meta.WinnerID = ""
        if meta.Full() {
            meta.State = StatePlaying
        } else {
            meta.State = StateWaiting
        }
        return nil
    })
}

func (m *Manager) Get(ctx context.Context, id string) (*RoomMeta, error) {
    meta, err := m.store.LoadMeta(ctx, id)
    if err != nil { return nil, err }
    if meta == nil { return nil, ErrRoomNotFound }
    return meta, nil
}

func (m *Manager) ByCode(ctx context.Context, code string) (*RoomMeta, error) {
    id, err := m.store.ResolveCode(ctx, code)
    if err != nil { return nil, err }
    if id == "" { return nil, ErrRoomNotFound }
    return m.Get(ctx, id)
}

// RoomOfUser returns the room the user currently sits in.
func (m *Manager) RoomOfUser(ctx context.Context, userID string) (*RoomMeta, error) {
    meta, err := m.activeRoomOf(ctx, userID)
    if err != nil { return nil, err }
    if meta == nil { return nil, ErrRoomNotFound }
    return meta, nil
}

// RoomOfUserInChat narrows RoomOfUser to rooms bound to the given chat.
func (m *Manager) RoomOfUserInChat(ctx context.Context, userID, chat string) (*RoomMeta, error) {
    meta, err := m.RoomOfUser(ctx, userID)
    if err != nil { return nil, err }
    ok, err := m.store.HasChat(ctx, meta.ID, strings.TrimSpace(chat))
    if err != nil { return nil, err }
    if !ok { return nil, ErrRoomNotFound }
    return meta, nil
}

func (m *Manager) Chats(ctx context.Context, id string) ([]string, error) { return m.store.Chats(ctx, id) }

func (m *Manager) activeRoomOf(ctx context.Context, userID string) (*RoomMeta, error) {
    id, err := m.store.UserRoom(ctx, userID)
    if err != nil || id == "" { return nil, err }
    meta, err := m.store.LoadMeta(ctx, id)
    if err != nil { return nil, err }
    // 인덱스가 남아 있어도 좌석이 없으면 무시
    if meta == nil || meta.Resolve(userID) == janggi.NoPlayer { return nil, nil }
    return meta, nil
}

// update applies fn to the stored meta under WATCH. A room left without players is deleted
// in the same transaction instead of being saved.
func (m *Manager) update(ctx context.Context, id string, fn func(meta *RoomMeta) error) (*RoomMeta, error) {
    id = strings.TrimSpace(id)
    if id == "" { return nil, ErrInvalidArgs }
    key := m.store.keyMeta(id)
    var out *RoomMeta
    txf := func(tx *redis.Tx) error {
        out = nil
        meta, err := decodeMeta(tx.Get(ctx, key).Bytes())
        if err != nil { return err }
        if meta == nil { return ErrRoomNotFound }
        if err := fn(meta); err != nil {
            if errors.Is(err, errUnchanged) { out = meta; return nil }
            return err
        }
        meta.UpdatedAt = time.Now()
        raw, err := json.Marshal(meta)
        if err != nil { return err }
        _, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
            if meta.Empty() {
                pipe.Del(ctx, key, m.store.keyChats(id), m.store.keyCode(meta.Code))
                return nil
            }
            pipe.Set(ctx, key, raw, m.store.ttl)
            return nil
        })
        if err != nil { return err }
        out = meta
        return nil
    }
    for i := 0; i < maxAttempts; i++ {
        err := m.rdb.Watch(ctx, txf, key)
        if err == nil { return out, nil }
        if errors.Is(err, redis.TxFailedErr) { continue }
        return nil, err
    }
    return nil, ErrConflict
}
