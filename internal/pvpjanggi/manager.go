package pvpjanggi

import (
    "context"
    "errors"
    "fmt"
    "strings"

    "github.com/park285/Cheese-Janggi/internal/archive"
    "github.com/park285/Cheese-Janggi/internal/domain"
    "github.com/park285/Cheese-Janggi/internal/janggi"
    "github.com/park285/Cheese-Janggi/internal/lobby"
    "github.com/park285/Cheese-Janggi/internal/obslog"
    "github.com/park285/Cheese-Janggi/internal/roomstate"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"
)

const defaultHistoryLimit = 10

type Manager struct {
    rdb          *redis.Client
    lobby        *lobby.Manager
    store        roomstate.Store
    repo         archive.Repository
    historyLimit int
}

// NewManager connects to REDIS_URL and wires lobby and room state on the same client.
func NewManager(redisURL string, opts Options) (*Manager, error) {
    if strings.TrimSpace(redisURL) == "" {
        return nil, fmt.Errorf("REDIS_URL required for janggi manager")
    }
    ropts, err := redis.ParseURL(redisURL)
    if err != nil { return nil, err }
    rdb := redis.NewClient(ropts)
    if err := rdb.Ping(context.Background()).Err(); err != nil {
        _ = rdb.Close()
        return nil, fmt.Errorf("redis ping: %w", err)
    }
    return NewManagerWithClient(rdb, opts), nil
}

func NewManagerWithClient(rdb *redis.Client, opts Options) *Manager {
    ttl := opts.RoomTTL
    if ttl <= 0 { ttl = roomstate.DefaultTTL }
    store := opts.Store
    if store == nil { store = roomstate.NewRedisStore(rdb, ttl) }
    limit := opts.HistoryLimit
    if limit <= 0 { limit = defaultHistoryLimit }
    return &Manager{rdb: rdb, lobby: lobby.NewManager(rdb, ttl), store: store, historyLimit: limit}
}

func (m *Manager) Close() error {
    if m == nil { return nil }
    var errs []error
    if m.repo != nil { errs = append(errs, m.repo.Close()) }
    if m.rdb != nil { errs = append(errs, m.rdb.Close()) }
    return errors.Join(errs...)
}

// AttachRepository wires an archive for finished games.
func (m *Manager) AttachRepository(r archive.Repository) {
    if m != nil {
        m.repo = r
    }
}

func (m *Manager) HistoryLimit() int { return m.historyLimit }

// CreateRoom opens a room with the creator as Player1 and a fresh board.
func (m *Manager) CreateRoom(ctx context.Context, chat, userID, userName string) (*RoomView, error) {
    meta, err := m.lobby.Create(ctx, chat, userID, userName)
    if err != nil { return nil, err }
    board := janggi.NewBoard()
    if err := m.store.Init(ctx, meta.ID, board); err != nil { return nil, err }
    return &RoomView{Meta: meta, Board: board}, nil
}

func (m *Manager) JoinRoom(ctx context.Context, chat, code, userID, userName string) (*lobby.JoinResult, *RoomView, error) {
    jr, err := m.lobby.Join(ctx, chat, code, userID, userName)
    if err != nil { return nil, nil, err }
    view, err := m.view(ctx, jr.Meta)
    if err != nil { return nil, nil, err }
    return jr, view, nil
}

// LeaveRoom frees the user's seat; the board goes away with the last player.
func (m *Manager) LeaveRoom(ctx context.Context, userID string) (*lobby.LeaveResult, error) {
    lr, err := m.lobby.Leave(ctx, userID)
    if err != nil {
        if errors.Is(err, lobby.ErrRoomNotFound) { return nil, ErrNoActiveRoom }
        return nil, err
    }
    if lr.Deleted {
        if err := m.store.Delete(ctx, lr.Meta.ID); err != nil { return lr, err }
    }
    return lr, nil
}

// ResetGame puts the starting layout back and clears history. Either seated player may reset.
func (m *Manager) ResetGame(ctx context.Context, chat, userID string) (*RoomView, error) {
    meta, err := m.ActiveRoomByUserInChat(ctx, userID, chat)
    if err != nil { return nil, err }
    board := janggi.NewBoard()
    if err := m.store.Init(ctx, meta.ID, board); err != nil { return nil, err }
    if updated, err := m.lobby.Restart(ctx, meta.ID); err == nil {
        meta = updated
    } else {
        return nil, err
    }
    obslog.L().Info("game_reset", zap.String("room_id", meta.ID), zap.String("user_id", strings.TrimSpace(userID)))
    return &RoomView{Meta: meta, Board: board}, nil
}

// LoadGame returns the room and its current board. A missing board is an error, never a fresh one.
func (m *Manager) LoadGame(ctx context.Context, chat, userID string) (*RoomView, error) {
    meta, err := m.ActiveRoomByUserInChat(ctx, userID, chat)
    if err != nil { return nil, err }
    return m.view(ctx, meta)
}

func (m *Manager) view(ctx context.Context, meta *lobby.RoomMeta) (*RoomView, error) {
    board, err := m.store.Load(ctx, meta.ID)
    if err != nil { return nil, err }
    v := &RoomView{Meta: meta, Board: board}
    if last, err := m.store.LoadHistory(ctx, meta.ID, 1); err == nil && len(last) == 1 {
        v.LastMove, v.Seq = last[0].Move, last[0].Seq
    }
    return v, nil
}

// LegalMoves previews destinations for the piece on sq against a snapshot.
// A square without one of the requester's own pieces yields an empty preview.
func (m *Manager) LegalMoves(ctx context.Context, chat, userID string, sq janggi.Position) (*Preview, error) {
    meta, err := m.ActiveRoomByUserInChat(ctx, userID, chat)
    if err != nil { return nil, err }
    board, err := m.store.Load(ctx, meta.ID)
    if err != nil { return nil, err }
    p := &Preview{Meta: meta, Board: board}
    piece := board.PieceAt(sq)
    if piece == nil || piece.Owner != meta.Resolve(userID) { return p, nil }
    cp := *piece
    p.Piece = &cp
    p.Moves = janggi.GetLegalMoves(cp, board)
    return p, nil
}

// PlayMove moves the requester's piece standing on from to the square to.
// The piece is looked up inside the room's critical section, against the committed board.
func (m *Manager) PlayMove(ctx context.Context, chat, userID string, from, to janggi.Position) (*MoveOutcome, error) {
    meta, err := m.ActiveRoomByUserInChat(ctx, userID, chat)
    if err != nil { return nil, err }
    return m.apply(ctx, meta, userID, func(cur *janggi.Board) string {
        if p := cur.PieceAt(from); p != nil { return p.ID }
        return ""
    }, to)
}

// MovePiece is the id-addressed form used by callers that already know the piece id.
func (m *Manager) MovePiece(ctx context.Context, roomID, userID, pieceID string, to janggi.Position) (*MoveOutcome, error) {
    meta, err := m.lobby.Get(ctx, roomID)
    if err != nil {
        if errors.Is(err, lobby.ErrRoomNotFound) { return nil, ErrNoActiveRoom }
        return nil, err
    }
    return m.apply(ctx, meta, userID, func(*janggi.Board) string { return pieceID }, to)
}

func (m *Manager) apply(ctx context.Context, meta *lobby.RoomMeta, userID string, pieceOf func(cur *janggi.Board) string, to janggi.Position) (*MoveOutcome, error) {
    side := meta.Resolve(userID)
    if side != janggi.NoPlayer && !meta.Full() { return nil, ErrNotStarted }

    out := &MoveOutcome{Meta: meta, Player: side}
    rec, err := m.store.Apply(ctx, meta.ID, func(cur *janggi.Board) *janggi.HistoryRecord {
        req := janggi.MoveRequest{PieceID: pieceOf(cur), ToX: to.X, ToY: to.Y, Player: side}
        out.Result = janggi.ApplyMove(cur, req)
        if !out.Result.Accepted { return nil }
        next := out.Result.Next
        return &janggi.HistoryRecord{Board: *next, TurnAfter: next.Turn, Mover: side, Move: out.Result.Move}
    })
    if err != nil {
        obslog.L().Error("janggi_move_error", zap.String("room_id", meta.ID), zap.String("user_id", userID), zap.Error(err))
        return nil, err
    }
    if !out.Result.Accepted {
        obslog.L().Info("janggi_move_rejected",
            zap.String("room_id", meta.ID),
            zap.String("user_id", strings.TrimSpace(userID)),
            zap.String("player", string(side)),
            zap.String("to", to.Notation()),
            zap.String("reason", string(out.Result.Reason)),
        )
        out.Outcome = janggi.OutcomeContinue
        return out, nil
    }
    out.Record = rec
    out.Outcome = out.Result.OutcomeFor(side)
    obslog.L().Info("janggi_move",
        zap.String("room_id", meta.ID),
        zap.String("user_id", strings.TrimSpace(userID)),
        zap.Int64("seq", rec.Seq),
        zap.String("move", out.Result.Move.Describe(side)),
        zap.String("turn", string(rec.TurnAfter)),
        zap.String("captured", out.Result.CapturedPieceID),
    )
    if out.Result.Winner != janggi.NoPlayer {
        m.finish(ctx, out)
    }
    return out, nil
}

// finish marks the room and archives the game. Failures are logged, the move stands.
func (m *Manager) finish(ctx context.Context, out *MoveOutcome) {
    meta := out.Meta
    winner := out.Result.Winner
    obslog.L().Info("janggi_game_finished", zap.String("room_id", meta.ID), zap.String("winner", string(winner)), zap.String("winner_id", meta.UserID(winner)))
    if updated, err := m.lobby.MarkFinished(ctx, meta.ID, meta.UserID(winner)); err == nil {
        out.Meta = updated
    } else {
        obslog.L().Warn("room_finish_error", zap.String("room_id", meta.ID), zap.Error(err))
    }
    _ = m.persistIfFinal(ctx, meta, winner)
}

func (m *Manager) persistIfFinal(ctx context.Context, meta *lobby.RoomMeta, winner janggi.Player) error {
    if m.repo == nil || winner == janggi.NoPlayer { return nil }
    history, err := m.store.LoadHistory(ctx, meta.ID, 0)
    if err != nil {
        obslog.L().Error("archive_persist_error", zap.String("room_id", meta.ID), zap.Error(err))
        return err
    }
    g := archive.BuildGame(archive.Participants{
        RoomID:      meta.ID,
        RoomCode:    meta.Code,
        Player1ID:   meta.Player1ID,
        Player1Name: meta.Player1Name,
        Player2ID:   meta.Player2ID,
        Player2Name: meta.Player2Name,
    }, history, winner)
    if err := m.repo.SaveResult(ctx, g); err != nil {
        obslog.L().Error("archive_persist_error", zap.String("room_id", meta.ID), zap.String("game_id", g.ID), zap.Error(err))
        return err
    }
    obslog.L().Info("archive_persist", zap.String("room_id", meta.ID), zap.String("game_id", g.ID), zap.Int("moves", g.MoveCount))
    return nil
}

// History returns the last limit records of the requester's room in sequence order.
func (m *Manager) History(ctx context.Context, chat, userID string, limit int) (*lobby.RoomMeta, []janggi.HistoryRecord, error) {
    meta, err := m.ActiveRoomByUserInChat(ctx, userID, chat)
    if err != nil { return nil, nil, err }
    if limit <= 0 { limit = m.historyLimit }
    list, err := m.store.LoadHistory(ctx, meta.ID, limit)
    if err != nil { return nil, nil, err }
    return meta, list, nil
}

// ActiveRoomByUserInChat resolves the room the user sits in, restricted to rooms bound to chat.
func (m *Manager) ActiveRoomByUserInChat(ctx context.Context, userID, chat string) (*lobby.RoomMeta, error) {
    if strings.TrimSpace(userID) == "" || strings.TrimSpace(chat) == "" { return nil, ErrNoActiveRoom }
    meta, err := m.lobby.RoomOfUserInChat(ctx, userID, chat)
    if errors.Is(err, lobby.ErrRoomNotFound) { return nil, ErrNoActiveRoom }
    return meta, err
}

// Chats lists every chat bound to the room, for fan-out of board updates.
func (m *Manager) Chats(ctx context.Context, roomID string) ([]string, error) {
    return m.lobby.Chats(ctx, roomID)
}

// RecentGames lists archived games of userID, newest first. Without an archive it is empty.
func (m *Manager) RecentGames(ctx context.Context, userID string, limit int) ([]*domain.JanggiGame, error) {
    if m.repo == nil { return nil, nil }
    if limit <= 0 { limit = m.historyLimit }
    return m.repo.RecentGames(ctx, strings.TrimSpace(userID), limit)
}
