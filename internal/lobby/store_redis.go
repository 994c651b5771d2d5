package lobby

import (
    "context"
    "crypto/rand"
    "encoding/json"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

const (
    defaultTTL = 24 * time.Hour
)

type Store struct {
    rdb *redis.Client
    ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
    if ttl <= 0 { ttl = defaultTTL }
    return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) keyMeta(id string) string      { return "jg:room:" + strings.TrimSpace(id) }
func (s *Store) keyChats(id string) string     { return s.keyMeta(id) + ":chats" }
func (s *Store) keyCode(code string) string    { return "jg:code:" + strings.ToUpper(strings.TrimSpace(code)) }
func (s *Store) keyUserIdx(user string) string { return "jg:index:user:" + strings.TrimSpace(user) }

func (s *Store) SaveMeta(ctx context.Context, meta *RoomMeta) error {
    raw, err := json.Marshal(meta)
    if err != nil { return err }
    if err := s.rdb.Set(ctx, s.keyMeta(meta.ID), raw, s.ttl).Err(); err != nil { return err }
    // 보조 키 TTL도 함께 갱신
    _ = s.rdb.Expire(ctx, s.keyChats(meta.ID), s.ttl).Err()
    _ = s.rdb.Expire(ctx, s.keyCode(meta.Code), s.ttl).Err()
    return nil
}

func decodeMeta(raw []byte, err error) (*RoomMeta, error) {
    if errors.Is(err, redis.Nil) { return nil, nil }
    if err != nil { return nil, err }
    var m RoomMeta
    if err := json.Unmarshal(raw, &m); err != nil { return nil, err }
    return &m, nil
}

func (s *Store) LoadMeta(ctx context.Context, id string) (*RoomMeta, error) {
    if strings.TrimSpace(id) == "" { return nil, nil }
    return decodeMeta(s.rdb.Get(ctx, s.keyMeta(id)).Bytes())
}

// ResolveCode maps a join code to the room id, "" when unknown.
func (s *Store) ResolveCode(ctx context.Context, code string) (string, error) {
    id, err := s.rdb.Get(ctx, s.keyCode(code)).Result()
    if errors.Is(err, redis.Nil) { return "", nil }
    return id, err
}

func (s *Store) AddChat(ctx context.Context, id, chat string) error {
    if strings.TrimSpace(chat) == "" { return nil }
    if err := s.rdb.SAdd(ctx, s.keyChats(id), chat).Err(); err != nil { return err }
    return s.rdb.Expire(ctx, s.keyChats(id), s.ttl).Err()
}

func (s *Store) Chats(ctx context.Context, id string) ([]string, error) {
    return s.rdb.SMembers(ctx, s.keyChats(id)).Result()
}

func (s *Store) HasChat(ctx context.Context, id, chat string) (bool, error) {
    return s.rdb.SIsMember(ctx, s.keyChats(id), chat).Result()
}

func (s *Store) UserRoom(ctx context.Context, userID string) (string, error) {
    if strings.TrimSpace(userID) == "" { return "", nil }
    id, err := s.rdb.Get(ctx, s.keyUserIdx(userID)).Result()
    if errors.Is(err, redis.Nil) { return "", nil }
    return id, err
}

// ClearUserRoom drops the user index only while it still points at id.
func (s *Store) ClearUserRoom(ctx context.Context, userID, id string) error {
    cur, err := s.UserRoom(ctx, userID)
    if err != nil || cur != id { return err }
    return s.rdb.Del(ctx, s.keyUserIdx(userID)).Err()
}

// codeGen returns `JG-` + 6 upper alnum.
func codeGen() (string, error) {
    const letters = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
    b := make([]byte, 6)
    if _, err := rand.Read(b); err != nil {
        return "", err
    }
    for i := range b {
        b[i] = letters[int(b[i])%len(letters)]
    }
    return fmt.Sprintf("JG-%s", string(b)), nil
}
