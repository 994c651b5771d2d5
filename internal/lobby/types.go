package lobby

import (
    "strings"
    "time"

    "github.com/park285/Cheese-Janggi/internal/janggi"
)

// RoomState represents the lifecycle of a Janggi room.
type RoomState string

const (
    StateWaiting  RoomState = "WAITING"
    StatePlaying  RoomState = "PLAYING"
    StateFinished RoomState = "FINISHED"
)

// RoomMeta is stored as JSON in Redis under jg:room:<id>.
type RoomMeta struct {
    ID          string    `json:"id"`
    Code        string    `json:"code"`
    State       RoomState `json:"state"`
    CreatedAt   time.Time `json:"created_at"`
    UpdatedAt   time.Time `json:"updated_at"`
    CreatorRoom string    `json:"creator_room"`

    Player1ID   string `json:"player1_id,omitempty"`
    Player1Name string `json:"player1_name,omitempty"`
    Player2ID   string `json:"player2_id,omitempty"`
    Player2Name string `json:"player2_name,omitempty"`

    WinnerID    string `json:"winner_id,omitempty"`
}

// Resolve maps an opaque requester id to the side it holds in this room.
func (m *RoomMeta) Resolve(userID string) janggi.Player {
    id := strings.TrimSpace(userID)
    if m == nil || id == "" { return janggi.NoPlayer }
    switch id {
    case m.Player1ID:
        return janggi.Player1
    case m.Player2ID:
        return janggi.Player2
    }
    return janggi.NoPlayer
}

func (m *RoomMeta) UserID(p janggi.Player) string {
    switch p {
    case janggi.Player1:
        return m.Player1ID
    case janggi.Player2:
        return m.Player2ID
    }
    return ""
}

// Name returns the display name of a side, falling back to its id.
func (m *RoomMeta) Name(p janggi.Player) string {
    var name, id string
    switch p {
    case janggi.Player1:
        name, id = m.Player1Name, m.Player1ID
    case janggi.Player2:
        name, id = m.Player2Name, m.Player2ID
    }
    if strings.TrimSpace(name) != "" { return name }
    return id
}

func (m *RoomMeta) Full() bool  { return m.Player1ID != "" && m.Player2ID != "" }
func (m *RoomMeta) Empty() bool { return m.Player1ID == "" && m.Player2ID == "" }

// Results
type JoinResult struct {
    Meta     *RoomMeta
    Player   janggi.Player
    Started  bool
    Rejoined bool
}

type LeaveResult struct {
    Meta    *RoomMeta
    Player  janggi.Player
    Deleted bool
}

// Errors
var (
    ErrInvalidArgs   = errf("invalid arguments")
    ErrRoomNotFound  = errf("room not found or expired")
    ErrRoomFull      = errf("room already has two players")
    // 한 사용자는 동시에 하나의 방에만 참가
    ErrAlreadyJoined = errf("user already joined another room")
    ErrConflict      = errf("room changed concurrently, retry")
)

type staticErr string
func (e staticErr) Error() string { return string(e) }
func errf(s string) error { return staticErr(s) }
