package janggipresenter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/Cheese-Janggi/internal/janggi"
	"github.com/park285/Cheese-Janggi/internal/lobby"
	"github.com/park285/Cheese-Janggi/internal/msgcat"
	"github.com/park285/Cheese-Janggi/internal/pvpjanggi"
	"github.com/park285/Cheese-Janggi/internal/roomstate"
	"github.com/park285/Cheese-Janggi/internal/util"
	"github.com/park285/Cheese-Janggi/pkg/janggidto"
)

// PrefixProvider exposes the command prefix texts should mention.
type PrefixProvider interface {
	Prefix() string
}

// Formatter renders DTOs into chat text through the message catalog.
type Formatter struct {
	cat    *msgcat.Catalog
	prefix PrefixProvider
}

func NewFormatter(cat *msgcat.Catalog, provider PrefixProvider) *Formatter {
	return &Formatter{cat: cat, prefix: provider}
}

func (f *Formatter) Prefix() string {
	if f == nil || f.prefix == nil {
		return ""
	}
	return strings.TrimSpace(f.prefix.Prefix())
}

type kv = map[string]any

func (f *Formatter) text(key string, data kv, fallback string) string {
	if data == nil {
		data = kv{}
	}
	if _, ok := data["Prefix"]; !ok {
		data["Prefix"] = f.Prefix()
	}
	return f.cat.Text(key, data, fallback)
}

func (f *Formatter) Help() string {
	header := f.text("help.header", nil, "장기 명령어 안내")
	body := f.text("help.body", nil, f.Prefix()+" 도움")
	return util.ApplyKakaoSeeMorePadding(body, header)
}

func (f *Formatter) Created(s *janggidto.RoomSnapshot) string {
	if s == nil {
		return f.Error(nil)
	}
	return f.text("room.created", kv{"Code": s.Code}, "참가 코드: "+s.Code)
}

// Joined covers a fresh seat, an idempotent re-join and the game start.
func (f *Formatter) Joined(s *janggidto.RoomSnapshot, side janggi.Player, name string, rejoined, started bool) string {
	if s == nil {
		return f.Error(nil)
	}
	data := kv{"Name": name, "Side": side.Side(), "Code": s.Code}
	if rejoined {
		return f.text("room.rejoined", data, name)
	}
	out := f.text("room.joined", data, name)
	if started {
		out += "\n" + f.text("room.started", kv{"Player1": s.Cho.Name, "Player2": s.Han.Name}, "대국 시작")
	}
	return out
}

func (f *Formatter) Left(name string, deleted bool) string {
	out := f.text("room.left", kv{"Name": name}, name)
	if deleted {
		out += "\n" + f.text("room.deleted", nil, "")
	}
	return strings.TrimSpace(out)
}

func (f *Formatter) Reset() string { return f.text("room.reset", nil, "판을 초기화했습니다.") }

func (f *Formatter) Status(s *janggidto.RoomSnapshot) string {
	switch {
	case s == nil:
		return f.Error(nil)
	case s.Winner != nil:
		return f.text("status.finished", kv{"Side": s.Winner.Side, "Name": s.Winner.Name}, "대국 종료")
	case s.Waiting():
		return f.text("status.waiting", kv{"Code": s.Code}, s.Code)
	}
	out := f.text("status.turn", kv{"Side": s.Turn.Side, "Name": s.Turn.Name, "Moves": s.MoveCount + 1}, s.Turn.Side)
	if s.LastMove != "" {
		out = s.LastMove + "\n" + out
	}
	return out
}

// Move renders an accepted move or the catalog text of the rejection reason.
func (f *Formatter) Move(r *janggidto.MoveReport) string {
	if r == nil {
		return f.Error(nil)
	}
	if !r.Accepted {
		return f.text("reject."+r.Reason, nil, r.Reason)
	}
	s := r.Room
	if s == nil {
		return r.Line
	}
	if s.Winner != nil {
		return f.text("move.win", kv{"Line": r.Line, "Side": s.Winner.Side, "Name": s.Winner.Name}, r.Line)
	}
	return f.text("move.accepted", kv{"Line": r.Line, "NextSide": s.Turn.Side, "NextName": s.Turn.Name}, r.Line)
}

func (f *Formatter) Preview(p *janggidto.Preview) string {
	if p == nil {
		return f.Error(nil)
	}
	if p.Piece == "" || len(p.Moves) == 0 {
		return f.text("preview.none", kv{"Square": p.Square}, p.Square)
	}
	return f.text("preview.moves", kv{"Square": p.Square, "Piece": p.Piece, "Moves": strings.Join(p.Moves, " ")}, strings.Join(p.Moves, " "))
}

func (f *Formatter) History(code string, entries []janggidto.HistoryEntry) string {
	if len(entries) == 0 {
		return f.text("history.empty", nil, "")
	}
	header := f.text("history.header", kv{"Code": code}, "기보")
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%d. %s\n", e.Seq, e.Line)
	}
	return util.ApplyKakaoSeeMorePadding(strings.TrimRight(sb.String(), "\n"), header)
}

func (f *Formatter) Recent(games []janggidto.GameSummary) string {
	if len(games) == 0 {
		return f.text("recent.empty", nil, "")
	}
	win, lose := f.text("recent.win", nil, "W"), f.text("recent.lose", nil, "L")
	lines := make([]string, 0, len(games))
	for _, g := range games {
		result := lose
		if g.Won {
			result = win
		}
		lines = append(lines, f.text("recent.line", kv{
			"Date":     util.FormatKST(g.EndedAt, "01-02 15:04"),
			"Result":   result,
			"Opponent": g.Opponent,
			"Moves":    g.Moves,
		}, g.ID))
	}
	return util.ApplyKakaoSeeMorePadding(strings.Join(lines, "\n"), f.text("recent.header", nil, "최근 대국"))
}

// BadSquare is the reply to an unparsable square or move.
func (f *Formatter) BadSquare() string { return f.text("error.bad_square", nil, "a6a5") }

func (f *Formatter) Unknown() string { return f.text("error.unknown_command", nil, f.Prefix()+" 도움") }

// Error maps manager and lobby errors to catalog texts. Unknown errors get the generic text.
func (f *Formatter) Error(err error) string {
	key := "error.internal"
	switch {
	case errors.Is(err, pvpjanggi.ErrNoActiveRoom):
		key = "error.no_room"
	case errors.Is(err, pvpjanggi.ErrNotStarted):
		key = "error.not_started"
	case errors.Is(err, lobby.ErrRoomNotFound), errors.Is(err, roomstate.ErrRoomNotFound), errors.Is(err, lobby.ErrInvalidArgs):
		key = "error.room_not_found"
	case errors.Is(err, lobby.ErrRoomFull):
		key = "error.room_full"
	case errors.Is(err, lobby.ErrAlreadyJoined):
		key = "error.already_joined"
	case errors.Is(err, lobby.ErrConflict), errors.Is(err, roomstate.ErrConcurrentUpdate):
		key = "error.conflict"
	}
	return f.text(key, nil, "처리 중 문제가 생겼습니다.")
}

// DomainError wraps err with its catalog code for callers that log or forward it.
func (f *Formatter) DomainError(err error) janggidto.DomainError {
	retry := errors.Is(err, lobby.ErrConflict) || errors.Is(err, roomstate.ErrConcurrentUpdate)
	return janggidto.DomainError{Code: codeOf(err), Message: f.Error(err), Retryable: retry}
}

func codeOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, pvpjanggi.ErrNoActiveRoom):
		return "NO_ROOM"
	case errors.Is(err, pvpjanggi.ErrNotStarted):
		return "NOT_STARTED"
	case errors.Is(err, lobby.ErrRoomFull):
		return "ROOM_FULL"
	case errors.Is(err, lobby.ErrAlreadyJoined):
		return "ALREADY_JOINED"
	}
	return "INTERNAL"
}
