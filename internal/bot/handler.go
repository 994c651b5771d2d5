// Package bot routes "!장기 ..." chat commands to the room manager and replies through
// the presenter.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/park285/Cheese-Janggi/internal/adapter/janggipresenter"
	"github.com/park285/Cheese-Janggi/internal/irisfast"
	"github.com/park285/Cheese-Janggi/internal/janggi"
	"github.com/park285/Cheese-Janggi/internal/msgcat"
	"github.com/park285/Cheese-Janggi/internal/obslog"
	"github.com/park285/Cheese-Janggi/internal/pvpjanggi"
	"github.com/park285/Cheese-Janggi/pkg/janggidto"
	"go.uber.org/zap"
)

type Handler struct {
	mgr     *pvpjanggi.Manager
	adapter *janggipresenter.Adapter
	fmt     *janggipresenter.Formatter
	out     *janggipresenter.Presenter
	prefix  string
	allowed func(chat string) bool
}

type Deps struct {
	Manager   *pvpjanggi.Manager
	Adapter   *janggipresenter.Adapter
	Catalog   *msgcat.Catalog
	Presenter *janggipresenter.Presenter
	Prefix    string
	// Allowed filters chats; nil allows every chat.
	Allowed func(chat string) bool
}

func New(d Deps) *Handler {
	h := &Handler{
		mgr:     d.Manager,
		adapter: d.Adapter,
		out:     d.Presenter,
		prefix:  strings.TrimSpace(d.Prefix),
		allowed: d.Allowed,
	}
	h.fmt = janggipresenter.NewFormatter(d.Catalog, h)
	return h
}

// Prefix satisfies janggipresenter.PrefixProvider.
func (h *Handler) Prefix() string { return h.prefix }

// Accepts reports whether msg is a command for this bot in an allowed chat.
func (h *Handler) Accepts(msg *irisfast.Message) bool {
	if msg == nil || strings.TrimSpace(msg.Room) == "" {
		return false
	}
	if h.allowed != nil && !h.allowed(msg.Room) {
		return false
	}
	text := strings.TrimSpace(msg.Msg)
	if !strings.HasPrefix(text, h.prefix) {
		return false
	}
	rest := text[len(h.prefix):]
	return rest == "" || rest[0] == ' ' || rest[0] == '\t'
}

// Handle runs one command. It never panics on user input; failures become chat replies.
func (h *Handler) Handle(ctx context.Context, msg *irisfast.Message) {
	if !h.Accepts(msg) {
		return
	}
	chat := strings.TrimSpace(msg.Room)
	user := msg.UserID()
	name := msg.SenderName()
	if name == "" {
		name = user
	}
	args := strings.Fields(strings.TrimPrefix(strings.TrimSpace(msg.Msg), h.prefix))
	if user == "" {
		h.reply(ctx, chat, h.fmt.Error(pvpjanggi.ErrNoActiveRoom))
		return
	}
	if len(args) == 0 {
		h.reply(ctx, chat, h.fmt.Help())
		return
	}

	sub, rest := strings.ToLower(args[0]), args[1:]
	var err error
	switch sub {
	case "도움", "help":
		h.reply(ctx, chat, h.fmt.Help())
	case "만들기", "create":
		err = h.create(ctx, chat, user, name)
	case "참가", "join":
		err = h.join(ctx, chat, user, name, rest)
	case "현황", "status":
		err = h.status(ctx, chat, user)
	case "보기", "moves":
		err = h.preview(ctx, chat, user, rest)
	case "기보", "history":
		err = h.history(ctx, chat, user, rest)
	case "전적", "recent":
		err = h.recent(ctx, chat, user)
	case "초기화", "reset":
		err = h.reset(ctx, chat, user)
	case "나가기", "leave":
		err = h.leave(ctx, chat, user, name)
	default:
		err = h.move(ctx, chat, user, strings.Join(args, ""))
	}
	if err != nil {
		de := h.fmt.DomainError(err)
		if de.Code == "INTERNAL" && !de.Retryable {
			obslog.L().Error("command_error", zap.String("chat", chat), zap.String("user_id", user), zap.String("cmd", sub), zap.Error(err))
		} else {
			obslog.L().Info("command_refused", zap.String("chat", chat), zap.String("user_id", user), zap.String("cmd", sub), zap.String("code", de.Code), zap.Error(err))
		}
		h.reply(ctx, chat, de.Message)
	}
}

func (h *Handler) reply(ctx context.Context, chat, text string) {
	if err := h.out.Text(ctx, chat, text); err != nil {
		obslog.L().Warn("reply_error", zap.String("chat", chat), zap.Error(err))
	}
}

// broadcast sends to every chat bound to the room, always including the caller's chat.
func (h *Handler) broadcast(ctx context.Context, roomID, chat, text string, snap *janggidto.RoomSnapshot) {
	chats, err := h.mgr.Chats(ctx, roomID)
	if err != nil {
		obslog.L().Warn("room_chats_error", zap.String("room_id", roomID), zap.Error(err))
	}
	if err := h.out.Broadcast(ctx, append([]string{chat}, chats...), text, snap); err != nil {
		obslog.L().Warn("broadcast_error", zap.String("room_id", roomID), zap.Error(err))
	}
}

func (h *Handler) create(ctx context.Context, chat, user, name string) error {
	view, err := h.mgr.CreateRoom(ctx, chat, user, name)
	if err != nil {
		return err
	}
	snap := h.adapter.View(ctx, view)
	return h.out.Board(ctx, chat, h.fmt.Created(snap), snap)
}

func (h *Handler) join(ctx context.Context, chat, user, name string, args []string) error {
	if len(args) == 0 {
		h.reply(ctx, chat, h.fmt.Help())
		return nil
	}
	jr, view, err := h.mgr.JoinRoom(ctx, chat, args[0], user, name)
	if err != nil {
		return err
	}
	snap := h.adapter.View(ctx, view)
	text := h.fmt.Joined(snap, jr.Player, name, jr.Rejoined, jr.Started)
	if jr.Started {
		h.broadcast(ctx, jr.Meta.ID, chat, text, snap)
		return nil
	}
	h.reply(ctx, chat, text)
	return nil
}

func (h *Handler) status(ctx context.Context, chat, user string) error {
	view, err := h.mgr.LoadGame(ctx, chat, user)
	if err != nil {
		return err
	}
	snap := h.adapter.View(ctx, view)
	return h.out.Board(ctx, chat, h.fmt.Status(snap), snap)
}

func (h *Handler) preview(ctx context.Context, chat, user string, args []string) error {
	if len(args) == 0 {
		h.reply(ctx, chat, h.fmt.BadSquare())
		return nil
	}
	sq, err := janggi.ParseSquare(args[0])
	if err != nil {
		h.reply(ctx, chat, h.fmt.BadSquare())
		return nil
	}
	p, err := h.mgr.LegalMoves(ctx, chat, user, sq)
	if err != nil {
		return err
	}
	dto := h.adapter.Preview(ctx, p, sq)
	if len(dto.Moves) == 0 {
		h.reply(ctx, chat, h.fmt.Preview(dto))
		return nil
	}
	return h.out.Board(ctx, chat, h.fmt.Preview(dto), dto.Room)
}

func (h *Handler) history(ctx context.Context, chat, user string, args []string) error {
	limit := 0
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}
	meta, recs, err := h.mgr.History(ctx, chat, user, limit)
	if err != nil {
		return err
	}
	h.reply(ctx, chat, h.fmt.History(meta.Code, janggipresenter.History(recs)))
	return nil
}

func (h *Handler) recent(ctx context.Context, chat, user string) error {
	games, err := h.mgr.RecentGames(ctx, user, 0)
	if err != nil {
		return err
	}
	h.reply(ctx, chat, h.fmt.Recent(janggipresenter.Games(user, games)))
	return nil
}

func (h *Handler) reset(ctx context.Context, chat, user string) error {
	view, err := h.mgr.ResetGame(ctx, chat, user)
	if err != nil {
		return err
	}
	h.broadcast(ctx, view.Meta.ID, chat, h.fmt.Reset(), h.adapter.View(ctx, view))
	return nil
}

func (h *Handler) leave(ctx context.Context, chat, user, name string) error {
	lr, err := h.mgr.LeaveRoom(ctx, user)
	if err != nil {
		return err
	}
	text := h.fmt.Left(name, lr.Deleted)
	if lr.Deleted {
		h.reply(ctx, chat, text)
		return nil
	}
	h.broadcast(ctx, lr.Meta.ID, chat, text, nil)
	return nil
}

func (h *Handler) move(ctx context.Context, chat, user, raw string) error {
	from, to, err := janggi.ParseMove(raw)
	if err != nil {
		h.reply(ctx, chat, h.fmt.Unknown())
		return nil
	}
	out, err := h.mgr.PlayMove(ctx, chat, user, from, to)
	if err != nil {
		return err
	}
	rep := h.adapter.Move(ctx, out)
	if !rep.Accepted {
		h.reply(ctx, chat, h.fmt.Move(rep))
		return nil
	}
	h.broadcast(ctx, out.Meta.ID, chat, h.fmt.Move(rep), rep.Room)
	return nil
}

// ErrUnhandled is returned by Dispatch when the message is not a command.
var ErrUnhandled = errors.New("not a janggi command")

// Dispatch runs Handle on its own goroutine so the socket reader is never blocked.
func (h *Handler) Dispatch(msg *irisfast.Message) error {
	if !h.Accepts(msg) {
		return ErrUnhandled
	}
	go h.Handle(context.Background(), msg)
	return nil
}
