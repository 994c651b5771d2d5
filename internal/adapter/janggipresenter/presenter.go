package janggipresenter

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/park285/Cheese-Janggi/pkg/janggidto"
)

// Sender is the outbound side of the chat bridge.
type Sender interface {
	SendText(ctx context.Context, room, message string) error
	SendImage(ctx context.Context, room, imageBase64 string) error
}

// Presenter delivers text and board images to one or more chats.
type Presenter struct {
	out Sender
}

func NewPresenter(out Sender) *Presenter { return &Presenter{out: out} }

// Text sends message to room; blank messages are dropped.
func (p *Presenter) Text(ctx context.Context, room, message string) error {
	if p == nil || p.out == nil || strings.TrimSpace(message) == "" {
		return nil
	}
	return p.out.SendText(ctx, room, message)
}

// Board sends message, then the board image if the snapshot has one.
func (p *Presenter) Board(ctx context.Context, room, message string, s *janggidto.RoomSnapshot) error {
	if p == nil || p.out == nil {
		return nil
	}
	if err := p.Text(ctx, room, message); err != nil {
		return err
	}
	if s == nil || len(s.BoardImage) == 0 {
		return nil
	}
	return p.out.SendImage(ctx, room, base64.StdEncoding.EncodeToString(s.BoardImage))
}

// Broadcast runs Board for every distinct chat, continuing past failures.
func (p *Presenter) Broadcast(ctx context.Context, rooms []string, message string, s *janggidto.RoomSnapshot) error {
	seen := make(map[string]struct{}, len(rooms))
	var errs []error
	for _, r := range rooms {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		if err := p.Board(ctx, r, message, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
