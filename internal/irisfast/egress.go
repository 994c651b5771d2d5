package irisfast

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Egress sends replies to a chat room over HTTP or the WebSocket.
type Egress interface {
	SendText(ctx context.Context, room, message string) error
	SendImage(ctx context.Context, room, imageBase64 string) error
}

// NewEgress picks the transport by mode: "ws", "auto" (WS when connected, one HTTP
// fallback on failure) or anything else for HTTP. dryrun logs WS frames instead of
// writing them.
func NewEgress(mode string, dryrun bool, c *Client, ws *WebSocket, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &httpEgress{c: c}
	w := &wsEgress{ws: ws, dryrun: dryrun, logger: logger}
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "ws":
		return w
	case "auto":
		return &autoEgress{ws: w, http: h, logger: logger}
	default:
		return h
	}
}

type httpEgress struct{ c *Client }

func (h *httpEgress) SendText(ctx context.Context, room, message string) error {
	if h.c == nil {
		return errors.New("http egress not configured")
	}
	return h.c.SendMessage(ctx, room, message)
}

func (h *httpEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
	if h.c == nil {
		return errors.New("http egress not configured")
	}
	return h.c.SendImage(ctx, room, imageBase64)
}

type wsEgress struct {
	ws     *WebSocket
	dryrun bool
	logger *zap.Logger
}

func (w *wsEgress) send(ctx context.Context, req ReplyRequest) error {
	if w.ws == nil {
		return ErrNotConnected
	}
	if w.dryrun {
		w.logger.Info("ws_egress_dryrun", zap.String("type", req.Type), zap.String("room", req.Room), zap.Int("bytes", len(req.Data)))
		return nil
	}
	return w.ws.WriteJSON(ctx, req)
}

func (w *wsEgress) SendText(ctx context.Context, room, message string) error {
	return w.send(ctx, ReplyRequest{Type: "text", Room: room, Data: message})
}

func (w *wsEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
	return w.send(ctx, ReplyRequest{Type: "image", Room: room, Data: imageBase64})
}

type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) wsReady() bool { return a.ws.ws != nil && a.ws.ws.Connected() }

func (a *autoEgress) SendText(ctx context.Context, room, message string) error {
	if a.wsReady() {
		err := a.ws.SendText(ctx, room, message)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "text"), zap.String("room", room), zap.Error(err))
	}
	return a.http.SendText(ctx, room, message)
}

func (a *autoEgress) SendImage(ctx context.Context, room, imageBase64 string) error {
	if a.wsReady() {
		err := a.ws.SendImage(ctx, room, imageBase64)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "image"), zap.String("room", room), zap.Error(err))
	}
	return a.http.SendImage(ctx, room, imageBase64)
}
