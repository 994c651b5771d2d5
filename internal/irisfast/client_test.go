package irisfast

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

type recorded struct {
	mu      sync.Mutex
	replies []ReplyRequest
	headers []string
}

func newTestClient(t *testing.T, handler fasthttp.RequestHandler, opts ...Option) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	opts = append(opts, WithDial(func(string) (net.Conn, error) { return ln.Dial() }))
	return NewClient("http://iris.test/", opts...)
}

func TestSendMessageAndImage(t *testing.T) {
	rec := &recorded{}
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/reply" {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		var r ReplyRequest
		if err := json.Unmarshal(ctx.PostBody(), &r); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		rec.mu.Lock()
		rec.replies = append(rec.replies, r)
		rec.headers = append(rec.headers, string(ctx.Request.Header.Peek("X-User-Id")))
		rec.mu.Unlock()
	}, WithHeaderProvider(func() map[string]string { return map[string]string{"X-User-Id": "bot", "X-Empty": " "} }))

	ctx := context.Background()
	if err := c.SendMessage(ctx, "room-1", "안녕"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if err := c.SendImage(ctx, "room-1", "aGVsbG8="); err != nil {
		t.Fatalf("SendImage: %v", err)
	}
	if err := c.SendMessage(ctx, " ", "x"); err == nil {
		t.Fatalf("empty room accepted")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.replies) != 2 {
		t.Fatalf("replies = %+v", rec.replies)
	}
	if rec.replies[0].Type != "text" || rec.replies[0].Data != "안녕" || rec.replies[1].Type != "image" {
		t.Fatalf("replies = %+v", rec.replies)
	}
	if rec.headers[0] != "bot" {
		t.Fatalf("header = %q", rec.headers[0])
	}
}

func TestGetConfigRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) == 1 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"bot_name":"janggi","bot_id":7}`)
	})
	cfg, err := c.GetConfig(context.Background())
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if cfg.BotName != "janggi" || cfg.BotID != 7 || calls.Load() != 2 {
		t.Fatalf("cfg=%+v calls=%d", cfg, calls.Load())
	}
}

func TestReplyIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
	})
	if err := c.SendMessage(context.Background(), "room", "x"); err == nil {
		t.Fatalf("502 accepted")
	}
	if calls.Load() != 1 {
		t.Fatalf("reply sent %d times", calls.Load())
	}
}

func TestMessageUserID(t *testing.T) {
	name := " 철수 "
	m := &Message{Sender: &name}
	if m.UserID() != "철수" {
		t.Fatalf("fallback user id = %q", m.UserID())
	}
	m.JSON = &MessageJSON{UserID: "42"}
	if m.UserID() != "42" || m.SenderName() != "철수" {
		t.Fatalf("user id = %q name = %q", m.UserID(), m.SenderName())
	}
	var nilMsg *Message
	if nilMsg.UserID() != "" {
		t.Fatalf("nil message user id")
	}
}
