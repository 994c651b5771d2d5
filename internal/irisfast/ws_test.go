package irisfast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// echoServer pushes one chat event, records the first reply frame, then waits for
// the client to hang up.
func echoServer(t *testing.T, got chan<- ReplyRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-User-Id") != "bot" {
			http.Error(w, "missing header", http.StatusUnauthorized)
			return
		}
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")
		sender := "철수"
		if err := wsjson.Write(r.Context(), c, Message{Msg: "!장기 현황", Room: "room-1", Sender: &sender, JSON: &MessageJSON{UserID: "42"}}); err != nil {
			return
		}
		var reply ReplyRequest
		if err := wsjson.Read(r.Context(), c, &reply); err != nil {
			return
		}
		got <- reply
		_, _, _ = c.Read(context.Background())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWebSocketReceivesAndReplies(t *testing.T) {
	replies := make(chan ReplyRequest, 1)
	srv := echoServer(t, replies)

	ws := NewWebSocket("ws"+strings.TrimPrefix(srv.URL, "http"), 0, 0)
	ws.SetHeaderProvider(func() map[string]string { return map[string]string{"X-User-Id": "bot"} })
	msgs := make(chan *Message, 1)
	ws.OnMessage(func(m *Message) { msgs <- m })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ws.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close(context.Background()) })

	select {
	case m := <-msgs:
		if m.Msg != "!장기 현황" || m.UserID() != "42" {
			t.Fatalf("message = %+v", m)
		}
	case <-ctx.Done():
		t.Fatalf("no message received")
	}

	eg := NewEgress("ws", false, nil, ws, zap.NewNop())
	if err := eg.SendText(ctx, "room-1", "ok"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	select {
	case r := <-replies:
		if r.Type != "text" || r.Room != "room-1" || r.Data != "ok" {
			t.Fatalf("reply = %+v", r)
		}
	case <-ctx.Done():
		t.Fatalf("no reply frame")
	}
}

func TestWSEgressWithoutConnection(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1", 0, 0)
	eg := NewEgress("ws", false, nil, ws, nil)
	if err := eg.SendText(context.Background(), "room", "x"); err != ErrNotConnected {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
	dry := NewEgress("ws", true, nil, ws, nil)
	if err := dry.SendImage(context.Background(), "room", "AAAA"); err != nil {
		t.Fatalf("dryrun: %v", err)
	}
}
