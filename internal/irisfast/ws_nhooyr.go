package irisfast

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/park285/Cheese-Janggi/internal/obslog"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

var ErrNotConnected = errors.New("iris websocket not connected")

type callbackEntry struct {
	id int
	fn MessageCallback
}

type stateEntry struct {
	id int
	fn StateCallback
}

// WebSocket is the Iris event stream. It reconnects with backoff after read or ping
// failures; message callbacks run on the reader goroutine.
type WebSocket struct {
	url string

	mu    sync.RWMutex // conn + state
	conn  *websocket.Conn
	state WebSocketState
	wmu   sync.Mutex // one writer at a time

	cbMu     sync.RWMutex
	nextID   int
	msgCbs   []callbackEntry
	stateCbs []stateEntry

	maxReconnect   int
	reconnectDelay time.Duration
	pingInterval   time.Duration
	headers        HeaderProvider

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	root     context.Context
	cancel   context.CancelFunc
}

func NewWebSocket(url string, maxReconnect int, reconnectDelay time.Duration) *WebSocket {
	root, cancel := context.WithCancel(context.Background())
	return &WebSocket{
		url:            url,
		state:          WSStateDisconnected,
		maxReconnect:   maxReconnect,
		reconnectDelay: reconnectDelay,
		pingInterval:   30 * time.Second,
		stopCh:         make(chan struct{}),
		root:           root,
		cancel:         cancel,
	}
}

// SetHeaderProvider injects handshake headers. Call before Connect.
func (ws *WebSocket) SetHeaderProvider(h HeaderProvider) { ws.headers = h }

func (ws *WebSocket) State() WebSocketState {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.state
}

func (ws *WebSocket) Connected() bool { return ws.State() == WSStateConnected }

func (ws *WebSocket) Connect(ctx context.Context) error {
	switch ws.State() {
	case WSStateConnected, WSStateConnecting:
		return nil
	}
	ws.setState(WSStateConnecting)
	if err := ws.dial(ctx); err != nil {
		ws.setState(WSStateFailed)
		ws.reconnect()
		return err
	}
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) error {
	dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(dctx, ws.url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.buildHeaders(),
	})
	if err != nil {
		return err
	}
	ws.mu.Lock()
	ws.conn = conn
	ws.mu.Unlock()
	ws.setState(WSStateConnected)

	ws.wg.Add(2)
	go ws.listen(conn)
	go ws.pingLoop(conn)
	return nil
}

func (ws *WebSocket) listen(conn *websocket.Conn) {
	defer ws.wg.Done()
	for {
		var msg Message
		if err := wsjson.Read(ws.root, conn, &msg); err != nil {
			if ws.stopping() {
				return
			}
			obslog.L().Warn("iris_ws_read_error", zap.Error(err))
			ws.drop(conn, "read failure")
			return
		}
		ws.cbMu.RLock()
		cbs := append([]callbackEntry(nil), ws.msgCbs...)
		ws.cbMu.RUnlock()
		for _, cb := range cbs {
			cb.fn(&msg)
		}
	}
}

func (ws *WebSocket) pingLoop(conn *websocket.Conn) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ws.stopCh:
			return
		case <-t.C:
		}
		if ws.current() != conn {
			return
		}
		ctx, cancel := context.WithTimeout(ws.root, 3*time.Second)
		err := conn.Ping(ctx)
		cancel()
		if err == nil {
			failures = 0
			continue
		}
		if failures++; failures >= 2 {
			if !ws.stopping() {
				ws.drop(conn, "ping failure")
			}
			return
		}
	}
}

// drop closes conn if it is still current and starts reconnecting.
func (ws *WebSocket) drop(conn *websocket.Conn, reason string) {
	ws.mu.Lock()
	if ws.conn != conn {
		ws.mu.Unlock()
		return
	}
	ws.conn = nil
	ws.mu.Unlock()
	_ = conn.Close(websocket.StatusGoingAway, reason)
	ws.setState(WSStateDisconnected)
	ws.reconnect()
}

func (ws *WebSocket) reconnect() {
	if ws.maxReconnect <= 0 || ws.stopping() {
		return
	}
	ws.setState(WSStateReconnecting)
	go func() {
		for attempt := 1; attempt <= ws.maxReconnect; attempt++ {
			wait := ws.reconnectDelay
			if wait <= 0 {
				wait = backoff(attempt)
			}
			select {
			case <-ws.stopCh:
				return
			case <-time.After(wait):
			}
			if err := ws.dial(ws.root); err != nil {
				obslog.L().Warn("iris_ws_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			return
		}
		ws.setState(WSStateFailed)
	}()
}

func (ws *WebSocket) current() *websocket.Conn {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.conn
}

// WriteJSON sends one frame; writers are serialised.
func (ws *WebSocket) WriteJSON(ctx context.Context, v any) error {
	conn := ws.current()
	if conn == nil || !ws.Connected() {
		return ErrNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	ws.wmu.Lock()
	defer ws.wmu.Unlock()
	return wsjson.Write(ctx, conn, v)
}

func (ws *WebSocket) OnMessage(cb MessageCallback) int {
	ws.cbMu.Lock()
	defer ws.cbMu.Unlock()
	ws.nextID++
	ws.msgCbs = append(ws.msgCbs, callbackEntry{id: ws.nextID, fn: cb})
	return ws.nextID
}

func (ws *WebSocket) RemoveMessageCallback(id int) {
	ws.cbMu.Lock()
	defer ws.cbMu.Unlock()
	for i, cb := range ws.msgCbs {
		if cb.id == id {
			ws.msgCbs = append(ws.msgCbs[:i], ws.msgCbs[i+1:]...)
			return
		}
	}
}

func (ws *WebSocket) OnStateChange(cb StateCallback) int {
	ws.cbMu.Lock()
	defer ws.cbMu.Unlock()
	ws.nextID++
	ws.stateCbs = append(ws.stateCbs, stateEntry{id: ws.nextID, fn: cb})
	return ws.nextID
}

func (ws *WebSocket) RemoveStateCallback(id int) {
	ws.cbMu.Lock()
	defer ws.cbMu.Unlock()
	for i, cb := range ws.stateCbs {
		if cb.id == id {
			ws.stateCbs = append(ws.stateCbs[:i], ws.stateCbs[i+1:]...)
			return
		}
	}
}

func (ws *WebSocket) setState(s WebSocketState) {
	ws.mu.Lock()
	ws.state = s
	ws.mu.Unlock()

	ws.cbMu.RLock()
	cbs := append([]stateEntry(nil), ws.stateCbs...)
	ws.cbMu.RUnlock()
	for _, cb := range cbs {
		cb.fn(s)
	}
}

func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })
	ws.mu.Lock()
	conn := ws.conn
	ws.conn = nil
	ws.mu.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		ws.cancel()
		ws.setState(WSStateDisconnected)
		return nil
	}
}

func (ws *WebSocket) stopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) buildHeaders() http.Header {
	hdr := http.Header{}
	if ws.headers == nil {
		return hdr
	}
	for k, v := range ws.headers() {
		if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			hdr.Set(k, v)
		}
	}
	return hdr
}

var _ WSClient = (*WebSocket)(nil)
