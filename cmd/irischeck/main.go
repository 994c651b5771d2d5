// irischeck probes the Iris bridge with the bot's own config: GET /config, then a short
// WebSocket session that prints incoming chat events.
package main

import (
    "context"
    "fmt"
    "log"
    "os"
    "time"

    appcfg "github.com/park285/Cheese-Janggi/internal/config"
    "github.com/park285/Cheese-Janggi/internal/irisfast"
)

func main() {
    cfg, err := appcfg.Load()
    if err != nil {
        log.Fatalf("config error: %v", err)
    }

    client := irisfast.NewClient(cfg.IrisBaseURL,
        irisfast.WithHeaderProvider(cfg.Headers),
        irisfast.WithTimeout(8*time.Second),
    )

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    ic, err := client.GetConfig(ctx)
    if err != nil {
        log.Printf("/config error: %v", err)
    } else {
        log.Printf("/config ok: bot=%s port=%d polling=%d rate=%d endpoint=%s", ic.BotName, ic.BotHTTPPort, ic.DBPollingRate, ic.MessageSendRate, ic.WebServerEndpoint)
    }

    window := 10 * time.Second
    if v := os.Getenv("IRISCHECK_WINDOW"); v != "" {
        if d, err := time.ParseDuration(v); err == nil && d > 0 {
            window = d
        }
    }

    ws := irisfast.NewWebSocket(cfg.IrisWSURL, 0, time.Second)
    ws.SetHeaderProvider(cfg.Headers)
    ws.OnStateChange(func(state irisfast.WebSocketState) {
        log.Printf("WS state: %s", state)
    })
    ws.OnMessage(func(msg *irisfast.Message) {
        from := msg.SenderName()
        if from == "" {
            from = "?"
        }
        fmt.Printf("WS msg room=%s from=%s user=%s text=%q\n", msg.Room, from, msg.UserID(), msg.Msg)
    })

    cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer ccancel()
    if err := ws.Connect(cctx); err != nil {
        log.Printf("WS connect error: %v", err)
        return
    }

    t := time.NewTimer(window)
    <-t.C

    _ = ws.Close(context.Background())
}
