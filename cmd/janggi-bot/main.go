package main

import (
    "context"
    "log"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/park285/Cheese-Janggi/internal/adapter/janggipresenter"
    "github.com/park285/Cheese-Janggi/internal/bot"
    appcfg "github.com/park285/Cheese-Janggi/internal/config"
    "github.com/park285/Cheese-Janggi/internal/irisfast"
    "github.com/park285/Cheese-Janggi/internal/janggibuilder"
    "github.com/park285/Cheese-Janggi/internal/obslog"
    "go.uber.org/zap"
)

func main() {
    cfg, err := appcfg.Load()
    if err != nil {
        log.Fatalf("config error: %v", err)
    }
    if err := obslog.Init(obslog.Options{
        Level:   cfg.Log.Level,
        Format:  cfg.Log.Format,
        Console: cfg.Log.Console,
        ToFile:  cfg.Log.ToFile,
        File:    cfg.Log.File,
        Caller:  cfg.Log.Caller,
    }); err != nil {
        log.Fatalf("logger init error: %v", err)
    }
    logger := obslog.L()
    defer func() { _ = logger.Sync() }()

    client := irisfast.NewClient(cfg.IrisBaseURL, irisfast.WithHeaderProvider(cfg.Headers))

    ws := irisfast.NewWebSocket(cfg.IrisWSURL, 5, time.Second)
    ws.SetHeaderProvider(cfg.Headers)
    ws.OnStateChange(func(state irisfast.WebSocketState) {
        logger.Info("ws_state", zap.String("state", string(state)))
    })

    deps, err := janggibuilder.New(cfg, logger)
    if err != nil {
        logger.Fatal("janggi init error", zap.Error(err))
    }

    egress := irisfast.NewEgress(cfg.IrisEgress, cfg.EgressDry, client, ws, logger)
    handler := bot.New(bot.Deps{
        Manager:   deps.Manager,
        Adapter:   deps.Adapter,
        Catalog:   deps.Catalog,
        Presenter: janggipresenter.NewPresenter(egress),
        Prefix:    cfg.BotPrefix,
        Allowed:   cfg.RoomAllowed,
    })

    // WS 루프를 막지 않도록 명령은 고루틴에서 처리
    ws.OnMessage(func(msg *irisfast.Message) {
        if msg == nil || msg.Msg == "" {
            return
        }
        if err := handler.Dispatch(msg); err == nil {
            logger.Debug("command_dispatched", zap.String("chat", msg.Room), zap.String("user_id", msg.UserID()))
        }
    })

    cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    if err := ws.Connect(cctx); err != nil {
        cancel()
        logger.Fatal("ws connect error", zap.Error(err))
    }
    cancel()
    logger.Info("janggi_bot_ready", zap.String("prefix", cfg.BotPrefix), zap.String("egress", cfg.IrisEgress), zap.Int("allowed_rooms", len(cfg.AllowedRooms)))

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
    sig := <-sigCh
    logger.Info("shutdown", zap.String("signal", sig.String()))

    sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer scancel()
    _ = ws.Close(sctx)
    if err := deps.Close(); err != nil {
        logger.Warn("close error", zap.Error(err))
    }
}
