package main

import (
    "context"
    "errors"
    "log"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    appcfg "github.com/park285/omok-server/internal/config"
    "github.com/park285/omok-server/internal/directory"
    "github.com/park285/omok-server/internal/gateway"
    "github.com/park285/omok-server/internal/lobby"
    "github.com/park285/omok-server/internal/msgcat"
    "github.com/park285/omok-server/internal/notify"
    "github.com/park285/omok-server/internal/obslog"
    "github.com/park285/omok-server/internal/render"
    "github.com/park285/omok-server/internal/results"
    "github.com/park285/omok-server/internal/server"
    "go.uber.org/zap"
)

func main() {
    cfg, err := appcfg.Load()
    if err != nil {
        log.Fatalf("config error: %v", err)
    }
    if err := obslog.InitFromEnv(); err != nil {
        log.Fatalf("logger init error: %v", err)
    }
    defer obslog.Sync()
    logger := obslog.L()

    cat, err := msgcat.New(cfg.MessagesDir)
    if err != nil {
        logger.Fatal("messages_load_failed", zap.Error(err))
    }

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    reg := lobby.NewRegistry(lobby.Options{DefaultCapacity: cfg.DefaultRoomCapacity, MaxCapacity: cfg.MaxRoomCapacity})
    hub := gateway.NewHub()
    disp := gateway.NewDispatcher(reg, hub, cat, gateway.Options{MaxRoomCapacity: cfg.MaxRoomCapacity, SinkTimeout: cfg.SinkTimeout})

    deps := server.Deps{PublicDir: cfg.PublicDir, Registry: reg, Sessions: hub}

    // Redis lobby mirror (optional)
    var dir *directory.Store
    if cfg.RedisURL != "" {
        dir, err = directory.Open(ctx, cfg.RedisURL)
        if err != nil {
            logger.Fatal("directory_init_failed", zap.Error(err))
        }
        if err := dir.Reset(ctx); err != nil {
            logger.Warn("directory_reset_failed", zap.Error(err))
        }
        disp.SetLobbyMirror(dir)
        deps.Directory = dir
        go func() {
            if err := dir.Watch(ctx, func(ev directory.Event) {
                logger.Debug("lobby_event", zap.String("op", ev.Op), zap.String("room_id", ev.RoomID))
            }); err != nil {
                logger.Warn("directory_watch_stopped", zap.Error(err))
            }
        }()
    }

    // Postgres results ledger (optional)
    var repo *results.Repository
    if cfg.DatabaseURL != "" {
        repo, err = results.NewRepository(ctx, cfg.DatabaseURL)
        if err != nil {
            logger.Fatal("ledger_init_failed", zap.Error(err))
        }
        if err := repo.EnsureSchema(ctx); err != nil {
            logger.Fatal("ledger_schema_failed", zap.Error(err))
        }
        disp.AddResultSink(repo)
        deps.Ledger = repo
    }

    // Result webhook (optional)
    if cfg.ResultWebhookURL != "" {
        client := notify.NewClient(cfg.ResultWebhookURL, notify.WithTimeout(cfg.ResultWebhookTimeout))
        disp.AddResultSink(notify.NewNotifier(client, render.NewRenderer(), cat))
    }

    deps.WS = gateway.NewHandler(hub, disp, cat, gateway.HandlerOptions{
        OriginPatterns: cfg.AllowedOrigins,
        SendBuffer:     cfg.SendBuffer,
        IntentRate:     cfg.IntentRate,
        IntentBurst:    cfg.IntentBurst,
    })

    srv := server.New(cfg.Addr(), server.NewMux(deps))
    errCh := make(chan error, 1)
    go func() {
        logger.Info("server_listen", zap.String("addr", cfg.Addr()),
            zap.Bool("directory", dir != nil), zap.Bool("ledger", repo != nil), zap.Bool("webhook", cfg.ResultWebhookURL != ""))
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            errCh <- err
        }
    }()

    select {
    case <-ctx.Done():
        logger.Info("server_shutdown", zap.String("reason", "signal"))
    case err := <-errCh:
        logger.Error("server_failed", zap.Error(err))
    }

    shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    if err := srv.Shutdown(shutdownCtx); err != nil {
        logger.Warn("http_shutdown_error", zap.Error(err))
    }
    hub.CloseAll()
    if err := disp.Close(shutdownCtx); err != nil {
        logger.Warn("sink_flush_incomplete", zap.Error(err))
    }
    if dir != nil {
        _ = dir.Close()
    }
    if repo != nil {
        _ = repo.Close()
    }
    os.Exit(0)
}
