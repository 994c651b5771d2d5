// Package janggibuilder assembles the janggi room manager and its collaborators from config.
package janggibuilder

import (
    "errors"
    "fmt"
    "strings"

    "github.com/park285/Cheese-Janggi/internal/adapter/janggipresenter"
    "github.com/park285/Cheese-Janggi/internal/archive"
    "github.com/park285/Cheese-Janggi/internal/config"
    "github.com/park285/Cheese-Janggi/internal/msgcat"
    "github.com/park285/Cheese-Janggi/internal/pvpjanggi"
    "github.com/park285/Cheese-Janggi/internal/render"
    "go.uber.org/zap"
)

type Deps struct {
    Manager  *pvpjanggi.Manager
    Repo     archive.Repository
    Catalog  *msgcat.Catalog
    Renderer render.BoardRenderer
    Adapter  *janggipresenter.Adapter
}

// Close releases the manager (which also closes the attached archive).
func (d *Deps) Close() error {
    if d == nil || d.Manager == nil { return nil }
    return d.Manager.Close()
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
    if cfg == nil {
        return nil, fmt.Errorf("nil config")
    }
    if logger == nil {
        logger = zap.NewNop()
    }

    cat, err := msgcat.New(cfg.MsgOverride)
    if err != nil {
        return nil, fmt.Errorf("load messages: %w", err)
    }

    // Renderer failure is not fatal: rooms still work as text-only.
    renderer, err := render.New()
    if err != nil {
        logger.Warn("board_renderer_disabled", zap.Error(err))
        renderer = nil
    }

    mgr, err := pvpjanggi.NewManager(cfg.RedisURL, pvpjanggi.Options{RoomTTL: cfg.RoomTTL, HistoryLimit: cfg.HistoryLimit})
    if err != nil {
        return nil, fmt.Errorf("init janggi manager: %w", err)
    }

    repo, err := openArchive(cfg, logger)
    if err != nil {
        return nil, errors.Join(err, mgr.Close())
    }
    if repo != nil {
        mgr.AttachRepository(repo)
    }

    return &Deps{
        Manager:  mgr,
        Repo:     repo,
        Catalog:  cat,
        Renderer: renderer,
        Adapter:  janggipresenter.NewAdapter(renderer),
    }, nil
}

// openArchive prefers PostgreSQL, then SQLite. With neither configured, finished games are not kept.
func openArchive(cfg *config.AppConfig, logger *zap.Logger) (archive.Repository, error) {
    switch {
    case strings.TrimSpace(cfg.DatabaseURL) != "":
        repo, err := archive.NewPostgresRepository(cfg.DatabaseURL)
        if err != nil { return nil, fmt.Errorf("init postgres archive: %w", err) }
        logger.Info("archive_backend", zap.String("backend", "postgres"))
        return repo, nil
    case strings.TrimSpace(cfg.SQLitePath) != "":
        repo, err := archive.OpenSQLite(cfg.SQLitePath)
        if err != nil { return nil, fmt.Errorf("init sqlite archive: %w", err) }
        logger.Info("archive_backend", zap.String("backend", "sqlite"), zap.String("path", cfg.SQLitePath))
        return repo, nil
    }
    logger.Warn("archive_backend", zap.String("backend", "none"))
    return nil, nil
}
