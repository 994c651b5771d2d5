package config

import (
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("IRIS_BASE_URL", " http://iris:3000 ")
	t.Setenv("IRIS_WS_URL", "ws://iris:3000/ws")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.IrisBaseURL != "http://iris:3000" {
		t.Fatalf("base url not trimmed: %q", cfg.IrisBaseURL)
	}
	if cfg.BotPrefix != "!장기" || cfg.IrisEgress != "http" {
		t.Fatalf("prefix=%q egress=%q", cfg.BotPrefix, cfg.IrisEgress)
	}
	if cfg.RoomTTL != 24*time.Hour || cfg.HistoryLimit != 10 {
		t.Fatalf("ttl=%v limit=%d", cfg.RoomTTL, cfg.HistoryLimit)
	}
	if cfg.Log.Level != "info" || !cfg.Log.Console || cfg.Log.ToFile {
		t.Fatalf("log = %+v", cfg.Log)
	}
	if !cfg.RoomAllowed("anything") {
		t.Fatalf("empty allow-list should allow every room")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ALLOWED_ROOMS", "room-a, ,room-b")
	t.Setenv("JANGGI_ROOM_TTL", "90m")
	t.Setenv("IRIS_EGRESS", "AUTO")
	t.Setenv("X_USER_ID", "bot")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.AllowedRooms) != 2 || !cfg.RoomAllowed("room-b") || cfg.RoomAllowed("room-c") {
		t.Fatalf("allowed rooms = %q", cfg.AllowedRooms)
	}
	if cfg.RoomTTL != 90*time.Minute || cfg.IrisEgress != "auto" {
		t.Fatalf("ttl=%v egress=%q", cfg.RoomTTL, cfg.IrisEgress)
	}
	if h := cfg.Headers(); h["X-User-Id"] != "bot" || len(h) != 1 {
		t.Fatalf("headers = %v", h)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("IRIS_BASE_URL", "")
	t.Setenv("IRIS_WS_URL", "")
	t.Setenv("REDIS_URL", "")
	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "REDIS_URL") || !strings.Contains(err.Error(), "IRIS_WS_URL") {
		t.Fatalf("err = %v", err)
	}

	setRequired(t)
	t.Setenv("JANGGI_HISTORY_LIMIT", "ten")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("bad int: %v", err)
	}

	t.Setenv("JANGGI_HISTORY_LIMIT", "5")
	t.Setenv("IRIS_EGRESS", "pigeon")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "IRIS_EGRESS") {
		t.Fatalf("bad egress: %v", err)
	}
}
