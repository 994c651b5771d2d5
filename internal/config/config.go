package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type AppConfig struct {
	IrisBaseURL string `env:"IRIS_BASE_URL"`
	IrisWSURL   string `env:"IRIS_WS_URL"`
	IrisEgress  string `env:"IRIS_EGRESS" envDefault:"http"`
	EgressDry   bool   `env:"IRIS_EGRESS_DRYRUN"`

	// BotPrefix starts every command, e.g. "!장기 참가 JG-ABC234".
	BotPrefix string `env:"BOT_PREFIX" envDefault:"!장기"`

	XUserID    string `env:"X_USER_ID"`
	XUserEmail string `env:"X_USER_EMAIL"`
	XSessionID string `env:"X_SESSION_ID"`

	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH"`

	AllowedRooms []string `env:"ALLOWED_ROOMS" envSeparator:","`

	RoomTTL      time.Duration `env:"JANGGI_ROOM_TTL" envDefault:"24h"`
	HistoryLimit int           `env:"JANGGI_HISTORY_LIMIT" envDefault:"10"`
	MsgOverride  string        `env:"MSG_OVERRIDE_DIR"`

	Log LogConfig
}

// LogConfig feeds obslog.Init.
type LogConfig struct {
	Level   string `env:"LOG_LEVEL" envDefault:"info"`
	Format  string `env:"LOG_FORMAT" envDefault:"legacy"`
	Console bool   `env:"LOG_TO_CONSOLE" envDefault:"true"`
	ToFile  bool   `env:"LOG_TO_FILE" envDefault:"false"`
	File    string `env:"LOG_FILE" envDefault:"logs/janggi-bot.log"`
	Caller  bool   `env:"LOG_CALLER"`
}

// Load parses the environment and checks the settings the bot cannot start without.
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) normalize() {
	c.IrisBaseURL = strings.TrimSpace(c.IrisBaseURL)
	c.IrisWSURL = strings.TrimSpace(c.IrisWSURL)
	c.BotPrefix = strings.TrimSpace(c.BotPrefix)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.SQLitePath = strings.TrimSpace(c.SQLitePath)
	c.IrisEgress = strings.ToLower(strings.TrimSpace(c.IrisEgress))

	rooms := c.AllowedRooms[:0]
	for _, r := range c.AllowedRooms {
		if r = strings.TrimSpace(r); r != "" {
			rooms = append(rooms, r)
		}
	}
	c.AllowedRooms = rooms
}

func (c *AppConfig) validate() error {
	var errs []error
	if c.IrisBaseURL == "" {
		errs = append(errs, errors.New("IRIS_BASE_URL is required"))
	}
	if c.IrisWSURL == "" {
		errs = append(errs, errors.New("IRIS_WS_URL is required"))
	}
	if c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if c.BotPrefix == "" {
		errs = append(errs, errors.New("BOT_PREFIX must not be blank"))
	}
	switch c.IrisEgress {
	case "http", "ws", "auto":
	default:
		errs = append(errs, fmt.Errorf("IRIS_EGRESS must be http, ws or auto (got %q)", c.IrisEgress))
	}
	if c.RoomTTL <= 0 {
		errs = append(errs, errors.New("JANGGI_ROOM_TTL must be positive"))
	}
	if c.HistoryLimit <= 0 {
		errs = append(errs, errors.New("JANGGI_HISTORY_LIMIT must be positive"))
	}
	return errors.Join(errs...)
}

// RoomAllowed reports whether chat may use the bot. An empty allow-list allows all.
func (c *AppConfig) RoomAllowed(chat string) bool {
	if len(c.AllowedRooms) == 0 {
		return true
	}
	for _, r := range c.AllowedRooms {
		if r == chat {
			return true
		}
	}
	return false
}

// Headers are the X-* identity headers Iris expects on HTTP and WS handshakes.
func (c *AppConfig) Headers() map[string]string {
	h := map[string]string{}
	if c.XUserID != "" {
		h["X-User-Id"] = c.XUserID
	}
	if c.XUserEmail != "" {
		h["X-User-Email"] = c.XUserEmail
	}
	if c.XSessionID != "" {
		h["X-Session-Id"] = c.XSessionID
	}
	return h
}
