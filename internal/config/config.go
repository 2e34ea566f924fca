package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	Host      string
	Port      int
	PublicDir string

	DefaultRoomCapacity int
	MaxRoomCapacity     int

	SendBuffer  int
	IntentRate  float64 // intents per second per connection
	IntentBurst int

	AllowedOrigins []string

	RedisURL    string
	DatabaseURL string

	ResultWebhookURL     string
	ResultWebhookTimeout time.Duration

	MessagesDir string
	SinkTimeout time.Duration
}

// Addr is the listen address.
func (c *AppConfig) Addr() string { return net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) }

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		Host:                 "0.0.0.0",
		Port:                 8080,
		PublicDir:            "public",
		DefaultRoomCapacity:  2,
		MaxRoomCapacity:      8,
		SendBuffer:           64,
		IntentRate:           20,
		IntentBurst:          40,
		ResultWebhookTimeout: 5 * time.Second,
		SinkTimeout:          5 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("HOST")); v != "" {
		cfg.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 65535 {
			return nil, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = n
	}
	if v := strings.TrimSpace(os.Getenv("PUBLIC_DIR")); v != "" {
		cfg.PublicDir = v
	}

	cfg.DefaultRoomCapacity = envInt("DEFAULT_ROOM_CAPACITY", cfg.DefaultRoomCapacity)
	cfg.MaxRoomCapacity = envInt("MAX_ROOM_CAPACITY", cfg.MaxRoomCapacity)
	cfg.SendBuffer = envInt("SEND_BUFFER", cfg.SendBuffer)
	cfg.IntentBurst = envInt("INTENT_BURST", cfg.IntentBurst)
	if v := strings.TrimSpace(os.Getenv("INTENT_RATE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.IntentRate = f
		}
	}

	cfg.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.ResultWebhookURL = strings.TrimSpace(os.Getenv("RESULT_WEBHOOK_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	cfg.ResultWebhookTimeout = time.Duration(envInt("RESULT_WEBHOOK_TIMEOUT_SEC", int(cfg.ResultWebhookTimeout/time.Second))) * time.Second
	cfg.SinkTimeout = time.Duration(envInt("SINK_TIMEOUT_SEC", int(cfg.SinkTimeout/time.Second))) * time.Second

	if cfg.MaxRoomCapacity < 2 {
		return nil, errors.New("MAX_ROOM_CAPACITY must be at least 2")
	}
	if cfg.DefaultRoomCapacity < 2 || cfg.DefaultRoomCapacity > cfg.MaxRoomCapacity {
		return nil, fmt.Errorf("DEFAULT_ROOM_CAPACITY must be within [2, %d]", cfg.MaxRoomCapacity)
	}
	if cfg.ResultWebhookURL != "" && !strings.HasPrefix(cfg.ResultWebhookURL, "http://") && !strings.HasPrefix(cfg.ResultWebhookURL, "https://") {
		return nil, errors.New("RESULT_WEBHOOK_URL must be http(s)")
	}

	return cfg, nil
}

// envInt parses a positive integer, keeping def when unset or malformed.
func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
