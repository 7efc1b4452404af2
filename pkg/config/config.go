package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvAddr         = "EVERYONEDRAW_ADDR"
	EnvStore        = "EVERYONEDRAW_STORE"
	EnvRedisAddr    = "EVERYONEDRAW_REDIS_ADDR"
	EnvRedisChannel = "EVERYONEDRAW_REDIS_CHANNEL"
	EnvServer       = "EVERYONEDRAW_SERVER"
	EnvDebounce     = "EVERYONEDRAW_DEBOUNCE"
)

// Load reads a .env file from the working directory if one exists. Variables already set in the environment win.
func Load(files ...string) error {
	if err := godotenv.Load(files...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	slog.Info("Successfully loaded environment variables")
	return nil
}

// String returns the variable v or def when it is unset or empty.
func String(v, def string) string {
	if s := os.Getenv(v); s != "" {
		return s
	}
	return def
}

// Duration parses v with time.ParseDuration, falling back to def when unset or malformed.
func Duration(v string, def time.Duration) time.Duration {
	s := os.Getenv(v)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		slog.Warn("ignoring malformed duration", "var", v, "value", s, "err", err)
		return def
	}
	return d
}

func Bool(v string, def bool) bool {
	s := os.Getenv(v)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		slog.Warn("ignoring malformed bool", "var", v, "value", s, "err", err)
		return def
	}
	return b
}

// SetupLogging installs the default slog handler: text by default, JSON when asked.
func SetupLogging(json bool, level slog.Level) {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
		return
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
}
