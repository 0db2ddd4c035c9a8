// Package logging builds the CLI's slog logger: a terminal handler on
// stderr, optionally fanned out to a rotated log file.
package logging

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation configures log file rotation.
type Rotation struct {
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultRotation returns the rotation used when none is configured.
func DefaultRotation() Rotation {
	return Rotation{
		MaxSize:    128,
		MaxBackups: 5,
		MaxAge:     16,
	}
}

// Config selects the handlers of the logger.
type Config struct {
	Debug    bool
	JSON     bool      // JSON instead of text on the terminal
	File     string    // optional log file, always JSON
	Terminal io.Writer // defaults to os.Stderr
	Rotation *Rotation // defaults to DefaultRotation
}

// New returns the logger for cfg. Close the returned closer to flush and
// release the log file.
func New(cfg Config) (*slog.Logger, io.Closer) {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	terminal := cfg.Terminal
	if terminal == nil {
		terminal = os.Stderr
	}

	var handlers []slog.Handler
	if cfg.JSON {
		handlers = append(handlers, slog.NewJSONHandler(terminal, &slog.HandlerOptions{Level: level}))
	} else {
		handlers = append(handlers, slog.NewTextHandler(terminal, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				// Remove time and level from terminal output
				if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
					return slog.Attr{}
				}
				return a
			},
		}))
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		rotation := DefaultRotation()
		if cfg.Rotation != nil {
			rotation = *cfg.Rotation
		}
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    rotation.MaxSize,
			MaxBackups: rotation.MaxBackups,
			MaxAge:     rotation.MaxAge,
			Compress:   rotation.Compress,
		}
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
		closer = file
	}

	return slog.New(slogmulti.Fanout(handlers...)), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
