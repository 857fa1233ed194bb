// Package logger builds the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the logger configuration.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	// File, MaxSizeMB and MaxBackups apply when Output is "file".
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// NewLogger returns a logger writing to output, or to the destination named
// by cfg.Output when output is nil. Unknown levels fall back to info.
func NewLogger(cfg Config, output io.Writer) *slog.Logger {
	if output == nil {
		output = writerFor(cfg)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(output, opts))
	}
	return slog.New(slog.NewTextHandler(output, opts))
}

func writerFor(cfg Config) io.Writer {
	switch cfg.Output {
	case "stderr":
		return os.Stderr
	case "file":
		name := cfg.File
		if name == "" {
			name = "pages-core.log"
		}
		return &lumberjack.Logger{
			Filename:   name,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
	default:
		return os.Stdout
	}
}
