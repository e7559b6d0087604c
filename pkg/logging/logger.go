// Package logging configures the gateway's zerolog output.
//
// The gateway logs at four levels:
//
//	debug  cache hits, writes and admission rejections; cold-start outcomes;
//	       feedback gate decisions; per-request access lines
//	info   startup, Redis connection, shutdown; retries that succeeded
//	warn   degraded paths: cache store errors, upstream without payload,
//	       feedback not queued, exhausted retries
//	error  failed upstream predictions and recovered feedback panics
//
// Every line carries deployment and version when configured; request-scoped
// lines add component and puid.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a level name as read from LOG_LEVEL.
type LogLevel string

// Accepted LOG_LEVEL values. "warning" is read as warn; anything else
// falls back to info.
const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty switches from JSON lines to zerolog's console writer.
	Pretty bool

	// Output defaults to os.Stderr.
	Output io.Writer

	// Deployment and Version are attached to every line when set.
	Deployment string
	Version    string
}

// DefaultConfig logs JSON at info to stderr.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Output: os.Stderr}
}

// Setup builds the root logger, installs it as zerolog's global logger and
// sets the global level.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.Deployment != "" {
		ctx = ctx.Str("deployment", cfg.Deployment)
	}
	if cfg.Version != "" {
		ctx = ctx.Str("version", cfg.Version)
	}

	log.Logger = ctx.Logger()
	return log.Logger
}

func parseLevel(level LogLevel) zerolog.Level {
	name := LogLevel(strings.ToLower(strings.TrimSpace(string(level))))
	if name == "warning" {
		name = LevelWarn
	}

	switch name {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	}
	return zerolog.InfoLevel
}

// NewLogger derives a logger for one gateway component from the global
// logger.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// WithPUID returns logger annotated with a correlation id.
func WithPUID(logger zerolog.Logger, puid string) zerolog.Logger {
	if puid == "" {
		return logger
	}
	return logger.With().Str("puid", puid).Logger()
}
