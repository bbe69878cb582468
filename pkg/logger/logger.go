package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	LevelCritical = slog.Level(12)
)

type Logger interface {
	Debug(message string, args ...any)
	Info(message string, args ...any)
	Warn(message string, args ...any)
	Error(message string, args ...any)
	Critical(message string, args ...any)
	BusinessError(message string, err error, args ...any)
	InternalError(message string, err error, args ...any)
	With(args ...any) Logger
}

// Config mirrors the ENV, LOG_LEVEL and LOG_FORMAT settings.
type Config struct {
	Env    string
	Level  string
	Format string
}

var levelNames = map[string]slog.Level{
	"debug":    slog.LevelDebug,
	"info":     slog.LevelInfo,
	"warn":     slog.LevelWarn,
	"warning":  slog.LevelWarn,
	"error":    slog.LevelError,
	"critical": LevelCritical,
	"fatal":    LevelCritical,
}

type structured struct {
	base *slog.Logger
}

// NewFromEnv is used before configuration is loaded. Logs go to stderr so
// command output on stdout stays machine readable.
func NewFromEnv() Logger {
	return NewFromConfig(Config{
		Env:    os.Getenv("ENV"),
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	}, os.Stderr)
}

func NewFromConfig(cfg Config, output io.Writer) Logger {
	return New(output, cfg.level(), cfg.format())
}

// NewNop returns a logger that drops everything.
func NewNop() Logger {
	return New(io.Discard, LevelCritical+1, "text")
}

func New(output io.Writer, level slog.Level, format string) Logger {
	options := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: renameCritical,
	}

	var handler slog.Handler = slog.NewTextHandler(output, options)
	if normalize(format) == "json" {
		handler = slog.NewJSONHandler(output, options)
	}
	return &structured{base: slog.New(handler)}
}

// Component tags every record with the subsystem that emitted it.
func Component(log Logger, name string) Logger {
	if log == nil {
		return NewNop()
	}
	return log.With("component", name)
}

func (l *structured) Debug(message string, args ...any) { l.base.Debug(message, args...) }
func (l *structured) Info(message string, args ...any)  { l.base.Info(message, args...) }
func (l *structured) Warn(message string, args ...any)  { l.base.Warn(message, args...) }
func (l *structured) Error(message string, args ...any) { l.base.Error(message, args...) }

func (l *structured) Critical(message string, args ...any) {
	l.base.Log(context.Background(), LevelCritical, message, args...)
}

// BusinessError logs expected failures (offline, not found, rejected) at warn.
func (l *structured) BusinessError(message string, err error, args ...any) {
	l.logErr(slog.LevelWarn, message, err, args)
}

// InternalError logs failures of our own components at error.
func (l *structured) InternalError(message string, err error, args ...any) {
	l.logErr(slog.LevelError, message, err, args)
}

func (l *structured) With(args ...any) Logger {
	return &structured{base: l.base.With(args...)}
}

func (l *structured) logErr(level slog.Level, message string, err error, args []any) {
	if err == nil {
		return
	}
	l.base.Log(context.Background(), level, message, append([]any{"err", err}, args...)...)
}

func (c Config) level() slog.Level {
	// info and unknown levels both follow ENV.
	name := normalize(c.Level)
	if level, ok := levelNames[name]; ok && name != "info" {
		return level
	}
	if normalize(c.Env) == "development" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func (c Config) format() string {
	switch format := normalize(c.Format); format {
	case "json", "text":
		return format
	default:
		return "json"
	}
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func renameCritical(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key != slog.LevelKey {
		return attr
	}
	if level, ok := attr.Value.Any().(slog.Level); ok && level == LevelCritical {
		attr.Value = slog.StringValue("CRITICAL")
	}
	return attr
}
