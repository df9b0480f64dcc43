package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/offlinefirst/keymapd/pkg/config"
)

// timeLayout keeps milliseconds, which matter when reading keystroke traces.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Options describe how to configure a logger instance.
type Options struct {
	Level  string
	Format string
	Output io.Writer
	// LevelVar, when set, receives the parsed level and stays attached to
	// the handler so the level can be changed while running.
	LevelVar *slog.LevelVar
}

// New creates a structured logger backed by Go's slog package.
func New(opts Options) (*slog.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	levelVar := opts.LevelVar
	if levelVar == nil {
		levelVar = new(slog.LevelVar)
	}
	levelVar.Set(lvl)

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	handlerOpts := slog.HandlerOptions{
		Level:       levelVar,
		ReplaceAttr: replaceTimeAttr,
	}

	format, err := config.NormalizeFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(out, &handlerOpts)
	default:
		handler = slog.NewTextHandler(out, &handlerOpts)
	}

	return slog.New(handler), nil
}

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	normalized, err := config.NormalizeLogLevel(level)
	if err != nil {
		return 0, err
	}

	switch normalized {
	case "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unhandled log level %q", normalized)
	}
}

// ToggleDebug flips levelVar between debug and base and returns the new level.
func ToggleDebug(levelVar *slog.LevelVar, base slog.Level) slog.Level {
	next := slog.LevelDebug
	if levelVar.Level() == slog.LevelDebug {
		next = base
	}
	levelVar.Set(next)
	return next
}

func replaceTimeAttr(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key == slog.TimeKey && attr.Value.Kind() == slog.KindTime {
		attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(timeLayout))
	}
	return attr
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
