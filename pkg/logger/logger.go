// Package logger builds the structured loggers used across the practice
// server and CLI. Everything logs through log/slog; this package picks the
// handler and provides the field helpers shared by all components.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pterm/pterm"
)

// Format selects the output handler.
type Format string

const (
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"

	// FormatText writes logfmt-style lines.
	FormatText Format = "text"

	// FormatPretty writes colourised lines for terminals.
	FormatPretty Format = "pretty"
)

// ParseLevel parses a level name, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Options configures the logger.
type Options struct {
	Output    io.Writer
	Level     slog.Level
	Format    Format
	AddSource bool
}

// DefaultOptions returns sensible defaults for the logger.
func DefaultOptions() Options {
	return Options{
		Output: os.Stdout,
		Level:  slog.LevelInfo,
		Format: FormatJSON,
	}
}

// New creates a logger with the given options.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	var handler slog.Handler
	switch opts.Format {
	case FormatPretty:
		pl := pterm.DefaultLogger.WithWriter(opts.Output).WithLevel(ptermLevel(opts.Level))
		handler = pterm.NewSlogHandler(pl)
	case FormatText:
		handler = slog.NewTextHandler(opts.Output, &slog.HandlerOptions{Level: opts.Level, AddSource: opts.AddSource})
	default:
		handler = slog.NewJSONHandler(opts.Output, &slog.HandlerOptions{Level: opts.Level, AddSource: opts.AddSource})
	}
	return slog.New(handler)
}

func ptermLevel(l slog.Level) pterm.LogLevel {
	switch {
	case l <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case l <= slog.LevelInfo:
		return pterm.LogLevelInfo
	case l <= slog.LevelWarn:
		return pterm.LogLevelWarn
	default:
		return pterm.LogLevelError
	}
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT
// ══════════════════════════════════════════════════════════════════════════════

type ctxKey struct{}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// ══════════════════════════════════════════════════════════════════════════════
// FIELDS
// ══════════════════════════════════════════════════════════════════════════════

func LearnerID(id string) slog.Attr { return slog.String("learner_id", id) }
func ExerciseID(id string) slog.Attr { return slog.String("exercise_id", id) }
func DealID(id string) slog.Attr { return slog.String("deal_id", id) }
func Bid(call string) slog.Attr { return slog.String("bid", call) }
func Email(email string) slog.Attr { return slog.String("email", email) }
func RequestID(id string) slog.Attr { return slog.String("request_id", id) }
func Component(name string) slog.Attr { return slog.String("component", name) }
func Operation(name string) slog.Attr { return slog.String("operation", name) }

// Latency records d in milliseconds.
func Latency(d time.Duration) slog.Attr { return slog.Int64("duration_ms", d.Milliseconds()) }

// Err records err under "error"; a nil error is recorded as empty.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
