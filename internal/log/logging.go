// Package log builds the process slog.Logger.
//
// Without a log file, records below error go to stdout and errors to
// stderr. With a log file, everything is written to the file and mirrored
// to stderr.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace is below Debug; raw snapshots are logged at this level.
const LevelTrace slog.Level = -8

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Trace logs at LevelTrace.
func Trace(logger *slog.Logger, msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// MultiHandler passes every record to all of its handlers.
type MultiHandler []slog.Handler

func (m MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m {
		if h.Enabled(ctx, r.Level) {
			_ = h.Handle(ctx, r.Clone())
		}
	}
	return nil
}

func (m MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m MultiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m MultiHandler) each(fn func(slog.Handler) slog.Handler) MultiHandler {
	out := make(MultiHandler, len(m))
	for i, h := range m {
		out[i] = fn(h)
	}
	return out
}

// LevelFilter forwards only the levels accepted by Pass.
type LevelFilter struct {
	Pass    func(slog.Level) bool
	Handler slog.Handler
}

func (f LevelFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return f.Pass(level) && f.Handler.Enabled(ctx, level)
}

func (f LevelFilter) Handle(ctx context.Context, r slog.Record) error {
	if !f.Pass(r.Level) {
		return nil
	}
	return f.Handler.Handle(ctx, r)
}

func (f LevelFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return LevelFilter{Pass: f.Pass, Handler: f.Handler.WithAttrs(attrs)}
}

func (f LevelFilter) WithGroup(name string) slog.Handler {
	return LevelFilter{Pass: f.Pass, Handler: f.Handler.WithGroup(name)}
}

// NewHandler returns the console handler pair writing to out and errOut.
func NewHandler(out, errOut io.Writer, level slog.Level) slog.Handler {
	return MultiHandler{
		LevelFilter{
			Pass:    func(l slog.Level) bool { return l < slog.LevelError },
			Handler: slog.NewTextHandler(out, &slog.HandlerOptions{Level: level, ReplaceAttr: levelNames}),
		},
		LevelFilter{
			Pass:    func(l slog.Level) bool { return l >= slog.LevelError },
			Handler: slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: slog.LevelError}),
		},
	}
}

// SetupLogger builds the logger for the given level and optional file.
func SetupLogger(logLevel, logFile string) (*slog.Logger, []io.Closer, error) {
	level := ParseLevel(logLevel)
	if logFile == "" {
		return slog.New(NewHandler(os.Stdout, os.Stderr, level)), nil, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	opts := &slog.HandlerOptions{Level: level, ReplaceAttr: levelNames}
	h := MultiHandler{
		slog.NewTextHandler(os.Stderr, opts),
		slog.NewTextHandler(f, opts),
	}
	return slog.New(h), []io.Closer{f}, nil
}

func levelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}
