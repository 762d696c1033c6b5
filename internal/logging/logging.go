package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Level            string
	Structured       bool
	StructuredFormat string
	IncludePID       bool
	ExtraFields      map[string]string
}

func Configure(cfg Config) *slog.Logger {
	level := parseLevel(cfg.Level)
	var handler slog.Handler
	out := io.Writer(os.Stderr)

	attrs := make([]slog.Attr, 0, len(cfg.ExtraFields)+1)
	for k, v := range cfg.ExtraFields {
		attrs = append(attrs, slog.String(k, v))
	}
	if cfg.IncludePID {
		attrs = append(attrs, slog.Int("pid", os.Getpid()))
	}

	if cfg.Structured {
		if strings.ToLower(cfg.StructuredFormat) == "json" {
			handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
		} else {
			// key=value-ish output
			handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
		}
	} else {
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	}

	if len(attrs) > 0 {
		handler = handler.WithAttrs(attrs)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// FilterHandler wraps h to implement the three-tier severity gating a
// resolver's noerrprint/noserverwarn/debug init flags select between:
// debug-level records (adns__debug) pass only when debug is set,
// warn-level records (adns__warn, one per failed server) are dropped
// when noServerWarn is set, and info-level records (adns__diag's plain
// diagnostics) are dropped when noErrPrint is set. Error-level records
// always pass.
func FilterHandler(h slog.Handler, noErrPrint, noServerWarn, debug bool) slog.Handler {
	return &filterHandler{h: h, noErrPrint: noErrPrint, noServerWarn: noServerWarn, debug: debug}
}

type filterHandler struct {
	h                        slog.Handler
	noErrPrint, noServerWarn bool
	debug                    bool
}

func (f *filterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	switch {
	case level < slog.LevelInfo:
		return f.debug
	case level < slog.LevelWarn:
		return !f.noErrPrint
	case level < slog.LevelError:
		return !f.noServerWarn
	default:
		return true
	}
}

func (f *filterHandler) Handle(ctx context.Context, r slog.Record) error {
	if !f.Enabled(ctx, r.Level) {
		return nil
	}
	return f.h.Handle(ctx, r)
}

func (f *filterHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *f
	cp.h = f.h.WithAttrs(attrs)
	return &cp
}

func (f *filterHandler) WithGroup(name string) slog.Handler {
	cp := *f
	cp.h = f.h.WithGroup(name)
	return &cp
}

func parseLevel(s string) slog.Level {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
