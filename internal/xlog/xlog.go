// Package xlog wraps log/slog with a compact handler in the shape used
// elsewhere in the emulator corpus for CPU/runtime tracing: a single
// mutex-guarded writer, a short level tag, and one line per record.
// Compile/trap/debugger events all flow through a *Logger so an
// embedder can redirect or silence them without touching call sites.
package xlog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler is a slog.Handler that writes one compact line per record.
type Handler struct {
	out   io.Writer
	attrs []slog.Attr
	group string
	mu    *sync.Mutex
	level slog.Leveler
}

// NewHandler returns a Handler writing to out at or above level.
func NewHandler(out io.Writer, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{out: out, mu: &sync.Mutex{}, level: level}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	n := *h
	n.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &n
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	n := *h
	n.group = name
	return &n
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	parts := []string{r.Time.Format("15:04:05.000"), tag(r.Level), r.Message}
	for _, a := range h.attrs {
		parts = append(parts, a.String())
	}
	r.Attrs(func(a slog.Attr) bool {
		parts = append(parts, a.String())
		return true
	})
	line := strings.Join(parts, " ") + "\n"

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, line)
	return err
}

func tag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERR"
	case l >= slog.LevelWarn:
		return "WRN"
	case l >= slog.LevelInfo:
		return "INF"
	default:
		return "DBG"
	}
}

// Default returns a *slog.Logger writing to stderr at Info level, the
// logger used when no embedder-supplied logger is configured.
func Default() *slog.Logger {
	return slog.New(NewHandler(os.Stderr, slog.LevelInfo))
}
