// Package logging provides the structured logging setup shared by every
// focus component. It wraps a single log/slog base handler with a small
// custom handler so that the log level can be changed at runtime.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	globalLevel  = slog.LevelInfo
	handlerMutex sync.RWMutex
)

// SetLevel sets the global log level from a string ("debug", "info", "warn", "error").
func SetLevel(levelStr string) {
	handlerMutex.Lock()
	defer handlerMutex.Unlock()
	globalLevel = ParseLevel(levelStr)
}

// GetLevel returns the current log level as a string.
func GetLevel() string {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	switch globalLevel {
	case slog.LevelDebug:
		return "debug"
	case slog.LevelInfo:
		return "info"
	case slog.LevelWarn:
		return "warn"
	case slog.LevelError:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel parses a string to an slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// levelGateHandler wraps a base handler and re-checks the global level on
// every record, so SetLevel takes effect without rebuilding the logger.
type levelGateHandler struct {
	base slog.Handler
}

// NewHandler wraps base with the global runtime level gate.
func NewHandler(base slog.Handler) slog.Handler {
	return &levelGateHandler{base: base}
}

func (h *levelGateHandler) Enabled(ctx context.Context, level slog.Level) bool {
	handlerMutex.RLock()
	defer handlerMutex.RUnlock()
	return level >= globalLevel && h.base.Enabled(ctx, level)
}

func (h *levelGateHandler) Handle(ctx context.Context, record slog.Record) error {
	handlerMutex.RLock()
	allowed := record.Level >= globalLevel
	handlerMutex.RUnlock()
	if !allowed {
		return nil
	}
	return h.base.Handle(ctx, record)
}

func (h *levelGateHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelGateHandler{base: h.base.WithAttrs(attrs)}
}

func (h *levelGateHandler) WithGroup(name string) slog.Handler {
	return &levelGateHandler{base: h.base.WithGroup(name)}
}

// Init installs a text handler on os.Stderr-equivalent writer as the
// default slog logger, gated by the runtime level.
func Init(levelStr string) {
	SetLevel(levelStr)
	handler := NewHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(slog.New(handler))
}

// For returns a logger scoped to a component, e.g. logging.For("BridgeRegistry").
func For(component string) *slog.Logger {
	return slog.Default().With("component", component)
}
