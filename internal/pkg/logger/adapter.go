package logger

import (
	"io"
	"log/slog"

	"farm_poller/internal/app/port"
)

// slogAdapter implements port.Logger. A nil inner logger routes through the
// package-level functions so that handlers installed later are honoured.
type slogAdapter struct {
	inner *slog.Logger
}

// NewSlogAdapter creates a port.Logger backed by the global logger.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

// NewDiscard returns a port.Logger that drops every record.
func NewDiscard() port.Logger {
	return &slogAdapter{inner: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (a *slogAdapter) Info(msg string, args ...any) {
	if a.inner != nil {
		a.inner.Info(msg, args...)
		return
	}
	Info(msg, args...)
}

func (a *slogAdapter) Debug(msg string, args ...any) {
	if a.inner != nil {
		a.inner.Debug(msg, args...)
		return
	}
	Debug(msg, args...)
}

func (a *slogAdapter) Warn(msg string, args ...any) {
	if a.inner != nil {
		a.inner.Warn(msg, args...)
		return
	}
	Warn(msg, args...)
}

func (a *slogAdapter) Error(msg string, args ...any) {
	if a.inner != nil {
		a.inner.Error(msg, args...)
		return
	}
	Error(msg, args...)
}

// With returns a child logger carrying args.
func (a *slogAdapter) With(args ...any) port.Logger {
	if a.inner != nil {
		return &slogAdapter{inner: a.inner.With(args...)}
	}
	ensureInitialized()
	return &slogAdapter{inner: globalLogger.With(args...)}
}
