// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gralloc

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record and reports every level disabled, so
// lifecycle logging on the buffer paths costs one atomic load when unused.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// current is read on every allocate, import, free, lock and unlock.
var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(newNopLogger())
}

// SetLogger routes gralloc diagnostics to l. A nil l silences them again,
// which is also the state of a fresh process. It may be called at any time,
// including while other goroutines hold locks on buffers.
//
// Records are emitted at three levels:
//   - Debug: one record per buffer event, keyed by buffer id
//     ("buffer allocated", "buffer imported", "buffer locked", ...)
//   - Info: device creation with its limits
//   - Warn: failed batch allocations that were rolled back, and backing
//     memory that could not be released
//
// To follow buffer traffic on stderr:
//
//	gralloc.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	current.Store(l)
}

// Logger returns the logger set by SetLogger, or a silent one.
func Logger() *slog.Logger {
	return current.Load()
}
