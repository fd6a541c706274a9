package rpheap

import (
	"io"
	"log/slog"
	"sync/atomic"
	"unsafe"
)

// logger is the package-level diagnostic sink. It defaults to discarding
// everything, the same convention hiveexplorer's logger package uses for a
// library that should stay silent unless a host process opts in.
var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// SetLogger installs l as the destination for corruption diagnostics.
// DebugStats returns its counters as a Stats value and does not log them.
// Passing nil restores the discarding default.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger.Store(l)
}

func currentLogger() *slog.Logger {
	return logger.Load()
}

// abortCorrupt logs the offending pointer and header byte, then panics.
// This is the allocator's sole abort path (§7): release/realloc never
// retry or attempt recovery once a header fails validation. A nil logger
// falls back to the package-level default rather than the calling
// Allocator's own (e.g. one set via WithLogger), so every corruption
// report still lands somewhere even outside an Allocator's context.
func abortCorrupt(logger *slog.Logger, ptr unsafe.Pointer, header byte) {
	if logger == nil {
		logger = currentLogger()
	}
	err := &ErrCorruptHeader{Ptr: ptr, Header: header}
	logger.Error("rpheap: corrupt object header, aborting",
		"addr", ptr,
		"header", header,
	)
	panic(err)
}
