package rpheap

import "log/slog"

// Option configures an Allocator at construction time. There is no
// environment-variable transport; every tunable flows through this single
// explicit surface, the idiomatic Go replacement for a C library's
// compile-time/env-var configuration knobs.
type Option func(*Allocator)

// WithLogger installs l as the allocator's diagnostic sink, overriding the
// package-level default installed by SetLogger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Allocator) {
		a.logger = l
	}
}

// WithStatsEnabled toggles whether DebugStats returns live counters or a
// permanently zero-valued Stats. It only has an effect when the binary is
// built with the mallocdebug tag; without that tag DebugStats is always a
// zero-cost no-op regardless of this option.
func WithStatsEnabled(enabled bool) Option {
	return func(a *Allocator) {
		a.statsEnabled = enabled
	}
}
