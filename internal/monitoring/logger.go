// Package monitoring holds the process-wide diagnostic loggers.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

var trace atomic.Bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetTrace enables or disables per-observation tracing through Tracef.
func SetTrace(enabled bool) {
	trace.Store(enabled)
}

// TraceEnabled reports whether Tracef currently emits anything.
func TraceEnabled() bool {
	return trace.Load()
}

// Tracef logs through Logf when tracing is enabled and is a no-op otherwise.
// Callers on hot paths should still guard expensive argument construction
// with TraceEnabled.
func Tracef(format string, v ...interface{}) {
	if !trace.Load() {
		return
	}
	Logf("[trace] "+format, v...)
}
