// Package rlog provides the diagnostic logger shared by every component of
// the radar ingestion node. It is a thin, replaceable indirection over the
// standard logger rather than a logging framework: components call Logf and
// Debugf, tests redirect or silence it with SetLogger.
package rlog

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests or production code can redirect or
// mute it.
var Logf func(format string, v ...any) = log.Printf

var debugEnabled atomic.Bool

// SetLogger replaces the package logger. Passing nil sets a no-op logger.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}

// SetDebug toggles whether Debugf lines are emitted. Per-packet CRC and
// framing noise is gated behind this so production runs stay quiet by
// default.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports the current debug gate state.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// Debugf logs at debug severity. It is a no-op unless SetDebug(true) was
// called.
func Debugf(format string, v ...any) {
	if debugEnabled.Load() {
		Logf("[debug] "+format, v...)
	}
}
