// Package errs defines the error taxonomy shared by every component of the
// radar ingestion node: Transport, Framing, Protocol, Configuration, and
// Internal. Each class is a sentinel usable with errors.Is so callers can
// branch on error category without string matching, the way the rest of
// this codebase distinguishes recoverable parse failures from fatal ones.
package errs

import "errors"

// Class identifies which of the five error categories an error belongs to.
type Class int

const (
	// ClassTransport covers socket-level failures (bind, read, write).
	ClassTransport Class = iota
	// ClassFraming covers header mismatches, truncated packets, bad CRCs.
	ClassFraming
	// ClassProtocol covers inconsistent counters or flags between frames.
	ClassProtocol
	// ClassConfiguration covers bad input discovered at startup.
	ClassConfiguration
	// ClassInternal covers broken algorithmic invariants; treated as bugs.
	ClassInternal
)

func (c Class) String() string {
	switch c {
	case ClassTransport:
		return "Transport"
	case ClassFraming:
		return "Framing"
	case ClassProtocol:
		return "Protocol"
	case ClassConfiguration:
		return "Configuration"
	case ClassInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Sentinels usable with errors.Is to test the class of a wrapped error.
var (
	ErrTransport     = errors.New("transport error")
	ErrFraming       = errors.New("framing error")
	ErrProtocol      = errors.New("protocol error")
	ErrConfiguration = errors.New("configuration error")
	ErrInternal      = errors.New("internal error")
)

func sentinelFor(c Class) error {
	switch c {
	case ClassTransport:
		return ErrTransport
	case ClassFraming:
		return ErrFraming
	case ClassProtocol:
		return ErrProtocol
	case ClassConfiguration:
		return ErrConfiguration
	default:
		return ErrInternal
	}
}

// Error wraps an underlying cause with a taxonomy Class and a stable Code
// (e.g. "CrcMismatch", "FrameUnderrun") used in logs and counters.
type Error struct {
	Class Class
	Code  string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Class.String() + ": " + e.Code
	}
	return e.Class.String() + ": " + e.Code + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, errs.ErrFraming) etc. to match any *Error whose
// Class corresponds to the sentinel target.
func (e *Error) Is(target error) bool {
	return target == sentinelFor(e.Class)
}

// New constructs a taxonomy error with the given class and stable code,
// optionally wrapping an underlying cause.
func New(class Class, code string, cause error) *Error {
	return &Error{Class: class, Code: code, Err: cause}
}

// Transport, Framing, Protocol, Configuration, and Internal are
// constructors for the five taxonomy classes, named to read naturally at
// call sites: errs.Framing("CrcMismatch", err).
func Transport(code string, cause error) *Error { return New(ClassTransport, code, cause) }
func Framing(code string, cause error) *Error { return New(ClassFraming, code, cause) }
func Protocol(code string, cause error) *Error { return New(ClassProtocol, code, cause) }
func Configuration(code string, cause error) *Error { return New(ClassConfiguration, code, cause) }
func Internal(code string, cause error) *Error { return New(ClassInternal, code, cause) }
