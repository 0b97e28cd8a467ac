package rlog

import "testing"

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...any) { called = true })
	Logf("test message")
	if !called {
		t.Error("custom logger was not called")
	}

	SetLogger(nil)
	called = false
	Logf("test message")
	if called {
		t.Error("no-op logger should not call the previous callback")
	}
}

func TestLogfDefaultNotNil(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should not be nil by default")
	}
}

func TestDebugGate(t *testing.T) {
	original := Logf
	defer func() { Logf = original; SetDebug(false) }()

	var lines []string
	SetLogger(func(format string, v ...any) { lines = append(lines, format) })

	SetDebug(false)
	Debugf("should not appear")
	if len(lines) != 0 {
		t.Errorf("expected no debug output while disabled, got %v", lines)
	}

	SetDebug(true)
	if !DebugEnabled() {
		t.Error("DebugEnabled should report true after SetDebug(true)")
	}
	Debugf("should appear")
	if len(lines) != 1 {
		t.Errorf("expected one debug line, got %v", lines)
	}
}
