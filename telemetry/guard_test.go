package telemetry

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestGuardSuppressesPanic(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("debug", &buf)

	guard(log, "test_op", func() error {
		panic("instrumentation bug")
	})

	if !strings.Contains(buf.String(), "telemetry panic suppressed") {
		t.Errorf("panic not logged: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "instrumentation bug") {
		t.Errorf("panic value not logged: %s", buf.String())
	}
}

func TestGuardSuppressesError(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("debug", &buf)

	guard(log, "test_op", func() error {
		return errors.New("recording failed")
	})

	if !strings.Contains(buf.String(), "telemetry failure suppressed") {
		t.Errorf("error not logged: %s", buf.String())
	}
}

func TestGuardNilLogger(t *testing.T) {
	// Must not panic even with no logger to report to.
	guard(nil, "test_op", func() error { panic("boom") })
	guard(nil, "test_op", func() error { return errors.New("x") })
}

func TestGuardSuccessIsSilent(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("debug", &buf)

	called := false
	guard(log, "test_op", func() error {
		called = true
		return nil
	})

	if !called {
		t.Error("fn was not called")
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected log output: %s", buf.String())
	}
}
