package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection rejected", ErrConnectionRejected, true},
		{"transport error", ErrTransport, true},
		{"stream ended", ErrStreamEnded, true},
		{"frame decode", ErrFrameDecode, true},
		{"payload decode", ErrPayloadDecode, true},
		{"stream stopped", ErrStreamStopped, true},
		{"wrapped terminal", fmt.Errorf("status 503: %w", ErrConnectionRejected), true},
		{"classified terminal", WrapFatal(ErrFrameDecode, "Consumer", "process", "decode frame"), true},
		{"api error", ErrAPIRequest, false},
		{"connection lost", ErrConnectionLost, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsTerminal(test.err); got != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, got, test.err)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection timeout", ErrConnectionTimeout, true},
		{"connection lost", ErrConnectionLost, true},
		{"rate limited", ErrRateLimited, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"invalid data", ErrInvalidData, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"reset in message", fmt.Errorf("read: connection reset by peer"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsTransient(test.err); got != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, got, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"missing config", ErrMissingConfig, true},
		{"missing credentials", ErrMissingCredentials, true},
		{"terminal stream error", ErrFrameDecode, true},
		{"plain error", errors.New("boom"), false},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsFatal(test.err); got != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, got, test.err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	if Classify(ErrConnectionTimeout) != ErrorTransient {
		t.Error("expected timeout to classify transient")
	}
	if Classify(ErrInvalidConfig) != ErrorFatal {
		t.Error("expected invalid config to classify fatal")
	}
	if Classify(WrapInvalid(errors.New("bad json"), "Decoder", "decode", "parse payload")) != ErrorInvalid {
		t.Error("expected wrapped invalid to classify invalid")
	}
}

func TestWrap(t *testing.T) {
	base := errors.New("underlying failure")
	wrapped := Wrap(base, "Consumer", "Start", "open stream")

	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should match underlying via errors.Is")
	}
	want := "Consumer.Start: open stream failed: underlying failure"
	if wrapped.Error() != want {
		t.Errorf("expected %q, got %q", want, wrapped.Error())
	}
	if Wrap(nil, "Consumer", "Start", "open stream") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrapClassified(t *testing.T) {
	base := errors.New("boom")

	var ce *ClassifiedError
	err := WrapTransient(base, "Bridge", "publish", "nats publish")
	if !errors.As(err, &ce) || ce.Class != ErrorTransient {
		t.Fatal("expected transient classified error")
	}
	if ce.Component != "Bridge" || ce.Operation != "publish" {
		t.Errorf("unexpected context: %+v", ce)
	}
	if !strings.Contains(err.Error(), "nats publish failed") {
		t.Errorf("unexpected message: %s", err.Error())
	}
	if !errors.Is(err, base) {
		t.Error("classified error should unwrap to base")
	}

	if WrapFatal(nil, "a", "b", "c") != nil || WrapInvalid(nil, "a", "b", "c") != nil {
		t.Error("wrapping nil should return nil")
	}
}
