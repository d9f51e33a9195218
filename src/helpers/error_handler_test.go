package helpers

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"traffic-observer/src/logger"
)

// -----------------------------------------------------------------------------

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("connection refused")

	te := NewTransportError("fetching signals", cause)
	if !errors.Is(te, cause) {
		t.Error("transport error should unwrap to its cause")
	}
	if IsAuthError(te) || IsCommandError(te) {
		t.Error("transport error misclassified")
	}

	ae := NewAuthError("token rejected", nil)
	if !IsAuthError(ae) {
		t.Error("auth error not recognized")
	}

	// Classification survives fmt.Errorf wrapping.
	wrapped := fmt.Errorf("during poll: %w", ae)
	if !IsAuthError(wrapped) {
		t.Error("wrapped auth error not recognized")
	}

	ce := NewCommandError("timing out of bounds", nil)
	if !IsCommandError(ce) {
		t.Error("command error not recognized")
	}
}

// -----------------------------------------------------------------------------

func TestRetrySucceedsAfterFailures(t *testing.T) {
	log := logger.NewLogger("ERROR", "test")

	calls := 0
	err := RetryWithBackoff("op", 3, time.Millisecond, log, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

// -----------------------------------------------------------------------------

func TestRetryExhaustionWrapsLastError(t *testing.T) {
	log := logger.NewLogger("ERROR", "test")

	last := errors.New("still down")
	calls := 0
	err := RetryWithBackoff("op", 2, time.Millisecond, log, func() error {
		calls++
		return last
	})
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected transport error, got %T", err)
	}
	if !errors.Is(err, last) {
		t.Error("exhaustion error should wrap the last failure")
	}
}

// -----------------------------------------------------------------------------

func TestRetryStopsOnAuthError(t *testing.T) {
	log := logger.NewLogger("ERROR", "test")

	calls := 0
	err := RetryWithBackoff("op", 5, time.Millisecond, log, func() error {
		calls++
		return NewAuthError("credentials revoked", nil)
	})
	if calls != 1 {
		t.Errorf("auth failure should not be retried, got %d attempts", calls)
	}
	if !IsAuthError(err) {
		t.Errorf("expected auth error back, got %v", err)
	}
}
