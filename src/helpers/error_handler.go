package helpers

import (
	"errors"
	"fmt"
	"time"

	"traffic-observer/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type ObserverError struct {
	Message string
	Cause   error
}

func (e *ObserverError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ObserverError) Unwrap() error {
	return e.Cause
}

// Error taxonomy: transport errors are retried locally, protocol errors drop
// the offending record, command errors surface to the user, auth errors force
// re-authentication and tear the session down.
type TransportError struct{ ObserverError }
type ProtocolError struct{ ObserverError }
type CommandError struct{ ObserverError }
type AuthError struct{ ObserverError }
type DatabaseError struct{ ObserverError }

// -----------------------------------------------------------------------------

func NewTransportError(message string, cause error) *TransportError {
	return &TransportError{ObserverError{Message: message, Cause: cause}}
}

func NewProtocolError(message string, cause error) *ProtocolError {
	return &ProtocolError{ObserverError{Message: message, Cause: cause}}
}

func NewCommandError(message string, cause error) *CommandError {
	return &CommandError{ObserverError{Message: message, Cause: cause}}
}

func NewAuthError(message string, cause error) *AuthError {
	return &AuthError{ObserverError{Message: message, Cause: cause}}
}

func NewDatabaseError(message string, cause error) *DatabaseError {
	return &DatabaseError{ObserverError{Message: message, Cause: cause}}
}

// -----------------------------------------------------------------------------

// IsAuthError reports whether err is (or wraps) a fatal credential error.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// -----------------------------------------------------------------------------

// IsCommandError reports whether err is a backend command rejection.
func IsCommandError(err error) bool {
	var ce *CommandError
	return errors.As(err, &ce)
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, log *logger.Logger, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		// Auth failures are fatal; retrying with the same credential cannot help.
		if IsAuthError(err) {
			return err
		}

		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return &TransportError{ObserverError{Message: fmt.Sprintf("%s failed after %d attempts", operation, maxRetries), Cause: lastErr}}
}
