package repositories

import "fmt"

// CounterErrorCode classifies failures from the monotonic counters backing
// order-number sequences and banner view/click tallies.
type CounterErrorCode string

const (
	// CounterErrorUnknown covers failures no other code describes.
	CounterErrorUnknown CounterErrorCode = "counter_unknown"
	// CounterErrorInvalidInput means the counter id or step was rejected.
	CounterErrorInvalidInput CounterErrorCode = "counter_invalid_input"
	// CounterErrorExhausted means the counter hit its configured ceiling and
	// cannot advance.
	CounterErrorExhausted CounterErrorCode = "counter_exhausted"
)

// CounterError carries a machine-readable code alongside the human message so
// the system service can map exhaustion and bad input to distinct API errors.
type CounterError struct {
	Op      string
	Code    CounterErrorCode
	Message string
	Err     error
}

func (e *CounterError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying cause, if any.
func (e *CounterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewCounterError builds a CounterError, defaulting the message to the code
// when the caller leaves it blank.
func NewCounterError(code CounterErrorCode, message string, err error) *CounterError {
	if message == "" {
		message = string(code)
	}
	return &CounterError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
