package payment

import "fmt"

// ValidationError rejects bad input before any network call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Message)
}

func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

// GatewayError wraps a payment-gateway failure: non-2xx responses,
// timeouts, and malformed bodies all land here. Message carries the
// gateway's own message when one was returned.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("gateway: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("gateway: %s", e.Message)
}

// StoreError marks a booking-store write failure that happened after a
// gateway step succeeded. The gateway side is never rolled back for it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
