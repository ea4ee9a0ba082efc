// services/availability/availability.go
package availability

import (
	"context"
	"fmt"
	"time"
)

// ValidationError rejects a bad time window before the oracle is asked.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Message)
}

// Checker answers "how many workers are free for this service in this
// window". It owns no state and never caches across windows:
// availability is point-in-time and window-specific, so every window
// change is a fresh oracle call.
type Checker struct {
	Oracle Oracle
	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewChecker(oracle Oracle) *Checker {
	return &Checker{Oracle: oracle, Now: time.Now}
}

// Check validates the window and queries the oracle. An oracle failure
// is returned as an error, never as a silent zero, so callers can tell
// "truly zero available" from "could not determine".
func (c *Checker) Check(ctx context.Context, providerServiceID string, start, end time.Time) (int, error) {
	if providerServiceID == "" {
		return 0, &ValidationError{Message: "missing provider service id"}
	}
	now := c.Now()
	if start.Before(now) {
		return 0, &ValidationError{Message: "start time is in the past"}
	}
	if !start.Before(end) {
		return 0, &ValidationError{Message: "start time must be before end time"}
	}

	count, err := c.Oracle.FreeWorkers(ctx, providerServiceID, start, end)
	if err != nil {
		return 0, fmt.Errorf("availability oracle: %w", err)
	}
	if count < 0 {
		count = 0
	}
	return count, nil
}

// GateSubmission rejects a booking submission whose requested worker
// count exceeds the last known availability for the current window.
func GateSubmission(requestedWorkers, lastKnownAvailable int) error {
	if requestedWorkers <= 0 {
		return &ValidationError{Message: "worker count must be positive"}
	}
	if requestedWorkers > lastKnownAvailable {
		return &ValidationError{Message: fmt.Sprintf(
			"requested %d workers but only %d available", requestedWorkers, lastKnownAvailable)}
	}
	return nil
}
