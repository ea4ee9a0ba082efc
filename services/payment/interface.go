package payment

import (
	"context"
	"time"

	"snapfix/models"
)

// CheckoutService is the payment-facing surface of the booking flow:
// starting checkout attempts, exposing their saga state, retrying
// capture, and reacting to payment-return events.
type CheckoutService interface {
	Checkout(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, error)
	AttemptState(attemptID string) (SagaState, error)
	RetryCapture(ctx context.Context, attemptID string) (SagaState, []Effect, error)
	ProcessReturn(ctx context.Context) ([]Effect, error)
}

// CancellationService reverses a pending booking.
type CancellationService interface {
	Cancel(ctx context.Context, bookingID int64) error
}

// ReconcileScheduler enqueues the deferred payment reconciliation check
// for a gateway checkout.
type ReconcileScheduler interface {
	ScheduleReconcile(payload models.ReconcilePayload, at time.Time) error
}
