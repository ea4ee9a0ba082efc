package payment

import (
	"context"
	"errors"
	"fmt"

	bookingRepo "snapfix/database/repository/booking"
	"snapfix/models"

	"go.uber.org/zap"
)

// CancellationFlow reverses a pending booking: refund whatever was
// captured, then close the booking and its money relationship. Only the
// precondition check can abort the flow; everything after it is
// best-effort, because a refund stuck behind support intervention is
// recoverable while a booking stuck in pending forever is not.
type CancellationFlow struct {
	Gateway Gateway
	Repo    bookingRepo.BookingRepository
	Logger  *zap.Logger
}

func NewCancellationFlow(gateway Gateway, repo bookingRepo.BookingRepository, logger *zap.Logger) *CancellationFlow {
	return &CancellationFlow{Gateway: gateway, Repo: repo, Logger: logger}
}

// Cancel cancels a pending booking. Calling it again after it completed
// is a no-op success, so a double tap cannot double-refund.
func (f *CancellationFlow) Cancel(ctx context.Context, bookingID int64) error {
	booking, err := f.Repo.GetBookingByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			return NewValidationError(fmt.Sprintf("booking %d not found", bookingID))
		}
		return &StoreError{Op: "load booking", Err: err}
	}

	if booking.Status == models.BookingCancelled {
		return nil
	}
	if booking.Status != models.BookingPending {
		return NewValidationError("only pending bookings can be cancelled")
	}

	tx, err := f.Repo.GetTransactionByBookingID(ctx, bookingID)
	if err != nil && !errors.Is(err, bookingRepo.ErrNotFound) {
		return &StoreError{Op: "load transaction", Err: err}
	}

	// Refund only what was actually captured. The outcome decides the
	// transaction's terminal status instead of collapsing everything
	// into "refunded".
	finalStatus := models.TxNoRefundNeeded
	if tx != nil && tx.Method == models.MethodGateway && tx.Status == models.TxCompleted && tx.CaptureID != "" {
		refund, err := f.Gateway.RefundCapture(ctx, tx.CaptureID, tx.Amount, "booking cancelled")
		if err != nil {
			f.Logger.Error("refund failed, continuing with cancellation",
				zap.Int64("bookingID", bookingID),
				zap.String("captureID", tx.CaptureID),
				zap.Error(err))
			finalStatus = models.TxRefundFailed
		} else {
			f.Logger.Info("refund issued",
				zap.Int64("bookingID", bookingID),
				zap.String("captureID", tx.CaptureID),
				zap.String("refundStatus", refund.Status))
			finalStatus = models.TxRefunded
		}
	}

	if err := f.Repo.UpdateBookingStatus(ctx, bookingID, models.BookingCancelled); err != nil {
		return &StoreError{Op: "cancel booking", Err: err}
	}

	if tx != nil {
		if err := f.Repo.UpdateTransactionStatus(ctx, tx.ID, finalStatus); err != nil {
			f.Logger.Error("failed to close transaction after cancellation",
				zap.Int64("bookingID", bookingID),
				zap.String("txID", tx.ID),
				zap.Error(err))
		}
	}
	return nil
}
