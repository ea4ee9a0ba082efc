package bookingRepo

import (
	"context"
	"errors"
	"time"

	"snapfix/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// GetTransactionByBookingID returns the transaction owned by a booking.
func (r *mongoBookingRepo) GetTransactionByBookingID(ctx context.Context, bookingID int64) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.transactions.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&tx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// GetTransactionByOrderID looks a transaction up by its gateway order id.
// This is how a late deep-link return finds its transaction after the
// originating attempt is gone.
func (r *mongoBookingRepo) GetTransactionByOrderID(ctx context.Context, gatewayOrderID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.transactions.FindOne(ctx, bson.M{"gateway_order_id": gatewayOrderID}).Decode(&tx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// AttachGatewayOrder records the gateway order id right after order
// creation. First of the two gateway-path mutations.
func (r *mongoBookingRepo) AttachGatewayOrder(ctx context.Context, txID, gatewayOrderID string) error {
	return r.updateTransaction(ctx, txID, bson.M{
		"gateway_order_id": gatewayOrderID,
		"updated_at":       time.Now().UTC(),
	})
}

// MarkTransactionCompleted records a successful capture. Second of the
// two gateway-path mutations.
func (r *mongoBookingRepo) MarkTransactionCompleted(ctx context.Context, txID, captureID string) error {
	return r.updateTransaction(ctx, txID, bson.M{
		"status":     models.TxCompleted,
		"capture_id": captureID,
		"updated_at": time.Now().UTC(),
	})
}

// UpdateTransactionStatus sets the transaction status (cancellation path).
func (r *mongoBookingRepo) UpdateTransactionStatus(ctx context.Context, txID string, status models.TransactionStatus) error {
	return r.updateTransaction(ctx, txID, bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	})
}

func (r *mongoBookingRepo) updateTransaction(ctx context.Context, txID string, set bson.M) error {
	res, err := r.transactions.UpdateOne(ctx, bson.M{"id": txID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
