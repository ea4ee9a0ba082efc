package models

import "time"

// PaymentMethod distinguishes how a booking is paid.
type PaymentMethod string

const (
	MethodCash    PaymentMethod = "cash"
	MethodGateway PaymentMethod = "gateway"
)

// TransactionStatus enumerates the money relationship of a booking.
//
// A transaction reaches "completed" only after a capture call for its
// gateway order id succeeded. The three cancellation-side statuses are
// deliberately distinct: "refunded" means a refund call succeeded,
// "refund_failed" means one was attempted and failed (support follows
// up out-of-band), and "no_refund_needed" means nothing had been
// captured when the booking was cancelled.
type TransactionStatus string

const (
	TxPending        TransactionStatus = "pending"
	TxCompleted      TransactionStatus = "completed"
	TxRefunded       TransactionStatus = "refunded"
	TxRefundFailed   TransactionStatus = "refund_failed"
	TxNoRefundNeeded TransactionStatus = "no_refund_needed"
)

// Transaction is the one-to-one payment record of a booking. Amount is a
// precomputed decimal string in the order's currency; the server never
// re-derives or re-rounds it.
type Transaction struct {
	ID             string            `bson:"id" json:"id"`
	BookingID      int64             `bson:"booking_id" json:"booking_id"`
	Amount         string            `bson:"amount" json:"amount"`
	Currency       string            `bson:"currency" json:"currency"`
	Method         PaymentMethod     `bson:"method" json:"method"`
	Status         TransactionStatus `bson:"status" json:"status"`
	GatewayOrderID string            `bson:"gateway_order_id,omitempty" json:"gateway_order_id,omitempty"`
	CaptureID      string            `bson:"capture_id,omitempty" json:"capture_id,omitempty"`
	CreatedAt      time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time         `bson:"updated_at" json:"updated_at"`
}
