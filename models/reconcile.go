package models

// ReconcilePayload is the asynq task payload for the payment
// reconciliation check that runs after a gateway checkout.
type ReconcilePayload struct {
	BookingID      int64  `json:"bookingId"`
	GatewayOrderID string `json:"gatewayOrderId"`
	AttemptID      string `json:"attemptId"`
}
