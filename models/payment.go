package models

import "time"

// CheckoutRequest carries everything needed to start a checkout attempt.
// Amount arrives as a decimal string already computed by the pricing
// layer (price x duration-hours x workers, minus discount).
type CheckoutRequest struct {
	CustomerID        string        `json:"customer_id"`
	ProviderServiceID string        `json:"provider_service_id" binding:"required"`
	Method            PaymentMethod `json:"method" binding:"required"`
	Amount            string        `json:"amount" binding:"required"`
	Currency          string        `json:"currency" binding:"required"`
	Location          string        `json:"location"`
	StartTime         time.Time     `json:"start_time" binding:"required"`
	EndTime           time.Time     `json:"end_time" binding:"required"`
	Workers           int           `json:"workers" binding:"required"`
	Note              string        `json:"note"`
}

// CheckoutResponse is returned when an attempt starts.
type CheckoutResponse struct {
	AttemptID   string `json:"attempt_id"`
	State       string `json:"state"`
	ApprovalURL string `json:"approval_url,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
	BookingID   int64  `json:"booking_id,omitempty"`
	Error       string `json:"error,omitempty"`
}
