package models

import "time"

// BookingStatus enumerates the lifecycle of a booking. Bookings are never
// deleted, only transitioned.
type BookingStatus string

const (
	BookingPending           BookingStatus = "pending"
	BookingAccepted          BookingStatus = "accepted"
	BookingCustomerConfirmed BookingStatus = "customer_confirmed"
	BookingProviderConfirmed BookingStatus = "provider_confirmed"
	BookingCompleted         BookingStatus = "completed"
	BookingCancelled         BookingStatus = "cancelled"
)

// Booking represents a booked service visit.
type Booking struct {
	ID                int64         `bson:"id" json:"id"` // server-assigned via counters collection
	CustomerID        string        `bson:"customer_id" json:"customer_id"`
	ProviderServiceID string        `bson:"provider_service_id" json:"provider_service_id"`
	Status            BookingStatus `bson:"status" json:"status"`
	Location          string        `bson:"location" json:"location"`
	StartTime         time.Time     `bson:"start_time" json:"start_time"`
	EndTime           time.Time     `bson:"end_time" json:"end_time"`
	Workers           int           `bson:"workers" json:"workers"`
	Note              string        `bson:"note,omitempty" json:"note,omitempty"`
	CreatedAt         time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `bson:"updated_at" json:"updated_at"`
}
