package bookingRepo

import (
	"context"
	"errors"
	"time"

	"snapfix/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when a booking or transaction does not exist.
var ErrNotFound = errors.New("record not found")

// CreateBookingWithTransaction assigns the booking id from the counters
// collection and inserts the booking and its transaction. The two
// inserts are separate single-document writes; a transaction insert
// failure leaves the booking in place and is reported to the caller.
func (r *mongoBookingRepo) CreateBookingWithTransaction(ctx context.Context, booking *models.Booking, tx *models.Transaction) error {
	id, err := r.nextID(ctx, "bookings")
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	if _, err := r.bookings.InsertOne(ctx, booking); err != nil {
		return err
	}

	tx.BookingID = id
	tx.CreatedAt = now
	tx.UpdatedAt = now
	if _, err := r.transactions.InsertOne(ctx, tx); err != nil {
		return err
	}
	return nil
}

// GetBookingByID returns a booking by its integer id.
func (r *mongoBookingRepo) GetBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	var booking models.Booking
	err := r.bookings.FindOne(ctx, bson.M{"id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &booking, nil
}

// GetBookingsByCustomer fetches all bookings belonging to a customer.
func (r *mongoBookingRepo) GetBookingsByCustomer(ctx context.Context, customerID string) ([]models.Booking, error) {
	cursor, err := r.bookings.Find(ctx, bson.M{"customer_id": customerID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// GetBookingsOverlapping returns non-cancelled bookings for the provider
// service whose [start, end) window overlaps the given one.
func (r *mongoBookingRepo) GetBookingsOverlapping(ctx context.Context, providerServiceID string, start, end time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"provider_service_id": providerServiceID,
		"status":              bson.M{"$ne": models.BookingCancelled},
		"start_time":          bson.M{"$lt": end},
		"end_time":            bson.M{"$gt": start},
	}
	cursor, err := r.bookings.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// UpdateBookingStatus transitions a booking's status in a single
// document update.
func (r *mongoBookingRepo) UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus) error {
	res, err := r.bookings.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
