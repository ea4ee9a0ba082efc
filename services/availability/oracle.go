package availability

import (
	"context"
	"fmt"
	"time"

	"snapfix/database"
	bookingRepo "snapfix/database/repository/booking"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Oracle is the server-side availability function: given a provider
// service and a half-open window, it returns the free worker count.
type Oracle interface {
	FreeWorkers(ctx context.Context, providerServiceID string, start, end time.Time) (int, error)
}

// MongoOracle computes free workers as the service's worker pool minus
// the workers held by overlapping non-cancelled bookings.
type MongoOracle struct {
	services *mongo.Collection
	bookings bookingRepo.BookingRepository
}

func NewMongoOracle(bookings bookingRepo.BookingRepository) *MongoOracle {
	db := database.MongoClient.Database(database.DatabaseName)
	return &MongoOracle{
		services: db.Collection("provider_services"),
		bookings: bookings,
	}
}

func (o *MongoOracle) FreeWorkers(ctx context.Context, providerServiceID string, start, end time.Time) (int, error) {
	var svc struct {
		ID      string `bson:"id"`
		Workers int    `bson:"workers"`
	}
	if err := o.services.FindOne(ctx, bson.M{"id": providerServiceID}).Decode(&svc); err != nil {
		return 0, fmt.Errorf("provider service not found: %w", err)
	}

	overlapping, err := o.bookings.GetBookingsOverlapping(ctx, providerServiceID, start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to load overlapping bookings: %w", err)
	}

	held := 0
	for _, b := range overlapping {
		held += b.Workers
	}
	free := svc.Workers - held
	if free < 0 {
		free = 0
	}
	return free, nil
}
