package bookingRepo

import (
	"context"
	"time"

	"snapfix/database"
	"snapfix/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// BookingRepository is the booking store: single-document atomic
// creates/reads/updates over bookings and their transactions. There are
// no cross-collection transactions from this client.
type BookingRepository interface {
	CreateBookingWithTransaction(ctx context.Context, booking *models.Booking, tx *models.Transaction) error
	GetBookingByID(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingsByCustomer(ctx context.Context, customerID string) ([]models.Booking, error)
	GetBookingsOverlapping(ctx context.Context, providerServiceID string, start, end time.Time) ([]models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus) error

	GetTransactionByBookingID(ctx context.Context, bookingID int64) (*models.Transaction, error)
	GetTransactionByOrderID(ctx context.Context, gatewayOrderID string) (*models.Transaction, error)
	AttachGatewayOrder(ctx context.Context, txID, gatewayOrderID string) error
	MarkTransactionCompleted(ctx context.Context, txID, captureID string) error
	UpdateTransactionStatus(ctx context.Context, txID string, status models.TransactionStatus) error

	EnsureIndexes() error
}

type mongoBookingRepo struct {
	bookings     *mongo.Collection
	transactions *mongo.Collection
	counters     *mongo.Collection
}

// NewMongoBookingRepo returns a BookingRepository backed by MongoDB.
func NewMongoBookingRepo() BookingRepository {
	db := database.MongoClient.Database(database.DatabaseName)
	return &mongoBookingRepo{
		bookings:     db.Collection("bookings"),
		transactions: db.Collection("transactions"),
		counters:     db.Collection("counters"),
	}
}
