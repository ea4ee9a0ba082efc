package payment

import (
	"context"
	"sync"
	"time"

	bookingRepo "snapfix/database/repository/booking"
	"snapfix/models"

	"github.com/google/uuid"
)

// fakeGateway counts calls and returns canned results, in the spirit of
// the hand-rolled service fakes used across the test suites.
type fakeGateway struct {
	mu sync.Mutex

	order      *GatewayOrder
	capture    *GatewayCapture
	detail     *GatewayOrderDetail
	refund     *GatewayRefund
	createErr  error
	captureErr error
	refundErr  error

	createCalls  int
	captureCalls int
	refundCalls  int

	capturedOrders []string
	refundedIDs    []string
}

func (g *fakeGateway) CreateOrder(_ context.Context, amount, currency string) (*GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	if g.order != nil {
		return g.order, nil
	}
	return &GatewayOrder{OrderID: "ORD-" + uuid.New().String(), ApprovalURL: "https://gateway.test/approve"}, nil
}

func (g *fakeGateway) CaptureOrder(_ context.Context, orderID string) (*GatewayCapture, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.captureCalls++
	g.capturedOrders = append(g.capturedOrders, orderID)
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	if g.capture != nil {
		return g.capture, nil
	}
	return &GatewayCapture{Status: "COMPLETED", CaptureID: "CAP-" + orderID}, nil
}

func (g *fakeGateway) GetOrder(_ context.Context, orderID string) (*GatewayOrderDetail, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.detail != nil {
		return g.detail, nil
	}
	return &GatewayOrderDetail{OrderID: orderID, Status: "CREATED"}, nil
}

func (g *fakeGateway) RefundCapture(_ context.Context, captureID, _, _ string) (*GatewayRefund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls++
	g.refundedIDs = append(g.refundedIDs, captureID)
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	if g.refund != nil {
		return g.refund, nil
	}
	return &GatewayRefund{Status: "COMPLETED"}, nil
}

func (g *fakeGateway) captureCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.captureCalls
}

func (g *fakeGateway) refundCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refundCalls
}

// fakeRepo is an in-memory BookingRepository.
type fakeRepo struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]*models.Booking
	txs      map[string]*models.Transaction

	createErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		bookings: make(map[int64]*models.Booking),
		txs:      make(map[string]*models.Transaction),
	}
}

func (r *fakeRepo) CreateBookingWithTransaction(_ context.Context, booking *models.Booking, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	booking.ID = r.nextID
	booking.CreatedAt = time.Now()
	cp := *booking
	r.bookings[booking.ID] = &cp

	tx.BookingID = booking.ID
	tcp := *tx
	r.txs[tx.ID] = &tcp
	return nil
}

func (r *fakeRepo) GetBookingByID(_ context.Context, id int64) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, bookingRepo.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeRepo) GetBookingsByCustomer(_ context.Context, customerID string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.CustomerID == customerID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetBookingsOverlapping(_ context.Context, providerServiceID string, start, end time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.ProviderServiceID == providerServiceID &&
			b.Status != models.BookingCancelled &&
			b.StartTime.Before(end) && b.EndTime.After(start) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateBookingStatus(_ context.Context, id int64, status models.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	b.Status = status
	return nil
}

func (r *fakeRepo) GetTransactionByBookingID(_ context.Context, bookingID int64) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.txs {
		if tx.BookingID == bookingID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, bookingRepo.ErrNotFound
}

func (r *fakeRepo) GetTransactionByOrderID(_ context.Context, orderID string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.txs {
		if tx.GatewayOrderID == orderID {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, bookingRepo.ErrNotFound
}

func (r *fakeRepo) AttachGatewayOrder(_ context.Context, txID, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[txID]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	tx.GatewayOrderID = orderID
	return nil
}

func (r *fakeRepo) MarkTransactionCompleted(_ context.Context, txID, captureID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[txID]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	tx.Status = models.TxCompleted
	tx.CaptureID = captureID
	return nil
}

func (r *fakeRepo) UpdateTransactionStatus(_ context.Context, txID string, status models.TransactionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[txID]
	if !ok {
		return bookingRepo.ErrNotFound
	}
	tx.Status = status
	return nil
}

func (r *fakeRepo) EnsureIndexes() error { return nil }

// helpers

func (r *fakeRepo) bookingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

func (r *fakeRepo) txByOrder(orderID string) *models.Transaction {
	tx, err := r.GetTransactionByOrderID(context.Background(), orderID)
	if err != nil {
		return nil
	}
	return tx
}

func (r *fakeRepo) seedBookingWithTx(booking models.Booking, tx models.Transaction) (int64, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	booking.ID = r.nextID
	r.bookings[booking.ID] = &booking
	tx.BookingID = booking.ID
	r.txs[tx.ID] = &tx
	return booking.ID, tx.ID
}
