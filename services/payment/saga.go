package payment

import (
	"context"
	"strconv"
	"sync"
	"time"

	bookingRepo "snapfix/database/repository/booking"
	"snapfix/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Saga drives one checkout attempt through the payment state machine.
// It owns its SagaState exclusively; the attempt is abandoned by
// dropping the saga, never by mutating it from outside.
//
// Side effects (opening the approval surface, user notices) are
// returned as Effect values for the transport layer to execute.
type Saga struct {
	mu        sync.Mutex
	state     SagaState
	req       models.CheckoutRequest
	attemptID string
	bookingID int64
	orderID   string
	txID      string

	gateway Gateway
	repo    bookingRepo.BookingRepository
	router  *DeepLinkRouter
	logger  *zap.Logger

	storeTimeout time.Duration
	materialized chan struct{}
	// materializeStarted flips on the first successful order creation.
	// A retried createOrder never materializes a second Booking pair; it
	// re-points the existing transaction at the fresh gateway order.
	materializeStarted bool
	// onMaterialized runs after the optimistic booking write settles,
	// success or not. The manager uses it to release the window lease.
	onMaterialized func()
}

// NewSaga constructs an attempt in the Idle state.
func NewSaga(attemptID string, req models.CheckoutRequest, gateway Gateway, repo bookingRepo.BookingRepository, router *DeepLinkRouter, logger *zap.Logger) *Saga {
	return &Saga{
		state:        Idle{},
		req:          req,
		attemptID:    attemptID,
		gateway:      gateway,
		repo:         repo,
		router:       router,
		logger:       logger,
		storeTimeout: 10 * time.Second,
		materialized: make(chan struct{}),
	}
}

// State returns the current saga state.
func (s *Saga) State() SagaState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// BookingID returns the optimistically created booking id, or 0 if the
// write has not landed.
func (s *Saga) BookingID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookingID
}

// OrderID returns the gateway order id of this attempt, if one exists.
func (s *Saga) OrderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderID
}

// Materialized is closed once the optimistic booking write has settled.
func (s *Saga) Materialized() <-chan struct{} {
	return s.materialized
}

// CreateOrder creates the gateway order. On success the saga enters
// OrderCreated, emits an OpenApproval effect, and kicks off the
// optimistic Booking+Transaction creation in the background so the
// customer is handed to the approval surface without waiting on the
// store. Gateway failures land in Failed, not in the returned error;
// only pre-network validation is reported as an error.
func (s *Saga) CreateOrder(ctx context.Context) ([]Effect, error) {
	if err := validateCheckout(s.req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	switch s.state.(type) {
	case Idle, Failed:
	default:
		s.mu.Unlock()
		return nil, NewValidationError("order already created for this attempt")
	}
	s.state = Loading{}
	s.mu.Unlock()

	order, err := s.gateway.CreateOrder(ctx, s.req.Amount, s.req.Currency)
	if err != nil {
		s.logger.Error("gateway order creation failed",
			zap.String("attemptID", s.attemptID), zap.Error(err))
		s.fail(err.Error())
		return nil, nil
	}

	s.mu.Lock()
	s.state = OrderCreated{ApprovalURL: order.ApprovalURL, OrderID: order.OrderID}
	s.orderID = order.OrderID
	retried := s.materializeStarted
	s.materializeStarted = true
	s.mu.Unlock()

	if retried {
		go s.reattachOrder(order.OrderID)
	} else {
		go s.materialize(order.OrderID)
	}

	return []Effect{OpenApproval{URL: order.ApprovalURL}}, nil
}

// CaptureOrder captures a created order. Reachable only from
// OrderCreated or from a Failed retry; the gateway failure path lands
// in Failed with the gateway's message and is not retried
// automatically.
func (s *Saga) CaptureOrder(ctx context.Context, orderID string) ([]Effect, error) {
	s.mu.Lock()
	switch s.state.(type) {
	case OrderCreated, Failed:
	default:
		s.mu.Unlock()
		return nil, NewValidationError("capture is not reachable from the current state")
	}
	s.state = Loading{}
	s.mu.Unlock()

	capture, err := s.gateway.CaptureOrder(ctx, orderID)
	if err != nil {
		s.logger.Error("gateway capture failed",
			zap.String("attemptID", s.attemptID),
			zap.String("orderID", orderID), zap.Error(err))
		s.fail(err.Error())
		return []Effect{NotifyPaymentFailed{Message: err.Error()}}, nil
	}

	s.mu.Lock()
	s.state = OrderCaptured{Status: capture.Status, CaptureID: capture.CaptureID, OrderID: orderID}
	s.mu.Unlock()

	s.completeTransaction(ctx, orderID, capture.CaptureID)
	return nil, nil
}

// HandleReturn reacts to a payment-return event for this attempt's
// order. Success claims the order id in the dedup set before capturing;
// a duplicate delivery is silently a no-op. Failure and unknown surface
// a payment-failed notice; cancellation surfaces a notice only — in
// both cases the transaction is untouched and the booking stays
// pending.
func (s *Saga) HandleReturn(ctx context.Context, res models.DeepLinkResult) ([]Effect, error) {
	switch res.Status {
	case models.DeepLinkSuccess:
		if res.GatewayOrderID == "" {
			// Success with no order id cannot be finalized safely.
			return []Effect{NotifyPaymentFailed{Message: "payment return missing order id"}}, nil
		}
		if _, done := s.State().(OrderCaptured); done {
			// Already finalized, e.g. by a manual capture retry that beat
			// the return redirect. The success return is a no-op.
			return nil, nil
		}
		claimed, err := s.router.MarkProcessed(ctx, res.GatewayOrderID)
		if err != nil {
			s.logger.Error("dedup claim failed",
				zap.String("orderID", res.GatewayOrderID), zap.Error(err))
			return []Effect{NotifyPaymentFailed{Message: "could not verify payment state"}}, nil
		}
		if !claimed {
			// Duplicate delivery; already finalized.
			return nil, nil
		}
		return s.CaptureOrder(ctx, res.GatewayOrderID)
	case models.DeepLinkCancelled:
		return []Effect{NotifyPaymentCancelled{}}, nil
	default:
		// failed and unknown are handled alike: no capture.
		return []Effect{NotifyPaymentFailed{Message: "payment was not completed"}}, nil
	}
}

// materialize creates the pending Booking+Transaction pair and attaches
// the gateway order id. Store failures here are logged and left for
// operational reconciliation; the gateway order is never reversed.
func (s *Saga) materialize(orderID string) {
	defer close(s.materialized)
	if s.onMaterialized != nil {
		defer s.onMaterialized()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.storeTimeout)
	defer cancel()

	booking := &models.Booking{
		CustomerID:        s.req.CustomerID,
		ProviderServiceID: s.req.ProviderServiceID,
		Status:            models.BookingPending,
		Location:          s.req.Location,
		StartTime:         s.req.StartTime,
		EndTime:           s.req.EndTime,
		Workers:           s.req.Workers,
		Note:              s.req.Note,
	}
	tx := &models.Transaction{
		ID:       uuid.New().String(),
		Amount:   s.req.Amount,
		Currency: s.req.Currency,
		Method:   models.MethodGateway,
		Status:   models.TxPending,
	}
	if err := s.repo.CreateBookingWithTransaction(ctx, booking, tx); err != nil {
		s.logger.Error("optimistic booking creation failed",
			zap.String("attemptID", s.attemptID),
			zap.String("orderID", orderID),
			zap.Error(&StoreError{Op: "create booking", Err: err}))
		return
	}

	s.mu.Lock()
	s.bookingID = booking.ID
	s.txID = tx.ID
	s.mu.Unlock()

	if err := s.repo.AttachGatewayOrder(ctx, tx.ID, orderID); err != nil {
		s.logger.Error("failed to attach gateway order id",
			zap.String("txID", tx.ID),
			zap.String("orderID", orderID),
			zap.Error(&StoreError{Op: "attach order", Err: err}))
	}
}

// reattachOrder points the attempt's existing transaction at the fresh
// gateway order a retried createOrder produced. It waits for the first
// materialization to settle; if that write never landed there is no
// transaction to re-point and the divergence is already logged.
func (s *Saga) reattachOrder(orderID string) {
	<-s.materialized

	s.mu.Lock()
	txID := s.txID
	s.mu.Unlock()
	if txID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.storeTimeout)
	defer cancel()
	if err := s.repo.AttachGatewayOrder(ctx, txID, orderID); err != nil {
		s.logger.Error("failed to re-attach gateway order id after retry",
			zap.String("txID", txID),
			zap.String("orderID", orderID),
			zap.Error(&StoreError{Op: "attach order", Err: err}))
	}
}

// completeTransaction marks the transaction completed after a capture.
// The payment already happened; a store failure here is logged for
// reconciliation, never undone at the gateway.
func (s *Saga) completeTransaction(ctx context.Context, orderID, captureID string) {
	tx, err := s.repo.GetTransactionByOrderID(ctx, orderID)
	if err != nil {
		s.logger.Error("transaction lookup after capture failed",
			zap.String("orderID", orderID),
			zap.Error(&StoreError{Op: "lookup transaction", Err: err}))
		return
	}
	if err := s.repo.MarkTransactionCompleted(ctx, tx.ID, captureID); err != nil {
		s.logger.Error("failed to mark transaction completed",
			zap.String("txID", tx.ID),
			zap.String("captureID", captureID),
			zap.Error(&StoreError{Op: "complete transaction", Err: err}))
	}
}

func (s *Saga) fail(msg string) {
	s.mu.Lock()
	s.state = Failed{Message: msg}
	s.mu.Unlock()
}

// validateCheckout rejects malformed checkout input before any network
// call. The amount must already be a decimal string; the saga never
// re-derives or re-rounds it.
func validateCheckout(req models.CheckoutRequest) error {
	if req.Method != models.MethodGateway {
		return NewValidationError("saga only handles gateway payments")
	}
	if req.Amount == "" {
		return NewValidationError("missing amount")
	}
	if _, err := strconv.ParseFloat(req.Amount, 64); err != nil {
		return NewValidationError("amount must be a decimal string")
	}
	if req.Currency == "" {
		return NewValidationError("missing currency")
	}
	if req.Workers <= 0 {
		return NewValidationError("worker count must be positive")
	}
	return nil
}
