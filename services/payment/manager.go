package payment

import (
	"context"
	"sync"
	"time"

	bookingRepo "snapfix/database/repository/booking"
	"snapfix/models"
	"snapfix/services/availability"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SagaManager owns the live checkout attempts. Each attempt is a
// uuid-keyed Saga; an order-id index lets payment returns find their
// attempt. Returns whose attempt is gone (process restart, user
// navigated away) are still finalized against the gateway and the
// store, but produce no UI effects.
type SagaManager struct {
	mu       sync.Mutex
	attempts map[string]*Saga
	byOrder  map[string]string

	Gateway   Gateway
	Repo      bookingRepo.BookingRepository
	Router    *DeepLinkRouter
	Checker   *availability.Checker
	Lease     *availability.WindowLease
	Reconcile ReconcileScheduler
	Logger    *zap.Logger

	// ReconcileAfter is how long a gateway transaction may stay pending
	// before the reconciliation check looks at it.
	ReconcileAfter time.Duration
}

func NewSagaManager(gateway Gateway, repo bookingRepo.BookingRepository, router *DeepLinkRouter, checker *availability.Checker, logger *zap.Logger) *SagaManager {
	return &SagaManager{
		attempts:       make(map[string]*Saga),
		byOrder:        make(map[string]string),
		Gateway:        gateway,
		Repo:           repo,
		Router:         router,
		Checker:        checker,
		Logger:         logger,
		ReconcileAfter: 30 * time.Minute,
	}
}

// Checkout starts a checkout attempt. The availability gate runs first:
// the window is validated and re-checked against the oracle, and the
// requested worker count must fit the fresh count. Cash bookings are
// created immediately; gateway bookings go through the saga.
func (m *SagaManager) Checkout(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	free, err := m.Checker.Check(ctx, req.ProviderServiceID, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := availability.GateSubmission(req.Workers, free); err != nil {
		return nil, err
	}

	release := func() {}
	if m.Lease != nil {
		release, err = m.Lease.Acquire(ctx, req.ProviderServiceID, req.StartTime, req.EndTime)
		if err != nil {
			return nil, err
		}
	}

	switch req.Method {
	case models.MethodCash:
		defer release()
		return m.checkoutCash(ctx, req)
	case models.MethodGateway:
		return m.checkoutGateway(ctx, req, release)
	default:
		release()
		return nil, NewValidationError("unsupported payment method: " + string(req.Method))
	}
}

// checkoutCash creates the pending booking and its cash transaction
// right away; there is no external approval step.
func (m *SagaManager) checkoutCash(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	booking := &models.Booking{
		CustomerID:        req.CustomerID,
		ProviderServiceID: req.ProviderServiceID,
		Status:            models.BookingPending,
		Location:          req.Location,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		Workers:           req.Workers,
		Note:              req.Note,
	}
	tx := &models.Transaction{
		ID:       uuid.New().String(),
		Amount:   req.Amount,
		Currency: req.Currency,
		Method:   models.MethodCash,
		Status:   models.TxPending,
	}
	if err := m.Repo.CreateBookingWithTransaction(ctx, booking, tx); err != nil {
		return nil, &StoreError{Op: "create cash booking", Err: err}
	}
	m.Logger.Info("cash booking created",
		zap.Int64("bookingID", booking.ID), zap.String("customerID", req.CustomerID))
	return &models.CheckoutResponse{
		AttemptID: uuid.New().String(),
		State:     OrderCaptured{}.Name(),
		BookingID: booking.ID,
	}, nil
}

func (m *SagaManager) checkoutGateway(ctx context.Context, req models.CheckoutRequest, release func()) (*models.CheckoutResponse, error) {
	attemptID := uuid.New().String()
	saga := NewSaga(attemptID, req, m.Gateway, m.Repo, m.Router, m.Logger)
	saga.onMaterialized = release

	effects, err := saga.CreateOrder(ctx)
	if err != nil {
		release()
		return nil, err
	}

	state := saga.State()
	resp := &models.CheckoutResponse{AttemptID: attemptID, State: state.Name()}

	switch st := state.(type) {
	case OrderCreated:
		m.mu.Lock()
		m.attempts[attemptID] = saga
		m.byOrder[st.OrderID] = attemptID
		m.mu.Unlock()
		resp.OrderID = st.OrderID
		for _, eff := range effects {
			if open, ok := eff.(OpenApproval); ok {
				resp.ApprovalURL = open.URL
			}
		}
		m.scheduleReconcile(saga, st.OrderID, attemptID)
	case Failed:
		// Gateway failure: no booking will materialize, so give the
		// window back right away.
		release()
		resp.Error = st.Message
	}
	return resp, nil
}

// scheduleReconcile enqueues the deferred pending-payment check once
// the optimistic booking write has settled.
func (m *SagaManager) scheduleReconcile(saga *Saga, orderID, attemptID string) {
	if m.Reconcile == nil {
		return
	}
	go func() {
		<-saga.Materialized()
		bookingID := saga.BookingID()
		if bookingID == 0 {
			return
		}
		payload := models.ReconcilePayload{
			BookingID:      bookingID,
			GatewayOrderID: orderID,
			AttemptID:      attemptID,
		}
		if err := m.Reconcile.ScheduleReconcile(payload, time.Now().Add(m.ReconcileAfter)); err != nil {
			m.Logger.Error("failed to schedule payment reconciliation",
				zap.Int64("bookingID", bookingID), zap.Error(err))
		}
	}()
}

// AttemptState returns the saga state for a live attempt.
func (m *SagaManager) AttemptState(attemptID string) (SagaState, error) {
	m.mu.Lock()
	saga, ok := m.attempts[attemptID]
	m.mu.Unlock()
	if !ok {
		return nil, NewValidationError("unknown or expired checkout attempt")
	}
	return saga.State(), nil
}

// RetryCapture is the user-initiated capture re-trigger after a Failed
// state. It does not consult the dedup set before capturing — the dedup
// guards event deliveries, while this is an explicit user action and
// the gateway capture is idempotent at the HTTP level — but on success
// it claims the order id so later return deliveries settle as no-ops.
func (m *SagaManager) RetryCapture(ctx context.Context, attemptID string) (SagaState, []Effect, error) {
	m.mu.Lock()
	saga, ok := m.attempts[attemptID]
	m.mu.Unlock()
	if !ok {
		return nil, nil, NewValidationError("unknown or expired checkout attempt")
	}
	orderID := saga.OrderID()
	if orderID == "" {
		return nil, nil, NewValidationError("attempt has no gateway order to capture")
	}
	effects, err := saga.CaptureOrder(ctx, orderID)
	if _, done := saga.State().(OrderCaptured); done {
		// Claim the order id so a return redirect arriving after the
		// manual capture is absorbed by the dedup set.
		if _, markErr := m.Router.MarkProcessed(ctx, orderID); markErr != nil {
			m.Logger.Error("failed to claim order id after manual capture",
				zap.String("orderID", orderID), zap.Error(markErr))
		}
	}
	return saga.State(), effects, err
}

// ProcessReturn drains the deep-link mailbox and routes the event to
// its attempt. With no live attempt a successful return is finalized
// detached: the capture and store update still happen so payment state
// settles, but no UI effects are produced for a screen that is gone.
func (m *SagaManager) ProcessReturn(ctx context.Context) ([]Effect, error) {
	res := m.Router.Consume()
	if res == nil {
		return nil, nil
	}

	if res.GatewayOrderID != "" {
		m.mu.Lock()
		attemptID, ok := m.byOrder[res.GatewayOrderID]
		var saga *Saga
		if ok {
			saga = m.attempts[attemptID]
		}
		m.mu.Unlock()
		if saga != nil {
			return saga.HandleReturn(ctx, *res)
		}
	}

	if res.Status == models.DeepLinkSuccess && res.GatewayOrderID != "" {
		m.finalizeDetached(ctx, res.GatewayOrderID)
	} else {
		m.Logger.Info("dropping payment return with no live attempt",
			zap.String("status", string(res.Status)),
			zap.String("orderID", res.GatewayOrderID))
	}
	return nil, nil
}

// finalizeDetached captures and records a successful return whose
// attempt no longer exists.
func (m *SagaManager) finalizeDetached(ctx context.Context, orderID string) {
	claimed, err := m.Router.MarkProcessed(ctx, orderID)
	if err != nil {
		m.Logger.Error("dedup claim failed for detached return",
			zap.String("orderID", orderID), zap.Error(err))
		return
	}
	if !claimed {
		return
	}

	tx, err := m.Repo.GetTransactionByOrderID(ctx, orderID)
	if err != nil {
		m.Logger.Error("no transaction for detached return",
			zap.String("orderID", orderID), zap.Error(err))
		return
	}
	if tx.Status != models.TxPending {
		return
	}

	capture, err := m.Gateway.CaptureOrder(ctx, orderID)
	if err != nil {
		m.Logger.Error("detached capture failed",
			zap.String("orderID", orderID), zap.Error(err))
		return
	}
	if err := m.Repo.MarkTransactionCompleted(ctx, tx.ID, capture.CaptureID); err != nil {
		m.Logger.Error("failed to record detached capture",
			zap.String("txID", tx.ID),
			zap.String("captureID", capture.CaptureID), zap.Error(err))
		return
	}
	m.Logger.Info("detached payment return finalized",
		zap.String("orderID", orderID), zap.String("captureID", capture.CaptureID))
}
