package payment

import (
	"context"
	"testing"
	"time"

	"snapfix/models"
	"snapfix/services/availability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedOracle struct {
	free int
	err  error
}

func (o *fixedOracle) FreeWorkers(context.Context, string, time.Time, time.Time) (int, error) {
	return o.free, o.err
}

func newTestManager(gw *fakeGateway, repo *fakeRepo, free int) *SagaManager {
	router := NewDeepLinkRouter(NewMemoryProcessedSet())
	checker := availability.NewChecker(&fixedOracle{free: free})
	return NewSagaManager(gw, repo, router, checker, zap.NewNop())
}

func TestCheckoutCashCreatesBookingImmediately(t *testing.T) {
	repo := newFakeRepo()
	m := newTestManager(&fakeGateway{}, repo, 5)

	req := gatewayCheckout()
	req.Method = models.MethodCash

	resp, err := m.Checkout(context.Background(), req)
	require.NoError(t, err)
	assert.NotZero(t, resp.BookingID)
	assert.Equal(t, "order_captured", resp.State)
	assert.Empty(t, resp.ApprovalURL, "cash has no approval step")

	tx, err := repo.GetTransactionByBookingID(context.Background(), resp.BookingID)
	require.NoError(t, err)
	assert.Equal(t, models.MethodCash, tx.Method)
	assert.Equal(t, models.TxPending, tx.Status)
}

func TestCheckoutGatewayRegistersAttempt(t *testing.T) {
	gw := &fakeGateway{order: &GatewayOrder{OrderID: "PAY-1", ApprovalURL: "https://gateway.test/approve/PAY-1"}}
	repo := newFakeRepo()
	m := newTestManager(gw, repo, 5)

	resp, err := m.Checkout(context.Background(), gatewayCheckout())
	require.NoError(t, err)
	assert.Equal(t, "order_created", resp.State)
	assert.Equal(t, "PAY-1", resp.OrderID)
	assert.Equal(t, "https://gateway.test/approve/PAY-1", resp.ApprovalURL)

	state, err := m.AttemptState(resp.AttemptID)
	require.NoError(t, err)
	assert.IsType(t, OrderCreated{}, state)
}

func TestCheckoutRejectedWhenWindowFull(t *testing.T) {
	gw := &fakeGateway{}
	repo := newFakeRepo()
	m := newTestManager(gw, repo, 1)

	req := gatewayCheckout() // asks for 2 workers
	_, err := m.Checkout(context.Background(), req)

	var vErr *availability.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, 0, gw.createCalls, "no order may be created for an unavailable window")
	assert.Equal(t, 0, repo.bookingCount())
}

func TestCheckoutGatewayCreateFailure(t *testing.T) {
	gw := &fakeGateway{createErr: &GatewayError{StatusCode: 503, Message: "upstream down"}}
	m := newTestManager(gw, newFakeRepo(), 5)

	resp, err := m.Checkout(context.Background(), gatewayCheckout())
	require.NoError(t, err)
	assert.Equal(t, "failed", resp.State)
	assert.Contains(t, resp.Error, "upstream down")

	// The attempt is not registered; there is nothing to resume.
	_, err = m.AttemptState(resp.AttemptID)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestAttemptStateUnknownAttempt(t *testing.T) {
	m := newTestManager(&fakeGateway{}, newFakeRepo(), 5)

	_, err := m.AttemptState("no-such-attempt")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestProcessReturnRoutesToLiveAttempt(t *testing.T) {
	gw := &fakeGateway{order: &GatewayOrder{OrderID: "PAY-2", ApprovalURL: "https://gateway.test/a"}}
	repo := newFakeRepo()
	m := newTestManager(gw, repo, 5)

	resp, err := m.Checkout(context.Background(), gatewayCheckout())
	require.NoError(t, err)

	m.mu.Lock()
	saga := m.attempts[resp.AttemptID]
	m.mu.Unlock()
	require.NotNil(t, saga)
	waitMaterialized(t, saga)

	m.Router.Publish(models.DeepLinkResult{Status: models.DeepLinkSuccess, GatewayOrderID: "PAY-2"})
	_, err = m.ProcessReturn(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, gw.captureCount())
	state, err := m.AttemptState(resp.AttemptID)
	require.NoError(t, err)
	assert.IsType(t, OrderCaptured{}, state)

	tx := repo.txByOrder("PAY-2")
	require.NotNil(t, tx)
	assert.Equal(t, models.TxCompleted, tx.Status)
}

func TestProcessReturnEmptyMailbox(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestManager(gw, newFakeRepo(), 5)

	effects, err := m.ProcessReturn(context.Background())
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Equal(t, 0, gw.captureCount())
}

// A success return whose attempt is gone is still captured and
// recorded, but produces no UI effects.
func TestProcessReturnDetachedFinalize(t *testing.T) {
	gw := &fakeGateway{}
	repo := newFakeRepo()
	repo.seedBookingWithTx(pendingBooking(), models.Transaction{
		ID:             "tx-detached",
		Amount:         "100000",
		Currency:       "USD",
		Method:         models.MethodGateway,
		Status:         models.TxPending,
		GatewayOrderID: "PAY-GONE",
	})
	m := newTestManager(gw, repo, 5)

	m.Router.Publish(models.DeepLinkResult{Status: models.DeepLinkSuccess, GatewayOrderID: "PAY-GONE"})
	effects, err := m.ProcessReturn(context.Background())
	require.NoError(t, err)
	assert.Empty(t, effects, "a dead screen gets no effects")
	assert.Equal(t, []string{"PAY-GONE"}, gw.capturedOrders)

	tx := repo.txByOrder("PAY-GONE")
	require.NotNil(t, tx)
	assert.Equal(t, models.TxCompleted, tx.Status)
	assert.Equal(t, "CAP-PAY-GONE", tx.CaptureID)

	// Redelivery of the same return is absorbed by the dedup claim.
	m.Router.Publish(models.DeepLinkResult{Status: models.DeepLinkSuccess, GatewayOrderID: "PAY-GONE"})
	_, err = m.ProcessReturn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, gw.captureCount())
}

func TestProcessReturnDetachedNonSuccessDropped(t *testing.T) {
	gw := &fakeGateway{}
	m := newTestManager(gw, newFakeRepo(), 5)

	m.Router.Publish(models.DeepLinkResult{Status: models.DeepLinkCancelled, GatewayOrderID: "PAY-GONE"})
	effects, err := m.ProcessReturn(context.Background())
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Equal(t, 0, gw.captureCount())
}

func TestDetachedFinalizeSkipsSettledTransaction(t *testing.T) {
	gw := &fakeGateway{}
	repo := newFakeRepo()
	repo.seedBookingWithTx(pendingBooking(), models.Transaction{
		ID:             "tx-done",
		Method:         models.MethodGateway,
		Status:         models.TxCompleted,
		GatewayOrderID: "PAY-DONE",
		CaptureID:      "CAP-OLD",
	})
	m := newTestManager(gw, repo, 5)

	m.Router.Publish(models.DeepLinkResult{Status: models.DeepLinkSuccess, GatewayOrderID: "PAY-DONE"})
	_, err := m.ProcessReturn(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, gw.captureCount(), "an already-settled transaction is never re-captured")
	tx := repo.txByOrder("PAY-DONE")
	require.NotNil(t, tx)
	assert.Equal(t, "CAP-OLD", tx.CaptureID)
}

// A manual capture can land before the return redirect does. The
// redirect that follows must settle as a no-op, not an error.
func TestSuccessReturnAfterManualCaptureIsNoOp(t *testing.T) {
	gw := &fakeGateway{order: &GatewayOrder{OrderID: "PAY-4", ApprovalURL: "https://gateway.test/a"}}
	repo := newFakeRepo()
	m := newTestManager(gw, repo, 5)

	resp, err := m.Checkout(context.Background(), gatewayCheckout())
	require.NoError(t, err)

	m.mu.Lock()
	saga := m.attempts[resp.AttemptID]
	m.mu.Unlock()
	require.NotNil(t, saga)
	waitMaterialized(t, saga)

	state, _, err := m.RetryCapture(context.Background(), resp.AttemptID)
	require.NoError(t, err)
	require.IsType(t, OrderCaptured{}, state)
	require.Equal(t, 1, gw.captureCount())

	claimed, err := m.Router.HasProcessed(context.Background(), "PAY-4")
	require.NoError(t, err)
	assert.True(t, claimed, "manual capture claims the order id")

	m.Router.Publish(models.DeepLinkResult{Status: models.DeepLinkSuccess, GatewayOrderID: "PAY-4"})
	effects, err := m.ProcessReturn(context.Background())
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Equal(t, 1, gw.captureCount(), "the settled order is never re-captured")

	state, err = m.AttemptState(resp.AttemptID)
	require.NoError(t, err)
	assert.IsType(t, OrderCaptured{}, state)
}

func TestRetryCaptureAfterFailedCapture(t *testing.T) {
	gw := &fakeGateway{
		order:      &GatewayOrder{OrderID: "PAY-3", ApprovalURL: "https://gateway.test/a"},
		captureErr: &GatewayError{StatusCode: 500, Message: "flaky"},
	}
	repo := newFakeRepo()
	m := newTestManager(gw, repo, 5)

	resp, err := m.Checkout(context.Background(), gatewayCheckout())
	require.NoError(t, err)

	m.mu.Lock()
	saga := m.attempts[resp.AttemptID]
	m.mu.Unlock()
	require.NotNil(t, saga)
	waitMaterialized(t, saga)

	m.Router.Publish(models.DeepLinkResult{Status: models.DeepLinkSuccess, GatewayOrderID: "PAY-3"})
	_, err = m.ProcessReturn(context.Background())
	require.NoError(t, err)

	state, err := m.AttemptState(resp.AttemptID)
	require.NoError(t, err)
	require.IsType(t, Failed{}, state)

	gw.mu.Lock()
	gw.captureErr = nil
	gw.mu.Unlock()

	state, _, err = m.RetryCapture(context.Background(), resp.AttemptID)
	require.NoError(t, err)
	assert.IsType(t, OrderCaptured{}, state)

	tx := repo.txByOrder("PAY-3")
	require.NotNil(t, tx)
	assert.Equal(t, models.TxCompleted, tx.Status)
}
