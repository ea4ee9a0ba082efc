package payment

// SagaState is the closed set of states a checkout attempt moves
// through. Consumers switch over the concrete variants; adding a state
// means revisiting every switch.
//
//	Idle -> Loading -> OrderCreated -> Loading -> OrderCaptured
//	                 \-> Failed (retry re-enters Loading)
type SagaState interface {
	sagaState()
	Name() string
}

// Idle is the state of a freshly constructed attempt.
type Idle struct{}

// Loading covers any in-flight gateway call.
type Loading struct{}

// OrderCreated holds the gateway order and the approval URL the
// customer must be handed to.
type OrderCreated struct {
	ApprovalURL string
	OrderID     string
}

// OrderCaptured is the terminal success state.
type OrderCaptured struct {
	Status    string
	CaptureID string
	OrderID   string
}

// Failed carries the gateway's message. The attempt may retry from here.
type Failed struct {
	Message string
}

func (Idle) sagaState()          {}
func (Loading) sagaState()       {}
func (OrderCreated) sagaState()  {}
func (OrderCaptured) sagaState() {}
func (Failed) sagaState()        {}

func (Idle) Name() string          { return "idle" }
func (Loading) Name() string       { return "loading" }
func (OrderCreated) Name() string  { return "order_created" }
func (OrderCaptured) Name() string { return "order_captured" }
func (Failed) Name() string        { return "failed" }

// Effect is a side effect the state machine asks its caller to execute.
// Keeping effects out of the machine lets the transitions be tested
// without a browser or OS integration behind them.
type Effect interface{ effect() }

// OpenApproval hands the customer off to the gateway's approval surface.
type OpenApproval struct {
	URL string
}

// NotifyPaymentFailed surfaces a payment failure to the customer.
type NotifyPaymentFailed struct {
	Message string
}

// NotifyPaymentCancelled tells the customer they walked away from the
// approval step. Nothing was captured; the booking stays pending.
type NotifyPaymentCancelled struct{}

func (OpenApproval) effect()           {}
func (NotifyPaymentFailed) effect()    {}
func (NotifyPaymentCancelled) effect() {}
