package models

// DeepLinkStatus is the outcome reported by the payment-return deep link.
type DeepLinkStatus string

const (
	DeepLinkSuccess   DeepLinkStatus = "success"
	DeepLinkFailed    DeepLinkStatus = "failed"
	DeepLinkCancelled DeepLinkStatus = "cancelled"
	// DeepLinkUnknown covers missing or unrecognized statuses. Handled
	// like a failure: no capture is ever attempted for it.
	DeepLinkUnknown DeepLinkStatus = "unknown"
)

// DeepLinkResult is the identity-free payment-return event. The OS
// transport gives no delivery guarantee: zero, one, or multiple
// deliveries per order are all possible.
type DeepLinkResult struct {
	Status         DeepLinkStatus `json:"status"`
	GatewayOrderID string         `json:"order_id,omitempty"`
}

// ParseDeepLinkStatus maps a raw query value onto a DeepLinkStatus.
// Parsing is idempotent; anything unrecognized is "unknown".
func ParseDeepLinkStatus(raw string) DeepLinkStatus {
	switch DeepLinkStatus(raw) {
	case DeepLinkSuccess, DeepLinkFailed, DeepLinkCancelled:
		return DeepLinkStatus(raw)
	default:
		return DeepLinkUnknown
	}
}
