package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// --- Interfaces ---

// Gateway is the typed client over the payment gateway's four
// operations. Implementations are stateless request/response.
type Gateway interface {
	CreateOrder(ctx context.Context, amount, currency string) (*GatewayOrder, error)
	CaptureOrder(ctx context.Context, orderID string) (*GatewayCapture, error)
	GetOrder(ctx context.Context, orderID string) (*GatewayOrderDetail, error)
	RefundCapture(ctx context.Context, captureID, amount, reason string) (*GatewayRefund, error)
}

type GatewayOrder struct {
	OrderID     string `json:"orderId"`
	ApprovalURL string `json:"approvalUrl"`
}

type GatewayCapture struct {
	Status    string `json:"status"`
	CaptureID string `json:"captureId"`
}

type GatewayOrderDetail struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Amount  string `json:"amount"`
}

type GatewayRefund struct {
	Status string `json:"status"`
}

// --- HTTP implementation ---

// HTTPGateway talks to the gateway over plain HTTP with basic-auth
// client credentials. There is no persistent session.
type HTTPGateway struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	client       *http.Client
}

// NewHTTPGateway builds a gateway client with a per-call timeout.
func NewHTTPGateway(baseURL, clientID, clientSecret string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPGateway{
		BaseURL:      baseURL,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		client:       &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGateway) CreateOrder(ctx context.Context, amount, currency string) (*GatewayOrder, error) {
	body := map[string]string{"amount": amount, "currency": currency}
	var out GatewayOrder
	if err := g.do(ctx, http.MethodPost, "/orders", body, &out); err != nil {
		return nil, err
	}
	if out.OrderID == "" || out.ApprovalURL == "" {
		return nil, &GatewayError{Message: "order response missing orderId or approvalUrl"}
	}
	return &out, nil
}

func (g *HTTPGateway) CaptureOrder(ctx context.Context, orderID string) (*GatewayCapture, error) {
	var out GatewayCapture
	path := fmt.Sprintf("/orders/%s/capture", orderID)
	if err := g.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return nil, err
	}
	if out.CaptureID == "" {
		return nil, &GatewayError{Message: "capture response missing captureId"}
	}
	return &out, nil
}

func (g *HTTPGateway) GetOrder(ctx context.Context, orderID string) (*GatewayOrderDetail, error) {
	var out GatewayOrderDetail
	if err := g.do(ctx, http.MethodGet, "/orders/"+orderID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *HTTPGateway) RefundCapture(ctx context.Context, captureID, amount, reason string) (*GatewayRefund, error) {
	body := map[string]string{"reason": reason}
	if amount != "" {
		body["amount"] = amount
	}
	var out GatewayRefund
	path := fmt.Sprintf("/captures/%s/refund", captureID)
	if err := g.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs one gateway round-trip. Non-2xx responses and malformed
// bodies are folded into GatewayError with the gateway's message when
// one can be extracted.
func (g *HTTPGateway) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode gateway request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.SetBasicAuth(g.ClientID, g.ClientSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return &GatewayError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &GatewayError{StatusCode: resp.StatusCode, Message: "failed to read gateway response"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &GatewayError{StatusCode: resp.StatusCode, Message: gatewayMessage(raw)}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &GatewayError{StatusCode: resp.StatusCode, Message: "malformed gateway response"}
	}
	return nil
}

// gatewayMessage pulls the gateway's error message out of a failure
// body, falling back to the raw body.
func gatewayMessage(raw []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	if len(raw) == 0 {
		return "gateway returned an empty error response"
	}
	return string(raw)
}
