package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPGatewayCreateOrder(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(GatewayOrder{
			OrderID:     "PAY-100",
			ApprovalURL: "https://gateway.test/approve/PAY-100",
		})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "client-id", "client-secret", time.Second)
	order, err := gw.CreateOrder(context.Background(), "100000", "USD")
	require.NoError(t, err)

	assert.Equal(t, "/orders", gotPath)
	assert.Equal(t, "client-id", gotUser)
	assert.Equal(t, "client-secret", gotPass)
	assert.Equal(t, map[string]string{"amount": "100000", "currency": "USD"}, gotBody)
	assert.Equal(t, "PAY-100", order.OrderID)
	assert.Equal(t, "https://gateway.test/approve/PAY-100", order.ApprovalURL)
}

func TestHTTPGatewayCaptureOrderPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(GatewayCapture{Status: "COMPLETED", CaptureID: "CAP-1"})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "id", "secret", time.Second)
	capture, err := gw.CaptureOrder(context.Background(), "PAY-100")
	require.NoError(t, err)

	assert.Equal(t, "/orders/PAY-100/capture", gotPath)
	assert.Equal(t, "CAP-1", capture.CaptureID)
	assert.Equal(t, "COMPLETED", capture.Status)
}

func TestHTTPGatewayNon2xxCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ORDER_ALREADY_CAPTURED"})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "id", "secret", time.Second)
	_, err := gw.CaptureOrder(context.Background(), "PAY-100")

	var gErr *GatewayError
	require.ErrorAs(t, err, &gErr)
	assert.Equal(t, http.StatusUnprocessableEntity, gErr.StatusCode)
	assert.Equal(t, "ORDER_ALREADY_CAPTURED", gErr.Message)
}

func TestHTTPGatewayErrorFieldFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "INVALID_CURRENCY"})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "id", "secret", time.Second)
	_, err := gw.CreateOrder(context.Background(), "1", "XXX")

	var gErr *GatewayError
	require.ErrorAs(t, err, &gErr)
	assert.Equal(t, "INVALID_CURRENCY", gErr.Message)
}

func TestHTTPGatewayMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "id", "secret", time.Second)
	_, err := gw.CreateOrder(context.Background(), "100000", "USD")

	var gErr *GatewayError
	require.ErrorAs(t, err, &gErr)
	assert.Contains(t, gErr.Message, "malformed")
}

func TestHTTPGatewayIncompleteOrderResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(GatewayOrder{OrderID: "PAY-100"})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "id", "secret", time.Second)
	_, err := gw.CreateOrder(context.Background(), "100000", "USD")

	var gErr *GatewayError
	require.ErrorAs(t, err, &gErr)
	assert.Contains(t, gErr.Message, "approvalUrl")
}

func TestHTTPGatewayConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	gw := NewHTTPGateway(srv.URL, "id", "secret", time.Second)
	_, err := gw.CreateOrder(context.Background(), "100000", "USD")

	var gErr *GatewayError
	require.ErrorAs(t, err, &gErr)
	assert.Zero(t, gErr.StatusCode, "transport failures carry no HTTP status")
}

func TestHTTPGatewayRefund(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(GatewayRefund{Status: "COMPLETED"})
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, "id", "secret", time.Second)
	refund, err := gw.RefundCapture(context.Background(), "CAP-1", "100000", "booking cancelled")
	require.NoError(t, err)

	assert.Equal(t, "/captures/CAP-1/refund", gotPath)
	assert.Equal(t, "100000", gotBody["amount"])
	assert.Equal(t, "booking cancelled", gotBody["reason"])
	assert.Equal(t, "COMPLETED", refund.Status)
}
