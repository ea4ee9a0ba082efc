package handlers

import (
	"errors"
	"net/http"

	"snapfix/models"
	"snapfix/services/availability"
	"snapfix/services/payment"
	"snapfix/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentHandler exposes the checkout saga over HTTP.
type PaymentHandler struct {
	Service payment.CheckoutService
	Router  *payment.DeepLinkRouter
	Logger  *zap.Logger
}

func NewPaymentHandler(service payment.CheckoutService, router *payment.DeepLinkRouter, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{Service: service, Router: router, Logger: logger}
}

// Checkout starts a checkout attempt (cash or gateway).
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if customerID := c.GetString("customerID"); customerID != "" {
		req.CustomerID = customerID
	}

	resp, err := h.Service.Checkout(c.Request.Context(), req)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AttemptState returns the saga state of a live checkout attempt.
func (h *PaymentHandler) AttemptState(c *gin.Context) {
	state, err := h.Service.AttemptState(c.Param("attemptID"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, stateBody(state))
}

// RetryCapture is the explicit user-triggered capture retry.
func (h *PaymentHandler) RetryCapture(c *gin.Context) {
	state, effects, err := h.Service.RetryCapture(c.Request.Context(), c.Param("attemptID"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	body := stateBody(state)
	applyEffects(body, effects)
	c.JSON(http.StatusOK, body)
}

// PaymentReturn is the deep-link return target. Parsing is idempotent:
// a missing or unrecognized status becomes "unknown" and no capture is
// ever attempted for it. The event goes through the single-slot router
// so duplicate deliveries collapse onto the dedup set.
func (h *PaymentHandler) PaymentReturn(c *gin.Context) {
	res := models.DeepLinkResult{
		Status:         models.ParseDeepLinkStatus(c.Query("status")),
		GatewayOrderID: c.Query("orderId"),
	}
	h.Router.Publish(res)

	effects, err := h.Service.ProcessReturn(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}

	body := gin.H{"received": string(res.Status)}
	applyEffects(body, effects)
	c.JSON(http.StatusOK, body)
}

func stateBody(state payment.SagaState) gin.H {
	body := gin.H{"state": state.Name()}
	switch st := state.(type) {
	case payment.OrderCreated:
		body["order_id"] = st.OrderID
		body["approval_url"] = st.ApprovalURL
	case payment.OrderCaptured:
		body["order_id"] = st.OrderID
		body["capture_id"] = st.CaptureID
		body["capture_status"] = st.Status
	case payment.Failed:
		body["error"] = st.Message
	}
	return body
}

func applyEffects(body gin.H, effects []payment.Effect) {
	for _, eff := range effects {
		switch e := eff.(type) {
		case payment.OpenApproval:
			body["approval_url"] = e.URL
		case payment.NotifyPaymentFailed:
			body["payment_failed"] = e.Message
		case payment.NotifyPaymentCancelled:
			body["payment_cancelled"] = true
		}
	}
}

func (h *PaymentHandler) renderError(c *gin.Context, err error) {
	var vErr *payment.ValidationError
	var aErr *availability.ValidationError
	var gErr *payment.GatewayError
	switch {
	case errors.As(err, &vErr), errors.As(err, &aErr):
		utils.JSONError(c, http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, availability.ErrWindowBusy):
		utils.JSONError(c, http.StatusConflict, "window busy", err.Error())
	case errors.As(err, &gErr):
		utils.JSONError(c, http.StatusBadGateway, "payment gateway error", gErr.Message)
	default:
		h.Logger.Error("payment request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong, please try again"})
	}
}
