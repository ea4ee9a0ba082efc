package handlers

import (
	"errors"
	"net/http"
	"strconv"

	bookingRepo "snapfix/database/repository/booking"
	"snapfix/models"
	"snapfix/services/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes booking reads, confirmation transitions, and
// cancellation.
type BookingHandler struct {
	Repo         bookingRepo.BookingRepository
	Cancellation payment.CancellationService
	Logger       *zap.Logger
}

func NewBookingHandler(repo bookingRepo.BookingRepository, cancellation payment.CancellationService, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{Repo: repo, Cancellation: cancellation, Logger: logger}
}

// GetBooking returns a booking by id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	booking, err := h.Repo.GetBookingByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
			return
		}
		h.Logger.Error("booking lookup failed", zap.Int64("bookingID", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load booking"})
		return
	}
	c.JSON(http.StatusOK, booking)
}

// ListBookings returns the authenticated customer's bookings.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	customerID := c.GetString("customerID")
	if customerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing customer identity"})
		return
	}

	bookings, err := h.Repo.GetBookingsByCustomer(c.Request.Context(), customerID)
	if err != nil {
		h.Logger.Error("booking list failed", zap.String("customerID", customerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load bookings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// CancelBooking runs the cancellation flow for a pending booking.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	if err := h.Cancellation.Cancel(c.Request.Context(), id); err != nil {
		var vErr *payment.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Message})
			return
		}
		h.Logger.Error("cancellation failed", zap.Int64("bookingID", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel booking"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "booking_id": id})
}

// ConfirmBooking advances a booking's status by explicit confirmation.
// Only the confirmation transitions are reachable here; payment state
// is never touched by this endpoint.
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	var input struct {
		Status models.BookingStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	switch input.Status {
	case models.BookingAccepted, models.BookingCustomerConfirmed,
		models.BookingProviderConfirmed, models.BookingCompleted:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is not a confirmation transition"})
		return
	}

	if err := h.Repo.UpdateBookingStatus(c.Request.Context(), id, input.Status); err != nil {
		if errors.Is(err, bookingRepo.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "booking not found"})
			return
		}
		h.Logger.Error("status update failed", zap.Int64("bookingID", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update booking"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking_id": id, "status": input.Status})
}
