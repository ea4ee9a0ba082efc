package routes

import (
	"net/http"
	"time"

	"snapfix/handlers"
	"snapfix/middleware"
	"snapfix/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the handlers the routes need.
type HandlerBundle struct {
	Payment      *handlers.PaymentHandler
	Booking      *handlers.BookingHandler
	Availability *handlers.AvailabilityHandler
}

// RegisterPaymentRoutes registers the checkout saga endpoints. The
// deep-link return target stays outside the authenticated group: the
// redirect back from the gateway carries no bearer token.
func RegisterPaymentRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.GET("/payments/return", hb.Payment.PaymentReturn)

	api := r.Group("/api/payments")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.POST("/checkout", hb.Payment.Checkout)
		api.GET("/attempts/:attemptID", hb.Payment.AttemptState)
		api.POST("/attempts/:attemptID/capture", hb.Payment.RetryCapture)
	}
}

// RegisterBookingRoutes registers booking reads, confirmation, and
// cancellation.
func RegisterBookingRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.GET("", hb.Booking.ListBookings)
		api.GET("/:id", hb.Booking.GetBooking)
		api.POST("/:id/cancel", hb.Booking.CancelBooking)
		api.POST("/:id/confirm", hb.Booking.ConfirmBooking)
	}
}

// RegisterAvailabilityRoutes registers the availability query.
func RegisterAvailabilityRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/availability")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.GET("", hb.Availability.Check)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "deps": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterPaymentRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterAvailabilityRoutes(r, hb)
}
