package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swiftcab/ride-backend/internal/api/handlers"
	"github.com/swiftcab/ride-backend/internal/api/middleware"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, nrApp *newrelic.Application) {
	// Add New Relic middleware if enabled
	if nrApp != nil {
		r.Use(nrgin.Middleware(nrApp))
	}

	// Health check and metrics
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := r.Group("/v1")
	v1.Use(middleware.OptionalAuth(h.JWT.Secret))
	{
		// WebSocket connection
		v1.GET("/ws", h.HandleWebSocket)

		// Ride endpoints
		rides := v1.Group("/rides")
		{
			rides.POST("", h.CreateRide)
		}

		// Delivery endpoints
		deliveries := v1.Group("/deliveries")
		{
			deliveries.POST("", h.CreateDelivery)
		}

		// Trip lifecycle endpoints
		trips := v1.Group("/trips")
		{
			trips.GET("/:id", h.GetTrip)
			trips.POST("/:id/assign", h.ConfirmBooking)
			trips.POST("/:id/arrived", h.DriverArrived)
			trips.POST("/:id/start", h.StartTrip)
			trips.POST("/:id/end", h.EndTrip)
			trips.POST("/:id/confirm-payment", h.ConfirmPayment)
			trips.POST("/:id/cancel", h.CancelTrip)
			trips.POST("/:id/find-new-driver", h.FindNewDriver)
			trips.POST("/:id/stops", h.AddStop)
			trips.PUT("/:id/destination", h.ChangeDestination)
			trips.PUT("/:id/payment-method", h.SetPaymentMethod)
			trips.POST("/:id/rating", h.RateDriver)
			trips.POST("/:id/location", h.ReportTripLocation)
			trips.GET("/:id/payment", h.GetTripPayment)
		}

		// Driver endpoints
		drivers := v1.Group("/drivers")
		{
			drivers.POST("", h.RegisterDriver)
			drivers.GET("/:id", h.GetDriver)
			drivers.POST("/:id/status", h.SetDriverStatus)
			drivers.POST("/:id/location", h.UpdateDriverLocation)
			drivers.GET("/:id/payments", h.ListDriverPayments)
		}

		// Admin endpoints
		admin := v1.Group("/admin")
		{
			admin.POST("/login", h.AdminLogin)

			protected := admin.Group("")
			protected.Use(middleware.RequireAuth(h.JWT.Secret), middleware.RequireAdmin())
			{
				protected.GET("/applications", h.ListApplications)
				protected.POST("/applications/:id/approve", h.ApproveApplication)
				protected.POST("/applications/:id/reject", h.RejectApplication)
			}
		}
	}
}
