package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swiftcab/ride-backend/internal/api/dto"
	"github.com/swiftcab/ride-backend/internal/domain/driver"
	"github.com/swiftcab/ride-backend/internal/domain/payment"
	"github.com/swiftcab/ride-backend/internal/geo"
	"github.com/swiftcab/ride-backend/internal/service/search"
	"github.com/swiftcab/ride-backend/internal/service/tripflow"
	"github.com/swiftcab/ride-backend/pkg/logger"
)

// CreateRide handles POST /v1/rides. The request is held open while the
// driver search runs; the response reports how the search resolved.
func (h *Handlers) CreateRide(c *gin.Context) {
	var req dto.CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	riderID, err := uuid.Parse(req.RiderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rider_id"})
		return
	}

	t, err := h.Trips.CreateRide(c.Request.Context(), tripflow.CreateRideInput{
		RiderID:        riderID,
		Pickup:         geo.Point{Latitude: req.PickupLatitude, Longitude: req.PickupLongitude},
		Dropoff:        geo.Point{Latitude: req.DropoffLatitude, Longitude: req.DropoffLongitude},
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		VehicleClass:   driver.VehicleClass(req.VehicleClass),
		Seats:          req.Seats,
		PaymentMethod:  payment.Method(req.PaymentMethod),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.runSearch(c, h.RideSearch, t.ID)
}

// runSearch executes a driver search for the trip and writes the HTTP
// response from its resolution. Exactly one response is produced per
// request because the engine resolves exactly once.
func (h *Handlers) runSearch(c *gin.Context, engine *search.Engine, tripID uuid.UUID) {
	result, err := engine.Run(c.Request.Context(), tripID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	t, err := h.Trips.GetTrip(c.Request.Context(), tripID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	found := make([]string, 0, len(result.FoundDrivers))
	for _, id := range result.FoundDrivers {
		found = append(found, id.String())
	}

	resp := dto.SearchResponse{Outcome: string(result.Outcome), Trip: t, FoundDrivers: found}
	switch result.Outcome {
	case search.OutcomeNoDrivers:
		c.JSON(http.StatusNotFound, resp)
	default:
		c.JSON(http.StatusOK, resp)
	}
}

// GetTrip handles GET /v1/trips/:id
func (h *Handlers) GetTrip(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	t, err := h.Trips.GetTrip(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ConfirmBooking handles POST /v1/trips/:id/assign: the requester picks
// one of the reserved drivers.
func (h *Handlers) ConfirmBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.AssignDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	driverID, err := uuid.Parse(req.DriverID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid driver_id"})
		return
	}

	t, err := h.Trips.Assign(c.Request.Context(), id, driverID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// DriverArrived handles POST /v1/trips/:id/arrived
func (h *Handlers) DriverArrived(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	t, err := h.Trips.DriverArrivedAtPickup(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// StartTrip handles POST /v1/trips/:id/start
func (h *Handlers) StartTrip(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	t, err := h.Trips.Start(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// EndTrip handles POST /v1/trips/:id/end
func (h *Handlers) EndTrip(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	t, err := h.Trips.End(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ConfirmPayment handles POST /v1/trips/:id/confirm-payment
func (h *Handlers) ConfirmPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	t, err := h.Trips.ConfirmPayment(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// CancelTrip handles POST /v1/trips/:id/cancel
func (h *Handlers) CancelTrip(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.CancelTripRequest
	_ = c.ShouldBindJSON(&req) // reason is optional

	t, err := h.Trips.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// FindNewDriver handles POST /v1/trips/:id/find-new-driver: drops the
// assigned driver and immediately reruns the search, holding the request
// open like ride creation does.
func (h *Handlers) FindNewDriver(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	t, err := h.Trips.FindNewDriver(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.Logger.Info("Re-running driver search after reassignment",
		logger.String("trip_id", t.ID.String()),
	)
	h.runSearch(c, h.RideSearch, t.ID)
}

// AddStop handles POST /v1/trips/:id/stops
func (h *Handlers) AddStop(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.PointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	t, err := h.Trips.AddStop(c.Request.Context(), id, geo.Point{Latitude: req.Latitude, Longitude: req.Longitude})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ChangeDestination handles PUT /v1/trips/:id/destination
func (h *Handlers) ChangeDestination(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.PointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	t, err := h.Trips.ChangeDestination(c.Request.Context(), id, geo.Point{Latitude: req.Latitude, Longitude: req.Longitude})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// SetPaymentMethod handles PUT /v1/trips/:id/payment-method
func (h *Handlers) SetPaymentMethod(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.SetPaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	t, err := h.Trips.SetPaymentMethod(c.Request.Context(), id, payment.Method(req.PaymentMethod))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// RateDriver handles POST /v1/trips/:id/rating
func (h *Handlers) RateDriver(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.RateDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	t, err := h.Trips.RateDriver(c.Request.Context(), id, req.Stars)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// ReportTripLocation handles POST /v1/trips/:id/location: the assigned
// driver streams position updates that fan out to the requester.
func (h *Handlers) ReportTripLocation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	t, err := h.Trips.UpdateDriverLocation(c.Request.Context(), id, geo.Point{Latitude: req.Latitude, Longitude: req.Longitude})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
