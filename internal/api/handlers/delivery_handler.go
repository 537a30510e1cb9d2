package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swiftcab/ride-backend/internal/api/dto"
	"github.com/swiftcab/ride-backend/internal/domain/payment"
	"github.com/swiftcab/ride-backend/internal/geo"
	"github.com/swiftcab/ride-backend/internal/service/tripflow"
)

// CreateDelivery handles POST /v1/deliveries. Deliveries search a wider
// radius and auto-assign the first reserved driver; the response reports
// the assignment or the search failure.
func (h *Handlers) CreateDelivery(c *gin.Context) {
	var req dto.CreateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	riderID, err := uuid.Parse(req.RiderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rider_id"})
		return
	}

	t, err := h.Trips.CreateDelivery(c.Request.Context(), tripflow.CreateDeliveryInput{
		RiderID:          riderID,
		Pickup:           geo.Point{Latitude: req.PickupLatitude, Longitude: req.PickupLongitude},
		Dropoff:          geo.Point{Latitude: req.DropoffLatitude, Longitude: req.DropoffLongitude},
		PickupAddress:    req.PickupAddress,
		DropoffAddress:   req.DropoffAddress,
		DeliveryClass:    req.DeliveryClass,
		RecipientName:    req.RecipientName,
		RecipientContact: req.RecipientContact,
		PaymentMethod:    payment.Method(req.PaymentMethod),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.runSearch(c, h.DeliverySearch, t.ID)
}
