package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swiftcab/ride-backend/internal/api/dto"
	"github.com/swiftcab/ride-backend/internal/domain/driver"
	apperrors "github.com/swiftcab/ride-backend/pkg/errors"
	"github.com/swiftcab/ride-backend/pkg/logger"
)

// RegisterDriver handles POST /v1/drivers: a new onboarding application,
// offline until an admin approves it.
func (h *Handlers) RegisterDriver(c *gin.Context) {
	var req dto.RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	now := time.Now()
	d := &driver.Driver{
		ID:            uuid.New(),
		Name:          req.Name,
		Phone:         req.Phone,
		Status:        driver.StatusOffline,
		VehicleClass:  driver.VehicleClass(req.VehicleClass),
		CanDeliver:    req.CanDeliver,
		DeliveryClass: req.DeliveryClass,
		Application:   driver.ApplicationPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.Drivers.Create(c.Request.Context(), d); err != nil {
		h.respondError(c, err)
		return
	}

	h.Logger.Info("Driver application received",
		logger.String("driver_id", d.ID.String()),
		logger.String("vehicle_class", string(d.VehicleClass)),
	)
	c.JSON(http.StatusCreated, d)
}

// GetDriver handles GET /v1/drivers/:id
func (h *Handlers) GetDriver(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	d, err := h.Drivers.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, apperrors.ErrDriverNotFound)
		return
	}
	c.JSON(http.StatusOK, dto.NewDriverResponse(d))
}

// SetDriverStatus handles POST /v1/drivers/:id/status: drivers toggle
// themselves available or offline. Only approved applicants can go
// online.
func (h *Handlers) SetDriverStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.SetDriverStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	d, err := h.Drivers.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, apperrors.ErrDriverNotFound)
		return
	}

	status := driver.Status(req.Status)
	if status == driver.StatusAvailable && !d.CanGoOnline() {
		h.respondError(c, apperrors.Forbidden("Driver application is not approved", nil))
		return
	}

	if err := h.Drivers.SetStatus(c.Request.Context(), id, status); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Status updated"})
}

// UpdateDriverLocation handles POST /v1/drivers/:id/location
func (h *Handlers) UpdateDriverLocation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	if err := h.Drivers.UpdateLocation(c.Request.Context(), id, req.Latitude, req.Longitude); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Location updated"})
}
