package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swiftcab/ride-backend/internal/api/dto"
	"github.com/swiftcab/ride-backend/internal/config"
	"github.com/swiftcab/ride-backend/internal/domain/admin"
	"github.com/swiftcab/ride-backend/internal/domain/driver"
	"github.com/swiftcab/ride-backend/internal/domain/payment"
	"github.com/swiftcab/ride-backend/internal/notify"
	"github.com/swiftcab/ride-backend/internal/service/search"
	"github.com/swiftcab/ride-backend/internal/service/tripflow"
	apperrors "github.com/swiftcab/ride-backend/pkg/errors"
	"github.com/swiftcab/ride-backend/pkg/logger"
	"github.com/swiftcab/ride-backend/pkg/websocket"
)

// Handlers holds all handler dependencies
type Handlers struct {
	Trips          *tripflow.Service
	RideSearch     *search.Engine
	DeliverySearch *search.Engine
	Drivers        driver.Repository
	Payments       payment.Repository
	Admins         admin.Repository
	Notifier       notify.Notifier
	Hub            *websocket.Hub
	Logger         *logger.Logger
	JWT            config.JWTConfig
	WS             config.WebSocketConfig
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	trips *tripflow.Service,
	rideSearch, deliverySearch *search.Engine,
	drivers driver.Repository,
	payments payment.Repository,
	admins admin.Repository,
	notifier notify.Notifier,
	hub *websocket.Hub,
	log *logger.Logger,
	jwtCfg config.JWTConfig,
	wsCfg config.WebSocketConfig,
) *Handlers {
	return &Handlers{
		Trips:          trips,
		RideSearch:     rideSearch,
		DeliverySearch: deliverySearch,
		Drivers:        drivers,
		Payments:       payments,
		Admins:         admins,
		Notifier:       notifier,
		Hub:            hub,
		Logger:         log,
		JWT:            jwtCfg,
		WS:             wsCfg,
	}
}

// respondError maps any error to the AppError envelope, hiding raw
// internals from the client.
func (h *Handlers) respondError(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.Logger.Error("Request failed",
			logger.String("path", c.FullPath()),
			logger.Err(err),
		)
	}
	c.JSON(appErr.Status, dto.ErrorResponse{Code: appErr.Code, Message: appErr.Message})
}

// pathID parses the :id path parameter as a UUID.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid id"})
		return uuid.Nil, false
	}
	return id, true
}
