package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetTripPayment handles GET /v1/trips/:id/payment
func (h *Handlers) GetTripPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	p, err := h.Payments.GetByTripID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListDriverPayments handles GET /v1/drivers/:id/payments: a driver's
// settlement history, newest first.
func (h *Handlers) ListDriverPayments(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	payments, err := h.Payments.ListByDriverID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments, "count": len(payments)})
}
