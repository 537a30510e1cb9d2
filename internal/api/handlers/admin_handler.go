package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/swiftcab/ride-backend/internal/api/dto"
	"github.com/swiftcab/ride-backend/internal/api/middleware"
	"github.com/swiftcab/ride-backend/internal/domain/driver"
	"github.com/swiftcab/ride-backend/internal/notify"
	apperrors "github.com/swiftcab/ride-backend/pkg/errors"
	"github.com/swiftcab/ride-backend/pkg/logger"
)

// AdminLogin handles POST /v1/admin/login
func (h *Handlers) AdminLogin(c *gin.Context) {
	var req dto.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	a, err := h.Admins.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.respondError(c, apperrors.Unauthorized("Invalid credentials", nil))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)); err != nil {
		h.respondError(c, apperrors.Unauthorized("Invalid credentials", nil))
		return
	}

	token, err := middleware.IssueToken(h.JWT.Secret, a.ID.String(), middleware.RoleAdmin, h.JWT.Expiry)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.Logger.Info("Admin logged in", logger.String("admin_id", a.ID.String()))
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int(h.JWT.Expiry.Seconds())})
}

// ListApplications handles GET /v1/admin/applications
func (h *Handlers) ListApplications(c *gin.Context) {
	status := driver.ApplicationStatus(c.DefaultQuery("status", string(driver.ApplicationPending)))

	applications, err := h.Drivers.ListApplications(c.Request.Context(), status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": applications, "count": len(applications)})
}

// ApproveApplication handles POST /v1/admin/applications/:id/approve
func (h *Handlers) ApproveApplication(c *gin.Context) {
	h.decideApplication(c, driver.ApplicationApproved, "Your driver application has been approved")
}

// RejectApplication handles POST /v1/admin/applications/:id/reject
func (h *Handlers) RejectApplication(c *gin.Context) {
	h.decideApplication(c, driver.ApplicationRejected, "Your driver application has been rejected")
}

func (h *Handlers) decideApplication(c *gin.Context, status driver.ApplicationStatus, message string) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if _, err := h.Drivers.GetByID(c.Request.Context(), id); err != nil {
		h.respondError(c, apperrors.ErrDriverNotFound)
		return
	}

	if err := h.Drivers.SetApplicationStatus(c.Request.Context(), id, status); err != nil {
		h.respondError(c, err)
		return
	}

	h.Logger.Info("Driver application decided",
		logger.String("driver_id", id.String()),
		logger.String("decision", string(status)),
	)
	h.Notifier.Notify(id.String(), notify.New(notify.EventApplicationStatus, id.String(), message).
		WithData(map[string]interface{}{"application_status": status}))

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Application " + string(status)})
}
