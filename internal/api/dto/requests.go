package dto

import (
	"github.com/google/uuid"

	"github.com/swiftcab/ride-backend/internal/domain/driver"
	"github.com/swiftcab/ride-backend/internal/domain/trip"
)

// CreateRideRequest represents a request to create a new ride
type CreateRideRequest struct {
	RiderID          string  `json:"rider_id" binding:"required,uuid"`
	PickupLatitude   float64 `json:"pickup_latitude" binding:"required"`
	PickupLongitude  float64 `json:"pickup_longitude"`
	DropoffLatitude  float64 `json:"dropoff_latitude" binding:"required"`
	DropoffLongitude float64 `json:"dropoff_longitude"`
	PickupAddress    string  `json:"pickup_address"`
	DropoffAddress   string  `json:"dropoff_address"`
	VehicleClass     string  `json:"vehicle_class" binding:"omitempty,oneof=economy premium luxury"`
	Seats            int     `json:"seats"`
	PaymentMethod    string  `json:"payment_method" binding:"omitempty,oneof=cash card"`
}

// CreateDeliveryRequest represents a request to create a new delivery
type CreateDeliveryRequest struct {
	RiderID          string  `json:"rider_id" binding:"required,uuid"`
	PickupLatitude   float64 `json:"pickup_latitude" binding:"required"`
	PickupLongitude  float64 `json:"pickup_longitude"`
	DropoffLatitude  float64 `json:"dropoff_latitude" binding:"required"`
	DropoffLongitude float64 `json:"dropoff_longitude"`
	PickupAddress    string  `json:"pickup_address"`
	DropoffAddress   string  `json:"dropoff_address"`
	DeliveryClass    string  `json:"delivery_class"`
	RecipientName    string  `json:"recipient_name" binding:"required"`
	RecipientContact string  `json:"recipient_contact"`
	PaymentMethod    string  `json:"payment_method" binding:"omitempty,oneof=cash card"`
}

// AssignDriverRequest represents the requester confirming a reserved driver
type AssignDriverRequest struct {
	DriverID string `json:"driver_id" binding:"required,uuid"`
}

// CancelTripRequest represents a trip cancellation
type CancelTripRequest struct {
	Reason string `json:"reason"`
}

// PointRequest carries a coordinate pair
type PointRequest struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude"`
}

// SetPaymentMethodRequest changes how a trip will be paid
type SetPaymentMethodRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required,oneof=cash card"`
}

// RateDriverRequest records a driver rating
type RateDriverRequest struct {
	Stars float64 `json:"stars" binding:"required,min=1,max=5"`
}

// RegisterDriverRequest represents a driver onboarding application
type RegisterDriverRequest struct {
	Name          string `json:"name" binding:"required"`
	Phone         string `json:"phone" binding:"required"`
	VehicleClass  string `json:"vehicle_class" binding:"required,oneof=economy premium luxury"`
	CanDeliver    bool   `json:"can_deliver"`
	DeliveryClass string `json:"delivery_class"`
}

// SetDriverStatusRequest toggles a driver online or offline
type SetDriverStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=available offline"`
}

// UpdateLocationRequest represents a driver location update
type UpdateLocationRequest struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude"`
}

// AdminLoginRequest authenticates a back-office operator
type AdminLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// SearchResponse reports how a driver search resolved
type SearchResponse struct {
	Outcome      string     `json:"outcome"`
	Trip         *trip.Trip `json:"trip,omitempty"`
	FoundDrivers []string   `json:"found_drivers,omitempty"`
}

// DriverResponse is the public view of a driver
type DriverResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Status       string    `json:"status"`
	VehicleClass string    `json:"vehicle_class"`
	Rating       float64   `json:"rating"`
}

// NewDriverResponse builds the public view of a driver
func NewDriverResponse(d *driver.Driver) DriverResponse {
	return DriverResponse{
		ID:           d.ID,
		Name:         d.Name,
		Phone:        d.Phone,
		Status:       string(d.Status),
		VehicleClass: string(d.VehicleClass),
		Rating:       d.Rating(),
	}
}

// ErrorResponse is the error envelope
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse is the generic success envelope
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
