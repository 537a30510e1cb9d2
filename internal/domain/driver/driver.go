package driver

import (
	"time"

	"github.com/google/uuid"

	"github.com/swiftcab/ride-backend/internal/geo"
)

// Status represents driver availability status
type Status string

const (
	StatusOffline     Status = "offline"
	StatusAvailable   Status = "available"
	StatusReserved    Status = "reserved"
	StatusUnavailable Status = "unavailable"
)

// VehicleClass represents the class of vehicle a driver operates
type VehicleClass string

const (
	VehicleEconomy VehicleClass = "economy"
	VehiclePremium VehicleClass = "premium"
	VehicleLuxury  VehicleClass = "luxury"
)

// ApplicationStatus tracks a driver's onboarding application
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Driver represents a driver entity.
//
// Invariant: ReservedBy and ReservedUntil are non-nil iff Status is
// StatusReserved. A driver is held by at most one claimant at a time.
type Driver struct {
	ID               uuid.UUID    `json:"id"`
	Name             string       `json:"name"`
	Phone            string       `json:"phone"`
	Status           Status       `json:"status"`
	VehicleClass     VehicleClass `json:"vehicle_class"`
	CanDeliver       bool         `json:"can_deliver"`
	DeliveryClass    string       `json:"delivery_class,omitempty"`
	CurrentLatitude  *float64     `json:"current_latitude,omitempty"`
	CurrentLongitude *float64     `json:"current_longitude,omitempty"`
	Application      ApplicationStatus `json:"application_status"`
	ReservedBy       *uuid.UUID   `json:"reserved_by,omitempty"`
	ReservedUntil    *time.Time   `json:"reserved_until,omitempty"`
	RatingSum        float64      `json:"rating_sum"`
	RatingCount      int          `json:"rating_count"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Filter is the eligibility predicate a driver must satisfy to be a
// search candidate.
type Filter struct {
	VehicleClass  VehicleClass
	DeliveryOnly  bool
	DeliveryClass string
}

// Matches reports whether the driver is an eligible candidate: currently
// available, located, and satisfying the class filters.
func (f Filter) Matches(d *Driver) bool {
	if d.Status != StatusAvailable {
		return false
	}
	if d.CurrentLatitude == nil || d.CurrentLongitude == nil {
		return false
	}
	if f.VehicleClass != "" && d.VehicleClass != f.VehicleClass {
		return false
	}
	if f.DeliveryOnly {
		if !d.CanDeliver {
			return false
		}
		if f.DeliveryClass != "" && d.DeliveryClass != f.DeliveryClass {
			return false
		}
	}
	return true
}

// IsValid validates the status
func (s Status) IsValid() bool {
	switch s {
	case StatusOffline, StatusAvailable, StatusReserved, StatusUnavailable:
		return true
	}
	return false
}

// IsValid validates the vehicle class
func (v VehicleClass) IsValid() bool {
	switch v {
	case VehicleEconomy, VehiclePremium, VehicleLuxury:
		return true
	}
	return false
}

// CanGoOnline reports whether the driver may take trips; only approved
// applicants can come online.
func (d *Driver) CanGoOnline() bool {
	return d.Application == ApplicationApproved
}

// Location returns the driver's current location, or nil if unknown.
func (d *Driver) Location() *geo.Point {
	if d.CurrentLatitude == nil || d.CurrentLongitude == nil {
		return nil
	}
	return &geo.Point{Latitude: *d.CurrentLatitude, Longitude: *d.CurrentLongitude}
}

// SetLocation updates the driver's current location
func (d *Driver) SetLocation(lat, lng float64) {
	d.CurrentLatitude = &lat
	d.CurrentLongitude = &lng
	d.UpdatedAt = time.Now()
}

// Rating returns the driver's average rating, or zero if unrated.
func (d *Driver) Rating() float64 {
	if d.RatingCount == 0 {
		return 0
	}
	return d.RatingSum / float64(d.RatingCount)
}

// LeaseExpired reports whether a reservation lease has elapsed at ts.
func (d *Driver) LeaseExpired(ts time.Time) bool {
	return d.Status == StatusReserved && d.ReservedUntil != nil && ts.After(*d.ReservedUntil)
}
