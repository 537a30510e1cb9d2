package trip

import (
	"time"

	"github.com/google/uuid"

	"github.com/swiftcab/ride-backend/internal/geo"
)

// Status represents trip lifecycle status
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusOngoing   Status = "ongoing"
	StatusArrived   Status = "arrived"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Kind distinguishes ride requests from delivery requests
type Kind string

const (
	KindRide     Kind = "ride"
	KindDelivery Kind = "delivery"
)

// Trip represents a ride or delivery request and its lifecycle.
//
// Invariants: status moves monotonically along the state machine below; a
// trip has at most one assigned driver; DriverID is non-nil iff status is
// confirmed, ongoing, or arrived.
type Trip struct {
	ID                     uuid.UUID  `json:"id"`
	RiderID                uuid.UUID  `json:"rider_id"`
	DriverID               *uuid.UUID `json:"driver_id,omitempty"`
	Kind                   Kind       `json:"kind"`
	Status                 Status     `json:"status"`
	Pickup                 geo.Point  `json:"pickup"`
	Dropoff                geo.Point  `json:"dropoff"`
	ThirdStop              *geo.Point `json:"third_stop,omitempty"`
	HasThirdStop           bool       `json:"has_third_stop"`
	PickupAddress          string     `json:"pickup_address,omitempty"`
	DropoffAddress         string     `json:"dropoff_address,omitempty"`
	Price                  float64    `json:"price"`
	VehicleClass           string     `json:"vehicle_class,omitempty"`
	Seats                  int        `json:"seats,omitempty"`
	PaymentMethod          string     `json:"payment_method"`
	PaymentReceived        bool       `json:"payment_received"`
	DeliveryClass          string     `json:"delivery_class,omitempty"`
	RecipientName          string     `json:"recipient_name,omitempty"`
	RecipientContact       string     `json:"recipient_contact,omitempty"`
	DriverArrivedAtPickup  bool       `json:"driver_arrived_at_pickup"`
	DriverArrivedAtDropoff bool       `json:"driver_arrived_at_dropoff"`
	ReachedThirdStop       bool       `json:"reached_third_stop"`
	Rated                  bool       `json:"rated"`
	DriverLocation         *geo.Point `json:"driver_location,omitempty"`
	CancellationReason     string     `json:"cancellation_reason,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// transitions is the set of valid status edges. Cancelled is reachable
// from pending, confirmed, and ongoing; confirmed re-enters pending when
// a driver disengages without cancelling the trip.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusOngoing, StatusPending, StatusCancelled},
	StatusOngoing:   {StatusArrived, StatusCancelled},
	StatusArrived:   {StatusCompleted},
}

// CanTransitionTo reports whether moving from s to next is a valid edge
// of the trip state machine.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsValid validates the status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusOngoing, StatusArrived, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Guard helpers; each transition re-checks these against freshly read
// state before mutating, so retries are safe.

// CanAssign reports whether a driver can be assigned to this trip
func (t *Trip) CanAssign() bool {
	return t.Status == StatusPending
}

// CanMarkArrivedAtPickup reports whether pickup arrival can be flagged
func (t *Trip) CanMarkArrivedAtPickup() bool {
	return t.Status == StatusConfirmed
}

// CanStart reports whether the ride can move to ongoing
func (t *Trip) CanStart() bool {
	return t.Status == StatusConfirmed && t.DriverArrivedAtPickup
}

// CanEnd reports whether the trip can move to arrived
func (t *Trip) CanEnd() bool {
	return t.Status == StatusOngoing
}

// CanConfirmPayment reports whether payment confirmation is allowed;
// callers additionally enforce the driver-proximity guard.
func (t *Trip) CanConfirmPayment() bool {
	return t.Status == StatusArrived && t.DriverArrivedAtDropoff
}

// CanCancel reports whether the trip can be cancelled
func (t *Trip) CanCancel() bool {
	switch t.Status {
	case StatusPending, StatusConfirmed, StatusOngoing:
		return true
	}
	return false
}

// CanReassign reports whether the trip can drop its driver and re-enter
// the pending state.
func (t *Trip) CanReassign() bool {
	return t.Status == StatusConfirmed
}

// FinalDestination returns where the trip actually ends: the third stop
// when one was added, the dropoff otherwise.
func (t *Trip) FinalDestination() geo.Point {
	if t.HasThirdStop && t.ThirdStop != nil {
		return *t.ThirdStop
	}
	return t.Dropoff
}

// CanRate reports whether the requester can still rate the driver
func (t *Trip) CanRate() bool {
	return t.Status == StatusCompleted && !t.Rated && t.DriverID != nil
}
