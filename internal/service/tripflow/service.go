package tripflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/swiftcab/ride-backend/internal/domain/driver"
	"github.com/swiftcab/ride-backend/internal/domain/payment"
	"github.com/swiftcab/ride-backend/internal/domain/trip"
	"github.com/swiftcab/ride-backend/internal/geo"
	"github.com/swiftcab/ride-backend/internal/notify"
	"github.com/swiftcab/ride-backend/internal/observability"
	apperrors "github.com/swiftcab/ride-backend/pkg/errors"
	"github.com/swiftcab/ride-backend/pkg/logger"
)

// TripStore is the subset of trip storage the service needs.
type TripStore interface {
	Create(ctx context.Context, t *trip.Trip) error
	GetByID(ctx context.Context, id uuid.UUID) (*trip.Trip, error)
	Update(ctx context.Context, t *trip.Trip) error
}

// DriverStore is the subset of driver storage the service needs.
type DriverStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*driver.Driver, error)
	Assign(ctx context.Context, id uuid.UUID) (*driver.Driver, error)
	Release(ctx context.Context, id uuid.UUID) error
	AddRating(ctx context.Context, id uuid.UUID, stars float64) error
	UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error
	Watch(ctx context.Context, id uuid.UUID) (<-chan *driver.Driver, driver.UnsubscribeFunc, error)
}

// Pricer prices trips at creation and reprices on route changes.
type Pricer interface {
	EstimateRideFare(ctx context.Context, class driver.VehicleClass, pickup, dropoff geo.Point, thirdStop *geo.Point, region string) float64
	EstimateDeliveryFare(pickup, dropoff geo.Point) float64
	RepriceForStop(class driver.VehicleClass, dropoff, stop geo.Point) float64
	RepriceForDestination(class driver.VehicleClass, pickup, newDropoff geo.Point) float64
}

// Config holds the proximity thresholds guarding payment confirmation and
// mid-trip route changes.
type Config struct {
	// PaymentProximityKM is how close the driver must be to the final
	// destination before payment can be confirmed.
	PaymentProximityKM float64
	// RouteChangeMinKM is how far the driver must still be from the
	// dropoff for a stop or destination change to be accepted.
	RouteChangeMinKM float64
	// PricingRegion selects the surge region used when pricing rides.
	PricingRegion string
}

// Service drives the trip lifecycle: creation, assignment, the
// pickup-to-payment progression, cancellation, reassignment, and mid-trip
// route changes. Every transition re-reads the trip and checks its guard
// against fresh state before mutating.
type Service struct {
	trips    TripStore
	drivers  DriverStore
	payments payment.Repository
	pricer   Pricer
	notifier notify.Notifier
	logger   *logger.Logger
	cfg      Config
}

// NewService creates a trip lifecycle service.
func NewService(trips TripStore, drivers DriverStore, payments payment.Repository, pricer Pricer, notifier notify.Notifier, log *logger.Logger, cfg Config) *Service {
	return &Service{
		trips:    trips,
		drivers:  drivers,
		payments: payments,
		pricer:   pricer,
		notifier: notifier,
		logger:   log,
		cfg:      cfg,
	}
}

// CreateRideInput carries a new ride request.
type CreateRideInput struct {
	RiderID        uuid.UUID
	Pickup         geo.Point
	Dropoff        geo.Point
	PickupAddress  string
	DropoffAddress string
	VehicleClass   driver.VehicleClass
	Seats          int
	PaymentMethod  payment.Method
}

// CreateRide prices and records a new ride request in the pending state.
func (s *Service) CreateRide(ctx context.Context, in CreateRideInput) (*trip.Trip, error) {
	if !in.Pickup.Valid() || !in.Dropoff.Valid() {
		return nil, apperrors.ErrInvalidCoordinates
	}
	if in.VehicleClass != "" && !in.VehicleClass.IsValid() {
		return nil, apperrors.BadRequest("Unknown vehicle class", nil)
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = payment.MethodCash
	}
	if !in.PaymentMethod.IsValid() {
		return nil, apperrors.BadRequest("Unknown payment method", nil)
	}

	class := in.VehicleClass
	if class == "" {
		class = driver.VehicleEconomy
	}

	now := time.Now()
	t := &trip.Trip{
		ID:             uuid.New(),
		RiderID:        in.RiderID,
		Kind:           trip.KindRide,
		Status:         trip.StatusPending,
		Pickup:         in.Pickup,
		Dropoff:        in.Dropoff,
		PickupAddress:  in.PickupAddress,
		DropoffAddress: in.DropoffAddress,
		VehicleClass:   string(in.VehicleClass),
		Seats:          in.Seats,
		PaymentMethod:  string(in.PaymentMethod),
		Price:          s.pricer.EstimateRideFare(ctx, class, in.Pickup, in.Dropoff, nil, s.cfg.PricingRegion),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.trips.Create(ctx, t); err != nil {
		return nil, err
	}

	observability.TripTransitions.WithLabelValues(string(trip.StatusPending)).Inc()
	s.logger.Info("Ride request created",
		logger.String("trip_id", t.ID.String()),
		logger.String("rider_id", t.RiderID.String()),
		logger.Float64("price", t.Price),
	)

	rider := t.RiderID.String()
	s.notifier.Notify(rider, notify.New(notify.EventRequestReceived, rider, "Your ride request has been received").
		WithData(map[string]interface{}{"trip_id": t.ID.String(), "price": t.Price}))

	return t, nil
}

// CreateDeliveryInput carries a new delivery request.
type CreateDeliveryInput struct {
	RiderID          uuid.UUID
	Pickup           geo.Point
	Dropoff          geo.Point
	PickupAddress    string
	DropoffAddress   string
	DeliveryClass    string
	RecipientName    string
	RecipientContact string
	PaymentMethod    payment.Method
}

// CreateDelivery prices and records a new delivery request. Deliveries
// share the trip lifecycle but are matched against delivery-capable
// drivers and auto-assigned.
func (s *Service) CreateDelivery(ctx context.Context, in CreateDeliveryInput) (*trip.Trip, error) {
	if !in.Pickup.Valid() || !in.Dropoff.Valid() {
		return nil, apperrors.ErrInvalidCoordinates
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = payment.MethodCash
	}
	if !in.PaymentMethod.IsValid() {
		return nil, apperrors.BadRequest("Unknown payment method", nil)
	}

	now := time.Now()
	t := &trip.Trip{
		ID:               uuid.New(),
		RiderID:          in.RiderID,
		Kind:             trip.KindDelivery,
		Status:           trip.StatusPending,
		Pickup:           in.Pickup,
		Dropoff:          in.Dropoff,
		PickupAddress:    in.PickupAddress,
		DropoffAddress:   in.DropoffAddress,
		DeliveryClass:    in.DeliveryClass,
		RecipientName:    in.RecipientName,
		RecipientContact: in.RecipientContact,
		PaymentMethod:    string(in.PaymentMethod),
		Price:            s.pricer.EstimateDeliveryFare(in.Pickup, in.Dropoff),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.trips.Create(ctx, t); err != nil {
		return nil, err
	}

	observability.TripTransitions.WithLabelValues(string(trip.StatusPending)).Inc()
	s.logger.Info("Delivery request created",
		logger.String("trip_id", t.ID.String()),
		logger.String("rider_id", t.RiderID.String()),
		logger.Float64("price", t.Price),
	)

	rider := t.RiderID.String()
	s.notifier.Notify(rider, notify.New(notify.EventRequestReceived, rider, "Your delivery request has been received").
		WithData(map[string]interface{}{"trip_id": t.ID.String(), "price": t.Price}))

	return t, nil
}

// GetTrip fetches a trip by id.
func (s *Service) GetTrip(ctx context.Context, id uuid.UUID) (*trip.Trip, error) {
	t, err := s.trips.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, trip.ErrTripNotFound) {
			return nil, apperrors.ErrTripNotFound
		}
		return nil, err
	}
	return t, nil
}

// Assign confirms the booking with the given driver: the driver's
// reservation is consumed and the trip moves to confirmed. Assigning an
// unreserved driver fails with ErrDriverUnavailable.
func (s *Service) Assign(ctx context.Context, tripID, driverID uuid.UUID) (*trip.Trip, error) {
	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !t.CanAssign() {
		return nil, apperrors.ErrInvalidTransition
	}

	d, err := s.drivers.Assign(ctx, driverID)
	if err != nil {
		if errors.Is(err, driver.ErrDriverNotFound) {
			return nil, apperrors.ErrDriverNotFound
		}
		if errors.Is(err, driver.ErrDriverUnavailable) {
			return nil, apperrors.ErrDriverUnavailable
		}
		return nil, err
	}

	t.DriverID = &driverID
	t.Status = trip.StatusConfirmed
	t.DriverLocation = d.Location()
	t.UpdatedAt = time.Now()
	if err := s.trips.Update(ctx, t); err != nil {
		// Hand the driver back rather than stranding them unavailable.
		if relErr := s.drivers.Release(ctx, driverID); relErr != nil {
			s.logger.Error("Failed to release driver after assignment rollback",
				logger.String("driver_id", driverID.String()),
				logger.Err(relErr),
			)
		}
		return nil, err
	}

	s.recordTransition(t, trip.StatusConfirmed)

	// Mirror driver record updates onto the trip until the driver is
	// released; completion, cancellation and reassignment all release.
	go func() {
		if err := s.TrackDriver(context.Background(), t.ID); err != nil {
			s.logger.Warn("Driver tracking ended with error",
				logger.String("trip_id", t.ID.String()),
				logger.Err(err),
			)
		}
	}()

	s.notifier.Notify(driverID.String(), notify.New(notify.EventDriverAssigned, driverID.String(), "You have been assigned a trip").
		WithData(map[string]interface{}{"trip_id": t.ID.String(), "pickup": t.Pickup, "dropoff": t.Dropoff, "price": t.Price}))
	rider := t.RiderID.String()
	s.notifier.Notify(rider, notify.New(notify.EventDriverAssigned, rider, "A driver has been assigned to your trip").
		WithData(map[string]interface{}{"trip_id": t.ID.String(), "driver_id": driverID.String(), "driver_name": d.Name}))

	return t, nil
}

// DriverArrivedAtPickup flags pickup arrival on a confirmed trip.
func (s *Service) DriverArrivedAtPickup(ctx context.Context, tripID uuid.UUID) (*trip.Trip, error) {
	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !t.CanMarkArrivedAtPickup() {
		return nil, apperrors.ErrInvalidTransition
	}

	t.DriverArrivedAtPickup = true
	t.UpdatedAt = time.Now()
	if err := s.trips.Update(ctx, t); err != nil {
		return nil, err
	}

	rider := t.RiderID.String()
	s.notifier.Notify(rider, notify.New(notify.EventDriverArrived, rider, "Your driver has arrived at the pickup location"))
	return t, nil
}

// Start moves a confirmed trip with the driver at the pickup to ongoing.
func (s *Service) Start(ctx context.Context, tripID uuid.UUID) (*trip.Trip, error) {
	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !t.CanStart() {
		return nil, apperrors.ErrInvalidTransition
	}

	t.Status = trip.StatusOngoing
	t.UpdatedAt = time.Now()
	if err := s.trips.Update(ctx, t); err != nil {
		return nil, err
	}

	s.recordTransition(t, trip.StatusOngoing)
	rider := t.RiderID.String()
	s.notifier.Notify(rider, notify.New(notify.EventRideStarted, rider, "Your trip has started"))
	return t, nil
}

// End moves an ongoing trip to arrived and flags dropoff arrival.
func (s *Service) End(ctx context.Context, tripID uuid.UUID) (*trip.Trip, error) {
	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !t.CanEnd() {
		return nil, apperrors.ErrInvalidTransition
	}

	t.Status = trip.StatusArrived
	t.DriverArrivedAtDropoff = true
	t.UpdatedAt = time.Now()
	if err := s.trips.Update(ctx, t); err != nil {
		return nil, err
	}

	s.recordTransition(t, trip.StatusArrived)
	rider := t.RiderID.String()
	s.notifier.Notify(rider, notify.New(notify.EventRideEnded, rider, "You have arrived; please confirm payment").
		WithData(map[string]interface{}{"trip_id": t.ID.String(), "price": t.Price, "payment_method": t.PaymentMethod}))
	return t, nil
}

// ConfirmPayment settles an arrived trip: the driver must be within the
// configured proximity of the final destination. Writes the payment
// record, completes the trip, and releases the driver back to available.
func (s *Service) ConfirmPayment(ctx context.Context, tripID uuid.UUID) (*trip.Trip, error) {
	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !t.CanConfirmPayment() {
		return nil, apperrors.ErrInvalidTransition
	}

	dist, err := s.driverDistanceFrom(ctx, t, t.FinalDestination())
	if err != nil {
		return nil, err
	}
	if dist > s.cfg.PaymentProximityKM {
		return nil, apperrors.InvalidState("Driver is not at the drop-off location", nil)
	}

	now := time.Now()
	rec := &payment.Payment{
		ID:            uuid.New(),
		TripID:        t.ID,
		RiderID:       t.RiderID,
		DriverID:      *t.DriverID,
		Amount:        t.Price,
		Status:        payment.StatusCompleted,
		PaymentMethod: payment.Method(t.PaymentMethod),
		ProcessedAt:   &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.payments.Create(ctx, rec); err != nil {
		return nil, err
	}

	driverID := *t.DriverID
	t.Status = trip.StatusCompleted
	t.PaymentReceived = true
	t.UpdatedAt = now
	if err := s.trips.Update(ctx, t); err != nil {
		return nil, err
	}

	if err := s.drivers.Release(ctx, driverID); err != nil {
		s.logger.Error("Failed to release driver after completion",
			logger.String("driver_id", driverID.String()),
			logger.Err(err),
		)
	}

	s.recordTransition(t, trip.StatusCompleted)

	rider := t.RiderID.String()
	data := map[string]interface{}{"trip_id": t.ID.String(), "amount": rec.Amount, "payment_method": rec.PaymentMethod}
	s.notifier.Notify(rider, notify.New(notify.EventPaymentReceived, rider, "Payment received, trip completed").WithData(data))
	s.notifier.Notify(driverID.String(), notify.New(notify.EventPaymentReceived, driverID.String(), "Payment received, trip completed").WithData(data))

	return t, nil
}

// Cancel aborts a trip that has not yet completed. An assigned driver is
// released back to available.
func (s *Service) Cancel(ctx context.Context, tripID uuid.UUID, reason string) (*trip.Trip, error) {
	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !t.CanCancel() {
		return nil, apperrors.ErrInvalidTransition
	}

	if t.DriverID != nil {
		driverID := *t.DriverID
		if err := s.drivers.Release(ctx, driverID); err != nil {
			s.logger.Error("Failed to release driver on cancellation",
				logger.String("driver_id", driverID.String()),
				logger.Err(err),
			)
		}
		s.notifier.Notify(driverID.String(), notify.New(notify.EventBookingCancelled, driverID.String(), "The trip has been cancelled").
			WithData(map[string]interface{}{"trip_id": t.ID.String(), "reason": reason}))
	}

	t.Status = trip.StatusCancelled
	t.CancellationReason = reason
	t.DriverID = nil
	t.UpdatedAt = time.Now()
	if err := s.trips.Update(ctx, t); err != nil {
		return nil, err
	}

	s.recordTransition(t, trip.StatusCancelled)
	rider := t.RiderID.String()
	s.notifier.Notify(rider, notify.New(notify.EventBookingCancelled, rider, "Your booking has been cancelled"))
	return t, nil
}

// FindNewDriver drops the assigned driver from a confirmed trip and
// re-enters pending so a fresh search can run. The dropped driver is
// released and told; pickup arrival is reset.
func (s *Service) FindNewDriver(ctx context.Context, tripID uuid.UUID) (*trip.Trip, error) {
	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !t.CanReassign() || t.DriverID == nil {
		return nil, apperrors.ErrInvalidTransition
	}

	driverID := *t.DriverID
	if err := s.drivers.Release(ctx, driverID); err != nil {
		s.logger.Error("Failed to release driver on reassignment",
			logger.String("driver_id", driverID.String()),
			logger.Err(err),
		)
	}

	t.DriverID = nil
	t.Status = trip.StatusPending
	t.DriverArrivedAtPickup = false
	t.DriverLocation = nil
	t.UpdatedAt = time.Now()
	if err := s.trips.Update(ctx, t); err != nil {
		return nil, err
	}

	s.recordTransition(t, trip.StatusPending)
	s.notifier.Notify(driverID.String(), notify.New(notify.EventDriverReleased, driverID.String(), "The requester is looking for a different driver"))
	return t, nil
}

// AddStop appends a third stop after the current dropoff. Rejected once a
// stop exists, or when the driver is already near the dropoff.
func (s *Service) AddStop(ctx context.Context, tripID uuid.UUID, stop geo.Point) (*trip.Trip, error) {
	if !stop.Valid() {
		return nil, apperrors.ErrInvalidCoordinates
	}

	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t.Status != trip.StatusConfirmed && t.Status != trip.StatusOngoing {
		return nil, apperrors.ErrInvalidTransition
	}
	if t.HasThirdStop {
		return nil, apperrors.ErrTripAlreadyHasStop
	}
	if err := s.guardRouteChange(ctx, t); err != nil {
		return nil, err
	}

	t.ThirdStop = &stop
	t.HasThirdStop = true
	t.Price += s.pricer.RepriceForStop(s.vehicleClass(t), t.Dropoff, stop)
	t.UpdatedAt = time.Now()
	if err := s.trips.Update(ctx, t); err != nil {
		return nil, err
	}

	data := map[string]interface{}{"trip_id": t.ID.String(), "stop": stop, "price": t.Price}
	rider := t.RiderID.String()
	s.notifier.Notify(rider, notify.New(notify.EventStopAdded, rider, "An extra stop was added to your trip").WithData(data))
	if t.DriverID != nil {
		id := t.DriverID.String()
		s.notifier.Notify(id, notify.New(notify.EventStopAdded, id, "An extra stop was added to the trip").WithData(data))
	}
	return t, nil
}

// ChangeDestination moves the dropoff of a confirmed or ongoing trip and
// reprices it. Rejected when the driver is already near the dropoff.
func (s *Service) ChangeDestination(ctx context.Context, tripID uuid.UUID, newDropoff geo.Point) (*trip.Trip, error) {
	if !newDropoff.Valid() {
		return nil, apperrors.ErrInvalidCoordinates
	}

	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t.Status != trip.StatusConfirmed && t.Status != trip.StatusOngoing {
		return nil, apperrors.ErrInvalidTransition
	}
	if err := s.guardRouteChange(ctx, t); err != nil {
		return nil, err
	}

	t.Dropoff = newDropoff
	t.Price = s.pricer.RepriceForDestination(s.vehicleClass(t), t.Pickup, newDropoff)
	t.DriverArrivedAtDropoff = false
	t.UpdatedAt = time.Now()
	if err := s.trips.Update(ctx, t); err != nil {
		return nil, err
	}

	data := map[string]interface{}{"trip_id": t.ID.String(), "dropoff": newDropoff, "price": t.Price}
	rider := t.RiderID.String()
	s.notifier.Notify(rider, notify.New(notify.EventDestinationMoved, rider, "Your drop-off location was updated").WithData(data))
	if t.DriverID != nil {
		id := t.DriverID.String()
		s.notifier.Notify(id, notify.New(notify.EventDestinationMoved, id, "The drop-off location was updated").WithData(data))
	}
	return t, nil
}

// SetPaymentMethod changes how the trip will be paid; allowed any time
// before payment is confirmed.
func (s *Service) SetPaymentMethod(ctx context.Context, tripID uuid.UUID, method payment.Method) (*trip.Trip, error) {
	if !method.IsValid() {
		return nil, apperrors.BadRequest("Unknown payment method", nil)
	}

	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t.PaymentReceived || t.Status.IsTerminal() {
		return nil, apperrors.ErrInvalidTransition
	}

	t.PaymentMethod = string(method)
	t.UpdatedAt = time.Now()
	if err := s.trips.Update(ctx, t); err != nil {
		return nil, err
	}

	if t.DriverID != nil {
		id := t.DriverID.String()
		s.notifier.Notify(id, notify.New(notify.EventPaymentChanged, id, "The payment method was changed").
			WithData(map[string]interface{}{"trip_id": t.ID.String(), "payment_method": method}))
	}
	return t, nil
}

// RateDriver records a one-time rating for the driver of a completed trip.
func (s *Service) RateDriver(ctx context.Context, tripID uuid.UUID, stars float64) (*trip.Trip, error) {
	if stars < 1 || stars > 5 {
		return nil, apperrors.BadRequest("Rating must be between 1 and 5", nil)
	}

	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if !t.CanRate() {
		return nil, apperrors.ErrInvalidTransition
	}

	if err := s.drivers.AddRating(ctx, *t.DriverID, stars); err != nil {
		return nil, err
	}

	t.Rated = true
	t.UpdatedAt = time.Now()
	if err := s.trips.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateDriverLocation records a driver position report against an active
// trip and streams it to the requester.
func (s *Service) UpdateDriverLocation(ctx context.Context, tripID uuid.UUID, loc geo.Point) (*trip.Trip, error) {
	if !loc.Valid() {
		return nil, apperrors.ErrInvalidCoordinates
	}

	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t.DriverID == nil || t.Status.IsTerminal() {
		return nil, apperrors.ErrInvalidTransition
	}

	if err := s.drivers.UpdateLocation(ctx, *t.DriverID, loc.Latitude, loc.Longitude); err != nil {
		return nil, err
	}

	t.DriverLocation = &loc
	t.UpdatedAt = time.Now()
	if err := s.trips.Update(ctx, t); err != nil {
		return nil, err
	}

	observability.LocationUpdates.Inc()
	rider := t.RiderID.String()
	s.notifier.Notify(rider, notify.New(notify.EventLocationUpdated, rider, "Driver location updated").
		WithData(map[string]interface{}{"trip_id": t.ID.String(), "latitude": loc.Latitude, "longitude": loc.Longitude}))
	return t, nil
}

// TrackDriver follows the assigned driver's record and copies location
// changes onto the trip, pushing each to the requester. Returns when the
// driver is released, the trip reaches a terminal status, or ctx ends.
func (s *Service) TrackDriver(ctx context.Context, tripID uuid.UUID) error {
	t, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if t.DriverID == nil || t.Status.IsTerminal() {
		return apperrors.ErrInvalidTransition
	}
	driverID := *t.DriverID

	ch, unsub, err := s.drivers.Watch(ctx, driverID)
	if err != nil {
		return err
	}
	defer unsub()

	rider := t.RiderID.String()
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-ch:
			if !ok {
				return nil
			}
			if d.Status != driver.StatusUnavailable {
				// Released back to the pool; the trip no longer owns them.
				return nil
			}
			loc := d.Location()
			if loc == nil {
				continue
			}

			t, err = s.GetTrip(ctx, tripID)
			if err != nil {
				return err
			}
			if t.DriverID == nil || *t.DriverID != driverID || t.Status.IsTerminal() {
				return nil
			}

			t.DriverLocation = loc
			t.UpdatedAt = time.Now()
			if err := s.trips.Update(ctx, t); err != nil {
				return err
			}

			observability.LocationUpdates.Inc()
			s.notifier.Notify(rider, notify.New(notify.EventLocationUpdated, rider, "Driver location updated").
				WithData(map[string]interface{}{"trip_id": t.ID.String(), "latitude": loc.Latitude, "longitude": loc.Longitude}))
		}
	}
}

// guardRouteChange rejects route edits once the driver is within
// RouteChangeMinKM of the current dropoff.
func (s *Service) guardRouteChange(ctx context.Context, t *trip.Trip) error {
	dist, err := s.driverDistanceFrom(ctx, t, t.Dropoff)
	if err != nil {
		return err
	}
	if dist < s.cfg.RouteChangeMinKM {
		return apperrors.InvalidState("Driver is too close to the drop-off to change the route", nil)
	}
	return nil
}

// driverDistanceFrom returns the assigned driver's distance from the
// given point, preferring the trip's streamed location over a store read.
func (s *Service) driverDistanceFrom(ctx context.Context, t *trip.Trip, from geo.Point) (float64, error) {
	if t.DriverID == nil {
		return 0, apperrors.ErrInvalidTransition
	}

	loc := t.DriverLocation
	if loc == nil {
		d, err := s.drivers.GetByID(ctx, *t.DriverID)
		if err != nil {
			return 0, err
		}
		loc = d.Location()
	}
	if loc == nil {
		return 0, apperrors.InvalidState("Driver location is unknown", nil)
	}
	return geo.Distance(*loc, from), nil
}

func (s *Service) vehicleClass(t *trip.Trip) driver.VehicleClass {
	if t.VehicleClass == "" {
		return driver.VehicleEconomy
	}
	return driver.VehicleClass(t.VehicleClass)
}

func (s *Service) recordTransition(t *trip.Trip, to trip.Status) {
	observability.TripTransitions.WithLabelValues(string(to)).Inc()
	s.logger.Info("Trip status changed",
		logger.String("trip_id", t.ID.String()),
		logger.String("status", string(to)),
	)
}
