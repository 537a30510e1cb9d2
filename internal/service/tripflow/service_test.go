package tripflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftcab/ride-backend/internal/domain/driver"
	"github.com/swiftcab/ride-backend/internal/domain/payment"
	"github.com/swiftcab/ride-backend/internal/domain/trip"
	"github.com/swiftcab/ride-backend/internal/geo"
	"github.com/swiftcab/ride-backend/internal/notify"
	apperrors "github.com/swiftcab/ride-backend/pkg/errors"
	"github.com/swiftcab/ride-backend/pkg/logger"
)

type memTrips struct {
	mu    sync.Mutex
	trips map[uuid.UUID]*trip.Trip
}

func newMemTrips(ts ...*trip.Trip) *memTrips {
	s := &memTrips{trips: make(map[uuid.UUID]*trip.Trip)}
	for _, t := range ts {
		s.trips[t.ID] = t
	}
	return s
}

func (s *memTrips) Create(_ context.Context, t *trip.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.trips[t.ID] = &cp
	return nil
}

func (s *memTrips) GetByID(_ context.Context, id uuid.UUID) (*trip.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return nil, trip.ErrTripNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memTrips) Update(_ context.Context, t *trip.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[t.ID]; !ok {
		return trip.ErrTripNotFound
	}
	cp := *t
	s.trips[t.ID] = &cp
	return nil
}

func (s *memTrips) get(id uuid.UUID) trip.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.trips[id]
}

type memDriverSub struct {
	id uuid.UUID
	ch chan *driver.Driver
}

type memDrivers struct {
	mu      sync.Mutex
	drivers map[uuid.UUID]*driver.Driver
	subs    map[int]*memDriverSub
	nextSub int
}

func newMemDrivers(ds ...*driver.Driver) *memDrivers {
	s := &memDrivers{
		drivers: make(map[uuid.UUID]*driver.Driver),
		subs:    make(map[int]*memDriverSub),
	}
	for _, d := range ds {
		s.drivers[d.ID] = d
	}
	return s
}

func (s *memDrivers) GetByID(_ context.Context, id uuid.UUID) (*driver.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return nil, driver.ErrDriverNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *memDrivers) Assign(_ context.Context, id uuid.UUID) (*driver.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return nil, driver.ErrDriverNotFound
	}
	if d.Status != driver.StatusReserved {
		return nil, driver.ErrDriverUnavailable
	}
	d.Status = driver.StatusUnavailable
	d.ReservedBy = nil
	d.ReservedUntil = nil
	cp := *d
	return &cp, nil
}

func (s *memDrivers) Release(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return driver.ErrDriverNotFound
	}
	d.Status = driver.StatusAvailable
	d.ReservedBy = nil
	d.ReservedUntil = nil
	return nil
}

func (s *memDrivers) AddRating(_ context.Context, id uuid.UUID, stars float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return driver.ErrDriverNotFound
	}
	d.RatingSum += stars
	d.RatingCount++
	return nil
}

func (s *memDrivers) UpdateLocation(_ context.Context, id uuid.UUID, lat, lng float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return driver.ErrDriverNotFound
	}
	d.SetLocation(lat, lng)
	return nil
}

func (s *memDrivers) Watch(_ context.Context, id uuid.UUID) (<-chan *driver.Driver, driver.UnsubscribeFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.nextSub
	s.nextSub++
	sub := &memDriverSub{id: id, ch: make(chan *driver.Driver, 8)}
	s.subs[key] = sub
	return sub.ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, key)
	}, nil
}

// push emits a driver event to matching watchers, as the store does after
// a write.
func (s *memDrivers) push(d *driver.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.id == d.ID {
			cp := *d
			sub.ch <- &cp
		}
	}
}

func (s *memDrivers) get(id uuid.UUID) driver.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.drivers[id]
}

type memPayments struct {
	mu       sync.Mutex
	payments []*payment.Payment
}

func (s *memPayments) Create(_ context.Context, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.payments = append(s.payments, &cp)
	return nil
}

func (s *memPayments) GetByID(_ context.Context, id uuid.UUID) (*payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, payment.ErrPaymentNotFound
}

func (s *memPayments) GetByTripID(_ context.Context, tripID uuid.UUID) (*payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.TripID == tripID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, payment.ErrPaymentNotFound
}

func (s *memPayments) ListByDriverID(_ context.Context, driverID uuid.UUID) ([]*payment.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*payment.Payment
	for _, p := range s.payments {
		if p.DriverID == driverID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memPayments) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

// flatPricer prices everything at fixed amounts for deterministic
// assertions.
type flatPricer struct{}

func (flatPricer) EstimateRideFare(_ context.Context, _ driver.VehicleClass, _, _ geo.Point, _ *geo.Point, _ string) float64 {
	return 100.0
}
func (flatPricer) EstimateDeliveryFare(_, _ geo.Point) float64 { return 40.0 }
func (flatPricer) RepriceForStop(_ driver.VehicleClass, _, _ geo.Point) float64 {
	return 25.0
}
func (flatPricer) RepriceForDestination(_ driver.VehicleClass, _, _ geo.Point) float64 {
	return 130.0
}

type recordingNotifier struct {
	mu     sync.Mutex
	events map[string][]string // userID -> event types
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{events: make(map[string][]string)}
}

func (n *recordingNotifier) Notify(userID string, ev notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events[userID] = append(n.events[userID], ev.Type)
}

func (n *recordingNotifier) received(userID, eventType string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events[userID] {
		if e == eventType {
			return true
		}
	}
	return false
}

type fixture struct {
	svc      *Service
	trips    *memTrips
	drivers  *memDrivers
	payments *memPayments
	notifier *recordingNotifier
}

func newFixture(trips *memTrips, drivers *memDrivers) *fixture {
	payments := &memPayments{}
	notifier := newRecordingNotifier()
	svc := NewService(trips, drivers, payments, flatPricer{}, notifier, logger.NewNop(), Config{
		PaymentProximityKM: 1.0,
		RouteChangeMinKM:   5.0,
		PricingRegion:      "default",
	})
	return &fixture{svc: svc, trips: trips, drivers: drivers, payments: payments, notifier: notifier}
}

func reservedDriverAt(lat, lng float64) *driver.Driver {
	claimant := uuid.New()
	d := &driver.Driver{
		ID:           uuid.New(),
		Name:         "Test Driver",
		Status:       driver.StatusReserved,
		VehicleClass: driver.VehicleEconomy,
		ReservedBy:   &claimant,
	}
	d.SetLocation(lat, lng)
	return d
}

func confirmedTrip(driverID uuid.UUID) *trip.Trip {
	return &trip.Trip{
		ID:            uuid.New(),
		RiderID:       uuid.New(),
		DriverID:      &driverID,
		Kind:          trip.KindRide,
		Status:        trip.StatusConfirmed,
		Pickup:        geo.Point{Latitude: 0, Longitude: 0},
		Dropoff:       geo.Point{Latitude: 0.5, Longitude: 0},
		Price:         100.0,
		PaymentMethod: string(payment.MethodCash),
	}
}

func TestCreateRide(t *testing.T) {
	f := newFixture(newMemTrips(), newMemDrivers())

	created, err := f.svc.CreateRide(context.Background(), CreateRideInput{
		RiderID: uuid.New(),
		Pickup:  geo.Point{Latitude: 0, Longitude: 0},
		Dropoff: geo.Point{Latitude: 0.5, Longitude: 0},
	})
	require.NoError(t, err)

	assert.Equal(t, trip.StatusPending, created.Status)
	assert.Equal(t, trip.KindRide, created.Kind)
	assert.Equal(t, 100.0, created.Price)
	assert.Equal(t, string(payment.MethodCash), created.PaymentMethod)
	assert.True(t, f.notifier.received(created.RiderID.String(), notify.EventRequestReceived))

	stored := f.trips.get(created.ID)
	assert.Equal(t, trip.StatusPending, stored.Status)
}

func TestCreateRide_InvalidCoordinates(t *testing.T) {
	f := newFixture(newMemTrips(), newMemDrivers())

	_, err := f.svc.CreateRide(context.Background(), CreateRideInput{
		RiderID: uuid.New(),
		Pickup:  geo.Point{Latitude: 91, Longitude: 0},
		Dropoff: geo.Point{Latitude: 0, Longitude: 0},
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCoordinates)
}

func TestCreateDelivery(t *testing.T) {
	f := newFixture(newMemTrips(), newMemDrivers())

	created, err := f.svc.CreateDelivery(context.Background(), CreateDeliveryInput{
		RiderID:       uuid.New(),
		Pickup:        geo.Point{Latitude: 0, Longitude: 0},
		Dropoff:       geo.Point{Latitude: 0.1, Longitude: 0},
		DeliveryClass: "motorbike",
		RecipientName: "Recipient",
	})
	require.NoError(t, err)

	assert.Equal(t, trip.KindDelivery, created.Kind)
	assert.Equal(t, 40.0, created.Price)
	assert.Equal(t, "motorbike", created.DeliveryClass)
}

func TestAssign_ConsumesReservation(t *testing.T) {
	d := reservedDriverAt(0.001, 0)
	tr := confirmedTrip(d.ID)
	tr.Status = trip.StatusPending
	tr.DriverID = nil

	f := newFixture(newMemTrips(tr), newMemDrivers(d))

	got, err := f.svc.Assign(context.Background(), tr.ID, d.ID)
	require.NoError(t, err)

	assert.Equal(t, trip.StatusConfirmed, got.Status)
	require.NotNil(t, got.DriverID)
	assert.Equal(t, d.ID, *got.DriverID)
	assert.Equal(t, driver.StatusUnavailable, f.drivers.get(d.ID).Status)
	assert.True(t, f.notifier.received(d.ID.String(), notify.EventDriverAssigned))
	assert.True(t, f.notifier.received(tr.RiderID.String(), notify.EventDriverAssigned))
}

func TestAssign_UnreservedDriverRejected(t *testing.T) {
	d := reservedDriverAt(0.001, 0)
	d.Status = driver.StatusAvailable
	tr := confirmedTrip(d.ID)
	tr.Status = trip.StatusPending
	tr.DriverID = nil

	f := newFixture(newMemTrips(tr), newMemDrivers(d))

	_, err := f.svc.Assign(context.Background(), tr.ID, d.ID)
	assert.ErrorIs(t, err, apperrors.ErrDriverUnavailable)
	assert.Equal(t, trip.StatusPending, f.trips.get(tr.ID).Status)
}

func TestAssign_NonPendingTripRejected(t *testing.T) {
	d := reservedDriverAt(0.001, 0)
	tr := confirmedTrip(d.ID) // already confirmed

	f := newFixture(newMemTrips(tr), newMemDrivers(d))

	_, err := f.svc.Assign(context.Background(), tr.ID, d.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	// Driver reservation must not be consumed by a rejected assignment.
	assert.Equal(t, driver.StatusReserved, f.drivers.get(d.ID).Status)
}

func TestLifecycle_PickupToPayment(t *testing.T) {
	d := reservedDriverAt(0.001, 0)
	d.Status = driver.StatusUnavailable
	tr := confirmedTrip(d.ID)

	f := newFixture(newMemTrips(tr), newMemDrivers(d))
	ctx := context.Background()

	// Start before arrival is rejected.
	_, err := f.svc.Start(ctx, tr.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = f.svc.DriverArrivedAtPickup(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, f.notifier.received(tr.RiderID.String(), notify.EventDriverArrived))

	got, err := f.svc.Start(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, trip.StatusOngoing, got.Status)

	got, err = f.svc.End(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, trip.StatusArrived, got.Status)
	assert.True(t, got.DriverArrivedAtDropoff)

	// Driver is far from the dropoff, so payment is refused.
	_, err = f.svc.ConfirmPayment(ctx, tr.ID)
	require.Error(t, err)

	// Driver reaches the dropoff.
	_, err = f.svc.UpdateDriverLocation(ctx, tr.ID, tr.Dropoff)
	require.NoError(t, err)

	got, err = f.svc.ConfirmPayment(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, trip.StatusCompleted, got.Status)
	assert.True(t, got.PaymentReceived)
	assert.Equal(t, 1, f.payments.count())
	assert.Equal(t, driver.StatusAvailable, f.drivers.get(d.ID).Status)
	assert.True(t, f.notifier.received(tr.RiderID.String(), notify.EventPaymentReceived))
	assert.True(t, f.notifier.received(d.ID.String(), notify.EventPaymentReceived))

	rec, err := f.payments.GetByTripID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.Price, rec.Amount)
	assert.Equal(t, payment.StatusCompleted, rec.Status)
}

func TestConfirmPayment_RequiresArrivedStatus(t *testing.T) {
	d := reservedDriverAt(0.5, 0)
	d.Status = driver.StatusUnavailable
	tr := confirmedTrip(d.ID)
	tr.Status = trip.StatusOngoing

	f := newFixture(newMemTrips(tr), newMemDrivers(d))

	_, err := f.svc.ConfirmPayment(context.Background(), tr.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Equal(t, 0, f.payments.count())
}

func TestCancel_ReleasesAssignedDriver(t *testing.T) {
	d := reservedDriverAt(0.001, 0)
	d.Status = driver.StatusUnavailable
	tr := confirmedTrip(d.ID)

	f := newFixture(newMemTrips(tr), newMemDrivers(d))

	got, err := f.svc.Cancel(context.Background(), tr.ID, "rider changed plans")
	require.NoError(t, err)

	assert.Equal(t, trip.StatusCancelled, got.Status)
	assert.Equal(t, "rider changed plans", got.CancellationReason)
	assert.Nil(t, got.DriverID)
	assert.Equal(t, driver.StatusAvailable, f.drivers.get(d.ID).Status)
	assert.True(t, f.notifier.received(d.ID.String(), notify.EventBookingCancelled))
	assert.True(t, f.notifier.received(tr.RiderID.String(), notify.EventBookingCancelled))
}

func TestCancel_TerminalTripRejected(t *testing.T) {
	tr := confirmedTrip(uuid.New())
	tr.Status = trip.StatusCompleted
	tr.DriverID = nil

	f := newFixture(newMemTrips(tr), newMemDrivers())

	_, err := f.svc.Cancel(context.Background(), tr.ID, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestFindNewDriver_ReEntersPending(t *testing.T) {
	d := reservedDriverAt(0.001, 0)
	d.Status = driver.StatusUnavailable
	tr := confirmedTrip(d.ID)
	tr.DriverArrivedAtPickup = true

	f := newFixture(newMemTrips(tr), newMemDrivers(d))

	got, err := f.svc.FindNewDriver(context.Background(), tr.ID)
	require.NoError(t, err)

	assert.Equal(t, trip.StatusPending, got.Status)
	assert.Nil(t, got.DriverID)
	assert.False(t, got.DriverArrivedAtPickup)
	assert.Equal(t, driver.StatusAvailable, f.drivers.get(d.ID).Status)
	assert.True(t, f.notifier.received(d.ID.String(), notify.EventDriverReleased))
}

func TestFindNewDriver_OnlyFromConfirmed(t *testing.T) {
	d := reservedDriverAt(0.001, 0)
	tr := confirmedTrip(d.ID)
	tr.Status = trip.StatusOngoing

	f := newFixture(newMemTrips(tr), newMemDrivers(d))

	_, err := f.svc.FindNewDriver(context.Background(), tr.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestAddStop(t *testing.T) {
	// Driver at the origin, dropoff ~55km away: far enough to edit.
	d := reservedDriverAt(0, 0)
	d.Status = driver.StatusUnavailable
	tr := confirmedTrip(d.ID)
	tr.Status = trip.StatusOngoing
	tr.DriverLocation = &geo.Point{Latitude: 0, Longitude: 0}

	f := newFixture(newMemTrips(tr), newMemDrivers(d))

	stop := geo.Point{Latitude: 0.6, Longitude: 0}
	got, err := f.svc.AddStop(context.Background(), tr.ID, stop)
	require.NoError(t, err)

	assert.True(t, got.HasThirdStop)
	require.NotNil(t, got.ThirdStop)
	assert.Equal(t, stop, *got.ThirdStop)
	assert.Equal(t, 125.0, got.Price) // 100 + flat 25 reprice
	assert.True(t, f.notifier.received(tr.RiderID.String(), notify.EventStopAdded))

	// A second stop is rejected.
	_, err = f.svc.AddStop(context.Background(), tr.ID, geo.Point{Latitude: 0.7, Longitude: 0})
	assert.ErrorIs(t, err, apperrors.ErrTripAlreadyHasStop)
}

func TestAddStop_DriverNearDropoffRejected(t *testing.T) {
	d := reservedDriverAt(0.5, 0)
	d.Status = driver.StatusUnavailable
	tr := confirmedTrip(d.ID)
	tr.Status = trip.StatusOngoing
	tr.DriverLocation = &geo.Point{Latitude: 0.49, Longitude: 0} // ~1.1km out

	f := newFixture(newMemTrips(tr), newMemDrivers(d))

	_, err := f.svc.AddStop(context.Background(), tr.ID, geo.Point{Latitude: 0.6, Longitude: 0})
	require.Error(t, err)
	assert.False(t, f.trips.get(tr.ID).HasThirdStop)
}

func TestChangeDestination(t *testing.T) {
	d := reservedDriverAt(0, 0)
	d.Status = driver.StatusUnavailable
	tr := confirmedTrip(d.ID)
	tr.Status = trip.StatusOngoing
	tr.DriverLocation = &geo.Point{Latitude: 0, Longitude: 0}

	f := newFixture(newMemTrips(tr), newMemDrivers(d))

	newDropoff := geo.Point{Latitude: 0.8, Longitude: 0}
	got, err := f.svc.ChangeDestination(context.Background(), tr.ID, newDropoff)
	require.NoError(t, err)

	assert.Equal(t, newDropoff, got.Dropoff)
	assert.Equal(t, 130.0, got.Price)
	assert.True(t, f.notifier.received(tr.RiderID.String(), notify.EventDestinationMoved))
	assert.True(t, f.notifier.received(d.ID.String(), notify.EventDestinationMoved))
}

func TestSetPaymentMethod(t *testing.T) {
	d := reservedDriverAt(0, 0)
	tr := confirmedTrip(d.ID)

	f := newFixture(newMemTrips(tr), newMemDrivers(d))

	got, err := f.svc.SetPaymentMethod(context.Background(), tr.ID, payment.MethodCard)
	require.NoError(t, err)
	assert.Equal(t, string(payment.MethodCard), got.PaymentMethod)
	assert.True(t, f.notifier.received(d.ID.String(), notify.EventPaymentChanged))

	_, err = f.svc.SetPaymentMethod(context.Background(), tr.ID, payment.Method("iou"))
	require.Error(t, err)
}

func TestRateDriver(t *testing.T) {
	d := reservedDriverAt(0, 0)
	tr := confirmedTrip(d.ID)
	tr.Status = trip.StatusCompleted

	f := newFixture(newMemTrips(tr), newMemDrivers(d))

	got, err := f.svc.RateDriver(context.Background(), tr.ID, 5)
	require.NoError(t, err)
	assert.True(t, got.Rated)
	ratedDriver := f.drivers.get(d.ID)
	assert.Equal(t, 5.0, ratedDriver.Rating())

	// Rating twice is rejected.
	_, err = f.svc.RateDriver(context.Background(), tr.ID, 1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	// Out-of-range stars are rejected.
	_, err = f.svc.RateDriver(context.Background(), tr.ID, 6)
	require.Error(t, err)
}

func TestUpdateDriverLocation_StreamsToRider(t *testing.T) {
	d := reservedDriverAt(0, 0)
	d.Status = driver.StatusUnavailable
	tr := confirmedTrip(d.ID)

	f := newFixture(newMemTrips(tr), newMemDrivers(d))

	loc := geo.Point{Latitude: 0.1, Longitude: 0.1}
	got, err := f.svc.UpdateDriverLocation(context.Background(), tr.ID, loc)
	require.NoError(t, err)

	require.NotNil(t, got.DriverLocation)
	assert.Equal(t, loc, *got.DriverLocation)
	assert.True(t, f.notifier.received(tr.RiderID.String(), notify.EventLocationUpdated))

	stored := f.drivers.get(d.ID)
	require.NotNil(t, stored.CurrentLatitude)
	assert.Equal(t, loc.Latitude, *stored.CurrentLatitude)
}

func TestTrackDriver_MirrorsDriverMovement(t *testing.T) {
	d := reservedDriverAt(0, 0)
	d.Status = driver.StatusUnavailable
	tr := confirmedTrip(d.ID)

	f := newFixture(newMemTrips(tr), newMemDrivers(d))

	done := make(chan error, 1)
	go func() {
		done <- f.svc.TrackDriver(context.Background(), tr.ID)
	}()

	// Wait for the watch to be registered before pushing events.
	require.Eventually(t, func() bool {
		f.drivers.mu.Lock()
		defer f.drivers.mu.Unlock()
		return len(f.drivers.subs) == 1
	}, time.Second, 5*time.Millisecond)

	moved := *d
	moved.SetLocation(0.2, 0.1)
	f.drivers.push(&moved)

	require.Eventually(t, func() bool {
		got := f.trips.get(tr.ID)
		return got.DriverLocation != nil && got.DriverLocation.Latitude == 0.2
	}, time.Second, 5*time.Millisecond)
	assert.True(t, f.notifier.received(tr.RiderID.String(), notify.EventLocationUpdated))

	// Releasing the driver ends the stream.
	released := *d
	released.Status = driver.StatusAvailable
	f.drivers.push(&released)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("tracker did not stop after driver release")
	}
}

func TestTrackDriver_UnassignedTripRejected(t *testing.T) {
	tr := confirmedTrip(uuid.New())
	tr.DriverID = nil
	tr.Status = trip.StatusPending

	f := newFixture(newMemTrips(tr), newMemDrivers())

	err := f.svc.TrackDriver(context.Background(), tr.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestGetTrip_NotFound(t *testing.T) {
	f := newFixture(newMemTrips(), newMemDrivers())

	_, err := f.svc.GetTrip(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrTripNotFound)
}
