package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftcab/ride-backend/internal/domain/driver"
	"github.com/swiftcab/ride-backend/internal/domain/trip"
	"github.com/swiftcab/ride-backend/internal/notify"
	"github.com/swiftcab/ride-backend/pkg/logger"
)

type fakeTrips struct {
	mu    sync.Mutex
	trips map[uuid.UUID]*trip.Trip
	subs  map[int]chan *trip.Trip
	next  int
}

func newFakeTrips(ts ...*trip.Trip) *fakeTrips {
	s := &fakeTrips{
		trips: make(map[uuid.UUID]*trip.Trip),
		subs:  make(map[int]chan *trip.Trip),
	}
	for _, t := range ts {
		s.trips[t.ID] = t
	}
	return s
}

func (s *fakeTrips) GetByID(_ context.Context, id uuid.UUID) (*trip.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return nil, trip.ErrTripNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *fakeTrips) Watch(_ context.Context, _ uuid.UUID) (<-chan *trip.Trip, trip.UnsubscribeFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan *trip.Trip, 8)
	key := s.next
	s.next++
	s.subs[key] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, key)
	}, nil
}

func (s *fakeTrips) push(t *trip.Trip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- t:
		default:
		}
	}
}

func (s *fakeTrips) activeSubs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

type fakeDriverSource struct {
	mu      sync.Mutex
	drivers []*driver.Driver
	subs    map[int]chan *driver.Driver
	next    int
}

func newFakeDriverSource(ds ...*driver.Driver) *fakeDriverSource {
	return &fakeDriverSource{drivers: ds, subs: make(map[int]chan *driver.Driver)}
}

func (s *fakeDriverSource) ListAvailable(_ context.Context, filter driver.Filter) ([]*driver.Driver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*driver.Driver
	for _, d := range s.drivers {
		if filter.Matches(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeDriverSource) WatchAvailable(_ context.Context, _ driver.Filter) (<-chan *driver.Driver, driver.UnsubscribeFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan *driver.Driver, 8)
	key := s.next
	s.next++
	s.subs[key] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, key)
	}, nil
}

func (s *fakeDriverSource) push(d *driver.Driver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- d:
		default:
		}
	}
}

func (s *fakeDriverSource) activeSubs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// fakeReserver grants at most one reservation per driver, like the real
// manager's compare-and-swap.
type fakeReserver struct {
	mu    sync.Mutex
	taken map[uuid.UUID]uuid.UUID
}

func newFakeReserver(preTaken ...uuid.UUID) *fakeReserver {
	r := &fakeReserver{taken: make(map[uuid.UUID]uuid.UUID)}
	for _, id := range preTaken {
		r.taken[id] = uuid.New()
	}
	return r
}

func (r *fakeReserver) Reserve(_ context.Context, driverID, claimantID uuid.UUID) (*driver.Driver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.taken[driverID]; held {
		return nil, driver.ErrDriverUnavailable
	}
	r.taken[driverID] = claimantID
	until := time.Now().Add(30 * time.Second)
	return &driver.Driver{
		ID:            driverID,
		Status:        driver.StatusReserved,
		ReservedBy:    &claimantID,
		ReservedUntil: &until,
	}, nil
}

type fakeAssigner struct {
	mu       sync.Mutex
	tripID   uuid.UUID
	driverID uuid.UUID
	calls    int
}

func (a *fakeAssigner) Assign(_ context.Context, tripID, driverID uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tripID = tripID
	a.driverID = driverID
	a.calls++
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Notification
}

func (n *recordingNotifier) Notify(_ string, ev notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) count(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, ev := range n.events {
		if ev.Type == eventType {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) has(eventType string) bool {
	return n.count(eventType) > 0
}

func driverAt(lat, lng float64) *driver.Driver {
	return &driver.Driver{
		ID:               uuid.New(),
		Status:           driver.StatusAvailable,
		VehicleClass:     driver.VehicleEconomy,
		CurrentLatitude:  &lat,
		CurrentLongitude: &lng,
	}
}

func pendingRide() *trip.Trip {
	return &trip.Trip{
		ID:      uuid.New(),
		RiderID: uuid.New(),
		Kind:    trip.KindRide,
		Status:  trip.StatusPending,
	}
}

func TestRun_SnapshotReservesNearbyDriverOnly(t *testing.T) {
	tr := pendingRide()
	near := driverAt(0.001, 0.001) // ~160m from the pickup at the origin
	far := driverAt(1.0, 1.0)      // ~157km away

	trips := newFakeTrips(tr)
	drivers := newFakeDriverSource(near, far)
	reserver := newFakeReserver()
	notifier := &recordingNotifier{}

	e := New(trips, drivers, reserver, nil, notifier, logger.NewNop(), Config{
		RadiusKM: 2,
		Timeout:  50 * time.Millisecond,
	})

	res, err := e.Run(context.Background(), tr.ID)
	require.NoError(t, err)

	assert.Equal(t, OutcomeDriversFound, res.Outcome)
	assert.Equal(t, []uuid.UUID{near.ID}, res.FoundDrivers)
	assert.True(t, notifier.has(notify.EventSearchStarted))
	assert.Equal(t, 1, notifier.count(notify.EventDriverFound))
	assert.True(t, notifier.has(notify.EventSearchComplete))
}

func TestRun_ConfirmationResolvesSearch(t *testing.T) {
	tr := pendingRide()
	near := driverAt(0.001, 0.001)

	trips := newFakeTrips(tr)
	drivers := newFakeDriverSource(near)
	notifier := &recordingNotifier{}

	e := New(trips, drivers, newFakeReserver(), nil, notifier, logger.NewNop(), Config{
		RadiusKM: 2,
		Timeout:  2 * time.Second,
	})

	done := make(chan Result, 1)
	go func() {
		res, err := e.Run(context.Background(), tr.ID)
		require.NoError(t, err)
		done <- res
	}()

	// Wait for the snapshot scan to reserve and surface the driver, then
	// have the requester confirm the booking.
	require.Eventually(t, func() bool {
		return notifier.has(notify.EventDriverFound)
	}, time.Second, 5*time.Millisecond)

	confirmed := *tr
	confirmed.Status = trip.StatusConfirmed
	confirmed.DriverID = &near.ID
	trips.push(&confirmed)

	select {
	case res := <-done:
		assert.Equal(t, OutcomeConfirmed, res.Outcome)
		assert.Contains(t, res.FoundDrivers, near.ID)
	case <-time.After(time.Second):
		t.Fatal("search did not resolve on confirmation")
	}

	assert.True(t, notifier.has(notify.EventBookingConfirmed))
	assert.Equal(t, 0, trips.activeSubs(), "trip watch must be detached")
	assert.Equal(t, 0, drivers.activeSubs(), "driver watch must be detached")
}

func TestRun_CandidateLostToRivalIsSkipped(t *testing.T) {
	tr := pendingRide()
	contested := driverAt(0.001, 0.001)
	free := driverAt(0.002, 0.002)

	trips := newFakeTrips(tr)
	drivers := newFakeDriverSource(contested, free)
	reserver := newFakeReserver(contested.ID) // a rival already holds this one
	notifier := &recordingNotifier{}

	e := New(trips, drivers, reserver, nil, notifier, logger.NewNop(), Config{
		RadiusKM: 2,
		Timeout:  50 * time.Millisecond,
	})

	res, err := e.Run(context.Background(), tr.ID)
	require.NoError(t, err)

	assert.Equal(t, OutcomeDriversFound, res.Outcome)
	assert.Equal(t, []uuid.UUID{free.ID}, res.FoundDrivers)
	assert.Equal(t, 1, notifier.count(notify.EventDriverFound))
}

func TestRun_TimeoutWithNoDrivers(t *testing.T) {
	tr := pendingRide()
	trips := newFakeTrips(tr)
	drivers := newFakeDriverSource()
	notifier := &recordingNotifier{}

	e := New(trips, drivers, newFakeReserver(), nil, notifier, logger.NewNop(), Config{
		RadiusKM: 2,
		Timeout:  30 * time.Millisecond,
	})

	res, err := e.Run(context.Background(), tr.ID)
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoDrivers, res.Outcome)
	assert.Empty(t, res.FoundDrivers)
	assert.True(t, notifier.has(notify.EventDriversNotFound))
	assert.False(t, notifier.has(notify.EventDriverFound))
}

func TestRun_LiveScanPicksUpLateDriver(t *testing.T) {
	tr := pendingRide()
	trips := newFakeTrips(tr)
	drivers := newFakeDriverSource() // nobody available at search start
	notifier := &recordingNotifier{}

	e := New(trips, drivers, newFakeReserver(), nil, notifier, logger.NewNop(), Config{
		RadiusKM: 2,
		Timeout:  2 * time.Second,
	})

	done := make(chan Result, 1)
	go func() {
		res, err := e.Run(context.Background(), tr.ID)
		require.NoError(t, err)
		done <- res
	}()

	require.Eventually(t, func() bool {
		return drivers.activeSubs() == 1
	}, time.Second, 5*time.Millisecond)

	late := driverAt(0.001, 0.001)
	drivers.push(late)

	require.Eventually(t, func() bool {
		return notifier.has(notify.EventDriverFound)
	}, time.Second, 5*time.Millisecond)

	cancelled := *tr
	cancelled.Status = trip.StatusCancelled
	trips.push(&cancelled)

	select {
	case res := <-done:
		assert.Equal(t, OutcomeCancelled, res.Outcome)
		assert.Contains(t, res.FoundDrivers, late.ID)
	case <-time.After(time.Second):
		t.Fatal("search did not resolve on cancellation")
	}
}

func TestRun_NoNotificationsAfterResolution(t *testing.T) {
	tr := pendingRide()
	trips := newFakeTrips(tr)
	drivers := newFakeDriverSource()
	notifier := &recordingNotifier{}

	e := New(trips, drivers, newFakeReserver(), nil, notifier, logger.NewNop(), Config{
		RadiusKM: 2,
		Timeout:  30 * time.Millisecond,
	})

	res, err := e.Run(context.Background(), tr.ID)
	require.NoError(t, err)
	require.Equal(t, OutcomeNoDrivers, res.Outcome)

	// Both watches are detached, so late events must go nowhere.
	drivers.push(driverAt(0.001, 0.001))
	confirmed := *tr
	confirmed.Status = trip.StatusConfirmed
	trips.push(&confirmed)

	time.Sleep(50 * time.Millisecond)
	assert.False(t, notifier.has(notify.EventDriverFound))
	assert.False(t, notifier.has(notify.EventBookingConfirmed))
	assert.Equal(t, 0, trips.activeSubs())
	assert.Equal(t, 0, drivers.activeSubs())
}

func TestRun_DuplicateEventsReserveOnce(t *testing.T) {
	tr := pendingRide()
	near := driverAt(0.001, 0.001)
	trips := newFakeTrips(tr)
	drivers := newFakeDriverSource(near)
	notifier := &recordingNotifier{}

	e := New(trips, drivers, newFakeReserver(), nil, notifier, logger.NewNop(), Config{
		RadiusKM: 2,
		Timeout:  2 * time.Second,
	})

	done := make(chan Result, 1)
	go func() {
		res, err := e.Run(context.Background(), tr.ID)
		require.NoError(t, err)
		done <- res
	}()

	require.Eventually(t, func() bool {
		return notifier.count(notify.EventDriverFound) == 1
	}, time.Second, 5*time.Millisecond)

	// The same driver's record changing again mid-lease must not produce a
	// second reservation or notification.
	drivers.push(near)
	drivers.push(near)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, notifier.count(notify.EventDriverFound))

	cancelled := *tr
	cancelled.Status = trip.StatusCancelled
	trips.push(&cancelled)
	<-done
}

func TestRun_AutoAssignConfirmsFirstReservedDriver(t *testing.T) {
	tr := pendingRide()
	tr.Kind = trip.KindDelivery
	near := driverAt(0.001, 0.001)
	near.CanDeliver = true

	trips := newFakeTrips(tr)
	drivers := newFakeDriverSource(near)
	assigner := &fakeAssigner{}
	notifier := &recordingNotifier{}

	e := New(trips, drivers, newFakeReserver(), assigner, notifier, logger.NewNop(), Config{
		RadiusKM:   3,
		Timeout:    2 * time.Second,
		AutoAssign: true,
	})

	res, err := e.Run(context.Background(), tr.ID)
	require.NoError(t, err)

	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.Equal(t, 1, assigner.calls)
	assert.Equal(t, tr.ID, assigner.tripID)
	assert.Equal(t, near.ID, assigner.driverID)
}

func TestRun_UnknownTrip(t *testing.T) {
	e := New(newFakeTrips(), newFakeDriverSource(), newFakeReserver(), nil, &recordingNotifier{}, logger.NewNop(), Config{
		RadiusKM: 2,
		Timeout:  time.Second,
	})

	_, err := e.Run(context.Background(), uuid.New())
	assert.ErrorIs(t, err, trip.ErrTripNotFound)
}

func TestEligibilityFor(t *testing.T) {
	ride := &trip.Trip{Kind: trip.KindRide, VehicleClass: "premium"}
	assert.Equal(t, driver.Filter{VehicleClass: driver.VehiclePremium}, EligibilityFor(ride))

	anyClass := &trip.Trip{Kind: trip.KindRide}
	assert.Equal(t, driver.Filter{}, EligibilityFor(anyClass))

	delivery := &trip.Trip{Kind: trip.KindDelivery, DeliveryClass: "motorbike"}
	assert.Equal(t, driver.Filter{DeliveryOnly: true, DeliveryClass: "motorbike"}, EligibilityFor(delivery))
}
