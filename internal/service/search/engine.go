package search

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swiftcab/ride-backend/internal/domain/driver"
	"github.com/swiftcab/ride-backend/internal/domain/trip"
	"github.com/swiftcab/ride-backend/internal/geo"
	"github.com/swiftcab/ride-backend/internal/notify"
	"github.com/swiftcab/ride-backend/internal/observability"
	"github.com/swiftcab/ride-backend/pkg/logger"
)

// TripStore is the subset of trip storage the engine needs.
type TripStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*trip.Trip, error)
	Watch(ctx context.Context, id uuid.UUID) (<-chan *trip.Trip, trip.UnsubscribeFunc, error)
}

// DriverStore is the subset of driver storage the engine needs.
type DriverStore interface {
	ListAvailable(ctx context.Context, filter driver.Filter) ([]*driver.Driver, error)
	WatchAvailable(ctx context.Context, filter driver.Filter) (<-chan *driver.Driver, driver.UnsubscribeFunc, error)
}

// Reserver places exclusive time-bounded claims on drivers. A lost race
// surfaces as driver.ErrDriverUnavailable.
type Reserver interface {
	Reserve(ctx context.Context, driverID, claimantID uuid.UUID) (*driver.Driver, error)
}

// Assigner converts a reservation into a confirmed assignment; only used
// when the engine runs in auto-assign mode.
type Assigner interface {
	Assign(ctx context.Context, tripID, driverID uuid.UUID) error
}

// Outcome classifies how a search resolved.
type Outcome string

const (
	OutcomeConfirmed    Outcome = "confirmed"
	OutcomeCancelled    Outcome = "cancelled"
	OutcomeDriversFound Outcome = "drivers_found"
	OutcomeNoDrivers    Outcome = "no_drivers"
)

// Result is the single resolution of one search operation.
type Result struct {
	Outcome      Outcome
	FoundDrivers []uuid.UUID
}

// Config holds search tuning. Radius and timeout vary by call site (rides
// search tighter than deliveries), so they are configuration, not
// constants. AutoAssign makes the engine assign the first reserved driver
// immediately instead of reserving every candidate for the requester to
// choose from; the delivery flow runs in this mode.
type Config struct {
	RadiusKM   float64
	Timeout    time.Duration
	AutoAssign bool
}

// Engine finds and reserves eligible nearby drivers for one trip request,
// notifies the requester as each candidate is reserved, and terminates
// cleanly when the trip concludes or the search times out.
type Engine struct {
	trips        TripStore
	drivers      DriverStore
	reservations Reserver
	assigner     Assigner
	notifier     notify.Notifier
	logger       *logger.Logger
	cfg          Config
}

// New creates a search engine. assigner may be nil unless cfg.AutoAssign
// is set.
func New(trips TripStore, drivers DriverStore, reservations Reserver, assigner Assigner, notifier notify.Notifier, log *logger.Logger, cfg Config) *Engine {
	return &Engine{
		trips:        trips,
		drivers:      drivers,
		reservations: reservations,
		assigner:     assigner,
		notifier:     notifier,
		logger:       log,
		cfg:          cfg,
	}
}

// EligibilityFor derives the driver eligibility predicate for a trip.
func EligibilityFor(t *trip.Trip) driver.Filter {
	if t.Kind == trip.KindDelivery {
		return driver.Filter{DeliveryOnly: true, DeliveryClass: t.DeliveryClass}
	}
	return driver.Filter{VehicleClass: driver.VehicleClass(t.VehicleClass)}
}

// resolution carries the exactly-once outcome of a search.
type resolution struct {
	result Result
	err    error
}

// operation is the per-search state: reservation bookkeeping, teardown
// handles, and the single-assignment resolution latch. It is owned by one
// Run call and never shared across searches.
type operation struct {
	engine *Engine
	trip   *trip.Trip
	rider  string

	mu       sync.Mutex
	found    map[uuid.UUID]float64   // driver id -> distance at discovery
	reserved map[uuid.UUID]time.Time // drivers this search holds, by lease expiry
	resolved bool

	once    sync.Once
	done    chan resolution
	timer   *time.Timer
	unsubs  []func()
	cancel  context.CancelFunc
}

// Run executes one search operation for the given trip and blocks until
// it resolves. Exactly one of the four paths (confirmation, cancellation,
// timeout, error) produces the result; all of them tear down the live
// subscriptions and the timer before returning.
func (e *Engine) Run(ctx context.Context, tripID uuid.UUID) (Result, error) {
	t, err := e.trips.GetByID(ctx, tripID)
	if err != nil {
		return Result{}, err
	}

	observability.SearchesStarted.Inc()
	observability.ActiveSearches.Inc()
	defer observability.ActiveSearches.Dec()
	start := time.Now()

	rider := t.RiderID.String()
	e.notifier.Notify(rider, notify.New(notify.EventSearchStarted, rider, "Search for drivers has commenced"))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	op := &operation{
		engine:   e,
		trip:     t,
		rider:    rider,
		found:    make(map[uuid.UUID]float64),
		reserved: make(map[uuid.UUID]time.Time),
		done:     make(chan resolution, 1),
		cancel:   cancel,
	}

	// Completion watch: the trip reaching a terminal status ends the
	// search regardless of what the scans are doing.
	tripCh, unsubTrip, err := e.trips.Watch(runCtx, tripID)
	if err != nil {
		return Result{}, err
	}
	op.unsubs = append(op.unsubs, unsubTrip)

	// Live scan: drivers that come online or enter the eligibility
	// predicate mid-search are picked up without re-polling.
	filter := EligibilityFor(t)
	driverCh, unsubDrivers, err := e.drivers.WatchAvailable(runCtx, filter)
	if err != nil {
		unsubTrip()
		return Result{}, err
	}
	op.unsubs = append(op.unsubs, unsubDrivers)

	op.timer = time.NewTimer(e.cfg.Timeout)

	go op.watchTrip(runCtx, tripCh)
	go op.consumeDrivers(runCtx, driverCh)
	go op.awaitTimeout(runCtx)

	// Snapshot scan runs in the caller's goroutine, like the initial
	// query the live scan then keeps current.
	op.snapshotScan(runCtx, filter)

	var res resolution
	select {
	case res = <-op.done:
	case <-ctx.Done():
		op.resolve(Result{}, ctx.Err())
		res = <-op.done
	}

	elapsed := time.Since(start)
	observability.SearchDuration.Observe(elapsed.Seconds())
	if res.err == nil {
		observability.SearchesResolved.WithLabelValues(string(res.result.Outcome)).Inc()
	}

	e.logger.Info("Driver search resolved",
		logger.String("trip_id", tripID.String()),
		logger.String("outcome", string(res.result.Outcome)),
		logger.Int("found", len(res.result.FoundDrivers)),
		logger.Float64("elapsed_seconds", elapsed.Seconds()),
	)

	return res.result, res.err
}

// resolve completes the operation exactly once. Later calls are no-ops by
// construction; the latch also detaches all watches and the timer so no
// further callbacks fire after resolution.
func (op *operation) resolve(result Result, err error) {
	op.once.Do(func() {
		op.mu.Lock()
		op.resolved = true
		op.mu.Unlock()

		op.teardown()
		op.done <- resolution{result: result, err: err}
	})
}

func (op *operation) teardown() {
	if op.timer != nil {
		op.timer.Stop()
	}
	for _, unsub := range op.unsubs {
		unsub()
	}
	op.cancel()
}

// snapshotScan queries all currently eligible drivers and feeds them
// through the same consideration path the live scan uses.
func (op *operation) snapshotScan(ctx context.Context, filter driver.Filter) {
	candidates, err := op.engine.drivers.ListAvailable(ctx, filter)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		op.engine.logger.Error("Snapshot scan failed",
			logger.String("trip_id", op.trip.ID.String()),
			logger.Err(err),
		)
		op.resolve(Result{}, err)
		return
	}

	for _, d := range candidates {
		op.consider(ctx, d)
	}
}

func (op *operation) consumeDrivers(ctx context.Context, ch <-chan *driver.Driver) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-ch:
			if !ok {
				return
			}
			op.consider(ctx, d)
		}
	}
}

// consider runs the per-candidate pipeline: distance check, working-set
// check, reserve, notify. A driver already reserved by this search is
// skipped until its lease expires, at which point the live scan will
// surface it again as available.
func (op *operation) consider(ctx context.Context, d *driver.Driver) {
	loc := d.Location()
	if loc == nil {
		return
	}

	dist := geo.Distance(op.trip.Pickup, *loc)
	if dist >= op.engine.cfg.RadiusKM {
		return
	}

	now := time.Now()
	op.mu.Lock()
	if op.resolved {
		op.mu.Unlock()
		return
	}
	if until, held := op.reserved[d.ID]; held && now.Before(until) {
		op.mu.Unlock()
		return
	}
	// Mark before reserving so a concurrent event for the same driver
	// does not race into a second reserve attempt.
	op.reserved[d.ID] = now.Add(time.Minute)
	op.mu.Unlock()

	reservedDriver, err := op.engine.reservations.Reserve(ctx, d.ID, op.trip.RiderID)
	if err != nil {
		op.mu.Lock()
		delete(op.reserved, d.ID)
		op.mu.Unlock()

		if err == driver.ErrDriverUnavailable {
			// Lost the race to a rival search; expected and non-fatal.
			op.engine.logger.Debug("Candidate lost to concurrent reservation",
				logger.String("driver_id", d.ID.String()),
				logger.String("trip_id", op.trip.ID.String()),
			)
			return
		}
		if ctx.Err() == nil {
			op.engine.logger.Warn("Failed to reserve candidate",
				logger.String("driver_id", d.ID.String()),
				logger.Err(err),
			)
		}
		return
	}

	op.mu.Lock()
	op.found[d.ID] = dist
	if reservedDriver.ReservedUntil != nil {
		op.reserved[d.ID] = *reservedDriver.ReservedUntil
	}
	resolved := op.resolved
	op.mu.Unlock()
	if resolved {
		return
	}

	op.engine.notifier.Notify(op.rider, notify.New(
		notify.EventDriverFound, op.rider,
		"A driver has been found and is reserved for you",
	).WithData(map[string]interface{}{
		"driver_id":      reservedDriver.ID.String(),
		"driver_name":    reservedDriver.Name,
		"vehicle_class":  reservedDriver.VehicleClass,
		"rating":         reservedDriver.Rating(),
		"latitude":       reservedDriver.CurrentLatitude,
		"longitude":      reservedDriver.CurrentLongitude,
		"distance_km":    dist,
		"reserved_until": reservedDriver.ReservedUntil,
	}))

	if op.engine.cfg.AutoAssign {
		op.autoAssign(ctx, reservedDriver.ID)
	}
}

// autoAssign immediately converts the reservation into a confirmed
// assignment and resolves the search.
func (op *operation) autoAssign(ctx context.Context, driverID uuid.UUID) {
	if err := op.engine.assigner.Assign(ctx, op.trip.ID, driverID); err != nil {
		op.engine.logger.Warn("Auto-assign failed, continuing search",
			logger.String("trip_id", op.trip.ID.String()),
			logger.String("driver_id", driverID.String()),
			logger.Err(err),
		)
		return
	}
	op.resolve(Result{Outcome: OutcomeConfirmed, FoundDrivers: op.foundIDs()}, nil)
}

// watchTrip resolves the search when the trip reaches a terminal status.
func (op *operation) watchTrip(ctx context.Context, ch <-chan *trip.Trip) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-ch:
			if !ok {
				return
			}
			switch t.Status {
			case trip.StatusConfirmed:
				op.engine.notifier.Notify(op.rider, notify.New(
					notify.EventBookingConfirmed, op.rider, "Your booking has been confirmed",
				))
				op.resolve(Result{Outcome: OutcomeConfirmed, FoundDrivers: op.foundIDs()}, nil)
				return
			case trip.StatusCancelled:
				op.resolve(Result{Outcome: OutcomeCancelled, FoundDrivers: op.foundIDs()}, nil)
				return
			}
		}
	}
}

// awaitTimeout resolves the search when the overall timeout elapses: with
// the found set if any drivers were reserved, as not-found otherwise.
func (op *operation) awaitTimeout(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-op.timer.C:
	}

	found := op.foundIDs()
	if len(found) == 0 {
		op.engine.notifier.Notify(op.rider, notify.New(
			notify.EventDriversNotFound, op.rider, "No drivers found within the specified time",
		))
		op.resolve(Result{Outcome: OutcomeNoDrivers}, nil)
		return
	}

	op.engine.notifier.Notify(op.rider, notify.New(
		notify.EventSearchComplete, op.rider, "Drivers were found and the search is complete",
	))
	op.resolve(Result{Outcome: OutcomeDriversFound, FoundDrivers: found}, nil)
}

func (op *operation) foundIDs() []uuid.UUID {
	op.mu.Lock()
	defer op.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(op.found))
	for id := range op.found {
		ids = append(ids, id)
	}
	return ids
}
