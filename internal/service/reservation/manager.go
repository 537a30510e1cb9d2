package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/swiftcab/ride-backend/internal/domain/driver"
	"github.com/swiftcab/ride-backend/internal/observability"
	"github.com/swiftcab/ride-backend/pkg/logger"
)

// DefaultLease is the reservation lease applied when none is configured.
const DefaultLease = 30 * time.Second

// expiryCheckTimeout bounds the store round-trip made by the deferred
// lease-expiry check.
const expiryCheckTimeout = 10 * time.Second

// DriverStore is the subset of driver storage the manager needs. Reserve
// must be atomic against the backing store: of two concurrent attempts on
// the same available driver, exactly one succeeds and the other gets
// driver.ErrDriverUnavailable.
type DriverStore interface {
	Reserve(ctx context.Context, id, claimantID uuid.UUID, until time.Time) (*driver.Driver, error)
	ReleaseIfReservedBy(ctx context.Context, id, claimantID uuid.UUID) (bool, error)
	Release(ctx context.Context, id uuid.UUID) error
}

// Manager places time-bounded exclusive reservations on drivers so no two
// claimants can hold the same driver concurrently. A reservation that is
// not converted to an assignment within the lease reverts automatically.
type Manager struct {
	store  DriverStore
	logger *logger.Logger
	lease  time.Duration
}

// NewManager creates a reservation manager with the given lease duration.
func NewManager(store DriverStore, log *logger.Logger, lease time.Duration) *Manager {
	if lease <= 0 {
		lease = DefaultLease
	}
	return &Manager{store: store, logger: log, lease: lease}
}

// Lease returns the configured lease duration.
func (m *Manager) Lease() time.Duration {
	return m.lease
}

// Reserve atomically claims the driver for claimantID and schedules the
// lease-expiry revert. A lost race surfaces as driver.ErrDriverUnavailable;
// callers treat that as a skipped candidate, not a failure.
func (m *Manager) Reserve(ctx context.Context, driverID, claimantID uuid.UUID) (*driver.Driver, error) {
	until := time.Now().Add(m.lease)

	d, err := m.store.Reserve(ctx, driverID, claimantID, until)
	if err != nil {
		if err == driver.ErrDriverUnavailable {
			observability.ReservationConflicts.Inc()
		}
		return nil, err
	}

	observability.ReservationsTotal.Inc()
	m.logger.Info("Driver reserved",
		logger.String("driver_id", driverID.String()),
		logger.String("claimant_id", claimantID.String()),
		logger.String("reserved_until", until.Format(time.RFC3339)),
	)

	time.AfterFunc(m.lease, func() {
		m.expire(driverID, claimantID)
	})

	return d, nil
}

// expire reverts the driver to available if it is still reserved by the
// same claimant when the lease elapses. If the driver was assigned in the
// meantime, or re-reserved by a different claimant, this is a no-op.
func (m *Manager) expire(driverID, claimantID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), expiryCheckTimeout)
	defer cancel()

	released, err := m.store.ReleaseIfReservedBy(ctx, driverID, claimantID)
	if err != nil {
		m.logger.Error("Lease expiry check failed",
			logger.String("driver_id", driverID.String()),
			logger.Err(err),
		)
		return
	}

	if released {
		observability.LeaseExpirations.Inc()
		m.logger.Info("Reservation lease expired, driver released",
			logger.String("driver_id", driverID.String()),
			logger.String("claimant_id", claimantID.String()),
		)
	}
}

// Release unconditionally reverts the driver to available; used when a
// confirmed assignment is later cancelled or reassigned.
func (m *Manager) Release(ctx context.Context, driverID uuid.UUID) error {
	if err := m.store.Release(ctx, driverID); err != nil {
		return err
	}
	m.logger.Info("Driver released", logger.String("driver_id", driverID.String()))
	return nil
}
