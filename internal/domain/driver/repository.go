package driver

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UnsubscribeFunc detaches a change subscription. It is safe to call more
// than once.
type UnsubscribeFunc func()

// Repository defines the interface for driver data access
type Repository interface {
	// Create creates a new driver
	Create(ctx context.Context, driver *Driver) error

	// GetByID retrieves a driver by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Driver, error)

	// Update persists the full driver record
	Update(ctx context.Context, driver *Driver) error

	// UpdateLocation updates the driver's current location
	UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error

	// SetStatus moves a driver to the given status without touching
	// reservation fields; used for online/offline toggles.
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error

	// ListAvailable returns all drivers matching the eligibility filter
	ListAvailable(ctx context.Context, filter Filter) ([]*Driver, error)

	// WatchAvailable subscribes to drivers entering or changing within the
	// eligibility filter. The channel closes when ctx is cancelled or the
	// unsubscribe function is called.
	WatchAvailable(ctx context.Context, filter Filter) (<-chan *Driver, UnsubscribeFunc, error)

	// Watch subscribes to changes on a single driver record
	Watch(ctx context.Context, id uuid.UUID) (<-chan *Driver, UnsubscribeFunc, error)

	// Reserve atomically transitions the driver from available to reserved
	// for claimantID with a lease running until the given instant. The
	// status check and write are a single atomic operation: if the driver
	// is not available at write time, ErrDriverUnavailable is returned and
	// nothing is mutated. Returns the updated record on success.
	Reserve(ctx context.Context, id, claimantID uuid.UUID, until time.Time) (*Driver, error)

	// ReleaseIfReservedBy reverts the driver to available only if it is
	// still reserved by claimantID; reports whether the revert happened.
	ReleaseIfReservedBy(ctx context.Context, id, claimantID uuid.UUID) (bool, error)

	// Release unconditionally reverts the driver to available and clears
	// reservation fields.
	Release(ctx context.Context, id uuid.UUID) error

	// Assign converts a reserved driver to unavailable, consuming the
	// reservation. Returns the updated record.
	Assign(ctx context.Context, id uuid.UUID) (*Driver, error)

	// AddRating folds a rating into the driver's aggregate rating fields
	AddRating(ctx context.Context, id uuid.UUID, stars float64) error

	// ListApplications returns drivers whose application is in the given
	// status, newest first.
	ListApplications(ctx context.Context, status ApplicationStatus) ([]*Driver, error)

	// SetApplicationStatus records an admin decision on an application
	SetApplicationStatus(ctx context.Context, id uuid.UUID, status ApplicationStatus) error
}
