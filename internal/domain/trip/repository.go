package trip

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrTripNotFound  = errors.New("trip not found")
	ErrInvalidStatus = errors.New("invalid status transition")
)

// UnsubscribeFunc detaches a change subscription. Safe to call more than
// once.
type UnsubscribeFunc func()

// Repository defines the interface for trip data access
type Repository interface {
	// Create creates a new trip record
	Create(ctx context.Context, trip *Trip) error

	// GetByID retrieves a trip by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Trip, error)

	// Update persists the full trip record
	Update(ctx context.Context, trip *Trip) error

	// Watch subscribes to changes on a single trip record. The channel
	// closes when ctx is cancelled or the unsubscribe function is called.
	Watch(ctx context.Context, id uuid.UUID) (<-chan *Trip, UnsubscribeFunc, error)
}
