package payment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

type Method string

const (
	MethodCash Method = "cash"
	MethodCard Method = "card"
)

// IsValid validates the payment method
func (m Method) IsValid() bool {
	switch m {
	case MethodCash, MethodCard:
		return true
	}
	return false
}

// Payment is the settlement record written when a trip's payment is
// confirmed. There is no gateway integration; the record captures what was
// agreed and collected in person.
type Payment struct {
	ID            uuid.UUID  `json:"id"`
	TripID        uuid.UUID  `json:"trip_id"`
	RiderID       uuid.UUID  `json:"rider_id"`
	DriverID      uuid.UUID  `json:"driver_id"`
	Amount        float64    `json:"amount"`
	Status        Status     `json:"status"`
	PaymentMethod Method     `json:"payment_method"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type Repository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	GetByTripID(ctx context.Context, tripID uuid.UUID) (*Payment, error)
	ListByDriverID(ctx context.Context, driverID uuid.UUID) ([]*Payment, error)
}

var ErrPaymentNotFound = errors.New("payment not found")
