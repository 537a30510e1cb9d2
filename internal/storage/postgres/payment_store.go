package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/swiftcab/ride-backend/internal/domain/payment"
)

const paymentColumns = `id, trip_id, rider_id, driver_id, amount, status, payment_method,
	processed_at, created_at, updated_at`

// PaymentStore persists settlement records in Postgres.
type PaymentStore struct {
	db *sql.DB
}

// NewPaymentStore creates a payment store.
func NewPaymentStore(db *sql.DB) *PaymentStore {
	return &PaymentStore{db: db}
}

func (s *PaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.TripID, p.RiderID, p.DriverID, p.Amount, p.Status, p.PaymentMethod,
		p.ProcessedAt, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (s *PaymentStore) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	return scanPayment(row)
}

func (s *PaymentStore) GetByTripID(ctx context.Context, tripID uuid.UUID) (*payment.Payment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE trip_id = $1`, tripID)
	return scanPayment(row)
}

func (s *PaymentStore) ListByDriverID(ctx context.Context, driverID uuid.UUID) ([]*payment.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE driver_id = $1
		ORDER BY created_at DESC`,
		driverID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row rowScanner) (*payment.Payment, error) {
	var p payment.Payment
	var processedAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.TripID, &p.RiderID, &p.DriverID, &p.Amount, &p.Status, &p.PaymentMethod,
		&processedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, payment.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}

	if processedAt.Valid {
		p.ProcessedAt = &processedAt.Time
	}
	return &p, nil
}
