package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/swiftcab/ride-backend/internal/domain/trip"
	"github.com/swiftcab/ride-backend/internal/geo"
	"github.com/swiftcab/ride-backend/pkg/logger"
)

const tripColumns = `id, rider_id, driver_id, kind, status, pickup_lat, pickup_lng,
	dropoff_lat, dropoff_lng, third_stop_lat, third_stop_lng, has_third_stop,
	pickup_address, dropoff_address, price, vehicle_class, seats, payment_method,
	payment_received, delivery_class, recipient_name, recipient_contact,
	driver_arrived_at_pickup, driver_arrived_at_dropoff, reached_third_stop, rated,
	driver_lat, driver_lng, cancellation_reason, created_at, updated_at`

// TripStore persists trips in Postgres and fans out record changes over
// Redis pub/sub so searches and trackers see them.
type TripStore struct {
	db     *sql.DB
	rdb    *redis.Client
	logger *logger.Logger
}

// NewTripStore creates a trip store.
func NewTripStore(db *sql.DB, rdb *redis.Client, log *logger.Logger) *TripStore {
	return &TripStore{db: db, rdb: rdb, logger: log}
}

// Create creates a new trip record
func (s *TripStore) Create(ctx context.Context, t *trip.Trip) error {
	var thirdLat, thirdLng *float64
	if t.ThirdStop != nil {
		thirdLat, thirdLng = &t.ThirdStop.Latitude, &t.ThirdStop.Longitude
	}
	var driverLat, driverLng *float64
	if t.DriverLocation != nil {
		driverLat, driverLng = &t.DriverLocation.Latitude, &t.DriverLocation.Longitude
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trips (`+tripColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
			$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31)`,
		t.ID, t.RiderID, t.DriverID, t.Kind, t.Status, t.Pickup.Latitude, t.Pickup.Longitude,
		t.Dropoff.Latitude, t.Dropoff.Longitude, thirdLat, thirdLng, t.HasThirdStop,
		t.PickupAddress, t.DropoffAddress, t.Price, t.VehicleClass, t.Seats, t.PaymentMethod,
		t.PaymentReceived, t.DeliveryClass, t.RecipientName, t.RecipientContact,
		t.DriverArrivedAtPickup, t.DriverArrivedAtDropoff, t.ReachedThirdStop, t.Rated,
		driverLat, driverLng, t.CancellationReason, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	s.publish(ctx, t)
	return nil
}

// GetByID retrieves a trip by ID
func (s *TripStore) GetByID(ctx context.Context, id uuid.UUID) (*trip.Trip, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id)
	t, err := scanTrip(row)
	if err == sql.ErrNoRows {
		return nil, trip.ErrTripNotFound
	}
	return t, err
}

// Update persists the full trip record
func (s *TripStore) Update(ctx context.Context, t *trip.Trip) error {
	var thirdLat, thirdLng *float64
	if t.ThirdStop != nil {
		thirdLat, thirdLng = &t.ThirdStop.Latitude, &t.ThirdStop.Longitude
	}
	var driverLat, driverLng *float64
	if t.DriverLocation != nil {
		driverLat, driverLng = &t.DriverLocation.Latitude, &t.DriverLocation.Longitude
	}

	t.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE trips SET driver_id=$2, status=$3, dropoff_lat=$4, dropoff_lng=$5,
			third_stop_lat=$6, third_stop_lng=$7, has_third_stop=$8, price=$9,
			payment_method=$10, payment_received=$11, driver_arrived_at_pickup=$12,
			driver_arrived_at_dropoff=$13, reached_third_stop=$14, rated=$15,
			driver_lat=$16, driver_lng=$17, cancellation_reason=$18, updated_at=$19
		WHERE id=$1`,
		t.ID, t.DriverID, t.Status, t.Dropoff.Latitude, t.Dropoff.Longitude,
		thirdLat, thirdLng, t.HasThirdStop, t.Price,
		t.PaymentMethod, t.PaymentReceived, t.DriverArrivedAtPickup,
		t.DriverArrivedAtDropoff, t.ReachedThirdStop, t.Rated,
		driverLat, driverLng, t.CancellationReason, t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return trip.ErrTripNotFound
	}
	s.publish(ctx, t)
	return nil
}

// Watch subscribes to changes on a single trip record.
func (s *TripStore) Watch(ctx context.Context, id uuid.UUID) (<-chan *trip.Trip, trip.UnsubscribeFunc, error) {
	payloads, unsubscribe, err := subscribe(ctx, s.rdb, tripEventsChannel, s.logger)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan *trip.Trip, 16)
	go func() {
		defer close(out)
		for payload := range payloads {
			var t trip.Trip
			if err := json.Unmarshal(payload, &t); err != nil {
				s.logger.Warn("Discarding malformed trip event", logger.Err(err))
				continue
			}
			if t.ID != id {
				continue
			}
			select {
			case out <- &t:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, trip.UnsubscribeFunc(unsubscribe), nil
}

func (s *TripStore) publish(ctx context.Context, t *trip.Trip) {
	payload, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, tripEventsChannel, payload).Err(); err != nil {
		s.logger.Warn("Failed to publish trip event",
			logger.String("trip_id", t.ID.String()),
			logger.Err(err),
		)
	}
}

func scanTrip(row rowScanner) (*trip.Trip, error) {
	var t trip.Trip
	var driverID uuid.NullUUID
	var thirdLat, thirdLng, driverLat, driverLng sql.NullFloat64
	var pickupAddr, dropoffAddr, vehicleClass, deliveryClass sql.NullString
	var recipientName, recipientContact, cancellationReason sql.NullString

	err := row.Scan(
		&t.ID, &t.RiderID, &driverID, &t.Kind, &t.Status, &t.Pickup.Latitude, &t.Pickup.Longitude,
		&t.Dropoff.Latitude, &t.Dropoff.Longitude, &thirdLat, &thirdLng, &t.HasThirdStop,
		&pickupAddr, &dropoffAddr, &t.Price, &vehicleClass, &t.Seats, &t.PaymentMethod,
		&t.PaymentReceived, &deliveryClass, &recipientName, &recipientContact,
		&t.DriverArrivedAtPickup, &t.DriverArrivedAtDropoff, &t.ReachedThirdStop, &t.Rated,
		&driverLat, &driverLng, &cancellationReason, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		t.DriverID = &driverID.UUID
	}
	if thirdLat.Valid && thirdLng.Valid {
		t.ThirdStop = &geo.Point{Latitude: thirdLat.Float64, Longitude: thirdLng.Float64}
	}
	if driverLat.Valid && driverLng.Valid {
		t.DriverLocation = &geo.Point{Latitude: driverLat.Float64, Longitude: driverLng.Float64}
	}
	t.PickupAddress = pickupAddr.String
	t.DropoffAddress = dropoffAddr.String
	t.VehicleClass = vehicleClass.String
	t.DeliveryClass = deliveryClass.String
	t.RecipientName = recipientName.String
	t.RecipientContact = recipientContact.String
	t.CancellationReason = cancellationReason.String
	return &t, nil
}
