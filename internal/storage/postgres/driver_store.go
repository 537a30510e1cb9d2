package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/swiftcab/ride-backend/internal/domain/driver"
	"github.com/swiftcab/ride-backend/pkg/logger"
)

const driverColumns = `id, name, phone, status, vehicle_class, can_deliver, delivery_class,
	application_status, current_latitude, current_longitude, reserved_by, reserved_until,
	rating_sum, rating_count, created_at, updated_at`

// DriverStore persists drivers in Postgres and fans out record changes
// over Redis pub/sub so live searches see them. Driver positions are also
// kept in a Redis GEO set for proximity queries.
type DriverStore struct {
	db     *sql.DB
	rdb    *redis.Client
	logger *logger.Logger
}

// NewDriverStore creates a driver store.
func NewDriverStore(db *sql.DB, rdb *redis.Client, log *logger.Logger) *DriverStore {
	return &DriverStore{db: db, rdb: rdb, logger: log}
}

// Create creates a new driver
func (s *DriverStore) Create(ctx context.Context, d *driver.Driver) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drivers (`+driverColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		d.ID, d.Name, d.Phone, d.Status, d.VehicleClass, d.CanDeliver, d.DeliveryClass,
		d.Application, d.CurrentLatitude, d.CurrentLongitude, d.ReservedBy, d.ReservedUntil,
		d.RatingSum, d.RatingCount, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

// GetByID retrieves a driver by ID
func (s *DriverStore) GetByID(ctx context.Context, id uuid.UUID) (*driver.Driver, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id)
	d, err := scanDriver(row)
	if err == sql.ErrNoRows {
		return nil, driver.ErrDriverNotFound
	}
	return d, err
}

// Update persists the full driver record
func (s *DriverStore) Update(ctx context.Context, d *driver.Driver) error {
	d.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, `
		UPDATE drivers SET name=$2, phone=$3, status=$4, vehicle_class=$5, can_deliver=$6,
			delivery_class=$7, application_status=$8, current_latitude=$9, current_longitude=$10,
			reserved_by=$11, reserved_until=$12, rating_sum=$13, rating_count=$14, updated_at=$15
		WHERE id=$1`,
		d.ID, d.Name, d.Phone, d.Status, d.VehicleClass, d.CanDeliver,
		d.DeliveryClass, d.Application, d.CurrentLatitude, d.CurrentLongitude,
		d.ReservedBy, d.ReservedUntil, d.RatingSum, d.RatingCount, d.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return driver.ErrDriverNotFound
	}
	s.publish(ctx, d)
	return nil
}

// UpdateLocation updates the driver's current location and the GEO index
func (s *DriverStore) UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	d, err := s.mutate(ctx, `
		UPDATE drivers SET current_latitude=$2, current_longitude=$3, updated_at=now()
		WHERE id=$1
		RETURNING `+driverColumns,
		id, lat, lng,
	)
	if err != nil {
		return err
	}

	if err := s.rdb.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      id.String(),
		Latitude:  lat,
		Longitude: lng,
	}).Err(); err != nil {
		s.logger.Warn("Failed to update driver GEO index",
			logger.String("driver_id", id.String()),
			logger.Err(err),
		)
	}

	s.publish(ctx, d)
	return nil
}

// SetStatus moves a driver to the given status without touching
// reservation fields.
func (s *DriverStore) SetStatus(ctx context.Context, id uuid.UUID, status driver.Status) error {
	d, err := s.mutate(ctx, `
		UPDATE drivers SET status=$2, updated_at=now()
		WHERE id=$1
		RETURNING `+driverColumns,
		id, status,
	)
	if err != nil {
		return err
	}
	s.publish(ctx, d)
	return nil
}

// ListAvailable returns all drivers matching the eligibility filter
func (s *DriverStore) ListAvailable(ctx context.Context, filter driver.Filter) ([]*driver.Driver, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+driverColumns+` FROM drivers
		WHERE status = $1 AND current_latitude IS NOT NULL AND current_longitude IS NOT NULL`,
		driver.StatusAvailable,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*driver.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		if filter.Matches(d) {
			out = append(out, d)
		}
	}
	return out, rows.Err()
}

// WatchAvailable subscribes to drivers entering or changing within the
// eligibility filter.
func (s *DriverStore) WatchAvailable(ctx context.Context, filter driver.Filter) (<-chan *driver.Driver, driver.UnsubscribeFunc, error) {
	return s.watch(ctx, func(d *driver.Driver) bool { return filter.Matches(d) })
}

// Watch subscribes to changes on a single driver record
func (s *DriverStore) Watch(ctx context.Context, id uuid.UUID) (<-chan *driver.Driver, driver.UnsubscribeFunc, error) {
	return s.watch(ctx, func(d *driver.Driver) bool { return d.ID == id })
}

func (s *DriverStore) watch(ctx context.Context, keep func(*driver.Driver) bool) (<-chan *driver.Driver, driver.UnsubscribeFunc, error) {
	payloads, unsubscribe, err := subscribe(ctx, s.rdb, driverEventsChannel, s.logger)
	if err != nil {
		return nil, nil, err
	}

	out := make(chan *driver.Driver, 16)
	go func() {
		defer close(out)
		for payload := range payloads {
			var d driver.Driver
			if err := json.Unmarshal(payload, &d); err != nil {
				s.logger.Warn("Discarding malformed driver event", logger.Err(err))
				continue
			}
			if !keep(&d) {
				continue
			}
			select {
			case out <- &d:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, driver.UnsubscribeFunc(unsubscribe), nil
}

// Reserve atomically claims an available driver. The status predicate in
// the UPDATE makes the check-and-set a single statement, so of two
// concurrent claims exactly one sees a row.
func (s *DriverStore) Reserve(ctx context.Context, id, claimantID uuid.UUID, until time.Time) (*driver.Driver, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE drivers SET status=$2, reserved_by=$3, reserved_until=$4, updated_at=now()
		WHERE id=$1 AND status=$5
		RETURNING `+driverColumns,
		id, driver.StatusReserved, claimantID, until, driver.StatusAvailable,
	)
	d, err := scanDriver(row)
	if err == sql.ErrNoRows {
		return nil, s.classifyMiss(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	s.publish(ctx, d)
	return d, nil
}

// ReleaseIfReservedBy reverts the driver to available only if still
// reserved by claimantID.
func (s *DriverStore) ReleaseIfReservedBy(ctx context.Context, id, claimantID uuid.UUID) (bool, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE drivers SET status=$3, reserved_by=NULL, reserved_until=NULL, updated_at=now()
		WHERE id=$1 AND status=$4 AND reserved_by=$2
		RETURNING `+driverColumns,
		id, claimantID, driver.StatusAvailable, driver.StatusReserved,
	)
	d, err := scanDriver(row)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.publish(ctx, d)
	return true, nil
}

// Release unconditionally reverts the driver to available
func (s *DriverStore) Release(ctx context.Context, id uuid.UUID) error {
	d, err := s.mutate(ctx, `
		UPDATE drivers SET status=$2, reserved_by=NULL, reserved_until=NULL, updated_at=now()
		WHERE id=$1
		RETURNING `+driverColumns,
		id, driver.StatusAvailable,
	)
	if err != nil {
		return err
	}
	s.publish(ctx, d)
	return nil
}

// Assign converts a reserved driver to unavailable, consuming the
// reservation.
func (s *DriverStore) Assign(ctx context.Context, id uuid.UUID) (*driver.Driver, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE drivers SET status=$2, reserved_by=NULL, reserved_until=NULL, updated_at=now()
		WHERE id=$1 AND status=$3
		RETURNING `+driverColumns,
		id, driver.StatusUnavailable, driver.StatusReserved,
	)
	d, err := scanDriver(row)
	if err == sql.ErrNoRows {
		return nil, s.classifyMiss(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	s.publish(ctx, d)
	return d, nil
}

// AddRating folds a rating into the driver's aggregate rating fields
func (s *DriverStore) AddRating(ctx context.Context, id uuid.UUID, stars float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE drivers SET rating_sum = rating_sum + $2, rating_count = rating_count + 1, updated_at=now()
		WHERE id=$1`,
		id, stars,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return driver.ErrDriverNotFound
	}
	return nil
}

// ListApplications returns drivers whose application is in the given
// status, newest first.
func (s *DriverStore) ListApplications(ctx context.Context, status driver.ApplicationStatus) ([]*driver.Driver, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+driverColumns+` FROM drivers
		WHERE application_status = $1
		ORDER BY created_at DESC`,
		status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*driver.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SetApplicationStatus records an admin decision on an application
func (s *DriverStore) SetApplicationStatus(ctx context.Context, id uuid.UUID, status driver.ApplicationStatus) error {
	d, err := s.mutate(ctx, `
		UPDATE drivers SET application_status=$2, updated_at=now()
		WHERE id=$1
		RETURNING `+driverColumns,
		id, status,
	)
	if err != nil {
		return err
	}
	s.publish(ctx, d)
	return nil
}

// mutate runs an UPDATE ... RETURNING statement and maps the no-row case
// to ErrDriverNotFound.
func (s *DriverStore) mutate(ctx context.Context, query string, args ...interface{}) (*driver.Driver, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	d, err := scanDriver(row)
	if err == sql.ErrNoRows {
		return nil, driver.ErrDriverNotFound
	}
	return d, err
}

// classifyMiss distinguishes a missing driver from one whose status
// predicate failed.
func (s *DriverStore) classifyMiss(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM drivers WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return driver.ErrDriverNotFound
	}
	return driver.ErrDriverUnavailable
}

// publish fans the updated record out to watchers. Best effort: a failed
// publish degrades live scans, not correctness.
func (s *DriverStore) publish(ctx context.Context, d *driver.Driver) {
	payload, err := json.Marshal(d)
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, driverEventsChannel, payload).Err(); err != nil {
		s.logger.Warn("Failed to publish driver event",
			logger.String("driver_id", d.ID.String()),
			logger.Err(err),
		)
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDriver(row rowScanner) (*driver.Driver, error) {
	var d driver.Driver
	var lat, lng sql.NullFloat64
	var reservedBy uuid.NullUUID
	var reservedUntil sql.NullTime

	err := row.Scan(
		&d.ID, &d.Name, &d.Phone, &d.Status, &d.VehicleClass, &d.CanDeliver, &d.DeliveryClass,
		&d.Application, &lat, &lng, &reservedBy, &reservedUntil,
		&d.RatingSum, &d.RatingCount, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid {
		d.CurrentLatitude = &lat.Float64
	}
	if lng.Valid {
		d.CurrentLongitude = &lng.Float64
	}
	if reservedBy.Valid {
		d.ReservedBy = &reservedBy.UUID
	}
	if reservedUntil.Valid {
		d.ReservedUntil = &reservedUntil.Time
	}
	return &d, nil
}
