package driver

import "errors"

var (
	ErrDriverNotFound      = errors.New("driver not found")
	ErrDriverUnavailable   = errors.New("driver is not available")
	ErrInvalidDriverStatus = errors.New("invalid driver status")
	ErrInvalidVehicleClass = errors.New("invalid vehicle class")
)
