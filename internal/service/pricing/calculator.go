package pricing

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/swiftcab/ride-backend/internal/domain/driver"
	"github.com/swiftcab/ride-backend/internal/geo"
)

// Service handles fare calculation
type Service struct {
	redis  *redis.Client
	config Config
}

// Config holds pricing configuration
type Config struct {
	BaseFare           map[driver.VehicleClass]float64
	PerKMRate          map[driver.VehicleClass]float64
	DeliveryBaseFare   float64
	DeliveryPerKMRate  float64
	StopSurcharge      float64
	MaxSurgeMultiplier float64
	MinSurgeMultiplier float64
}

// DefaultConfig returns the rate card used when none is configured.
func DefaultConfig() Config {
	return Config{
		BaseFare: map[driver.VehicleClass]float64{
			driver.VehicleEconomy: 2.50,
			driver.VehiclePremium: 4.00,
			driver.VehicleLuxury:  7.00,
		},
		PerKMRate: map[driver.VehicleClass]float64{
			driver.VehicleEconomy: 1.20,
			driver.VehiclePremium: 1.80,
			driver.VehicleLuxury:  3.00,
		},
		DeliveryBaseFare:   3.00,
		DeliveryPerKMRate:  1.00,
		StopSurcharge:      1.50,
		MaxSurgeMultiplier: 3.0,
		MinSurgeMultiplier: 1.0,
	}
}

// NewService creates a new pricing service
func NewService(redisClient *redis.Client, config Config) *Service {
	return &Service{
		redis:  redisClient,
		config: config,
	}
}

// EstimateRideFare prices a ride request at creation time. The estimate
// covers the pickup-to-dropoff leg plus the optional third stop.
func (s *Service) EstimateRideFare(ctx context.Context, class driver.VehicleClass, pickup, dropoff geo.Point, thirdStop *geo.Point, region string) float64 {
	base := s.config.BaseFare[class]
	perKM := s.config.PerKMRate[class]

	distance := geo.Distance(pickup, dropoff)
	fare := base + distance*perKM

	if thirdStop != nil {
		fare += s.config.StopSurcharge + geo.Distance(dropoff, *thirdStop)*perKM
	}

	return fare * s.GetSurgeMultiplier(ctx, region)
}

// EstimateDeliveryFare prices a delivery request; deliveries use a flat
// rate card independent of vehicle class and are exempt from surge.
func (s *Service) EstimateDeliveryFare(pickup, dropoff geo.Point) float64 {
	return s.config.DeliveryBaseFare + geo.Distance(pickup, dropoff)*s.config.DeliveryPerKMRate
}

// StopSurcharge returns the flat fee added when a third stop is appended
// to an already-priced trip, excluding the extra distance.
func (s *Service) StopSurcharge() float64 {
	return s.config.StopSurcharge
}

// RepriceForStop returns the price delta for appending a stop after the
// current dropoff.
func (s *Service) RepriceForStop(class driver.VehicleClass, dropoff, stop geo.Point) float64 {
	return s.config.StopSurcharge + geo.Distance(dropoff, stop)*s.config.PerKMRate[class]
}

// RepriceForDestination returns the new leg price when the dropoff moves;
// the base fare is already paid for, only distance is repriced.
func (s *Service) RepriceForDestination(class driver.VehicleClass, pickup, newDropoff geo.Point) float64 {
	return s.config.BaseFare[class] + geo.Distance(pickup, newDropoff)*s.config.PerKMRate[class]
}

// GetSurgeMultiplier gets the current surge multiplier for a region
func (s *Service) GetSurgeMultiplier(ctx context.Context, region string) float64 {
	if s.redis == nil {
		return 1.0
	}

	key := fmt.Sprintf("surge:%s", region)
	val, err := s.redis.Get(ctx, key).Float64()
	if err != nil {
		return 1.0 // Default no surge
	}

	if val > s.config.MaxSurgeMultiplier {
		return s.config.MaxSurgeMultiplier
	}
	if val < s.config.MinSurgeMultiplier {
		return s.config.MinSurgeMultiplier
	}

	return val
}

// SetSurgeMultiplier sets the surge multiplier for a region
func (s *Service) SetSurgeMultiplier(ctx context.Context, region string, multiplier float64) error {
	if multiplier > s.config.MaxSurgeMultiplier {
		multiplier = s.config.MaxSurgeMultiplier
	}
	if multiplier < s.config.MinSurgeMultiplier {
		multiplier = s.config.MinSurgeMultiplier
	}

	key := fmt.Sprintf("surge:%s", region)
	return s.redis.Set(ctx, key, multiplier, 0).Err()
}

// CalculateSurgeBasedOnDemand calculates surge based on demand/supply ratio
func (s *Service) CalculateSurgeBasedOnDemand(activeTrips, availableDrivers int) float64 {
	if availableDrivers == 0 {
		return s.config.MaxSurgeMultiplier
	}

	ratio := float64(activeTrips) / float64(availableDrivers)

	if ratio < 0.5 {
		return 1.0
	} else if ratio < 1.0 {
		return 1.0 + (ratio * 0.5)
	} else if ratio < 2.0 {
		return 1.5 + ((ratio - 1.0) * 1.0)
	}

	multiplier := 2.5 + ((ratio - 2.0) * 0.25)
	if multiplier > s.config.MaxSurgeMultiplier {
		return s.config.MaxSurgeMultiplier
	}
	return multiplier
}
