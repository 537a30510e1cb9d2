package driver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr(f float64) *float64 { return &f }

func TestFilter_Matches(t *testing.T) {
	located := func(status Status) *Driver {
		return &Driver{
			Status:           status,
			VehicleClass:     VehicleEconomy,
			CanDeliver:       true,
			DeliveryClass:    "small",
			CurrentLatitude:  ptr(0),
			CurrentLongitude: ptr(0),
		}
	}

	tests := []struct {
		name   string
		filter Filter
		driver *Driver
		want   bool
	}{
		{"available economy", Filter{VehicleClass: VehicleEconomy}, located(StatusAvailable), true},
		{"any class", Filter{}, located(StatusAvailable), true},
		{"reserved driver excluded", Filter{}, located(StatusReserved), false},
		{"offline driver excluded", Filter{}, located(StatusOffline), false},
		{"class mismatch", Filter{VehicleClass: VehicleLuxury}, located(StatusAvailable), false},
		{"delivery class match", Filter{DeliveryOnly: true, DeliveryClass: "small"}, located(StatusAvailable), true},
		{"delivery class mismatch", Filter{DeliveryOnly: true, DeliveryClass: "large"}, located(StatusAvailable), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(tt.driver))
		})
	}
}

func TestFilter_Matches_RequiresLocation(t *testing.T) {
	d := &Driver{Status: StatusAvailable, VehicleClass: VehicleEconomy}
	assert.False(t, Filter{}.Matches(d))
}

func TestFilter_Matches_DeliveryRequiresCanDeliver(t *testing.T) {
	d := &Driver{
		Status:           StatusAvailable,
		CanDeliver:       false,
		CurrentLatitude:  ptr(0),
		CurrentLongitude: ptr(0),
	}
	assert.False(t, Filter{DeliveryOnly: true}.Matches(d))
}

func TestDriver_Rating(t *testing.T) {
	d := &Driver{}
	assert.Equal(t, 0.0, d.Rating())

	d.RatingSum = 14
	d.RatingCount = 3
	assert.InDelta(t, 4.67, d.Rating(), 0.01)
}

func TestDriver_LeaseExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(30 * time.Second)

	expired := &Driver{Status: StatusReserved, ReservedUntil: &past}
	assert.True(t, expired.LeaseExpired(now))

	active := &Driver{Status: StatusReserved, ReservedUntil: &future}
	assert.False(t, active.LeaseExpired(now))

	assigned := &Driver{Status: StatusUnavailable, ReservedUntil: &past}
	assert.False(t, assigned.LeaseExpired(now), "assigned drivers are not lease-bound")
}
