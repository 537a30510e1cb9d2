package monitoring

import (
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// Config holds New Relic configuration
type Config struct {
	LicenseKey string
	AppName    string
	Enabled    bool
}

// NewRelicApp wraps the New Relic application
type NewRelicApp struct {
	*newrelic.Application
	enabled bool
}

// New creates a new New Relic application
func New(cfg Config) (*NewRelicApp, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return &NewRelicApp{nil, false}, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigAppLogForwardingEnabled(true),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create New Relic application: %w", err)
	}

	return &NewRelicApp{app, true}, nil
}

// IsEnabled returns whether New Relic is enabled
func (nr *NewRelicApp) IsEnabled() bool {
	return nr.enabled
}

// RecordCustomEvent records a custom event
func (nr *NewRelicApp) RecordCustomEvent(eventType string, params map[string]interface{}) {
	if !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.RecordCustomEvent(eventType, params)
}

// RecordCustomMetric records a custom metric
func (nr *NewRelicApp) RecordCustomMetric(name string, value float64) {
	if !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.RecordCustomMetric(name, value)
}

// Shutdown gracefully shuts down the New Relic application
func (nr *NewRelicApp) Shutdown(timeout time.Duration) {
	if !nr.enabled || nr.Application == nil {
		return
	}
	nr.Application.Shutdown(timeout)
}

// Custom metric helpers

// RecordSearchResolved records a completed driver search and its latency
func (nr *NewRelicApp) RecordSearchResolved(tripID, outcome string, latencyMs float64) {
	nr.RecordCustomEvent("DriverSearchResolved", map[string]interface{}{
		"trip_id":    tripID,
		"outcome":    outcome,
		"latency_ms": latencyMs,
	})
}

// RecordReservation records a driver reservation attempt
func (nr *NewRelicApp) RecordReservation(driverID string, won bool) {
	nr.RecordCustomEvent("DriverReservation", map[string]interface{}{
		"driver_id": driverID,
		"won":       won,
		"timestamp": time.Now().Unix(),
	})
}

// RecordTripTransition records a trip status transition
func (nr *NewRelicApp) RecordTripTransition(tripID, from, to string) {
	nr.RecordCustomEvent("TripTransition", map[string]interface{}{
		"trip_id": tripID,
		"from":    from,
		"to":      to,
	})
}

// RecordLocationUpdate records a driver location update
func (nr *NewRelicApp) RecordLocationUpdate() {
	nr.RecordCustomMetric("custom/driver/location_update", 1)
}
