package models

import "time"

// OutletReading is one live telemetry report from an outlet's sensor
// firmware, received over MQTT.
type OutletReading struct {
	Timestamp time.Time `json:"timestamp"`
	Outlet    string    `json:"outlet,omitempty"` // filled from the topic when absent
	PowerW    float64   `json:"power_w"`
	EnergyKWh float64   `json:"energy_kwh"` // energy accumulated since the previous report
	Relay     string    `json:"relay,omitempty"`
	Plugged   *bool     `json:"plugged,omitempty"` // nil when the firmware doesn't report it
}
