package models

import "time"

// UtilizationSample is a single scalar utilization reading for a fleet.
// Value is a percentage in [0, 100].
type UtilizationSample struct {
	FleetID   string    `json:"fleet_id"`
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}
