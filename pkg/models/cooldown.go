package models

import "time"

// CooldownState tracks the last confirmed capacity action for a fleet.
// It is owned by the scaling controller and only advanced after the
// backend has acknowledged the capacity change.
type CooldownState struct {
	FleetID             string         `json:"fleet_id"`
	LastActionAt        time.Time      `json:"last_action_at"`
	LastActionDirection ScaleDirection `json:"last_action_direction"`
}

func (cs *CooldownState) Active(now time.Time, cooldown time.Duration) bool {
	if cs.LastActionAt.IsZero() {
		return false
	}
	return now.Sub(cs.LastActionAt) < cooldown
}

func (cs *CooldownState) Remaining(now time.Time, cooldown time.Duration) time.Duration {
	if !cs.Active(now, cooldown) {
		return 0
	}
	return cooldown - now.Sub(cs.LastActionAt)
}
