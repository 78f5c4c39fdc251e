package models

import "time"

type ScaleDirection string

const (
	DirectionUp   ScaleDirection = "UP"
	DirectionDown ScaleDirection = "DOWN"
	DirectionNone ScaleDirection = "NONE"
)

// ScalingDecision is the outcome of one scaling evaluation window.
type ScalingDecision struct {
	FleetID         string         `json:"fleet_id"`
	Direction       ScaleDirection `json:"direction"`
	Delta           int            `json:"delta"`
	CurrentDesired  int            `json:"current_desired"`
	TargetDesired   int            `json:"target_desired"`
	WindowAverage   float64        `json:"window_average"`
	ReasonThreshold float64        `json:"reason_threshold"`
	Reason          string         `json:"reason"`
	CooldownActive  bool           `json:"cooldown_active"`
	EvaluatedAt     time.Time      `json:"evaluated_at"`
}

func (d *ScalingDecision) ShouldExecute() bool {
	return d.Direction != DirectionNone && !d.CooldownActive
}
