package models

// FleetCapacity is the capacity snapshot of one scalable fleet as
// reported by the capacity backend. Invariant: 0 <= Min <= Desired <= Max.
type FleetCapacity struct {
	FleetID string `json:"fleet_id"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Desired int    `json:"desired"`
	Current int    `json:"current"`
}

// Clamp bounds a candidate desired count to [Min, Max].
func (fc *FleetCapacity) Clamp(desired int) int {
	if desired < fc.Min {
		return fc.Min
	}
	if desired > fc.Max {
		return fc.Max
	}
	return desired
}

func (fc *FleetCapacity) AtMax() bool {
	return fc.Desired >= fc.Max
}

func (fc *FleetCapacity) AtMin() bool {
	return fc.Desired <= fc.Min
}

// Fleet is the static configuration of one managed fleet.
type Fleet struct {
	ID           string `json:"id" mapstructure:"id"`
	Name         string `json:"name" mapstructure:"name"`
	GroupName    string `json:"group_name" mapstructure:"group_name"`
	MinInstances int    `json:"min_instances" mapstructure:"min_instances"`
	MaxInstances int    `json:"max_instances" mapstructure:"max_instances"`
	Schedulable  bool   `json:"schedulable" mapstructure:"schedulable"`
}
