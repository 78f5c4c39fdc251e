package models

type ScheduleAction string

const (
	// ActionForceZero parks the whole fleet.
	ActionForceZero ScheduleAction = "FORCE_ZERO"
	// ActionKeepOne retains a single instance for minimal presence.
	ActionKeepOne ScheduleAction = "KEEP_ONE"
)

// ScheduleRule is a static, read-only rule forcing fleet capacity at a
// cron-determined time, independent of load.
type ScheduleRule struct {
	Expression string         `json:"expression" mapstructure:"expression"`
	FleetID    string         `json:"fleet_id" mapstructure:"fleet_id"`
	Action     ScheduleAction `json:"action" mapstructure:"action"`
}

// DesiredCount is the capacity the rule's action forces.
func (r *ScheduleRule) DesiredCount() int {
	if r.Action == ActionKeepOne {
		return 1
	}
	return 0
}
