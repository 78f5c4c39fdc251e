package models

import "time"

type ActionStatus string

const (
	ActionStatusSuccess ActionStatus = "success"
	ActionStatusFailed  ActionStatus = "failed"
	ActionStatusNoop    ActionStatus = "noop"
)

type ActionTrigger string

const (
	TriggerScaling  ActionTrigger = "scaling"
	TriggerSchedule ActionTrigger = "schedule"
)

// CapacityAction is the persisted record of one capacity request
// issued against the backend, successful or not.
type CapacityAction struct {
	ID            int           `json:"id"`
	FleetID       string        `json:"fleet_id"`
	Timestamp     time.Time     `json:"timestamp"`
	Trigger       ActionTrigger `json:"trigger"`
	Direction     string        `json:"direction"`
	DesiredBefore int           `json:"desired_before"`
	DesiredAfter  int           `json:"desired_after"`
	Reason        string        `json:"reason"`
	Status        ActionStatus  `json:"status"`
}

func NewCapacityAction(decision ScalingDecision, status ActionStatus) *CapacityAction {
	return &CapacityAction{
		FleetID:       decision.FleetID,
		Timestamp:     decision.EvaluatedAt,
		Trigger:       TriggerScaling,
		Direction:     string(decision.Direction),
		DesiredBefore: decision.CurrentDesired,
		DesiredAfter:  decision.TargetDesired,
		Reason:        decision.Reason,
		Status:        status,
	}
}
