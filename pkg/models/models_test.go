package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecyclePolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  LifecyclePolicy
		wantErr bool
	}{
		{
			name:   "no transitions",
			policy: LifecyclePolicy{ExpireAfterDays: 365},
		},
		{
			name: "increasing transitions",
			policy: LifecyclePolicy{
				TransitionRules: []TransitionRule{
					{AfterDays: 30, TargetTier: "IA"},
					{AfterDays: 90, TargetTier: "GLACIER"},
				},
				ExpireAfterDays: 365,
			},
		},
		{
			name:    "zero expiration",
			policy:  LifecyclePolicy{ExpireAfterDays: 0},
			wantErr: true,
		},
		{
			name: "non-increasing transitions",
			policy: LifecyclePolicy{
				TransitionRules: []TransitionRule{
					{AfterDays: 90, TargetTier: "IA"},
					{AfterDays: 30, TargetTier: "GLACIER"},
				},
				ExpireAfterDays: 365,
			},
			wantErr: true,
		},
		{
			name: "transition past expiration",
			policy: LifecyclePolicy{
				TransitionRules: []TransitionRule{
					{AfterDays: 400, TargetTier: "GLACIER"},
				},
				ExpireAfterDays: 365,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLifecyclePolicy_DaysUntilExpiration(t *testing.T) {
	p := LifecyclePolicy{ExpireAfterDays: 365}

	assert.Equal(t, 25, p.DaysUntilExpiration(340))
	assert.Equal(t, 0, p.DaysUntilExpiration(365))
	assert.Equal(t, -5, p.DaysUntilExpiration(370))
}

func TestCooldownState(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cooldown := 5 * time.Minute

	fresh := &CooldownState{FleetID: "fleet-1"}
	assert.False(t, fresh.Active(now, cooldown), "zero state is never in cooldown")
	assert.Zero(t, fresh.Remaining(now, cooldown))

	cs := &CooldownState{
		FleetID:             "fleet-1",
		LastActionAt:        now.Add(-2 * time.Minute),
		LastActionDirection: DirectionUp,
	}
	require.True(t, cs.Active(now, cooldown))
	assert.Equal(t, 3*time.Minute, cs.Remaining(now, cooldown))

	later := now.Add(4 * time.Minute)
	assert.False(t, cs.Active(later, cooldown))
	assert.Zero(t, cs.Remaining(later, cooldown))
}

func TestScalingDecision_ShouldExecute(t *testing.T) {
	up := &ScalingDecision{Direction: DirectionUp}
	assert.True(t, up.ShouldExecute())

	none := &ScalingDecision{Direction: DirectionNone}
	assert.False(t, none.ShouldExecute())

	blocked := &ScalingDecision{Direction: DirectionDown, CooldownActive: true}
	assert.False(t, blocked.ShouldExecute())
}

func TestBudgetStatus_PercentUsed(t *testing.T) {
	b := &BudgetStatus{SpendToDate: 950, BudgetLimit: 1000}
	assert.InDelta(t, 95.0, b.PercentUsed(), 0.001)

	zero := &BudgetStatus{SpendToDate: 100, BudgetLimit: 0}
	assert.Zero(t, zero.PercentUsed(), "unset limit must not divide by zero")
}

func TestFleetCapacity_Clamp(t *testing.T) {
	fc := &FleetCapacity{FleetID: "fleet-1", Min: 1, Max: 5, Desired: 3}

	assert.Equal(t, 5, fc.Clamp(9))
	assert.Equal(t, 1, fc.Clamp(0))
	assert.Equal(t, 3, fc.Clamp(3))

	fc.Desired = 5
	assert.True(t, fc.AtMax())
	assert.False(t, fc.AtMin())

	fc.Desired = 1
	assert.True(t, fc.AtMin())
}
