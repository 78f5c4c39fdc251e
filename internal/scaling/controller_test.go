package scaling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudpilot-labs/cost-governor/internal/capacity"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

func testPolicy() Policy {
	return Policy{
		UpThreshold:       75,
		DownThreshold:     25,
		CooldownDuration:  5 * time.Minute,
		Step:              1,
		EvaluationPeriods: 2,
	}
}

func newTestController(t *testing.T, desired int) (*Controller, *capacity.MemoryBackend, *time.Time) {
	t.Helper()

	backend := capacity.NewMemoryBackend()
	backend.InitFleet("fleet-1", 1, 5, desired)

	ctrl := NewController(testPolicy(), backend)

	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	ctrl.now = func() time.Time { return now }
	return ctrl, backend, &now
}

func sampleAt(value float64) *models.UtilizationSample {
	return &models.UtilizationSample{
		FleetID:   "fleet-1",
		Timestamp: time.Now(),
		Value:     value,
	}
}

func evaluate(t *testing.T, ctrl *Controller, value float64) *models.ScalingDecision {
	t.Helper()
	decision, err := ctrl.Evaluate(context.Background(), sampleAt(value))
	require.NoError(t, err)
	return decision
}

func TestController_WindowMustFillBeforeDeciding(t *testing.T) {
	ctrl, _, _ := newTestController(t, 2)

	decision := evaluate(t, ctrl, 90)
	assert.Equal(t, models.DirectionNone, decision.Direction)
	assert.Equal(t, "window_filling", decision.Reason)

	decision = evaluate(t, ctrl, 90)
	assert.Equal(t, models.DirectionUp, decision.Direction)
}

func TestController_Thresholds(t *testing.T) {
	tests := []struct {
		name      string
		samples   []float64
		direction models.ScaleDirection
		reason    string
	}{
		{
			name:      "sustained high scales up",
			samples:   []float64{80, 82},
			direction: models.DirectionUp,
			reason:    "above_up_threshold",
		},
		{
			name:      "average above threshold scales up despite one low reading",
			samples:   []float64{80, 82, 79},
			direction: models.DirectionUp,
			reason:    "above_up_threshold",
		},
		{
			name:      "sustained low scales down",
			samples:   []float64{10, 12},
			direction: models.DirectionDown,
			reason:    "below_down_threshold",
		},
		{
			name:      "dead zone holds steady",
			samples:   []float64{50, 55},
			direction: models.DirectionNone,
			reason:    "within_dead_zone",
		},
		{
			name:      "exactly at up threshold scales up",
			samples:   []float64{75, 75},
			direction: models.DirectionUp,
			reason:    "above_up_threshold",
		},
		{
			name:      "exactly at down threshold scales down",
			samples:   []float64{25, 25},
			direction: models.DirectionDown,
			reason:    "below_down_threshold",
		},
		{
			name:      "just inside dead zone does nothing",
			samples:   []float64{74.9, 74.9},
			direction: models.DirectionNone,
			reason:    "within_dead_zone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl, _, _ := newTestController(t, 3)

			var decision *models.ScalingDecision
			for _, v := range tt.samples {
				decision = evaluate(t, ctrl, v)
			}

			assert.Equal(t, tt.direction, decision.Direction)
			assert.Equal(t, tt.reason, decision.Reason)
		})
	}
}

func TestController_ScaleUpTargetsDesiredPlusStep(t *testing.T) {
	ctrl, backend, _ := newTestController(t, 2)

	evaluate(t, ctrl, 85)
	decision := evaluate(t, ctrl, 85)

	require.Equal(t, models.DirectionUp, decision.Direction)
	assert.Equal(t, 2, decision.CurrentDesired)
	assert.Equal(t, 3, decision.TargetDesired)
	assert.Equal(t, 1, decision.Delta)

	require.NoError(t, ctrl.Execute(context.Background(), decision))

	fc, err := backend.GetCapacity(context.Background(), "fleet-1")
	require.NoError(t, err)
	assert.Equal(t, 3, fc.Desired)
}

func TestController_AtMaxDegradesToNone(t *testing.T) {
	ctrl, _, _ := newTestController(t, 5)

	evaluate(t, ctrl, 95)
	decision := evaluate(t, ctrl, 95)

	assert.Equal(t, models.DirectionNone, decision.Direction)
	assert.Equal(t, "at_max_capacity", decision.Reason)
	assert.False(t, decision.CooldownActive)

	// Degrading to NONE must not start a cooldown.
	_, ok := ctrl.Cooldown("fleet-1")
	assert.False(t, ok)
}

func TestController_AtMinDegradesToNone(t *testing.T) {
	ctrl, _, _ := newTestController(t, 1)

	evaluate(t, ctrl, 5)
	decision := evaluate(t, ctrl, 5)

	assert.Equal(t, models.DirectionNone, decision.Direction)
	assert.Equal(t, "at_min_capacity", decision.Reason)

	_, ok := ctrl.Cooldown("fleet-1")
	assert.False(t, ok)
}

func TestController_CooldownBlocksSecondAction(t *testing.T) {
	ctrl, _, now := newTestController(t, 2)

	evaluate(t, ctrl, 85)
	decision := evaluate(t, ctrl, 85)
	require.Equal(t, models.DirectionUp, decision.Direction)
	require.NoError(t, ctrl.Execute(context.Background(), decision))

	// Still hot one minute later: cooldown suppresses the action.
	*now = now.Add(time.Minute)
	decision = evaluate(t, ctrl, 85)
	assert.Equal(t, models.DirectionNone, decision.Direction)
	assert.Equal(t, "in_cooldown", decision.Reason)
	assert.True(t, decision.CooldownActive)

	// Cooldown applies in both directions.
	*now = now.Add(time.Minute)
	evaluate(t, ctrl, 5)
	decision = evaluate(t, ctrl, 5)
	assert.Equal(t, models.DirectionNone, decision.Direction)
	assert.Equal(t, "in_cooldown", decision.Reason)

	// Past the cooldown the signal acts again.
	*now = now.Add(5 * time.Minute)
	decision = evaluate(t, ctrl, 5)
	assert.Equal(t, models.DirectionDown, decision.Direction)
}

func TestController_FailedExecuteDoesNotStartCooldown(t *testing.T) {
	ctrl, backend, now := newTestController(t, 2)

	evaluate(t, ctrl, 85)
	decision := evaluate(t, ctrl, 85)
	require.Equal(t, models.DirectionUp, decision.Direction)

	backend.FailNext(errors.New("backend unavailable"))
	err := ctrl.Execute(context.Background(), decision)
	require.Error(t, err)

	_, ok := ctrl.Cooldown("fleet-1")
	assert.False(t, ok, "unconfirmed request must not start cooldown")

	// The next evaluation retries without waiting out a cooldown.
	*now = now.Add(time.Minute)
	decision = evaluate(t, ctrl, 85)
	require.Equal(t, models.DirectionUp, decision.Direction)
	require.NoError(t, ctrl.Execute(context.Background(), decision))

	fc, err := backend.GetCapacity(context.Background(), "fleet-1")
	require.NoError(t, err)
	assert.Equal(t, 3, fc.Desired)
}

func TestController_CooldownRemaining(t *testing.T) {
	ctrl, _, now := newTestController(t, 2)

	assert.Equal(t, time.Duration(0), ctrl.CooldownRemaining("fleet-1"))

	evaluate(t, ctrl, 85)
	decision := evaluate(t, ctrl, 85)
	require.NoError(t, ctrl.Execute(context.Background(), decision))

	assert.Equal(t, 5*time.Minute, ctrl.CooldownRemaining("fleet-1"))

	*now = now.Add(2 * time.Minute)
	assert.Equal(t, 3*time.Minute, ctrl.CooldownRemaining("fleet-1"))

	*now = now.Add(3 * time.Minute)
	assert.Equal(t, time.Duration(0), ctrl.CooldownRemaining("fleet-1"))
}

func TestController_IndependentFleetWindows(t *testing.T) {
	backend := capacity.NewMemoryBackend()
	backend.InitFleet("fleet-a", 1, 5, 2)
	backend.InitFleet("fleet-b", 1, 5, 2)
	ctrl := NewController(testPolicy(), backend)

	ctx := context.Background()
	for _, fleetID := range []string{"fleet-a", "fleet-b"} {
		_, err := ctrl.Evaluate(ctx, &models.UtilizationSample{FleetID: fleetID, Value: 90})
		require.NoError(t, err)
	}

	// fleet-a fills its window; fleet-b's single sample must not count
	// toward it.
	decision, err := ctrl.Evaluate(ctx, &models.UtilizationSample{FleetID: "fleet-a", Value: 90})
	require.NoError(t, err)
	assert.Equal(t, models.DirectionUp, decision.Direction)

	ctrl.ResetWindow("fleet-b")
	decision, err = ctrl.Evaluate(ctx, &models.UtilizationSample{FleetID: "fleet-b", Value: 90})
	require.NoError(t, err)
	assert.Equal(t, "window_filling", decision.Reason)
}

func TestController_ExecuteIgnoresNoneDecisions(t *testing.T) {
	ctrl, backend, _ := newTestController(t, 2)

	decision := &models.ScalingDecision{FleetID: "fleet-1", Direction: models.DirectionNone}
	require.NoError(t, ctrl.Execute(context.Background(), decision))

	fc, err := backend.GetCapacity(context.Background(), "fleet-1")
	require.NoError(t, err)
	assert.Equal(t, 2, fc.Desired)
}
