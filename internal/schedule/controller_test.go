package schedule

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

func testFleets() []models.Fleet {
	return []models.Fleet{
		{ID: "fleet-1", GroupName: "asg-1", MinInstances: 0, MaxInstances: 5, Schedulable: true},
		{ID: "fleet-2", GroupName: "asg-2", MinInstances: 0, MaxInstances: 5, Schedulable: true},
		{ID: "fleet-3", GroupName: "asg-3", MinInstances: 0, MaxInstances: 5, Schedulable: false},
	}
}

func newTestBackend() *capacity.MemoryBackend {
	backend := capacity.NewMemoryBackend()
	backend.InitFleet("fleet-1", 0, 5, 3)
	backend.InitFleet("fleet-2", 0, 5, 2)
	backend.InitFleet("fleet-3", 0, 5, 2)
	return backend
}

func TestNewController_RejectsInvalidExpression(t *testing.T) {
	_, err := NewController([]models.ScheduleRule{
		{Expression: "not a cron", FleetID: "fleet-1", Action: models.ActionForceZero},
	}, testFleets(), newTestBackend())
	require.Error(t, err)
}

func TestController_FiresAtScheduledMinute(t *testing.T) {
	backend := newTestBackend()
	ctrl, err := NewController([]models.ScheduleRule{
		{Expression: "30 1 * * *", FleetID: "fleet-1", Action: models.ActionForceZero},
	}, testFleets(), backend)
	require.NoError(t, err)

	now := time.Date(2026, 8, 26, 1, 29, 0, 0, time.UTC)
	ctrl.now = func() time.Time { return now }

	// One minute early: nothing fires.
	results := ctrl.Tick(context.Background())
	assert.Empty(t, results)

	// Anywhere within the matching minute fires.
	now = time.Date(2026, 8, 26, 1, 30, 42, 0, time.UTC)
	results = ctrl.Tick(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, "fleet-1", results[0].FleetID)
	assert.Equal(t, 0, results[0].Desired)
	assert.NoError(t, results[0].Err)

	fc, err := backend.GetCapacity(context.Background(), "fleet-1")
	require.NoError(t, err)
	assert.Equal(t, 0, fc.Desired)
}

func TestController_DoesNotDoubleFireWithinMinute(t *testing.T) {
	ctrl, err := NewController([]models.ScheduleRule{
		{Expression: "30 1 * * *", FleetID: "fleet-1", Action: models.ActionForceZero},
	}, testFleets(), newTestBackend())
	require.NoError(t, err)

	now := time.Date(2026, 8, 26, 1, 30, 5, 0, time.UTC)
	ctrl.now = func() time.Time { return now }

	require.Len(t, ctrl.Tick(context.Background()), 1)

	// A second tick in the same minute is a no-op.
	now = now.Add(20 * time.Second)
	assert.Empty(t, ctrl.Tick(context.Background()))

	// The next day's matching minute fires again.
	now = now.AddDate(0, 0, 1)
	assert.Len(t, ctrl.Tick(context.Background()), 1)
}

func TestController_KeepOneRetainsSingleInstance(t *testing.T) {
	backend := newTestBackend()
	ctrl, err := NewController([]models.ScheduleRule{
		{Expression: "0 2 * * *", FleetID: "fleet-2", Action: models.ActionKeepOne},
	}, testFleets(), backend)
	require.NoError(t, err)

	ctrl.now = func() time.Time { return time.Date(2026, 8, 26, 2, 0, 0, 0, time.UTC) }

	results := ctrl.Tick(context.Background())
	require.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Desired)

	fc, err := backend.GetCapacity(context.Background(), "fleet-2")
	require.NoError(t, err)
	assert.Equal(t, 1, fc.Desired)
}

func TestController_UnscopedRuleTargetsSchedulableFleets(t *testing.T) {
	backend := newTestBackend()
	ctrl, err := NewController([]models.ScheduleRule{
		{Expression: "0 22 * * 5", Action: models.ActionForceZero},
	}, testFleets(), backend)
	require.NoError(t, err)

	// 2026-08-28 is a Friday.
	ctrl.now = func() time.Time { return time.Date(2026, 8, 28, 22, 0, 30, 0, time.UTC) }

	results := ctrl.Tick(context.Background())
	require.Len(t, results, 2)

	fired := map[string]bool{}
	for _, res := range results {
		fired[res.FleetID] = true
		assert.NoError(t, res.Err)
	}
	assert.True(t, fired["fleet-1"])
	assert.True(t, fired["fleet-2"])
	assert.False(t, fired["fleet-3"], "non-schedulable fleet must be skipped")

	fc, err := backend.GetCapacity(context.Background(), "fleet-3")
	require.NoError(t, err)
	assert.Equal(t, 2, fc.Desired)
}

func TestController_FireAndForgetOnBackendFailure(t *testing.T) {
	backend := newTestBackend()
	ctrl, err := NewController([]models.ScheduleRule{
		{Expression: "0 3 * * *", FleetID: "fleet-1", Action: models.ActionForceZero},
	}, testFleets(), backend)
	require.NoError(t, err)

	now := time.Date(2026, 8, 26, 3, 0, 0, 0, time.UTC)
	ctrl.now = func() time.Time { return now }

	backend.FailNext(errors.New("backend unavailable"))
	results := ctrl.Tick(context.Background())
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)

	// No mid-cycle retry: the same minute stays consumed.
	now = now.Add(30 * time.Second)
	assert.Empty(t, ctrl.Tick(context.Background()))
	assert.Equal(t, StateArmed, ctrl.State())

	// The trigger recurs the next day and succeeds.
	now = now.AddDate(0, 0, 1)
	results = ctrl.Tick(context.Background())
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
}

func TestController_IdempotentWhenAlreadyAtTarget(t *testing.T) {
	backend := newTestBackend()
	require.NoError(t, backend.SetDesired(context.Background(), "fleet-1", 0))

	ctrl, err := NewController([]models.ScheduleRule{
		{Expression: "15 4 * * *", FleetID: "fleet-1", Action: models.ActionForceZero},
	}, testFleets(), backend)
	require.NoError(t, err)

	ctrl.now = func() time.Time { return time.Date(2026, 8, 26, 4, 15, 0, 0, time.UTC) }

	results := ctrl.Tick(context.Background())
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)

	fc, err := backend.GetCapacity(context.Background(), "fleet-1")
	require.NoError(t, err)
	assert.Equal(t, 0, fc.Desired)
}
