package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudpilot-labs/cost-governor/internal/capacity"
	"github.com/cloudpilot-labs/cost-governor/internal/sampler"
	"github.com/cloudpilot-labs/cost-governor/internal/scaling"
	"github.com/cloudpilot-labs/cost-governor/pkg/config"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

func testOrchestrator(t *testing.T) (*Orchestrator, *capacity.MemoryBackend, *sampler.MockSampler, *scaling.Controller) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Sampler.Interval = 50 * time.Millisecond
	cfg.Sampler.WindowSeconds = 60
	cfg.Events.BufferSize = 64

	backend := capacity.NewMemoryBackend()
	backend.InitFleet("fleet-1", 1, 5, 2)

	smp := sampler.NewMockSampler(sampler.MockConfig{BaseValue: 50, Variance: 0})
	smp.AddFleet("fleet-1")

	ctrl := scaling.NewController(scaling.Policy{
		UpThreshold:       75,
		DownThreshold:     25,
		CooldownDuration:  time.Minute,
		Step:              1,
		EvaluationPeriods: 2,
	}, backend)

	orch := New(cfg, nil)
	require.NoError(t, orch.Start())
	return orch, backend, smp, ctrl
}

func TestOrchestrator_FleetLifecycle(t *testing.T) {
	orch, _, smp, ctrl := testOrchestrator(t)
	defer orch.Stop()

	fleet := models.Fleet{ID: "fleet-1", MinInstances: 1, MaxInstances: 5}

	require.NoError(t, orch.StartFleet(fleet, smp, ctrl))
	assert.True(t, orch.FleetRunning("fleet-1"))
	assert.Equal(t, []string{"fleet-1"}, orch.RunningFleets())

	err := orch.StartFleet(fleet, smp, ctrl)
	assert.Error(t, err, "starting the same fleet twice must fail")

	require.NoError(t, orch.StopFleet("fleet-1"))
	assert.False(t, orch.FleetRunning("fleet-1"))
	assert.Empty(t, orch.RunningFleets())

	assert.Error(t, orch.StopFleet("fleet-1"), "stopping a stopped fleet must fail")

	// A stopped fleet can be started again.
	require.NoError(t, orch.StartFleet(fleet, smp, ctrl))
	assert.True(t, orch.FleetRunning("fleet-1"))
}

func TestOrchestrator_PublishesDecisionEvents(t *testing.T) {
	orch, _, smp, ctrl := testOrchestrator(t)
	defer orch.Stop()

	decisions := orch.SubscribeEvents(models.EventTypeDecisionMade)

	fleet := models.Fleet{ID: "fleet-1", MinInstances: 1, MaxInstances: 5}
	require.NoError(t, orch.StartFleet(fleet, smp, ctrl))

	select {
	case ev := <-decisions:
		assert.Equal(t, models.EventTypeDecisionMade, ev.Type)
		assert.Equal(t, "fleet-1", ev.FleetID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a decision event from the scaling loop")
	}
}

func TestOrchestrator_UnknownFleetNotRunning(t *testing.T) {
	orch, _, _, _ := testOrchestrator(t)
	defer orch.Stop()

	assert.False(t, orch.FleetRunning("ghost"))
}
