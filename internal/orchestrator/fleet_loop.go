package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/cloudpilot-labs/cost-governor/internal/events"
	"github.com/cloudpilot-labs/cost-governor/internal/logger"
	"github.com/cloudpilot-labs/cost-governor/internal/sampler"
	"github.com/cloudpilot-labs/cost-governor/internal/scaling"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

type FleetLoopConfig struct {
	Fleet         models.Fleet
	Interval      time.Duration
	WindowSeconds int
	Sampler       sampler.Sampler
	Controller    *scaling.Controller
	Publisher     *events.Publisher
}

// FleetLoop runs the scaling cycle for one fleet on a fixed interval:
// sample, evaluate, execute. A failed cycle emits an error event and
// ends; the next tick is the retry. Every invocation produces at least
// one event so no outcome is silent.
type FleetLoop struct {
	config  FleetLoopConfig
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func NewFleetLoop(cfg FleetLoopConfig) *FleetLoop {
	if cfg.Interval == 0 {
		cfg.Interval = 2 * time.Minute
	}
	if cfg.WindowSeconds == 0 {
		cfg.WindowSeconds = 300
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &FleetLoop{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (l *FleetLoop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return
	}
	l.running = true
	l.wg.Add(1)
	go l.run()
}

func (l *FleetLoop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()
}

func (l *FleetLoop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func (l *FleetLoop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.Interval)
	defer ticker.Stop()

	l.runCycle()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.runCycle()
		}
	}
}

func (l *FleetLoop) runCycle() {
	// A cycle must finish before the next tick.
	timeout := l.config.Interval - time.Second
	if timeout <= 0 {
		timeout = l.config.Interval
	}
	ctx, cancel := context.WithTimeout(l.ctx, timeout)
	defer cancel()

	fleetID := l.config.Fleet.ID

	sample, err := l.config.Sampler.Sample(ctx, fleetID, l.config.WindowSeconds)
	if err != nil {
		// No sample means no decision this cycle. The window keeps its
		// contents; the next tick retries naturally.
		logger.WithFleet(fleetID).Errorf("Sampling failed: %v", err)
		l.config.Publisher.Error(fleetID, "Utilization sampling failed", err)
		return
	}
	l.config.Publisher.SampleCollected(fleetID, sample)

	decision, err := l.config.Controller.Evaluate(ctx, sample)
	if err != nil {
		logger.WithFleet(fleetID).Errorf("Evaluation failed: %v", err)
		l.config.Publisher.Error(fleetID, "Scaling evaluation failed", err)
		return
	}
	l.config.Publisher.DecisionMade(fleetID, decision)

	if decision.Reason == "at_max_capacity" {
		// Load wants more capacity than the fleet is allowed to have.
		l.config.Publisher.Alert(fleetID, models.SeverityWarning,
			"Fleet saturated at maximum capacity", decision)
	}

	if !decision.ShouldExecute() {
		return
	}

	l.config.Publisher.CapacityRequested(fleetID, decision)

	if err := l.config.Controller.Execute(ctx, decision); err != nil {
		// The cooldown was not started, so the next cycle may decide
		// and request again.
		action := models.NewCapacityAction(*decision, models.ActionStatusFailed)
		l.config.Publisher.CapacityFailed(fleetID, action, err)
		return
	}

	action := models.NewCapacityAction(*decision, models.ActionStatusSuccess)
	l.config.Publisher.CapacityConfirmed(fleetID, action)

	logger.WithFleet(fleetID).Infof(
		"Capacity change complete: %s %d -> %d",
		decision.Direction, decision.CurrentDesired, decision.TargetDesired,
	)
}
