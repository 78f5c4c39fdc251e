// Package orchestrator owns the control loops: one scaling loop per
// fleet plus singleton schedule, expiration, and budget loops. It also
// hosts the event bus and the recorder that drains it.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cloudpilot-labs/cost-governor/internal/budget"
	"github.com/cloudpilot-labs/cost-governor/internal/events"
	"github.com/cloudpilot-labs/cost-governor/internal/expiration"
	"github.com/cloudpilot-labs/cost-governor/internal/logger"
	"github.com/cloudpilot-labs/cost-governor/internal/sampler"
	"github.com/cloudpilot-labs/cost-governor/internal/scaling"
	"github.com/cloudpilot-labs/cost-governor/internal/schedule"
	"github.com/cloudpilot-labs/cost-governor/pkg/config"
	"github.com/cloudpilot-labs/cost-governor/pkg/database"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

type Orchestrator struct {
	config   *config.Config
	db       *database.DB
	eventBus *events.EventBus
	recorder *events.Recorder

	mu         sync.RWMutex
	fleetLoops map[string]*FleetLoop
	loops      []loop

	ctx    context.Context
	cancel context.CancelFunc
}

// loop is any singleton background loop (schedule, expiration, budget).
type loop interface {
	Start()
	Stop()
	Name() string
}

func New(cfg *config.Config, db *database.DB) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())

	eventBus := events.NewEventBus(cfg.Events.BufferSize)
	recorder := events.NewRecorder(db, eventBus.SubscribeAll())

	return &Orchestrator{
		config:     cfg,
		db:         db,
		eventBus:   eventBus,
		recorder:   recorder,
		fleetLoops: make(map[string]*FleetLoop),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (o *Orchestrator) Start() error {
	logger.Info("Orchestrator starting")
	o.recorder.Start()
	return nil
}

func (o *Orchestrator) Stop() {
	logger.Info("Orchestrator stopping")

	o.mu.Lock()
	for fleetID, fl := range o.fleetLoops {
		logger.Infof("Stopping scaling loop for fleet %s", fleetID)
		fl.Stop()
	}
	for _, l := range o.loops {
		logger.Infof("Stopping %s loop", l.Name())
		l.Stop()
	}
	o.mu.Unlock()

	o.cancel()
	o.recorder.Stop()
	o.eventBus.Close()

	logger.Info("Orchestrator stopped")
}

// StartFleet launches the per-fleet scaling loop: sample, evaluate,
// execute, publish an outcome event on every invocation.
func (o *Orchestrator) StartFleet(fleet models.Fleet, smp sampler.Sampler, ctrl *scaling.Controller) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.fleetLoops[fleet.ID]; exists {
		return fmt.Errorf("scaling loop already exists for fleet %s", fleet.ID)
	}

	fl := NewFleetLoop(FleetLoopConfig{
		Fleet:         fleet,
		Interval:      o.config.Sampler.Interval,
		WindowSeconds: o.config.Sampler.WindowSeconds,
		Sampler:       smp,
		Controller:    ctrl,
		Publisher:     events.NewPublisher(o.eventBus),
	})

	fl.Start()
	o.fleetLoops[fleet.ID] = fl
	logger.WithFleet(fleet.ID).Info("Fleet scaling loop started")
	return nil
}

func (o *Orchestrator) StopFleet(fleetID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	fl, exists := o.fleetLoops[fleetID]
	if !exists {
		return fmt.Errorf("no scaling loop found for fleet %s", fleetID)
	}

	fl.Stop()
	// Stale samples must not shape the first decision after a restart.
	fl.config.Controller.ResetWindow(fleetID)
	delete(o.fleetLoops, fleetID)
	logger.WithFleet(fleetID).Info("Fleet scaling loop stopped")
	return nil
}

// StartSchedule launches the schedule loop ticking at the given
// interval (clamped to at most one minute so no trigger is skipped).
func (o *Orchestrator) StartSchedule(ctrl *schedule.Controller, interval time.Duration) {
	if interval <= 0 || interval > time.Minute {
		interval = time.Minute
	}

	l := &scheduleLoop{
		controller: ctrl,
		interval:   interval,
		publisher:  events.NewPublisher(o.eventBus),
	}
	o.addLoop(l)
}

// StartExpiration launches the periodic catalog scan.
func (o *Orchestrator) StartExpiration(alerter *expiration.Alerter, interval, timeout time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	l := &expirationLoop{
		alerter:   alerter,
		interval:  interval,
		timeout:   timeout,
		publisher: events.NewPublisher(o.eventBus),
	}
	o.addLoop(l)
}

// StartBudget launches the periodic spend check.
func (o *Orchestrator) StartBudget(monitor *budget.Monitor, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	l := &budgetLoop{
		monitor:   monitor,
		interval:  interval,
		publisher: events.NewPublisher(o.eventBus),
	}
	o.addLoop(l)
}

func (o *Orchestrator) addLoop(l loop) {
	o.mu.Lock()
	defer o.mu.Unlock()
	l.Start()
	o.loops = append(o.loops, l)
	logger.Infof("%s loop started", l.Name())
}

func (o *Orchestrator) FleetRunning(fleetID string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	fl, exists := o.fleetLoops[fleetID]
	return exists && fl.IsRunning()
}

func (o *Orchestrator) RunningFleets() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	fleets := make([]string, 0, len(o.fleetLoops))
	for fleetID, fl := range o.fleetLoops {
		if fl.IsRunning() {
			fleets = append(fleets, fleetID)
		}
	}
	return fleets
}

func (o *Orchestrator) SubscribeEvents(eventType models.EventType) <-chan *models.Event {
	return o.eventBus.Subscribe(eventType)
}

func (o *Orchestrator) SubscribeAllEvents() <-chan *models.Event {
	return o.eventBus.SubscribeAll()
}
