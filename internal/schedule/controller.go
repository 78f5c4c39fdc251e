package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cloudpilot-labs/cost-governor/internal/capacity"
	"github.com/cloudpilot-labs/cost-governor/internal/logger"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

type State string

const (
	// StateArmed means the controller is waiting for a trigger time.
	StateArmed State = "ARMED"
	// StateFiring means a trigger matched and the action is in flight.
	StateFiring State = "FIRING"
)

// FireResult is the outcome of one rule firing against one fleet.
type FireResult struct {
	FleetID string
	Rule    models.ScheduleRule
	Desired int
	Err     error
}

type compiledRule struct {
	rule     models.ScheduleRule
	schedule cron.Schedule
}

// Controller forces fleet capacity at cron-determined times,
// independent of load. Schedule actions are fire-and-forget: the
// request is issued once per trigger and never retried mid-cycle,
// because the same trigger recurs on the next scheduled day. No
// coordination with the scaling controller is needed; the capacity
// backend serializes conflicting writes last-write-wins.
type Controller struct {
	rules   []compiledRule
	fleets  []models.Fleet
	backend capacity.Backend

	mu        sync.Mutex
	state     State
	lastFired map[int]time.Time

	now func() time.Time
}

func NewController(rules []models.ScheduleRule, fleets []models.Fleet, backend capacity.Backend) (*Controller, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	compiled := make([]compiledRule, 0, len(rules))
	for i, rule := range rules {
		sched, err := parser.Parse(rule.Expression)
		if err != nil {
			return nil, fmt.Errorf("schedule rule %d: %w", i, err)
		}
		compiled = append(compiled, compiledRule{rule: rule, schedule: sched})
	}

	return &Controller{
		rules:     compiled,
		fleets:    fleets,
		backend:   backend,
		state:     StateArmed,
		lastFired: make(map[int]time.Time),
		now:       time.Now,
	}, nil
}

// Tick evaluates every rule at minute resolution and fires the due
// ones. Call it at least once per minute.
func (c *Controller) Tick(ctx context.Context) []FireResult {
	now := c.now()
	minute := now.Truncate(time.Minute)

	due := c.takeDue(minute)
	if len(due) == 0 {
		return nil
	}

	c.setState(StateFiring)
	defer c.setState(StateArmed)

	var results []FireResult
	for _, cr := range due {
		results = append(results, c.fire(ctx, cr.rule)...)
	}
	return results
}

// takeDue returns rules whose schedule matches this minute and which
// have not already fired within it.
func (c *Controller) takeDue(minute time.Time) []compiledRule {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due []compiledRule
	for i, cr := range c.rules {
		if c.lastFired[i].Equal(minute) {
			continue
		}
		next := cr.schedule.Next(minute.Add(-time.Second))
		if next.Equal(minute) {
			c.lastFired[i] = minute
			due = append(due, cr)
		}
	}
	return due
}

func (c *Controller) fire(ctx context.Context, rule models.ScheduleRule) []FireResult {
	desired := rule.DesiredCount()

	var results []FireResult
	for _, fleetID := range c.targets(rule) {
		// Fire-and-forget: a failed request is logged and dropped;
		// the trigger recurs on the next scheduled day. Issuing the
		// request when desired is already at the target is a no-op
		// but still issued (idempotent).
		err := c.backend.SetDesired(ctx, fleetID, desired)
		if err != nil {
			logger.WithFleet(fleetID).Errorf("Schedule action %s failed: %v", rule.Action, err)
		} else {
			logger.WithFleet(fleetID).Infof("Schedule fired: %s -> desired=%d (rule %q)",
				rule.Action, desired, rule.Expression)
		}

		results = append(results, FireResult{
			FleetID: fleetID,
			Rule:    rule,
			Desired: desired,
			Err:     err,
		})
	}
	return results
}

// targets resolves the fleets a rule applies to: a named fleet, or
// every schedulable fleet when the rule is unscoped.
func (c *Controller) targets(rule models.ScheduleRule) []string {
	if rule.FleetID != "" {
		return []string{rule.FleetID}
	}

	var ids []string
	for _, fleet := range c.fleets {
		if fleet.Schedulable {
			ids = append(ids, fleet.ID)
		}
	}
	return ids
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
