package scaling

import (
	"context"
	"sync"
	"time"

	"github.com/cloudpilot-labs/cost-governor/internal/capacity"
	"github.com/cloudpilot-labs/cost-governor/internal/logger"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

type Policy struct {
	UpThreshold       float64
	DownThreshold     float64
	CooldownDuration  time.Duration
	Step              int
	EvaluationPeriods int
}

// Controller converts a noisy utilization signal into discrete
// capacity deltas. Hysteresis is structural: UpThreshold is strictly
// above DownThreshold, so a dead zone always exists between them.
//
// Cooldown state advances only after the backend confirms a capacity
// change. An unconfirmed request earns no cooldown, so a failed call
// retries on the next evaluation instead of waiting one out.
type Controller struct {
	policy  Policy
	backend capacity.Backend

	mu        sync.Mutex
	windows   map[string][]float64
	cooldowns map[string]*models.CooldownState

	now func() time.Time
}

func NewController(policy Policy, backend capacity.Backend) *Controller {
	if policy.UpThreshold == 0 {
		policy.UpThreshold = 75.0
	}
	if policy.DownThreshold == 0 {
		policy.DownThreshold = 25.0
	}
	if policy.CooldownDuration == 0 {
		policy.CooldownDuration = 5 * time.Minute
	}
	if policy.Step == 0 {
		policy.Step = 1
	}
	if policy.EvaluationPeriods == 0 {
		policy.EvaluationPeriods = 2
	}

	return &Controller{
		policy:    policy,
		backend:   backend,
		windows:   make(map[string][]float64),
		cooldowns: make(map[string]*models.CooldownState),
		now:       time.Now,
	}
}

// Evaluate ingests one sample and decides whether the fleet should
// scale. The decision carries no side effects; Execute issues it.
func (c *Controller) Evaluate(ctx context.Context, sample *models.UtilizationSample) (*models.ScalingDecision, error) {
	fleetID := sample.FleetID
	now := c.now()

	decision := &models.ScalingDecision{
		FleetID:     fleetID,
		Direction:   models.DirectionNone,
		EvaluatedAt: now,
	}

	avg, full := c.ingest(fleetID, sample.Value)
	decision.WindowAverage = avg

	if !full {
		decision.Reason = "window_filling"
		logger.WithFleet(fleetID).Debug("Decision: none (evaluation window not yet full)")
		return decision, nil
	}

	cap, err := c.backend.GetCapacity(ctx, fleetID)
	if err != nil {
		return nil, err
	}
	decision.CurrentDesired = cap.Desired
	decision.TargetDesired = cap.Desired

	switch {
	case avg >= c.policy.UpThreshold:
		decision.ReasonThreshold = c.policy.UpThreshold
		if c.inCooldown(fleetID, now) {
			decision.CooldownActive = true
			decision.Reason = "in_cooldown"
			break
		}
		target := cap.Clamp(cap.Desired + c.policy.Step)
		if target == cap.Desired {
			// Already at max; degrade to NONE, cooldown untouched.
			decision.Reason = "at_max_capacity"
			break
		}
		decision.Direction = models.DirectionUp
		decision.Delta = target - cap.Desired
		decision.TargetDesired = target
		decision.Reason = "above_up_threshold"

	case avg <= c.policy.DownThreshold:
		decision.ReasonThreshold = c.policy.DownThreshold
		if c.inCooldown(fleetID, now) {
			decision.CooldownActive = true
			decision.Reason = "in_cooldown"
			break
		}
		target := cap.Clamp(cap.Desired - c.policy.Step)
		if target == cap.Desired {
			decision.Reason = "at_min_capacity"
			break
		}
		decision.Direction = models.DirectionDown
		decision.Delta = target - cap.Desired
		decision.TargetDesired = target
		decision.Reason = "below_down_threshold"

	default:
		decision.Reason = "within_dead_zone"
	}

	logger.WithFleet(fleetID).Debugf("Decision: %s (avg=%.1f, reason=%s)",
		decision.Direction, avg, decision.Reason)

	return decision, nil
}

// Execute issues a non-NONE decision to the backend. Cooldown state is
// recorded only after the backend acknowledges the delta.
func (c *Controller) Execute(ctx context.Context, decision *models.ScalingDecision) error {
	if !decision.ShouldExecute() {
		return nil
	}

	if err := c.backend.RequestDelta(ctx, decision.FleetID, decision.Delta); err != nil {
		logger.WithFleet(decision.FleetID).Errorf("Capacity delta %+d not confirmed: %v", decision.Delta, err)
		return err
	}

	c.recordAction(decision.FleetID, decision.Direction)

	logger.WithFleet(decision.FleetID).Infof("Scaled %s: desired %d -> %d (avg=%.1f vs threshold %.1f)",
		decision.Direction, decision.CurrentDesired, decision.TargetDesired,
		decision.WindowAverage, decision.ReasonThreshold)

	return nil
}

func (c *Controller) ingest(fleetID string, value float64) (avg float64, full bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	window := append(c.windows[fleetID], value)
	if len(window) > c.policy.EvaluationPeriods {
		window = window[len(window)-c.policy.EvaluationPeriods:]
	}
	c.windows[fleetID] = window

	var sum float64
	for _, v := range window {
		sum += v
	}
	return sum / float64(len(window)), len(window) == c.policy.EvaluationPeriods
}

func (c *Controller) inCooldown(fleetID string, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.cooldowns[fleetID]
	if !ok {
		return false
	}
	return state.Active(now, c.policy.CooldownDuration)
}

func (c *Controller) recordAction(fleetID string, direction models.ScaleDirection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cooldowns[fleetID] = &models.CooldownState{
		FleetID:             fleetID,
		LastActionAt:        c.now(),
		LastActionDirection: direction,
	}
}

// CooldownRemaining reports how long the fleet stays in cooldown.
func (c *Controller) CooldownRemaining(fleetID string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.cooldowns[fleetID]
	if !ok {
		return 0
	}
	return state.Remaining(c.now(), c.policy.CooldownDuration)
}

// Cooldown returns a snapshot of the fleet's cooldown state, if any.
func (c *Controller) Cooldown(fleetID string) (models.CooldownState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.cooldowns[fleetID]
	if !ok {
		return models.CooldownState{}, false
	}
	return *state, true
}

// ResetWindow clears the sample window for a fleet. Used when a fleet
// is re-registered.
func (c *Controller) ResetWindow(fleetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.windows, fleetID)
}
