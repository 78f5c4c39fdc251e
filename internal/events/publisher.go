package events

import (
	"fmt"

	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) SampleCollected(fleetID string, sample *models.UtilizationSample) {
	event := models.NewEvent(models.EventTypeSampleCollected, fleetID, "Utilization sample collected").
		WithData(sample)
	p.publish(event)
}

func (p *Publisher) DecisionMade(fleetID string, decision *models.ScalingDecision) {
	msg := "Scaling decision: " + string(decision.Direction) + " (" + decision.Reason + ")"
	event := models.NewEvent(models.EventTypeDecisionMade, fleetID, msg).
		WithData(decision)
	p.publish(event)
}

func (p *Publisher) CapacityRequested(fleetID string, decision *models.ScalingDecision) {
	msg := fmt.Sprintf("Capacity change requested: %d -> %d", decision.CurrentDesired, decision.TargetDesired)
	event := models.NewEvent(models.EventTypeCapacityRequested, fleetID, msg).
		WithData(decision)
	p.publish(event)
}

func (p *Publisher) CapacityConfirmed(fleetID string, action *models.CapacityAction) {
	msg := fmt.Sprintf("Capacity change confirmed: %d -> %d", action.DesiredBefore, action.DesiredAfter)
	event := models.NewEvent(models.EventTypeCapacityConfirmed, fleetID, msg).
		WithData(action)
	p.publish(event)
}

func (p *Publisher) CapacityFailed(fleetID string, action *models.CapacityAction, err error) {
	event := models.NewEvent(models.EventTypeCapacityFailed, fleetID, "Capacity change failed: "+err.Error()).
		WithSeverity(models.SeverityCritical).
		WithData(action)
	p.publish(event)
}

func (p *Publisher) ScheduleFired(fleetID, ruleName string, desired int) {
	msg := fmt.Sprintf("Schedule %q fired: desired set to %d", ruleName, desired)
	event := models.NewEvent(models.EventTypeScheduleFired, fleetID, msg).
		WithData(map[string]interface{}{
			"rule":    ruleName,
			"desired": desired,
		})
	p.publish(event)
}

func (p *Publisher) ExpirationWarning(warning *models.ExpirationWarning) {
	msg := fmt.Sprintf("Object expires in %d day(s)", warning.DaysUntilExpiry)
	event := models.NewEvent(models.EventTypeExpirationWarning, "", msg).
		WithObjectKey(warning.Key).
		WithSeverity(models.SeverityWarning).
		WithData(warning)
	p.publish(event)
}

func (p *Publisher) ExpirationAnomaly(anomaly *models.ExpirationAnomaly) {
	msg := fmt.Sprintf("Object is %d day(s) past expiration but still present", anomaly.DaysPastExpiry)
	event := models.NewEvent(models.EventTypeExpirationAnomaly, "", msg).
		WithObjectKey(anomaly.Key).
		WithSeverity(models.SeverityCritical).
		WithData(anomaly)
	p.publish(event)
}

func (p *Publisher) BudgetAlert(status *models.BudgetStatus) {
	msg := fmt.Sprintf("Budget threshold exceeded: %.1f%% of limit used", status.PercentUsed())
	event := models.NewEvent(models.EventTypeBudgetAlert, "", msg).
		WithSeverity(models.SeverityCritical).
		WithData(status)
	p.publish(event)
}

func (p *Publisher) Alert(fleetID string, severity models.EventSeverity, message string, data interface{}) {
	event := models.NewEvent(models.EventTypeAlert, fleetID, message).
		WithSeverity(severity).
		WithData(data)
	p.publish(event)
}

func (p *Publisher) Error(fleetID string, message string, err error) {
	event := models.NewEvent(models.EventTypeError, fleetID, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}
