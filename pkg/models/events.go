package models

import "time"

type EventType string

const (
	EventTypeSampleCollected   EventType = "sample_collected"
	EventTypeDecisionMade      EventType = "decision_made"
	EventTypeCapacityRequested EventType = "capacity_requested"
	EventTypeCapacityConfirmed EventType = "capacity_confirmed"
	EventTypeCapacityFailed    EventType = "capacity_failed"
	EventTypeScheduleFired     EventType = "schedule_fired"
	EventTypeExpirationWarning EventType = "expiration_warning"
	EventTypeExpirationAnomaly EventType = "expiration_anomaly"
	EventTypeBudgetAlert       EventType = "budget_alert"
	EventTypeAlert             EventType = "alert"
	EventTypeError             EventType = "error"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event is one structured outcome record. Every controller invocation
// produces at least one so no failure is silent.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	FleetID   string        `json:"fleet_id,omitempty"`
	ObjectKey string        `json:"object_key,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Data      interface{}   `json:"data,omitempty"`
	TraceID   string        `json:"trace_id,omitempty"`
}

func NewEvent(eventType EventType, fleetID, message string) *Event {
	return &Event{
		ID:        NewUUID(),
		Type:      eventType,
		Severity:  SeverityInfo,
		FleetID:   fleetID,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithData(data interface{}) *Event {
	e.Data = data
	return e
}

func (e *Event) WithObjectKey(key string) *Event {
	e.ObjectKey = key
	return e
}

func (e *Event) WithTraceID(traceID string) *Event {
	e.TraceID = traceID
	return e
}
