package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cloudpilot-labs/cost-governor/internal/logger"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

// EventBridge forwards orchestrator events to WebSocket clients.
type EventBridge struct {
	hub        *Hub
	eventsChan <-chan *models.Event
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewEventBridge(hub *Hub, eventsChan <-chan *models.Event) *EventBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventBridge{
		hub:        hub,
		eventsChan: eventsChan,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (b *EventBridge) Start() {
	go b.run()
	logger.Info("WebSocket event bridge started")
}

func (b *EventBridge) Stop() {
	b.cancel()
	logger.Info("WebSocket event bridge stopped")
}

func (b *EventBridge) run() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case event, ok := <-b.eventsChan:
			if !ok {
				logger.Info("Event channel closed, stopping bridge")
				return
			}
			b.forwardEvent(event)
		}
	}
}

func (b *EventBridge) forwardEvent(event *models.Event) {
	wsMessage := convertToWSMessage(event)
	if wsMessage == nil {
		return
	}

	data, err := json.Marshal(wsMessage)
	if err != nil {
		logger.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	if event.FleetID != "" {
		b.hub.BroadcastToFleet(event.FleetID, data)
		return
	}
	// Fleet-less events (expiration, budget) go to everyone.
	b.hub.Broadcast(data)
}

// WebSocketEvent is the message format sent to WebSocket clients.
type WebSocketEvent struct {
	Type      string      `json:"type"`
	FleetID   string      `json:"fleet_id,omitempty"`
	ObjectKey string      `json:"object_key,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Severity  string      `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func convertToWSMessage(event *models.Event) *WebSocketEvent {
	wsType := mapEventType(event.Type)
	if wsType == "" {
		return nil
	}

	return &WebSocketEvent{
		Type:      wsType,
		FleetID:   event.FleetID,
		ObjectKey: event.ObjectKey,
		Timestamp: event.Timestamp,
		Severity:  string(event.Severity),
		Message:   event.Message,
		Data:      event.Data,
	}
}

func mapEventType(eventType models.EventType) string {
	switch eventType {
	case models.EventTypeDecisionMade:
		return "decision"
	case models.EventTypeCapacityRequested:
		return "capacity_requested"
	case models.EventTypeCapacityConfirmed:
		return "capacity_change"
	case models.EventTypeCapacityFailed:
		return "capacity_failed"
	case models.EventTypeScheduleFired:
		return "schedule_fired"
	case models.EventTypeExpirationWarning:
		return "expiration_warning"
	case models.EventTypeExpirationAnomaly:
		return "expiration_anomaly"
	case models.EventTypeBudgetAlert:
		return "budget_alert"
	case models.EventTypeAlert:
		return "alert"
	case models.EventTypeError:
		return "error"
	default:
		// Raw samples stay off the wire.
		return ""
	}
}
