package events

import (
	"context"

	"github.com/cloudpilot-labs/cost-governor/internal/logger"
	"github.com/cloudpilot-labs/cost-governor/pkg/database"
	"github.com/cloudpilot-labs/cost-governor/pkg/database/queries"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

// Recorder drains the event stream, logs every event, and persists the
// durable ones (capacity outcomes, expiration warnings) to Postgres.
// With a nil DB it degrades to log-only, which the simulator uses.
type Recorder struct {
	db        *database.DB
	actions   *queries.CapacityActionRepository
	warnings  *queries.WarningRepository
	eventChan <-chan *models.Event
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewRecorder(db *database.DB, eventChan <-chan *models.Event) *Recorder {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Recorder{
		db:        db,
		eventChan: eventChan,
		ctx:       ctx,
		cancel:    cancel,
	}
	if db != nil {
		r.actions = queries.NewCapacityActionRepository(db.DB)
		r.warnings = queries.NewWarningRepository(db.DB)
	}
	return r
}

func (r *Recorder) Start() {
	go r.run()
}

func (r *Recorder) Stop() {
	r.cancel()
}

func (r *Recorder) run() {
	for {
		select {
		case <-r.ctx.Done():
			return
		case event, ok := <-r.eventChan:
			if !ok {
				return
			}
			r.processEvent(event)
		}
	}
}

func (r *Recorder) processEvent(event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"fleet_id":   event.FleetID,
		"object_key": event.ObjectKey,
		"severity":   event.Severity,
		"trace_id":   event.TraceID,
	})

	switch event.Severity {
	case models.SeverityCritical:
		entry.Error(event.Message)
	case models.SeverityWarning:
		entry.Warn(event.Message)
	default:
		entry.Info(event.Message)
	}

	if r.db == nil {
		return
	}

	switch event.Type {
	case models.EventTypeCapacityConfirmed, models.EventTypeCapacityFailed:
		r.persistAction(event)
	case models.EventTypeExpirationWarning:
		r.persistWarning(event)
	}
	r.persistOutcome(event)
}

func (r *Recorder) persistAction(event *models.Event) {
	action, ok := event.Data.(*models.CapacityAction)
	if !ok {
		return
	}
	if err := r.actions.Insert(r.ctx, action); err != nil {
		logger.Errorf("Failed to persist capacity action: %v", err)
	}
}

func (r *Recorder) persistWarning(event *models.Event) {
	warning, ok := event.Data.(*models.ExpirationWarning)
	if !ok {
		return
	}
	record := &queries.WarningRecord{
		ObjectKey: warning.Key,
		Epoch:     warning.DeletionDate.UTC().Format("2006-01-02"),
		DaysLeft:  warning.DaysUntilExpiry,
		WarnedAt:  event.Timestamp,
	}
	if err := r.warnings.Insert(r.ctx, record); err != nil {
		logger.Errorf("Failed to persist expiration warning: %v", err)
	}
}

func (r *Recorder) persistOutcome(event *models.Event) {
	query := `
		INSERT INTO outcome_events (id, type, severity, fleet_id, object_key, timestamp, message, trace_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(r.ctx, query,
		event.ID,
		event.Type,
		event.Severity,
		event.FleetID,
		event.ObjectKey,
		event.Timestamp,
		event.Message,
		event.TraceID,
	)
	if err != nil {
		logger.Errorf("Failed to persist outcome event: %v", err)
	}
}
