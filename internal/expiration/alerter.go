package expiration

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudpilot-labs/cost-governor/internal/catalog"
	"github.com/cloudpilot-labs/cost-governor/internal/logger"
	"github.com/cloudpilot-labs/cost-governor/internal/notify"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

// DeliveryFailure is one warning that could not be delivered during a
// scan. Its record is not committed, so the next scan retries it.
type DeliveryFailure struct {
	Key string
	Err error
}

// ScanReport summarizes one catalog scan.
type ScanReport struct {
	Container string
	Scanned   int
	Warnings  []models.ExpirationWarning
	Anomalies []models.ExpirationAnomaly
	Failures  []DeliveryFailure
}

// Alerter walks an object catalog and emits one pre-deletion warning
// per object per expiration epoch. A scan with an unchanged catalog
// and a populated seen-store emits nothing, so re-running it is safe.
type Alerter struct {
	catalog     catalog.Catalog
	sink        notify.Sink
	seen        SeenStore
	policy      models.LifecyclePolicy
	alertBefore int
	container   string
	subscribers []string

	now func() time.Time
}

type Config struct {
	Catalog         catalog.Catalog
	Sink            notify.Sink
	Seen            SeenStore
	Policy          models.LifecyclePolicy
	AlertDaysBefore int
	Container       string
	Subscribers     []string
}

func NewAlerter(cfg Config) *Alerter {
	if cfg.AlertDaysBefore == 0 {
		cfg.AlertDaysBefore = 7
	}

	return &Alerter{
		catalog:     cfg.Catalog,
		sink:        cfg.Sink,
		seen:        cfg.Seen,
		policy:      cfg.Policy,
		alertBefore: cfg.AlertDaysBefore,
		container:   cfg.Container,
		subscribers: cfg.Subscribers,
		now:         time.Now,
	}
}

// Scan walks the whole catalog once. A delivery failure for one object
// never aborts the rest of the scan; failures are collected in the
// report and the corresponding records stay uncommitted so the next
// scan retries them (at-least-once before the deletion date).
func (a *Alerter) Scan(ctx context.Context) (*ScanReport, error) {
	report := &ScanReport{Container: a.container}

	err := a.catalog.Walk(ctx, a.container, func(obj models.CatalogObject) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Scanned++
		a.inspect(ctx, obj, report)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("catalog scan of %s: %w", a.container, err)
	}

	if len(report.Warnings) > 0 {
		a.sendDigest(ctx, report)
	}

	return report, nil
}

func (a *Alerter) inspect(ctx context.Context, obj models.CatalogObject, report *ScanReport) {
	daysLeft := a.policy.DaysUntilExpiration(obj.AgeDays)

	if daysLeft <= 0 {
		// Still present past its expiration date: the lifecycle rule
		// should have deleted it. Policy or clock drift, not ours to
		// remediate.
		report.Anomalies = append(report.Anomalies, models.ExpirationAnomaly{
			Key:             obj.Key,
			DaysPastExpiry:  -daysLeft,
			AgeDays:         obj.AgeDays,
			ExpireAfterDays: a.policy.ExpireAfterDays,
		})
		logger.WithObject(obj.Key).Warnf("Object is %d day(s) past expiration but still present", -daysLeft)
		return
	}

	if daysLeft > a.alertBefore {
		return
	}

	epoch := a.epochOf(obj)
	seen, err := a.seen.Seen(ctx, obj.Key, epoch)
	if err != nil {
		report.Failures = append(report.Failures, DeliveryFailure{Key: obj.Key, Err: err})
		return
	}
	if seen {
		return
	}

	warning := a.buildWarning(obj, daysLeft)

	err = a.sink.Send(ctx, a.subscribers, notify.Message{
		Subject: fmt.Sprintf("Object nearing expiration in %s: %s", a.container, obj.Key),
		Body:    warning.Message,
	})
	if err != nil {
		// Not committed: retried on the next scan.
		report.Failures = append(report.Failures, DeliveryFailure{Key: obj.Key, Err: err})
		logger.WithObject(obj.Key).Errorf("Warning delivery failed: %v", err)
		return
	}

	record := models.ExpirationWarningRecord{
		Key:      obj.Key,
		Epoch:    epoch,
		WarnedAt: a.now(),
	}
	if err := a.seen.Record(ctx, record); err != nil {
		// Delivered but not recorded: the next scan may warn again,
		// which the at-least-once contract allows.
		report.Failures = append(report.Failures, DeliveryFailure{Key: obj.Key, Err: err})
		return
	}

	report.Warnings = append(report.Warnings, warning)
	logger.WithObject(obj.Key).Infof("Expiration warning emitted: %d day(s) left", daysLeft)
}

func (a *Alerter) buildWarning(obj models.CatalogObject, daysLeft int) models.ExpirationWarning {
	deletionDate := a.now().UTC().AddDate(0, 0, daysLeft)

	message := fmt.Sprintf(
		"Object Expiration Alert:\n"+
			"Container: %s\n"+
			"Object Key: %s\n"+
			"Age: %d day(s)\n"+
			"Scheduled for deletion in approximately: %d day(s) (around %s).",
		a.container, obj.Key, obj.AgeDays, daysLeft, deletionDate.Format("2006-01-02"),
	)

	return models.ExpirationWarning{
		Key:             obj.Key,
		DaysUntilExpiry: daysLeft,
		DeletionDate:    deletionDate,
		Message:         message,
	}
}

// epochOf identifies the object's current expiration epoch. An
// overwrite resets LastModified and therefore starts a new epoch,
// permitting one fresh warning.
func (a *Alerter) epochOf(obj models.CatalogObject) string {
	if !obj.LastModified.IsZero() {
		return obj.LastModified.UTC().Format("2006-01-02")
	}
	return a.now().UTC().AddDate(0, 0, -obj.AgeDays).Format("2006-01-02")
}

// sendDigest publishes one consolidated message per scan so operators
// get a single summary alongside the per-object warnings.
func (a *Alerter) sendDigest(ctx context.Context, report *ScanReport) {
	subject := fmt.Sprintf("[%d] Object(s) Nearing Expiration in Container: %s",
		len(report.Warnings), a.container)

	body := fmt.Sprintf(
		"The following object(s) in container %q are nearing their %d-day lifecycle expiration:\n\n",
		a.container, a.policy.ExpireAfterDays)
	for i, w := range report.Warnings {
		if i > 0 {
			body += "\n\n---\n\n"
		}
		body += w.Message
	}

	if err := a.sink.Send(ctx, a.subscribers, notify.Message{Subject: subject, Body: body}); err != nil {
		logger.Errorf("Expiration digest delivery failed: %v", err)
	}
}
