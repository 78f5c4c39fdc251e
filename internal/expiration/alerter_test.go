package expiration

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudpilot-labs/cost-governor/internal/catalog"
	"github.com/cloudpilot-labs/cost-governor/internal/notify"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

type alerterFixture struct {
	alerter *Alerter
	catalog *catalog.MemoryCatalog
	sink    *notify.MemorySink
	seen    *MemoryStore
	now     time.Time
}

func newAlerterFixture(t *testing.T, alertDaysBefore int) *alerterFixture {
	t.Helper()

	f := &alerterFixture{
		catalog: catalog.NewMemoryCatalog(),
		sink:    notify.NewMemorySink(),
		seen:    NewMemoryStore(),
		now:     time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC),
	}

	f.alerter = NewAlerter(Config{
		Catalog:         f.catalog,
		Sink:            f.sink,
		Seen:            f.seen,
		Policy:          models.LifecyclePolicy{ExpireAfterDays: 365},
		AlertDaysBefore: alertDaysBefore,
		Container:       "archive",
		Subscribers:     []string{"ops@example.com"},
	})
	f.alerter.now = func() time.Time { return f.now }
	return f
}

func (f *alerterFixture) object(key string, ageDays int) models.CatalogObject {
	return models.CatalogObject{
		Key:          key,
		AgeDays:      ageDays,
		LastModified: f.now.AddDate(0, 0, -ageDays),
	}
}

func (f *alerterFixture) scan(t *testing.T) *ScanReport {
	t.Helper()
	report, err := f.alerter.Scan(context.Background())
	require.NoError(t, err)
	return report
}

func TestAlerter_WarnsInsideWindow(t *testing.T) {
	f := newAlerterFixture(t, 30)
	f.catalog.Put("archive",
		f.object("reports/q3.parquet", 340), // 25 days left, inside window
		f.object("reports/q2.parquet", 100), // far from expiring
	)

	report := f.scan(t)

	assert.Equal(t, 2, report.Scanned)
	require.Len(t, report.Warnings, 1)
	assert.Empty(t, report.Anomalies)
	assert.Empty(t, report.Failures)

	warning := report.Warnings[0]
	assert.Equal(t, "reports/q3.parquet", warning.Key)
	assert.Equal(t, 25, warning.DaysUntilExpiry)
	assert.Contains(t, warning.Message, "approximately: 25 day(s)")
	assert.Contains(t, warning.Message, warning.DeletionDate.Format("2006-01-02"))

	// One per-object send plus the consolidated digest.
	deliveries := f.sink.Deliveries()
	require.Len(t, deliveries, 2)
	assert.Contains(t, deliveries[1].Message.Subject, "[1] Object(s) Nearing Expiration in Container: archive")
}

func TestAlerter_WarnsOncePerEpoch(t *testing.T) {
	f := newAlerterFixture(t, 30)
	f.catalog.Put("archive", f.object("data.bin", 350))

	report := f.scan(t)
	require.Len(t, report.Warnings, 1)

	// Re-scanning an unchanged catalog emits nothing.
	report = f.scan(t)
	assert.Empty(t, report.Warnings)
	assert.Len(t, f.sink.Deliveries(), 2)
}

func TestAlerter_AgeResetStartsNewEpoch(t *testing.T) {
	f := newAlerterFixture(t, 30)
	f.catalog.Put("archive", f.object("data.bin", 350))
	f.scan(t)

	// The object is overwritten: age resets, then drifts back into the
	// warning window much later.
	f.catalog.Reset("archive")
	f.now = f.now.AddDate(0, 11, 0)
	f.catalog.Put("archive", f.object("data.bin", 340))

	report := f.scan(t)
	require.Len(t, report.Warnings, 1, "new epoch permits a fresh warning")
	assert.Equal(t, 1, f.seen.Len(), "new epoch replaces the old record")
}

func TestAlerter_ReportsAnomalyPastExpiration(t *testing.T) {
	f := newAlerterFixture(t, 7)
	f.catalog.Put("archive",
		f.object("stale.bin", 370),
		f.object("exact.bin", 365),
	)

	report := f.scan(t)

	assert.Empty(t, report.Warnings)
	require.Len(t, report.Anomalies, 2)
	assert.Equal(t, "stale.bin", report.Anomalies[0].Key)
	assert.Equal(t, 5, report.Anomalies[0].DaysPastExpiry)
	assert.Equal(t, 0, report.Anomalies[1].DaysPastExpiry)

	// Anomalies are reported, not notified per-object.
	assert.Empty(t, f.sink.Deliveries())
}

func TestAlerter_DeliveryFailureRetriesNextScan(t *testing.T) {
	f := newAlerterFixture(t, 30)
	f.catalog.Put("archive", f.object("data.bin", 350))

	subject := fmt.Sprintf("Object nearing expiration in %s: %s", "archive", "data.bin")
	f.sink.FailSubject(subject, errors.New("notify unavailable"))

	report := f.scan(t)
	assert.Empty(t, report.Warnings)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "data.bin", report.Failures[0].Key)
	assert.Equal(t, 0, f.seen.Len(), "failed delivery must not be committed")

	// Next scan the sink recovers and the warning goes out.
	f.sink.FailSubject(subject, nil)

	report = f.scan(t)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, 1, f.seen.Len())
}

func TestAlerter_ScanErrorPropagates(t *testing.T) {
	f := newAlerterFixture(t, 7)

	// Unknown container: the walk itself fails.
	_, err := f.alerter.Scan(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrContainerNotFound)
}
