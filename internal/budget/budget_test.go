package budget

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudpilot-labs/cost-governor/internal/notify"
)

func TestMonitor_BelowThresholdStaysQuiet(t *testing.T) {
	source := NewStaticSource(500)
	sink := notify.NewMemorySink()
	monitor := NewMonitor(source, sink, 1000, 90, []string{"ops@example.com"})

	status, alerted, err := monitor.Check(context.Background())
	require.NoError(t, err)

	assert.False(t, status.Exceeded)
	assert.False(t, alerted)
	assert.Equal(t, 50.0, status.PercentUsed())
	assert.Empty(t, sink.Deliveries())
}

func TestMonitor_AlertsOncePerPeriod(t *testing.T) {
	source := NewStaticSource(950)
	sink := notify.NewMemorySink()
	monitor := NewMonitor(source, sink, 1000, 90, []string{"ops@example.com"})

	status, alerted, err := monitor.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Exceeded)
	assert.True(t, alerted)

	deliveries := sink.Deliveries()
	require.Len(t, deliveries, 1)
	assert.Contains(t, deliveries[0].Message.Body, "950.00")
	assert.Contains(t, deliveries[0].Message.Body, "95.0%")

	// Spend keeps climbing within the same period: still one alert.
	source.SetSpend(990)
	status, alerted, err = monitor.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Exceeded)
	assert.False(t, alerted)
	assert.Len(t, sink.Deliveries(), 1)
}

func TestMonitor_PeriodRolloverRearmsAlert(t *testing.T) {
	source := NewStaticSource(950)
	source.SetPeriod("2026-08")
	sink := notify.NewMemorySink()
	monitor := NewMonitor(source, sink, 1000, 90, nil)

	_, alerted, err := monitor.Check(context.Background())
	require.NoError(t, err)
	require.True(t, alerted)

	// New billing period: spend resets below the threshold.
	source.SetPeriod("2026-09")
	source.SetSpend(100)
	_, alerted, err = monitor.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, alerted)

	// The new period's breach alerts again.
	source.SetSpend(920)
	_, alerted, err = monitor.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, alerted)
	assert.Len(t, sink.Deliveries(), 2)
}

func TestMonitor_FailedDeliveryRetriesNextCheck(t *testing.T) {
	source := NewStaticSource(950)
	sink := notify.NewMemorySink()
	monitor := NewMonitor(source, sink, 1000, 90, nil)

	sink.FailAll(errors.New("notify unavailable"))
	status, alerted, err := monitor.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Exceeded)
	assert.False(t, alerted, "failed delivery must not arm the dedup")

	sink.FailAll(nil)
	_, alerted, err = monitor.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, alerted)
}

func TestMonitor_SpendSourceErrorSurfaces(t *testing.T) {
	source := NewStaticSource(0)
	source.SetError(errors.New("cost API down"))
	monitor := NewMonitor(source, notify.NewMemorySink(), 1000, 90, nil)

	_, _, err := monitor.Check(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSpendUnavailable)
}
