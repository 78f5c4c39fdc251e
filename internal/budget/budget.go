// Package budget checks period-to-date spend against a configured
// limit and raises at most one alert per period once the threshold is
// crossed. A new period rolls the dedup state over, so the next breach
// alerts again.
package budget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloudpilot-labs/cost-governor/internal/logger"
	"github.com/cloudpilot-labs/cost-governor/internal/notify"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

var ErrSpendUnavailable = errors.New("spend data unavailable")

// SpendSource reports accumulated spend for the current billing period.
type SpendSource interface {
	// SpendToDate returns the period identifier (e.g. "2026-08") and
	// the spend accumulated so far within it.
	SpendToDate(ctx context.Context) (period string, spend float64, err error)
}

// Monitor evaluates spend against the limit and notifies subscribers
// once per period when the threshold percentage is crossed.
type Monitor struct {
	source           SpendSource
	sink             notify.Sink
	limit            float64
	thresholdPercent float64
	subscribers      []string

	mu            sync.Mutex
	alertedPeriod string

	now func() time.Time
}

func NewMonitor(source SpendSource, sink notify.Sink, limit, thresholdPercent float64, subscribers []string) *Monitor {
	return &Monitor{
		source:           source,
		sink:             sink,
		limit:            limit,
		thresholdPercent: thresholdPercent,
		subscribers:      subscribers,
		now:              time.Now,
	}
}

// Check fetches spend and returns the resulting status, plus whether
// an alert was delivered on this check. The alert fires only on the
// first threshold breach within a period; a failed delivery leaves the
// dedup state untouched so the next check retries.
func (m *Monitor) Check(ctx context.Context) (*models.BudgetStatus, bool, error) {
	period, spend, err := m.source.SpendToDate(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrSpendUnavailable, err)
	}

	status := &models.BudgetStatus{
		Period:           period,
		SpendToDate:      spend,
		BudgetLimit:      m.limit,
		ThresholdPercent: m.thresholdPercent,
		CheckedAt:        m.now(),
	}
	status.Exceeded = status.PercentUsed() >= m.thresholdPercent

	if !status.Exceeded {
		return status, false, nil
	}

	m.mu.Lock()
	alreadyAlerted := m.alertedPeriod == period
	m.mu.Unlock()
	if alreadyAlerted {
		return status, false, nil
	}

	if err := m.alert(ctx, status); err != nil {
		logger.Errorf("Budget alert delivery failed: %v", err)
		return status, false, nil
	}

	m.mu.Lock()
	m.alertedPeriod = period
	m.mu.Unlock()

	return status, true, nil
}

func (m *Monitor) alert(ctx context.Context, status *models.BudgetStatus) error {
	subject := fmt.Sprintf("Budget threshold exceeded for period %s", status.Period)
	body := fmt.Sprintf(
		"Budget Alert:\n"+
			"Period: %s\n"+
			"Spend to date: %.2f\n"+
			"Budget limit: %.2f\n"+
			"Used: %.1f%% (threshold %.1f%%)",
		status.Period, status.SpendToDate, status.BudgetLimit,
		status.PercentUsed(), status.ThresholdPercent,
	)

	logger.WithFields(map[string]interface{}{
		"period":       status.Period,
		"spend":        status.SpendToDate,
		"limit":        status.BudgetLimit,
		"percent_used": status.PercentUsed(),
	}).Warn("Budget threshold exceeded")

	return m.sink.Send(ctx, m.subscribers, notify.Message{Subject: subject, Body: body})
}
