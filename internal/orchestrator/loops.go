package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/cloudpilot-labs/cost-governor/internal/budget"
	"github.com/cloudpilot-labs/cost-governor/internal/events"
	"github.com/cloudpilot-labs/cost-governor/internal/expiration"
	"github.com/cloudpilot-labs/cost-governor/internal/logger"
	"github.com/cloudpilot-labs/cost-governor/internal/schedule"
)

// baseLoop holds the shared ticker lifecycle of the singleton loops.
type baseLoop struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

func (b *baseLoop) start(interval time.Duration, tick func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return
	}
	b.started = true
	b.ctx, b.cancel = context.WithCancel(context.Background())

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-b.ctx.Done():
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
}

func (b *baseLoop) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
}

type scheduleLoop struct {
	baseLoop
	controller *schedule.Controller
	interval   time.Duration
	publisher  *events.Publisher
}

func (l *scheduleLoop) Name() string { return "schedule" }

func (l *scheduleLoop) Start() {
	l.start(l.interval, l.tick)
}

func (l *scheduleLoop) tick() {
	results := l.controller.Tick(l.ctx)
	for _, res := range results {
		if res.Err != nil {
			l.publisher.Error(res.FleetID, "Schedule action failed", res.Err)
			continue
		}
		l.publisher.ScheduleFired(res.FleetID, string(res.Rule.Action), res.Desired)
	}
}

type expirationLoop struct {
	baseLoop
	alerter   *expiration.Alerter
	interval  time.Duration
	timeout   time.Duration
	publisher *events.Publisher
}

func (l *expirationLoop) Name() string { return "expiration" }

func (l *expirationLoop) Start() {
	l.start(l.interval, l.tick)
	// The first scan should not wait a full interval.
	go l.tick()
}

func (l *expirationLoop) tick() {
	ctx, cancel := context.WithTimeout(l.ctx, l.timeout)
	defer cancel()

	report, err := l.alerter.Scan(ctx)
	if err != nil {
		logger.Errorf("Expiration scan failed: %v", err)
		l.publisher.Error("", "Expiration scan failed", err)
		return
	}

	for i := range report.Warnings {
		l.publisher.ExpirationWarning(&report.Warnings[i])
	}
	for i := range report.Anomalies {
		l.publisher.ExpirationAnomaly(&report.Anomalies[i])
	}
	for _, failure := range report.Failures {
		l.publisher.Error("", "Expiration warning delivery failed for "+failure.Key, failure.Err)
	}

	logger.Infof("Expiration scan complete: %d scanned, %d warned, %d anomalies, %d failed",
		report.Scanned, len(report.Warnings), len(report.Anomalies), len(report.Failures))
}

type budgetLoop struct {
	baseLoop
	monitor   *budget.Monitor
	interval  time.Duration
	publisher *events.Publisher
}

func (l *budgetLoop) Name() string { return "budget" }

func (l *budgetLoop) Start() {
	l.start(l.interval, l.tick)
}

func (l *budgetLoop) tick() {
	ctx, cancel := context.WithTimeout(l.ctx, time.Minute)
	defer cancel()

	status, alerted, err := l.monitor.Check(ctx)
	if err != nil {
		logger.Errorf("Budget check failed: %v", err)
		l.publisher.Error("", "Budget check failed", err)
		return
	}
	if alerted {
		l.publisher.BudgetAlert(status)
	}
}
