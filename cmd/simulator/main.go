// Simulator exercises the governor end to end with in-memory backends:
// no AWS credentials, no database. It drives a fleet through load
// phases, plants expiring objects in a fake catalog, and pushes spend
// past the budget threshold, printing every resulting event.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cloudpilot-labs/cost-governor/internal/budget"
	"github.com/cloudpilot-labs/cost-governor/internal/capacity"
	"github.com/cloudpilot-labs/cost-governor/internal/catalog"
	"github.com/cloudpilot-labs/cost-governor/internal/expiration"
	"github.com/cloudpilot-labs/cost-governor/internal/logger"
	"github.com/cloudpilot-labs/cost-governor/internal/notify"
	"github.com/cloudpilot-labs/cost-governor/internal/orchestrator"
	"github.com/cloudpilot-labs/cost-governor/internal/sampler"
	"github.com/cloudpilot-labs/cost-governor/internal/scaling"
	"github.com/cloudpilot-labs/cost-governor/internal/schedule"
	"github.com/cloudpilot-labs/cost-governor/pkg/config"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "development")
	logger.Info("Starting governor simulation")

	fleet := models.Fleet{
		ID:           "fleet-sim",
		Name:         "Simulated Fleet",
		GroupName:    "sim-asg",
		MinInstances: 1,
		MaxInstances: 6,
		Schedulable:  true,
	}

	backend := capacity.NewMemoryBackend()
	backend.InitFleet(fleet.ID, fleet.MinInstances, fleet.MaxInstances, 2)

	mockSampler := sampler.NewMockSampler(sampler.MockConfig{
		BaseValue: 50.0,
		Variance:  3.0,
	})
	mockSampler.AddFleet(fleet.ID)

	scalingCtrl := scaling.NewController(scaling.Policy{
		UpThreshold:       75,
		DownThreshold:     25,
		CooldownDuration:  8 * time.Second,
		Step:              1,
		EvaluationPeriods: 2,
	}, backend)

	scheduleCtrl, err := schedule.NewController([]models.ScheduleRule{
		{Expression: "* * * * *", FleetID: fleet.ID, Action: models.ActionKeepOne},
	}, []models.Fleet{fleet}, backend)
	if err != nil {
		return err
	}

	memCatalog := catalog.NewMemoryCatalog()
	memCatalog.Put("sim-archive",
		models.CatalogObject{Key: "reports/2025/q3.parquet", AgeDays: 360},
		models.CatalogObject{Key: "reports/2025/q2.parquet", AgeDays: 300},
		models.CatalogObject{Key: "reports/2024/q4.parquet", AgeDays: 372},
	)

	sink := notify.NewMemorySink()
	alerter := expiration.NewAlerter(expiration.Config{
		Catalog:         memCatalog,
		Sink:            sink,
		Seen:            expiration.NewMemoryStore(),
		Policy:          models.LifecyclePolicy{ExpireAfterDays: 365},
		AlertDaysBefore: 7,
		Container:       "sim-archive",
		Subscribers:     []string{"ops@example.com"},
	})

	spend := budget.NewStaticSource(800)
	monitor := budget.NewMonitor(spend, sink, 1000, 90, []string{"ops@example.com"})

	cfg := &config.Config{}
	cfg.Sampler.Interval = 2 * time.Second
	cfg.Sampler.WindowSeconds = 60
	cfg.Events.BufferSize = 256

	orch := orchestrator.New(cfg, nil)
	if err := orch.Start(); err != nil {
		return err
	}

	eventChan := orch.SubscribeAllEvents()
	go func() {
		for event := range eventChan {
			logger.Infof("[EVENT] %s: %s (fleet: %s, severity: %s)",
				event.Type, event.Message, event.FleetID, event.Severity)
		}
	}()

	confirmedChan := orch.SubscribeEvents(models.EventTypeCapacityConfirmed)
	confirmedCount := make(chan int, 1)
	go func() {
		n := 0
		for range confirmedChan {
			n++
		}
		confirmedCount <- n
	}()

	if err := orch.StartFleet(fleet, mockSampler, scalingCtrl); err != nil {
		return err
	}
	orch.StartSchedule(scheduleCtrl, 2*time.Second)
	orch.StartExpiration(alerter, 10*time.Second, time.Minute)
	orch.StartBudget(monitor, 3*time.Second)

	logger.Info("=== Phase 1: steady load (10 seconds) ===")
	time.Sleep(10 * time.Second)

	logger.Info("=== Phase 2: high load, expect scale up (15 seconds) ===")
	mockSampler.SetBaseValue(88.0)
	time.Sleep(15 * time.Second)

	logger.Info("=== Phase 3: idle, expect scale down (15 seconds) ===")
	mockSampler.SetBaseValue(12.0)
	time.Sleep(15 * time.Second)

	logger.Info("=== Phase 4: spend past threshold (8 seconds) ===")
	spend.SetSpend(950)
	time.Sleep(8 * time.Second)

	fc, err := backend.GetCapacity(context.Background(), fleet.ID)
	if err == nil {
		logger.Infof("Final capacity: desired=%d (min=%d max=%d)", fc.Desired, fc.Min, fc.Max)
	}
	logger.Infof("Notifications delivered: %d", len(sink.Deliveries()))

	orch.Stop()
	logger.Infof("Confirmed capacity actions: %d", <-confirmedCount)
	logger.Info("Simulation complete")
	return nil
}
