package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws/session"

	"github.com/cloudpilot-labs/cost-governor/api"
	"github.com/cloudpilot-labs/cost-governor/internal/auth"
	"github.com/cloudpilot-labs/cost-governor/internal/awsutil"
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
	"github.com/cloudpilot-labs/cost-governor/pkg/database"
	"github.com/cloudpilot-labs/cost-governor/pkg/database/queries"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	createUser := flag.String("create-user", "", "create an API user (username) and exit; password read from COSTGOV_USER_PASSWORD")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// A misconfigured governor must not run at all.
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	db, err := database.New(cfg.Database.ToDBConfig())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	if *migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		logger.Info("Running database migrations")
		migrator := database.NewMigrator(db)
		if err := migrator.Run(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migrations completed successfully")
		return nil
	}

	if *createUser != "" {
		return createAPIUser(db, *createUser)
	}

	sess, err := awsutil.NewSession(cfg.AWS)
	if err != nil {
		return fmt.Errorf("failed to create AWS session: %w", err)
	}

	backend := newBackend(cfg, sess)
	defer backend.Close()

	scalingCtrl := scaling.NewController(scaling.Policy{
		UpThreshold:       cfg.Scaling.UpThreshold,
		DownThreshold:     cfg.Scaling.DownThreshold,
		CooldownDuration:  cfg.Scaling.CooldownDuration,
		Step:              cfg.Scaling.Step,
		EvaluationPeriods: cfg.Scaling.EvaluationPeriods,
	}, backend)

	scheduleCtrl, err := schedule.NewController(cfg.Schedule.Rules, cfg.Fleets, backend)
	if err != nil {
		return fmt.Errorf("failed to build schedule controller: %w", err)
	}

	orch := orchestrator.New(cfg, db)
	if err := orch.Start(); err != nil {
		return fmt.Errorf("failed to start orchestrator: %w", err)
	}
	defer orch.Stop()

	smp := newSampler(cfg, sess)
	defer smp.Close()

	for _, fleet := range cfg.Fleets {
		if err := orch.StartFleet(fleet, smp, scalingCtrl); err != nil {
			return fmt.Errorf("failed to start fleet %s: %w", fleet.ID, err)
		}
	}
	logger.Infof("Scaling loops running for fleets: %v", orch.RunningFleets())

	orch.StartSchedule(scheduleCtrl, cfg.Schedule.Interval)

	if cfg.Expiration.Container != "" {
		alerter, err := newAlerter(cfg, sess)
		if err != nil {
			return fmt.Errorf("failed to build expiration alerter: %w", err)
		}
		orch.StartExpiration(alerter, cfg.Expiration.ScanInterval, cfg.Expiration.ScanTimeout)
	}

	if cfg.Budget.Limit > 0 {
		monitor := budget.NewMonitor(
			newSpendSource(cfg, sess),
			newSink(cfg, sess),
			cfg.Budget.Limit,
			cfg.Budget.ThresholdPercent,
			cfg.Notify.Addresses,
		)
		orch.StartBudget(monitor, cfg.Budget.CheckInterval)
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	var server *api.Server
	if cfg.API.Enabled {
		gov := &governorState{
			fleets:       cfg.Fleets,
			orchestrator: orch,
			backend:      backend,
			scaling:      scalingCtrl,
			schedule:     scheduleCtrl,
		}
		server = api.NewServer(cfg.API, cfg.WebSocket, db, gov)

		go func() {
			logger.Infof("API server listening on port %d", cfg.API.Port)
			if err := server.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()
	}

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdownChan:
		logger.Infof("Received signal %v, shutting down", sig)
	}

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("Stopped gracefully")
	return nil
}

func createAPIUser(db *database.DB, username string) error {
	password := os.Getenv("COSTGOV_USER_PASSWORD")
	if password == "" {
		return fmt.Errorf("COSTGOV_USER_PASSWORD must be set to create a user")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	user, err := queries.NewUserRepository(db.DB).Create(ctx, username, hash)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	logger.Infof("Created API user %s (id=%d)", user.Username, user.ID)
	return nil
}

func newBackend(cfg *config.Config, sess *session.Session) capacity.Backend {
	groupNames := make(map[string]string, len(cfg.Fleets))
	for _, fleet := range cfg.Fleets {
		groupNames[fleet.ID] = fleet.GroupName
	}
	return capacity.NewASGBackend(sess, groupNames)
}

func newSampler(cfg *config.Config, sess *session.Session) sampler.Sampler {
	groupNames := make(map[string]string, len(cfg.Fleets))
	for _, fleet := range cfg.Fleets {
		groupNames[fleet.ID] = fleet.GroupName
	}

	base := sampler.NewCloudWatchSampler(sess, sampler.CloudWatchConfig{
		Namespace:  cfg.Sampler.Namespace,
		MetricName: cfg.Sampler.MetricName,
		GroupNames: groupNames,
	})

	return sampler.NewResilientSampler(sampler.ResilientConfig{
		Sampler:     base,
		MaxFailures: cfg.Sampler.CircuitBreaker.MaxFailures,
		Timeout:     cfg.Sampler.CircuitBreaker.Timeout,
	})
}

func newSink(cfg *config.Config, sess *session.Session) notify.Sink {
	if cfg.Notify.Type == "memory" {
		return notify.NewMemorySink()
	}
	return notify.NewSNSSink(sess, cfg.Notify.TopicARN)
}

func newSpendSource(cfg *config.Config, sess *session.Session) budget.SpendSource {
	if cfg.Budget.Source == "static" {
		return budget.NewStaticSource(0)
	}
	return budget.NewCostExplorerSource(sess)
}

func newAlerter(cfg *config.Config, sess *session.Session) (*expiration.Alerter, error) {
	var seen expiration.SeenStore
	switch cfg.Expiration.Store {
	case "dynamodb":
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		// Records only need to outlive the epoch they dedup.
		ttl := time.Duration(cfg.Expiration.Lifecycle.ExpireAfterDays) * 24 * time.Hour
		store, err := expiration.NewDynamoStore(ctx, sess, cfg.Expiration.DynamoTable, ttl)
		if err != nil {
			return nil, err
		}
		seen = store
	default:
		seen = expiration.NewMemoryStore()
	}

	return expiration.NewAlerter(expiration.Config{
		Catalog:         catalog.NewS3Catalog(sess),
		Sink:            newSink(cfg, sess),
		Seen:            seen,
		Policy:          cfg.Expiration.Lifecycle,
		AlertDaysBefore: cfg.Expiration.AlertDaysBefore,
		Container:       cfg.Expiration.Container,
		Subscribers:     cfg.Notify.Addresses,
	}), nil
}

// governorState adapts the live controllers to the read-only view the
// API serves.
type governorState struct {
	fleets       []models.Fleet
	orchestrator *orchestrator.Orchestrator
	backend      capacity.Backend
	scaling      *scaling.Controller
	schedule     *schedule.Controller
}

func (g *governorState) Fleets() []models.Fleet { return g.fleets }

func (g *governorState) FleetRunning(fleetID string) bool {
	return g.orchestrator.FleetRunning(fleetID)
}

func (g *governorState) Capacity(ctx context.Context, fleetID string) (*models.FleetCapacity, error) {
	return g.backend.GetCapacity(ctx, fleetID)
}

func (g *governorState) Cooldown(fleetID string) (models.CooldownState, bool) {
	return g.scaling.Cooldown(fleetID)
}

func (g *governorState) CooldownRemaining(fleetID string) time.Duration {
	return g.scaling.CooldownRemaining(fleetID)
}

func (g *governorState) ScheduleState() string {
	return string(g.schedule.State())
}

func (g *governorState) SubscribeAllEvents() <-chan *models.Event {
	return g.orchestrator.SubscribeAllEvents()
}
