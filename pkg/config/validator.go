package config

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration at startup. A misconfigured
// threshold ordering would make the scaling loop oscillate, so any
// violation here is fatal: the process refuses to run.
func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.App.LogLevel] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	// Database validation
	if c.Database.Host == "" {
		errs = append(errs, errors.New("database.host is required"))
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, errors.New("database.port must be between 1 and 65535"))
	}

	// Scaling validation: hysteresis is structural, the dead zone
	// between the two thresholds must exist.
	if c.Scaling.DownThreshold >= c.Scaling.UpThreshold {
		errs = append(errs, errors.New("scaling.down_threshold must be strictly less than scaling.up_threshold"))
	}
	if c.Scaling.UpThreshold <= 0 || c.Scaling.UpThreshold > 100 {
		errs = append(errs, errors.New("scaling.up_threshold must be between 0 and 100"))
	}
	if c.Scaling.DownThreshold < 0 || c.Scaling.DownThreshold >= 100 {
		errs = append(errs, errors.New("scaling.down_threshold must be between 0 and 100"))
	}
	if c.Scaling.Step <= 0 {
		errs = append(errs, errors.New("scaling.step must be positive"))
	}
	if c.Scaling.CooldownDuration <= 0 {
		errs = append(errs, errors.New("scaling.cooldown_duration must be positive"))
	}
	if c.Scaling.EvaluationPeriods < 1 {
		errs = append(errs, errors.New("scaling.evaluation_periods must be at least 1"))
	}

	// Sampler validation
	if c.Sampler.Interval <= 0 {
		errs = append(errs, errors.New("sampler.interval must be positive"))
	}
	if c.Sampler.Timeout <= 0 {
		errs = append(errs, errors.New("sampler.timeout must be positive"))
	}
	if c.Sampler.Timeout >= c.Sampler.Interval {
		errs = append(errs, errors.New("sampler.timeout must be less than sampler.interval"))
	}

	// Fleet validation
	fleetIDs := make(map[string]bool, len(c.Fleets))
	for _, fleet := range c.Fleets {
		if fleet.ID == "" {
			errs = append(errs, errors.New("fleets: id is required"))
			continue
		}
		if fleetIDs[fleet.ID] {
			errs = append(errs, fmt.Errorf("fleets: duplicate fleet id %q", fleet.ID))
		}
		fleetIDs[fleet.ID] = true

		if fleet.MinInstances < 0 {
			errs = append(errs, fmt.Errorf("fleet %s: min_instances must be >= 0", fleet.ID))
		}
		if fleet.MaxInstances < fleet.MinInstances {
			errs = append(errs, fmt.Errorf("fleet %s: max_instances must be >= min_instances", fleet.ID))
		}
	}

	// Schedule validation: rules must parse and point at known fleets.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	for i, rule := range c.Schedule.Rules {
		if _, err := parser.Parse(rule.Expression); err != nil {
			errs = append(errs, fmt.Errorf("schedule.rules[%d]: invalid cron expression %q: %v", i, rule.Expression, err))
		}
		if rule.FleetID != "" && len(c.Fleets) > 0 && !fleetIDs[rule.FleetID] {
			errs = append(errs, fmt.Errorf("schedule.rules[%d]: unknown fleet %q", i, rule.FleetID))
		}
		switch rule.Action {
		case "", "FORCE_ZERO", "KEEP_ONE":
		default:
			errs = append(errs, fmt.Errorf("schedule.rules[%d]: action must be FORCE_ZERO or KEEP_ONE", i))
		}
	}

	// Expiration validation
	if err := c.Expiration.Lifecycle.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Expiration.AlertDaysBefore <= 0 {
		errs = append(errs, errors.New("expiration.alert_days_before must be positive"))
	}
	if c.Expiration.AlertDaysBefore >= c.Expiration.Lifecycle.ExpireAfterDays {
		errs = append(errs, errors.New("expiration.alert_days_before must be less than lifecycle.expire_after_days"))
	}
	switch c.Expiration.Store {
	case "memory", "dynamodb":
	default:
		errs = append(errs, errors.New("expiration.store must be memory or dynamodb"))
	}
	if c.Expiration.Store == "dynamodb" && c.Expiration.DynamoTable == "" {
		errs = append(errs, errors.New("expiration.dynamo_table is required for the dynamodb store"))
	}

	// Budget validation
	if c.Budget.Limit < 0 {
		errs = append(errs, errors.New("budget.limit must be >= 0"))
	}
	if c.Budget.ThresholdPercent <= 0 || c.Budget.ThresholdPercent > 100 {
		errs = append(errs, errors.New("budget.threshold_percent must be between 0 and 100"))
	}

	// API validation
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, errors.New("api.port must be between 1 and 65535"))
	}
	if c.App.Mode == "production" && c.API.JWTSecret == "change-me-in-production" {
		errs = append(errs, errors.New("api.jwt_secret must be changed in production"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
