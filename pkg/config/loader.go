package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/cost-governor")
	}

	// Environment variable settings
	v.SetEnvPrefix("COSTGOV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "cost-governor")
	v.SetDefault("app.mode", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "costgov")
	v.SetDefault("database.user", "costgov")
	v.SetDefault("database.password", "costgov")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.ssl_mode", "disable")

	// AWS defaults
	v.SetDefault("aws.region", "us-east-1")

	// Sampler defaults
	v.SetDefault("sampler.type", "cloudwatch")
	v.SetDefault("sampler.namespace", "AWS/EC2")
	v.SetDefault("sampler.metric_name", "CPUUtilization")
	v.SetDefault("sampler.interval", "120s")
	v.SetDefault("sampler.window_seconds", 300)
	v.SetDefault("sampler.timeout", "5s")
	v.SetDefault("sampler.retry_attempts", 3)
	v.SetDefault("sampler.circuit_breaker.max_failures", 5)
	v.SetDefault("sampler.circuit_breaker.timeout", "30s")

	// Scaling defaults
	v.SetDefault("scaling.up_threshold", 75.0)
	v.SetDefault("scaling.down_threshold", 25.0)
	v.SetDefault("scaling.cooldown_duration", "5m")
	v.SetDefault("scaling.step", 1)
	v.SetDefault("scaling.evaluation_periods", 2)

	// Schedule defaults
	v.SetDefault("schedule.interval", "1m")

	// Expiration defaults
	v.SetDefault("expiration.alert_days_before", 7)
	v.SetDefault("expiration.lifecycle.expire_after_days", 365)
	v.SetDefault("expiration.scan_interval", "24h")
	v.SetDefault("expiration.scan_timeout", "60s")
	v.SetDefault("expiration.store", "memory")

	// Budget defaults
	v.SetDefault("budget.threshold_percent", 80.0)
	v.SetDefault("budget.check_interval", "6h")
	v.SetDefault("budget.source", "costexplorer")

	// Notify defaults
	v.SetDefault("notify.type", "sns")
	v.SetDefault("notify.timeout", "10s")

	// API defaults
	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "15s")
	v.SetDefault("api.jwt_secret", "change-me-in-production")
	v.SetDefault("api.jwt_duration", "24h")
	v.SetDefault("api.default_limit", 50)
	v.SetDefault("api.max_limit", 500)

	// WebSocket defaults
	v.SetDefault("websocket.max_connections", 1000)
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.broadcast_buffer", 256)
	v.SetDefault("websocket.client_buffer", 64)

	// Events defaults
	v.SetDefault("events.buffer_size", 100)
}
