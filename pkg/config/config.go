package config

import (
	"time"

	"github.com/cloudpilot-labs/cost-governor/pkg/database"
	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	AWS        AWSConfig        `mapstructure:"aws"`
	Sampler    SamplerConfig    `mapstructure:"sampler"`
	Scaling    ScalingConfig    `mapstructure:"scaling"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
	Expiration ExpirationConfig `mapstructure:"expiration"`
	Budget     BudgetConfig     `mapstructure:"budget"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	API        APIConfig        `mapstructure:"api"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Events     EventsConfig     `mapstructure:"events"`
	Fleets     []models.Fleet   `mapstructure:"fleets"`
}

type AppConfig struct {
	Name            string        `mapstructure:"name"`
	Mode            string        `mapstructure:"mode"`
	LogLevel        string        `mapstructure:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxConnections  int           `mapstructure:"max_connections"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

func (d DatabaseConfig) ToDBConfig() database.Config {
	return database.Config{
		Host:            d.Host,
		Port:            d.Port,
		Name:            d.Name,
		User:            d.User,
		Password:        d.Password,
		MaxConnections:  d.MaxConnections,
		SSLMode:         d.SSLMode,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
		PingTimeout:     d.PingTimeout,
	}
}

type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

type SamplerConfig struct {
	Type           string               `mapstructure:"type"`
	Namespace      string               `mapstructure:"namespace"`
	MetricName     string               `mapstructure:"metric_name"`
	Interval       time.Duration        `mapstructure:"interval"`
	WindowSeconds  int                  `mapstructure:"window_seconds"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	RetryAttempts  int                  `mapstructure:"retry_attempts"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxFailures int           `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ScalingConfig struct {
	UpThreshold       float64       `mapstructure:"up_threshold"`
	DownThreshold     float64       `mapstructure:"down_threshold"`
	CooldownDuration  time.Duration `mapstructure:"cooldown_duration"`
	Step              int           `mapstructure:"step"`
	EvaluationPeriods int           `mapstructure:"evaluation_periods"`
}

type ScheduleConfig struct {
	Rules    []models.ScheduleRule `mapstructure:"rules"`
	Interval time.Duration         `mapstructure:"interval"`
}

type ExpirationConfig struct {
	Container       string                 `mapstructure:"container"`
	AlertDaysBefore int                    `mapstructure:"alert_days_before"`
	Lifecycle       models.LifecyclePolicy `mapstructure:"lifecycle"`
	ScanInterval    time.Duration          `mapstructure:"scan_interval"`
	ScanTimeout     time.Duration          `mapstructure:"scan_timeout"`
	Store           string                 `mapstructure:"store"`
	DynamoTable     string                 `mapstructure:"dynamo_table"`
}

type BudgetConfig struct {
	Limit            float64       `mapstructure:"limit"`
	ThresholdPercent float64       `mapstructure:"threshold_percent"`
	CheckInterval    time.Duration `mapstructure:"check_interval"`
	Source           string        `mapstructure:"source"`
}

type NotifyConfig struct {
	Type      string        `mapstructure:"type"`
	TopicARN  string        `mapstructure:"topic_arn"`
	Addresses []string      `mapstructure:"addresses"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type APIConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTDuration  time.Duration `mapstructure:"jwt_duration"`
	DefaultLimit int           `mapstructure:"default_limit"`
	MaxLimit     int           `mapstructure:"max_limit"`
	CORS         CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type WebSocketConfig struct {
	MaxConnections  int           `mapstructure:"max_connections"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongTimeout     time.Duration `mapstructure:"pong_timeout"`
	MaxMessageSize  int64         `mapstructure:"max_message_size"`
	BroadcastBuffer int           `mapstructure:"broadcast_buffer"`
	ClientBuffer    int           `mapstructure:"client_buffer"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}
