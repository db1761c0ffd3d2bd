package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Upstream     UpstreamConfig     `yaml:"upstream"`
	Auth         AuthConfig         `yaml:"auth"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Web          WebConfig          `yaml:"web"`
	Messaging    MessagingConfig    `yaml:"messaging"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Address    string        `yaml:"address"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	SummaryTTL time.Duration `yaml:"summary_ttl"`
}

// UpstreamConfig locates the fulfillment-network REST API.
type UpstreamConfig struct {
	Endpoint      string        `yaml:"endpoint"`
	Region        string        `yaml:"region"`
	MarketplaceID string        `yaml:"marketplace_id"`
	Timeout       time.Duration `yaml:"timeout"`
}

// AuthConfig carries the long-lived secrets exchanged for short-lived
// signing credentials and access tokens.
type AuthConfig struct {
	TokenEndpoint   string        `yaml:"token_endpoint"`
	ClientID        string        `yaml:"client_id"`
	ClientSecret    string        `yaml:"client_secret"`
	RefreshToken    string        `yaml:"refresh_token"`
	STSEndpoint     string        `yaml:"sts_endpoint"`
	STSRegion       string        `yaml:"sts_region"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	RoleARN         string        `yaml:"role_arn"`
	RoleSessionName string        `yaml:"role_session_name"`
	RefreshSkew     time.Duration `yaml:"refresh_skew"`
	SharedCache     bool          `yaml:"shared_cache"`
}

// OrchestratorConfig bounds every loop the orchestrator runs.
type OrchestratorConfig struct {
	PollStep         time.Duration `yaml:"poll_step"`
	PollCap          time.Duration `yaml:"poll_cap"`
	PollBudget       time.Duration `yaml:"poll_budget"`
	PollMaxAttempts  int           `yaml:"poll_max_attempts"`
	MaxListPages     int           `yaml:"max_list_pages"`
	ListRetries      int           `yaml:"list_retries"`
	ListRetryStep    time.Duration `yaml:"list_retry_step"`
	RetryAttempts    int           `yaml:"retry_attempts"`
	RetryStep        time.Duration `yaml:"retry_step"`
	MinReadyLeadTime time.Duration `yaml:"min_ready_lead_time"`
	PendingRetryHint time.Duration `yaml:"pending_retry_hint"`
}

type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type MessagingConfig struct {
	Kafka               KafkaConfig   `yaml:"kafka"`
	RequestsTopic       string        `yaml:"requests_topic"`
	EventsTopic         string        `yaml:"events_topic"`
	OutboxDrainInterval time.Duration `yaml:"outbox_drain_interval"`
	StationID           string        `yaml:"station_id"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	GroupID string   `yaml:"group_id"`
}

func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			SQLite: SQLiteConfig{Path: "inboundcore.db"},
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "inboundcore",
				User:     "inboundcore",
				Password: "",
				SSLMode:  "disable",
			},
		},
		Redis: RedisConfig{
			Address:    "localhost:6379",
			Password:   "",
			DB:         0,
			SummaryTTL: 7 * 24 * time.Hour,
		},
		Upstream: UpstreamConfig{
			Endpoint:      "https://sellingpartnerapi-eu.amazon.com",
			Region:        "eu-west-1",
			MarketplaceID: "A1PA6795UKMFR9",
			Timeout:       20 * time.Second,
		},
		Auth: AuthConfig{
			TokenEndpoint:   "https://api.amazon.com/auth/o2/token",
			STSEndpoint:     "https://sts.amazonaws.com",
			STSRegion:       "us-east-1",
			RoleSessionName: "inboundcore",
			RefreshSkew:     60 * time.Second,
			SharedCache:     true,
		},
		Orchestrator: OrchestratorConfig{
			PollStep:         500 * time.Millisecond,
			PollCap:          2500 * time.Millisecond,
			PollBudget:       25 * time.Second,
			PollMaxAttempts:  10,
			MaxListPages:     10,
			ListRetries:      4,
			ListRetryStep:    time.Second,
			RetryAttempts:    3,
			RetryStep:        500 * time.Millisecond,
			MinReadyLeadTime: time.Hour,
			PendingRetryHint: 15 * time.Second,
		},
		Web: WebConfig{
			Host: "0.0.0.0",
			Port: 8085,
		},
		Messaging: MessagingConfig{
			Kafka: KafkaConfig{
				Brokers: []string{"localhost:9092"},
				GroupID: "inboundcore",
			},
			RequestsTopic:       "inbound.requests",
			EventsTopic:         "inbound.events",
			OutboxDrainInterval: 5 * time.Second,
			StationID:           "inboundcore",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
