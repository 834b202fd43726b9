package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Server holds the HTTP listener settings.
type Server struct {
	ListenAddress  string   `yaml:"listenAddress"`
	TLSCertFile    string   `yaml:"tlsCertFile"`
	TLSKeyFile     string   `yaml:"tlsKeyFile"`
	TrustedProxies []string `yaml:"trustedProxies"`
	// RateLimit enables per-client-IP request limiting on the API routes.
	RateLimit bool `yaml:"rateLimit"`
}

// MongoDB holds the task store connection settings.
type MongoDB struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	// ReasonsCollection stores overdue-reason side records.
	ReasonsCollection string `yaml:"reasonsCollection"`
	ConnectTimeout    string `yaml:"connectTimeout"`
}

// Redis holds the escalation timer store settings.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// KeyPrefix namespaces timer keys, default "sla:escalation:".
	KeyPrefix string `yaml:"keyPrefix"`
}

// Mail holds the SMTP settings for reporting-manager notifications.
type Mail struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	SenderAddress      string `yaml:"senderAddress"`
	SenderName         string `yaml:"senderName"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify"`
	RetryCount         int    `yaml:"retryCount"`
	RetryBackoffMs     int    `yaml:"retryBackoffMs"`
	QueueSize          int    `yaml:"queueSize"`
}

// Kafka holds the alert sink broker settings. Leave Brokers empty to
// disable the Kafka sink.
type Kafka struct {
	Brokers       []string `yaml:"brokers"`
	Topic         string   `yaml:"topic"`
	WriteTimeout  string   `yaml:"writeTimeout"`
	SASLMechanism string   `yaml:"saslMechanism"`
	SASLUsername  string   `yaml:"saslUsername"`
	SASLPassword  string   `yaml:"saslPassword"`
	TLSEnabled    bool     `yaml:"tlsEnabled"`
}

// Webhook holds the optional HTTP alert sink settings.
type Webhook struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Timeout string            `yaml:"timeout"`
}

// Engine holds the timing contracts of the monitoring engine.
type Engine struct {
	// SweepInterval is the auto-promotion/evaluation cadence.
	SweepInterval string `yaml:"sweepInterval"`
	// EscalationInterval is the repeating alert cadence per overdue task.
	EscalationInterval string `yaml:"escalationInterval"`
	// WarningWindow is how long before a start time the warning state begins.
	WarningWindow string `yaml:"warningWindow"`
	// MonthlyDayOfMonth switches monthly recurrence from exact-date match
	// to a repeating day-of-month rule.
	MonthlyDayOfMonth bool `yaml:"monthlyDayOfMonth"`
	// WarningAlerts enables one-shot sla_warning alerts from the sweep.
	WarningAlerts bool `yaml:"warningAlerts"`
	// Store selects the task store backend: "mongodb" (default) or
	// "memory" for local development.
	Store string `yaml:"store"`
}

type Config struct {
	Server  Server  `yaml:"server"`
	MongoDB MongoDB `yaml:"mongodb"`
	Redis   Redis   `yaml:"redis"`
	Mail    Mail    `yaml:"mail"`
	Kafka   Kafka   `yaml:"kafka"`
	Webhook Webhook `yaml:"webhook"`
	Engine  Engine  `yaml:"engine"`
}

// Defaults fills unset fields with the engine's fixed defaults.
func (c *Config) Defaults() {
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8080"
	}
	if c.MongoDB.Database == "" {
		c.MongoDB.Database = "finops"
	}
	if c.MongoDB.Collection == "" {
		c.MongoDB.Collection = "tasks"
	}
	if c.MongoDB.ReasonsCollection == "" {
		c.MongoDB.ReasonsCollection = "overdue_reasons"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "sla:escalation:"
	}
	if c.Engine.SweepInterval == "" {
		c.Engine.SweepInterval = "30s"
	}
	if c.Engine.EscalationInterval == "" {
		c.Engine.EscalationInterval = "15m"
	}
	if c.Engine.WarningWindow == "" {
		c.Engine.WarningWindow = "15m"
	}
	if c.Engine.Store == "" {
		c.Engine.Store = "mongodb"
	}
}

// SweepIntervalDuration returns the parsed sweep cadence, falling back to 30s.
func (e Engine) SweepIntervalDuration() time.Duration {
	return parseDurationOr(e.SweepInterval, 30*time.Second)
}

// EscalationIntervalDuration returns the parsed alert cadence, falling
// back to 15 minutes.
func (e Engine) EscalationIntervalDuration() time.Duration {
	return parseDurationOr(e.EscalationInterval, 15*time.Minute)
}

// WarningWindowDuration returns the parsed warning window, falling back to
// 15 minutes.
func (e Engine) WarningWindowDuration() time.Duration {
	return parseDurationOr(e.WarningWindow, 15*time.Minute)
}

// TimeoutDuration returns the parsed webhook timeout, falling back to 10s.
func (w Webhook) TimeoutDuration() time.Duration {
	return parseDurationOr(w.Timeout, 10*time.Second)
}

// WriteTimeoutDuration returns the parsed Kafka write timeout, falling
// back to 10s.
func (k Kafka) WriteTimeoutDuration() time.Duration {
	return parseDurationOr(k.WriteTimeout, 10*time.Second)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validate rejects duration fields that do not parse. Empty values are
// allowed and fall back to the built-in defaults.
func (c Config) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"mongodb.connectTimeout", c.MongoDB.ConnectTimeout},
		{"kafka.writeTimeout", c.Kafka.WriteTimeout},
		{"webhook.timeout", c.Webhook.Timeout},
		{"engine.sweepInterval", c.Engine.SweepInterval},
		{"engine.escalationInterval", c.Engine.EscalationInterval},
		{"engine.warningWindow", c.Engine.WarningWindow},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if _, err := time.ParseDuration(f.value); err != nil {
			return fmt.Errorf("invalid duration for %s: %v", f.name, err)
		}
	}
	return nil
}

// Load loads the engine configuration from a file path.
// If configPath is empty, defaults to "./config.yaml". The path can also
// be overridden via the SLA_ENGINE_CONFIG_PATH environment variable.
func Load(configPath ...string) (Config, error) {
	var path string

	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	} else if env := os.Getenv("SLA_ENGINE_CONFIG_PATH"); env != "" {
		path = env
	} else {
		path = "./config.yaml"
	}

	var config Config

	content, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("trying to open sla-engine config file %s: %v", path, err)
	}

	err = yaml.Unmarshal(content, &config)
	if err != nil {
		return config, fmt.Errorf("error unmarshaling YAML %s: %v", path, err)
	}
	config.Defaults()
	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("validating sla-engine config file %s: %v", path, err)
	}
	return config, nil
}
