// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the voice-agent configuration.
//
// Layering, lowest to highest precedence:
//
//  1. Embedded default.yaml
//  2. Optional YAML file (--config flag or VOICE_AGENT_CONFIG)
//  3. Environment variables using the deployed names (TEST_MODE, PORT, ...)
//
// Credentials are not part of Config; see package secrets.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Embedded Defaults
// =============================================================================

//go:embed default.yaml
var defaultYAML []byte

// EnvConfigPath names the environment variable holding a config file path.
const EnvConfigPath = "VOICE_AGENT_CONFIG"

// =============================================================================
// Configuration Types
// =============================================================================

// Config is the full service configuration.
//
// Thread Safety: Immutable after Load; safe to share.
type Config struct {
	// Environment is development, staging, production or test.
	// Env: ENVIRONMENT
	Environment string `yaml:"environment" validate:"oneof=development staging production test"`

	Server        ServerConfig       `yaml:"server"`
	Business      BusinessConfig     `yaml:"business"`
	Roster        RosterConfig       `yaml:"roster"`
	Vapi          VapiConfig         `yaml:"vapi"`
	CRM           CRMConfig          `yaml:"crm"`
	Twilio        TwilioConfig       `yaml:"twilio"`
	SMTP          SMTPConfig         `yaml:"smtp"`
	Notifications NotificationConfig `yaml:"notifications"`
	TestMode      TestMode           `yaml:"test_mode"`
	Ledger        LedgerConfig       `yaml:"ledger"`
	Logging       LoggingConfig      `yaml:"logging"`
	Telemetry     TelemetryConfig    `yaml:"telemetry"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	// Env: HOST
	Host string `yaml:"host"`
	// Env: PORT
	Port int `yaml:"port" validate:"min=1,max=65535"`
	// Env: WEBHOOK_BASE_URL
	WebhookBaseURL string `yaml:"webhook_base_url" validate:"omitempty,url"`
	// Env: DEBUG
	Debug           bool          `yaml:"debug"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"min=0"`
}

// BusinessConfig names the brokerage in caller-facing text.
type BusinessConfig struct {
	// Env: BUSINESS_NAME
	Name string `yaml:"name" validate:"required"`
	// Env: BUSINESS_PHONE
	Phone string `yaml:"phone"`
	// Env: OFFICE_TIMEZONE
	Timezone    string `yaml:"timezone"`
	OfficeHours string `yaml:"office_hours"`
}

// RosterConfig locates the agent roster.
type RosterConfig struct {
	// Path is a file path or gs://bucket/object.
	// Env: AGENT_ROSTER_PATH
	Path string `yaml:"path" validate:"required"`
	// Watch clears the cache when a local roster file changes.
	// Env: AGENT_ROSTER_WATCH
	Watch bool `yaml:"watch"`
}

// VapiConfig configures the voice platform client.
type VapiConfig struct {
	// Env: VAPI_API_URL
	APIURL string `yaml:"api_url" validate:"required,url"`
	// Env: VAPI_ASSISTANT_ID
	AssistantID string `yaml:"assistant_id"`
	// Env: VAPI_PHONE_NUMBER_ID
	PhoneNumberID string `yaml:"phone_number_id"`
	// TransferTimeout bounds each control-endpoint POST.
	TransferTimeout time.Duration `yaml:"transfer_timeout" validate:"gt=0"`
	RequestTimeout  time.Duration `yaml:"request_timeout" validate:"gt=0"`
}

// CRMConfig configures the BoldTrail client.
type CRMConfig struct {
	// Env: BOLDTRAIL_API_URL
	APIURL string `yaml:"api_url" validate:"required,url"`
	// Env: BOLDTRAIL_ACCOUNT_ID
	AccountID string `yaml:"account_id"`
	// ListingsFeedURL is the syndication XML export searched before the
	// manual listings endpoint. Empty skips the feed.
	// Env: BOLDTRAIL_LISTINGS_FEED_URL
	ListingsFeedURL string        `yaml:"listings_feed_url" validate:"omitempty,url"`
	Timeout         time.Duration `yaml:"timeout" validate:"gt=0"`
}

// TwilioConfig configures SMS delivery.
type TwilioConfig struct {
	APIURL string `yaml:"api_url" validate:"required,url"`
	// Env: TWILIO_ACCOUNT_SID
	AccountSID string `yaml:"account_sid"`
	// Env: TWILIO_PHONE_NUMBER
	FromNumber   string  `yaml:"from_number"`
	SMSPerSecond float64 `yaml:"sms_per_second" validate:"gt=0"`
	SMSBurst     int     `yaml:"sms_burst" validate:"min=1"`
}

// SMTPConfig configures email delivery.
type SMTPConfig struct {
	// Env: SMTP_HOST
	Host string `yaml:"host"`
	// Env: SMTP_PORT
	Port int `yaml:"port" validate:"min=1,max=65535"`
	// Env: SMTP_USERNAME
	Username string `yaml:"username"`
	// Env: SMTP_FROM_EMAIL
	FromEmail string `yaml:"from_email" validate:"omitempty,email"`
	// Env: SMTP_USE_TLS
	UseTLS bool `yaml:"use_tls"`
}

// NotificationConfig controls escalation alerts.
//
// Description:
//
//	Escalations and new-lead notifications go to the supervisor contact
//	when one is set, otherwise to the office contact.
type NotificationConfig struct {
	// Env: LEAD_NOTIFICATION_ENABLED
	Enabled bool `yaml:"enabled"`
	// Env: OFFICE_NOTIFICATION_PHONE
	OfficePhone string `yaml:"office_phone"`
	// Env: OFFICE_NOTIFICATION_EMAIL
	OfficeEmail string `yaml:"office_email" validate:"omitempty,email"`
	// Env: SUPERVISOR_NOTIFICATION_PHONE (legacy: JEFF_NOTIFICATION_PHONE)
	SupervisorPhone string `yaml:"supervisor_phone"`
	// Env: SUPERVISOR_NOTIFICATION_EMAIL (legacy: JEFF_NOTIFICATION_EMAIL)
	SupervisorEmail string        `yaml:"supervisor_email" validate:"omitempty,email"`
	SendTimeout     time.Duration `yaml:"send_timeout" validate:"gt=0"`
	QueueSize       int           `yaml:"queue_size" validate:"min=1"`
	Workers         int           `yaml:"workers" validate:"min=1"`
}

// EscalationPhone returns the number escalations are sent to.
func (n NotificationConfig) EscalationPhone() string {
	if n.SupervisorPhone != "" {
		return n.SupervisorPhone
	}
	return n.OfficePhone
}

// EscalationEmail returns the address escalations are sent to.
func (n NotificationConfig) EscalationEmail() string {
	if n.SupervisorEmail != "" {
		return n.SupervisorEmail
	}
	return n.OfficeEmail
}

// TestMode redirects live transfers and notifications to a test contact.
//
// Description:
//
//	Threaded explicitly into the transfer resolver and the notifier. It is
//	inert unless Enabled is set, and Enabled requires AgentPhone.
type TestMode struct {
	// Env: TEST_MODE
	Enabled bool `yaml:"enabled"`
	// Env: TEST_AGENT_NAME
	AgentName string `yaml:"agent_name"`
	// Env: TEST_AGENT_PHONE
	AgentPhone string `yaml:"agent_phone" validate:"required_if=Enabled true"`
	// Env: TEST_AGENT_EMAIL
	AgentEmail string `yaml:"agent_email" validate:"omitempty,email"`
}

// Active reports whether the override applies.
func (t TestMode) Active() bool {
	return t.Enabled && t.AgentPhone != ""
}

// DisplayName is the name announced for the test destination.
func (t TestMode) DisplayName() string {
	if t.AgentName != "" {
		return t.AgentName
	}
	return "Test Agent"
}

// LedgerConfig selects where transfer attempts are recorded.
type LedgerConfig struct {
	// Env: LEDGER_BACKEND
	Backend string `yaml:"backend" validate:"oneof=memory badger redis sqlite"`
	// Path is the badger directory or sqlite file.
	// Env: LEDGER_PATH
	Path string `yaml:"path" validate:"required_if=Backend badger,required_if=Backend sqlite"`
	// Env: REDIS_URL
	RedisURL string        `yaml:"redis_url" validate:"required_if=Backend redis"`
	TTL      time.Duration `yaml:"ttl" validate:"gt=0"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	// Env: LOG_LEVEL
	Level string `yaml:"level" validate:"oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	// Env: LOG_FILE
	File string `yaml:"file"`
}

// TelemetryConfig controls tracing export.
type TelemetryConfig struct {
	ServiceName string `yaml:"service_name" validate:"required"`
	// Env: OTEL_EXPORTER_OTLP_ENDPOINT
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	// Env: OTEL_TRACES_STDOUT
	Stdout bool `yaml:"stdout"`
}

// IsProduction reports whether Environment is production.
func (c *Config) IsProduction() bool { return c.Environment == "production" }

// =============================================================================
// Loading
// =============================================================================

// Load builds the configuration from defaults, an optional file and the
// environment, then validates it.
//
// Inputs:
//   - path: Optional YAML file. Empty falls back to $VOICE_AGENT_CONFIG, and
//     then to defaults only.
//
// Outputs:
//   - *Config: Validated configuration.
//   - error: Non-nil on unreadable file, bad YAML, or failed validation.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse embedded defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the embedded defaults without file or environment input.
func Default() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return &cfg
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints and returns a single readable error.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}
