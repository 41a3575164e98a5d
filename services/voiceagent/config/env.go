// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"strconv"
	"strings"
)

// applyEnv overlays environment variables onto cfg. Unset variables leave
// the file/default value in place.
func applyEnv(cfg *Config) {
	cfg.Environment = strings.ToLower(envString("ENVIRONMENT", cfg.Environment))

	cfg.Server.Host = envString("HOST", cfg.Server.Host)
	cfg.Server.Port = envInt("PORT", cfg.Server.Port)
	cfg.Server.WebhookBaseURL = envString("WEBHOOK_BASE_URL", cfg.Server.WebhookBaseURL)
	cfg.Server.Debug = envBool("DEBUG", cfg.Server.Debug)

	cfg.Business.Name = envString("BUSINESS_NAME", cfg.Business.Name)
	cfg.Business.Phone = envString("BUSINESS_PHONE", cfg.Business.Phone)
	cfg.Business.Timezone = envString("OFFICE_TIMEZONE", cfg.Business.Timezone)

	cfg.Roster.Path = envString("AGENT_ROSTER_PATH", cfg.Roster.Path)
	cfg.Roster.Watch = envBool("AGENT_ROSTER_WATCH", cfg.Roster.Watch)

	cfg.Vapi.APIURL = envString("VAPI_API_URL", cfg.Vapi.APIURL)
	cfg.Vapi.AssistantID = envString("VAPI_ASSISTANT_ID", cfg.Vapi.AssistantID)
	cfg.Vapi.PhoneNumberID = envString("VAPI_PHONE_NUMBER_ID", cfg.Vapi.PhoneNumberID)

	cfg.CRM.APIURL = envString("BOLDTRAIL_API_URL", cfg.CRM.APIURL)
	cfg.CRM.AccountID = envString("BOLDTRAIL_ACCOUNT_ID", cfg.CRM.AccountID)
	cfg.CRM.ListingsFeedURL = envString("BOLDTRAIL_LISTINGS_FEED_URL", cfg.CRM.ListingsFeedURL)

	cfg.Twilio.AccountSID = envString("TWILIO_ACCOUNT_SID", cfg.Twilio.AccountSID)
	cfg.Twilio.FromNumber = envString("TWILIO_PHONE_NUMBER", cfg.Twilio.FromNumber)

	cfg.SMTP.Host = envString("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = envInt("SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.Username = envString("SMTP_USERNAME", cfg.SMTP.Username)
	cfg.SMTP.FromEmail = envString("SMTP_FROM_EMAIL", cfg.SMTP.FromEmail)
	cfg.SMTP.UseTLS = envBool("SMTP_USE_TLS", cfg.SMTP.UseTLS)

	n := &cfg.Notifications
	n.Enabled = envBool("LEAD_NOTIFICATION_ENABLED", n.Enabled)
	n.OfficePhone = envString("OFFICE_NOTIFICATION_PHONE", n.OfficePhone)
	n.OfficeEmail = envString("OFFICE_NOTIFICATION_EMAIL", n.OfficeEmail)
	n.SupervisorPhone = envString("SUPERVISOR_NOTIFICATION_PHONE", envString("JEFF_NOTIFICATION_PHONE", n.SupervisorPhone))
	n.SupervisorEmail = envString("SUPERVISOR_NOTIFICATION_EMAIL", envString("JEFF_NOTIFICATION_EMAIL", n.SupervisorEmail))

	cfg.TestMode.Enabled = envBool("TEST_MODE", cfg.TestMode.Enabled)
	cfg.TestMode.AgentName = envString("TEST_AGENT_NAME", cfg.TestMode.AgentName)
	cfg.TestMode.AgentPhone = envString("TEST_AGENT_PHONE", cfg.TestMode.AgentPhone)
	cfg.TestMode.AgentEmail = envString("TEST_AGENT_EMAIL", cfg.TestMode.AgentEmail)

	cfg.Ledger.Backend = strings.ToLower(envString("LEDGER_BACKEND", cfg.Ledger.Backend))
	cfg.Ledger.Path = envString("LEDGER_PATH", cfg.Ledger.Path)
	cfg.Ledger.RedisURL = envString("REDIS_URL", cfg.Ledger.RedisURL)

	cfg.Logging.Level = envString("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.File = envString("LOG_FILE", cfg.Logging.File)

	cfg.Telemetry.OTLPEndpoint = envString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
	cfg.Telemetry.Stdout = envBool("OTEL_TRACES_STDOUT", cfg.Telemetry.Stdout)
}

// envString reads a string environment variable with a default value.
func envString(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && strings.TrimSpace(val) != "" {
		return strings.TrimSpace(val)
	}
	return defaultVal
}

// envBool reads a boolean environment variable with a default value.
func envBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// envInt reads an integer environment variable with a default value.
func envInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
