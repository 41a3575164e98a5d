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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "data/agent_roster.json", cfg.Roster.Path)
	assert.Equal(t, "https://api.vapi.ai", cfg.Vapi.APIURL)
	assert.Equal(t, 10*time.Second, cfg.Vapi.TransferTimeout)
	assert.Equal(t, 30*time.Second, cfg.Notifications.SendTimeout)
	assert.Equal(t, "https://api.kvcore.com/v2/public", cfg.CRM.APIURL)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, "badger", cfg.Ledger.Backend)
	assert.False(t, cfg.TestMode.Enabled, "test mode must be off unless explicitly set")
	assert.False(t, cfg.TestMode.Active())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voice.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: staging
server:
  port: 9090
notifications:
  office_phone: "352-290-8023"
  office_email: office@example.com
ledger:
  backend: memory
`), 0o600))

	t.Setenv("PORT", "7070")
	t.Setenv("JEFF_NOTIFICATION_PHONE", "352-555-0001")
	t.Setenv("AGENT_ROSTER_PATH", "gs://roster-bucket/agent_roster.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, 7070, cfg.Server.Port, "environment wins over file")
	assert.Equal(t, "memory", cfg.Ledger.Backend)
	assert.Equal(t, "gs://roster-bucket/agent_roster.json", cfg.Roster.Path)
	assert.Equal(t, "352-555-0001", cfg.Notifications.EscalationPhone(), "supervisor preferred")
	assert.Equal(t, "office@example.com", cfg.Notifications.EscalationEmail(), "office email when no supervisor email")
}

func TestLoad_TestModeRequiresPhone(t *testing.T) {
	t.Setenv("TEST_MODE", "true")
	t.Setenv("TEST_AGENT_PHONE", "")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AgentPhone")

	t.Setenv("TEST_AGENT_PHONE", "+13525550199")
	t.Setenv("TEST_AGENT_NAME", "QA Phone")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.TestMode.Active())
	assert.Equal(t, "QA Phone", cfg.TestMode.DisplayName())
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("bad backend", func(t *testing.T) {
		t.Setenv("LEDGER_BACKEND", "postgres")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("redis without url", func(t *testing.T) {
		t.Setenv("LEDGER_BACKEND", "redis")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0o600))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("VA_TEST_BOOL", "not-a-bool")
	assert.True(t, envBool("VA_TEST_BOOL", true))
	t.Setenv("VA_TEST_INT", "12")
	assert.Equal(t, 12, envInt("VA_TEST_INT", 1))
	t.Setenv("VA_TEST_STR", "   ")
	assert.Equal(t, "fallback", envString("VA_TEST_STR", "fallback"))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, "Sally Love Real Estate", cfg.Business.Name)
}
