// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transfer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/config"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/roster"
)

func TestResolver_Resolve(t *testing.T) {
	store := newRosterStore(t, sampleRoster())
	r := NewResolver(store, config.TestMode{}, nil, discardLogger())
	ctx := context.Background()

	tests := []struct {
		name         string
		reqName      string
		reqPhone     string
		wantName     string
		wantPhone    string
		wantVerified bool
		wantSource   Source
	}{
		{"name and phone agree", "Sally Love", "352-430-6960", "Sally Love", "+13524306960", true, SourceRoster},
		{"name only", "Jeff Beatty", "", "Jeff Beatty", "+13526000334", true, SourceRoster},
		{"phone only", "", "(352) 626-7772", "Blerim Prenaj", "+13526267772", true, SourceRoster},
		{"roster phone wins over a loose name", "sally", "", "Sally Love", "+13524306960", true, SourceRoster},
		{"name and phone disagree", "Sally Love", "352-600-0334", "Kim Coffer", "+13526267671", false, SourceFallbackAgent},
		{"unknown agent", "Nonexistent Person", "", "Kim Coffer", "+13526267671", false, SourceFallbackAgent},
		{"nothing requested", "", "", "Kim Coffer", "+13526267671", false, SourceFallbackAgent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := r.Resolve(ctx, "call-1", tc.reqName, tc.reqPhone)
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, res.AgentName)
			assert.Equal(t, tc.wantPhone, res.AgentPhone)
			assert.Equal(t, tc.wantVerified, res.Verified)
			assert.Equal(t, tc.wantSource, res.Source)
			assert.Equal(t, tc.reqName, res.RequestedName)
			assert.False(t, res.TestOverride)
		})
	}
}

func TestResolver_OfficeWhenNoAgents(t *testing.T) {
	store := newRosterStore(t, roster.Roster{Company: roster.Company{MainOfficePhone: "352-290-8023"}})
	r := NewResolver(store, config.TestMode{}, nil, discardLogger())

	res, err := r.Resolve(context.Background(), "c", "Sally Love", "")
	require.NoError(t, err)
	assert.Equal(t, OfficeLabel, res.AgentName)
	assert.Equal(t, "+13522908023", res.AgentPhone)
	assert.Equal(t, SourceOffice, res.Source)
	assert.False(t, res.Verified)
}

func TestResolver_NoDestination(t *testing.T) {
	store := newRosterStore(t, roster.Roster{})
	r := NewResolver(store, config.TestMode{}, nil, discardLogger())

	_, err := r.Resolve(context.Background(), "c", "Sally Love", "")
	assert.ErrorIs(t, err, ErrNoDestination)
}

func TestResolver_SubstitutionIsAudited(t *testing.T) {
	auditor, buf := auditCapture()
	r := NewResolver(newRosterStore(t, sampleRoster()), config.TestMode{}, auditor, discardLogger())

	_, err := r.Resolve(context.Background(), "call-7", "Nonexistent Person", "")
	require.NoError(t, err)

	ev := findEvent(auditEvents(t, buf), "transfer_substituted")
	require.NotNil(t, ev)
	assert.Equal(t, "Nonexistent Person", ev["requested_name"])
	assert.Equal(t, "Kim Coffer", ev["substituted_name"])
	assert.Equal(t, "call-7", ev["call_id"])
}

func TestResolver_TestModeOverride(t *testing.T) {
	auditor, buf := auditCapture()
	tm := config.TestMode{Enabled: true, AgentName: "QA Phone", AgentPhone: "555-000-1111"}
	r := NewResolver(newRosterStore(t, sampleRoster()), tm, auditor, discardLogger())

	res, err := r.Resolve(context.Background(), "c", "Sally Love", "352-430-6960")
	require.NoError(t, err)
	assert.True(t, res.TestOverride)
	assert.Equal(t, "QA Phone", res.AgentName)
	assert.Equal(t, "+15550001111", res.AgentPhone)
	assert.Equal(t, "Sally Love", res.OriginalName)
	assert.Equal(t, "+13524306960", res.OriginalPhone)
	assert.True(t, res.Verified)

	ev := findEvent(auditEvents(t, buf), "transfer_test_override")
	require.NotNil(t, ev)
	assert.Equal(t, true, ev["test_mode"])
}

func TestResolver_TestModeOffByDefault(t *testing.T) {
	// A test phone without the flag must never redirect.
	tm := config.TestMode{AgentPhone: "555-000-1111"}
	r := NewResolver(newRosterStore(t, sampleRoster()), tm, nil, discardLogger())

	res, err := r.Resolve(context.Background(), "c", "Sally Love", "")
	require.NoError(t, err)
	assert.False(t, res.TestOverride)
	assert.Equal(t, "+13524306960", res.AgentPhone)
}

func TestResolver_Fallback(t *testing.T) {
	ctx := context.Background()

	t.Run("prefers the office", func(t *testing.T) {
		r := NewResolver(newRosterStore(t, sampleRoster()), config.TestMode{}, nil, discardLogger())
		failed := Resolution{AgentName: "Sally Love", AgentPhone: "+13524306960"}
		res, err := r.Fallback(ctx, "c", failed)
		require.NoError(t, err)
		assert.Equal(t, OfficeLabel, res.AgentName)
		assert.Equal(t, "+13522908023", res.AgentPhone)
		assert.False(t, res.Verified)
	})

	t.Run("skips the number that just failed", func(t *testing.T) {
		r := NewResolver(newRosterStore(t, sampleRoster()), config.TestMode{}, nil, discardLogger())
		failed := Resolution{AgentName: OfficeLabel, AgentPhone: "+13522908023"}
		res, err := r.Fallback(ctx, "c", failed)
		require.NoError(t, err)
		assert.Equal(t, "Kim Coffer", res.AgentName)
		assert.Equal(t, SourceFallbackAgent, res.Source)
	})

	t.Run("no office and the only agent failed", func(t *testing.T) {
		single := roster.Roster{Agents: []roster.Agent{{Name: "Sally Love", CellPhone: "352-430-6960"}}}
		r := NewResolver(newRosterStore(t, single), config.TestMode{}, nil, discardLogger())
		_, err := r.Fallback(ctx, "c", Resolution{AgentPhone: "+13524306960"})
		assert.ErrorIs(t, err, ErrNoDestination)
	})

	t.Run("test override compares the original number", func(t *testing.T) {
		tm := config.TestMode{Enabled: true, AgentPhone: "555-000-1111"}
		noOffice := sampleRoster()
		noOffice.Company.MainOfficePhone = ""
		r := NewResolver(newRosterStore(t, noOffice), tm, nil, discardLogger())
		failed := Resolution{AgentPhone: "+15550001111", TestOverride: true, OriginalPhone: "+13526267671"}
		res, err := r.Fallback(ctx, "c", failed)
		require.NoError(t, err)
		assert.Equal(t, "Sally Love", res.OriginalName)
		assert.True(t, res.TestOverride)
		assert.Equal(t, "+15550001111", res.AgentPhone)
	})
}
