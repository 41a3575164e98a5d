// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package crm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressMatches(t *testing.T) {
	tests := []struct {
		name    string
		listing string
		search  string
		want    bool
	}{
		{"misheard street name", "3016 Gallinule Court", "3016 Gallenoll Court", true},
		{"another mishearing", "3016 Gallinule Court", "3016 Gallonol Court", true},
		{"street name only, split words", "16642 SE 80th Bellavista Circle", "Bella Vista", true},
		{"split with type", "16642 SE 80th Bellavista Circle", "Belle Vista Circle", true},
		{"shortened", "16642 SE 80th Bellavista Circle", "Belvista Circle", true},
		{"exact", "2121 Auburn Lane", "2121 Auburn Lane", true},
		{"abbreviated type", "2121 Auburn Lane", "2121 auburn ln.", true},
		{"number and name only", "3016 Gallinule Court", "3016 Gallinule", true},
		{"different number", "3016 Gallinule Court", "3017 Gallenoll Court", false},
		{"different street type", "3016 Gallinule Court", "3016 Gallenoll Drive", false},
		{"unrelated street", "2121 Auburn Lane", "2121 Magnolia Lane", false},
		{"empty search", "2121 Auburn Lane", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, addressMatches(tt.listing, tt.search))
		})
	}
}

func TestCityMatches(t *testing.T) {
	assert.True(t, cityMatches("Lady Lake", "The Villages"))
	assert.True(t, cityMatches("Oxford", "The Villages"))
	assert.True(t, cityMatches("Summerfield", "Villages"))
	assert.True(t, cityMatches("Lady Lake", "lady lake"))
	assert.False(t, cityMatches("Ocala", "The Villages"))
	assert.False(t, cityMatches("Ocala", "Leesburg"))
}

func TestSkeleton(t *testing.T) {
	assert.Equal(t, "glnl", skeleton("gallinule"))
	assert.Equal(t, "glnl", skeleton("gallenoll"))
	assert.Equal(t, "blvst", skeleton("bellavista"))
}

func TestAgentMatches(t *testing.T) {
	assert.True(t, agentMatches("Sally Love", "sally"))
	assert.True(t, agentMatches("Sally Love", "Sally Love"))
	assert.True(t, agentMatches("Kimberly Nolan", "kimberley nolan"))
	assert.False(t, agentMatches("Sally Love", "Jeff Beatty"))
	assert.False(t, agentMatches("", "Sally"))

	q := ListingQuery{AgentName: "Love"}
	assert.True(t, q.matches(Listing{Address: "1 A St", AgentName: "Sally Love"}))
	assert.False(t, q.matches(Listing{Address: "1 A St", AgentName: "Jeff Beatty"}))
}
