// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"352-626-7671", "3526267671"},
		{"+13526267671", "3526267671"},
		{"(352) 626-7671", "3526267671"},
		{"1 352 626 7671", "3526267671"},
		{"626-7671", "6267671"},
		{"", ""},
		{"n/a", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("352-626-7671", "+13526267671"))
	assert.False(t, Equal("352-626-7671", "352-626-7672"))
	assert.False(t, Equal("", ""), "empty numbers never match")
	assert.False(t, Equal("abc", "xyz"))
}

func TestIsComplete(t *testing.T) {
	assert.True(t, IsComplete("+1 352 430 6960"))
	assert.False(t, IsComplete("430-6960"))
}

func TestToE164(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"ten digits", "352-430-6960", "+13524306960", true},
		{"eleven with country code", "1-352-430-6960", "+13524306960", true},
		{"already e164", "+13524306960", "+13524306960", true},
		{"short number", "430-6960", "+14306960", false},
		{"eleven without leading one", "23524306960", "+123524306960", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ToE164(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}
