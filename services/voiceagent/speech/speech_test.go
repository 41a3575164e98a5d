// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairNumber(t *testing.T) {
	cases := map[int]string{
		7:     "seven",
		42:    "forty-two",
		105:   "one oh five",
		123:   "one twenty-three",
		1205:  "twelve oh five",
		1900:  "nineteen hundred",
		6794:  "sixty-seven ninety-four",
		12345: "12345",
	}
	for in, want := range cases {
		assert.Equal(t, want, PairNumber(in), "PairNumber(%d)", in)
	}
}

func TestAddress(t *testing.T) {
	assert.Equal(t, "sixty-seven ninety-four Boss Court", Address("6794 BOSS COURT"))
	assert.Equal(t, "one twenty-three NE Main Street", Address("123 NE main street"))
	assert.Equal(t, "Lot Seven", Address("lot seven"))
	assert.Equal(t, "", Address("   "))
	// A bare number is not treated as a street number.
	assert.Equal(t, "6794", Address("6794"))
}

func TestPrice(t *testing.T) {
	cases := map[float64]string{
		249000:  "two forty-nine thousand",
		418000:  "four eighteen thousand",
		300000:  "three hundred thousand",
		95000:   "ninety-five thousand",
		249500:  "two forty-nine thousand, five hundred",
		1250000: "one point two five million",
		2000000: "two million",
		850:     "eight fifty",
		0:       "",
		-5:      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Price(in), "Price(%v)", in)
	}
}
