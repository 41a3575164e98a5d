// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package phone holds the phone-number rules shared by the roster, the
// transfer pipeline and the notification senders.
//
// Two numbers are the same line when their last ten digits match. Dialing
// always uses E.164 with a North American default country code.
package phone

import "strings"

// nationalLength is the number of digits kept for comparison.
const nationalLength = 10

// Digits strips every non-digit character from s.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize returns the comparison form of a phone number.
//
// Description:
//
//	Strips non-digits and keeps the last ten digits when at least ten are
//	present. Shorter inputs are returned as all of their digits so callers
//	can still reject them by length.
//
// Inputs:
//   - s: Any human-entered phone string ("352-626-7671", "+1 (352) 626-7671").
//
// Outputs:
//   - string: Digits only. Empty when s has no digits.
func Normalize(s string) string {
	d := Digits(s)
	if len(d) >= nationalLength {
		return d[len(d)-nationalLength:]
	}
	return d
}

// Equal reports whether a and b normalize to the same non-empty value.
func Equal(a, b string) bool {
	na := Normalize(a)
	return na != "" && na == Normalize(b)
}

// IsComplete reports whether s carries a full ten-digit national number.
func IsComplete(s string) bool {
	return len(Normalize(s)) == nationalLength
}

// ToE164 formats s for dialing.
//
// Description:
//
//	10 digits get a "+1" prefix, 11 digits starting with "1" get a bare "+".
//	Anything else is still prefixed with "+1" so a transfer is never refused
//	on format alone; ok is false in that case so the caller can log it.
//
// Outputs:
//   - string: The E.164 number, or "" when s has no digits.
//   - bool: True when the input had a recognised US shape.
func ToE164(s string) (string, bool) {
	d := Digits(s)
	switch {
	case d == "":
		return "", false
	case len(d) == nationalLength:
		return "+1" + d, true
	case len(d) == nationalLength+1 && d[0] == '1':
		return "+" + d, true
	default:
		return "+1" + d, false
	}
}
