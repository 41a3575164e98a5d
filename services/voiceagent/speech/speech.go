// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package speech renders listing values the way a person reads them aloud.
//
// Street numbers are read in pairs ("6794" becomes "sixty-seven
// ninety-four") and prices in the short real-estate style ("249000"
// becomes "two forty-nine thousand"). Text-to-speech engines otherwise read
// "6794" as "six thousand seven hundred ninety-four".
package speech

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

var ones = [...]string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}

var teens = [...]string{"ten", "eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen",
	"seventeen", "eighteen", "nineteen"}

var tens = [...]string{"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety"}

// twoDigit reads 0-99. With padOh, single digits read as "oh five".
func twoDigit(n int, padOh bool) string {
	switch {
	case n < 10 && padOh:
		return "oh " + ones[n]
	case n < 10:
		return ones[n]
	case n < 20:
		return teens[n-10]
	case n%10 == 0:
		return tens[n/10]
	default:
		return tens[n/10] + "-" + ones[n%10]
	}
}

// PairNumber reads a street number in pairs.
//
//	6794 -> "sixty-seven ninety-four"
//	1205 -> "twelve oh five"
//	 105 -> "one oh five"
//
// Five or more digits are returned as digits.
func PairNumber(n int) string {
	if n < 0 {
		return strconv.Itoa(n)
	}
	s := strconv.Itoa(n)
	switch len(s) {
	case 1, 2:
		return twoDigit(n, false)
	case 3:
		last := n % 100
		return ones[n/100] + " " + twoDigit(last, last < 10)
	case 4:
		first, last := n/100, n%100
		if last == 0 {
			return twoDigit(first, false) + " hundred"
		}
		return twoDigit(first, false) + " " + twoDigit(last, last < 10)
	default:
		return s
	}
}

// Address makes a listing address speakable. A leading street number of up
// to six digits is read in pairs and the rest is title-cased, keeping short
// all-caps tokens such as "NE" or "FL".
func Address(address string) string {
	fields := strings.Fields(address)
	if len(fields) == 0 {
		return ""
	}
	if len(fields) > 1 && len(fields[0]) <= 6 && allDigits(fields[0]) {
		n, err := strconv.Atoi(fields[0])
		if err == nil {
			return PairNumber(n) + " " + titleish(fields[1:])
		}
	}
	return titleish(fields)
}

// Price reads a list price in the short style.
//
//	 249000 -> "two forty-nine thousand"
//	 300000 -> "three hundred thousand"
//	1250000 -> "one point two five million"
//
// Zero and negative prices return "".
func Price(price float64) string {
	p := int(math.Round(price))
	if p <= 0 {
		return ""
	}
	if p >= 1_000_000 {
		s := strconv.FormatFloat(float64(p)/1_000_000, 'f', 2, 64)
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
		whole, frac, _ := strings.Cut(s, ".")
		w, _ := strconv.Atoi(whole)
		out := shortHundreds(w)
		if frac != "" {
			digits := make([]string, 0, len(frac))
			for _, ch := range frac {
				digits = append(digits, ones[ch-'0'])
			}
			out += " point " + strings.Join(digits, " ")
		}
		return out + " million"
	}

	thousands, remainder := p/1000, p%1000
	if thousands == 0 {
		return shortHundreds(remainder)
	}
	out := shortHundreds(thousands) + " thousand"
	if remainder != 0 {
		out += ", " + shortHundreds(remainder)
	}
	return out
}

// shortHundreds reads 0-999 without "hundred" unless the last two digits
// are zero: 249 -> "two forty-nine", 300 -> "three hundred".
func shortHundreds(n int) string {
	if n < 0 || n > 999 {
		return strconv.Itoa(n)
	}
	if n < 100 {
		return twoDigit(n, false)
	}
	last := n % 100
	if last == 0 {
		return ones[n/100] + " hundred"
	}
	return ones[n/100] + " " + twoDigit(last, last < 10)
}

func titleish(words []string) string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) <= 2 && strings.ToUpper(w) == w {
			out = append(out, w)
			continue
		}
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		out = append(out, string(r))
	}
	return strings.Join(out, " ")
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
