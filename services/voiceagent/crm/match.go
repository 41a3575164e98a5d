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
	"strings"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// streetNameRatio is the similarity accepted between a spoken street name
// and a listing's street name.
const streetNameRatio = 0.80

// streetTypes maps spoken and written street suffixes to one form.
var streetTypes = map[string]string{
	"street": "st", "st": "st",
	"avenue": "ave", "ave": "ave", "av": "ave",
	"boulevard": "blvd", "blvd": "blvd",
	"road": "rd", "rd": "rd",
	"drive": "dr", "dr": "dr",
	"lane": "ln", "ln": "ln",
	"court": "ct", "ct": "ct",
	"circle": "cir", "cir": "cir",
	"place": "pl", "pl": "pl",
	"terrace": "ter", "ter": "ter",
	"way": "way",
	"loop": "loop",
	"trail": "trl", "trl": "trl",
	"path": "path",
	"run": "run",
	"parkway": "pkwy", "pkwy": "pkwy",
	"highway": "hwy", "hwy": "hwy",
}

var directionals = map[string]bool{
	"n": true, "s": true, "e": true, "w": true,
	"ne": true, "nw": true, "se": true, "sw": true,
	"north": true, "south": true, "east": true, "west": true,
}

// villagesArea lists the municipalities a caller means by "The Villages".
var villagesArea = map[string]bool{
	"the villages":   true,
	"lady lake":      true,
	"oxford":         true,
	"summerfield":    true,
	"wildwood":       true,
	"fruitland park": true,
	"belleview":      true,
}

// parsedAddress is a street address split into comparable parts.
type parsedAddress struct {
	number     string
	streetType string
	names      []string
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isNumber(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// isOrdinal matches "80th", "1st", "2nd", "3rd".
func isOrdinal(s string) bool {
	if len(s) < 3 {
		return false
	}
	digits := strings.TrimRightFunc(s, unicode.IsLetter)
	suffix := s[len(digits):]
	return isNumber(digits) && (suffix == "st" || suffix == "nd" || suffix == "rd" || suffix == "th")
}

func parseAddress(s string) parsedAddress {
	var p parsedAddress
	for i, tok := range tokenize(s) {
		switch {
		case i == 0 && isNumber(tok):
			p.number = tok
		case isNumber(tok) || isOrdinal(tok) || directionals[tok]:
		case streetTypes[tok] != "" && i > 0:
			p.streetType = streetTypes[tok]
		default:
			p.names = append(p.names, tok)
		}
	}
	return p
}

// skeleton drops vowels after the first letter and collapses repeats, so
// "gallenoll", "gallonol" and "gallinule" all become "glnl".
func skeleton(s string) string {
	var b strings.Builder
	var last rune
	for i, r := range s {
		if i > 0 && strings.ContainsRune("aeiouy", r) {
			continue
		}
		if r == last {
			continue
		}
		b.WriteRune(r)
		last = r
	}
	return b.String()
}

func similar(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b || strings.Contains(b, a) {
		return true
	}
	if sa := skeleton(a); len(sa) >= 3 && sa == skeleton(b) {
		return true
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio() >= streetNameRatio
}

// addressMatches reports whether a spoken address plausibly names listing.
//
// Description:
//
//	When the search starts with a house number the listing must have the
//	same number, and a spoken street type must agree with the listing's.
//	The street name is compared with spaces removed ("Bella Vista" and
//	"Bellavista"), then by consonant skeleton to absorb mishearings, then
//	by similarity ratio.
func addressMatches(listingAddress, search string) bool {
	s := parseAddress(search)
	if s.number == "" && len(s.names) == 0 {
		return false
	}
	l := parseAddress(listingAddress)

	if s.number != "" && s.number != l.number {
		return false
	}
	if s.streetType != "" && l.streetType != "" && s.streetType != l.streetType {
		return false
	}
	if len(s.names) == 0 {
		return true
	}

	want := strings.Join(s.names, "")
	candidates := []string{strings.Join(l.names, "")}
	for i := range l.names {
		candidates = append(candidates, l.names[i])
		if i+1 < len(l.names) {
			candidates = append(candidates, l.names[i]+l.names[i+1])
		}
	}
	for _, c := range candidates {
		if similar(want, c) {
			return true
		}
	}
	return false
}

// cityMatches compares a spoken city with a listing city. "The Villages"
// and "Villages" cover the surrounding municipalities.
func cityMatches(listingCity, search string) bool {
	l := strings.Join(tokenize(listingCity), " ")
	s := strings.Join(tokenize(search), " ")
	if s == "" {
		return true
	}
	if l == s || strings.Contains(l, s) {
		return true
	}
	if s == "villages" || s == "the villages" {
		return villagesArea[l]
	}
	return false
}

// matches applies every set criterion of q to l.
func (q ListingQuery) matches(l Listing) bool {
	if q.MLSNumber != "" && !strings.EqualFold(strings.TrimSpace(q.MLSNumber), strings.TrimSpace(l.MLSNumber)) {
		return false
	}
	if q.Address != "" && !addressMatches(l.Address, q.Address) {
		return false
	}
	if q.City != "" && !cityMatches(l.City, q.City) {
		return false
	}
	if q.Zip != "" && !strings.HasPrefix(strings.TrimSpace(l.Zip), strings.TrimSpace(q.Zip)) {
		return false
	}
	if q.AgentName != "" && !agentMatches(l.AgentName, q.AgentName) {
		return false
	}
	if q.PropertyType != "" && !strings.Contains(strings.ToLower(l.PropertyType), strings.ToLower(q.PropertyType)) {
		return false
	}
	if q.MinPrice > 0 && l.Price < q.MinPrice {
		return false
	}
	if q.MaxPrice > 0 && l.Price > q.MaxPrice {
		return false
	}
	if q.Bedrooms > 0 && l.Bedrooms < q.Bedrooms {
		return false
	}
	if q.Bathrooms > 0 && l.Bathrooms < q.Bathrooms {
		return false
	}
	if q.Status != "" && !strings.EqualFold(l.Status, q.Status) {
		return false
	}
	return true
}

// agentMatches compares a listing agent with a requested name, tolerating a
// first-name-only or misheard request.
func agentMatches(listingAgent, search string) bool {
	l := strings.ToLower(strings.TrimSpace(listingAgent))
	q := strings.ToLower(strings.TrimSpace(search))
	if l == "" {
		return false
	}
	return strings.Contains(l, q) || similar(l, q)
}
