// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package roster

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// FuzzyThreshold is the minimum similarity ratio accepted by the fuzzy pass.
const FuzzyThreshold = 0.80

// minLastNameLen is the shortest query surname the last-name pass will try.
const minLastNameLen = 3

// MatchPass identifies which pass of the name search produced a hit.
type MatchPass int

const (
	// PassNone means no agent matched.
	PassNone MatchPass = iota
	// PassExact covers equality and substring containment either way.
	PassExact
	// PassLastName is a unique surname match.
	PassLastName
	// PassFuzzy is a similarity match at or above FuzzyThreshold.
	PassFuzzy
)

// String returns the log-friendly name of the pass.
func (p MatchPass) String() string {
	switch p {
	case PassExact:
		return "exact"
	case PassLastName:
		return "last_name"
	case PassFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// NameMatch is the result of a name search.
type NameMatch struct {
	Agent Agent
	Pass  MatchPass
	Score float64
}

// normalizeName lowercases and collapses whitespace.
func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func lastToken(s string) string {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// fuzzyRatio is the Ratcliff/Obershelp similarity of a and b, computed per
// character.
func fuzzyRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

// matchName runs the three-pass search over candidates.
//
// Description:
//
//	Pass 1 returns the first candidate whose normalized name equals,
//	contains, or is contained in the query. Pass 2 only runs when pass 1
//	found nothing and matches a query surname of at least three letters
//	against exactly one candidate. Pass 3 picks the best similarity ratio
//	and accepts it at FuzzyThreshold or above.
//
// Inputs:
//   - query: Raw spoken or typed name.
//   - candidates: Transferable agents in roster order.
//
// Outputs:
//   - NameMatch: Pass is PassNone when nothing matched.
func matchName(query string, candidates []Agent) NameMatch {
	q := normalizeName(query)
	if q == "" {
		return NameMatch{}
	}

	for _, a := range candidates {
		n := normalizeName(a.Name)
		if n == "" {
			continue
		}
		if q == n || strings.Contains(n, q) || strings.Contains(q, n) {
			return NameMatch{Agent: a, Pass: PassExact, Score: 1}
		}
	}

	if last := lastToken(q); len(last) >= minLastNameLen {
		var hits []Agent
		for _, a := range candidates {
			if lastToken(normalizeName(a.Name)) == last {
				hits = append(hits, a)
			}
		}
		if len(hits) == 1 {
			return NameMatch{Agent: hits[0], Pass: PassLastName, Score: 1}
		}
	}

	var best Agent
	bestScore := 0.0
	for _, a := range candidates {
		score := fuzzyRatio(q, normalizeName(a.Name))
		if score > bestScore {
			best, bestScore = a, score
		}
	}
	if bestScore >= FuzzyThreshold {
		return NameMatch{Agent: best, Pass: PassFuzzy, Score: bestScore}
	}
	return NameMatch{Score: bestScore}
}
