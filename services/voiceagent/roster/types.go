// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package roster loads the brokerage's agent roster and answers the lookups
// used to decide where a live call may be transferred.
//
// The roster document is the source of truth for transfer destinations. It is
// read once, cached, and never mutated in place; the cache can be dropped
// explicitly (or by the file Watcher) to pick up an edited file.
//
// Thread Safety:
//
//	Store is safe for concurrent use.
package roster

import (
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/phone"
)

// Agent is one person listed in the roster.
//
// Description:
//
//	Agents and staff share the same shape. CellPhone is preferred over Phone
//	when dialing. An Agent without a normalizable phone is never returned by
//	any lookup.
type Agent struct {
	Name      string `json:"name"`
	CellPhone string `json:"cell_phone,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Title     string `json:"title,omitempty"`
}

// ContactPhone returns the number used to reach the agent.
func (a Agent) ContactPhone() string {
	if a.CellPhone != "" {
		return a.CellPhone
	}
	return a.Phone
}

// Transferable reports whether a call can be sent to this agent.
func (a Agent) Transferable() bool {
	return phone.Normalize(a.ContactPhone()) != ""
}

// Company holds brokerage-wide contact details.
type Company struct {
	Name            string `json:"name,omitempty"`
	MainOfficePhone string `json:"main_office_phone,omitempty"`
	Email           string `json:"email,omitempty"`
	Address         string `json:"address,omitempty"`
}

// Roster is the decoded roster document.
//
// Description:
//
//	Agents and Staff are transfer candidates. TrustedPartnerTitleStaff is
//	listed for reference only and is never a transfer destination.
type Roster struct {
	Company                  Company `json:"company"`
	Agents                   []Agent `json:"agents"`
	Staff                    []Agent `json:"staff"`
	TrustedPartnerTitleStaff []Agent `json:"trusted_partner_title_staff,omitempty"`
}

// Empty returns the roster used when the document is missing or unreadable.
func Empty() *Roster {
	return &Roster{Agents: []Agent{}, Staff: []Agent{}}
}

// Transferable returns agents then staff, in document order, filtered to
// those with a usable phone.
func (r *Roster) Transferable() []Agent {
	if r == nil {
		return nil
	}
	out := make([]Agent, 0, len(r.Agents)+len(r.Staff))
	for _, group := range [][]Agent{r.Agents, r.Staff} {
		for _, a := range group {
			if a.Transferable() {
				out = append(out, a)
			}
		}
	}
	return out
}
