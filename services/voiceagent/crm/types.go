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
	"bytes"
	"encoding/json"
	"strings"
)

// ID is a CRM identifier. The API returns numbers for some records and
// strings for others.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*id = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
	default:
		*id = ID(data)
	}
	return nil
}

// =============================================================================
// Agents
// =============================================================================

// Agent is a CRM user record.
type Agent struct {
	ID              ID       `json:"id"`
	FirstName       string   `json:"firstName"`
	LastName        string   `json:"lastName"`
	Phone           string   `json:"phone,omitempty"`
	CellPhone       string   `json:"cellPhone,omitempty"`
	Email           string   `json:"email,omitempty"`
	Specialties     []string `json:"specialties,omitempty"`
	ServiceAreas    []string `json:"serviceAreas,omitempty"`
	Languages       []string `json:"languages,omitempty"`
	YearsExperience int      `json:"yearsExperience,omitempty"`
	Available       *bool    `json:"available,omitempty"`
}

// Name returns "First Last".
func (a Agent) Name() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// ContactPhone prefers the cell number.
func (a Agent) ContactPhone() string {
	if a.CellPhone != "" {
		return a.CellPhone
	}
	return a.Phone
}

// AgentFilter narrows ListAgents.
type AgentFilter struct {
	Specialty string
	City      string
}

// =============================================================================
// Contacts and leads
// =============================================================================

// ContactType classifies a contact.
type ContactType string

const (
	ContactBuyer  ContactType = "buyer"
	ContactSeller ContactType = "seller"
	ContactOther  ContactType = "other"
)

// Contact is a CRM person record.
type Contact struct {
	ID        ID          `json:"id,omitempty"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Phone     string      `json:"phone"`
	Email     string      `json:"email,omitempty"`
	Address   string      `json:"address,omitempty"`
	City      string      `json:"city,omitempty"`
	State     string      `json:"state,omitempty"`
	ZipCode   string      `json:"zipCode,omitempty"`
	Type      ContactType `json:"type,omitempty"`
	Tags      []string    `json:"tags,omitempty"`
	Source    string      `json:"source,omitempty"`
	Notes     string      `json:"notes,omitempty"`
}

// ContactQuery is a duplicate search. Empty fields are not sent.
type ContactQuery struct {
	Phone string
	Email string
	Name  string
}

// LeadStatus is the pipeline stage of a lead.
type LeadStatus string

const LeadNew LeadStatus = "new"

// BuyerLead carries buyer preferences.
type BuyerLead struct {
	PropertyType        string     `json:"propertyType,omitempty"`
	LocationPreference  string     `json:"locationPreference,omitempty"`
	MinPrice            float64    `json:"minPrice,omitempty"`
	MaxPrice            float64    `json:"maxPrice,omitempty"`
	Bedrooms            int        `json:"bedrooms,omitempty"`
	Bathrooms           float64    `json:"bathrooms,omitempty"`
	Timeframe           string     `json:"timeframe,omitempty"`
	PreApproved         bool       `json:"preApproved,omitempty"`
	SpecialRequirements string     `json:"specialRequirements,omitempty"`
	BuyerExperience     string     `json:"buyerExperience,omitempty"`
	PaymentMethod       string     `json:"paymentMethod,omitempty"`
	Status              LeadStatus `json:"status,omitempty"`
	AssignedAgentID     string     `json:"assignedAgentId,omitempty"`
}

// SellerLead carries the property being sold.
type SellerLead struct {
	PropertyAddress   string     `json:"propertyAddress"`
	City              string     `json:"city"`
	State             string     `json:"state"`
	ZipCode           string     `json:"zipCode"`
	PropertyType      string     `json:"propertyType,omitempty"`
	Bedrooms          int        `json:"bedrooms,omitempty"`
	Bathrooms         float64    `json:"bathrooms,omitempty"`
	SquareFeet        int        `json:"squareFeet,omitempty"`
	YearBuilt         int        `json:"yearBuilt,omitempty"`
	Condition         string     `json:"condition,omitempty"`
	ReasonForSelling  string     `json:"reasonForSelling,omitempty"`
	Timeframe         string     `json:"timeframe,omitempty"`
	EstimatedValue    float64    `json:"estimatedValue,omitempty"`
	PreviouslyListed  *bool      `json:"previouslyListed,omitempty"`
	CurrentlyOccupied *bool      `json:"currentlyOccupied,omitempty"`
	Status            LeadStatus `json:"status,omitempty"`
	AssignedAgentID   string     `json:"assignedAgentId,omitempty"`
}

// Lead is a buyer or seller lead for one contact. Exactly one of Buyer and
// Seller is set.
type Lead struct {
	Contact Contact
	Buyer   *BuyerLead
	Seller  *SellerLead
}

// CallResult codes accepted by LogCall.
const (
	CallResultContacted = 3
)

// CallLog is an activity entry for a phone conversation.
type CallLog struct {
	Direction string `json:"direction"`
	Result    int    `json:"result"`
	Notes     string `json:"notes,omitempty"`
}

// =============================================================================
// Listings
// =============================================================================

// Listing is a property for sale.
type Listing struct {
	MLSNumber     string  `json:"mlsNumber,omitempty"`
	Address       string  `json:"address"`
	City          string  `json:"city,omitempty"`
	State         string  `json:"state,omitempty"`
	Zip           string  `json:"zip,omitempty"`
	Price         float64 `json:"price,omitempty"`
	Bedrooms      float64 `json:"bedrooms,omitempty"`
	Bathrooms     float64 `json:"bathrooms,omitempty"`
	SquareFeet    float64 `json:"squareFeet,omitempty"`
	PropertyType  string  `json:"propertyType,omitempty"`
	Status        string  `json:"status,omitempty"`
	AgentName     string  `json:"agentName,omitempty"`
	AgentPhone    string  `json:"agentPhone,omitempty"`
	AgentEmail    string  `json:"agentEmail,omitempty"`
	AgentKvcoreID string  `json:"agentKvcoreId,omitempty"`
	BrokerageName string  `json:"brokerageName,omitempty"`
	BrokerPhone   string  `json:"brokerPhone,omitempty"`
	BrokerEmail   string  `json:"brokerEmail,omitempty"`
}

// ListingQuery filters a listing search. Zero values do not filter.
type ListingQuery struct {
	Address      string
	City         string
	State        string
	Zip          string
	MLSNumber    string
	AgentName    string // listing agent
	PropertyType string
	MinPrice     float64
	MaxPrice     float64
	Bedrooms     float64
	Bathrooms    float64
	Status       string
	Limit        int
}

// Empty reports whether no criteria are set.
func (q ListingQuery) Empty() bool {
	return q.Address == "" && q.City == "" && q.Zip == "" && q.MLSNumber == "" &&
		q.AgentName == "" && q.PropertyType == "" && q.MinPrice == 0 && q.MaxPrice == 0 &&
		q.Bedrooms == 0 && q.Bathrooms == 0
}
