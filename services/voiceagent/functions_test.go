// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package voiceagent

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/crm"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/notify"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/transfer"
)

// =============================================================================
// check_property
// =============================================================================

func villaListing() crm.Listing {
	return crm.Listing{
		MLSNumber:    "G5012345",
		Address:      "1205 Bramble Way",
		City:         "The Villages",
		State:        "FL",
		Zip:          "32162",
		Price:        249000,
		Bedrooms:     3,
		Bathrooms:    2,
		PropertyType: "villa",
		Status:       "Active",
		AgentName:    "Kim Coffer",
		AgentPhone:   "352-555-0000",
		BrokerPhone:  "352-290-8023",
	}
}

func TestCheckProperty_NoCriteria(t *testing.T) {
	h := newHarness(t, nil)
	_, resp := h.call(t, fnCheckProperty, map[string]any{})

	assert.False(t, resp.Success)
	assert.Equal(t, "No search criteria provided", resp.Error)
	assert.Equal(t, noCriteriaMessage, spoken(t, resp))
	assert.Equal(t, map[string]any{}, resp.Data["search_params"])
	assert.Empty(t, h.crm.queries, "crm must not be searched without criteria")
}

func TestCheckProperty_SingleListing(t *testing.T) {
	h := newHarness(t, nil)
	h.crm.listings = []crm.Listing{villaListing()}

	_, resp := h.call(t, fnCheckProperty, map[string]any{"zip_code": "32162", "bedrooms": "3"})

	require.True(t, resp.Success)
	assert.Equal(t, "I found a property at twelve oh five Bramble Way, The Villages. It's a 3 bedroom, 2 bathroom "+
		"villa listed at two forty-nine thousand. The MLS number is G5012345. The listing agent is Kim Coffer. "+
		"Would you like me to connect you with Kim Coffer?", spoken(t, resp))

	require.Len(t, h.crm.queries, 1)
	q := h.crm.queries[0]
	assert.Equal(t, "32162", q.Zip)
	assert.Equal(t, "FL", q.State)
	assert.Equal(t, float64(3), q.Bedrooms)
	assert.Empty(t, q.Status)
	assert.Equal(t, crm.DefaultListingLimit, q.Limit)

	agent, ok := resp.Data["listing_agent"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Kim Coffer", agent["name"])
	assert.Equal(t, "352-626-7671", agent["phone"], "roster phone wins over the feed")
	assert.Equal(t, "kim@sallylove.com", agent["email"])
	assert.Equal(t, "352-626-7671", resp.Data["transfer_phone"])

	broker, ok := resp.Data["broker"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Sally Love Real Estate", broker["name"])
	assert.Equal(t, float64(1), resp.Data["count"])
}

func TestCheckProperty_ListingAgentNotInRoster(t *testing.T) {
	h := newHarness(t, nil)
	l := villaListing()
	l.AgentName = "Zed Quixote"
	l.AgentPhone = "555-111-2222"
	h.crm.listings = []crm.Listing{l}

	_, resp := h.call(t, fnCheckProperty, map[string]any{"mls_number": "G5012345"})

	require.True(t, resp.Success)
	assert.Contains(t, spoken(t, resp), "The listing agent is Zed Quixote.")
	agent := resp.Data["listing_agent"].(map[string]any)
	assert.Equal(t, "Kim Coffer", agent["name"], "first roster agent substitutes")
	assert.Equal(t, "352-626-7671", resp.Data["transfer_phone"])
}

func TestCheckProperty_StatusNotes(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"Pending", "This property is currently under contract, but they may be accepting backup offers."},
		{"under contract", "This property is currently under contract"},
		{"Sold", "I should note that this property has been sold."},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			h := newHarness(t, nil)
			l := villaListing()
			l.Status = tt.status
			h.crm.listings = []crm.Listing{l}

			_, resp := h.call(t, fnCheckProperty, map[string]any{"address": "1205 Bramble Way"})
			assert.Contains(t, spoken(t, resp), tt.want)
		})
	}
}

func TestCheckProperty_MultipleListings(t *testing.T) {
	h := newHarness(t, nil)
	second := villaListing()
	second.Address, second.Price = "88 Oak Lane", 300000
	h.crm.listings = []crm.Listing{villaListing(), second}

	_, resp := h.call(t, fnCheckProperty, map[string]any{"city": "The Villages", "max_price": "$300,000"})

	require.True(t, resp.Success)
	assert.Equal(t, "I found 2 properties matching your criteria. The prices range from two forty-nine thousand "+
		"to three hundred thousand. Would you like me to tell you about each one?", spoken(t, resp))
	assert.Equal(t, float64(2), resp.Data["count"])
	assert.NotContains(t, resp.Data, "listing_agent")
}

func TestCheckProperty_NoResults(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"zip given", map[string]any{"zip_code": "32162"}, noMatchMessage},
		{"city and address", map[string]any{"city": "Ocala", "address": "1 Main St"}, noMatchMessage},
		{"city only", map[string]any{"city": "Ocala"}, needLocationMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			_, resp := h.call(t, fnCheckProperty, tt.args)
			assert.True(t, resp.Success)
			assert.Equal(t, tt.want, spoken(t, resp))
			assert.Equal(t, float64(0), resp.Data["count"])
		})
	}
}

func TestCheckProperty_CRMFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.crm.listingErr = errCRMDown

	_, resp := h.call(t, fnCheckProperty, map[string]any{"city": "Ocala"})

	assert.False(t, resp.Success)
	assert.Equal(t, listingsUnavailableMessage, spoken(t, resp))
}

func TestCheckProperty_CRMNotConfigured(t *testing.T) {
	h := newHarness(t, func(d *Deps) { d.CRM = nil })
	_, resp := h.call(t, fnCheckProperty, map[string]any{"city": "Ocala"})

	assert.False(t, resp.Success)
	assert.Equal(t, listingsUnavailableMessage, spoken(t, resp))
}

func TestCheckProperty_FlatBody(t *testing.T) {
	h := newHarness(t, nil)
	h.crm.listings = []crm.Listing{villaListing()}

	w := h.do(http.MethodPost, "/functions/check_property", []byte(`{"mls_number":"G5012345"}`), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp FunctionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 1)
	assert.Empty(t, resp.Results[0].ToolCallID)
}

func TestCheckProperty_InvalidBody(t *testing.T) {
	h := newHarness(t, nil)
	w := h.do(http.MethodPost, "/functions/check_property", []byte(`not json`), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_BODY", decodeMap(t, w)["code"])
}

// =============================================================================
// get_agent_info
// =============================================================================

func boolPtr(b bool) *bool { return &b }

func TestGetAgentInfo_RosterFirst(t *testing.T) {
	h := newHarness(t, nil)
	_, resp := h.call(t, fnGetAgentInfo, map[string]any{"agent_name": "Sally Love"})

	require.True(t, resp.Success)
	assert.Equal(t, "I have information about Sally Love. Would you like me to connect you with them?", spoken(t, resp))
	agents := resp.Data["agents"].([]any)
	require.Len(t, agents, 1)
	a := agents[0].(map[string]any)
	assert.Equal(t, "roster", a["source"])
	assert.Equal(t, "352-430-6960", a["phone"])
}

func TestGetAgentInfo_CRMList(t *testing.T) {
	h := newHarness(t, nil)
	h.crm.agents = []crm.Agent{
		{ID: "7", FirstName: "Jeff", LastName: "Beatty", CellPhone: "352-999-0000"},
		{ID: "8", FirstName: "Maria", LastName: "Gonzalez", Phone: "352-555-0101", Available: boolPtr(true)},
		{ID: "9", FirstName: "Off", LastName: "Duty", Phone: "352-555-0102", Available: boolPtr(false)},
	}

	_, resp := h.call(t, fnGetAgentInfo, map[string]any{"specialty": "luxury"})

	require.True(t, resp.Success)
	assert.Equal(t, "I found 2 available agents. Would you like me to tell you about each one, "+
		"or connect you with the first available agent?", spoken(t, resp))
	agents := resp.Data["agents"].([]any)
	require.Len(t, agents, 2)
	jeff := agents[0].(map[string]any)
	assert.Equal(t, "Jeff Beatty", jeff["name"])
	assert.Equal(t, "352-600-0334", jeff["phone"], "roster phone replaces the crm phone")
	assert.Equal(t, "crm", jeff["source"])
}

func TestGetAgentInfo_ByID(t *testing.T) {
	h := newHarness(t, nil)
	h.crm.agent = crm.Agent{
		ID:              "42",
		FirstName:       "Maria",
		LastName:        "Gonzalez",
		Specialties:     []string{"luxury homes", "golf villas", "relocation"},
		ServiceAreas:    []string{"The Villages"},
		YearsExperience: 12,
	}

	_, resp := h.call(t, fnGetAgentInfo, map[string]any{"agent_id": 42})

	require.True(t, resp.Success)
	assert.Equal(t, "I have information about Maria Gonzalez. They specialize in luxury homes, golf villas. "+
		"They service the The Villages area. They have 12 years of experience. "+
		"Would you like me to connect you with them?", spoken(t, resp))
}

func TestGetAgentInfo_NoneFound(t *testing.T) {
	h := newHarness(t, nil)
	_, resp := h.call(t, fnGetAgentInfo, map[string]any{"city": "Ocala"})

	assert.True(t, resp.Success)
	assert.Equal(t, noAgentsMessage, spoken(t, resp))
}

func TestGetAgentInfo_CRMFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.crm.agentErr = errCRMDown
	_, resp := h.call(t, fnGetAgentInfo, map[string]any{"city": "Ocala"})

	assert.False(t, resp.Success)
	assert.Equal(t, directoryUnavailableText, spoken(t, resp))
}

func TestAvailableAgents(t *testing.T) {
	agents := []crm.Agent{
		{FirstName: "Kim", LastName: "Coffer"},
		{FirstName: "Sally", LastName: "Love", Available: boolPtr(false)},
		{FirstName: "Jeff", LastName: "Beatty", Available: boolPtr(true)},
	}
	assert.Len(t, availableAgents(agents, ""), 2)

	got := availableAgents(agents, "beat")
	require.Len(t, got, 1)
	assert.Equal(t, "Jeff Beatty", got[0].Name())
}

// =============================================================================
// route_to_agent
// =============================================================================

func transferBody(t *testing.T, controlURL string, args map[string]any) []byte {
	t.Helper()
	msg := map[string]any{
		"type": "tool-calls",
		"toolWithToolCallList": []any{map[string]any{
			"name": "route_to_agent",
			"toolCall": map[string]any{
				"id":       "call_test",
				"function": map[string]any{"name": "route_to_agent", "arguments": args},
			},
		}},
		"call": map[string]any{"id": "vapi-call-9", "monitor": map[string]any{"controlUrl": controlURL}},
	}
	body, err := json.Marshal(map[string]any{"message": msg})
	require.NoError(t, err)
	return body
}

func transferArgs() map[string]any {
	return map[string]any{
		"lead_id":      "lead-1",
		"caller_name":  "Pat Buyer",
		"caller_phone": "352-555-0199",
		"agent_name":   "Kim Coffer",
		"reason":       "buying a home",
	}
}

func decodeFunction(t *testing.T, body []byte) FunctionResponse {
	t.Helper()
	var resp FunctionResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestRouteToAgent_Routes(t *testing.T) {
	h := newHarness(t, nil)
	h.transfers.outcome = transfer.Outcome{
		State:      transfer.StateDone,
		AgentName:  "Kim Coffer",
		AgentPhone: "+13526267671",
		Verified:   true,
		Executed:   true,
		Message:    "Great! I'm transferring you to Kim Coffer now. Please hold while I connect you.",
	}

	w := h.do(http.MethodPost, "/functions/route_to_agent", transferBody(t, "https://control.example/abc", transferArgs()), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeFunction(t, w.Body.Bytes())

	require.Len(t, h.transfers.routed, 1)
	assert.Equal(t, "lead-1", h.transfers.routed[0].LeadID)
	assert.Equal(t, "Kim Coffer", h.transfers.routed[0].AgentName)
	assert.Equal(t, "buying a home", h.transfers.routed[0].Reason)
	assert.Equal(t, transfer.Session{ControlURL: "https://control.example/abc", CallID: "vapi-call-9"}, h.transfers.sessions[0])

	assert.True(t, resp.Success)
	assert.Equal(t, h.transfers.outcome.Message, spoken(t, resp))
	assert.Equal(t, "DONE", resp.Data["state"])
	assert.Equal(t, true, resp.Data["verified"])
}

func TestRouteToAgent_MissingControlURLIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	w := h.do(http.MethodPost, "/functions/route_to_agent", transferBody(t, "", transferArgs()), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeFunction(t, w.Body.Bytes())

	assert.Empty(t, h.transfers.routed)
	require.Len(t, h.transfers.rejected, 1)
	assert.False(t, resp.Success)
	assert.Equal(t, transfer.MalformedMessage, spoken(t, resp))
	assert.Equal(t, "malformed_webhook", resp.Data["reason"])
}

func TestRouteToAgent_GarbageBodyIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	w := h.do(http.MethodPost, "/route-to-agent", []byte(`{{{`), nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, h.transfers.rejected, 1)
	resp := decodeFunction(t, w.Body.Bytes())
	assert.Equal(t, transfer.MalformedMessage, resp.Results[0].Result)
}

// =============================================================================
// create_buyer_lead
// =============================================================================

func buyerArgs() map[string]any {
	return map[string]any{
		"first_name":          "Pat",
		"last_name":           "Buyer",
		"phone":               "(352) 555-0199",
		"email":               "pat@example.com",
		"location_preference": "The Villages",
		"min_price":           "$250,000",
		"max_price":           400000,
		"bedrooms":            3,
		"timeframe":           "3 months",
		"pre_approved":        "yes",
	}
}

func TestCreateBuyerLead_MissingFields(t *testing.T) {
	h := newHarness(t, nil)
	_, resp := h.call(t, fnCreateBuyerLead, map[string]any{"email": "pat@example.com"})

	assert.False(t, resp.Success)
	assert.Equal(t, "I just need your first name and phone before I can save your information.", spoken(t, resp))
	assert.Equal(t, []any{"first_name", "phone"}, resp.Data["missing"])
	assert.Empty(t, h.crm.created)
}

func TestCreateBuyerLead_NewContact(t *testing.T) {
	h := newHarness(t, nil)
	h.crm.createRes = crm.LeadResult{ContactID: "c-100", LeadID: "l-100"}
	h.notifier.result = notify.Result{Channels: []notify.Channel{notify.ChannelSMS, notify.ChannelEmail}}

	_, resp := h.call(t, fnCreateBuyerLead, buyerArgs())

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "Perfect, Pat! Sally or one of our agents will call you to discuss available properties. "+
		"You'll also get a text.", spoken(t, resp))
	assert.Equal(t, "c-100", resp.Data["contact_id"])
	assert.Equal(t, false, resp.Data["existing_contact"])
	assert.Equal(t, true, resp.Data["confirmation_sent"])
	assert.Equal(t, true, resp.Data["office_notified"])

	require.Len(t, h.crm.created, 1)
	lead := h.crm.created[0]
	assert.Equal(t, "+13525550199", lead.Contact.Phone)
	assert.Equal(t, crm.ContactBuyer, lead.Contact.Type)
	require.NotNil(t, lead.Buyer)
	assert.Equal(t, float64(250000), lead.Buyer.MinPrice)
	assert.Equal(t, float64(400000), lead.Buyer.MaxPrice)
	assert.True(t, lead.Buyer.PreApproved)

	assert.Equal(t, []string{"AI Concierge - Buyer Lead Details"}, h.crm.notes)
	require.Len(t, h.crm.calls, 1)
	assert.Equal(t, "inbound", h.crm.calls[0].Direction)
	assert.Contains(t, h.crm.calls[0].Notes, "Price range: $250,000 - $400,000.")

	require.Len(t, h.notifier.sms, 1)
	assert.Equal(t, "+13525550199", h.notifier.sms[0].to)
	assert.Contains(t, h.notifier.sms[0].body, "- Sally Love Real Estate")

	require.Len(t, h.notifier.messages, 1)
	office := h.notifier.messages[0]
	assert.Equal(t, notify.TypeBoth, office.Type)
	assert.Equal(t, "+13525550100", office.Phone)
	assert.Contains(t, office.Body, "NEW BUYER LEAD from AI Agent")
	assert.Contains(t, office.Body, "Contact ID: c-100")
}

func TestCreateBuyerLead_ExistingContactIsUpdated(t *testing.T) {
	h := newHarness(t, nil)
	h.crm.contacts = []crm.Contact{{ID: "c-7", FirstName: "Pat"}}

	_, resp := h.call(t, fnCreateBuyerLead, buyerArgs())

	require.True(t, resp.Success)
	assert.Equal(t, []crm.ID{"c-7"}, h.crm.updated)
	assert.Empty(t, h.crm.created)
	assert.Equal(t, "c-7", resp.Data["contact_id"])
	assert.Equal(t, true, resp.Data["existing_contact"])
}

func TestCreateBuyerLead_FailedUpdateFallsBackToCreate(t *testing.T) {
	h := newHarness(t, nil)
	h.crm.contacts = []crm.Contact{{ID: "c-7"}}
	h.crm.updateErr = errCRMDown
	h.crm.createRes = crm.LeadResult{ContactID: "c-8"}

	_, resp := h.call(t, fnCreateBuyerLead, buyerArgs())

	require.True(t, resp.Success)
	assert.Len(t, h.crm.created, 1)
	assert.Equal(t, "c-8", resp.Data["contact_id"])
}

func TestCreateBuyerLead_Duplicate(t *testing.T) {
	h := newHarness(t, nil)
	h.crm.createErr = &crm.APIError{Service: "crm", Operation: "create_contact", StatusCode: 422, Body: "Contact already exists"}

	_, resp := h.call(t, fnCreateBuyerLead, buyerArgs())

	require.True(t, resp.Success)
	assert.Equal(t, "Perfect, Pat! We have your information on file. Sally or one of our agents will call you "+
		"to discuss available properties. You'll also get a text.", spoken(t, resp))
	assert.Empty(t, h.notifier.sms, "no confirmation for a duplicate")
}

func TestCreateBuyerLead_CRMFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.crm.createErr = errCRMDown

	_, resp := h.call(t, fnCreateBuyerLead, buyerArgs())

	assert.False(t, resp.Success)
	assert.Equal(t, buyerSaveFailedText, spoken(t, resp))
	assert.Empty(t, h.notifier.sms)
}

func TestCreateBuyerLead_InvalidEmailDropped(t *testing.T) {
	h := newHarness(t, nil)
	args := buyerArgs()
	args["email"] = "pat at example"

	_, resp := h.call(t, fnCreateBuyerLead, args)

	require.True(t, resp.Success)
	require.Len(t, h.crm.created, 1)
	assert.Empty(t, h.crm.created[0].Contact.Email)
}

func TestCreateBuyerLead_OfficeNotificationsDisabled(t *testing.T) {
	h := newHarness(t, nil)
	h.cfg.Notifications.Enabled = false

	_, resp := h.call(t, fnCreateBuyerLead, buyerArgs())

	require.True(t, resp.Success)
	assert.Equal(t, false, resp.Data["office_notified"])
	assert.Empty(t, h.notifier.messages)
}

// =============================================================================
// create_seller_lead
// =============================================================================

func sellerArgs() map[string]any {
	return map[string]any{
		"first_name":         "Lee",
		"last_name":          "Seller",
		"phone":              "352-555-0123",
		"property_address":   "1205 Bramble Way",
		"city":               "The Villages",
		"bedrooms":           3,
		"bathrooms":          2,
		"square_feet":        "1,850",
		"timeframe":          "6 month",
		"estimated_value":    "$325,000",
		"currently_occupied": true,
	}
}

func TestCreateSellerLead_MissingFields(t *testing.T) {
	h := newHarness(t, nil)
	_, resp := h.call(t, fnCreateSellerLead, map[string]any{"first_name": "Lee", "phone": "352-555-0123"})

	assert.False(t, resp.Success)
	assert.Equal(t, "I just need your property address and city before I can save your information.", spoken(t, resp))
	assert.Equal(t, []any{"property_address", "city"}, resp.Data["missing"])
}

func TestCreateSellerLead_NewContact(t *testing.T) {
	h := newHarness(t, nil)
	h.crm.createRes = crm.LeadResult{ContactID: "c-200"}

	_, resp := h.call(t, fnCreateSellerLead, sellerArgs())

	require.True(t, resp.Success, resp.Error)
	assert.Equal(t, "Thank you, Lee! I've recorded your information about the property at 1205 Bramble Way, "+
		"The Villages. Your 3 bedroom, 2 bathroom property and your 6 month timeframe have been noted. "+
		"One of our listing specialists will contact you shortly to discuss a market analysis and the next steps. "+
		"I've sent you a confirmation text. Is there anything else you'd like me to note for the agent?", spoken(t, resp))

	require.Len(t, h.crm.created, 1)
	lead := h.crm.created[0]
	require.NotNil(t, lead.Seller)
	assert.Equal(t, "FL", lead.Seller.State)
	assert.Equal(t, 1850, lead.Seller.SquareFeet)
	assert.Equal(t, float64(325000), lead.Seller.EstimatedValue)
	require.NotNil(t, lead.Seller.CurrentlyOccupied)
	assert.True(t, *lead.Seller.CurrentlyOccupied)
	assert.Nil(t, lead.Seller.PreviouslyListed)
	assert.Equal(t, []string{"voice_agent", "seller_lead"}, lead.Contact.Tags)

	require.Len(t, h.notifier.messages, 1)
	assert.Contains(t, h.notifier.messages[0].Body, "Estimated Value: $325,000")
}

func TestCreateSellerLead_Duplicate(t *testing.T) {
	h := newHarness(t, nil)
	h.crm.createErr = &crm.APIError{Service: "crm", Operation: "create_contact", StatusCode: 409, Body: "duplicate contact"}

	_, resp := h.call(t, fnCreateSellerLead, sellerArgs())

	require.True(t, resp.Success)
	assert.Equal(t, "Thank you, Lee! We have your information on file. One of our listing specialists will "+
		"contact you shortly to discuss your property at 1205 Bramble Way.", spoken(t, resp))
}

func TestSellerMessage(t *testing.T) {
	got := sellerMessage("Lee", &crm.SellerLead{PropertyAddress: "1 Elm St", City: "Ocala", Timeframe: "ASAP"})
	assert.Contains(t, got, "at 1 Elm St, Ocala. Your ASAP timeframe has been noted. One of our")

	got = sellerMessage("Lee", &crm.SellerLead{PropertyAddress: "1 Elm St", City: "Ocala"})
	assert.Contains(t, got, "at 1 Elm St, Ocala. One of our listing specialists")
}

func TestBuyerNote(t *testing.T) {
	note := buyerNote(&crm.BuyerLead{
		LocationPreference: "The Villages",
		MinPrice:           250000,
		MaxPrice:           400000,
		Bedrooms:           3,
		Bathrooms:          2.5,
		PreApproved:        true,
	}, "likes golf")

	assert.Contains(t, note, "- Location: The Villages\n")
	assert.Contains(t, note, "- Price Range: $250,000 - $400,000\n")
	assert.Contains(t, note, "- Bedrooms: 3+\n")
	assert.Contains(t, note, "- Bathrooms: 2.5+\n")
	assert.Contains(t, note, "- Pre-approved: Yes\n")
	assert.Contains(t, note, "Additional Notes:\nlikes golf")
	assert.NotContains(t, note, "Type:")
}

// =============================================================================
// send_notification
// =============================================================================

func TestSendNotification_InvalidType(t *testing.T) {
	h := newHarness(t, nil)
	_, resp := h.call(t, fnSendNotification, map[string]any{"message": "hi", "notification_type": "fax"})

	assert.False(t, resp.Success)
	assert.Equal(t, "Failed to send notification: Invalid notification_type 'fax'. Must be 'sms', 'email', or 'both'.", resp.Error)
	assert.Equal(t, "Notification delivery failed", resp.Message)
	assert.Empty(t, h.notifier.messages)
}

func TestSendNotification_EmptyMessage(t *testing.T) {
	h := newHarness(t, nil)
	_, resp := h.call(t, fnSendNotification, map[string]any{"recipient_phone": "3525550199"})

	assert.False(t, resp.Success)
	assert.Empty(t, h.notifier.messages)
}

func TestSendNotification_Delivered(t *testing.T) {
	h := newHarness(t, nil)
	h.notifier.result = notify.Result{
		Channels: []notify.Channel{notify.ChannelSMS},
		Errors:   []string{"Email: smtp refused"},
		Phone:    "+13525550199",
		Email:    "pat@example.com",
	}

	_, resp := h.call(t, fnSendNotification, map[string]any{
		"recipient_phone":   "352.555.0199",
		"recipient_email":   "pat@example.com",
		"message":           "Your showing is confirmed",
		"notification_type": "both",
		"subject":           "Showing",
	})

	require.True(t, resp.Success)
	assert.Equal(t, "Notification sent successfully via sms. However, some channels failed: Email: smtp refused", resp.Message)
	assert.Equal(t, []any{"sms"}, resp.Data["channels"])
	assert.Equal(t, []any{"Email: smtp refused"}, resp.Data["errors"])

	require.Len(t, h.notifier.messages, 1)
	m := h.notifier.messages[0]
	assert.Equal(t, notify.TypeBoth, m.Type)
	assert.Equal(t, "+13525550199", m.Phone)
	assert.Equal(t, "Showing", m.Subject)
}

func TestSendNotification_AllChannelsFailed(t *testing.T) {
	h := newHarness(t, nil)
	h.notifier.result = notify.Result{Errors: []string{"SMS: twilio down"}}

	_, resp := h.call(t, fnSendNotification, map[string]any{"recipient_phone": "3525550199", "message": "hi"})

	assert.False(t, resp.Success)
	assert.Equal(t, "Failed to send notification: SMS: twilio down", spoken(t, resp))
}
