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
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/crm"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/roster"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/speech"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/vapi"
)

const (
	noCriteriaMessage = "I need at least one search criteria to look up properties. Please provide an address, " +
		"city, ZIP code, MLS number, or property preferences like price range or number of bedrooms."
	listingsUnavailableMessage = "I'm having trouble accessing the property listings right now. " +
		"Could you try again in a moment?"
	noMatchMessage = "No properties found matching your criteria. Would you like to adjust your search, " +
		"or should I connect you with an agent who can help?"
	needLocationMessage = "No properties found. Do you have the city and zip code, or an MLS number?"

	noAgentsMessage          = "I couldn't find any available agents matching that criteria. Let me connect you with our office."
	directoryUnavailableText = "I'm having trouble accessing our agent directory. Let me transfer you to our office."
)

// =============================================================================
// check_property
// =============================================================================

type checkPropertyArgs struct {
	Address      vapi.Text   `json:"address"`
	City         vapi.Text   `json:"city"`
	State        vapi.Text   `json:"state"`
	ZipCode      vapi.Text   `json:"zip_code"`
	MLSNumber    vapi.Text   `json:"mls_number"`
	AgentName    vapi.Text   `json:"agent_name"`
	PropertyType vapi.Text   `json:"property_type"`
	MinPrice     vapi.Number `json:"min_price"`
	MaxPrice     vapi.Number `json:"max_price"`
	Bedrooms     vapi.Number `json:"bedrooms"`
	Bathrooms    vapi.Number `json:"bathrooms"`
}

// query builds the listing search. No status filter is applied so pending
// and sold listings can still be described with a note.
func (a checkPropertyArgs) query() crm.ListingQuery {
	state := a.State.String()
	if state == "" {
		state = "FL"
	}
	return crm.ListingQuery{
		Address:      a.Address.String(),
		City:         a.City.String(),
		State:        state,
		Zip:          a.ZipCode.String(),
		MLSNumber:    a.MLSNumber.String(),
		AgentName:    a.AgentName.String(),
		PropertyType: a.PropertyType.String(),
		MinPrice:     float64(a.MinPrice),
		MaxPrice:     float64(a.MaxPrice),
		Bedrooms:     float64(a.Bedrooms),
		Bathrooms:    float64(a.Bathrooms),
		Limit:        crm.DefaultListingLimit,
	}
}

// searchParams echoes the criteria that were set.
func searchParams(q crm.ListingQuery) map[string]any {
	out := map[string]any{}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	setNum := func(k string, v float64) {
		if v > 0 {
			out[k] = v
		}
	}
	set("address", q.Address)
	set("city", q.City)
	set("state", q.State)
	set("zip_code", q.Zip)
	set("mls_number", q.MLSNumber)
	set("agent_name", q.AgentName)
	set("property_type", q.PropertyType)
	setNum("min_price", q.MinPrice)
	setNum("max_price", q.MaxPrice)
	setNum("bedrooms", q.Bedrooms)
	setNum("bathrooms", q.Bathrooms)
	return out
}

// HandleCheckProperty handles POST /functions/check_property.
//
// Description:
//
//	Searches listings by address, city, ZIP, MLS number, listing agent or
//	preferences and describes the result for speech. For a single listing
//	the listing agent is looked up in the roster; the roster's phone wins
//	over the feed's, and an agent missing from the roster is replaced by
//	any roster agent so a transfer always reaches the brokerage.
//
// Response:
//
//	200 OK: FunctionResponse with data.listings, data.count and, for a
//	single result, data.listing_agent, data.transfer_phone and data.broker.
func (h *Handlers) HandleCheckProperty(c *gin.Context) {
	logger := h.requestLogger(c, "HandleCheckProperty")
	tc, ok := h.parseFunction(c, logger)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var args checkPropertyArgs
	if err := tc.Decode(&args); err != nil {
		logger.Warn("bad check_property arguments", slog.String("error", err.Error()))
	}
	q := args.query()

	if q.Empty() {
		h.reply(c, fnCheckProperty, tc, FunctionResponse{
			Message: noCriteriaMessage,
			Error:   "No search criteria provided",
			Data:    map[string]any{"search_params": map[string]any{}},
			spoken:  noCriteriaMessage,
		})
		return
	}
	if h.crm == nil {
		h.reply(c, fnCheckProperty, tc, FunctionResponse{Error: listingsUnavailableMessage, Message: "crm not configured"})
		return
	}

	listings, err := h.crm.SearchListings(ctx, q)
	if err != nil {
		logger.Error("listing search failed", slog.String("error", err.Error()))
		h.reply(c, fnCheckProperty, tc, FunctionResponse{Error: listingsUnavailableMessage, Message: err.Error()})
		return
	}
	logger.Info("listing search finished", slog.Int("count", len(listings)))

	if len(listings) == 0 {
		msg := needLocationMessage
		if q.Zip != "" || (q.City != "" && q.Address != "") {
			msg = noMatchMessage
		}
		h.reply(c, fnCheckProperty, tc, FunctionResponse{
			Success: true,
			Message: msg,
			Data:    map[string]any{"count": 0, "search_params": searchParams(q)},
		})
		return
	}

	data := map[string]any{
		"count":         len(listings),
		"listings":      listings,
		"search_params": searchParams(q),
	}
	var msg string
	if len(listings) == 1 {
		l := listings[0]
		msg = describeListing(l)
		h.addListingAgent(ctx, l, data, logger)
	} else {
		low, high := priceRange(listings)
		msg = fmt.Sprintf("I found %d properties matching your criteria. The prices range from %s to %s. "+
			"Would you like me to tell you about each one?", len(listings), speech.Price(low), speech.Price(high))
	}
	h.reply(c, fnCheckProperty, tc, FunctionResponse{Success: true, Message: msg, Data: data})
}

// describeListing is the spoken summary of one listing.
func describeListing(l crm.Listing) string {
	propType := l.PropertyType
	if propType == "" {
		propType = "home"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "I found a property at %s, %s. It's a %s bedroom, %s bathroom %s listed at %s.",
		speech.Address(l.Address), l.City, formatCount(l.Bedrooms), formatCount(l.Bathrooms), propType, speech.Price(l.Price))

	switch strings.ToLower(strings.TrimSpace(l.Status)) {
	case "pending", "under contract":
		b.WriteString(" This property is currently under contract, but they may be accepting backup offers.")
	case "sold":
		b.WriteString(" I should note that this property has been sold.")
	}
	if l.MLSNumber != "" {
		fmt.Fprintf(&b, " The MLS number is %s.", l.MLSNumber)
	}

	agent := strings.TrimSpace(l.AgentName)
	switch {
	case agent != "" && strings.TrimSpace(l.AgentPhone) != "":
		fmt.Fprintf(&b, " The listing agent is %s. Would you like me to connect you with %s?", agent, agent)
	case agent != "":
		fmt.Fprintf(&b, " The listing agent is %s. Would you like more details about this property?", agent)
	default:
		b.WriteString(" Would you like more details about this property?")
	}
	return b.String()
}

// addListingAgent resolves the listing agent through the roster and adds
// transfer details to data.
func (h *Handlers) addListingAgent(ctx context.Context, l crm.Listing, data map[string]any, logger *slog.Logger) {
	feedName := strings.TrimSpace(l.AgentName)
	feedPhone := strings.TrimSpace(l.AgentPhone)
	name, email, transferPhone := feedName, l.AgentEmail, ""

	if a, ok := h.lookupRoster(ctx, feedName); ok {
		name, transferPhone = a.Name, a.ContactPhone()
		if a.Email != "" {
			email = a.Email
		}
	} else if h.roster != nil {
		if a, ok := h.roster.AnyAgent(ctx); ok {
			if feedName != "" {
				logger.Info("listing agent not in roster, using fallback agent",
					slog.String("listing_agent", feedName),
					slog.String("fallback_agent", a.Name))
			}
			name, transferPhone, email = a.Name, a.ContactPhone(), a.Email
		}
	}

	if transferPhone == "" {
		transferPhone = feedPhone
	}
	if name != "" {
		data["listing_agent"] = map[string]any{
			"name":      name,
			"phone":     transferPhone,
			"email":     email,
			"kvcore_id": l.AgentKvcoreID,
		}
		if transferPhone != "" {
			data["transfer_phone"] = transferPhone
		}
	}
	if l.BrokerPhone != "" {
		broker := l.BrokerageName
		if broker == "" {
			broker = h.businessName()
		}
		data["broker"] = map[string]any{"name": broker, "phone": l.BrokerPhone, "email": l.BrokerEmail}
	}
}

func priceRange(listings []crm.Listing) (low, high float64) {
	for i, l := range listings {
		if i == 0 || l.Price < low {
			low = l.Price
		}
		if l.Price > high {
			high = l.Price
		}
	}
	return low, high
}

// formatCount prints 3 as "3" and 2.5 as "2.5".
func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// =============================================================================
// get_agent_info
// =============================================================================

type agentInfoArgs struct {
	AgentName vapi.Text `json:"agent_name"`
	AgentID   vapi.Text `json:"agent_id"`
	Specialty vapi.Text `json:"specialty"`
	City      vapi.Text `json:"city"`
}

// agentInfo is the data shape returned for each agent.
type agentInfo struct {
	Name            string   `json:"name"`
	Phone           string   `json:"phone,omitempty"`
	Email           string   `json:"email,omitempty"`
	Title           string   `json:"title,omitempty"`
	ID              string   `json:"id,omitempty"`
	Specialties     []string `json:"specialties,omitempty"`
	ServiceAreas    []string `json:"service_areas,omitempty"`
	YearsExperience int      `json:"years_experience,omitempty"`
	Source          string   `json:"source"`
}

// HandleGetAgentInfo handles POST /functions/get_agent_info.
//
// Description:
//
//	A requested name is looked up in the roster first; the roster is the
//	authority for phone numbers. Otherwise the CRM is searched by agent ID,
//	or by specialty and city. CRM agents that are in the roster get the
//	roster's phone.
func (h *Handlers) HandleGetAgentInfo(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGetAgentInfo")
	tc, ok := h.parseFunction(c, logger)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var args agentInfoArgs
	if err := tc.Decode(&args); err != nil {
		logger.Warn("bad get_agent_info arguments", slog.String("error", err.Error()))
	}
	name := args.AgentName.String()

	if a, ok := h.lookupRoster(ctx, name); ok {
		info := agentInfo{Name: a.Name, Phone: a.ContactPhone(), Email: a.Email, Title: a.Title, Source: "roster"}
		h.reply(c, fnGetAgentInfo, tc, FunctionResponse{
			Success: true,
			Message: fmt.Sprintf("I have information about %s. Would you like me to connect you with them?", a.Name),
			Data:    map[string]any{"count": 1, "agents": []agentInfo{info}},
		})
		return
	}

	if h.crm == nil {
		h.reply(c, fnGetAgentInfo, tc, FunctionResponse{Error: directoryUnavailableText, Message: "crm not configured"})
		return
	}

	var (
		agents []crm.Agent
		err    error
	)
	if id := args.AgentID.String(); id != "" {
		var a crm.Agent
		if a, err = h.crm.GetAgent(ctx, id); err == nil {
			agents = []crm.Agent{a}
		}
	} else {
		agents, err = h.crm.ListAgents(ctx, crm.AgentFilter{Specialty: args.Specialty.String(), City: args.City.String()})
		agents = availableAgents(agents, name)
	}
	if err != nil {
		logger.Error("agent lookup failed", slog.String("error", err.Error()))
		h.reply(c, fnGetAgentInfo, tc, FunctionResponse{Error: directoryUnavailableText, Message: err.Error()})
		return
	}
	if len(agents) == 0 {
		h.reply(c, fnGetAgentInfo, tc, FunctionResponse{
			Success: true,
			Message: noAgentsMessage,
			Data:    map[string]any{"count": 0},
		})
		return
	}

	infos := make([]agentInfo, 0, len(agents))
	for _, a := range agents {
		info := agentInfo{
			Name:            a.Name(),
			Phone:           a.ContactPhone(),
			Email:           a.Email,
			ID:              string(a.ID),
			Specialties:     a.Specialties,
			ServiceAreas:    a.ServiceAreas,
			YearsExperience: a.YearsExperience,
			Source:          "crm",
		}
		if ra, ok := h.lookupRoster(ctx, a.Name()); ok {
			info.Phone = ra.ContactPhone()
		}
		infos = append(infos, info)
	}

	msg := fmt.Sprintf("I found %d available agents. Would you like me to tell you about each one, "+
		"or connect you with the first available agent?", len(agents))
	if len(agents) == 1 {
		msg = describeAgent(agents[0])
	}
	h.reply(c, fnGetAgentInfo, tc, FunctionResponse{
		Success: true,
		Message: msg,
		Data:    map[string]any{"count": len(infos), "agents": infos},
	})
}

// availableAgents drops agents marked unavailable and, when name is set,
// those whose name does not contain it.
func availableAgents(agents []crm.Agent, name string) []crm.Agent {
	name = strings.ToLower(name)
	var out []crm.Agent
	for _, a := range agents {
		if a.Available != nil && !*a.Available {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(a.Name()), name) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func describeAgent(a crm.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I have information about %s.", a.Name())
	if len(a.Specialties) > 0 {
		fmt.Fprintf(&b, " They specialize in %s.", strings.Join(firstN(a.Specialties, 2), ", "))
	}
	if len(a.ServiceAreas) > 0 {
		fmt.Fprintf(&b, " They service the %s area.", strings.Join(firstN(a.ServiceAreas, 2), ", "))
	}
	if a.YearsExperience > 0 {
		fmt.Fprintf(&b, " They have %d years of experience.", a.YearsExperience)
	}
	b.WriteString(" Would you like me to connect you with them?")
	return b.String()
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// lookupRoster finds an agent by spoken name. An empty name never matches.
func (h *Handlers) lookupRoster(ctx context.Context, name string) (roster.Agent, bool) {
	if strings.TrimSpace(name) == "" || h.roster == nil {
		return roster.Agent{}, false
	}
	return h.roster.FindByName(ctx, name)
}
