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
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/go-openapi/strfmt"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/crm"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/notify"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/phone"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/vapi"
)

const (
	leadSource = "AI Concierge"

	buyerSaveFailedText = "I'm having trouble saving your information right now. " +
		"Let me take your phone number and have an agent call you back to discuss your needs."
	sellerSaveFailedText = "I'm having trouble saving your information right now. " +
		"Let me take your phone number and have a listing specialist call you back."
)

// =============================================================================
// Shared lead flow
// =============================================================================

// leadIdentity is validated before anything is written to the CRM.
type leadIdentity struct {
	FirstName string `json:"first_name" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
}

// sellerIdentity adds the property a seller lead is about.
type sellerIdentity struct {
	FirstName       string `json:"first_name" validate:"required"`
	Phone           string `json:"phone" validate:"required"`
	PropertyAddress string `json:"property_address" validate:"required"`
	City            string `json:"city" validate:"required"`
}

// leadPlan is everything saveLead writes for one caller.
type leadPlan struct {
	lead crm.Lead
	// updateNotes replaces the notes of an existing contact.
	updateNotes string
	callNotes   string
	noteTitle   string
	noteBody    string
}

// leadOutcome reports what saveLead did.
type leadOutcome struct {
	ContactID crm.ID
	LeadID    crm.ID
	Existing  bool
	Duplicate bool
}

// saveLead writes a lead with duplicate handling.
//
// Description:
//
//	An existing contact found by phone or email is updated instead of
//	creating another; if the update fails a new lead is created. A
//	duplicate rejection from the CRM resolves to the existing contact.
//	The call log and note are best effort.
//
// Outputs:
//   - leadOutcome: ContactID may be empty when the CRM returned none.
//   - error: Only when the lead could not be saved at all.
func (h *Handlers) saveLead(ctx context.Context, p leadPlan, logger *slog.Logger) (leadOutcome, error) {
	var out leadOutcome
	ct := p.lead.Contact
	q := crm.ContactQuery{Phone: ct.Phone, Email: ct.Email}

	existing, err := h.crm.SearchContacts(ctx, q)
	if err != nil {
		logger.Warn("contact search failed, creating lead", slog.String("error", err.Error()))
	}
	if len(existing) > 0 && existing[0].ID != "" {
		id := existing[0].ID
		fields := map[string]any{}
		if p.updateNotes != "" {
			fields["notes"] = p.updateNotes
		}
		if err := h.crm.UpdateContact(ctx, id, fields); err != nil {
			logger.Error("updating existing contact failed, creating lead",
				slog.String("contact_id", string(id)), slog.String("error", err.Error()))
		} else {
			out.ContactID, out.Existing = id, true
		}
	}

	if out.ContactID == "" {
		res, err := h.crm.CreateLead(ctx, p.lead)
		switch {
		case crm.IsDuplicate(err):
			logger.Info("duplicate contact rejected by crm, resolving existing record")
			out.Duplicate = true
			if again, serr := h.crm.SearchContacts(ctx, q); serr == nil && len(again) > 0 {
				out.ContactID = again[0].ID
			}
			return out, nil
		case err != nil:
			return out, err
		}
		out.ContactID, out.LeadID = res.ContactID, res.LeadID
	}

	if out.ContactID == "" {
		logger.Error("crm returned no contact id, skipping call log and note")
		return out, nil
	}
	if err := h.crm.LogCall(ctx, out.ContactID, crm.CallLog{
		Direction: "inbound",
		Result:    crm.CallResultContacted,
		Notes:     p.callNotes,
	}); err != nil {
		logger.Warn("call log failed", slog.String("contact_id", string(out.ContactID)), slog.String("error", err.Error()))
	}
	if err := h.crm.AddNote(ctx, out.ContactID, p.noteTitle, p.noteBody); err != nil {
		logger.Warn("note failed", slog.String("contact_id", string(out.ContactID)), slog.String("error", err.Error()))
	}
	return out, nil
}

// confirmCaller texts the caller. Failures are logged only.
func (h *Handlers) confirmCaller(ctx context.Context, to, body string, logger *slog.Logger) bool {
	if h.notifier == nil {
		return false
	}
	if err := h.notifier.SendSMS(ctx, to, body); err != nil {
		logger.Warn("confirmation sms failed", slog.String("error", err.Error()))
		return false
	}
	return true
}

// notifyOffice sends a new-lead alert to the escalation contacts when lead
// notifications are enabled.
func (h *Handlers) notifyOffice(ctx context.Context, subject, body string, logger *slog.Logger) bool {
	if h.cfg == nil || !h.cfg.Notifications.Enabled || h.notifier == nil {
		return false
	}
	var phoneNumber, email string
	if h.escalations != nil {
		phoneNumber, email = h.escalations.Recipients()
	} else {
		phoneNumber, email = h.cfg.Notifications.EscalationPhone(), h.cfg.Notifications.EscalationEmail()
	}
	typ := notify.TypeSMS
	switch {
	case phoneNumber == "" && email == "":
		logger.Warn("no office notification contact configured")
		return false
	case phoneNumber == "":
		typ = notify.TypeEmail
	case email != "":
		typ = notify.TypeBoth
	}
	res := h.notifier.Send(ctx, notify.Message{Type: typ, Phone: phoneNumber, Email: email, Subject: subject, Body: body})
	return res.Success()
}

// normalizeContact formats the phone as E.164 when possible and drops an
// email address that is not one.
func normalizeContact(rawPhone, rawEmail string, logger *slog.Logger) (string, string) {
	p := rawPhone
	if e164, ok := phone.ToE164(rawPhone); ok {
		p = e164
	} else {
		logger.Warn("lead phone not a complete US number, saving as given")
	}
	email := rawEmail
	if email != "" && !strfmt.IsEmail(email) {
		logger.Warn("lead email invalid, dropped")
		email = ""
	}
	return p, email
}

// dollars formats 250000 as "$250,000".
func dollars(v float64) string {
	return "$" + humanize.Comma(int64(v))
}

func priceSpan(low, high float64) string {
	return dollars(low) + " - " + dollars(high)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// =============================================================================
// create_buyer_lead
// =============================================================================

type buyerLeadArgs struct {
	FirstName           vapi.Text   `json:"first_name"`
	LastName            vapi.Text   `json:"last_name"`
	Phone               vapi.Text   `json:"phone"`
	Email               vapi.Text   `json:"email"`
	PropertyType        vapi.Text   `json:"property_type"`
	LocationPreference  vapi.Text   `json:"location_preference"`
	MinPrice            vapi.Number `json:"min_price"`
	MaxPrice            vapi.Number `json:"max_price"`
	Bedrooms            vapi.Number `json:"bedrooms"`
	Bathrooms           vapi.Number `json:"bathrooms"`
	Timeframe           vapi.Text   `json:"timeframe"`
	PreApproved         vapi.Flag   `json:"pre_approved"`
	SpecialRequirements vapi.Text   `json:"special_requirements"`
	BuyerExperience     vapi.Text   `json:"buyer_experience"`
	PaymentMethod       vapi.Text   `json:"payment_method"`
	Notes               vapi.Text   `json:"notes"`
}

func (a buyerLeadArgs) buyer() *crm.BuyerLead {
	return &crm.BuyerLead{
		PropertyType:        a.PropertyType.String(),
		LocationPreference:  a.LocationPreference.String(),
		MinPrice:            float64(a.MinPrice),
		MaxPrice:            float64(a.MaxPrice),
		Bedrooms:            int(a.Bedrooms),
		Bathrooms:           float64(a.Bathrooms),
		Timeframe:           a.Timeframe.String(),
		PreApproved:         bool(a.PreApproved),
		SpecialRequirements: a.SpecialRequirements.String(),
		BuyerExperience:     a.BuyerExperience.String(),
		PaymentMethod:       a.PaymentMethod.String(),
		Status:              crm.LeadNew,
	}
}

func buyerNote(b *crm.BuyerLead, notes string) string {
	var s strings.Builder
	s.WriteString("Buyer Lead from AI Voice Agent\n\nProperty Preferences:\n")
	line := func(label, v string) {
		if v != "" {
			fmt.Fprintf(&s, "- %s: %s\n", label, v)
		}
	}
	line("Type", b.PropertyType)
	line("Location", b.LocationPreference)
	if b.MinPrice > 0 || b.MaxPrice > 0 {
		line("Price Range", priceSpan(b.MinPrice, b.MaxPrice))
	}
	if b.Bedrooms > 0 {
		line("Bedrooms", fmt.Sprintf("%d+", b.Bedrooms))
	}
	if b.Bathrooms > 0 {
		line("Bathrooms", formatCount(b.Bathrooms)+"+")
	}
	line("Timeline", b.Timeframe)
	line("Special Requirements", b.SpecialRequirements)
	line("Buyer Experience", b.BuyerExperience)
	line("Payment Method", b.PaymentMethod)
	if b.PreApproved {
		line("Pre-approved", "Yes")
	}
	if notes != "" {
		s.WriteString("\nAdditional Notes:\n" + notes)
	}
	return s.String()
}

func buyerOfficeAlert(ct crm.Contact, b *crm.BuyerLead, contactID crm.ID) string {
	bedsBaths := func(v float64) string {
		if v <= 0 {
			return "Any"
		}
		return formatCount(v)
	}
	var s strings.Builder
	s.WriteString("NEW BUYER LEAD from AI Agent\n\n")
	fmt.Fprintf(&s, "Name: %s %s\n", ct.FirstName, ct.LastName)
	fmt.Fprintf(&s, "Phone: %s\n", ct.Phone)
	fmt.Fprintf(&s, "Email: %s\n", orDefault(ct.Email, "Not provided"))
	fmt.Fprintf(&s, "Location: %s\n", orDefault(b.LocationPreference, "Not specified"))
	fmt.Fprintf(&s, "Price Range: %s\n", priceSpan(b.MinPrice, b.MaxPrice))
	fmt.Fprintf(&s, "Timeline: %s\n", orDefault(b.Timeframe, "Not specified"))
	fmt.Fprintf(&s, "Property Type: %s\n", orDefault(b.PropertyType, "Any"))
	fmt.Fprintf(&s, "Beds/Baths: %s bed / %s bath\n", bedsBaths(float64(b.Bedrooms)), bedsBaths(b.Bathrooms))
	if b.SpecialRequirements != "" {
		fmt.Fprintf(&s, "Special Requirements: %s\n", b.SpecialRequirements)
	}
	if b.BuyerExperience != "" {
		fmt.Fprintf(&s, "Experience: %s\n", b.BuyerExperience)
	}
	if b.PaymentMethod != "" {
		fmt.Fprintf(&s, "Payment: %s\n", b.PaymentMethod)
	}
	if b.PreApproved {
		s.WriteString("Pre-approved: Yes\n")
	}
	fmt.Fprintf(&s, "\nContact ID: %s\nAction: Follow up ASAP", orDefault(string(contactID), "Unknown"))
	return s.String()
}

// HandleCreateBuyerLead handles POST /functions/create_buyer_lead.
//
// Description:
//
//	Saves the caller as a buyer lead, logs the call with a detail note,
//	texts the caller a confirmation and alerts the office. Only the CRM
//	save can fail the request; texts and alerts are best effort.
func (h *Handlers) HandleCreateBuyerLead(c *gin.Context) {
	logger := h.requestLogger(c, "HandleCreateBuyerLead")
	tc, ok := h.parseFunction(c, logger)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var args buyerLeadArgs
	if err := tc.Decode(&args); err != nil {
		logger.Warn("bad create_buyer_lead arguments", slog.String("error", err.Error()))
	}
	first := args.FirstName.String()
	if err := h.validate.Struct(leadIdentity{FirstName: first, Phone: args.Phone.String()}); err != nil {
		missing := missingFields(err)
		h.reply(c, fnCreateBuyerLead, tc, FunctionResponse{
			Error:   fmt.Sprintf("I just need your %s before I can save your information.", spokenFieldList(missing)),
			Message: "missing required fields",
			Data:    map[string]any{"missing": missing},
		})
		return
	}
	if h.crm == nil {
		h.reply(c, fnCreateBuyerLead, tc, FunctionResponse{Error: buyerSaveFailedText, Message: "crm not configured"})
		return
	}

	callerPhone, email := normalizeContact(args.Phone.String(), args.Email.String(), logger)
	notes := args.Notes.String()
	contact := crm.Contact{
		FirstName: first,
		LastName:  args.LastName.String(),
		Phone:     callerPhone,
		Email:     email,
		Type:      crm.ContactBuyer,
		Tags:      []string{"voice_agent", "buyer_lead"},
		Source:    leadSource,
		Notes:     notes,
	}
	buyer := args.buyer()

	plan := leadPlan{
		lead:      crm.Lead{Contact: contact, Buyer: buyer},
		noteTitle: "AI Concierge - Buyer Lead Details",
		noteBody:  buyerNote(buyer, notes),
		callNotes: fmt.Sprintf("Initial buyer inquiry call. Looking for %s in %s. Price range: %s.",
			orDefault(buyer.PropertyType, "property"), orDefault(buyer.LocationPreference, "The Villages"),
			priceSpan(buyer.MinPrice, buyer.MaxPrice)),
	}
	if buyer.LocationPreference != "" {
		plan.updateNotes = fmt.Sprintf("Updated buyer preferences: Location: %s, Price: %s, Timeline: %s",
			buyer.LocationPreference, priceSpan(buyer.MinPrice, buyer.MaxPrice), orDefault(buyer.Timeframe, "Not specified"))
	}

	out, err := h.saveLead(ctx, plan, logger)
	if err != nil {
		logger.Error("buyer lead not saved", slog.String("error", err.Error()))
		h.reply(c, fnCreateBuyerLead, tc, FunctionResponse{Error: buyerSaveFailedText, Message: err.Error()})
		return
	}
	logger.Info("buyer lead saved",
		slog.String("contact_id", string(out.ContactID)),
		slog.Bool("existing", out.Existing),
		slog.Bool("duplicate", out.Duplicate))

	if out.Duplicate {
		h.reply(c, fnCreateBuyerLead, tc, FunctionResponse{
			Success: true,
			Message: fmt.Sprintf("Perfect, %s! We have your information on file. Sally or one of our agents will call you "+
				"to discuss available properties. You'll also get a text.", first),
			Data: map[string]any{"contact_id": out.ContactID, "note": "Duplicate contact - existing record in CRM"},
		})
		return
	}

	sms := h.confirmCaller(ctx, callerPhone, fmt.Sprintf("Hi %s! Thank you for your interest. We've received your "+
		"information and one of our agents will contact you shortly. - %s", first, h.businessName()), logger)
	alerted := h.notifyOffice(ctx, "New buyer lead: "+strings.TrimSpace(first+" "+contact.LastName),
		buyerOfficeAlert(contact, buyer, out.ContactID), logger)

	h.reply(c, fnCreateBuyerLead, tc, FunctionResponse{
		Success: true,
		Message: fmt.Sprintf("Perfect, %s! Sally or one of our agents will call you to discuss available properties. "+
			"You'll also get a text.", first),
		Data: map[string]any{
			"contact_id":        out.ContactID,
			"lead_id":           out.LeadID,
			"existing_contact":  out.Existing,
			"contact":           contact,
			"preferences":       buyer,
			"confirmation_sent": sms,
			"office_notified":   alerted,
		},
	})
}

// =============================================================================
// create_seller_lead
// =============================================================================

type sellerLeadArgs struct {
	FirstName         vapi.Text   `json:"first_name"`
	LastName          vapi.Text   `json:"last_name"`
	Phone             vapi.Text   `json:"phone"`
	Email             vapi.Text   `json:"email"`
	PropertyAddress   vapi.Text   `json:"property_address"`
	City              vapi.Text   `json:"city"`
	State             vapi.Text   `json:"state"`
	ZipCode           vapi.Text   `json:"zip_code"`
	PropertyType      vapi.Text   `json:"property_type"`
	Bedrooms          vapi.Number `json:"bedrooms"`
	Bathrooms         vapi.Number `json:"bathrooms"`
	SquareFeet        vapi.Number `json:"square_feet"`
	YearBuilt         vapi.Number `json:"year_built"`
	ReasonForSelling  vapi.Text   `json:"reason_for_selling"`
	Timeframe         vapi.Text   `json:"timeframe"`
	EstimatedValue    vapi.Number `json:"estimated_value"`
	PropertyCondition vapi.Text   `json:"property_condition"`
	PreviouslyListed  *vapi.Flag  `json:"previously_listed"`
	CurrentlyOccupied *vapi.Flag  `json:"currently_occupied"`
	Notes             vapi.Text   `json:"notes"`
}

func flagPtr(f *vapi.Flag) *bool {
	if f == nil {
		return nil
	}
	b := bool(*f)
	return &b
}

func (a sellerLeadArgs) seller() *crm.SellerLead {
	state := a.State.String()
	if state == "" {
		state = "FL"
	}
	return &crm.SellerLead{
		PropertyAddress:   a.PropertyAddress.String(),
		City:              a.City.String(),
		State:             state,
		ZipCode:           a.ZipCode.String(),
		PropertyType:      a.PropertyType.String(),
		Bedrooms:          int(a.Bedrooms),
		Bathrooms:         float64(a.Bathrooms),
		SquareFeet:        int(a.SquareFeet),
		YearBuilt:         int(a.YearBuilt),
		Condition:         a.PropertyCondition.String(),
		ReasonForSelling:  a.ReasonForSelling.String(),
		Timeframe:         a.Timeframe.String(),
		EstimatedValue:    float64(a.EstimatedValue),
		PreviouslyListed:  flagPtr(a.PreviouslyListed),
		CurrentlyOccupied: flagPtr(a.CurrentlyOccupied),
		Status:            crm.LeadNew,
	}
}

func sellerNote(s *crm.SellerLead, notes string) string {
	var b strings.Builder
	b.WriteString("Seller Lead from AI Voice Agent\n\nProperty Details:\n")
	fmt.Fprintf(&b, "- Address: %s\n", s.PropertyAddress)
	line := func(label, v string) {
		if v != "" {
			fmt.Fprintf(&b, "- %s: %s\n", label, v)
		}
	}
	line("Type", s.PropertyType)
	if s.Bedrooms > 0 {
		line("Bedrooms", fmt.Sprint(s.Bedrooms))
	}
	if s.Bathrooms > 0 {
		line("Bathrooms", formatCount(s.Bathrooms))
	}
	if s.SquareFeet > 0 {
		line("Square Feet", humanize.Comma(int64(s.SquareFeet)))
	}
	if s.YearBuilt > 0 {
		line("Year Built", fmt.Sprint(s.YearBuilt))
	}
	line("Condition", s.Condition)
	line("Reason for Selling", s.ReasonForSelling)
	line("Timeline", s.Timeframe)
	if s.EstimatedValue > 0 {
		line("Estimated Value", dollars(s.EstimatedValue))
	}
	if notes != "" {
		b.WriteString("\nAdditional Notes:\n" + notes)
	}
	return b.String()
}

func sellerOfficeAlert(ct crm.Contact, s *crm.SellerLead, contactID crm.ID) string {
	var b strings.Builder
	b.WriteString("NEW SELLER LEAD from AI Agent\n\n")
	fmt.Fprintf(&b, "Name: %s %s\n", ct.FirstName, ct.LastName)
	fmt.Fprintf(&b, "Phone: %s\n", ct.Phone)
	fmt.Fprintf(&b, "Email: %s\n", orDefault(ct.Email, "Not provided"))
	fmt.Fprintf(&b, "Property: %s, %s\n", s.PropertyAddress, s.City)
	fmt.Fprintf(&b, "Timeline: %s\n", orDefault(s.Timeframe, "Not specified"))
	if s.EstimatedValue > 0 {
		fmt.Fprintf(&b, "Estimated Value: %s\n", dollars(s.EstimatedValue))
	}
	fmt.Fprintf(&b, "\nContact ID: %s\nAction: Follow up ASAP", orDefault(string(contactID), "Unknown"))
	return b.String()
}

// sellerMessage is the spoken confirmation for a saved seller lead.
func sellerMessage(first string, s *crm.SellerLead) string {
	msg := fmt.Sprintf("Thank you, %s! I've recorded your information about the property at %s, %s. ",
		first, s.PropertyAddress, s.City)
	var noted []string
	if s.Bedrooms > 0 && s.Bathrooms > 0 {
		noted = append(noted, fmt.Sprintf("your %d bedroom, %s bathroom property", s.Bedrooms, formatCount(s.Bathrooms)))
	}
	if s.Timeframe != "" {
		noted = append(noted, fmt.Sprintf("your %s timeframe", s.Timeframe))
	}
	if len(noted) > 0 {
		verb := "has"
		if len(noted) > 1 {
			verb = "have"
		}
		sentence := strings.Join(noted, " and ")
		msg += strings.ToUpper(sentence[:1]) + sentence[1:] + " " + verb + " been noted. "
	}
	return msg + "One of our listing specialists will contact you shortly to discuss a market analysis and the next " +
		"steps. I've sent you a confirmation text. Is there anything else you'd like me to note for the agent?"
}

// HandleCreateSellerLead handles POST /functions/create_seller_lead.
//
// Description:
//
//	Same flow as the buyer lead, keyed on the property being sold. The
//	property address and city are required in addition to name and phone.
func (h *Handlers) HandleCreateSellerLead(c *gin.Context) {
	logger := h.requestLogger(c, "HandleCreateSellerLead")
	tc, ok := h.parseFunction(c, logger)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var args sellerLeadArgs
	if err := tc.Decode(&args); err != nil {
		logger.Warn("bad create_seller_lead arguments", slog.String("error", err.Error()))
	}
	first := args.FirstName.String()
	id := sellerIdentity{
		FirstName:       first,
		Phone:           args.Phone.String(),
		PropertyAddress: args.PropertyAddress.String(),
		City:            args.City.String(),
	}
	if err := h.validate.Struct(id); err != nil {
		missing := missingFields(err)
		h.reply(c, fnCreateSellerLead, tc, FunctionResponse{
			Error:   fmt.Sprintf("I just need your %s before I can save your information.", spokenFieldList(missing)),
			Message: "missing required fields",
			Data:    map[string]any{"missing": missing},
		})
		return
	}
	if h.crm == nil {
		h.reply(c, fnCreateSellerLead, tc, FunctionResponse{Error: sellerSaveFailedText, Message: "crm not configured"})
		return
	}

	callerPhone, email := normalizeContact(args.Phone.String(), args.Email.String(), logger)
	notes := args.Notes.String()
	seller := args.seller()
	contact := crm.Contact{
		FirstName: first,
		LastName:  args.LastName.String(),
		Phone:     callerPhone,
		Email:     email,
		Address:   seller.PropertyAddress,
		City:      seller.City,
		State:     seller.State,
		ZipCode:   seller.ZipCode,
		Type:      crm.ContactSeller,
		Tags:      []string{"voice_agent", "seller_lead"},
		Source:    leadSource,
		Notes:     notes,
	}

	plan := leadPlan{
		lead:      crm.Lead{Contact: contact, Seller: seller},
		noteTitle: "AI Concierge - Seller Lead Details",
		noteBody:  sellerNote(seller, notes),
		callNotes: fmt.Sprintf("Initial seller inquiry call for property at %s. Timeline: %s.",
			seller.PropertyAddress, orDefault(seller.Timeframe, "Not specified")),
		updateNotes: fmt.Sprintf("Updated seller information: Property: %s, %s, Timeline: %s",
			seller.PropertyAddress, seller.City, orDefault(seller.Timeframe, "Not specified")),
	}

	out, err := h.saveLead(ctx, plan, logger)
	if err != nil {
		logger.Error("seller lead not saved", slog.String("error", err.Error()))
		h.reply(c, fnCreateSellerLead, tc, FunctionResponse{Error: sellerSaveFailedText, Message: err.Error()})
		return
	}
	logger.Info("seller lead saved",
		slog.String("contact_id", string(out.ContactID)),
		slog.Bool("existing", out.Existing),
		slog.Bool("duplicate", out.Duplicate))

	if out.Duplicate {
		h.reply(c, fnCreateSellerLead, tc, FunctionResponse{
			Success: true,
			Message: fmt.Sprintf("Thank you, %s! We have your information on file. One of our listing specialists "+
				"will contact you shortly to discuss your property at %s.", first, seller.PropertyAddress),
			Data: map[string]any{"contact_id": out.ContactID, "note": "Duplicate contact - existing record in CRM"},
		})
		return
	}

	sms := h.confirmCaller(ctx, callerPhone, fmt.Sprintf("Hi %s! Thank you for considering %s. A listing specialist "+
		"will contact you shortly to discuss your property at %s. We look forward to helping you!",
		first, h.businessName(), seller.PropertyAddress), logger)
	alerted := h.notifyOffice(ctx, "New seller lead: "+strings.TrimSpace(first+" "+contact.LastName),
		sellerOfficeAlert(contact, seller, out.ContactID), logger)

	h.reply(c, fnCreateSellerLead, tc, FunctionResponse{
		Success: true,
		Message: sellerMessage(first, seller),
		Data: map[string]any{
			"contact_id":        out.ContactID,
			"lead_id":           out.LeadID,
			"existing_contact":  out.Existing,
			"contact":           contact,
			"property_details":  seller,
			"confirmation_sent": sms,
			"office_notified":   alerted,
		},
	})
}
