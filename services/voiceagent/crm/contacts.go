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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// ErrNoContactID means the CRM accepted a create but returned no ID.
var ErrNoContactID = errors.New("crm: response carried no contact id")

// idEnvelope finds an ID in the response shapes the CRM uses.
type idEnvelope struct {
	ID   ID `json:"id"`
	Data *struct {
		ID ID `json:"id"`
	} `json:"data"`
	Contact *struct {
		ID ID `json:"id"`
	} `json:"contact"`
}

func (e idEnvelope) first() ID {
	switch {
	case e.ID != "":
		return e.ID
	case e.Data != nil && e.Data.ID != "":
		return e.Data.ID
	case e.Contact != nil && e.Contact.ID != "":
		return e.Contact.ID
	default:
		return ""
	}
}

// SearchContacts finds existing contacts by phone, email or name.
func (c *Client) SearchContacts(ctx context.Context, q ContactQuery) ([]Contact, error) {
	params := url.Values{}
	if q.Phone != "" {
		params.Set("phone", q.Phone)
	}
	if q.Email != "" {
		params.Set("email", q.Email)
	}
	if q.Name != "" {
		params.Set("name", q.Name)
	}
	var out struct {
		Contacts []Contact `json:"contacts"`
		Data     []Contact `json:"data"`
	}
	if err := c.do(ctx, "search_contacts", http.MethodGet, "contacts/search", params, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Contacts) > 0 {
		return out.Contacts, nil
	}
	return out.Data, nil
}

// CreateContact creates a contact and returns its ID.
func (c *Client) CreateContact(ctx context.Context, ct Contact) (ID, error) {
	c.logger.Info("creating contact", slog.String("first_name", ct.FirstName))
	var out idEnvelope
	if err := c.do(ctx, "create_contact", http.MethodPost, "contacts", nil, ct, &out); err != nil {
		return "", err
	}
	id := out.first()
	if id == "" {
		return "", ErrNoContactID
	}
	return id, nil
}

// UpdateContact patches fields on an existing contact.
func (c *Client) UpdateContact(ctx context.Context, id ID, fields map[string]any) error {
	return c.do(ctx, "update_contact", http.MethodPatch, "contacts/"+url.PathEscape(string(id)), nil, fields, nil)
}

// LeadResult identifies what CreateLead wrote.
type LeadResult struct {
	ContactID ID
	LeadID    ID
}

// CreateLead creates the contact and then a buyer or seller lead for it.
//
// Outputs:
//   - LeadResult: ContactID is set whenever the contact was created, even
//     if the lead record then failed.
//   - error: *APIError from either request.
func (c *Client) CreateLead(ctx context.Context, l Lead) (LeadResult, error) {
	var (
		kind   ContactType
		fields any
	)
	switch {
	case l.Buyer != nil:
		kind, fields = ContactBuyer, l.Buyer
	case l.Seller != nil:
		kind, fields = ContactSeller, l.Seller
	default:
		return LeadResult{}, errors.New("crm: lead has neither buyer nor seller details")
	}
	if l.Contact.Type == "" {
		l.Contact.Type = kind
	}

	contactID, err := c.CreateContact(ctx, l.Contact)
	if err != nil {
		return LeadResult{}, err
	}
	res := LeadResult{ContactID: contactID}

	payload, err := leadPayload(contactID, kind, fields)
	if err != nil {
		return res, err
	}
	var out idEnvelope
	if err := c.do(ctx, "create_lead", http.MethodPost, "leads", nil, payload, &out); err != nil {
		return res, err
	}
	res.LeadID = out.first()
	return res, nil
}

// leadPayload flattens the lead fields next to contactId and type.
func leadPayload(contactID ID, kind ContactType, fields any) (map[string]any, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("crm create_lead: marshal: %w", err)
	}
	m := map[string]any{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("crm create_lead: marshal: %w", err)
	}
	m["contactId"] = string(contactID)
	m["type"] = string(kind)
	return m, nil
}

// AddNote attaches a titled note to a contact.
func (c *Client) AddNote(ctx context.Context, contactID ID, title, note string) error {
	body := map[string]string{"title": title, "note": note}
	return c.do(ctx, "add_note", http.MethodPost, "contacts/"+url.PathEscape(string(contactID))+"/notes", nil, body, nil)
}

// LogCall records a phone conversation on a contact's activity timeline.
func (c *Client) LogCall(ctx context.Context, contactID ID, log CallLog) error {
	return c.do(ctx, "log_call", http.MethodPost, "contacts/"+url.PathEscape(string(contactID))+"/calls", nil, log, nil)
}
