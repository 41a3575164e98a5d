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
	"fmt"
	"net/http"
	"net/url"
)

// GetAgent fetches one agent by CRM user ID.
//
// Outputs:
//   - Agent: The record. The API returns it bare or under "data".
//   - error: *APIError or ErrNotConfigured.
func (c *Client) GetAgent(ctx context.Context, id string) (Agent, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "get_agent", http.MethodGet, "users/"+url.PathEscape(id), nil, nil, &raw); err != nil {
		return Agent{}, err
	}
	var wrapped struct {
		Data *Agent `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data != nil {
		return *wrapped.Data, nil
	}
	var a Agent
	if err := json.Unmarshal(raw, &a); err != nil {
		return Agent{}, fmt.Errorf("crm get_agent: decode: %w", err)
	}
	return a, nil
}

// ListAgents returns agents matching f.
func (c *Client) ListAgents(ctx context.Context, f AgentFilter) ([]Agent, error) {
	q := url.Values{}
	if f.Specialty != "" {
		q.Set("filter[specialty]", f.Specialty)
	}
	if f.City != "" {
		q.Set("filter[city]", f.City)
	}
	var out struct {
		Data []Agent `json:"data"`
	}
	if err := c.do(ctx, "list_agents", http.MethodGet, "users", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// AgentContact returns the display name and best phone for an agent ID.
// It satisfies the transfer pipeline's agent directory.
func (c *Client) AgentContact(ctx context.Context, agentID string) (string, string, error) {
	a, err := c.GetAgent(ctx, agentID)
	if err != nil {
		return "", "", err
	}
	return a.Name(), a.ContactPhone(), nil
}
