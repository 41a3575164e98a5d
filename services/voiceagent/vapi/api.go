// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/config"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/phone"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/redact"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/secrets"
)

// ErrNotConfigured means the API key, assistant or phone number is missing.
var ErrNotConfigured = errors.New("vapi: client not configured")

// APIError is a non-2xx response from the REST API.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vapi %s: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Customer is the person an outbound call dials.
type Customer struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

// OutboundCall requests a new call from the configured assistant.
type OutboundCall struct {
	Customer Customer
	// Metadata is attached to the call and echoed in its webhooks.
	Metadata map[string]string
}

type createCallBody struct {
	AssistantID   string            `json:"assistantId"`
	PhoneNumberID string            `json:"phoneNumberId"`
	Customer      Customer          `json:"customer"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Call is the subset of a call record the service reads.
type Call struct {
	ID          string            `json:"id"`
	Status      string            `json:"status"`
	EndedReason string            `json:"endedReason,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Client talks to the voice platform's account REST API.
//
// Thread Safety: Safe for concurrent use.
type Client struct {
	baseURL       string
	assistantID   string
	phoneNumberID string
	secrets       secrets.Provider
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewClient creates a REST client.
func NewClient(cfg config.VapiConfig, sec secrets.Provider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.APIURL, "/"),
		assistantID:   cfg.AssistantID,
		phoneNumberID: cfg.PhoneNumberID,
		secrets:       sec,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger.With("component", "vapi_api"),
	}
}

// Configured reports whether outbound calls can be placed.
func (c *Client) Configured() bool {
	return c.secrets != nil && c.secrets.Has(secrets.VapiAPIKey) &&
		c.assistantID != "" && c.phoneNumberID != ""
}

// CreatePhoneCall places an outbound call from the assistant.
//
// Inputs:
//   - ctx: Request context.
//   - oc: Customer number in any US format; it is sent as E.164.
//
// Outputs:
//   - Call: The created call; ID is set.
//   - error: ErrNotConfigured, *APIError, or a transport error.
func (c *Client) CreatePhoneCall(ctx context.Context, oc OutboundCall) (Call, error) {
	if !c.Configured() {
		return Call{}, ErrNotConfigured
	}
	number, ok := phone.ToE164(oc.Customer.Number)
	if !ok {
		return Call{}, fmt.Errorf("vapi create_phone_call: invalid customer number")
	}
	oc.Customer.Number = number

	var out Call
	err := c.do(ctx, "create_phone_call", http.MethodPost, "/call/phone", createCallBody{
		AssistantID:   c.assistantID,
		PhoneNumberID: c.phoneNumberID,
		Customer:      oc.Customer,
		Metadata:      oc.Metadata,
	}, &out)
	if err != nil {
		return Call{}, err
	}
	c.logger.Info("outbound call created", slog.String("call_id", out.ID))
	return out, nil
}

// GetCall fetches a call record.
func (c *Client) GetCall(ctx context.Context, id string) (Call, error) {
	if c.secrets == nil || !c.secrets.Has(secrets.VapiAPIKey) {
		return Call{}, ErrNotConfigured
	}
	var out Call
	if err := c.do(ctx, "get_call", http.MethodGet, "/call/"+url.PathEscape(id), nil, &out); err != nil {
		return Call{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		apiRequestsTotal.WithLabelValues(op, status).Inc()
	}()

	key, err := c.secrets.Secret(ctx, secrets.VapiAPIKey)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("vapi %s: marshal: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("vapi %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vapi %s: %s", op, redact.SafeLogString(err.Error()))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("vapi %s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Body:       redact.Truncate(redact.SafeLogString(string(raw)), 512),
		}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("vapi %s: decode: %w", op, err)
	}
	return nil
}
