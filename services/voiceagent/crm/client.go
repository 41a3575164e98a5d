// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package crm is a client for the BoldTrail (kvCORE) public REST API.
//
// It covers the calls the voice agent makes during a conversation: agent
// lookup, contact de-duplication and creation, lead records, call logs,
// notes and listing search.
//
// Thread Safety:
//
//	Client is safe for concurrent use.
package crm

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/config"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/redact"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/secrets"
)

// DefaultTimeout bounds one CRM request.
const DefaultTimeout = 30 * time.Second

// ErrNotConfigured means no API key is available.
var ErrNotConfigured = errors.New("crm: BOLDTRAIL_API_KEY not configured")

// APIError is a failed CRM request.
//
// Description:
//
//	StatusCode is 0 when the request never got a response. Body is
//	redacted and truncated.
type APIError struct {
	Service    string
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Service, e.Operation, e.Err)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Service, e.Operation, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return e.Err }

// Duplicate reports whether the CRM rejected a create because the record
// already exists.
func (e *APIError) Duplicate() bool {
	b := strings.ToLower(e.Body)
	return strings.Contains(b, "already exists") || strings.Contains(b, "duplicate")
}

// IsDuplicate reports whether err is an *APIError for an existing record.
func IsDuplicate(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Duplicate()
}

// Client talks to the CRM.
type Client struct {
	baseURL    string
	feedURL    string
	secrets    secrets.Provider
	httpClient *http.Client
	logger     *slog.Logger
	feedCache  feedCache
}

// NewClient creates a CRM client.
//
// Inputs:
//   - cfg: API and listings feed URLs and the request timeout.
//   - sec: Holds secrets.BoldTrailAPIKey.
//   - logger: Optional. nil uses slog.Default().
func NewClient(cfg config.CRMConfig, sec secrets.Provider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		feedURL:    cfg.ListingsFeedURL,
		secrets:    sec,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "crm"),
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.secrets != nil && c.secrets.Has(secrets.BoldTrailAPIKey)
}

// do sends one request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) (err error) {
	ctx, span := otel.Tracer("voiceagent.crm").Start(ctx, "crm."+op)
	defer span.End()
	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, op)
		}
		requestsTotal.WithLabelValues(op, status).Inc()
		requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	if !c.Configured() {
		return ErrNotConfigured
	}
	key, err := c.secrets.Secret(ctx, secrets.BoldTrailAPIKey)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("crm %s: marshal: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &APIError{Service: "boldtrail", Operation: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Service: "boldtrail", Operation: op, Err: errors.New(redact.SafeLogString(err.Error()))}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &APIError{Service: "boldtrail", Operation: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode >= 400 {
		ae := &APIError{
			Service:    "boldtrail",
			Operation:  op,
			StatusCode: resp.StatusCode,
			Body:       redact.Truncate(redact.SafeLogString(string(raw)), 512),
		}
		c.logger.Error("crm request failed",
			slog.String("operation", op),
			slog.Int("status", resp.StatusCode),
			slog.String("body", ae.Body))
		return ae
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{Service: "boldtrail", Operation: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
