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
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/redact"
)

// DefaultTransferTimeout bounds one control-endpoint POST.
const DefaultTransferTimeout = 10 * time.Second

// ErrorCode classifies a control-endpoint failure.
type ErrorCode string

const (
	CodeBadURL     ErrorCode = "bad_url"
	CodeNetwork    ErrorCode = "network"
	CodeTimeout    ErrorCode = "timeout"
	CodeHTTPStatus ErrorCode = "http_status"
)

// ControlError is a failed transfer instruction.
type ControlError struct {
	Code       ErrorCode
	StatusCode int
	Body       string
	Err        error
}

func (e *ControlError) Error() string {
	switch e.Code {
	case CodeHTTPStatus:
		return fmt.Sprintf("vapi control: status %d: %s", e.StatusCode, e.Body)
	default:
		if e.Err != nil {
			return fmt.Sprintf("vapi control: %s: %v", e.Code, e.Err)
		}
		return fmt.Sprintf("vapi control: %s", e.Code)
	}
}

func (e *ControlError) Unwrap() error { return e.Err }

type controlDestination struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type controlPayload struct {
	Type        string             `json:"type"`
	Destination controlDestination `json:"destination"`
	Content     string             `json:"content,omitempty"`
}

// ControlClient sends instructions to a live call.
//
// Description:
//
//	The control URL is per call and short-lived; it carries its own
//	authorization, so no API key is sent.
//
// Thread Safety: Safe for concurrent use.
type ControlClient struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// NewControlClient creates a client. A non-positive timeout uses
// DefaultTransferTimeout.
func NewControlClient(timeout time.Duration, logger *slog.Logger) *ControlClient {
	if timeout <= 0 {
		timeout = DefaultTransferTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ControlClient{
		httpClient: &http.Client{},
		timeout:    timeout,
		logger:     logger.With("component", "vapi_control"),
	}
}

// Transfer asks the call to dial number.
//
// Inputs:
//   - ctx: Parent context; the POST gets its own timeout on top.
//   - controlURL: From the webhook's call monitor.
//   - number: E.164 destination.
//   - content: Line spoken to the caller before dialing.
//
// Outputs:
//   - error: *ControlError on any failure.
func (c *ControlClient) Transfer(ctx context.Context, controlURL, number, content string) error {
	ctx, span := otel.Tracer("voiceagent.vapi").Start(ctx, "vapi.ControlClient.Transfer")
	defer span.End()
	start := time.Now()

	err := c.transfer(ctx, controlURL, number, content)
	code := "ok"
	var ce *ControlError
	if errors.As(err, &ce) {
		code = string(ce.Code)
	}
	controlDuration.WithLabelValues(code).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("result", code))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, code)
	}
	return err
}

func (c *ControlClient) transfer(ctx context.Context, controlURL, number, content string) error {
	endpoint, err := controlEndpoint(controlURL)
	if err != nil {
		return &ControlError{Code: CodeBadURL, Err: err}
	}

	body, err := json.Marshal(controlPayload{
		Type:        "transfer",
		Destination: controlDestination{Type: "number", Number: number},
		Content:     content,
	})
	if err != nil {
		return &ControlError{Code: CodeBadURL, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &ControlError{Code: CodeBadURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("sending transfer instruction", slog.String("number", number))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return &ControlError{Code: CodeTimeout, Err: err}
		}
		return &ControlError{Code: CodeNetwork, Err: errors.New(redact.SafeLogString(err.Error()))}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ControlError{
			Code:       CodeHTTPStatus,
			StatusCode: resp.StatusCode,
			Body:       redact.Truncate(redact.SafeLogString(string(raw)), 512),
		}
	}
	return nil
}

// controlEndpoint validates controlURL and appends /control.
func controlEndpoint(controlURL string) (string, error) {
	controlURL = strings.TrimSpace(controlURL)
	if controlURL == "" {
		return "", errors.New("empty control url")
	}
	u, err := url.Parse(controlURL)
	if err != nil {
		return "", err
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return "", fmt.Errorf("control url %q is not an absolute http(s) url", controlURL)
	}
	return strings.TrimRight(controlURL, "/") + "/control", nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
