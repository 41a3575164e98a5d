// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/config"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/phone"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/redact"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/secrets"
)

// SMSSender sends one text message.
//
// Thread Safety: Implementations must be safe for concurrent use.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// TwilioError is a non-2xx answer from the Twilio REST API.
type TwilioError struct {
	StatusCode int
	Code       int
	Message    string
}

func (e *TwilioError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("twilio: status %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("twilio: status %d: %s", e.StatusCode, e.Message)
}

// Twilio sends SMS through the Messages REST resource.
//
// Description:
//
//	POST {api_url}/2010-04-01/Accounts/{sid}/Messages.json with a form
//	body and HTTP basic auth (account SID, auth token). Sends share one
//	token-bucket limiter so a burst of escalations cannot trip the
//	account's rate limit. The auth token is opened from the secrets
//	provider per request.
//
// Thread Safety: Safe for concurrent use.
type Twilio struct {
	baseURL    string
	accountSID string
	from       string
	secrets    secrets.Provider
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewTwilio creates a Twilio sender from configuration.
func NewTwilio(cfg config.TwilioConfig, sec secrets.Provider, logger *slog.Logger) *Twilio {
	if logger == nil {
		logger = slog.Default()
	}
	perSecond, burst := cfg.SMSPerSecond, cfg.SMSBurst
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &Twilio{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		accountSID: cfg.AccountSID,
		from:       cfg.FromNumber,
		secrets:    sec,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
		logger:     logger.With("component", "twilio"),
	}
}

// Configured reports whether SID, sender number and auth token are present.
func (t *Twilio) Configured() bool {
	return t.accountSID != "" && t.from != "" && t.secrets != nil && t.secrets.Has(secrets.TwilioAuthToken)
}

// SendSMS implements SMSSender.
//
// Inputs:
//   - ctx: Bounds both the rate-limit wait and the HTTP request.
//   - to: Any phone format; converted to E.164.
//   - body: Message text.
//
// Outputs:
//   - error: ErrNotConfigured, *TwilioError for API rejections, or a
//     transport error.
func (t *Twilio) SendSMS(ctx context.Context, to, body string) error {
	if !t.Configured() {
		return ErrNotConfigured
	}
	dest, ok := phone.ToE164(to)
	if dest == "" {
		return fmt.Errorf("twilio: empty recipient number")
	}
	if !ok {
		t.logger.Warn("unexpected SMS recipient format, sending best effort", slog.String("to", dest))
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("twilio: rate limit wait: %w", err)
	}

	token, err := t.secrets.Secret(ctx, secrets.TwilioAuthToken)
	if err != nil {
		return fmt.Errorf("twilio: %w", err)
	}

	form := url.Values{}
	form.Set("To", dest)
	form.Set("From", t.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, url.PathEscape(t.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio: creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(t.accountSID, token)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio: HTTP request failed: %s", redact.SafeLogString(err.Error()))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("twilio: reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &TwilioError{StatusCode: resp.StatusCode, Message: redact.Truncate(redact.SafeLogString(string(raw)), 512)}
		var body struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &body) == nil && body.Message != "" {
			apiErr.Code, apiErr.Message = body.Code, body.Message
		}
		return apiErr
	}

	var msg struct {
		SID    string `json:"sid"`
		Status string `json:"status"`
	}
	_ = json.Unmarshal(raw, &msg)
	t.logger.Info("SMS sent",
		slog.String("sid", msg.SID),
		slog.String("status", msg.Status),
		slog.String("to", maskNumber(dest)))
	return nil
}

func maskNumber(s string) string {
	d := phone.Digits(s)
	if len(d) <= 4 {
		return d
	}
	return "***" + d[len(d)-4:]
}
