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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/config"
)

// Type is the send_notification channel selector.
type Type string

const (
	TypeSMS   Type = "sms"
	TypeEmail Type = "email"
	TypeBoth  Type = "both"
)

// ErrInvalidType is returned by ParseType for unknown selectors.
var ErrInvalidType = errors.New("notify: invalid notification type")

// ParseType normalizes s. Empty means sms.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TypeSMS, nil
	case TypeSMS, TypeEmail, TypeBoth:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// Message is one direct notification.
type Message struct {
	Type    Type
	Phone   string
	Email   string
	Subject string
	Body    string
}

// Result reports which channels delivered.
type Result struct {
	Channels []Channel
	// Errors holds one "SMS: ..." or "Email: ..." entry per failed channel.
	Errors []string
	// Phone and Email are the recipients actually used.
	Phone        string
	Email        string
	TestOverride bool
}

// Success reports whether at least one channel delivered.
func (r Result) Success() bool { return len(r.Channels) > 0 }

// Dispatcher sends direct notifications and waits for the outcome.
//
// Description:
//
//	SMS is sent for sms and both. Email is sent whenever an address is
//	present, so an sms request with an email address also emails. Test
//	mode replaces the phone recipient, and the email recipient when a test
//	address is configured.
//
// Thread Safety: Safe for concurrent use.
type Dispatcher struct {
	sms      SMSSender
	email    EmailSender
	testMode config.TestMode
	business string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher. A zero timeout uses 30 seconds.
func NewDispatcher(sms SMSSender, email EmailSender, testMode config.TestMode, business string, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Dispatcher{
		sms:      sms,
		email:    email,
		testMode: testMode,
		business: business,
		timeout:  timeout,
		logger:   logger.With("component", "dispatcher"),
	}
}

// SendSMS sends one text, honouring test mode.
func (d *Dispatcher) SendSMS(ctx context.Context, to, body string) error {
	res := d.Send(ctx, Message{Type: TypeSMS, Phone: to, Body: body})
	if res.Success() {
		return nil
	}
	return errors.New(strings.Join(res.Errors, "; "))
}

// Send delivers m on every applicable channel concurrently.
func (d *Dispatcher) Send(ctx context.Context, m Message) Result {
	res := Result{Phone: m.Phone, Email: m.Email}
	if d.testMode.Active() {
		d.logger.Info("TEST MODE: overriding notification recipient",
			slog.String("original", maskNumber(m.Phone)),
			slog.String("test", maskNumber(d.testMode.AgentPhone)))
		res.Phone = d.testMode.AgentPhone
		if d.testMode.AgentEmail != "" && m.Email != "" {
			res.Email = d.testMode.AgentEmail
		}
		res.TestOverride = true
	}
	subject := m.Subject
	if subject == "" {
		subject = "Notification from " + d.business
	}
	if m.Type == "" {
		m.Type = TypeSMS
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	collect := func(ch Channel, label string, err error) {
		mu.Lock()
		defer mu.Unlock()
		recordDelivery("direct", ch, err)
		if err != nil {
			res.Errors = append(res.Errors, label+": "+err.Error())
			return
		}
		res.Channels = append(res.Channels, ch)
	}

	if m.Type == TypeSMS || m.Type == TypeBoth {
		g.Go(func() error {
			if res.Phone == "" {
				collect(ChannelSMS, "SMS", errors.New("recipient phone is required"))
				return nil
			}
			if d.sms == nil {
				collect(ChannelSMS, "SMS", ErrNotConfigured)
				return nil
			}
			sctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			collect(ChannelSMS, "SMS", d.sms.SendSMS(sctx, res.Phone, m.Body))
			return nil
		})
	}
	if res.Email != "" || m.Type == TypeEmail {
		g.Go(func() error {
			if res.Email == "" {
				collect(ChannelEmail, "Email", errors.New("recipient email is required"))
				return nil
			}
			if d.email == nil {
				collect(ChannelEmail, "Email", ErrNotConfigured)
				return nil
			}
			ectx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			collect(ChannelEmail, "Email", d.email.SendEmail(ectx, res.Email, subject, m.Body))
			return nil
		})
	}
	_ = g.Wait()

	// Stable order for callers and tests.
	if len(res.Channels) == 2 && res.Channels[0] == ChannelEmail {
		res.Channels[0], res.Channels[1] = ChannelSMS, ChannelEmail
	}
	if len(res.Errors) == 2 && strings.HasPrefix(res.Errors[0], "Email") {
		res.Errors[0], res.Errors[1] = res.Errors[1], res.Errors[0]
	}
	for _, e := range res.Errors {
		d.logger.Warn("notification channel failed", slog.String("error", e))
	}
	return res
}
