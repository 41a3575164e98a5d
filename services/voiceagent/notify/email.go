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
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/wneessen/go-mail"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/config"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/secrets"
)

// smtpsPort is the implicit-TLS submission port.
const smtpsPort = 465

// defaultSMTPTimeout bounds one send when ctx carries no deadline.
const defaultSMTPTimeout = 30 * time.Second

// EmailSender sends one plain-text email.
//
// Thread Safety: Implementations must be safe for concurrent use.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMTP sends mail through a single relay.
//
// Description:
//
//	Port 465 uses implicit TLS. Any other port requires STARTTLS when
//	UseTLS is set and sends in the clear otherwise. The password is opened
//	from the secrets provider per message.
//
// Thread Safety: Safe for concurrent use. Each send dials its own
// connection.
type SMTP struct {
	host     string
	port     int
	username string
	from     string
	useTLS   bool
	secrets  secrets.Provider
	logger   *slog.Logger
}

// NewSMTP creates an SMTP sender from configuration.
func NewSMTP(cfg config.SMTPConfig, sec secrets.Provider, logger *slog.Logger) *SMTP {
	if logger == nil {
		logger = slog.Default()
	}
	from := cfg.FromEmail
	if from == "" {
		from = cfg.Username
	}
	return &SMTP{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		from:     from,
		useTLS:   cfg.UseTLS,
		secrets:  sec,
		logger:   logger.With("component", "smtp"),
	}
}

// Configured reports whether host, username and password are present.
func (s *SMTP) Configured() bool {
	return s.host != "" && s.username != "" && s.secrets != nil && s.secrets.Has(secrets.SMTPPassword)
}

// SendEmail implements EmailSender.
//
// Outputs:
//   - error: ErrNotConfigured, an invalid-address error, or the SMTP
//     dialogue failure.
func (s *SMTP) SendEmail(ctx context.Context, to, subject, body string) error {
	if !s.Configured() {
		return ErrNotConfigured
	}
	if !strfmt.IsEmail(to) {
		return fmt.Errorf("smtp: invalid recipient address %q", to)
	}
	password, err := s.secrets.Secret(ctx, secrets.SMTPPassword)
	if err != nil {
		return fmt.Errorf("smtp: %w", err)
	}

	msg, err := buildMessage(s.from, to, subject, body)
	if err != nil {
		return err
	}
	client, err := mail.NewClient(s.host, s.clientOptions(password)...)
	if err != nil {
		return fmt.Errorf("smtp: client: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultSMTPTimeout)
		defer cancel()
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp: send via %s:%d: %w", s.host, s.port, err)
	}
	s.logger.Info("email sent", slog.String("subject", subject))
	return nil
}

// clientOptions maps the relay settings onto go-mail options.
func (s *SMTP) clientOptions(password string) []mail.Option {
	opts := []mail.Option{
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.username),
		mail.WithPassword(password),
		mail.WithTimeout(defaultSMTPTimeout),
		mail.WithTLSConfig(&tls.Config{ServerName: s.host, MinVersion: tls.VersionTLS12}),
	}
	switch {
	case s.port == smtpsPort:
		opts = append(opts, mail.WithSSL())
	case s.useTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	return append(opts, mail.WithPort(s.port))
}

// buildMessage renders a plain-text message with Date and Message-ID set.
func buildMessage(from, to, subject, body string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("smtp: invalid sender address %q: %w", from, err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("smtp: invalid recipient address %q: %w", to, err)
	}
	m.Subject(subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, body)
	return m, nil
}
