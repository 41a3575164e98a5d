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
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/config"
)

// =============================================================================
// Escalator
// =============================================================================

const (
	defaultSendTimeout = 30 * time.Second
	defaultQueueSize   = 64
	defaultWorkers     = 2
)

// escalation is one queued delivery.
type escalation struct {
	ctx     context.Context
	kind    string
	callID  string
	sms     string
	subject string
}

// EscalatorOptions configures an Escalator.
type EscalatorOptions struct {
	SMS      SMSSender
	Email    EmailSender
	Config   config.NotificationConfig
	TestMode config.TestMode
	Business string
	Logger   *slog.Logger
}

// Escalator alerts the office or supervisor about callers who could not be
// connected.
//
// Description:
//
//	NotifyFailure and NotifyNoAnswer only enqueue. Background workers send
//	SMS and email concurrently, each bounded by the send timeout. A full
//	queue drops the notice with a warning; delivery errors are logged and
//	counted. Nothing is ever returned to the caller path.
//
//	Recipients are the supervisor contact, falling back to the office
//	contact. When test mode is active every notice goes to the test contact
//	instead.
//
// Thread Safety: Safe for concurrent use. Close must be called once at
// shutdown.
type Escalator struct {
	sms      SMSSender
	email    EmailSender
	cfg      config.NotificationConfig
	testMode config.TestMode
	business string
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan escalation
	wg     sync.WaitGroup
}

// NewEscalator creates an escalator and starts its workers.
func NewEscalator(opts EscalatorOptions) *Escalator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Config.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	size := opts.Config.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	workers := opts.Config.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	business := opts.Business
	if business == "" {
		business = "Sally Love Real Estate"
	}

	e := &Escalator{
		sms:      opts.SMS,
		email:    opts.Email,
		cfg:      opts.Config,
		testMode: opts.TestMode,
		business: business,
		timeout:  timeout,
		logger:   logger.With("component", "escalator"),
		queue:    make(chan escalation, size),
	}
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	return e
}

// NotifyFailure queues an alert about a failed or impossible transfer.
func (e *Escalator) NotifyFailure(ctx context.Context, n FailureNotice) {
	body, subject := failureText(e.business, n)
	kind := string(n.Kind)
	if kind == "" {
		kind = string(FailureExecution)
	}
	e.enqueue(escalation{ctx: ctx, kind: kind, callID: n.CallID, sms: body, subject: subject})
}

// NotifyNoAnswer queues an alert about a transfer nobody picked up.
func (e *Escalator) NotifyNoAnswer(ctx context.Context, n NoAnswerNotice) {
	body, subject := noAnswerText(e.business, n)
	e.enqueue(escalation{ctx: ctx, kind: string(FailureNoAnswer), callID: n.CallID, sms: body, subject: subject})
}

// Recipients returns the phone and email escalations are sent to.
func (e *Escalator) Recipients() (phoneNumber, email string) {
	if e.testMode.Active() {
		return e.testMode.AgentPhone, e.testMode.AgentEmail
	}
	return e.cfg.EscalationPhone(), e.cfg.EscalationEmail()
}

func (e *Escalator) enqueue(j escalation) {
	logger := e.logger.With(slog.String("call_id", j.callID), slog.String("kind", j.kind))
	if !e.cfg.Enabled {
		logger.Info("notifications disabled, escalation not sent")
		notificationsDroppedTotal.WithLabelValues("disabled").Inc()
		return
	}

	// Delivery outlives the request but keeps its trace.
	j.ctx = context.WithoutCancel(j.ctx)

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		logger.Warn("escalator closed, escalation dropped")
		notificationsDroppedTotal.WithLabelValues("closed").Inc()
		return
	}
	select {
	case e.queue <- j:
		notifyQueueDepth.Inc()
	default:
		logger.Warn("escalation queue full, escalation dropped")
		notificationsDroppedTotal.WithLabelValues("queue_full").Inc()
	}
}

func (e *Escalator) worker() {
	defer e.wg.Done()
	for j := range e.queue {
		notifyQueueDepth.Dec()
		e.deliver(j)
	}
}

// deliver sends SMS and email concurrently. A failing channel never stops
// the other.
func (e *Escalator) deliver(j escalation) {
	phoneNumber, email := e.Recipients()
	logger := e.logger.With(slog.String("call_id", j.callID), slog.String("kind", j.kind))
	if e.testMode.Active() {
		logger = logger.With(slog.Bool("test_mode", true))
	}

	var g errgroup.Group
	g.Go(func() error {
		if phoneNumber == "" || e.sms == nil {
			logger.Warn("no escalation phone configured, SMS skipped")
			recordSkipped(j.kind, ChannelSMS)
			return nil
		}
		ctx, cancel := context.WithTimeout(j.ctx, e.timeout)
		defer cancel()
		err := e.sms.SendSMS(ctx, phoneNumber, j.sms)
		recordDelivery(j.kind, ChannelSMS, err)
		if err != nil {
			logger.Error("escalation SMS failed", slog.String("error", err.Error()))
			return nil
		}
		logger.Info("escalation SMS sent", slog.String("to", maskNumber(phoneNumber)))
		return nil
	})
	g.Go(func() error {
		if email == "" || e.email == nil {
			recordSkipped(j.kind, ChannelEmail)
			return nil
		}
		ctx, cancel := context.WithTimeout(j.ctx, e.timeout)
		defer cancel()
		err := e.email.SendEmail(ctx, email, j.subject, j.sms)
		recordDelivery(j.kind, ChannelEmail, err)
		if err != nil {
			logger.Error("escalation email failed", slog.String("error", err.Error()))
			return nil
		}
		logger.Info("escalation email sent")
		return nil
	})
	_ = g.Wait()
}

// Close stops accepting notices and waits for queued ones to be delivered.
//
// Outputs:
//   - error: ctx.Err() if ctx ends before the queue drains.
func (e *Escalator) Close(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
