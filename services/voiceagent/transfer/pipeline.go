// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/ledger"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/notify"
)

// =============================================================================
// Collaborators
// =============================================================================

// Executor sends a transfer instruction to a live call.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Executor interface {
	// Transfer asks the call at controlURL to dial number, speaking content
	// to the caller first. Any non-2xx answer is an error.
	Transfer(ctx context.Context, controlURL, number, content string) error
}

// Escalator alerts a human about a call that could not be handled.
//
// Description:
//
//	Implementations must return promptly. Delivery problems are theirs to
//	log; they never reach the caller.
type Escalator interface {
	NotifyFailure(ctx context.Context, n notify.FailureNotice)
}

// AgentDirectory corroborates an agent ID against the CRM.
type AgentDirectory interface {
	AgentContact(ctx context.Context, agentID string) (name, number string, err error)
}

// Recorder keeps transfer attempts so later webhooks can find them.
type Recorder interface {
	Record(ctx context.Context, a ledger.Attempt) error
}

// =============================================================================
// Caller-facing lines
// =============================================================================

const (
	// MalformedMessage is spoken when the webhook lacks what a transfer needs.
	MalformedMessage = "I'm sorry, I'm not able to transfer your call right now. " +
		"Can I take your information and have one of our agents call you back?"

	// NoDestinationMessage is spoken when nobody can be dialed.
	NoDestinationMessage = "I'm sorry, I can't connect you with someone live right now, " +
		"but I've passed your details along and an agent will call you back shortly."

	// CallbackMessage is spoken when both the transfer and the fallback failed.
	CallbackMessage = "I'm sorry, I wasn't able to connect your call. I've let our team know, " +
		"and an agent will call you back at the number you gave me shortly."
)

func connectingMessage(name, reason string) string {
	if reason != "" {
		return fmt.Sprintf("Great! I'm transferring you to %s now. They'll be able to help you with your %s. "+
			"Please hold while I connect you.", name, reason)
	}
	return fmt.Sprintf("Great! I'm transferring you to %s now. Please hold while I connect you.", name)
}

func spokenTransferLine(name string) string {
	return fmt.Sprintf("Please hold while I transfer you to %s.", name)
}

// =============================================================================
// Pipeline
// =============================================================================

// Deps are the collaborators of a Pipeline. Resolver, Executor and
// Escalator are required.
type Deps struct {
	Resolver  *Resolver
	Executor  Executor
	Escalator Escalator
	Directory AgentDirectory
	Recorder  Recorder
	Auditor   *Auditor
	Logger    *slog.Logger
}

// Pipeline runs the per-call transfer state machine.
//
// Thread Safety: Safe for concurrent use.
type Pipeline struct {
	resolver  *Resolver
	executor  Executor
	escalator Escalator
	directory AgentDirectory
	recorder  Recorder
	auditor   *Auditor
	logger    *slog.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(d Deps) *Pipeline {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		resolver:  d.Resolver,
		executor:  d.Executor,
		escalator: d.Escalator,
		directory: d.Directory,
		recorder:  d.Recorder,
		auditor:   d.Auditor,
		logger:    logger.With("component", "transfer_pipeline"),
	}
}

// callRun holds the mutable state of one Route invocation.
type callRun struct {
	sess      Session
	req       Request
	start     time.Time
	span      oteltrace.Span
	escalated map[notify.FailureKind]bool
}

// Route runs one transfer request to a terminal state.
//
// Description:
//
//	GATE_CHECK blocks before any lookup. CRM corroboration, when an agent
//	ID is present, only fills in missing identity and escalates on error.
//	RESOLVE picks a destination. EXECUTE posts the transfer; on failure the
//	call is escalated once and one FALLBACK_EXECUTE is attempted.
//
// Inputs:
//   - ctx: Request context. Outbound calls use their own timeouts.
//   - sess: Live-call handle. ControlURL must be non-empty.
//   - req: Function-call arguments.
//
// Outputs:
//   - Outcome: Always terminal (DONE or BLOCKED) with a caller-facing Message.
func (p *Pipeline) Route(ctx context.Context, sess Session, req Request) Outcome {
	ctx, span := otel.Tracer("voiceagent.transfer").Start(ctx, "transfer.Pipeline.Route",
		oteltrace.WithAttributes(
			attribute.String("call_id", sess.CallID),
			attribute.String("lead_id", req.LeadID),
		),
	)
	defer span.End()

	run := &callRun{
		sess:      sess,
		req:       req.Trimmed(),
		start:     time.Now(),
		span:      span,
		escalated: make(map[notify.FailureKind]bool),
	}
	req = run.req
	logger := p.logger.With("call_id", sess.CallID)

	// GATE_CHECK
	gate := CheckGate(req.LeadID, req.CallerName, req.CallerPhone)
	span.AddEvent(string(StateGateCheck), oteltrace.WithAttributes(attribute.Bool("allowed", gate.Allowed)))
	if !gate.Allowed {
		p.auditor.LogBlocked(ctx, sess.CallID, req, BlockGate, gate.Missing)
		return p.finish(ctx, run, Outcome{
			State:   StateBlocked,
			Reason:  BlockGate,
			Message: gate.Message,
			Missing: gate.Missing,
		}, Resolution{})
	}

	if sess.ControlURL == "" {
		return p.Reject(ctx, sess, req, fmt.Errorf("control url missing"))
	}

	name, number := p.corroborate(ctx, run, logger)

	// RESOLVE
	res, err := p.resolver.Resolve(ctx, sess.CallID, name, number)
	if err != nil {
		p.escalate(ctx, run, notify.FailureNoDestination, res, err)
		p.auditor.LogBlocked(ctx, sess.CallID, req, BlockNoDestination, nil)
		return p.finish(ctx, run, Outcome{
			State:   StateBlocked,
			Reason:  BlockNoDestination,
			Message: NoDestinationMessage,
		}, res)
	}
	recordResolution(res)
	span.AddEvent(string(StateResolve), oteltrace.WithAttributes(
		attribute.String("source", string(res.Source)),
		attribute.Bool("verified", res.Verified),
		attribute.Bool("test_mode", res.TestOverride),
	))

	// EXECUTE
	err = p.execute(ctx, run, res, false)
	if err == nil {
		return p.finish(ctx, run, doneOutcome(res, req.Reason, false), res)
	}

	// ESCALATE
	p.escalate(ctx, run, notify.FailureExecution, res, err)

	// FALLBACK_EXECUTE
	fb, err := p.resolver.Fallback(ctx, sess.CallID, res)
	if err != nil {
		logger.Warn("no fallback destination after failed transfer", slog.String("error", err.Error()))
		return p.finish(ctx, run, blockedAfterFailure(res), res)
	}
	recordResolution(fb)
	if err := p.execute(ctx, run, fb, true); err != nil {
		return p.finish(ctx, run, blockedAfterFailure(fb), fb)
	}
	return p.finish(ctx, run, doneOutcome(fb, req.Reason, true), fb)
}

// Reject ends a call whose webhook could not be used for a transfer.
func (p *Pipeline) Reject(ctx context.Context, sess Session, req Request, cause error) Outcome {
	p.logger.Error("transfer webhook unusable; check that the voice platform tool sends call control data",
		slog.String("call_id", sess.CallID),
		slog.String("error", cause.Error()))
	p.auditor.LogBlocked(ctx, sess.CallID, req, BlockMalformed, nil)
	o := Outcome{State: StateBlocked, Reason: BlockMalformed, Message: MalformedMessage}
	recordOutcome(o)
	return o
}

// corroborate asks the CRM about req.AgentID and fills in a missing
// requested name or phone. A CRM error escalates but never blocks.
func (p *Pipeline) corroborate(ctx context.Context, run *callRun, logger *slog.Logger) (string, string) {
	name, number := run.req.AgentName, run.req.AgentPhone
	if run.req.AgentID == "" || p.directory == nil {
		return name, number
	}
	crmName, crmNumber, err := p.directory.AgentContact(ctx, run.req.AgentID)
	if err != nil {
		logger.Warn("could not verify agent in CRM, continuing with roster",
			slog.String("agent_id", run.req.AgentID),
			slog.String("error", err.Error()))
		p.escalate(ctx, run, notify.FailureVerification,
			Resolution{AgentName: name, AgentPhone: number}, err)
		return name, number
	}
	if name == "" {
		name = crmName
	}
	if number == "" {
		number = crmNumber
	}
	return name, number
}

// execute posts one transfer instruction and records the attempt.
func (p *Pipeline) execute(ctx context.Context, run *callRun, res Resolution, fallback bool) error {
	state := StateExecute
	if fallback {
		state = StateFallbackExecute
	}
	err := p.executor.Transfer(ctx, run.sess.ControlURL, res.AgentPhone, spokenTransferLine(res.AgentName))
	recordExecution(fallback, err)
	p.auditor.LogExecuted(ctx, run.sess.CallID, res, fallback, err)
	run.span.AddEvent(string(state), oteltrace.WithAttributes(attribute.Bool("success", err == nil)))
	if err != nil {
		run.span.RecordError(err)
	}
	return err
}

// escalate sends at most one notice of each kind per call.
func (p *Pipeline) escalate(ctx context.Context, run *callRun, kind notify.FailureKind, res Resolution, cause error) {
	if p.escalator == nil || run.escalated[kind] {
		return
	}
	run.escalated[kind] = true
	n := notify.FailureNotice{
		CallID:      run.sess.CallID,
		Kind:        kind,
		LeadID:      run.req.LeadID,
		AgentName:   res.AgentName,
		AgentPhone:  res.AgentPhone,
		CallerName:  run.req.CallerName,
		CallerPhone: run.req.CallerPhone,
		Reason:      run.req.Reason,
	}
	if cause != nil {
		n.Detail = cause.Error()
	}
	if n.AgentName == "" {
		n.AgentName = run.req.AgentName
	}
	p.escalator.NotifyFailure(ctx, n)
	p.auditor.LogEscalated(ctx, run.sess.CallID, string(kind))
}

// finish stamps the outcome, records metrics and the ledger entry.
func (p *Pipeline) finish(ctx context.Context, run *callRun, o Outcome, res Resolution) Outcome {
	o.Duration = time.Since(run.start)
	o.Escalated = len(run.escalated) > 0
	recordOutcome(o)

	run.span.SetAttributes(
		attribute.String("state", string(o.State)),
		attribute.String("reason", string(o.Reason)),
		attribute.Bool("fallback_used", o.FallbackUsed),
	)
	if o.State == StateBlocked && o.Reason != BlockGate {
		run.span.SetStatus(codes.Error, string(o.Reason))
	} else {
		run.span.SetStatus(codes.Ok, "")
	}

	p.record(ctx, run, o, res)
	return o
}

func (p *Pipeline) record(ctx context.Context, run *callRun, o Outcome, res Resolution) {
	if p.recorder == nil || run.sess.CallID == "" {
		return
	}
	a := ledger.Attempt{
		ID:             uuid.New().String(),
		CallID:         run.sess.CallID,
		LeadID:         run.req.LeadID,
		CallerName:     run.req.CallerName,
		CallerPhone:    run.req.CallerPhone,
		RequestedName:  run.req.AgentName,
		RequestedPhone: run.req.AgentPhone,
		AgentName:      res.AgentName,
		AgentPhone:     res.AgentPhone,
		Verified:       res.Verified,
		Executed:       o.Executed,
		FallbackUsed:   o.FallbackUsed,
		TestOverride:   res.TestOverride,
		State:          string(o.State),
		Reason:         string(o.Reason),
		RecordedAt:     time.Now().UTC(),
	}
	if err := p.recorder.Record(ctx, a); err != nil {
		p.logger.Warn("failed to record transfer attempt",
			slog.String("call_id", run.sess.CallID),
			slog.String("error", err.Error()))
	}
}

func doneOutcome(res Resolution, reason string, fallback bool) Outcome {
	return Outcome{
		State:        StateDone,
		AgentName:    res.AgentName,
		AgentPhone:   res.AgentPhone,
		Verified:     res.Verified,
		Executed:     true,
		FallbackUsed: fallback,
		TestOverride: res.TestOverride,
		Message:      connectingMessage(res.AgentName, reason),
	}
}

func blockedAfterFailure(res Resolution) Outcome {
	return Outcome{
		State:        StateBlocked,
		Reason:       BlockExecutionFailed,
		AgentName:    res.AgentName,
		AgentPhone:   res.AgentPhone,
		Verified:     res.Verified,
		TestOverride: res.TestOverride,
		Message:      CallbackMessage,
	}
}
