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
	"log/slog"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/config"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/phone"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/roster"
)

// Roster is the subset of the roster store the resolver depends on.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Roster interface {
	Verify(ctx context.Context, name, number string) (roster.Agent, bool)
	AnyAgent(ctx context.Context) (roster.Agent, bool)
	MainOfficePhone(ctx context.Context) (string, bool)
	Transferable(ctx context.Context) []roster.Agent
}

// Resolver turns a requested agent into a dialable destination.
//
// Description:
//
//	The roster is authoritative. A requested agent that cannot be
//	confirmed is replaced by the first roster agent, then by the office
//	line. The test-mode override, when active, replaces whatever was chosen
//	and is applied in exactly one place (finalize).
//
// Thread Safety: Safe for concurrent use.
type Resolver struct {
	roster   Roster
	testMode config.TestMode
	auditor  *Auditor
	logger   *slog.Logger
}

// NewResolver creates a resolver.
//
// Inputs:
//   - r: Roster lookups. Required.
//   - testMode: Override settings. Inert unless Enabled.
//   - auditor: Optional audit trail. nil disables audit entries.
//   - logger: Optional. nil uses slog.Default().
func NewResolver(r Roster, testMode config.TestMode, auditor *Auditor, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		roster:   r,
		testMode: testMode,
		auditor:  auditor,
		logger:   logger.With("component", "transfer_resolver"),
	}
}

// Resolve chooses where to send the call.
//
// Description:
//
//	 1. Requested name/phone confirmed by the roster (both must agree when
//	    both are given): that agent, verified.
//	 2. Otherwise the first transferable roster agent, unverified, with an
//	    audit entry naming the requested and substituted identities.
//	 3. Otherwise the main office line, announced as "our office".
//	 4. Otherwise ErrNoDestination.
//
// Inputs:
//   - ctx: Carries the trace span for audit correlation.
//   - callID: For audit entries only.
//   - requestedName, requestedPhone: From the function-call arguments.
//
// Outputs:
//   - Resolution: AgentPhone in E.164.
//   - error: ErrNoDestination when nothing can be dialed.
func (r *Resolver) Resolve(ctx context.Context, callID, requestedName, requestedPhone string) (Resolution, error) {
	base := Resolution{RequestedName: requestedName, RequestedPhone: requestedPhone}

	if requestedName != "" || requestedPhone != "" {
		if a, ok := r.roster.Verify(ctx, requestedName, requestedPhone); ok {
			res := base
			res.AgentName, res.AgentPhone = a.Name, a.ContactPhone()
			res.Verified, res.Source = true, SourceRoster
			res = r.finalize(ctx, callID, res)
			r.auditor.LogResolved(ctx, callID, res)
			return res, nil
		}
	}

	if a, ok := r.roster.AnyAgent(ctx); ok {
		res := base
		res.AgentName, res.AgentPhone = a.Name, a.ContactPhone()
		res.Source = SourceFallbackAgent
		res = r.finalize(ctx, callID, res)
		r.auditor.LogSubstituted(ctx, callID, res)
		return res, nil
	}

	if office, ok := r.roster.MainOfficePhone(ctx); ok && phone.Digits(office) != "" {
		res := base
		res.AgentName, res.AgentPhone = OfficeLabel, office
		res.Source = SourceOffice
		res = r.finalize(ctx, callID, res)
		r.auditor.LogSubstituted(ctx, callID, res)
		return res, nil
	}

	r.logger.Error("no transfer destination available",
		slog.String("call_id", callID),
		slog.String("requested_name", requestedName))
	return base, ErrNoDestination
}

// Fallback picks a second destination after failed was dialed and the
// transfer did not go through.
//
// Description:
//
//	Prefers the office line, then roster agents in order, skipping any
//	number equal to the one that just failed. The result is never verified.
//
// Outputs:
//   - Resolution: The alternate destination.
//   - error: ErrNoDestination when no different number exists.
func (r *Resolver) Fallback(ctx context.Context, callID string, failed Resolution) (Resolution, error) {
	failedNumber := failed.AgentPhone
	if failed.TestOverride {
		failedNumber = failed.OriginalPhone
	}
	base := Resolution{RequestedName: failed.RequestedName, RequestedPhone: failed.RequestedPhone}

	if office, ok := r.roster.MainOfficePhone(ctx); ok && phone.Digits(office) != "" && !phone.Equal(office, failedNumber) {
		res := base
		res.AgentName, res.AgentPhone, res.Source = OfficeLabel, office, SourceOffice
		return r.finalize(ctx, callID, res), nil
	}

	for _, a := range r.roster.Transferable(ctx) {
		if phone.Equal(a.ContactPhone(), failedNumber) {
			continue
		}
		res := base
		res.AgentName, res.AgentPhone, res.Source = a.Name, a.ContactPhone(), SourceFallbackAgent
		return r.finalize(ctx, callID, res), nil
	}
	return base, ErrNoDestination
}

// finalize formats the number for dialing and applies the test-mode
// override. It is the only place the override is applied.
func (r *Resolver) finalize(ctx context.Context, callID string, res Resolution) Resolution {
	e164, ok := phone.ToE164(res.AgentPhone)
	if !ok {
		r.logger.Warn("unexpected destination phone format, dialing best effort",
			slog.String("call_id", callID),
			slog.String("raw", res.AgentPhone),
			slog.String("dialed", e164))
	}
	res.AgentPhone = e164

	if !r.testMode.Active() {
		return res
	}
	testPhone, _ := phone.ToE164(r.testMode.AgentPhone)
	res.OriginalName, res.OriginalPhone = res.AgentName, res.AgentPhone
	res.AgentName, res.AgentPhone = r.testMode.DisplayName(), testPhone
	res.TestOverride = true
	r.auditor.LogTestOverride(ctx, callID, res)
	return res
}
