// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package voiceagent serves the HTTP surface of the voice-agent backend:
// the function endpoints the voice assistant calls mid-conversation and the
// webhooks posted by the voice platform, the CRM and the form provider.
//
// Every function endpoint answers 200 with a FunctionResponse so the
// assistant always has a line to speak, including when a dependency fails.
package voiceagent

import (
	"context"
	"log/slog"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/config"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/crm"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/ledger"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/notify"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/roster"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/secrets"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/transfer"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/vapi"
)

// =============================================================================
// Collaborators
// =============================================================================

// AgentRoster is the roster subset the handlers read.
type AgentRoster interface {
	FindByName(ctx context.Context, query string) (roster.Agent, bool)
	AnyAgent(ctx context.Context) (roster.Agent, bool)
}

// CRM is the BoldTrail subset the handlers call.
type CRM interface {
	SearchListings(ctx context.Context, q crm.ListingQuery) ([]crm.Listing, error)
	GetAgent(ctx context.Context, id string) (crm.Agent, error)
	ListAgents(ctx context.Context, f crm.AgentFilter) ([]crm.Agent, error)
	SearchContacts(ctx context.Context, q crm.ContactQuery) ([]crm.Contact, error)
	UpdateContact(ctx context.Context, id crm.ID, fields map[string]any) error
	CreateLead(ctx context.Context, l crm.Lead) (crm.LeadResult, error)
	AddNote(ctx context.Context, contactID crm.ID, title, note string) error
	LogCall(ctx context.Context, contactID crm.ID, log crm.CallLog) error
}

// Notifier sends direct SMS and email.
type Notifier interface {
	SendSMS(ctx context.Context, to, body string) error
	Send(ctx context.Context, m notify.Message) notify.Result
}

// Escalations alerts the supervisor about calls needing follow-up.
type Escalations interface {
	NotifyNoAnswer(ctx context.Context, n notify.NoAnswerNotice)
	Recipients() (phoneNumber, email string)
}

// Router runs route_to_agent.
type Router interface {
	Route(ctx context.Context, sess transfer.Session, req transfer.Request) transfer.Outcome
	Reject(ctx context.Context, sess transfer.Session, req transfer.Request, cause error) transfer.Outcome
}

// OutboundCaller places assistant calls to new leads.
type OutboundCaller interface {
	CreatePhoneCall(ctx context.Context, oc vapi.OutboundCall) (vapi.Call, error)
}

// AttemptLookup finds the transfer recorded for a call.
type AttemptLookup interface {
	Latest(ctx context.Context, callID string) (ledger.Attempt, error)
}

// =============================================================================
// Handlers
// =============================================================================

// Deps are the collaborators of Handlers. Config, Roster, Router and
// Notifier are required; the rest degrade to polite failures when nil.
type Deps struct {
	Config      *config.Config
	Roster      AgentRoster
	CRM         CRM
	Notifier    Notifier
	Escalations Escalations
	Router      Router
	Caller      OutboundCaller
	Attempts    AttemptLookup
	Secrets     secrets.Provider
	// Integrations reports which external services are configured, for /health.
	Integrations map[string]bool
	Version      string
	Logger       *slog.Logger
}

// Handlers holds the HTTP handlers.
//
// Thread Safety: Safe for concurrent use. All fields are read-only after
// NewHandlers.
type Handlers struct {
	cfg          *config.Config
	roster       AgentRoster
	crm          CRM
	notifier     Notifier
	escalations  Escalations
	router       Router
	caller       OutboundCaller
	attempts     AttemptLookup
	secrets      secrets.Provider
	integrations map[string]bool
	version      string
	validate     *validator.Validate
	logger       *slog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(d Deps) *Handlers {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handlers{
		cfg:          d.Config,
		roster:       d.Roster,
		crm:          d.CRM,
		notifier:     d.Notifier,
		escalations:  d.Escalations,
		router:       d.Router,
		caller:       d.Caller,
		attempts:     d.Attempts,
		secrets:      d.Secrets,
		integrations: d.Integrations,
		version:      d.Version,
		validate:     v,
		logger:       logger,
	}
}

// =============================================================================
// Responses
// =============================================================================

// ErrorResponse is returned for requests that cannot be processed at all.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToolResult pairs a tool call with the text the assistant should speak.
type ToolResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
}

// FunctionResponse is the body of every function endpoint.
//
// Description:
//
//	Results carries the spoken line keyed by tool call ID, which is what
//	the voice platform reads. Success, Message, Error and Data are kept
//	for flat callers and logs.
type FunctionResponse struct {
	Results []ToolResult   `json:"results"`
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
	Data    map[string]any `json:"data,omitempty"`

	// spoken overrides the line chosen for Results.
	spoken string
}

// spokenText is what the assistant says: the caller-facing error on
// failure, the message otherwise.
func (r FunctionResponse) spokenText() string {
	switch {
	case r.spoken != "":
		return r.spoken
	case !r.Success && r.Error != "":
		return r.Error
	default:
		return r.Message
	}
}

// =============================================================================
// Request IDs
// =============================================================================

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID assigns every request an ID, honouring an inbound X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		getOrCreateRequestID(c)
		c.Next()
	}
}

// getOrCreateRequestID returns the request's ID, creating and echoing one
// on first use.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetString(requestIDKey); id != "" {
		return id
	}
	id := strings.TrimSpace(c.GetHeader(requestIDHeader))
	if id == "" || len(id) > 128 {
		id = uuid.NewString()
	}
	c.Set(requestIDKey, id)
	c.Header(requestIDHeader, id)
	return id
}

// requestLogger scopes the handler logger to one request.
func (h *Handlers) requestLogger(c *gin.Context, handler string) *slog.Logger {
	return h.logger.With("request_id", getOrCreateRequestID(c), "handler", handler)
}

// businessName is used in caller-facing texts.
func (h *Handlers) businessName() string {
	if h.cfg != nil && h.cfg.Business.Name != "" {
		return h.cfg.Business.Name
	}
	return "Sally Love Real Estate"
}
