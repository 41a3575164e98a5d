// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package voiceagent

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers all voice-agent routes with the router.
//
// Description:
//
//	Registers the function endpoints called by the voice assistant, the
//	inbound webhooks and the service endpoints. The router should already
//	have recovery and tracing middleware applied.
//
// Inputs:
//
//	r - Gin engine
//	handlers - The handlers instance
//
// Function Endpoints:
//
//	POST /functions/check_property - Search listings
//	POST /functions/get_agent_info - Look up agents
//	POST /functions/route_to_agent - Transfer the live call
//	POST /functions/create_buyer_lead - Save a buyer lead
//	POST /functions/create_seller_lead - Save a seller lead
//	POST /functions/send_notification - Send SMS and/or email
//	POST /route-to-agent - Alias of /functions/route_to_agent
//
// Webhook Endpoints:
//
//	POST /webhooks/vapi/events - Call lifecycle events
//	GET  /webhooks/vapi/health - Webhook health
//	POST /webhooks/crm/events - CRM contact, lead and appointment events
//	GET  /webhooks/crm/health - Webhook health
//	POST /webhooks/ghl/form-submission - Call a new form lead back
//	POST /webhooks/ghl/call-status - Form-lead call status
//	POST /webhooks/ghl/test - Webhook setup check
//
// Service Endpoints:
//
//	GET  / - Service banner
//	GET  /health - Health and integration status
//	GET  /metrics - Prometheus metrics
//
// Example:
//
//	handlers := voiceagent.NewHandlers(deps)
//	router := gin.New()
//	router.Use(gin.Recovery(), voiceagent.RequestID())
//	voiceagent.RegisterRoutes(router, handlers)
func RegisterRoutes(r *gin.Engine, handlers *Handlers) {
	r.GET("/", handlers.HandleRoot)
	r.GET("/health", handlers.HandleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	functions := r.Group("/functions")
	{
		functions.POST("/check_property", handlers.HandleCheckProperty)
		functions.POST("/get_agent_info", handlers.HandleGetAgentInfo)
		functions.POST("/route_to_agent", handlers.HandleRouteToAgent)
		functions.POST("/create_buyer_lead", handlers.HandleCreateBuyerLead)
		functions.POST("/create_seller_lead", handlers.HandleCreateSellerLead)
		functions.POST("/send_notification", handlers.HandleSendNotification)
	}

	// Older assistants were configured with this path.
	r.POST("/route-to-agent", handlers.HandleRouteToAgent)

	webhooks := r.Group("/webhooks")
	{
		vapiHooks := webhooks.Group("/vapi")
		{
			vapiHooks.POST("/events", handlers.HandleVapiEvents)
			vapiHooks.GET("/health", handlers.HandleVapiHealth)
		}

		crmHooks := webhooks.Group("/crm")
		{
			crmHooks.POST("/events", handlers.HandleCRMEvents)
			crmHooks.GET("/health", handlers.HandleCRMHealth)
		}

		ghl := webhooks.Group("/ghl")
		{
			ghl.POST("/form-submission", handlers.HandleGHLFormSubmission)
			ghl.POST("/call-status", handlers.HandleGHLCallStatus)
			ghl.POST("/test", handlers.HandleGHLTest)
		}
	}
}

// HandleRoot handles GET /.
func (h *Handlers) HandleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": h.businessName() + " Voice Agent",
		"status":  "running",
		"version": h.version,
	})
}

// HandleHealth handles GET /health.
//
// Description:
//
//	Always 200 while the process serves requests. Integrations lists which
//	external services have credentials; an unconfigured integration makes
//	the dependent functions answer with a polite failure rather than
//	taking the service down.
func (h *Handlers) HandleHealth(c *gin.Context) {
	resp := gin.H{
		"status":       "healthy",
		"integrations": h.integrations,
	}
	if h.cfg != nil {
		resp["environment"] = h.cfg.Environment
		resp["test_mode"] = h.cfg.TestMode.Active()
	}
	c.JSON(http.StatusOK, resp)
}
