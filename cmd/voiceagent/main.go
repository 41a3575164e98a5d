// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command voiceagent starts the Sally Love Real Estate voice-agent backend.
//
// The server answers the function calls made by the voice assistant during
// a call (property lookup, agent lookup, live transfer, lead capture,
// notifications) and the webhooks posted by the voice platform, the CRM
// and the website form provider.
//
// Usage:
//
//	go run ./cmd/voiceagent
//	go run ./cmd/voiceagent -config deploy/voiceagent.yaml
//	go run ./cmd/voiceagent -port 9000 -debug
//
// Secrets are read once from the environment at startup and sealed:
//
//	VAPI_API_KEY, BOLDTRAIL_API_KEY, TWILIO_AUTH_TOKEN, SMTP_PASSWORD,
//	GHL_WEBHOOK_SECRET
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8000/health
//
//	# Property lookup with a flat argument body
//	curl -X POST http://localhost:8000/functions/check_property \
//	  -H "Content-Type: application/json" \
//	  -d '{"city": "The Villages", "max_price": 400000}'
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/config"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/crm"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/ledger"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/notify"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/roster"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/secrets"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/telemetry"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/transfer"
	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/vapi"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file (default: $VOICE_AGENT_CONFIG)")
	port := flag.Int("port", 0, "Port to listen on (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	if err := run(*configPath, *port, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "voiceagent: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	debug = debug || cfg.Server.Debug
	if debug {
		cfg.Logging.Level = "debug"
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger, closeLog, err := telemetry.NewLogger(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Telemetry, telemetry.TracingOptions{
		Version:     version,
		Environment: cfg.Environment,
	}, logger)
	if err != nil {
		logger.Warn("tracing export unavailable, continuing without it", slog.String("error", err.Error()))
	}

	vault := secrets.FromEnv(secrets.AllKeys...)
	defer secrets.Purge()

	// Roster
	source, err := roster.OpenSource(ctx, cfg.Roster.Path)
	if err != nil {
		return fmt.Errorf("roster source: %w", err)
	}
	if c, ok := source.(io.Closer); ok {
		defer c.Close()
	}
	rosterStore := roster.NewStore(source, logger)
	if cfg.Roster.Watch && !strings.HasPrefix(cfg.Roster.Path, "gs://") {
		w, err := roster.Watch(rosterStore, cfg.Roster.Path, logger)
		if err != nil {
			logger.Warn("roster watch disabled", slog.String("error", err.Error()))
		} else {
			defer w.Close()
		}
	}
	if _, ok := rosterStore.AnyAgent(ctx); !ok {
		logger.Warn("roster has no transferable agents, transfers will go to the office line",
			slog.String("path", cfg.Roster.Path))
	}

	// Transfer ledger
	attempts, err := ledger.Open(ctx, cfg.Ledger, logger)
	if err != nil {
		return fmt.Errorf("transfer ledger: %w", err)
	}
	defer attempts.Close()

	// Notifications
	twilio := notify.NewTwilio(cfg.Twilio, vault, logger)
	smtp := notify.NewSMTP(cfg.SMTP, vault, logger)
	dispatcher := notify.NewDispatcher(twilio, smtp, cfg.TestMode, cfg.Business.Name, cfg.Notifications.SendTimeout, logger)
	escalator := notify.NewEscalator(notify.EscalatorOptions{
		SMS:      twilio,
		Email:    smtp,
		Config:   cfg.Notifications,
		TestMode: cfg.TestMode,
		Business: cfg.Business.Name,
		Logger:   logger,
	})

	// External APIs
	vapiClient := vapi.NewClient(cfg.Vapi, vault, logger)
	crmClient := crm.NewClient(cfg.CRM, vault, logger)

	// Transfers
	auditor := transfer.NewAuditor(logger, true)
	pipeline := transfer.NewPipeline(transfer.Deps{
		Resolver:  transfer.NewResolver(rosterStore, cfg.TestMode, auditor, logger),
		Executor:  vapi.NewControlClient(cfg.Vapi.TransferTimeout, logger),
		Escalator: escalator,
		Directory: crmClient,
		Recorder:  attempts,
		Auditor:   auditor,
		Logger:    logger,
	})

	if cfg.TestMode.Active() {
		logger.Warn("TEST MODE ACTIVE: transfers and notifications go to the test contact",
			slog.String("test_agent", cfg.TestMode.DisplayName()))
	}

	integrations := map[string]bool{
		"vapi":      vapiClient.Configured(),
		"boldtrail": crmClient.Configured(),
		"twilio":    twilio.Configured(),
		"smtp":      smtp.Configured(),
		"ghl":       vault.Has(secrets.GHLWebhookKey),
	}
	handlers := voiceagent.NewHandlers(voiceagent.Deps{
		Config:       cfg,
		Roster:       rosterStore,
		CRM:          crmClient,
		Notifier:     dispatcher,
		Escalations:  escalator,
		Router:       pipeline,
		Caller:       vapiClient,
		Attempts:     attempts,
		Secrets:      vault,
		Integrations: integrations,
		Version:      version,
		Logger:       logger,
	})

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	router.Use(voiceagent.RequestID())
	if debug {
		router.Use(gin.Logger())
	}
	voiceagent.RegisterRoutes(router, handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting voice agent server",
			slog.String("address", srv.Addr),
			slog.String("environment", cfg.Environment),
			slog.String("version", version),
			slog.Any("integrations", integrations))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down voice agent server")
	}

	grace := cfg.Server.ShutdownTimeout
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", slog.String("error", err.Error()))
	}
	if err := escalator.Close(shutdownCtx); err != nil {
		logger.Warn("pending escalations not delivered", slog.String("error", err.Error()))
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("trace flush failed", slog.String("error", err.Error()))
		}
	}
	return nil
}
