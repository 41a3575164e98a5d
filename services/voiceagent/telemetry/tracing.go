// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/InnovaSalesLab-Dev/sally-love-real-estate/services/voiceagent/config"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

// TracingOptions adjusts InitTracing.
type TracingOptions struct {
	Version     string
	Environment string
	// StdoutWriter receives spans when stdout export is on. nil uses os.Stdout.
	StdoutWriter io.Writer
}

// InitTracing installs the global tracer provider and W3C propagators.
//
// Description:
//
//	Exports over OTLP/gRPC when cfg.OTLPEndpoint is set, to stdout when
//	cfg.Stdout is set, both when both are set. With neither, the global
//	no-op provider stays in place and only propagation is installed.
//
// Outputs:
//   - ShutdownFunc: Flushes pending spans. Never nil.
//   - error: An exporter could not be created.
func InitTracing(ctx context.Context, cfg config.TelemetryConfig, opts TracingOptions, logger *slog.Logger) (ShutdownFunc, error) {
	if logger == nil {
		logger = slog.Default()
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	noop := func(context.Context) error { return nil }
	if cfg.OTLPEndpoint == "" && !cfg.Stdout {
		logger.Debug("tracing export disabled")
		return noop, nil
	}

	var providerOpts []sdktrace.TracerProviderOption
	if cfg.OTLPEndpoint != "" {
		exp, err := otlptracegrpc.New(ctx, otlpOptions(cfg.OTLPEndpoint)...)
		if err != nil {
			return noop, fmt.Errorf("otlp trace exporter: %w", err)
		}
		providerOpts = append(providerOpts, sdktrace.WithBatcher(exp))
		logger.Info("tracing to OTLP collector", slog.String("endpoint", cfg.OTLPEndpoint))
	}
	if cfg.Stdout {
		w := opts.StdoutWriter
		if w == nil {
			w = os.Stdout
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return noop, fmt.Errorf("stdout trace exporter: %w", err)
		}
		providerOpts = append(providerOpts, sdktrace.WithSyncer(exp))
	}

	attrs := []attribute.KeyValue{attribute.String("service.name", cfg.ServiceName)}
	if opts.Version != "" {
		attrs = append(attrs, attribute.String("service.version", opts.Version))
	}
	if opts.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", opts.Environment))
	}
	providerOpts = append(providerOpts, sdktrace.WithResource(resource.NewSchemaless(attrs...)))

	tp := sdktrace.NewTracerProvider(providerOpts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// otlpOptions accepts "host:port" (plaintext) or a full URL.
func otlpOptions(endpoint string) []otlptracegrpc.Option {
	if strings.Contains(endpoint, "://") {
		return []otlptracegrpc.Option{otlptracegrpc.WithEndpointURL(endpoint)}
	}
	return []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure()}
}
