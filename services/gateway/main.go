// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/galleyops/galleytrack/pkg/config"
	"github.com/galleyops/galleytrack/services/analytics"
	"github.com/galleyops/galleytrack/services/gateway/observability"
	"github.com/galleyops/galleytrack/services/gateway/routes"
	"github.com/galleyops/galleytrack/services/identity"
	"github.com/galleyops/galleytrack/services/inventory"
	"github.com/galleyops/galleytrack/services/llm"
	"github.com/galleyops/galleytrack/services/provision"
	"github.com/galleyops/galleytrack/services/vision"
	"github.com/galleyops/galleytrack/services/warehouse"
)

func initTracer(endpoint string) (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("gateway-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := traceProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("error shutting down tracer provider", "error", err)
		}
	}, nil
}

// visionAnalyzer bridges the vision client into the workflow's analyzer
// seam, converting the wire observation into the workflow model.
type visionAnalyzer struct {
	client vision.Client
}

func (a visionAnalyzer) AnalyzeBox(ctx context.Context, image []byte, expected, catalog []string) (*inventory.BoxObservation, error) {
	obs, err := a.client.AnalyzeBox(ctx, image, expected, catalog)
	if err != nil {
		return nil, err
	}
	return &inventory.BoxObservation{
		WeightGrams: obs.WeightGrams,
		Labels:      obs.Labels,
	}, nil
}

// unavailableVision stands in when no OpenAI key is configured. Every call
// fails upstream, which the handlers surface as 502.
type unavailableVision struct{}

func (unavailableVision) AnalyzeBox(context.Context, []byte, []string, []string) (*vision.Observation, error) {
	return nil, fmt.Errorf("vision analysis is not configured")
}

// unavailableAssistant is the matching stand-in for the chat assistant.
type unavailableAssistant struct{}

func (unavailableAssistant) Chat(context.Context, []llm.Message) (string, error) {
	return "", fmt.Errorf("assistant is not configured")
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Could not load configuration: %v", err)
	}

	if cfg.Server.OTLPEndpoint != "" {
		shutdown, err := initTracer(cfg.Server.OTLPEndpoint)
		if err != nil {
			log.Fatalf("Failed to initialize OpenTelemetry tracer: %v", err)
		}
		defer shutdown(context.Background())
	} else {
		slog.Info("OTLP endpoint not set, tracing disabled")
	}

	observability.InitMetrics()

	var db warehouse.Querier
	if cfg.Warehouse.DSN != "" {
		store, err := warehouse.Open(context.Background(), cfg.Warehouse.DSN)
		if err != nil {
			log.Fatalf("FATAL: Could not connect to the warehouse: %v", err)
		}
		defer store.Close()
		db = store.DB()
	} else {
		slog.Warn("warehouse DSN not set, running with built-in sample data")
	}

	users := identity.NewUserStore(db)
	tokens := identity.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TokenTTL)

	metricsSvc := analytics.NewMetricsService(db, logger)
	analyticsSvc := analytics.NewService(db, logger)
	refresher := analytics.NewRefresher(metricsSvc, cfg.Dashboard.RefreshInterval, logger)
	refresher.Start()
	defer refresher.Stop()

	provider := provision.NewSubprocessProvider(cfg.Scripts.FlightLookup, cfg.Scripts.Validate)

	var visionClient vision.Client = unavailableVision{}
	var assistant llm.Client = unavailableAssistant{}
	if cfg.OpenAI.APIKey != "" {
		visionClient, err = vision.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.VisionModel)
		if err != nil {
			log.Fatalf("Failed to initialize vision client: %v", err)
		}
		assistant, err = llm.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.AssistantModel)
		if err != nil {
			log.Fatalf("Failed to initialize assistant client: %v", err)
		}
	} else {
		slog.Warn("OpenAI API key not set, vision and assistant endpoints will report upstream errors")
	}

	params := inventory.Params{
		LookupTimeout:       cfg.Workflow.LookupTimeout,
		VisionTimeout:       cfg.Workflow.VisionTimeout,
		ValidationTimeout:   cfg.Workflow.ValidationTimeout,
		SuccessDisplayDelay: cfg.Workflow.SuccessDisplayDelay,
		FailureDisplayDelay: cfg.Workflow.FailureDisplayDelay,
	}
	newWorkflow := func() *inventory.Workflow {
		return inventory.NewWorkflow(
			provision.Lookup{Provider: provider},
			visionAnalyzer{client: visionClient},
			provision.Validator{Provider: provider},
			nil, nil, params)
	}
	registry := inventory.NewRegistry(newWorkflow, cfg.Workflow.SessionIdleTTL, nil, logger)
	registry.Start()
	defer registry.Stop()

	router := gin.Default()
	router.Use(otelgin.Middleware("gateway-service"))

	routes.SetupRoutes(router, routes.Deps{
		Config:    cfg,
		Users:     users,
		Tokens:    tokens,
		Metrics:   metricsSvc,
		Analytics: analyticsSvc,
		Refresher: refresher,
		Provider:  provider,
		Registry:  registry,
		Assistant: assistant,
	})

	log.Println("Starting the gateway server on port ", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
