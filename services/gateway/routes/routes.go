// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/galleyops/galleytrack/pkg/config"
	"github.com/galleyops/galleytrack/services/analytics"
	"github.com/galleyops/galleytrack/services/gateway/handlers"
	"github.com/galleyops/galleytrack/services/gateway/middleware"
	"github.com/galleyops/galleytrack/services/identity"
	"github.com/galleyops/galleytrack/services/inventory"
	"github.com/galleyops/galleytrack/services/llm"
	"github.com/galleyops/galleytrack/services/provision"
)

// Deps bundles the collaborators the route table wires together.
type Deps struct {
	Config    *config.Config
	Users     *identity.UserStore
	Tokens    *identity.TokenManager
	Metrics   *analytics.MetricsService
	Analytics *analytics.Service
	Refresher *analytics.Refresher
	Provider  provision.Provider
	Registry  *inventory.Registry
	Assistant llm.Client
}

// SetupRoutes registers the full API surface on the router.
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/api/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.RequireAuth(deps.Tokens)
	supervisorOnly := middleware.RequireRole(identity.RoleSupervisor)

	auth := router.Group("/api/auth")
	{
		auth.POST("/login", handlers.Login(deps.Users, deps.Tokens))
		auth.POST("/logout", handlers.Logout())
		auth.GET("/me", requireAuth, handlers.Me(deps.Users))
	}

	metrics := router.Group("/api/metrics", requireAuth, supervisorOnly)
	{
		metrics.GET("/dashboard", handlers.MetricsDashboard(deps.Metrics, deps.Refresher))
		metrics.GET("/productivity", handlers.MetricsProductivity(deps.Metrics))
		metrics.GET("/error-rates", handlers.MetricsErrorRates(deps.Metrics))
		metrics.GET("/efficiency", handlers.MetricsEfficiency(deps.Metrics))
	}

	analyticsGroup := router.Group("/api/analytics", requireAuth, supervisorOnly)
	{
		analyticsGroup.GET("/dashboard", handlers.AnalyticsDashboard(deps.Analytics))
		analyticsGroup.GET("/trends", handlers.AnalyticsTrends(deps.Analytics))
		analyticsGroup.GET("/error-distribution", handlers.AnalyticsErrorDistribution(deps.Analytics))
		analyticsGroup.GET("/employees", handlers.AnalyticsEmployees(deps.Analytics))
		analyticsGroup.GET("/sustainability", handlers.AnalyticsSustainability(deps.Analytics))
		analyticsGroup.GET("/training-needs", handlers.AnalyticsTrainingNeeds(deps.Analytics))
		analyticsGroup.GET("/alerts", handlers.AnalyticsAlerts(deps.Analytics))
		analyticsGroup.POST("/alerts", handlers.CreateAlert(deps.Analytics))
		analyticsGroup.POST("/alerts/:id/acknowledge", handlers.AcknowledgeAlert(deps.Analytics))
	}

	// Operational writes come from the scanning line, not just supervisors.
	records := router.Group("/api/analytics", requireAuth)
	{
		records.POST("/sessions", handlers.RecordSession(deps.Analytics))
		records.POST("/errors", handlers.LogError(deps.Analytics))
	}

	// The inventory endpoints are unauthenticated, matching the line
	// tablets that drive them without a login.
	invGroup := router.Group("/api/inventory")
	{
		invGroup.POST("/flight", handlers.FlightLookup(deps.Provider, deps.Config.Workflow.LookupTimeout))
		invGroup.POST("/validate", handlers.ValidateScans(deps.Provider, deps.Config.Workflow.ValidationTimeout))
	}

	workflow := router.Group("/api/workflow/sessions")
	{
		workflow.POST("", handlers.CreateWorkflowSession(deps.Registry))
		workflow.GET("/:id", handlers.GetWorkflowSession(deps.Registry))
		workflow.DELETE("/:id", handlers.DeleteWorkflowSession(deps.Registry))
		workflow.POST("/:id/flight", handlers.WorkflowSubmitFlight(deps.Registry))
		workflow.POST("/:id/cart", handlers.WorkflowSelectCart(deps.Registry))
		workflow.POST("/:id/photo", handlers.WorkflowCapturePhoto(deps.Registry))
		workflow.POST("/:id/photo/process", handlers.WorkflowProcessPhoto(deps.Registry))
		workflow.POST("/:id/validate", handlers.WorkflowSubmitValidation(deps.Registry))
		workflow.POST("/:id/display/finish", handlers.WorkflowFinishDisplay(deps.Registry))
		workflow.POST("/:id/back", handlers.WorkflowBack(deps.Registry))
		workflow.POST("/:id/reset", handlers.WorkflowReset(deps.Registry))
	}

	router.POST("/api/assistant/chat", requireAuth, handlers.AssistantChat(deps.Assistant, deps.Analytics))
}
