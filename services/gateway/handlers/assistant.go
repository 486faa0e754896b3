// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/galleyops/galleytrack/services/analytics"
	"github.com/galleyops/galleytrack/services/gateway/middleware"
	"github.com/galleyops/galleytrack/services/llm"
)

var assistantTracer = otel.Tracer("galleytrack/gateway/assistant")

type assistantChatRequest struct {
	Message   string         `json:"message" binding:"required"`
	History   []llm.Message  `json:"history"`
	SessionID string         `json:"sessionId"`
	Context   map[string]any `json:"context"`
}

// AssistantChat answers one assistant turn and logs the exchange. The chat
// reply is returned even when logging the interaction fails; the response
// then carries logged=false.
func AssistantChat(client llm.Client, svc *analytics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req assistantChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "bad_request",
				"message": "message is required",
			})
			return
		}

		ctx, span := assistantTracer.Start(c.Request.Context(), "assistant_chat")
		defer span.End()

		messages := append(append([]llm.Message(nil), req.History...), llm.Message{
			Role:    "user",
			Content: req.Message,
		})
		reply, err := client.Chat(ctx, messages)
		if err != nil {
			slog.Error("assistant chat failed", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "upstream",
				"message": err.Error(),
			})
			return
		}

		logged := true
		userID := ""
		if claims := middleware.GetClaims(c); claims != nil {
			userID = claims.UserID
		}
		logErr := svc.SaveChatInteraction(ctx, analytics.ChatRecord{
			SessionID:   req.SessionID,
			UserID:      userID,
			UserMessage: req.Message,
			AIResponse:  reply,
			ContextData: req.Context,
		})
		if logErr != nil {
			slog.Warn("chat interaction not logged", "error", logErr)
			logged = false
		}

		c.JSON(http.StatusOK, gin.H{"response": reply, "logged": logged})
	}
}
