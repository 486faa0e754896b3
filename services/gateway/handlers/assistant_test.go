// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleyops/galleytrack/services/analytics"
	"github.com/galleyops/galleytrack/services/llm"
)

// =============================================================================
// Assistant Fake
// =============================================================================

type stubAssistant struct {
	reply string
	err   error

	gotMessages []llm.Message
}

func (s *stubAssistant) Chat(_ context.Context, messages []llm.Message) (string, error) {
	s.gotMessages = messages
	return s.reply, s.err
}

func assistantRouter(client llm.Client) *gin.Engine {
	router := gin.New()
	router.POST("/api/assistant/chat", AssistantChat(client, analytics.NewService(nil, nil)))
	return router
}

// =============================================================================
// Chat Tests
// =============================================================================

func TestAssistantChat_ReturnsReply(t *testing.T) {
	client := &stubAssistant{reply: "Error rates are up 2% this week."}
	router := assistantRouter(client)

	w := postJSON(t, router, "/api/assistant/chat",
		`{"message": "how are error rates trending?"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Error rates are up 2%")
	// No warehouse, so the interaction could not be logged.
	assert.Contains(t, w.Body.String(), `"logged":false`)

	require.Len(t, client.gotMessages, 1)
	assert.Equal(t, "user", client.gotMessages[0].Role)
}

func TestAssistantChat_CarriesHistory(t *testing.T) {
	client := &stubAssistant{reply: "ok"}
	router := assistantRouter(client)

	w := postJSON(t, router, "/api/assistant/chat",
		`{"message": "and yesterday?", "history": [
			{"role": "user", "content": "error rates today?"},
			{"role": "assistant", "content": "1.2%"}
		]}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, client.gotMessages, 3)
	assert.Equal(t, "and yesterday?", client.gotMessages[2].Content)
}

func TestAssistantChat_MissingMessage(t *testing.T) {
	router := assistantRouter(&stubAssistant{})

	w := postJSON(t, router, "/api/assistant/chat", `{}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssistantChat_UpstreamFailure(t *testing.T) {
	router := assistantRouter(&stubAssistant{err: fmt.Errorf("model overloaded")})

	w := postJSON(t, router, "/api/assistant/chat", `{"message": "hello"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "upstream")
}
