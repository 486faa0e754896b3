// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

const defaultSystemPrompt = "You are the operations assistant for an airline-catering " +
	"facility. You help supervisors interpret productivity metrics, error rates, and " +
	"inventory validation results. Answer briefly and concretely."

// OpenAIClient implements Client against the OpenAI chat API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates an assistant chat client. An empty model defaults
// to gpt-4o-mini.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("assistant model not set, defaulting to gpt-4o-mini")
	}
	slog.Info("initializing assistant client", "model", model)
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// Chat implements the Client interface. A system prompt is prepended unless
// the conversation already carries one.
func (o *OpenAIClient) Chat(ctx context.Context, messages []Message) (string, error) {
	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if len(messages) == 0 || messages[0].Role != openai.ChatMessageRoleSystem {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: defaultSystemPrompt,
		})
	}
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: chatMessages,
	})
	if err != nil {
		slog.Error("assistant API call failed", "error", err)
		return "", fmt.Errorf("assistant API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("assistant returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
