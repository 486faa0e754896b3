// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client against a vision-capable OpenAI model.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a vision client. An empty model defaults to
// gpt-4o.
func NewOpenAIClient(apiKey, model string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}
	if model == "" {
		model = "gpt-4o"
		slog.Warn("vision model not set, defaulting to gpt-4o")
	}
	slog.Info("initializing vision client", "model", model)
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

// AnalyzeBox sends the photo with the recognition instruction and validates
// the model's answer against the output schema.
func (o *OpenAIClient) AnalyzeBox(ctx context.Context, image []byte, expected, catalog []string) (*Observation, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}

	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: BuildPrompt(expected, catalog)},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL, Detail: openai.ImageURLDetailHigh},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("vision API call failed", "error", err)
		return nil, fmt.Errorf("vision API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("vision API returned no choices")
	}

	obs, err := ParseObservation(resp.Choices[0].Message.Content)
	if err != nil {
		slog.Error("vision response rejected", "error", err)
		return nil, err
	}
	slog.Debug("vision observation accepted", "weight_g", obs.WeightGrams, "labels", len(obs.Labels))
	return obs, nil
}
