// Copyright (C) 2025 GalleyOps (dev@galleyops.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm backs the operations chat assistant.
package llm

import "context"

// Message is one turn of an assistant conversation. Role follows the chat
// convention: "system", "user", or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client defines the standard interface for any chat backend.
type Client interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}
