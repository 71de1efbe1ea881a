// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm talks to the model vendors behind both pipeline stages. Each
// vendor is a Completer; Assistant adapts a Completer to the ranking and
// analysis clients with prompt rendering, pacing and retry.
package llm

import "context"

// Request is one chat completion: a system prompt and a single user turn.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Completer sends a single request to a vendor and returns the reply text.
// Failures are *APIError values classified by kind.
type Completer interface {
	// Name identifies the provider and model for logs and run history.
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}
