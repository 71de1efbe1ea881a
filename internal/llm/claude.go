// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// claudeAPIURL is the Claude API endpoint. Package-level var for test substitution.
var claudeAPIURL = "https://api.anthropic.com/v1/messages"

const defaultClaudeModel = "claude-sonnet-4-5"

// ClaudeCompleter calls the Anthropic Messages API.
type ClaudeCompleter struct {
	APIKey string
	Model  string
	// URL overrides the Messages endpoint.
	URL    string
	Client *http.Client
}

// claudeRequest is the request body for the Claude Messages API.
type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Name returns "anthropic/<model>".
func (c *ClaudeCompleter) Name() string { return "anthropic/" + c.model() }

func (c *ClaudeCompleter) model() string {
	if c.Model == "" {
		return defaultClaudeModel
	}
	return c.Model
}

// Complete sends req as a single user message with a system prompt.
func (c *ClaudeCompleter) Complete(ctx context.Context, req Request) (string, error) {
	reqBody := claudeRequest{
		Model:     c.model(),
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  []claudeMessage{{Role: "user", Content: req.User}},
	}
	if reqBody.MaxTokens <= 0 {
		reqBody.MaxTokens = 4096
	}
	if req.Temperature > 0 {
		t := req.Temperature
		reqBody.Temperature = &t
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := c.URL
	if url == "" {
		url = claudeAPIURL
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", &APIError{Provider: "anthropic", Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", classifyStatus("anthropic", resp.StatusCode, string(body))
	}

	var cResp claudeResponse
	if err := json.NewDecoder(resp.Body).Decode(&cResp); err != nil {
		return "", &APIError{Provider: "anthropic", Kind: KindAPI, Message: "decoding response", Err: err}
	}

	var text strings.Builder
	for _, block := range cResp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", &APIError{Provider: "anthropic", Kind: KindAPI, Message: "no text content in response"}
	}
	return text.String(), nil
}
