// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Base URLs of the OpenAI-compatible vendors.
const (
	deepSeekBaseURL = "https://api.deepseek.com/v1"
	qwenBaseURL     = "https://dashscope.aliyuncs.com/compatible-mode/v1"
)

// OpenAICompleter calls any vendor that speaks the OpenAI chat completions
// protocol: OpenAI itself, DeepSeek and Qwen.
type OpenAICompleter struct {
	provider string
	model    string
	client   openai.Client
}

// NewOpenAICompleter builds a completer for provider. An empty baseURL uses
// the SDK default. The SDK's own retries are disabled; Assistant retries.
func NewOpenAICompleter(provider, apiKey, model, baseURL string, timeout time.Duration, httpClient *http.Client) *OpenAICompleter {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAICompleter{
		provider: provider,
		model:    model,
		client:   openai.NewClient(opts...),
	}
}

// Name returns "<provider>/<model>".
func (c *OpenAICompleter) Name() string { return c.provider + "/" + c.model }

// Complete sends req as a system and a user message.
func (c *OpenAICompleter) Complete(ctx context.Context, req Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", c.classify(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &APIError{Provider: c.provider, Kind: KindAPI, Message: "empty completion"}
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAICompleter) classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		e := classifyStatus(c.provider, apiErr.StatusCode, apiErr.Message)
		e.Err = err
		return e
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &APIError{Provider: c.provider, Kind: KindNetwork, Err: err}
}
