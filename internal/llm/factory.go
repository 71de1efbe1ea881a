// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"fmt"
	"net/http"

	"github.com/pdiddy/paper-digest/pkg/types"
)

// KeyNames maps each provider to the secret holding its API key.
var KeyNames = map[types.Provider]string{
	types.ProviderAnthropic: "anthropic-api-key",
	types.ProviderDeepSeek:  "deepseek-api-key",
	types.ProviderQwen:      "qwen-api-key",
	types.ProviderOpenAI:    "openai-api-key",
}

// autoOrder is the provider preference when none is configured.
var autoOrder = []types.Provider{
	types.ProviderQwen,
	types.ProviderDeepSeek,
	types.ProviderAnthropic,
	types.ProviderOpenAI,
}

var defaultModels = map[types.Provider]string{
	types.ProviderAnthropic: defaultClaudeModel,
	types.ProviderDeepSeek:  "deepseek-chat",
	types.ProviderQwen:      "qwen-plus",
	types.ProviderOpenAI:    "gpt-4o-mini",
}

// SelectProvider resolves the provider and key to use. An explicit provider
// must have a key (cfg.APIKey or its secret). With no provider configured,
// the first provider in auto order with a key wins.
func SelectProvider(cfg types.AIConfig, keys map[string]string) (types.Provider, string, error) {
	if cfg.Provider != types.ProviderAuto {
		name, ok := KeyNames[cfg.Provider]
		if !ok {
			return "", "", &types.ConfigError{Field: "ai.provider", Reason: fmt.Sprintf("unknown provider %q", cfg.Provider)}
		}
		key := cfg.APIKey
		if key == "" {
			key = keys[name]
		}
		if key == "" {
			return "", "", &types.ConfigError{Field: "ai.api_key", Reason: fmt.Sprintf("no API key for %s (set %s)", cfg.Provider, name)}
		}
		return cfg.Provider, key, nil
	}

	for _, p := range autoOrder {
		if key := keys[KeyNames[p]]; key != "" {
			return p, key, nil
		}
	}
	if cfg.APIKey != "" {
		return types.ProviderAnthropic, cfg.APIKey, nil
	}
	return "", "", &types.ConfigError{Field: "ai.provider", Reason: "no provider configured and no API key found"}
}

// NewCompleter builds the Completer for cfg.
func NewCompleter(cfg types.AIConfig, keys map[string]string) (Completer, error) {
	provider, key, err := SelectProvider(cfg, keys)
	if err != nil {
		return nil, err
	}

	model := cfg.Model
	if model == "" {
		model = defaultModels[provider]
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}

	switch provider {
	case types.ProviderAnthropic:
		return &ClaudeCompleter{APIKey: key, Model: model, URL: cfg.BaseURL, Client: httpClient}, nil
	case types.ProviderDeepSeek:
		return NewOpenAICompleter(string(provider), key, model, baseURL(cfg, deepSeekBaseURL), cfg.Timeout, nil), nil
	case types.ProviderQwen:
		return NewOpenAICompleter(string(provider), key, model, baseURL(cfg, qwenBaseURL), cfg.Timeout, nil), nil
	default:
		return NewOpenAICompleter(string(provider), key, model, baseURL(cfg, ""), cfg.Timeout, nil), nil
	}
}

func baseURL(cfg types.AIConfig, fallback string) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return fallback
}
