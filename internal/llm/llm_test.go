// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/internal/analyze"
	"github.com/pdiddy/paper-digest/internal/rank"
	"github.com/pdiddy/paper-digest/pkg/types"
)

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

// --- fake completer ---

type fakeCompleter struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	requests []Request
}

func (f *fakeCompleter) Name() string { return "fake/model" }

func (f *fakeCompleter) Complete(_ context.Context, req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.requests)
	f.requests = append(f.requests, req)
	if n < len(f.errs) && f.errs[n] != nil {
		return "", f.errs[n]
	}
	if n < len(f.replies) {
		return f.replies[n], nil
	}
	return f.replies[len(f.replies)-1], nil
}

// --- Claude ---

func TestClaudeCompleter_Success(t *testing.T) {
	var got claudeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}]}`)
	}))
	defer srv.Close()

	orig := claudeAPIURL
	claudeAPIURL = srv.URL
	defer func() { claudeAPIURL = orig }()

	c := &ClaudeCompleter{APIKey: "test-key", Model: "claude-test"}
	out, err := c.Complete(context.Background(), Request{System: "sys", User: "hi", MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, "sys", got.System)
	assert.Equal(t, 100, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hi", got.Messages[0].Content)
	assert.Equal(t, "anthropic/claude-test", c.Name())
}

func TestClaudeCompleter_ErrorKinds(t *testing.T) {
	tests := []struct {
		status    int
		wantKind  Kind
		transient bool
	}{
		{http.StatusTooManyRequests, KindRateLimit, true},
		{http.StatusInternalServerError, KindAPI, true},
		{http.StatusBadRequest, KindAPI, false},
		{http.StatusUnauthorized, KindAPI, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":"nope"}`)
			}))
			defer srv.Close()

			c := &ClaudeCompleter{APIKey: "k", URL: srv.URL}
			_, err := c.Complete(context.Background(), Request{User: "x"})
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.transient, apiErr.IsTransient())
		})
	}
}

func TestClaudeCompleter_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := &ClaudeCompleter{APIKey: "k", URL: url}
	_, err := c.Complete(context.Background(), Request{User: "x"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindNetwork, apiErr.Kind)
	assert.Equal(t, "network", apiErr.ErrorKind())
}

// --- OpenAI-compatible ---

func TestOpenAICompleter_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer ds-key", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "deepseek-chat", req["model"])
		msgs, _ := req["messages"].([]any)
		assert.Len(t, msgs, 2)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"deepseek-chat",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"ranked"}}]}`)
	}))
	defer srv.Close()

	c := NewOpenAICompleter("deepseek", "ds-key", "deepseek-chat", srv.URL+"/v1/", time.Second, srv.Client())
	out, err := c.Complete(context.Background(), Request{System: "s", User: "u", MaxTokens: 50})
	require.NoError(t, err)
	assert.Equal(t, "ranked", out)
	assert.Equal(t, "deepseek/deepseek-chat", c.Name())
}

func TestOpenAICompleter_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit_error"}}`)
	}))
	defer srv.Close()

	c := NewOpenAICompleter("qwen", "k", "qwen-plus", srv.URL+"/", time.Second, srv.Client())
	_, err := c.Complete(context.Background(), Request{User: "u"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, KindRateLimit, apiErr.Kind)
	assert.Equal(t, "qwen", apiErr.Provider)
}

// --- retry ---

func TestCallWithRetry_RecoversFromTransient(t *testing.T) {
	calls := 0
	out, err := callWithRetry(context.Background(), 3, zerolog.Nop(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &APIError{Kind: KindNetwork, Err: errors.New("reset")}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
}

func TestCallWithRetry_Exhausted(t *testing.T) {
	calls := 0
	_, err := callWithRetry(context.Background(), 3, zerolog.Nop(), func(context.Context) (string, error) {
		calls++
		return "", &APIError{Kind: KindRateLimit, StatusCode: 429}
	})
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindRateLimit, apiErr.Kind)
}

func TestCallWithRetry_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	_, err := callWithRetry(context.Background(), 3, zerolog.Nop(), func(context.Context) (string, error) {
		calls++
		return "", &APIError{Kind: KindAPI, StatusCode: 400}
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.NotErrorIs(t, err, ErrAttemptsExhausted)
}

func TestCallWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	orig := backoffBase
	backoffBase = time.Hour
	defer func() { backoffBase = orig }()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := callWithRetry(ctx, 3, zerolog.Nop(), func(context.Context) (string, error) {
		cancel()
		return "", &APIError{Kind: KindNetwork}
	})
	assert.ErrorIs(t, err, context.Canceled)
}

// --- assistant ---

func testAIConfig() types.AIConfig {
	return types.AIConfig{MaxRetries: 3}
}

func TestAssistant_Rank(t *testing.T) {
	fc := &fakeCompleter{replies: []string{
		"```json\n" + `[{"paper_id":"2401.00001","score":4.2,"justification":"good"},{"paper_id":"2401.00002","score":2}]` + "\n```",
	}}
	a := NewAssistant(fc, testAIConfig(), zerolog.Nop())

	var observed []string
	a.Observe = func(stage string, _ time.Duration) { observed = append(observed, stage) }

	papers := []types.Paper{
		{ID: "2401.00001", Title: "First", Abstract: "About \"quotes\"\nand lines"},
		{ID: "2401.00002", Title: "Second", Abstract: "Other"},
	}
	w := rank.Window{Index: 0, IDs: []string{"2401.00001", "2401.00002"}}

	res, err := a.Rank(context.Background(), w, papers)
	require.NoError(t, err)
	assert.Equal(t, 4.2, res["2401.00001"].Value)
	assert.Equal(t, "good", res["2401.00001"].Justification)
	assert.Equal(t, 2.0, res["2401.00002"].Value)
	assert.Equal(t, []string{StageRanking}, observed)

	require.Len(t, fc.requests, 1)
	req := fc.requests[0]
	assert.Equal(t, rankingSystemPrompt, req.System)
	assert.Contains(t, req.User, `"paper_id": "2401.00001"`)
	assert.Contains(t, req.User, `About \"quotes\" and lines`)
}

func TestAssistant_RankParseErrorNotRetried(t *testing.T) {
	fc := &fakeCompleter{replies: []string{"I refuse."}}
	a := NewAssistant(fc, testAIConfig(), zerolog.Nop())

	_, err := a.Rank(context.Background(), rank.Window{Index: 4, IDs: []string{"a"}}, []types.Paper{{ID: "a"}})
	var pe *rank.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 4, pe.Window)
	assert.Len(t, fc.requests, 1)
}

func TestAssistant_AnalyzeRetriesTransient(t *testing.T) {
	fc := &fakeCompleter{
		errs:    []error{&APIError{Kind: KindRateLimit, StatusCode: 429}},
		replies: []string{"", "**Paper ID**: x\nanalysis"},
	}
	a := NewAssistant(fc, testAIConfig(), zerolog.Nop())

	b := analyze.Batch{Index: 2, Items: []analyze.Item{{ID: "x", Title: "T", Text: "body", FullText: true}}}
	out, err := a.Analyze(context.Background(), b, types.AnalysisDetailed)
	require.NoError(t, err)
	assert.Contains(t, out, "analysis")
	require.Len(t, fc.requests, 2)

	req := fc.requests[1]
	assert.Contains(t, req.System, "180-220 words")
	assert.Contains(t, req.User, "**Paper ID**: x")
	assert.Contains(t, req.User, "**Full Text**:\nbody")
}

func TestAssistant_AnalyzeFailureCarriesKind(t *testing.T) {
	fc := &fakeCompleter{errs: []error{
		&APIError{Kind: KindNetwork}, &APIError{Kind: KindNetwork}, &APIError{Kind: KindNetwork},
	}, replies: []string{""}}
	a := NewAssistant(fc, testAIConfig(), zerolog.Nop())

	_, err := a.Analyze(context.Background(), analyze.Batch{Items: []analyze.Item{{ID: "x"}}}, types.AnalysisQuick)
	require.Error(t, err)
	assert.Equal(t, "network", analyze.ErrorKind(err))
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
}

// --- factory ---

func TestSelectProvider(t *testing.T) {
	keys := map[string]string{"deepseek-api-key": "ds", "anthropic-api-key": "an"}

	p, key, err := SelectProvider(types.AIConfig{}, keys)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderDeepSeek, p)
	assert.Equal(t, "ds", key)

	p, key, err = SelectProvider(types.AIConfig{}, map[string]string{"qwen-api-key": "q", "deepseek-api-key": "ds"})
	require.NoError(t, err)
	assert.Equal(t, types.ProviderQwen, p)
	assert.Equal(t, "q", key)

	p, key, err = SelectProvider(types.AIConfig{Provider: types.ProviderAnthropic}, keys)
	require.NoError(t, err)
	assert.Equal(t, types.ProviderAnthropic, p)
	assert.Equal(t, "an", key)

	_, _, err = SelectProvider(types.AIConfig{Provider: types.ProviderOpenAI}, keys)
	var ce *types.ConfigError
	assert.True(t, errors.As(err, &ce))

	_, _, err = SelectProvider(types.AIConfig{}, nil)
	assert.True(t, errors.As(err, &ce))
}

func TestNewCompleter(t *testing.T) {
	c, err := NewCompleter(types.AIConfig{Provider: types.ProviderAnthropic, APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ClaudeCompleter{}, c)
	assert.Equal(t, "anthropic/"+defaultClaudeModel, c.Name())

	c, err = NewCompleter(types.AIConfig{Model: "qwen-max"}, map[string]string{"qwen-api-key": "q"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAICompleter{}, c)
	assert.Equal(t, "qwen/qwen-max", c.Name())
}
