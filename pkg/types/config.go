package types

import (
	"fmt"
	"strings"
	"time"
)

// ConfigError reports an invalid configuration value. It is fatal at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-digest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// SourceConfig controls which papers the arXiv source returns.
type SourceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Categories lists arXiv categories to query (e.g. "cs.AI").
	Categories []string `json:"categories" yaml:"categories" mapstructure:"categories"`

	// MaxPapers caps the number of fetched candidates (default 50).
	MaxPapers int `json:"max_papers" yaml:"max_papers" mapstructure:"max_papers"`

	// SearchDays is how many days back to search (default 2).
	SearchDays int `json:"search_days" yaml:"search_days" mapstructure:"search_days"`

	// Keywords optionally filters candidates by title/abstract substring.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty" mapstructure:"keywords"`

	// RequestInterval is the minimum spacing between arXiv API calls (default 3s).
	RequestInterval time.Duration `json:"request_interval" yaml:"request_interval" mapstructure:"request_interval"`
}

// Provider names a model vendor.
type Provider string

const (
	ProviderAuto      Provider = ""
	ProviderAnthropic Provider = "anthropic"
	ProviderDeepSeek  Provider = "deepseek"
	ProviderQwen      Provider = "qwen"
	ProviderOpenAI    Provider = "openai"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Provider selects the vendor. Empty picks the first provider with a key.
	Provider Provider `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier; empty uses the provider default.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// Timeout bounds a single model call.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// RequestsPerMinute paces calls to the vendor; 0 disables pacing.
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// EmptyPolicy decides what happens when no paper clears the promotion threshold.
type EmptyPolicy string

const (
	// EmptySkip skips stage 2; every paper is assembled as rejected.
	EmptySkip EmptyPolicy = "skip"
	// EmptyTopK promotes the best scored papers regardless of threshold.
	EmptyTopK EmptyPolicy = "top_k"
)

// RankingConfig holds stage-1 settings.
type RankingConfig struct {
	// WindowSize is the number of papers per ranking call (default 10).
	WindowSize int `json:"window_size" yaml:"window_size" mapstructure:"window_size"`

	// StepSize is the stride between window starts (default 5).
	StepSize int `json:"step_size" yaml:"step_size" mapstructure:"step_size"`

	// PromotionThreshold is the minimum aggregated score to promote (default 3.5).
	PromotionThreshold float64 `json:"promotion_score_threshold" yaml:"promotion_score_threshold" mapstructure:"promotion_score_threshold"`

	// MaxPromoted caps the promoted set (default 20).
	MaxPromoted int `json:"max_papers_to_analyze" yaml:"max_papers_to_analyze" mapstructure:"max_papers_to_analyze"`

	// EmptyPolicy applies when nothing clears the threshold (default skip).
	EmptyPolicy EmptyPolicy `json:"empty_policy" yaml:"empty_policy" mapstructure:"empty_policy"`

	// FallbackTopK is the number of papers promoted under EmptyTopK (default 3).
	FallbackTopK int `json:"fallback_top_k" yaml:"fallback_top_k" mapstructure:"fallback_top_k"`
}

// FetchConfig holds full-text retrieval settings.
type FetchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// CacheDir stores one extracted text file per paper id.
	CacheDir string `json:"cache_dir" yaml:"cache_dir" mapstructure:"cache_dir"`

	// Sources lists retrieval strategies in order: "html", "pdf".
	Sources []string `json:"sources" yaml:"sources" mapstructure:"sources"`

	// PDFImage is the container image providing pdftotext.
	PDFImage string `json:"pdf_image" yaml:"pdf_image" mapstructure:"pdf_image"`

	// MaxChars caps the stored full text length (default 200000).
	MaxChars int `json:"max_chars" yaml:"max_chars" mapstructure:"max_chars"`
}

// AnalysisType selects prompt verbosity for stage 2.
type AnalysisType string

const (
	AnalysisQuick         AnalysisType = "quick"
	AnalysisComprehensive AnalysisType = "comprehensive"
	AnalysisDetailed      AnalysisType = "detailed"
)

// AnalysisConfig holds stage-2 settings.
type AnalysisConfig struct {
	// Type selects prompt verbosity (default comprehensive).
	Type AnalysisType `json:"analysis_type" yaml:"analysis_type" mapstructure:"analysis_type"`

	// BatchTokenBudget bounds the estimated tokens per batch (default 24000).
	BatchTokenBudget int `json:"batch_token_budget" yaml:"batch_token_budget" mapstructure:"batch_token_budget"`

	// MaxItemTokens caps each paper's text inside a batch (default 7500).
	MaxItemTokens int `json:"max_item_tokens" yaml:"max_item_tokens" mapstructure:"max_item_tokens"`

	// PromptOverheadTokens is the fixed per-batch prompt cost (default 800).
	PromptOverheadTokens int `json:"prompt_overhead_tokens" yaml:"prompt_overhead_tokens" mapstructure:"prompt_overhead_tokens"`

	// MaxBatchSize caps papers per batch; 0 means unbounded.
	MaxBatchSize int `json:"max_batch_size" yaml:"max_batch_size" mapstructure:"max_batch_size"`

	// Concurrency is the number of batches analyzed in parallel (default 2).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	// Level is the minimum level (debug, info, warn, error).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// ReportConfig controls where and how digests are written.
type ReportConfig struct {
	// OutputDir receives report files.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// Formats lists the files written per run: yaml, json, markdown.
	Formats []string `json:"formats" yaml:"formats" mapstructure:"formats"`
}

// ScheduleConfig drives the long-running schedule command.
type ScheduleConfig struct {
	// Cron is a five-field cron expression or a daily "HH:MM" time.
	Cron string `json:"cron" yaml:"cron" mapstructure:"cron"`

	// Timezone is an IANA location name (default UTC).
	Timezone string `json:"timezone" yaml:"timezone" mapstructure:"timezone"`
}

// PipelineConfig groups all stage configurations for a digest run.
type PipelineConfig struct {
	Source   SourceConfig   `json:"source" yaml:"source" mapstructure:"source"`
	AI       AIConfig       `json:"ai" yaml:"ai" mapstructure:"ai"`
	Ranking  RankingConfig  `json:"ranking" yaml:"ranking" mapstructure:"ranking"`
	Fetch    FetchConfig    `json:"fetch" yaml:"fetch" mapstructure:"fetch"`
	Analysis AnalysisConfig `json:"analysis" yaml:"analysis" mapstructure:"analysis"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging" mapstructure:"logging"`
	Report   ReportConfig   `json:"report" yaml:"report" mapstructure:"report"`
	Schedule ScheduleConfig `json:"schedule" yaml:"schedule" mapstructure:"schedule"`

	// MaxWorkers bounds the ranking and fetch pools; 0 derives from the candidate count.
	MaxWorkers int `json:"max_workers" yaml:"max_workers" mapstructure:"max_workers"`

	// RunTimeout is the outer wall-clock limit for one run.
	RunTimeout time.Duration `json:"run_timeout" yaml:"run_timeout" mapstructure:"run_timeout"`

	// HistoryDB is the SQLite path for run history; empty disables history.
	HistoryDB string `json:"history_db" yaml:"history_db" mapstructure:"history_db"`
}

// DefaultPipelineConfig returns the configuration used when nothing is set.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Source: SourceConfig{
			HTTPConfig:      HTTPConfig{Timeout: 60 * time.Second, UserAgent: "paper-digest/0.1"},
			Categories:      []string{"cs.AI", "cs.LG", "cs.CL"},
			MaxPapers:       50,
			SearchDays:      2,
			RequestInterval: 3 * time.Second,
		},
		AI: AIConfig{
			MaxRetries: 3,
			Timeout:    120 * time.Second,
		},
		Ranking: RankingConfig{
			WindowSize:         10,
			StepSize:           5,
			PromotionThreshold: 3.5,
			MaxPromoted:        20,
			EmptyPolicy:        EmptySkip,
			FallbackTopK:       3,
		},
		Fetch: FetchConfig{
			HTTPConfig: HTTPConfig{Timeout: 60 * time.Second, UserAgent: "paper-digest/0.1"},
			CacheDir:   "storage/papers",
			Sources:    []string{"html", "pdf"},
			PDFImage:   "pdftotext:latest",
			MaxChars:   200000,
		},
		Analysis: AnalysisConfig{
			Type:                 AnalysisComprehensive,
			BatchTokenBudget:     24000,
			MaxItemTokens:        7500,
			PromptOverheadTokens: 800,
			Concurrency:          2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Report: ReportConfig{
			OutputDir: "storage/reports",
			Formats:   []string{"yaml", "markdown"},
		},
		Schedule: ScheduleConfig{
			Cron:     "08:00",
			Timezone: "UTC",
		},
		RunTimeout: 30 * time.Minute,
		HistoryDB:  "storage/history.db",
	}
}

// Validate checks the values the coordinator depends on.
func (c PipelineConfig) Validate() error {
	r := c.Ranking
	if r.WindowSize <= 0 {
		return &ConfigError{Field: "ranking.window_size", Reason: "must be positive"}
	}
	if r.StepSize <= 0 {
		return &ConfigError{Field: "ranking.step_size", Reason: "must be positive"}
	}
	if r.StepSize > r.WindowSize {
		return &ConfigError{Field: "ranking.step_size", Reason: fmt.Sprintf("%d exceeds window_size %d, windows would leave gaps", r.StepSize, r.WindowSize)}
	}
	if r.MaxPromoted < 0 {
		return &ConfigError{Field: "ranking.max_papers_to_analyze", Reason: "must not be negative"}
	}
	switch r.EmptyPolicy {
	case EmptySkip, EmptyTopK:
	default:
		return &ConfigError{Field: "ranking.empty_policy", Reason: fmt.Sprintf("unknown policy %q", r.EmptyPolicy)}
	}
	if c.MaxWorkers < 0 {
		return &ConfigError{Field: "max_workers", Reason: "must not be negative"}
	}
	a := c.Analysis
	switch a.Type {
	case AnalysisQuick, AnalysisComprehensive, AnalysisDetailed:
	default:
		return &ConfigError{Field: "analysis.analysis_type", Reason: fmt.Sprintf("unknown type %q", a.Type)}
	}
	if a.BatchTokenBudget <= a.PromptOverheadTokens {
		return &ConfigError{Field: "analysis.batch_token_budget", Reason: "must exceed prompt_overhead_tokens"}
	}
	for _, f := range c.Report.Formats {
		switch strings.ToLower(f) {
		case "yaml", "json", "markdown":
		default:
			return &ConfigError{Field: "report.formats", Reason: fmt.Sprintf("unknown format %q", f)}
		}
	}
	for _, s := range c.Fetch.Sources {
		switch strings.ToLower(s) {
		case "html", "pdf":
		default:
			return &ConfigError{Field: "fetch.sources", Reason: fmt.Sprintf("unknown source %q", s)}
		}
	}
	return nil
}

// DeriveWorkers sizes a pool from the number of tasks: min(tasks, 8), never
// below 1. Pools use it when max_workers is 0.
func DeriveWorkers(tasks int) int {
	const ceiling = 8
	switch {
	case tasks < 1:
		return 1
	case tasks > ceiling:
		return ceiling
	default:
		return tasks
	}
}
