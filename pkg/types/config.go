// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "kbgen/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxTokens is the response token budget per call (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature is the sampling temperature (default 0.3).
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// SearchConfig holds settings for the web search service.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the authentication key for the search API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Depth selects the search depth: "basic" or "advanced".
	Depth string `json:"depth" yaml:"depth"`

	// MaxResults is the maximum number of results per query (default 5).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// IncludeDomains restricts results to the listed domains when set.
	IncludeDomains []string `json:"include_domains,omitempty" yaml:"include_domains,omitempty"`
}

// ResearchConfig holds settings for the research collection stage.
type ResearchConfig struct {
	// MaxSources caps the number of sources gathered per subtopic.
	// Zero means the scale preset's per-subtopic source count is used.
	MaxSources int `json:"max_sources" yaml:"max_sources"`
}

// VerifyConfig holds settings for the source verification stage.
type VerifyConfig struct {
	// Enabled controls whether verification runs at all.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// MinConfidence is the exclusion threshold for fact recommendations
	// (default 0.5).
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`

	// RequireMultiSource demands at least two supporting sources before a
	// fact can be included without a citation note.
	RequireMultiSource bool `json:"require_multi_source" yaml:"require_multi_source"`
}

// OrganizeConfig holds settings for the content organization stage.
type OrganizeConfig struct {
	// TargetLevel is the learner level the outline aims at (CEFR, default "B1").
	TargetLevel string `json:"target_level" yaml:"target_level"`

	// EnableExercises controls whether an exercise plan is produced.
	EnableExercises bool `json:"enable_exercises" yaml:"enable_exercises"`
}

// WriteConfig holds settings for the content writing stage.
type WriteConfig struct {
	// Language is the primary content language (default "en").
	Language string `json:"language" yaml:"language"`

	// SecondaryLanguage is the translation language for vocabulary
	// entries (default "de").
	SecondaryLanguage string `json:"secondary_language" yaml:"secondary_language"`
}

// ReviewConfig holds settings for the quality review stage.
type ReviewConfig struct {
	// Enabled controls whether the quality review runs at all.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Strict raises the quality gate threshold from 60 to 75.
	Strict bool `json:"strict" yaml:"strict"`

	// AutoFix enables the advisory improvement pass when only minor
	// issues are found.
	AutoFix bool `json:"auto_fix" yaml:"auto_fix"`

	// AutoRetryOnFail restarts a subtopic's pipeline when the quality
	// gate fails and retries remain.
	AutoRetryOnFail bool `json:"auto_retry_on_fail" yaml:"auto_retry_on_fail"`

	// MaxRetries bounds extra pipeline attempts per subtopic (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// StoreConfig holds settings for the persistent job/content store.
type StoreConfig struct {
	// Path is the SQLite database file (default "kbgen.db").
	Path string `json:"path" yaml:"path"`
}

// FeedbackConfig holds settings for the usage-telemetry feedback loop.
type FeedbackConfig struct {
	// FlushThreshold flushes the event buffer once this many events
	// accumulate (default 50).
	FlushThreshold int `json:"flush_threshold" yaml:"flush_threshold"`

	// FlushInterval flushes the event buffer on this cadence (default 30s).
	FlushInterval time.Duration `json:"flush_interval" yaml:"flush_interval"`

	// Window is the analysis time window for effectiveness and gap
	// reports (default 7 days).
	Window time.Duration `json:"window" yaml:"window"`
}

// PipelineConfig groups all stage configurations for the generation pipeline.
type PipelineConfig struct {
	AI       AIConfig       `json:"ai" yaml:"ai"`
	Search   SearchConfig   `json:"search" yaml:"search"`
	Research ResearchConfig `json:"research" yaml:"research"`
	Verify   VerifyConfig   `json:"verify" yaml:"verify"`
	Organize OrganizeConfig `json:"organize" yaml:"organize"`
	Write    WriteConfig    `json:"write" yaml:"write"`
	Review   ReviewConfig   `json:"review" yaml:"review"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Feedback FeedbackConfig `json:"feedback" yaml:"feedback"`
}

// DefaultPipelineConfig returns a PipelineConfig with every default filled in.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		AI: AIConfig{
			Model:       "claude-sonnet-4-5-20250929",
			MaxTokens:   4096,
			Temperature: 0.3,
		},
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, UserAgent: "kbgen/0.1"},
			Depth:      "advanced",
			MaxResults: 5,
		},
		Verify: VerifyConfig{
			Enabled:       true,
			MinConfidence: 0.5,
		},
		Organize: OrganizeConfig{
			TargetLevel:     "B1",
			EnableExercises: true,
		},
		Write: WriteConfig{
			Language:          "en",
			SecondaryLanguage: "de",
		},
		Review: ReviewConfig{
			Enabled:         true,
			AutoRetryOnFail: true,
			MaxRetries:      2,
		},
		Store: StoreConfig{Path: "kbgen.db"},
		Feedback: FeedbackConfig{
			FlushThreshold: 50,
			FlushInterval:  30 * time.Second,
			Window:         7 * 24 * time.Hour,
		},
	}
}
