// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// UsageEventType classifies a downstream usage telemetry record.
type UsageEventType string

const (
	// EventLookup is a direct index lookup against authored content.
	EventLookup UsageEventType = "lookup"

	// EventRetrieval is a full content retrieval.
	EventRetrieval UsageEventType = "retrieval"

	// EventFallback records the consumer falling back past the
	// knowledge base to another source.
	EventFallback UsageEventType = "fallback"

	// EventGap records a query the knowledge base could not answer.
	EventGap UsageEventType = "gap"
)

// UsageEvent is one downstream telemetry record. ID doubles as the
// idempotency key: the store ignores duplicate inserts, so a re-queued
// flush after a partial failure cannot double-count.
type UsageEvent struct {
	ID              string         `json:"id" yaml:"id"`
	KnowledgeBaseID string         `json:"knowledge_base_id" yaml:"knowledge_base_id"`
	ContentID       string         `json:"content_id,omitempty" yaml:"content_id,omitempty"`
	Type            UsageEventType `json:"type" yaml:"type"`
	Query           string         `json:"query,omitempty" yaml:"query,omitempty"`
	Success         bool           `json:"success" yaml:"success"`
	Helpful         bool           `json:"helpful" yaml:"helpful"`
	FollowUp        bool           `json:"follow_up" yaml:"follow_up"`
	LatencyMS       float64        `json:"latency_ms" yaml:"latency_ms"`
	Timestamp       time.Time      `json:"timestamp" yaml:"timestamp"`
}

// ContentEffectiveness aggregates usage events for one content record.
type ContentEffectiveness struct {
	ContentID    string  `json:"content_id" yaml:"content_id"`
	Lookups      int     `json:"lookups" yaml:"lookups"`
	SuccessRate  float64 `json:"success_rate" yaml:"success_rate"`
	HelpfulRate  float64 `json:"helpful_rate" yaml:"helpful_rate"`
	FollowUpRate float64 `json:"follow_up_rate" yaml:"follow_up_rate"`
	AvgLatencyMS float64 `json:"avg_latency_ms" yaml:"avg_latency_ms"`

	// Score is in [0,100].
	Score            float64 `json:"score" yaml:"score"`
	NeedsImprovement bool    `json:"needs_improvement" yaml:"needs_improvement"`
}

// GapPriority ranks a knowledge gap bucket by occurrence count.
type GapPriority string

const (
	GapHigh   GapPriority = "high"
	GapMedium GapPriority = "medium"
	GapLow    GapPriority = "low"
)

// KnowledgeGap is a cluster of similar failed or unanswered queries.
type KnowledgeGap struct {
	Queries  []string    `json:"queries" yaml:"queries"`
	Count    int         `json:"count" yaml:"count"`
	Priority GapPriority `json:"priority" yaml:"priority"`
}

// TuningReport is the feedback loop's output for one analysis window.
type TuningReport struct {
	KnowledgeBaseID string                 `json:"knowledge_base_id" yaml:"knowledge_base_id"`
	WindowStart     time.Time              `json:"window_start" yaml:"window_start"`
	WindowEnd       time.Time              `json:"window_end" yaml:"window_end"`
	Effectiveness   []ContentEffectiveness `json:"effectiveness" yaml:"effectiveness"`
	Gaps            []KnowledgeGap         `json:"gaps" yaml:"gaps"`
	Recommendations []string               `json:"recommendations" yaml:"recommendations"`
}
