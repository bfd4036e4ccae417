// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Severity classifies an issue found during quality review.
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityMajor      Severity = "major"
	SeverityMinor      Severity = "minor"
	SeveritySuggestion Severity = "suggestion"
)

// Issue is one problem found during quality review.
type Issue struct {
	Severity    Severity `json:"severity" yaml:"severity"`
	Category    string   `json:"category" yaml:"category"`
	Location    string   `json:"location,omitempty" yaml:"location,omitempty"`
	Description string   `json:"description" yaml:"description"`
}

// Improvement is an advisory textual fix proposed by the auto-fix pass.
// Improvements are never merged back into the structured content.
type Improvement struct {
	Location string `json:"location" yaml:"location"`
	Original string `json:"original,omitempty" yaml:"original,omitempty"`
	Proposed string `json:"proposed" yaml:"proposed"`
	Reason   string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// DimensionScores holds the five quality dimensions, each in [0,100].
type DimensionScores struct {
	Accuracy         float64 `json:"accuracy" yaml:"accuracy"`
	Completeness     float64 `json:"completeness" yaml:"completeness"`
	Consistency      float64 `json:"consistency" yaml:"consistency"`
	Clarity          float64 `json:"clarity" yaml:"clarity"`
	ExerciseValidity float64 `json:"exercise_validity" yaml:"exercise_validity"`
}

// QualityReview is the reviewer's assessment of one KnowledgeContent.
type QualityReview struct {
	// OverallScore is the weighted combination of the dimension scores,
	// clamped to [0,100].
	OverallScore float64         `json:"overall_score" yaml:"overall_score"`
	Dimensions   DimensionScores `json:"dimensions" yaml:"dimensions"`
	Issues       []Issue         `json:"issues,omitempty" yaml:"issues,omitempty"`
	Improvements []Improvement   `json:"improvements,omitempty" yaml:"improvements,omitempty"`

	// Passed is the quality gate: overall score at or above the minimum
	// and no critical issue.
	Passed bool `json:"passed" yaml:"passed"`

	MissingTopics   []string `json:"missing_topics,omitempty" yaml:"missing_topics,omitempty"`
	Summary         string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Recommendations []string `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
}
