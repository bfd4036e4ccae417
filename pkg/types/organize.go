// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SectionPlan is one planned section of the outline.
type SectionPlan struct {
	Title      string   `json:"title" yaml:"title"`
	Type       string   `json:"type" yaml:"type"`
	Purpose    string   `json:"purpose" yaml:"purpose"`
	KeyPoints  []string `json:"key_points" yaml:"key_points"`
	SourceRefs []string `json:"source_refs,omitempty" yaml:"source_refs,omitempty"`
}

// Outline is the planned structure for one subtopic's content.
type Outline struct {
	Title            string        `json:"title" yaml:"title"`
	Level            string        `json:"level" yaml:"level"`
	EstimatedMinutes int           `json:"estimated_minutes" yaml:"estimated_minutes"`
	Objectives       []string      `json:"objectives" yaml:"objectives"`
	Sections         []SectionPlan `json:"sections" yaml:"sections"`
}

// VocabularyPlanItem is one planned vocabulary term.
type VocabularyPlanItem struct {
	Term        string `json:"term" yaml:"term"`
	Difficulty  string `json:"difficulty" yaml:"difficulty"`
	MustInclude bool   `json:"must_include" yaml:"must_include"`
}

// GrammarPlanItem is one planned grammar rule.
type GrammarPlanItem struct {
	Name            string   `json:"name" yaml:"name"`
	Complexity      int      `json:"complexity" yaml:"complexity"` // 1-5
	Prerequisites   []string `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
	MistakePatterns []string `json:"mistake_patterns,omitempty" yaml:"mistake_patterns,omitempty"`
}

// ExerciseGroup is one planned batch of exercises.
type ExerciseGroup struct {
	Type       string `json:"type" yaml:"type"`
	Skill      string `json:"skill" yaml:"skill"`
	Difficulty string `json:"difficulty" yaml:"difficulty"`
	Count      int    `json:"count" yaml:"count"`
}

// ResearchQuality is a tier computed from source, fact, and example counts.
type ResearchQuality string

const (
	QualityBasic         ResearchQuality = "basic"
	QualityGood          ResearchQuality = "good"
	QualityComprehensive ResearchQuality = "comprehensive"
	QualityExcellent     ResearchQuality = "excellent"
)

// OrganizedContent is the organizer's output for one subtopic.
type OrganizedContent struct {
	Subtopic         string               `json:"subtopic" yaml:"subtopic"`
	Outline          Outline              `json:"outline" yaml:"outline"`
	VocabularyPlan   []VocabularyPlanItem `json:"vocabulary_plan" yaml:"vocabulary_plan"`
	GrammarPlan      []GrammarPlanItem    `json:"grammar_plan,omitempty" yaml:"grammar_plan,omitempty"`
	ExercisePlan     []ExerciseGroup      `json:"exercise_plan,omitempty" yaml:"exercise_plan,omitempty"`
	TopicConnections []string             `json:"topic_connections,omitempty" yaml:"topic_connections,omitempty"`
	Quality          ResearchQuality      `json:"quality" yaml:"quality"`

	// Fallbacks lists the model calls that fell back to deterministic output.
	Fallbacks []string `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty"`
}
