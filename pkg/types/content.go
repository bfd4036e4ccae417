// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ContentSection is one authored body section.
type ContentSection struct {
	Title     string   `json:"title" yaml:"title"`
	Body      string   `json:"body" yaml:"body"`
	KeyPoints []string `json:"key_points,omitempty" yaml:"key_points,omitempty"`
}

// VocabularyEntry is one authored vocabulary item with its secondary
// language translation.
type VocabularyEntry struct {
	Term         string   `json:"term" yaml:"term"`
	TermDE       string   `json:"term_de,omitempty" yaml:"term_de,omitempty"`
	Definition   string   `json:"definition" yaml:"definition"`
	PartOfSpeech string   `json:"part_of_speech,omitempty" yaml:"part_of_speech,omitempty"`
	Example      string   `json:"example,omitempty" yaml:"example,omitempty"`
	Level        string   `json:"level" yaml:"level"`
	Synonyms     []string `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
}

// MistakePattern is a common learner error with its correction.
type MistakePattern struct {
	Pattern     string `json:"pattern" yaml:"pattern"`
	Correction  string `json:"correction" yaml:"correction"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`
}

// GrammarRule is one authored grammar rule.
type GrammarRule struct {
	Name           string           `json:"name" yaml:"name"`
	Explanation    string           `json:"explanation" yaml:"explanation"`
	Formula        string           `json:"formula,omitempty" yaml:"formula,omitempty"`
	Examples       []string         `json:"examples,omitempty" yaml:"examples,omitempty"`
	CommonMistakes []MistakePattern `json:"common_mistakes,omitempty" yaml:"common_mistakes,omitempty"`
	Keywords       []string         `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Category       string           `json:"category,omitempty" yaml:"category,omitempty"`
	Level          string           `json:"level" yaml:"level"`
}

// Exercise is one authored exercise.
type Exercise struct {
	ID          string   `json:"id" yaml:"id"`
	Type        string   `json:"type" yaml:"type"`
	Question    string   `json:"question" yaml:"question"`
	Options     []string `json:"options,omitempty" yaml:"options,omitempty"`
	Answer      string   `json:"answer" yaml:"answer"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
}

// QuickReference is a trigger→response card for low-latency lookup.
type QuickReference struct {
	Trigger  string `json:"trigger" yaml:"trigger"`
	Response string `json:"response" yaml:"response"`
}

// RLMIndex is the bundle of precomputed lookup structures built from
// authored content. All map keys are sanitized: lowercase,
// diacritic-folded, ASCII-only.
type RLMIndex struct {
	GrammarIndex       map[string][]GrammarRule     `json:"grammar_index" yaml:"grammar_index"`
	VocabularyByTerm   map[string]VocabularyEntry   `json:"vocabulary_by_term" yaml:"vocabulary_by_term"`
	VocabularyByTermDE map[string]VocabularyEntry   `json:"vocabulary_by_term_de" yaml:"vocabulary_by_term_de"`
	VocabularyByLevel  map[string][]VocabularyEntry `json:"vocabulary_by_level" yaml:"vocabulary_by_level"`
	MistakePatterns    []MistakePattern             `json:"mistake_patterns" yaml:"mistake_patterns"`
	TopicKeywords      []string                     `json:"topic_keywords" yaml:"topic_keywords"`
	QuickReference     []QuickReference             `json:"quick_reference" yaml:"quick_reference"`
	ExercisesByType    map[string][]string          `json:"exercises_by_type" yaml:"exercises_by_type"`
}

// SourceAttribution credits one source in the final content.
type SourceAttribution struct {
	URL    string `json:"url" yaml:"url"`
	Title  string `json:"title" yaml:"title"`
	Domain string `json:"domain" yaml:"domain"`
}

// ContentMetadata describes one authored content record.
type ContentMetadata struct {
	Subtopic        string          `json:"subtopic" yaml:"subtopic"`
	Topic           string          `json:"topic" yaml:"topic"`
	Level           string          `json:"level" yaml:"level"`
	ResearchQuality ResearchQuality `json:"research_quality" yaml:"research_quality"`
	WordCount       int             `json:"word_count" yaml:"word_count"`
	GeneratedAt     time.Time       `json:"generated_at" yaml:"generated_at"`

	// FallbackStages lists every model call across the pipeline that
	// fell back to deterministic output, so degraded content is
	// distinguishable from genuine model output in the persisted record.
	FallbackStages []string `json:"fallback_stages,omitempty" yaml:"fallback_stages,omitempty"`
}

// ContentBody is the authored structured content.
type ContentBody struct {
	Objectives   []string          `json:"objectives" yaml:"objectives"`
	Introduction string            `json:"introduction" yaml:"introduction"`
	Sections     []ContentSection  `json:"sections" yaml:"sections"`
	Vocabulary   []VocabularyEntry `json:"vocabulary,omitempty" yaml:"vocabulary,omitempty"`
	GrammarRules []GrammarRule     `json:"grammar_rules,omitempty" yaml:"grammar_rules,omitempty"`
	Exercises    []Exercise        `json:"exercises,omitempty" yaml:"exercises,omitempty"`
	Summary      string            `json:"summary" yaml:"summary"`
}

// KnowledgeContent is the final artifact for one subtopic: metadata,
// content body, optimization indexes, and source attributions.
type KnowledgeContent struct {
	ID              string              `json:"id" yaml:"id"`
	KnowledgeBaseID string              `json:"knowledge_base_id" yaml:"knowledge_base_id"`
	JobID           string              `json:"job_id" yaml:"job_id"`
	Metadata        ContentMetadata     `json:"metadata" yaml:"metadata"`
	Body            ContentBody         `json:"body" yaml:"body"`
	RLM             RLMIndex            `json:"rlm" yaml:"rlm"`
	Attributions    []SourceAttribution `json:"attributions,omitempty" yaml:"attributions,omitempty"`
}
