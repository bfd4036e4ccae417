// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data model shared across the generation
// pipeline: jobs, research, verification, organized content, authored
// knowledge content, quality reviews, and usage telemetry.
package types

import "time"

// ProcessingMode selects how subtopics are scheduled within a job.
type ProcessingMode string

const (
	// ModeSequential processes subtopics one at a time.
	ModeSequential ProcessingMode = "sequential"

	// ModeParallel processes subtopics in fixed-size waves.
	ModeParallel ProcessingMode = "parallel"
)

// ScalePreset names a fixed combination of subtopic count, sources per
// subtopic, and wave concurrency.
type ScalePreset string

const (
	ScaleQuick         ScalePreset = "quick"
	ScaleStandard      ScalePreset = "standard"
	ScaleComprehensive ScalePreset = "comprehensive"
	ScaleBook          ScalePreset = "book"
)

// Preset returns the subtopic count, per-subtopic source count, and wave
// concurrency for the scale. Unknown scales fall back to standard.
func (s ScalePreset) Preset() (subtopics, sources, concurrency int) {
	switch s {
	case ScaleQuick:
		return 5, 5, 2
	case ScaleComprehensive:
		return 25, 10, 4
	case ScaleBook:
		return 50, 12, 5
	default:
		return 12, 8, 3
	}
}

// EstimatedMinutes returns the rough wall-clock estimate for a job at
// this scale: two minutes per subtopic.
func (s ScalePreset) EstimatedMinutes() int {
	subtopics, _, _ := s.Preset()
	return subtopics * 2
}

// SubtopicStatus tracks one subtopic through the pipeline. Transitions
// are monotonic along pending → scraping → synthesizing → optimizing →
// completed; any state may move to failed; a retry resets to scraping.
type SubtopicStatus string

const (
	SubtopicPending      SubtopicStatus = "pending"
	SubtopicScraping     SubtopicStatus = "scraping"
	SubtopicSynthesizing SubtopicStatus = "synthesizing"
	SubtopicOptimizing   SubtopicStatus = "optimizing"
	SubtopicCompleted    SubtopicStatus = "completed"
	SubtopicFailed       SubtopicStatus = "failed"
)

// rank orders the forward statuses for monotonicity checks.
func (s SubtopicStatus) rank() int {
	switch s {
	case SubtopicPending:
		return 0
	case SubtopicScraping:
		return 1
	case SubtopicSynthesizing:
		return 2
	case SubtopicOptimizing:
		return 3
	case SubtopicCompleted:
		return 4
	default:
		return -1
	}
}

// CanTransition reports whether moving from s to next is a legal status
// change: one step forward, any state to failed, or a retry reset from
// a non-terminal state back to scraping.
func (s SubtopicStatus) CanTransition(next SubtopicStatus) bool {
	if next == SubtopicFailed {
		return true
	}
	if next == SubtopicScraping && s != SubtopicCompleted {
		// Retry reset: the whole pipeline restarts from research.
		return true
	}
	return next.rank() == s.rank()+1
}

// JobStatus tracks the aggregate state of a generation job.
type JobStatus string

const (
	JobDiscovering JobStatus = "discovering"
	JobRunning     JobStatus = "running"
	JobCompleted   JobStatus = "completed"
	JobFailed      JobStatus = "failed"
	JobCancelled   JobStatus = "cancelled"
)

// Subtopic is one discovered facet of a topic, processed end-to-end
// through the five-stage pipeline as an independent unit of work.
type Subtopic struct {
	Name         string         `json:"name" yaml:"name"`
	Status       SubtopicStatus `json:"status" yaml:"status"`
	Attempts     int            `json:"attempts" yaml:"attempts"`
	Error        string         `json:"error,omitempty" yaml:"error,omitempty"`
	WordCount    int            `json:"word_count" yaml:"word_count"`
	QualityScore float64        `json:"quality_score" yaml:"quality_score"`
}

// GenerationJob is the persisted record of one knowledge-base
// generation run. It is owned and mutated exclusively by the
// orchestrator.
type GenerationJob struct {
	ID              string         `json:"id" yaml:"id"`
	KnowledgeBaseID string         `json:"knowledge_base_id" yaml:"knowledge_base_id"`
	Topic           string         `json:"topic" yaml:"topic"`
	Mode            ProcessingMode `json:"mode" yaml:"mode"`
	Scale           ScalePreset    `json:"scale" yaml:"scale"`
	Subtopics       []Subtopic     `json:"subtopics" yaml:"subtopics"`
	Status          JobStatus      `json:"status" yaml:"status"`
	Error           string         `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt       time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" yaml:"updated_at"`
}

// CompletedCount returns the number of subtopics that finished the
// pipeline successfully.
func (j *GenerationJob) CompletedCount() int {
	n := 0
	for _, st := range j.Subtopics {
		if st.Status == SubtopicCompleted {
			n++
		}
	}
	return n
}

// FailedCount returns the number of subtopics marked failed.
func (j *GenerationJob) FailedCount() int {
	n := 0
	for _, st := range j.Subtopics {
		if st.Status == SubtopicFailed {
			n++
		}
	}
	return n
}
