// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review scores authored content on five dimensions and gates
// acceptance.
package review

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/pdiddy/kbgen/internal/llm"
	"github.com/pdiddy/kbgen/pkg/types"
)

// Dimension weights for the overall score.
const (
	weightAccuracy         = 0.25
	weightCompleteness     = 0.20
	weightConsistency      = 0.20
	weightClarity          = 0.20
	weightExerciseValidity = 0.15
)

// Gate thresholds.
const (
	MinScoreStrict  = 75.0
	MinScoreLenient = 60.0
)

// Reviewer is the quality review stage.
type Reviewer struct {
	llm llm.Client
	cfg types.ReviewConfig
	log *zap.Logger
}

// NewReviewer wires the reviewer.
func NewReviewer(llmClient llm.Client, cfg types.ReviewConfig, log *zap.Logger) *Reviewer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reviewer{llm: llmClient, cfg: cfg, log: log}
}

// MinScore returns the active gate threshold.
func (r *Reviewer) MinScore() float64 {
	if r.cfg.Strict {
		return MinScoreStrict
	}
	return MinScoreLenient
}

// check is one dimension check definition.
type check struct {
	name     string
	system   string
	prompt   func(kc *types.KnowledgeContent, rr *types.ResearchResult) string
	fallback float64
}

// checkResult is each check's JSON contract.
type checkResult struct {
	Score         float64       `json:"score"`
	Issues        []types.Issue `json:"issues"`
	MissingTopics []string      `json:"missing_topics"`
}

// Review runs the five dimension checks, combines them into the overall
// score, and evaluates the quality gate. Malformed check output falls
// back to a deterministic score; transport errors fail the stage.
func (r *Reviewer) Review(ctx context.Context, kc *types.KnowledgeContent, rr *types.ResearchResult) (*types.QualityReview, error) {
	review := &types.QualityReview{}

	checks := []check{
		{"accuracy", accuracySystemPrompt, accuracyPrompt, 70},
		{"completeness", completenessSystemPrompt, completenessPrompt, 70},
		{"consistency", consistencySystemPrompt, consistencyPrompt, 75},
		{"clarity", claritySystemPrompt, clarityPrompt, 75},
		{"exercise_validity", exercisesSystemPrompt, exercisesPromptFor, 80},
	}

	scores := make([]float64, len(checks))
	for i, c := range checks {
		result, outcome, err := r.runCheck(ctx, c, kc, rr)
		if err != nil {
			return nil, fmt.Errorf("%s check: %w", c.name, err)
		}
		if outcome == llm.OutcomeFallback {
			r.log.Warn("review check fell back", zap.String("check", c.name), zap.String("subtopic", kc.Metadata.Subtopic))
		}
		scores[i] = clamp100(result.Score)
		review.Issues = append(review.Issues, result.Issues...)
		review.MissingTopics = append(review.MissingTopics, result.MissingTopics...)
	}

	review.Dimensions = types.DimensionScores{
		Accuracy:         scores[0],
		Completeness:     scores[1],
		Consistency:      scores[2],
		Clarity:          scores[3],
		ExerciseValidity: scores[4],
	}
	review.OverallScore = OverallScore(review.Dimensions)
	review.Passed = PassesGate(review.OverallScore, review.Issues, r.MinScore())
	review.Summary = fmt.Sprintf("%s scored %.0f/100 with %d issue(s)",
		kc.Metadata.Subtopic, review.OverallScore, len(review.Issues))

	if r.cfg.AutoFix && len(review.Issues) > 0 && onlyMinorIssues(review.Issues) {
		improvements, err := r.proposeImprovements(ctx, kc, review.Issues)
		if err != nil {
			r.log.Warn("auto-fix call failed", zap.Error(err))
		} else {
			// Advisory only: improvements are reported, never merged
			// back into the structured content.
			review.Improvements = improvements
		}
	}

	r.log.Info("quality review complete",
		zap.String("subtopic", kc.Metadata.Subtopic),
		zap.Float64("score", review.OverallScore),
		zap.Bool("passed", review.Passed))

	return review, nil
}

// runCheck executes one dimension check with its fallback.
func (r *Reviewer) runCheck(ctx context.Context, c check, kc *types.KnowledgeContent, rr *types.ResearchResult) (checkResult, llm.Outcome, error) {
	raw, err := r.llm.Complete(ctx, llm.Request{
		System: c.system,
		Prompt: c.prompt(kc, rr),
	})
	if err != nil {
		return checkResult{}, llm.OutcomeParsed, err
	}

	var result checkResult
	if err := llm.Decode(raw, &result); err != nil {
		return checkResult{Score: c.fallback}, llm.OutcomeFallback, nil
	}
	return result, llm.OutcomeParsed, nil
}

// OverallScore combines the five dimension scores with fixed weights,
// clamped to [0,100].
func OverallScore(d types.DimensionScores) float64 {
	return clamp100(weightAccuracy*d.Accuracy +
		weightCompleteness*d.Completeness +
		weightConsistency*d.Consistency +
		weightClarity*d.Clarity +
		weightExerciseValidity*d.ExerciseValidity)
}

// PassesGate reports whether content passes the quality gate: overall
// score at or above minScore and no critical issue.
func PassesGate(overallScore float64, issues []types.Issue, minScore float64) bool {
	if overallScore < minScore {
		return false
	}
	for _, issue := range issues {
		if issue.Severity == types.SeverityCritical {
			return false
		}
	}
	return true
}

// onlyMinorIssues reports whether every issue is minor or a suggestion.
func onlyMinorIssues(issues []types.Issue) bool {
	for _, issue := range issues {
		if issue.Severity == types.SeverityCritical || issue.Severity == types.SeverityMajor {
			return false
		}
	}
	return true
}

// proposeImprovements asks the model for textual fixes for the listed
// issues.
func (r *Reviewer) proposeImprovements(ctx context.Context, kc *types.KnowledgeContent, issues []types.Issue) ([]types.Improvement, error) {
	raw, err := r.llm.Complete(ctx, llm.Request{
		System: improveSystemPrompt,
		Prompt: improvePrompt(kc, issues),
	})
	if err != nil {
		return nil, err
	}
	var improvements []types.Improvement
	if err := llm.Decode(raw, &improvements); err != nil {
		return nil, err
	}
	return improvements, nil
}

// clamp100 bounds v to [0,100] and maps NaN to 0.
func clamp100(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(100, math.Max(0, v))
}
