// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package organize turns research into an outline, vocabulary plan,
// grammar plan, and exercise plan for the content writer.
package organize

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/kbgen/internal/llm"
	"github.com/pdiddy/kbgen/pkg/types"
)

// languageTopicKeywords gate the grammar plan: grammar rules are only
// planned for language-related topics.
var languageTopicKeywords = []string{"english", "german", "grammar", "language"}

// Organizer is the content organization stage.
type Organizer struct {
	llm llm.Client
	cfg types.OrganizeConfig
	log *zap.Logger
}

// NewOrganizer wires the organizer.
func NewOrganizer(llmClient llm.Client, cfg types.OrganizeConfig, log *zap.Logger) *Organizer {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.TargetLevel == "" {
		cfg.TargetLevel = "B1"
	}
	return &Organizer{llm: llmClient, cfg: cfg, log: log}
}

// Organize plans one subtopic's content from research. Each planning
// call has a JSON contract and a deterministic fallback; only transport
// errors fail the stage.
func (o *Organizer) Organize(ctx context.Context, rr *types.ResearchResult, topic string) (*types.OrganizedContent, error) {
	oc := &types.OrganizedContent{
		Subtopic:         rr.Subtopic,
		TopicConnections: rr.RelatedTopics,
		Quality:          ResearchQualityTier(rr),
	}

	outline, outcome, err := o.planOutline(ctx, rr, topic)
	if err != nil {
		return nil, fmt.Errorf("planning outline: %w", err)
	}
	if outcome == llm.OutcomeFallback {
		oc.Fallbacks = append(oc.Fallbacks, "organize.outline")
		o.log.Warn("outline planning fell back", zap.String("subtopic", rr.Subtopic))
	}
	oc.Outline = outline

	vocab, outcome, err := o.planVocabulary(ctx, rr)
	if err != nil {
		return nil, fmt.Errorf("planning vocabulary: %w", err)
	}
	if outcome == llm.OutcomeFallback {
		oc.Fallbacks = append(oc.Fallbacks, "organize.vocabulary")
	}
	oc.VocabularyPlan = vocab

	if IsLanguageTopic(topic) || IsLanguageTopic(rr.Subtopic) {
		grammar, outcome, err := o.planGrammar(ctx, rr)
		if err != nil {
			return nil, fmt.Errorf("planning grammar: %w", err)
		}
		if outcome == llm.OutcomeFallback {
			oc.Fallbacks = append(oc.Fallbacks, "organize.grammar")
		}
		oc.GrammarPlan = grammar
	}

	if o.cfg.EnableExercises {
		exercises, outcome, err := o.planExercises(ctx, rr)
		if err != nil {
			return nil, fmt.Errorf("planning exercises: %w", err)
		}
		if outcome == llm.OutcomeFallback {
			oc.Fallbacks = append(oc.Fallbacks, "organize.exercises")
		}
		oc.ExercisePlan = exercises
	}

	o.log.Info("content organized",
		zap.String("subtopic", rr.Subtopic),
		zap.Int("sections", len(oc.Outline.Sections)),
		zap.String("quality", string(oc.Quality)))

	return oc, nil
}

// IsLanguageTopic reports whether a topic is heuristically
// language-related, which enables grammar planning.
func IsLanguageTopic(topic string) bool {
	lower := strings.ToLower(topic)
	for _, kw := range languageTopicKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ResearchQualityTier computes the research quality tier from a fixed
// formula over source, fact, and example counts.
func ResearchQualityTier(rr *types.ResearchResult) types.ResearchQuality {
	score := 3*len(rr.Sources) + len(rr.KeyFacts) + 2*len(rr.Examples)
	switch {
	case score < 15:
		return types.QualityBasic
	case score < 30:
		return types.QualityGood
	case score < 50:
		return types.QualityComprehensive
	default:
		return types.QualityExcellent
	}
}

// planOutline produces the section outline.
func (o *Organizer) planOutline(ctx context.Context, rr *types.ResearchResult, topic string) (types.Outline, llm.Outcome, error) {
	raw, err := o.llm.Complete(ctx, llm.Request{
		System: outlineSystemPrompt,
		Prompt: outlinePrompt(rr, topic, o.cfg.TargetLevel),
	})
	if err != nil {
		return types.Outline{}, llm.OutcomeParsed, err
	}

	var outline types.Outline
	if err := llm.Decode(raw, &outline); err != nil || len(outline.Sections) == 0 {
		return fallbackOutline(rr, o.cfg.TargetLevel), llm.OutcomeFallback, nil
	}
	if outline.Level == "" {
		outline.Level = o.cfg.TargetLevel
	}
	return outline, llm.OutcomeParsed, nil
}

// fallbackOutline builds a deterministic five-section outline from the
// research itself.
func fallbackOutline(rr *types.ResearchResult, level string) types.Outline {
	factPoints := rr.KeyFacts
	if len(factPoints) > 5 {
		factPoints = factPoints[:5]
	}
	examplePoints := rr.Examples
	if len(examplePoints) > 5 {
		examplePoints = examplePoints[:5]
	}

	return types.Outline{
		Title:            rr.Subtopic,
		Level:            level,
		EstimatedMinutes: 20,
		Objectives: []string{
			fmt.Sprintf("Understand %s", rr.Subtopic),
			fmt.Sprintf("Apply %s in practice", rr.Subtopic),
		},
		Sections: []types.SectionPlan{
			{Title: "Introduction", Type: "introduction", Purpose: "Introduce the subtopic", KeyPoints: []string{rr.Subtopic}},
			{Title: "Core Concepts", Type: "explanation", Purpose: "Explain the main rules and facts", KeyPoints: factPoints},
			{Title: "Examples", Type: "examples", Purpose: "Show concrete usage", KeyPoints: examplePoints},
			{Title: "Practice", Type: "practice", Purpose: "Apply the material", KeyPoints: nil},
			{Title: "Summary", Type: "summary", Purpose: "Recap the key points", KeyPoints: nil},
		},
	}
}

// planVocabulary produces a 15-30 term vocabulary plan.
func (o *Organizer) planVocabulary(ctx context.Context, rr *types.ResearchResult) ([]types.VocabularyPlanItem, llm.Outcome, error) {
	raw, err := o.llm.Complete(ctx, llm.Request{
		System: vocabularySystemPrompt,
		Prompt: vocabularyPrompt(rr),
	})
	if err != nil {
		return nil, llm.OutcomeParsed, err
	}

	var items []types.VocabularyPlanItem
	if err := llm.Decode(raw, &items); err != nil || len(items) == 0 {
		return fallbackVocabularyPlan(rr), llm.OutcomeFallback, nil
	}
	if len(items) > 30 {
		items = items[:30]
	}
	return items, llm.OutcomeParsed, nil
}

// fallbackVocabularyPlan derives terms from the extracted definitions.
func fallbackVocabularyPlan(rr *types.ResearchResult) []types.VocabularyPlanItem {
	var items []types.VocabularyPlanItem
	for _, d := range rr.Definitions {
		items = append(items, types.VocabularyPlanItem{
			Term:        d.Term,
			Difficulty:  "intermediate",
			MustInclude: true,
		})
	}
	return items
}

// planGrammar produces the grammar-rule plan for language topics.
func (o *Organizer) planGrammar(ctx context.Context, rr *types.ResearchResult) ([]types.GrammarPlanItem, llm.Outcome, error) {
	raw, err := o.llm.Complete(ctx, llm.Request{
		System: grammarSystemPrompt,
		Prompt: grammarPrompt(rr),
	})
	if err != nil {
		return nil, llm.OutcomeParsed, err
	}

	var items []types.GrammarPlanItem
	if err := llm.Decode(raw, &items); err != nil || len(items) == 0 {
		return []types.GrammarPlanItem{{
			Name:       rr.Subtopic,
			Complexity: 3,
		}}, llm.OutcomeFallback, nil
	}
	for i := range items {
		if items[i].Complexity < 1 {
			items[i].Complexity = 1
		}
		if items[i].Complexity > 5 {
			items[i].Complexity = 5
		}
	}
	return items, llm.OutcomeParsed, nil
}

// planExercises produces 4-8 exercise groups.
func (o *Organizer) planExercises(ctx context.Context, rr *types.ResearchResult) ([]types.ExerciseGroup, llm.Outcome, error) {
	raw, err := o.llm.Complete(ctx, llm.Request{
		System: exercisesSystemPrompt,
		Prompt: exercisesPrompt(rr),
	})
	if err != nil {
		return nil, llm.OutcomeParsed, err
	}

	var groups []types.ExerciseGroup
	if err := llm.Decode(raw, &groups); err != nil || len(groups) == 0 {
		return fallbackExercisePlan(), llm.OutcomeFallback, nil
	}
	if len(groups) > 8 {
		groups = groups[:8]
	}
	return groups, llm.OutcomeParsed, nil
}

// fallbackExercisePlan is the fixed four-group plan.
func fallbackExercisePlan() []types.ExerciseGroup {
	return []types.ExerciseGroup{
		{Type: "multiple_choice", Skill: "recognition", Difficulty: "easy", Count: 4},
		{Type: "fill_blank", Skill: "production", Difficulty: "medium", Count: 4},
		{Type: "transformation", Skill: "production", Difficulty: "medium", Count: 3},
		{Type: "error_correction", Skill: "analysis", Difficulty: "hard", Count: 3},
	}
}
