// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package writer authors the final structured content from an organized
// plan and builds the retrieval-optimization indexes.
package writer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/kbgen/internal/llm"
	"github.com/pdiddy/kbgen/pkg/types"
)

// Writer is the content authoring stage. It issues five independent
// model calls, each with its own JSON schema and a content-preserving
// fallback.
type Writer struct {
	llm llm.Client
	cfg types.WriteConfig
	log *zap.Logger
}

// NewWriter wires the writer.
func NewWriter(llmClient llm.Client, cfg types.WriteConfig, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Writer{llm: llmClient, cfg: cfg, log: log}
}

// Write authors one subtopic's content from the organizer's plan and
// the originating research, then builds the RLM index bundle.
func (w *Writer) Write(ctx context.Context, oc *types.OrganizedContent, rr *types.ResearchResult) (*types.KnowledgeContent, error) {
	var fallbacks []string
	fallbacks = append(fallbacks, rr.Fallbacks...)
	fallbacks = append(fallbacks, oc.Fallbacks...)

	body := types.ContentBody{
		Objectives: oc.Outline.Objectives,
	}

	intro, sections, outcome, err := w.writeSections(ctx, oc, rr)
	if err != nil {
		return nil, fmt.Errorf("writing sections: %w", err)
	}
	if outcome == llm.OutcomeFallback {
		fallbacks = append(fallbacks, "write.sections")
		w.log.Warn("section writing fell back to outline echo", zap.String("subtopic", oc.Subtopic))
	}
	body.Introduction = intro
	body.Sections = sections

	if len(oc.VocabularyPlan) > 0 {
		vocab, outcome, err := w.writeVocabulary(ctx, oc, rr)
		if err != nil {
			return nil, fmt.Errorf("writing vocabulary: %w", err)
		}
		if outcome == llm.OutcomeFallback {
			fallbacks = append(fallbacks, "write.vocabulary")
		}
		body.Vocabulary = vocab
	}

	if len(oc.GrammarPlan) > 0 {
		grammar, outcome, err := w.writeGrammar(ctx, oc, rr)
		if err != nil {
			return nil, fmt.Errorf("writing grammar: %w", err)
		}
		if outcome == llm.OutcomeFallback {
			fallbacks = append(fallbacks, "write.grammar")
		}
		body.GrammarRules = grammar
	}

	if len(oc.ExercisePlan) > 0 {
		exercises, outcome, err := w.writeExercises(ctx, oc)
		if err != nil {
			return nil, fmt.Errorf("writing exercises: %w", err)
		}
		if outcome == llm.OutcomeFallback {
			fallbacks = append(fallbacks, "write.exercises")
		}
		body.Exercises = exercises
	}

	summary, outcome, err := w.writeSummary(ctx, oc, &body)
	if err != nil {
		return nil, fmt.Errorf("writing summary: %w", err)
	}
	if outcome == llm.OutcomeFallback {
		fallbacks = append(fallbacks, "write.summary")
	}
	body.Summary = summary

	content := &types.KnowledgeContent{
		ID: uuid.NewString(),
		Metadata: types.ContentMetadata{
			Subtopic:        oc.Subtopic,
			Topic:           rr.Topic,
			Level:           oc.Outline.Level,
			ResearchQuality: oc.Quality,
			GeneratedAt:     time.Now().UTC(),
			FallbackStages:  fallbacks,
		},
		Body:         body,
		RLM:          BuildRLMIndex(oc.Subtopic, &body),
		Attributions: attributions(rr),
	}
	content.Metadata.WordCount = WordCount(&body)

	w.log.Info("content written",
		zap.String("subtopic", oc.Subtopic),
		zap.Int("words", content.Metadata.WordCount),
		zap.Int("fallbacks", len(fallbacks)))

	return content, nil
}

// attributions credits every research source.
func attributions(rr *types.ResearchResult) []types.SourceAttribution {
	out := make([]types.SourceAttribution, 0, len(rr.Sources))
	for _, s := range rr.Sources {
		out = append(out, types.SourceAttribution{URL: s.URL, Title: s.Title, Domain: s.Domain})
	}
	return out
}

// WordCount counts words across the authored text fields.
func WordCount(body *types.ContentBody) int {
	n := len(strings.Fields(body.Introduction)) + len(strings.Fields(body.Summary))
	for _, s := range body.Sections {
		n += len(strings.Fields(s.Body))
	}
	for _, r := range body.GrammarRules {
		n += len(strings.Fields(r.Explanation))
	}
	for _, v := range body.Vocabulary {
		n += len(strings.Fields(v.Definition))
	}
	return n
}

// sectionsPayload is the main-sections call's JSON contract.
type sectionsPayload struct {
	Introduction string                 `json:"introduction"`
	Sections     []types.ContentSection `json:"sections"`
}

// writeSections authors the introduction and body sections. The
// fallback echoes the outline's key points as section bodies.
func (w *Writer) writeSections(ctx context.Context, oc *types.OrganizedContent, rr *types.ResearchResult) (string, []types.ContentSection, llm.Outcome, error) {
	raw, err := w.llm.Complete(ctx, llm.Request{
		System: sectionsSystemPrompt,
		Prompt: sectionsPrompt(oc, rr),
	})
	if err != nil {
		return "", nil, llm.OutcomeParsed, err
	}

	var payload sectionsPayload
	if err := llm.Decode(raw, &payload); err != nil || len(payload.Sections) == 0 {
		intro, sections := fallbackSections(oc)
		return intro, sections, llm.OutcomeFallback, nil
	}
	return payload.Introduction, payload.Sections, llm.OutcomeParsed, nil
}

// fallbackSections preserves the organizer's plan as content: each
// planned section becomes a section whose body is its key points.
func fallbackSections(oc *types.OrganizedContent) (string, []types.ContentSection) {
	intro := fmt.Sprintf("This lesson covers %s.", oc.Subtopic)
	sections := make([]types.ContentSection, 0, len(oc.Outline.Sections))
	for _, plan := range oc.Outline.Sections {
		sections = append(sections, types.ContentSection{
			Title:     plan.Title,
			Body:      strings.Join(plan.KeyPoints, " "),
			KeyPoints: plan.KeyPoints,
		})
	}
	return intro, sections
}

// writeVocabulary authors the vocabulary entries. The fallback carries
// the planned terms through with empty translations.
func (w *Writer) writeVocabulary(ctx context.Context, oc *types.OrganizedContent, rr *types.ResearchResult) ([]types.VocabularyEntry, llm.Outcome, error) {
	raw, err := w.llm.Complete(ctx, llm.Request{
		System: vocabularySystemPrompt,
		Prompt: vocabularyPrompt(oc, rr, w.cfg.SecondaryLanguage),
	})
	if err != nil {
		return nil, llm.OutcomeParsed, err
	}

	var entries []types.VocabularyEntry
	if err := llm.Decode(raw, &entries); err != nil || len(entries) == 0 {
		entries = make([]types.VocabularyEntry, 0, len(oc.VocabularyPlan))
		for _, item := range oc.VocabularyPlan {
			entries = append(entries, types.VocabularyEntry{
				Term:       item.Term,
				Definition: item.Term,
				Level:      oc.Outline.Level,
			})
		}
		return entries, llm.OutcomeFallback, nil
	}

	for i := range entries {
		if entries[i].Level == "" {
			entries[i].Level = oc.Outline.Level
		}
	}
	return entries, llm.OutcomeParsed, nil
}

// writeGrammar authors the grammar rules. The fallback carries the
// planned rule names through with their mistake patterns.
func (w *Writer) writeGrammar(ctx context.Context, oc *types.OrganizedContent, rr *types.ResearchResult) ([]types.GrammarRule, llm.Outcome, error) {
	raw, err := w.llm.Complete(ctx, llm.Request{
		System: grammarSystemPrompt,
		Prompt: grammarPrompt(oc, rr),
	})
	if err != nil {
		return nil, llm.OutcomeParsed, err
	}

	var rules []types.GrammarRule
	if err := llm.Decode(raw, &rules); err != nil || len(rules) == 0 {
		rules = make([]types.GrammarRule, 0, len(oc.GrammarPlan))
		for _, item := range oc.GrammarPlan {
			rule := types.GrammarRule{
				Name:        item.Name,
				Explanation: item.Name,
				Level:       oc.Outline.Level,
			}
			for _, p := range item.MistakePatterns {
				rule.CommonMistakes = append(rule.CommonMistakes, types.MistakePattern{Pattern: p})
			}
			rules = append(rules, rule)
		}
		return rules, llm.OutcomeFallback, nil
	}

	for i := range rules {
		if rules[i].Level == "" {
			rules[i].Level = oc.Outline.Level
		}
	}
	return rules, llm.OutcomeParsed, nil
}

// writeExercises authors the exercises and assigns stable ids. The
// fallback produces one recall exercise per planned group.
func (w *Writer) writeExercises(ctx context.Context, oc *types.OrganizedContent) ([]types.Exercise, llm.Outcome, error) {
	raw, err := w.llm.Complete(ctx, llm.Request{
		System: exercisesSystemPrompt,
		Prompt: exercisesPrompt(oc),
	})
	if err != nil {
		return nil, llm.OutcomeParsed, err
	}

	var exercises []types.Exercise
	outcome := llm.OutcomeParsed
	if err := llm.Decode(raw, &exercises); err != nil || len(exercises) == 0 {
		exercises = nil
		for _, group := range oc.ExercisePlan {
			exercises = append(exercises, types.Exercise{
				Type:       group.Type,
				Question:   fmt.Sprintf("Review %s.", oc.Subtopic),
				Answer:     oc.Subtopic,
				Difficulty: group.Difficulty,
			})
		}
		outcome = llm.OutcomeFallback
	}

	for i := range exercises {
		if exercises[i].ID == "" {
			exercises[i].ID = fmt.Sprintf("ex-%s-%d", Sanitize(strings.ReplaceAll(oc.Subtopic, " ", "-")), i+1)
		}
	}
	return exercises, outcome, nil
}

// writeSummary authors the closing summary. The fallback concatenates
// the objectives.
func (w *Writer) writeSummary(ctx context.Context, oc *types.OrganizedContent, body *types.ContentBody) (string, llm.Outcome, error) {
	raw, err := w.llm.Complete(ctx, llm.Request{
		System: summarySystemPrompt,
		Prompt: summaryPrompt(oc, body),
	})
	if err != nil {
		return "", llm.OutcomeParsed, err
	}

	var payload struct {
		Summary string `json:"summary"`
	}
	if err := llm.Decode(raw, &payload); err != nil || payload.Summary == "" {
		return fmt.Sprintf("In this lesson on %s you learned: %s.",
			oc.Subtopic, strings.Join(oc.Outline.Objectives, "; ")), llm.OutcomeFallback, nil
	}
	return payload.Summary, llm.OutcomeParsed, nil
}
