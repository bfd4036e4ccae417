// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package verify rates source reliability, cross-references extracted
// facts, and produces inclusion recommendations for the writer.
package verify

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/kbgen/internal/llm"
	"github.com/pdiddy/kbgen/pkg/types"
)

// languageAuthorities are domains treated as authoritative for
// language-learning topics.
var languageAuthorities = map[string]bool{
	"bbc.co.uk":                       true,
	"britishcouncil.org":              true,
	"learnenglish.britishcouncil.org": true,
	"cambridge.org":                   true,
	"dictionary.cambridge.org":        true,
	"oxfordlearnersdictionaries.com":  true,
	"merriam-webster.com":             true,
	"grammarly.com":                   true,
	"duden.de":                        true,
	"goethe.de":                       true,
	"dw.com":                          true,
}

// languageTopicKeywords detect the language-learning topic category.
var languageTopicKeywords = []string{"english", "german", "grammar", "language", "vocabulary", "tense"}

// Verifier is the source verification stage.
type Verifier struct {
	llm llm.Client
	cfg types.VerifyConfig
	log *zap.Logger
}

// NewVerifier wires the verifier.
func NewVerifier(llmClient llm.Client, cfg types.VerifyConfig, log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.5
	}
	return &Verifier{llm: llmClient, cfg: cfg, log: log}
}

// Verify assesses a ResearchResult: per-source reliability tiers,
// cross-referenced fact confidence, verified definitions, surfaced
// conflicts, overall confidence, and the three recommendation lists.
func (v *Verifier) Verify(ctx context.Context, rr *types.ResearchResult, topic string) (*types.VerifiedResearch, error) {
	report := types.VerificationReport{
		Sources: classifySources(rr.Sources, topic),
	}

	facts, outcome, err := v.crossReferenceFacts(ctx, rr)
	if err != nil {
		return nil, fmt.Errorf("cross-referencing facts: %w", err)
	}
	if outcome == llm.OutcomeFallback {
		rr.Fallbacks = append(rr.Fallbacks, "verify.facts")
		v.log.Warn("fact cross-reference fell back to flat confidence", zap.String("subtopic", rr.Subtopic))
	}
	report.Facts = facts

	defs, outcome, err := v.verifyDefinitions(ctx, rr)
	if err != nil {
		return nil, fmt.Errorf("verifying definitions: %w", err)
	}
	if outcome == llm.OutcomeFallback {
		rr.Fallbacks = append(rr.Fallbacks, "verify.definitions")
	}
	report.Definitions = defs

	report.Conflicts = v.collectConflicts(ctx, facts)
	report.OverallConfidence = OverallConfidence(facts, report.Sources)

	report.Include, report.Exclude, report.NeedsCitation = v.recommend(facts)

	v.log.Info("verification complete",
		zap.String("subtopic", rr.Subtopic),
		zap.Float64("confidence", report.OverallConfidence),
		zap.Int("conflicts", len(report.Conflicts)))

	return &types.VerifiedResearch{ResearchResult: *rr, Verification: report}, nil
}

// classifySources assigns a reliability tier to every source using the
// topic-category allow-list and domain heuristics.
func classifySources(sources []types.Source, topic string) []types.SourceReliability {
	isLanguage := isLanguageTopic(topic)
	out := make([]types.SourceReliability, 0, len(sources))
	for _, s := range sources {
		tier := classifySource(s, isLanguage)
		out = append(out, types.SourceReliability{URL: s.URL, Tier: tier, Score: tier.Score()})
	}
	return out
}

// classifySource rates one source. Allow-listed authorities and
// edu/gov domains rank highest; blog and forum domains rank lowest.
func classifySource(s types.Source, languageTopic bool) types.ReliabilityTier {
	domain := strings.ToLower(s.Domain)

	if languageTopic && languageAuthorities[domain] {
		return types.TierAuthoritative
	}
	if strings.HasSuffix(domain, ".edu") || strings.HasSuffix(domain, ".gov") ||
		strings.Contains(domain, ".ac.") {
		return types.TierAuthoritative
	}
	if strings.Contains(domain, "blog") || strings.Contains(domain, "forum") ||
		strings.Contains(domain, "reddit") || strings.Contains(domain, "quora") {
		return types.TierQuestionable
	}
	if s.RelevanceScore < 0.3 {
		return types.TierQuestionable
	}
	if s.RelevanceScore >= 0.7 && len(s.Content) >= 1000 {
		return types.TierReliable
	}
	return types.TierModerate
}

// isLanguageTopic reports whether the topic belongs to the
// language-learning category.
func isLanguageTopic(topic string) bool {
	lower := strings.ToLower(topic)
	for _, kw := range languageTopicKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// crossReferenceFacts asks the model to check each fact against the
// source excerpts. Malformed output falls back to a flat 0.7 confidence
// with majority consensus for every fact.
func (v *Verifier) crossReferenceFacts(ctx context.Context, rr *types.ResearchResult) ([]types.FactVerification, llm.Outcome, error) {
	if len(rr.KeyFacts) == 0 {
		return nil, llm.OutcomeParsed, nil
	}

	raw, err := v.llm.Complete(ctx, llm.Request{
		System: crossRefSystemPrompt,
		Prompt: crossRefPrompt(rr),
	})
	if err != nil {
		return nil, llm.OutcomeParsed, err
	}

	var parsed []types.FactVerification
	if err := llm.Decode(raw, &parsed); err != nil || len(parsed) == 0 {
		return fallbackFactVerifications(rr), llm.OutcomeFallback, nil
	}

	for i := range parsed {
		parsed[i].Confidence = clamp01(parsed[i].Confidence)
		if parsed[i].Consensus == "" {
			parsed[i].Consensus = types.ConsensusMixed
		}
	}
	return parsed, llm.OutcomeParsed, nil
}

// fallbackFactVerifications marks every fact with flat 0.7 confidence,
// majority consensus, and all sources supporting.
func fallbackFactVerifications(rr *types.ResearchResult) []types.FactVerification {
	urls := make([]string, 0, len(rr.Sources))
	for _, s := range rr.Sources {
		urls = append(urls, s.URL)
	}
	out := make([]types.FactVerification, 0, len(rr.KeyFacts))
	for _, fact := range rr.KeyFacts {
		out = append(out, types.FactVerification{
			Fact:              fact,
			Confidence:        0.7,
			Consensus:         types.ConsensusMajority,
			SupportingSources: urls,
		})
	}
	return out
}

// verifyDefinitions compares each definition across sources. The
// fallback marks every definition single-source and agreed.
func (v *Verifier) verifyDefinitions(ctx context.Context, rr *types.ResearchResult) ([]types.VerifiedDefinition, llm.Outcome, error) {
	if len(rr.Definitions) == 0 {
		return nil, llm.OutcomeParsed, nil
	}

	raw, err := v.llm.Complete(ctx, llm.Request{
		System: definitionsSystemPrompt,
		Prompt: definitionsPrompt(rr),
	})
	if err != nil {
		return nil, llm.OutcomeParsed, err
	}

	var parsed []types.VerifiedDefinition
	if err := llm.Decode(raw, &parsed); err != nil || len(parsed) == 0 {
		out := make([]types.VerifiedDefinition, 0, len(rr.Definitions))
		for _, d := range rr.Definitions {
			out = append(out, types.VerifiedDefinition{
				Term:        d.Term,
				Definition:  d.Definition,
				SourceCount: 1,
				Agreed:      true,
			})
		}
		return out, llm.OutcomeFallback, nil
	}
	return parsed, llm.OutcomeParsed, nil
}

// collectConflicts surfaces facts flagged controversial or carrying
// conflicting sources, asking the model for a recommended claim where
// possible. Resolution failures are tolerated: the conflict is still
// reported without a recommendation.
func (v *Verifier) collectConflicts(ctx context.Context, facts []types.FactVerification) []types.Conflict {
	var conflicts []types.Conflict
	for _, f := range facts {
		if f.Consensus != types.ConsensusControversial && len(f.ConflictingSources) == 0 {
			continue
		}
		conflict := types.Conflict{
			Fact:    f.Fact,
			Sources: append(append([]string{}, f.SupportingSources...), f.ConflictingSources...),
		}
		if claim, err := v.resolveConflict(ctx, f); err == nil {
			conflict.RecommendedClaim = claim
		}
		conflicts = append(conflicts, conflict)
	}
	return conflicts
}

// resolveConflict asks the model for the best-supported claim.
func (v *Verifier) resolveConflict(ctx context.Context, f types.FactVerification) (string, error) {
	raw, err := v.llm.Complete(ctx, llm.Request{
		System: resolveSystemPrompt,
		Prompt: fmt.Sprintf(resolvePromptFmt, f.Fact, strings.Join(f.SupportingSources, ", "), strings.Join(f.ConflictingSources, ", ")),
	})
	if err != nil {
		return "", err
	}
	var resolved struct {
		RecommendedClaim string `json:"recommended_claim"`
	}
	if err := llm.Decode(raw, &resolved); err != nil {
		return "", err
	}
	return resolved.RecommendedClaim, nil
}

// OverallConfidence combines fact confidence, source quality, and the
// controversial fraction:
//
//	0.5·avg(fact confidence) + 0.3·avg(source quality) + 0.2·(1 − controversialFraction)
//
// The result is clamped to [0,1] and degenerate (empty) input yields a
// finite value, never NaN.
func OverallConfidence(facts []types.FactVerification, sources []types.SourceReliability) float64 {
	var factAvg float64
	if len(facts) > 0 {
		var sum float64
		for _, f := range facts {
			sum += f.Confidence
		}
		factAvg = sum / float64(len(facts))
	}

	var qualityAvg float64
	if len(sources) > 0 {
		var sum float64
		for _, s := range sources {
			sum += s.Score
		}
		qualityAvg = sum / float64(len(sources))
	}

	var controversial float64
	if len(facts) > 0 {
		n := 0
		for _, f := range facts {
			if f.Consensus == types.ConsensusControversial {
				n++
			}
		}
		controversial = float64(n) / float64(len(facts))
	}

	return clamp01(0.5*factAvg + 0.3*qualityAvg + 0.2*(1-controversial))
}

// recommend partitions facts into include, exclude, and needs-citation
// lists using fixed thresholds.
func (v *Verifier) recommend(facts []types.FactVerification) (include, exclude, needsCitation []string) {
	for _, f := range facts {
		switch {
		case f.Confidence >= 0.8 && f.Consensus == types.ConsensusUnanimous:
			include = append(include, f.Fact)
		case f.Confidence < v.cfg.MinConfidence || f.Consensus == types.ConsensusControversial:
			exclude = append(exclude, f.Fact)
		case v.cfg.RequireMultiSource && len(f.SupportingSources) < 2:
			needsCitation = append(needsCitation, f.Fact)
		case f.Confidence >= 0.6:
			include = append(include, f.Fact)
		default:
			needsCitation = append(needsCitation, f.Fact)
		}
	}
	return include, exclude, needsCitation
}

// clamp01 bounds v to [0,1] and maps NaN to 0.
func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
