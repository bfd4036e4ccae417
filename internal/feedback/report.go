// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/kbgen/internal/llm"
	"github.com/pdiddy/kbgen/pkg/types"
)

const recommendSystemPrompt = `You are tuning a generated knowledge base from its usage telemetry.
Given underperforming content and clustered unanswered queries, produce concrete regeneration actions.
Each recommendation must name the content or gap it targets and the change to make.
Respond with ONLY a JSON array of strings, at most 8 entries.`

// Analyzer builds tuning reports from stored usage telemetry.
type Analyzer struct {
	store Store
	llm   llm.Client
	cfg   types.FeedbackConfig
	log   *zap.Logger
}

// NewAnalyzer wires an analyzer. llmClient may be nil; recommendations
// then come from the rule-based fallback only.
func NewAnalyzer(st Store, llmClient llm.Client, cfg types.FeedbackConfig, log *zap.Logger) *Analyzer {
	if cfg.Window <= 0 {
		cfg.Window = 7 * 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{store: st, llm: llmClient, cfg: cfg, log: log}
}

// Report analyzes the trailing window of usage events for a knowledge
// base and produces effectiveness scores, gap clusters, and
// recommendations.
func (a *Analyzer) Report(ctx context.Context, kbID string) (*types.TuningReport, error) {
	end := time.Now().UTC()
	start := end.Add(-a.cfg.Window)

	events, err := a.store.QueryUsageEvents(ctx, kbID, start, end)
	if err != nil {
		return nil, fmt.Errorf("loading usage events: %w", err)
	}

	report := &types.TuningReport{
		KnowledgeBaseID: kbID,
		WindowStart:     start,
		WindowEnd:       end,
		Effectiveness:   Effectiveness(events),
		Gaps:            Gaps(events),
	}
	report.Recommendations = a.recommend(ctx, report)

	a.log.Info("tuning report built",
		zap.String("kb", kbID),
		zap.Int("events", len(events)),
		zap.Int("gaps", len(report.Gaps)))
	return report, nil
}

// recommend asks the model for regeneration actions and falls back to
// rule-based recommendations when the model is unavailable or the
// response is malformed.
func (a *Analyzer) recommend(ctx context.Context, report *types.TuningReport) []string {
	if a.llm == nil {
		return ruleRecommendations(report)
	}

	raw, err := a.llm.Complete(ctx, llm.Request{
		System: recommendSystemPrompt,
		Prompt: recommendPrompt(report),
	})
	if err != nil {
		a.log.Warn("recommendation call failed, using rule-based fallback", zap.Error(err))
		return ruleRecommendations(report)
	}

	var recs []string
	if err := llm.Decode(raw, &recs); err != nil || len(recs) == 0 {
		a.log.Warn("recommendation response unparseable, using rule-based fallback")
		return ruleRecommendations(report)
	}
	if len(recs) > 8 {
		recs = recs[:8]
	}
	return recs
}

func recommendPrompt(report *types.TuningReport) string {
	var b strings.Builder
	b.WriteString("Underperforming content:\n")
	for _, e := range report.Effectiveness {
		if !e.NeedsImprovement {
			continue
		}
		fmt.Fprintf(&b, "- %s: score %.0f, success %.0f%%, helpful %.0f%%, follow-up %.0f%%, avg %.0fms\n",
			e.ContentID, e.Score, e.SuccessRate*100, e.HelpfulRate*100, e.FollowUpRate*100, e.AvgLatencyMS)
	}
	b.WriteString("Knowledge gaps:\n")
	for _, g := range report.Gaps {
		fmt.Fprintf(&b, "- [%s] %d occurrences: %s\n", g.Priority, g.Count, strings.Join(g.Queries, "; "))
	}
	return b.String()
}

// ruleRecommendations derives deterministic actions from the report.
func ruleRecommendations(report *types.TuningReport) []string {
	var recs []string
	for _, g := range report.Gaps {
		if g.Priority == types.GapHigh {
			recs = append(recs, fmt.Sprintf("add a subtopic covering %q (%d unanswered queries)", g.Queries[0], g.Count))
		}
	}
	for _, e := range report.Effectiveness {
		if !e.NeedsImprovement {
			continue
		}
		switch {
		case e.HelpfulRate < minHelpfulRate:
			recs = append(recs, fmt.Sprintf("rewrite content %s for clarity (helpful rate %.0f%%)", e.ContentID, e.HelpfulRate*100))
		case e.SuccessRate < minSuccessRate:
			recs = append(recs, fmt.Sprintf("broaden index keywords for content %s (success rate %.0f%%)", e.ContentID, e.SuccessRate*100))
		case e.FollowUpRate > maxFollowUpRate:
			recs = append(recs, fmt.Sprintf("add examples to content %s (follow-up rate %.0f%%)", e.ContentID, e.FollowUpRate*100))
		case e.AvgLatencyMS > maxAvgLatencyMS:
			recs = append(recs, fmt.Sprintf("add quick-reference cards to content %s (avg lookup %.0fms)", e.ContentID, e.AvgLatencyMS))
		}
		if len(recs) >= 8 {
			break
		}
	}
	if len(recs) > 8 {
		recs = recs[:8]
	}
	return recs
}
