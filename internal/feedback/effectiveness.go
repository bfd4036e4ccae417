// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feedback

import (
	"sort"

	"github.com/pdiddy/kbgen/pkg/types"
)

// Effectiveness score weights. Speed is normalized against
// latencyCeilingMS: anything at or above the ceiling scores zero.
const (
	weightSuccess  = 0.3
	weightHelpful  = 0.4
	weightFollowUp = 0.2
	weightSpeed    = 0.1

	latencyCeilingMS = 200.0
)

// Improvement thresholds. Breaching any one flags the content.
const (
	minSuccessRate  = 0.7
	minHelpfulRate  = 0.6
	maxFollowUpRate = 0.5
	maxAvgLatencyMS = 50.0
)

// Effectiveness aggregates usage events into per-content scores.
// Events without a content id are ignored; gap events describe missing
// content, not existing content. Results are ordered worst first.
func Effectiveness(events []types.UsageEvent) []types.ContentEffectiveness {
	type acc struct {
		lookups   int
		success   int
		helpful   int
		followUp  int
		latencyMS float64
	}
	byContent := make(map[string]*acc)

	for _, ev := range events {
		if ev.ContentID == "" || ev.Type == types.EventGap {
			continue
		}
		a := byContent[ev.ContentID]
		if a == nil {
			a = &acc{}
			byContent[ev.ContentID] = a
		}
		a.lookups++
		if ev.Success {
			a.success++
		}
		if ev.Helpful {
			a.helpful++
		}
		if ev.FollowUp {
			a.followUp++
		}
		a.latencyMS += ev.LatencyMS
	}

	out := make([]types.ContentEffectiveness, 0, len(byContent))
	for id, a := range byContent {
		n := float64(a.lookups)
		eff := types.ContentEffectiveness{
			ContentID:    id,
			Lookups:      a.lookups,
			SuccessRate:  float64(a.success) / n,
			HelpfulRate:  float64(a.helpful) / n,
			FollowUpRate: float64(a.followUp) / n,
			AvgLatencyMS: a.latencyMS / n,
		}
		eff.Score = Score(eff)
		eff.NeedsImprovement = eff.SuccessRate < minSuccessRate ||
			eff.HelpfulRate < minHelpfulRate ||
			eff.FollowUpRate > maxFollowUpRate ||
			eff.AvgLatencyMS > maxAvgLatencyMS
		out = append(out, eff)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].ContentID < out[j].ContentID
	})
	return out
}

// Score computes the weighted effectiveness score in [0,100]. A high
// follow-up rate counts against the content: the consumer had to ask
// again.
func Score(e types.ContentEffectiveness) float64 {
	latency := e.AvgLatencyMS
	if latency > latencyCeilingMS {
		latency = latencyCeilingMS
	}
	speed := 1 - latency/latencyCeilingMS

	return (weightSuccess*e.SuccessRate +
		weightHelpful*e.HelpfulRate +
		weightFollowUp*(1-e.FollowUpRate) +
		weightSpeed*speed) * 100
}
