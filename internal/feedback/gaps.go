// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feedback

import (
	"slices"
	"sort"
	"strings"

	"github.com/pdiddy/kbgen/pkg/types"
)

// Gap priority thresholds by cluster size.
const (
	gapHighCount   = 10
	gapMediumCount = 5
)

// similarityThreshold is the minimum Jaccard overlap between normalized
// query token sets for two queries to land in the same gap cluster.
const similarityThreshold = 0.7

// fillerWords are dropped before comparing queries, so phrasings that
// differ only in framing ("past tense rules" vs "past tense examples")
// cluster together.
var fillerWords = map[string]bool{
	"a": true, "an": true, "the": true, "of": true, "in": true,
	"for": true, "to": true, "on": true, "with": true, "about": true,
	"how": true, "what": true, "when": true, "why": true, "which": true,
	"is": true, "are": true, "do": true, "does": true, "can": true,
	"i": true, "you": true, "use": true, "using": true, "used": true,
	"rules": true, "rule": true, "examples": true, "example": true,
	"explain": true, "explained": true, "meaning": true,
}

// Gaps clusters gap and fallback queries into knowledge gaps, ordered
// by occurrence count descending.
func Gaps(events []types.UsageEvent) []types.KnowledgeGap {
	type cluster struct {
		tokens  map[string]bool
		queries []string
		count   int
	}
	var clusters []*cluster

	for _, ev := range events {
		if ev.Type != types.EventGap && ev.Type != types.EventFallback {
			continue
		}
		query := strings.TrimSpace(ev.Query)
		if query == "" {
			continue
		}
		tokens := normalizeQuery(query)
		if len(tokens) == 0 {
			continue
		}

		var home *cluster
		for _, c := range clusters {
			if jaccard(tokens, c.tokens) >= similarityThreshold {
				home = c
				break
			}
		}
		if home == nil {
			home = &cluster{tokens: tokens}
			clusters = append(clusters, home)
		}
		home.count++
		if !slices.Contains(home.queries, query) {
			home.queries = append(home.queries, query)
		}
	}

	out := make([]types.KnowledgeGap, 0, len(clusters))
	for _, c := range clusters {
		gap := types.KnowledgeGap{Queries: c.queries, Count: c.count}
		switch {
		case c.count >= gapHighCount:
			gap.Priority = types.GapHigh
		case c.count >= gapMediumCount:
			gap.Priority = types.GapMedium
		default:
			gap.Priority = types.GapLow
		}
		out = append(out, gap)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Queries[0] < out[j].Queries[0]
	})
	return out
}

// normalizeQuery lowercases a query and returns its token set minus
// filler words.
func normalizeQuery(query string) map[string]bool {
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		tok = strings.Trim(tok, ".,;:!?\"'()")
		if tok == "" || fillerWords[tok] {
			continue
		}
		tokens[tok] = true
	}
	return tokens
}

// jaccard is intersection over union of the two token sets.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
