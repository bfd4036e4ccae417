// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"fmt"
	"strings"

	"github.com/pdiddy/kbgen/pkg/types"
)

const crossRefSystemPrompt = `You are a fact verification system. You check claims against source excerpts and rate agreement. Respond only with JSON.`

const definitionsSystemPrompt = `You are a definition verification system. You compare term definitions across sources. Respond only with JSON.`

const resolveSystemPrompt = `You are a conflict resolution assistant. Given a disputed claim and its sources, state the best-supported version of the claim. Respond only with JSON.`

const resolvePromptFmt = `The following claim is disputed:

Claim: %s
Supporting sources: %s
Conflicting sources: %s

Respond with a JSON object: {"recommended_claim": "<the best-supported version of the claim>"}`

// crossRefPrompt lays out every fact and source excerpt for the
// cross-reference call.
func crossRefPrompt(rr *types.ResearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cross-reference each fact below against the source excerpts for the subtopic %q.\n\n", rr.Subtopic)
	b.WriteString("Facts:\n")
	for i, f := range rr.KeyFacts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, f)
	}
	b.WriteString("\nSources:\n")
	for _, s := range rr.Sources {
		fmt.Fprintf(&b, "- %s (%s): %s\n", s.URL, s.Domain, s.Content)
	}
	b.WriteString(`
Respond with a JSON array, one object per fact, each with:
- "fact": the fact text
- "confidence": float 0.0-1.0
- "consensus": one of "unanimous", "majority", "mixed", "controversial"
- "supporting_sources": array of source URLs that support the fact
- "conflicting_sources": array of source URLs that contradict the fact

Do not include any text outside the JSON array.`)
	return b.String()
}

// definitionsPrompt lays out definitions and sources for cross-source
// comparison.
func definitionsPrompt(rr *types.ResearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Compare each definition below across the sources for the subtopic %q.\n\n", rr.Subtopic)
	b.WriteString("Definitions:\n")
	for _, d := range rr.Definitions {
		fmt.Fprintf(&b, "- %s: %s\n", d.Term, d.Definition)
	}
	b.WriteString("\nSources:\n")
	for _, s := range rr.Sources {
		fmt.Fprintf(&b, "- %s: %s\n", s.URL, s.Content)
	}
	b.WriteString(`
Respond with a JSON array, one object per term, each with:
- "term": the term
- "definition": the best cross-source definition
- "source_count": how many sources define the term
- "agreed": whether the sources agree

Do not include any text outside the JSON array.`)
	return b.String()
}
