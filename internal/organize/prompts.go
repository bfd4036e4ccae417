// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package organize

import (
	"fmt"
	"strings"

	"github.com/pdiddy/kbgen/pkg/types"
)

const outlineSystemPrompt = `You are an educational content planner. You design lesson outlines from research material. Respond only with JSON.`

const vocabularySystemPrompt = `You are an educational content planner selecting vocabulary for a lesson. Respond only with JSON.`

const grammarSystemPrompt = `You are a language-teaching expert planning grammar rules for a lesson. Respond only with JSON.`

const exercisesSystemPrompt = `You are an educational content planner designing exercise groups. Respond only with JSON.`

// researchDigest summarizes the research for planning prompts.
func researchDigest(rr *types.ResearchResult) string {
	var b strings.Builder
	b.WriteString("Key facts:\n")
	for _, f := range rr.KeyFacts {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	if len(rr.Definitions) > 0 {
		b.WriteString("Definitions:\n")
		for _, d := range rr.Definitions {
			fmt.Fprintf(&b, "- %s: %s\n", d.Term, d.Definition)
		}
	}
	if len(rr.Examples) > 0 {
		b.WriteString("Examples:\n")
		for _, e := range rr.Examples {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	return b.String()
}

func outlinePrompt(rr *types.ResearchResult, topic, level string) string {
	return fmt.Sprintf(`Design a lesson outline for the subtopic %q (topic: %q) at level %s.

%s
Respond with a JSON object:
- "title": lesson title
- "level": target CEFR level
- "estimated_minutes": integer study time
- "objectives": array of learning objectives
- "sections": ordered array of {"title", "type", "purpose", "key_points", "source_refs"}
  where "type" is one of introduction, explanation, examples, practice, summary.

Do not include any text outside the JSON object.`, rr.Subtopic, topic, level, researchDigest(rr))
}

func vocabularyPrompt(rr *types.ResearchResult) string {
	return fmt.Sprintf(`Select 15 to 30 vocabulary terms a learner needs for the subtopic %q.

%s
Respond with a JSON array of {"term", "difficulty", "must_include"} objects,
where "difficulty" is beginner, intermediate, or advanced.

Do not include any text outside the JSON array.`, rr.Subtopic, researchDigest(rr))
}

func grammarPrompt(rr *types.ResearchResult) string {
	return fmt.Sprintf(`Plan the grammar rules a lesson on %q must cover.

%s
Respond with a JSON array of objects:
- "name": rule name
- "complexity": integer 1-5
- "prerequisites": array of rule names the learner should already know
- "mistake_patterns": array of common learner mistakes for this rule

Do not include any text outside the JSON array.`, rr.Subtopic, researchDigest(rr))
}

func exercisesPrompt(rr *types.ResearchResult) string {
	return fmt.Sprintf(`Plan 4 to 8 exercise groups for a lesson on %q.

%s
Respond with a JSON array of {"type", "skill", "difficulty", "count"} objects,
where "type" is one of multiple_choice, fill_blank, transformation, error_correction, matching.

Do not include any text outside the JSON array.`, rr.Subtopic, researchDigest(rr))
}
