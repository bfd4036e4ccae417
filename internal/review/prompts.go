// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"fmt"
	"strings"

	"github.com/pdiddy/kbgen/pkg/types"
)

const accuracySystemPrompt = `You are a fact checker reviewing educational content against its research sources. Respond only with JSON.`

const completenessSystemPrompt = `You are a curriculum reviewer checking educational content for topic coverage against its research. Respond only with JSON.`

const consistencySystemPrompt = `You are an editor checking educational content for internal contradictions. Respond only with JSON.`

const claritySystemPrompt = `You are a language-teaching reviewer checking educational content for clarity at the target level. Respond only with JSON.`

const exercisesSystemPrompt = `You are an assessment reviewer validating exercises: correct answers, plausible distractors, clear questions. Respond only with JSON.`

const improveSystemPrompt = `You are an editor proposing minimal textual improvements for listed issues. Respond only with JSON.`

const resultContract = `
Respond with a JSON object:
- "score": float 0-100
- "issues": array of {"severity", "category", "location", "description"}
  where "severity" is one of critical, major, minor, suggestion
- "missing_topics": array of topics the content should cover but does not

Do not include any text outside the JSON object.`

// contentDigest renders the authored content for review prompts.
func contentDigest(kc *types.KnowledgeContent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subtopic: %s (level %s)\n\nIntroduction: %s\n\n", kc.Metadata.Subtopic, kc.Metadata.Level, kc.Body.Introduction)
	for _, s := range kc.Body.Sections {
		fmt.Fprintf(&b, "## %s\n%s\n\n", s.Title, s.Body)
	}
	if len(kc.Body.GrammarRules) > 0 {
		b.WriteString("Grammar rules:\n")
		for _, r := range kc.Body.GrammarRules {
			fmt.Fprintf(&b, "- %s: %s\n", r.Name, r.Explanation)
		}
	}
	fmt.Fprintf(&b, "\nSummary: %s\n", kc.Body.Summary)
	return b.String()
}

// researchDigest renders the research facts for review prompts.
func researchDigest(rr *types.ResearchResult) string {
	var b strings.Builder
	for _, f := range rr.KeyFacts {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	for _, t := range rr.RelatedTopics {
		fmt.Fprintf(&b, "- Related: %s\n", t)
	}
	return b.String()
}

func accuracyPrompt(kc *types.KnowledgeContent, rr *types.ResearchResult) string {
	return fmt.Sprintf(`Check the content below for factual accuracy against the research facts.

Content:
%s
Research facts:
%s%s`, contentDigest(kc), researchDigest(rr), resultContract)
}

func completenessPrompt(kc *types.KnowledgeContent, rr *types.ResearchResult) string {
	return fmt.Sprintf(`Check whether the content below covers everything the research surfaced for this subtopic.

Content:
%s
Research facts:
%s%s`, contentDigest(kc), researchDigest(rr), resultContract)
}

func consistencyPrompt(kc *types.KnowledgeContent, _ *types.ResearchResult) string {
	return fmt.Sprintf(`Check the content below for internal consistency: contradicting statements, mismatched examples, sections that disagree.

Content:
%s%s`, contentDigest(kc), resultContract)
}

func clarityPrompt(kc *types.KnowledgeContent, _ *types.ResearchResult) string {
	return fmt.Sprintf(`Check whether the content below is clear and appropriate for a %s-level learner.

Content:
%s%s`, kc.Metadata.Level, contentDigest(kc), resultContract)
}

func exercisesPromptFor(kc *types.KnowledgeContent, _ *types.ResearchResult) string {
	var b strings.Builder
	for _, ex := range kc.Body.Exercises {
		fmt.Fprintf(&b, "- [%s] %s | options: %s | answer: %s\n",
			ex.Type, ex.Question, strings.Join(ex.Options, " / "), ex.Answer)
	}
	if b.Len() == 0 {
		b.WriteString("(no exercises)\n")
	}
	return fmt.Sprintf(`Validate the exercises below: every answer must be correct for its question, and multiple-choice options must contain plausible distractors.

Exercises:
%s%s`, b.String(), resultContract)
}

func improvePrompt(kc *types.KnowledgeContent, issues []types.Issue) string {
	var b strings.Builder
	for _, issue := range issues {
		fmt.Fprintf(&b, "- [%s/%s] %s: %s\n", issue.Severity, issue.Category, issue.Location, issue.Description)
	}
	return fmt.Sprintf(`Propose textual improvements for these issues in the lesson %q:

%s
Respond with a JSON array of {"location", "original", "proposed", "reason"} objects.

Do not include any text outside the JSON array.`, kc.Metadata.Subtopic, b.String())
}
