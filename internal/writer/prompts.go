// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package writer

import (
	"fmt"
	"strings"

	"github.com/pdiddy/kbgen/pkg/types"
)

const sectionsSystemPrompt = `You are an educational content author. You write clear, level-appropriate lesson sections from a plan and research findings. Respond only with JSON.`

const vocabularySystemPrompt = `You are an educational content author writing vocabulary entries with translations. Respond only with JSON.`

const grammarSystemPrompt = `You are a language-teaching author writing grammar rules with formulas, examples, and common mistakes. Respond only with JSON.`

const exercisesSystemPrompt = `You are an educational content author writing exercises with correct answers and plausible distractors. Respond only with JSON.`

const summarySystemPrompt = `You are an educational content author writing a closing summary for a lesson. Respond only with JSON.`

// planDigest renders the outline for authoring prompts.
func planDigest(oc *types.OrganizedContent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s (level %s)\nObjectives: %s\nSections:\n",
		oc.Outline.Title, oc.Outline.Level, strings.Join(oc.Outline.Objectives, "; "))
	for i, s := range oc.Outline.Sections {
		fmt.Fprintf(&b, "%d. %s [%s] — %s. Key points: %s\n",
			i+1, s.Title, s.Type, s.Purpose, strings.Join(s.KeyPoints, "; "))
	}
	return b.String()
}

// factDigest renders the research findings for authoring prompts.
func factDigest(rr *types.ResearchResult) string {
	var b strings.Builder
	for _, f := range rr.KeyFacts {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	for _, e := range rr.Examples {
		fmt.Fprintf(&b, "- Example: %s\n", e)
	}
	return b.String()
}

func sectionsPrompt(oc *types.OrganizedContent, rr *types.ResearchResult) string {
	return fmt.Sprintf(`Write the lesson content for %q following this plan:

%s
Research findings to draw on:
%s
Respond with a JSON object:
- "introduction": an engaging opening paragraph
- "sections": array of {"title", "body", "key_points"} matching the planned sections in order

Do not include any text outside the JSON object.`, oc.Subtopic, planDigest(oc), factDigest(rr))
}

func vocabularyPrompt(oc *types.OrganizedContent, rr *types.ResearchResult, secondaryLang string) string {
	terms := make([]string, 0, len(oc.VocabularyPlan))
	for _, item := range oc.VocabularyPlan {
		terms = append(terms, item.Term)
	}
	return fmt.Sprintf(`Write vocabulary entries for these terms from the lesson %q: %s.

Respond with a JSON array of objects:
- "term": the term
- "term_de": the %s translation
- "definition": a learner-friendly definition
- "part_of_speech": noun, verb, adjective, etc.
- "example": one example sentence
- "level": CEFR level (A1-C2)
- "synonyms": array of synonyms

Do not include any text outside the JSON array.`, oc.Subtopic, strings.Join(terms, ", "), secondaryLang)
}

func grammarPrompt(oc *types.OrganizedContent, rr *types.ResearchResult) string {
	names := make([]string, 0, len(oc.GrammarPlan))
	for _, item := range oc.GrammarPlan {
		names = append(names, item.Name)
	}
	return fmt.Sprintf(`Write full grammar rules for the lesson %q covering: %s.

Research findings:
%s
Respond with a JSON array of objects:
- "name": rule name
- "explanation": clear explanation for the target level
- "formula": structural formula if applicable (e.g. "have/has + past participle")
- "examples": array of example sentences
- "common_mistakes": array of {"pattern", "correction", "explanation", "category"}
- "keywords": array of lookup keywords
- "category": grammar category (e.g. "tense", "article")
- "level": CEFR level

Do not include any text outside the JSON array.`, oc.Subtopic, strings.Join(names, ", "), factDigest(rr))
}

func exercisesPrompt(oc *types.OrganizedContent) string {
	var b strings.Builder
	for _, g := range oc.ExercisePlan {
		fmt.Fprintf(&b, "- %d %s exercises (%s, %s)\n", g.Count, g.Type, g.Skill, g.Difficulty)
	}
	return fmt.Sprintf(`Write the exercises for the lesson %q according to this plan:

%s
Every exercise must have a correct answer; multiple-choice options must include plausible distractors.

Respond with a JSON array of objects:
- "id": short unique id (may be empty)
- "type": exercise type from the plan
- "question": the prompt shown to the learner
- "options": array of choices for multiple_choice, otherwise empty
- "answer": the correct answer
- "explanation": why the answer is correct
- "difficulty": easy, medium, or hard

Do not include any text outside the JSON array.`, oc.Subtopic, b.String())
}

func summaryPrompt(oc *types.OrganizedContent, body *types.ContentBody) string {
	titles := make([]string, 0, len(body.Sections))
	for _, s := range body.Sections {
		titles = append(titles, s.Title)
	}
	return fmt.Sprintf(`Write a closing summary for the lesson %q, which covered: %s.

Respond with a JSON object: {"summary": "<two or three sentences recapping the lesson>"}`,
		oc.Subtopic, strings.Join(titles, ", "))
}
