// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package writer

import (
	"fmt"
	"strings"

	"github.com/pdiddy/kbgen/pkg/types"
)

// BuildRLMIndex constructs the optimization index bundle purely from
// authored content. Every map key passes through Sanitize so a
// downstream consumer can look up terms without re-scanning the full
// content, regardless of casing or accents.
func BuildRLMIndex(subtopic string, body *types.ContentBody) types.RLMIndex {
	idx := types.RLMIndex{
		GrammarIndex:       make(map[string][]types.GrammarRule),
		VocabularyByTerm:   make(map[string]types.VocabularyEntry),
		VocabularyByTermDE: make(map[string]types.VocabularyEntry),
		VocabularyByLevel:  make(map[string][]types.VocabularyEntry),
		ExercisesByType:    make(map[string][]string),
	}

	for _, rule := range body.GrammarRules {
		for _, key := range grammarIndexKeys(rule) {
			idx.GrammarIndex[key] = append(idx.GrammarIndex[key], rule)
		}
		idx.MistakePatterns = append(idx.MistakePatterns, rule.CommonMistakes...)
		idx.QuickReference = append(idx.QuickReference, quickReferenceCards(rule)...)
	}

	for _, entry := range body.Vocabulary {
		if key := Sanitize(entry.Term); key != "" {
			idx.VocabularyByTerm[key] = entry
		}
		if key := Sanitize(entry.TermDE); key != "" {
			idx.VocabularyByTermDE[key] = entry
		}
		level := entry.Level
		if level == "" {
			level = "B1"
		}
		idx.VocabularyByLevel[level] = append(idx.VocabularyByLevel[level], entry)
	}

	for _, ex := range body.Exercises {
		key := Sanitize(ex.Type)
		idx.ExercisesByType[key] = append(idx.ExercisesByType[key], ex.ID)
	}

	idx.TopicKeywords = topicKeywords(subtopic, body)
	return idx
}

// grammarIndexKeys returns the deduplicated sanitized keys under which
// one rule is indexed: its keywords, its name tokens, and its category.
func grammarIndexKeys(rule types.GrammarRule) []string {
	seen := make(map[string]bool)
	var keys []string

	add := func(raw string) {
		key := Sanitize(raw)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		keys = append(keys, key)
	}

	for _, kw := range rule.Keywords {
		add(kw)
	}
	add(rule.Name)
	for _, token := range strings.Fields(rule.Name) {
		add(token)
	}
	add(rule.Category)

	return keys
}

// quickReferenceCards builds the trigger→response cards for one rule:
// one for the rule itself, and one for its formula if present.
func quickReferenceCards(rule types.GrammarRule) []types.QuickReference {
	response := rule.Explanation
	if len(rule.Examples) > 0 {
		response = fmt.Sprintf("%s Example: %s", response, rule.Examples[0])
	}

	cards := []types.QuickReference{
		{Trigger: Sanitize(rule.Name), Response: response},
	}
	if rule.Formula != "" {
		cards = append(cards, types.QuickReference{
			Trigger:  Sanitize(rule.Name + " formula"),
			Response: rule.Formula,
		})
	}
	return cards
}

// topicKeywords collects the deduplicated sanitized keyword set from
// the subtopic name, vocabulary terms, and grammar names and keywords.
func topicKeywords(subtopic string, body *types.ContentBody) []string {
	seen := make(map[string]bool)
	var keywords []string

	add := func(raw string) {
		key := Sanitize(raw)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		keywords = append(keywords, key)
	}

	add(subtopic)
	for _, token := range strings.Fields(subtopic) {
		add(token)
	}
	for _, entry := range body.Vocabulary {
		add(entry.Term)
	}
	for _, rule := range body.GrammarRules {
		add(rule.Name)
		for _, kw := range rule.Keywords {
			add(kw)
		}
	}

	return keywords
}
