// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/kbgen/internal/llm"
)

const discoverySystemPrompt = `You are a curriculum planner decomposing a learning topic into subtopics.
Given a topic and a target count, produce exactly that many subtopic names.
Each subtopic must be a self-contained facet that can be researched and taught on its own.
Order them from foundational to advanced.
Respond with ONLY a JSON array of strings, no commentary.`

// discoverSubtopics asks the model to decompose the topic. A transport
// error is fatal; a malformed response falls back to splitting the raw
// text into lines before giving up.
func (o *Orchestrator) discoverSubtopics(ctx context.Context, topic string, count int) ([]string, error) {
	prompt := fmt.Sprintf("Topic: %s\nSubtopic count: %d", topic, count)
	raw, err := o.llm.Complete(ctx, llm.Request{
		System:      discoverySystemPrompt,
		Prompt:      prompt,
		MaxTokens:   o.cfg.AI.MaxTokens,
		Temperature: o.cfg.AI.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("subtopic discovery call: %w", err)
	}

	var names []string
	if err := llm.Decode(raw, &names); err != nil {
		names = strings.Split(raw, "\n")
		o.log.Warn("discovery response was not a JSON array, split into lines",
			zap.String("topic", topic),
			zap.Int("lines", len(names)))
	}

	names = cleanSubtopicNames(names, count)
	if len(names) == 0 {
		return nil, fmt.Errorf("subtopic discovery produced no usable names for %q", topic)
	}
	return names, nil
}

// cleanSubtopicNames trims numbering and list markers, drops empties
// and duplicates, and clips to count.
func cleanSubtopicNames(names []string, count int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		name = strings.TrimLeft(name, "-*0123456789. \t")
		name = strings.Trim(name, `"',`)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
		if len(out) == count {
			break
		}
	}
	return out
}
