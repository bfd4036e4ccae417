// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research gathers web sources for a subtopic and extracts
// facts, definitions, examples, and quotes from them.
package research

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/kbgen/internal/llm"
	"github.com/pdiddy/kbgen/internal/websearch"
	"github.com/pdiddy/kbgen/pkg/types"
)

const (
	// minSourceContent discards sources with less usable text than this.
	minSourceContent = 200

	// sourceContentCap truncates each source before extraction.
	sourceContentCap = 2000

	// maxQueries bounds the diversified query list.
	maxQueries = 8
)

// Collector is the research collection stage. It is a pure
// transformation over network calls: no internal retry, no side effects.
type Collector struct {
	llm    llm.Client
	search websearch.Client
	log    *zap.Logger
}

// NewCollector wires the collector's external clients.
func NewCollector(llmClient llm.Client, searchClient websearch.Client, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{llm: llmClient, search: searchClient, log: log}
}

// Collect researches one subtopic: diversified queries, deduplicated
// sources up to maxSources, then fact extraction. Malformed model
// output degrades to deterministic fallbacks; only transport errors
// fail the stage.
func (c *Collector) Collect(ctx context.Context, subtopic, topic string, maxSources int) (*types.ResearchResult, error) {
	result := &types.ResearchResult{
		Subtopic: subtopic,
		Topic:    topic,
	}

	queries, outcome, err := c.generateQueries(ctx, subtopic, topic)
	if err != nil {
		return nil, fmt.Errorf("generating queries: %w", err)
	}
	if outcome == llm.OutcomeFallback {
		result.Fallbacks = append(result.Fallbacks, "research.queries")
		c.log.Warn("query generation fell back to templates", zap.String("subtopic", subtopic))
	}
	result.QueriesUsed = queries

	sources, err := c.gatherSources(ctx, queries, maxSources)
	if err != nil {
		return nil, fmt.Errorf("gathering sources: %w", err)
	}
	result.Sources = sources

	if len(sources) == 0 {
		c.log.Warn("no usable sources found", zap.String("subtopic", subtopic))
		return result, nil
	}

	findings, outcome, err := c.extractFindings(ctx, subtopic, topic, sources)
	if err != nil {
		return nil, fmt.Errorf("extracting findings: %w", err)
	}
	if outcome == llm.OutcomeFallback {
		result.Fallbacks = append(result.Fallbacks, "research.extraction")
		c.log.Warn("fact extraction fell back to empty findings", zap.String("subtopic", subtopic))
	}

	result.KeyFacts = findings.KeyFacts
	result.Definitions = findings.Definitions
	result.Examples = findings.Examples
	result.Quotes = findings.Quotes
	result.RelatedTopics = findings.RelatedTopics

	c.log.Info("research collected",
		zap.String("subtopic", subtopic),
		zap.Int("sources", len(sources)),
		zap.Int("facts", len(result.KeyFacts)))

	return result, nil
}

// generateQueries asks the model for 5-8 diversified search queries.
// On malformed output it falls back to four templated queries.
func (c *Collector) generateQueries(ctx context.Context, subtopic, topic string) ([]string, llm.Outcome, error) {
	raw, err := c.llm.Complete(ctx, llm.Request{
		System: queriesSystemPrompt,
		Prompt: fmt.Sprintf(queriesPromptFmt, subtopic, topic),
	})
	if err != nil {
		return nil, llm.OutcomeParsed, err
	}

	var queries []string
	if err := llm.Decode(raw, &queries); err != nil || len(queries) == 0 {
		return fallbackQueries(subtopic, topic), llm.OutcomeFallback, nil
	}
	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	return queries, llm.OutcomeParsed, nil
}

// fallbackQueries returns the four templated queries used when query
// generation produces unparseable output.
func fallbackQueries(subtopic, topic string) []string {
	return []string{
		fmt.Sprintf("%s %s", subtopic, topic),
		fmt.Sprintf("%s explanation examples", subtopic),
		fmt.Sprintf("%s rules usage", subtopic),
		fmt.Sprintf("how to use %s", subtopic),
	}
}

// gatherSources runs every query, deduplicates by URL across queries,
// discards short sources, and stops once maxSources are collected.
func (c *Collector) gatherSources(ctx context.Context, queries []string, maxSources int) ([]types.Source, error) {
	seen := make(map[string]bool)
	var sources []types.Source

	for _, q := range queries {
		if len(sources) >= maxSources {
			break
		}

		resp, err := c.search.Search(ctx, q, websearch.Options{
			Depth:             "advanced",
			IncludeRawContent: true,
		})
		if err != nil {
			return nil, err
		}

		for _, r := range resp.Results {
			if len(sources) >= maxSources {
				break
			}
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true

			content := r.RawContent
			if content == "" {
				content = r.Content
			}
			if len(content) < minSourceContent {
				continue
			}
			if len(content) > sourceContentCap {
				content = truncate(content, sourceContentCap)
			}

			sources = append(sources, types.Source{
				URL:            r.URL,
				Title:          r.Title,
				Domain:         domainOf(r.URL),
				Content:        content,
				RelevanceScore: r.Score,
				PublishedDate:  r.PublishedDate,
			})
		}
	}

	return sources, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// domainOf extracts the host from a URL, dropping a www. prefix.
func domainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return strings.TrimPrefix(u.Host, "www.")
}

// findings is the extraction call's JSON contract.
type findings struct {
	KeyFacts      []string           `json:"key_facts"`
	Definitions   []types.Definition `json:"definitions"`
	Examples      []string           `json:"examples"`
	Quotes        []string           `json:"quotes"`
	RelatedTopics []string           `json:"related_topics"`
}

// extractFindings asks the model to extract facts from the gathered
// source excerpts. Malformed output yields empty findings, never a
// stage failure.
func (c *Collector) extractFindings(ctx context.Context, subtopic, topic string, sources []types.Source) (findings, llm.Outcome, error) {
	var b strings.Builder
	for i, s := range sources {
		fmt.Fprintf(&b, "Source %d (%s): %s\n%s\n\n", i+1, s.Domain, s.Title, s.Content)
	}

	raw, err := c.llm.Complete(ctx, llm.Request{
		System: extractSystemPrompt,
		Prompt: fmt.Sprintf(extractPromptFmt, subtopic, topic, b.String()),
	})
	if err != nil {
		return findings{}, llm.OutcomeParsed, err
	}

	var f findings
	if err := llm.Decode(raw, &f); err != nil {
		return findings{}, llm.OutcomeFallback, nil
	}
	return f, llm.OutcomeParsed, nil
}
