// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Source is one web source gathered during research collection.
type Source struct {
	URL            string  `json:"url" yaml:"url"`
	Title          string  `json:"title" yaml:"title"`
	Domain         string  `json:"domain" yaml:"domain"`
	Content        string  `json:"content" yaml:"content"`
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`
	PublishedDate  string  `json:"published_date,omitempty" yaml:"published_date,omitempty"`
}

// Definition is a term with its extracted definition.
type Definition struct {
	Term       string `json:"term" yaml:"term"`
	Definition string `json:"definition" yaml:"definition"`
}

// ResearchResult is the research collector's output for one subtopic.
// It is produced once and treated as immutable input to all later stages.
type ResearchResult struct {
	Subtopic      string       `json:"subtopic" yaml:"subtopic"`
	Topic         string       `json:"topic" yaml:"topic"`
	Sources       []Source     `json:"sources" yaml:"sources"`
	KeyFacts      []string     `json:"key_facts" yaml:"key_facts"`
	Definitions   []Definition `json:"definitions" yaml:"definitions"`
	Examples      []string     `json:"examples" yaml:"examples"`
	Quotes        []string     `json:"quotes" yaml:"quotes"`
	RelatedTopics []string     `json:"related_topics" yaml:"related_topics"`
	QueriesUsed   []string     `json:"queries_used" yaml:"queries_used"`

	// Fallbacks lists the model calls that fell back to deterministic
	// output because the response could not be parsed.
	Fallbacks []string `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty"`
}
