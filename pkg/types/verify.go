// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ReliabilityTier rates a source's trustworthiness.
type ReliabilityTier string

const (
	TierAuthoritative ReliabilityTier = "authoritative"
	TierReliable      ReliabilityTier = "reliable"
	TierModerate      ReliabilityTier = "moderate"
	TierQuestionable  ReliabilityTier = "questionable"
)

// Score maps the tier to a numeric quality score in [0,1].
func (t ReliabilityTier) Score() float64 {
	switch t {
	case TierAuthoritative:
		return 1.0
	case TierReliable:
		return 0.8
	case TierModerate:
		return 0.55
	default:
		return 0.3
	}
}

// ConsensusLevel is the qualitative agreement rating assigned to a fact
// after cross-source comparison.
type ConsensusLevel string

const (
	ConsensusUnanimous     ConsensusLevel = "unanimous"
	ConsensusMajority      ConsensusLevel = "majority"
	ConsensusMixed         ConsensusLevel = "mixed"
	ConsensusControversial ConsensusLevel = "controversial"
)

// FactVerification carries the cross-reference outcome for one fact.
type FactVerification struct {
	Fact               string         `json:"fact" yaml:"fact"`
	Confidence         float64        `json:"confidence" yaml:"confidence"`
	Consensus          ConsensusLevel `json:"consensus" yaml:"consensus"`
	SupportingSources  []string       `json:"supporting_sources,omitempty" yaml:"supporting_sources,omitempty"`
	ConflictingSources []string       `json:"conflicting_sources,omitempty" yaml:"conflicting_sources,omitempty"`
}

// VerifiedDefinition is a definition checked across sources.
type VerifiedDefinition struct {
	Term        string `json:"term" yaml:"term"`
	Definition  string `json:"definition" yaml:"definition"`
	SourceCount int    `json:"source_count" yaml:"source_count"`
	Agreed      bool   `json:"agreed" yaml:"agreed"`
}

// Conflict records a fact with disagreeing sources, optionally resolved
// by the model with a recommended claim.
type Conflict struct {
	Fact             string   `json:"fact" yaml:"fact"`
	Sources          []string `json:"sources,omitempty" yaml:"sources,omitempty"`
	RecommendedClaim string   `json:"recommended_claim,omitempty" yaml:"recommended_claim,omitempty"`
}

// SourceReliability holds the tier assigned to one source.
type SourceReliability struct {
	URL   string          `json:"url" yaml:"url"`
	Tier  ReliabilityTier `json:"tier" yaml:"tier"`
	Score float64         `json:"score" yaml:"score"`
}

// VerificationReport is the verifier's assessment of a ResearchResult.
type VerificationReport struct {
	// OverallConfidence is clamped to [0,1], including on empty input.
	OverallConfidence float64              `json:"overall_confidence" yaml:"overall_confidence"`
	Facts             []FactVerification   `json:"facts" yaml:"facts"`
	Definitions       []VerifiedDefinition `json:"definitions" yaml:"definitions"`
	Conflicts         []Conflict           `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Sources           []SourceReliability  `json:"sources" yaml:"sources"`

	// Recommendation lists partition the verified facts.
	Include       []string `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude       []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	NeedsCitation []string `json:"needs_citation,omitempty" yaml:"needs_citation,omitempty"`
}

// VerifiedResearch pairs a ResearchResult with its verification report.
type VerifiedResearch struct {
	ResearchResult `yaml:",inline"`
	Verification   VerificationReport `json:"verification" yaml:"verification"`
}
