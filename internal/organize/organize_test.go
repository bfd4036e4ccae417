// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package organize

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pdiddy/kbgen/internal/llm"
	"github.com/pdiddy/kbgen/pkg/types"
)

// scriptedClient answers by system prompt; unknown prompts get prose so
// the caller's fallback path runs.
type scriptedClient struct {
	responses map[string]string
}

func (c *scriptedClient) Complete(_ context.Context, req llm.Request) (string, error) {
	if resp, ok := c.responses[req.System]; ok {
		return resp, nil
	}
	return "I could not produce JSON, sorry.", nil
}

func testResearch() *types.ResearchResult {
	return &types.ResearchResult{
		Subtopic: "Formation",
		Topic:    "Present Perfect",
		Sources: []types.Source{
			{URL: "https://englishpage.com/perfect", Domain: "englishpage.com"},
		},
		KeyFacts: []string{
			"Formed with have/has plus the past participle.",
			"The auxiliary agrees with the subject.",
		},
		Definitions: []types.Definition{
			{Term: "past participle", Definition: "The third verb form."},
		},
		Examples:      []string{"I have eaten.", "She has left."},
		RelatedTopics: []string{"Past Simple"},
	}
}

func TestResearchQualityTier(t *testing.T) {
	tests := []struct {
		name                     string
		sources, facts, examples int
		want                     types.ResearchQuality
	}{
		// score = 3*sources + facts + 2*examples
		{"empty is basic", 0, 0, 0, types.QualityBasic},
		{"score 14 is basic", 2, 4, 2, types.QualityBasic},
		{"score 15 is good", 3, 2, 2, types.QualityGood},
		{"score 29 is good", 5, 6, 4, types.QualityGood},
		{"score 30 is comprehensive", 6, 4, 4, types.QualityComprehensive},
		{"score 50 is excellent", 10, 10, 5, types.QualityExcellent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := &types.ResearchResult{
				Sources:  make([]types.Source, tt.sources),
				KeyFacts: make([]string, tt.facts),
				Examples: make([]string, tt.examples),
			}
			if got := ResearchQualityTier(rr); got != tt.want {
				t.Errorf("ResearchQualityTier = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsLanguageTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  bool
	}{
		{"English Grammar", true},
		{"German prepositions", true},
		{"Language learning basics", true},
		{"present perfect grammar", true},
		{"Photosynthesis", false},
		{"Linear Algebra", false},
	}
	for _, tt := range tests {
		if got := IsLanguageTopic(tt.topic); got != tt.want {
			t.Errorf("IsLanguageTopic(%q) = %v, want %v", tt.topic, got, tt.want)
		}
	}
}

func TestOrganizeParsed(t *testing.T) {
	client := &scriptedClient{responses: map[string]string{
		outlineSystemPrompt: `{"title":"Formation","level":"B2","estimated_minutes":25,
			"objectives":["Form the present perfect"],
			"sections":[{"title":"Formation","type":"explanation","purpose":"Explain","key_points":["have/has + participle"]}]}`,
		vocabularySystemPrompt: `[{"term":"participle","difficulty":"intermediate","must_include":true}]`,
		grammarSystemPrompt:    `[{"name":"Present perfect formation","complexity":7}]`,
		exercisesSystemPrompt:  `[{"type":"fill_blank","skill":"production","difficulty":"medium","count":5}]`,
	}}
	o := NewOrganizer(client, types.OrganizeConfig{EnableExercises: true}, nil)

	oc, err := o.Organize(context.Background(), testResearch(), "English Grammar")
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}

	if len(oc.Fallbacks) != 0 {
		t.Errorf("Fallbacks = %v, want none", oc.Fallbacks)
	}
	if oc.Outline.Level != "B2" {
		t.Errorf("Level = %q, want the model's level kept", oc.Outline.Level)
	}
	if len(oc.GrammarPlan) != 1 || oc.GrammarPlan[0].Complexity != 5 {
		t.Errorf("GrammarPlan = %+v, want complexity clamped to 5", oc.GrammarPlan)
	}
	if len(oc.ExercisePlan) != 1 || oc.ExercisePlan[0].Count != 5 {
		t.Errorf("ExercisePlan = %+v", oc.ExercisePlan)
	}
	if oc.Quality != types.QualityBasic {
		t.Errorf("Quality = %q, want basic for the small fixture", oc.Quality)
	}
	if len(oc.TopicConnections) != 1 || oc.TopicConnections[0] != "Past Simple" {
		t.Errorf("TopicConnections = %v", oc.TopicConnections)
	}
}

func TestOrganizeFallbacks(t *testing.T) {
	client := &scriptedClient{responses: map[string]string{}}
	o := NewOrganizer(client, types.OrganizeConfig{EnableExercises: true}, nil)

	oc, err := o.Organize(context.Background(), testResearch(), "English Grammar")
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}

	want := []string{"organize.outline", "organize.vocabulary", "organize.grammar", "organize.exercises"}
	if len(oc.Fallbacks) != len(want) {
		t.Fatalf("Fallbacks = %v, want %v", oc.Fallbacks, want)
	}
	for i, f := range want {
		if oc.Fallbacks[i] != f {
			t.Errorf("Fallbacks[%d] = %q, want %q", i, oc.Fallbacks[i], f)
		}
	}

	if len(oc.Outline.Sections) != 5 {
		t.Fatalf("fallback outline sections = %d, want 5", len(oc.Outline.Sections))
	}
	wantTitles := []string{"Introduction", "Core Concepts", "Examples", "Practice", "Summary"}
	for i, s := range oc.Outline.Sections {
		if s.Title != wantTitles[i] {
			t.Errorf("section %d = %q, want %q", i, s.Title, wantTitles[i])
		}
	}
	if oc.Outline.Level != "B1" {
		t.Errorf("fallback level = %q, want default B1", oc.Outline.Level)
	}

	// Vocabulary falls back to the extracted definitions.
	if len(oc.VocabularyPlan) != 1 || oc.VocabularyPlan[0].Term != "past participle" {
		t.Errorf("VocabularyPlan = %+v", oc.VocabularyPlan)
	}
	if !oc.VocabularyPlan[0].MustInclude {
		t.Error("fallback vocabulary terms must be marked must_include")
	}

	if len(oc.GrammarPlan) != 1 || oc.GrammarPlan[0].Name != "Formation" || oc.GrammarPlan[0].Complexity != 3 {
		t.Errorf("GrammarPlan = %+v", oc.GrammarPlan)
	}

	if len(oc.ExercisePlan) != 4 {
		t.Errorf("fallback exercise plan groups = %d, want 4", len(oc.ExercisePlan))
	}
}

func TestOrganizeSkipsGrammarForNonLanguageTopic(t *testing.T) {
	client := &scriptedClient{responses: map[string]string{
		outlineSystemPrompt:    `{"title":"Cells","sections":[{"title":"Cells","type":"explanation"}]}`,
		vocabularySystemPrompt: `[{"term":"mitochondrion"}]`,
	}}
	o := NewOrganizer(client, types.OrganizeConfig{}, nil)

	rr := testResearch()
	rr.Subtopic = "Cell Structure"
	oc, err := o.Organize(context.Background(), rr, "Biology")
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if len(oc.GrammarPlan) != 0 {
		t.Errorf("GrammarPlan = %+v, want none for a non-language topic", oc.GrammarPlan)
	}
	if len(oc.ExercisePlan) != 0 {
		t.Errorf("ExercisePlan = %+v, want none when exercises are disabled", oc.ExercisePlan)
	}
}

func TestOrganizeVocabularyCap(t *testing.T) {
	var items []string
	for i := 0; i < 40; i++ {
		items = append(items, fmt.Sprintf(`{"term":"term-%d"}`, i))
	}
	client := &scriptedClient{responses: map[string]string{
		outlineSystemPrompt:    `{"title":"Formation","sections":[{"title":"x","type":"explanation"}]}`,
		vocabularySystemPrompt: "[" + strings.Join(items, ",") + "]",
	}}
	o := NewOrganizer(client, types.OrganizeConfig{}, nil)

	rr := testResearch()
	oc, err := o.Organize(context.Background(), rr, "Biology")
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if len(oc.VocabularyPlan) != 30 {
		t.Errorf("VocabularyPlan = %d terms, want clipped to 30", len(oc.VocabularyPlan))
	}
}

func TestOrganizeComplexityClampLow(t *testing.T) {
	client := &scriptedClient{responses: map[string]string{
		outlineSystemPrompt:    `{"title":"Formation","sections":[{"title":"x","type":"explanation"}]}`,
		vocabularySystemPrompt: `[{"term":"participle"}]`,
		grammarSystemPrompt:    `[{"name":"Rule","complexity":0},{"name":"Other","complexity":-2}]`,
	}}
	o := NewOrganizer(client, types.OrganizeConfig{}, nil)

	oc, err := o.Organize(context.Background(), testResearch(), "English Grammar")
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	for _, g := range oc.GrammarPlan {
		if g.Complexity != 1 {
			t.Errorf("complexity for %q = %d, want clamped to 1", g.Name, g.Complexity)
		}
	}
}

// errClient fails every call.
type errClient struct{}

func (errClient) Complete(_ context.Context, _ llm.Request) (string, error) {
	return "", fmt.Errorf("anthropic: 529 overloaded")
}

func TestOrganizeTransportErrorFails(t *testing.T) {
	o := NewOrganizer(errClient{}, types.OrganizeConfig{}, nil)
	if _, err := o.Organize(context.Background(), testResearch(), "English Grammar"); err == nil {
		t.Fatal("transport error must fail the stage")
	}
}
