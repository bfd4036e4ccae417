// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/kbgen/internal/llm"
	"github.com/pdiddy/kbgen/pkg/types"
)

// fakeLLM answers the discovery call with a JSON array of subtopics.
type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Complete(_ context.Context, _ llm.Request) (string, error) {
	return f.response, f.err
}

func discoveryResponse(names ...string) string {
	b, _ := json.Marshal(names)
	return string(b)
}

type fakeResearcher struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]int // subtopic -> number of failing attempts
}

func (f *fakeResearcher) Collect(_ context.Context, subtopic, topic string, _ int) (*types.ResearchResult, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[subtopic]++
	n := f.calls[subtopic]
	f.mu.Unlock()
	if n <= f.fail[subtopic] {
		return nil, fmt.Errorf("search unavailable for %s", subtopic)
	}
	return &types.ResearchResult{
		Subtopic: subtopic,
		Topic:    topic,
		Sources: []types.Source{
			{URL: "https://bbc.co.uk/learning", Title: "Guide", Domain: "bbc.co.uk", Content: "content", RelevanceScore: 0.9},
		},
		KeyFacts: []string{"fact one", "fact two"},
	}, nil
}

type fakeVerifier struct{ confidence float64 }

func (f *fakeVerifier) Verify(_ context.Context, rr *types.ResearchResult, _ string) (*types.VerifiedResearch, error) {
	return &types.VerifiedResearch{
		ResearchResult: *rr,
		Verification:   types.VerificationReport{OverallConfidence: f.confidence},
	}, nil
}

type fakeOrganizer struct{}

func (fakeOrganizer) Organize(_ context.Context, rr *types.ResearchResult, _ string) (*types.OrganizedContent, error) {
	return &types.OrganizedContent{
		Subtopic: rr.Subtopic,
		Outline:  types.Outline{Title: rr.Subtopic, Level: "B1"},
		Quality:  types.QualityGood,
	}, nil
}

type fakeWriter struct{}

func (fakeWriter) Write(_ context.Context, oc *types.OrganizedContent, _ *types.ResearchResult) (*types.KnowledgeContent, error) {
	return &types.KnowledgeContent{
		ID:       "content-" + oc.Subtopic,
		Metadata: types.ContentMetadata{Subtopic: oc.Subtopic, WordCount: 600},
	}, nil
}

type fakeReviewer struct {
	score  float64
	passed bool
}

func (f *fakeReviewer) Review(_ context.Context, _ *types.KnowledgeContent, _ *types.ResearchResult) (*types.QualityReview, error) {
	return &types.QualityReview{OverallScore: f.score, Passed: f.passed}, nil
}

func (f *fakeReviewer) MinScore() float64 { return 60 }

// memStore is an in-memory Store for orchestration tests.
type memStore struct {
	mu       sync.Mutex
	jobs     map[string]*types.GenerationJob
	contents []*types.KnowledgeContent
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]*types.GenerationJob)}
}

func (m *memStore) CreateJob(_ context.Context, job *types.GenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memStore) SetSubtopics(_ context.Context, jobID string, names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[jobID]
	job.Subtopics = nil
	for _, n := range names {
		job.Subtopics = append(job.Subtopics, types.Subtopic{Name: n, Status: types.SubtopicPending})
	}
	return nil
}

func (m *memStore) UpdateSubtopic(_ context.Context, jobID string, st types.Subtopic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[jobID]
	for i := range job.Subtopics {
		if job.Subtopics[i].Name == st.Name {
			job.Subtopics[i] = st
			return nil
		}
	}
	return fmt.Errorf("subtopic %s not found", st.Name)
}

func (m *memStore) UpdateJobStatus(_ context.Context, jobID string, status types.JobStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[jobID]
	job.Status = status
	job.Error = errMsg
	return nil
}

func (m *memStore) GetJob(_ context.Context, jobID string) (*types.GenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s not found", jobID)
	}
	cp := *job
	cp.Subtopics = append([]types.Subtopic(nil), job.Subtopics...)
	return &cp, nil
}

func (m *memStore) AppendContent(_ context.Context, content *types.KnowledgeContent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contents = append(m.contents, content)
	return nil
}

func testOrchestrator(st Store, agents Agents, response string) *Orchestrator {
	cfg := types.DefaultPipelineConfig()
	return NewOrchestrator(agents, st, &fakeLLM{response: response}, cfg, nil, nil)
}

func happyAgents(r *fakeResearcher) Agents {
	return Agents{
		Researcher: r,
		Verifier:   &fakeVerifier{confidence: 0.9},
		Organizer:  fakeOrganizer{},
		Writer:     fakeWriter{},
		Reviewer:   &fakeReviewer{score: 82, passed: true},
	}
}

func TestQuickScenarioCompletes(t *testing.T) {
	st := newMemStore()
	o := testOrchestrator(st, happyAgents(&fakeResearcher{}),
		discoveryResponse("Formation", "Usage", "Signal Words", "Negation", "Questions"))
	ctx := context.Background()

	job, err := o.StartGeneration(ctx, "Present Perfect Tense", types.ModeSequential, types.ScaleQuick)
	require.NoError(t, err)
	assert.Equal(t, 10, job.Scale.EstimatedMinutes())
	require.Len(t, job.Subtopics, 5)

	require.NoError(t, o.Run(ctx, job))
	assert.Equal(t, types.JobCompleted, job.Status)
	assert.Equal(t, 5, job.CompletedCount())
	for _, sub := range job.Subtopics {
		assert.Equal(t, types.SubtopicCompleted, sub.Status)
		assert.Greater(t, sub.WordCount, 0)
		assert.InDelta(t, 82, sub.QualityScore, 0.001)
	}
	assert.Len(t, st.contents, 5)
	for _, c := range st.contents {
		assert.Equal(t, job.KnowledgeBaseID, c.KnowledgeBaseID)
		assert.Equal(t, job.ID, c.JobID)
	}
}

func TestFailedSubtopicDoesNotAbortSiblings(t *testing.T) {
	st := newMemStore()
	r := &fakeResearcher{fail: map[string]int{"Usage": 99}}
	o := testOrchestrator(st, happyAgents(r), discoveryResponse("Formation", "Usage", "Negation"))
	ctx := context.Background()

	job, err := o.StartGeneration(ctx, "Past Tense", types.ModeSequential, types.ScaleQuick)
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx, job))

	assert.Equal(t, types.JobCompleted, job.Status)
	assert.Equal(t, 2, job.CompletedCount())
	assert.Equal(t, 1, job.FailedCount())
	for _, sub := range job.Subtopics {
		if sub.Name == "Usage" {
			assert.Equal(t, types.SubtopicFailed, sub.Status)
			assert.Contains(t, sub.Error, "search unavailable")
		}
	}
}

func TestRetryBoundAndRecovery(t *testing.T) {
	st := newMemStore()
	// Fails twice then succeeds: exactly within the 1+MaxRetries=3 bound.
	r := &fakeResearcher{fail: map[string]int{"Formation": 2}}
	o := testOrchestrator(st, happyAgents(r), discoveryResponse("Formation"))
	ctx := context.Background()

	job, err := o.StartGeneration(ctx, "Articles", types.ModeSequential, types.ScaleQuick)
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx, job))

	assert.Equal(t, types.SubtopicCompleted, job.Subtopics[0].Status)
	assert.Equal(t, 3, job.Subtopics[0].Attempts)
	assert.Equal(t, 3, r.calls["Formation"])
}

func TestRetryExhaustion(t *testing.T) {
	st := newMemStore()
	r := &fakeResearcher{fail: map[string]int{"Formation": 99}}
	o := testOrchestrator(st, happyAgents(r), discoveryResponse("Formation"))
	ctx := context.Background()

	job, err := o.StartGeneration(ctx, "Articles", types.ModeSequential, types.ScaleQuick)
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx, job))

	assert.Equal(t, types.JobFailed, job.Status)
	assert.Equal(t, types.SubtopicFailed, job.Subtopics[0].Status)
	assert.Equal(t, 3, job.Subtopics[0].Attempts)
	assert.Equal(t, 3, r.calls["Formation"])
}

func TestQualityGateFailureRetriesWhenConfigured(t *testing.T) {
	st := newMemStore()
	agents := happyAgents(&fakeResearcher{})
	agents.Reviewer = &fakeReviewer{score: 40, passed: false}
	o := testOrchestrator(st, agents, discoveryResponse("Formation"))
	ctx := context.Background()

	job, err := o.StartGeneration(ctx, "Articles", types.ModeSequential, types.ScaleQuick)
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx, job))

	assert.Equal(t, types.SubtopicFailed, job.Subtopics[0].Status)
	assert.Equal(t, 3, job.Subtopics[0].Attempts)
	assert.Contains(t, job.Subtopics[0].Error, "quality gate failed")
}

func TestQualityGateFailureNoRetryWhenDisabled(t *testing.T) {
	st := newMemStore()
	agents := happyAgents(&fakeResearcher{})
	agents.Reviewer = &fakeReviewer{score: 40, passed: false}
	cfg := types.DefaultPipelineConfig()
	cfg.Review.AutoRetryOnFail = false
	o := NewOrchestrator(agents, st, &fakeLLM{response: discoveryResponse("Formation")}, cfg, nil, nil)
	ctx := context.Background()

	job, err := o.StartGeneration(ctx, "Articles", types.ModeSequential, types.ScaleQuick)
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx, job))

	assert.Equal(t, types.SubtopicFailed, job.Subtopics[0].Status)
	assert.Equal(t, 1, job.Subtopics[0].Attempts)
}

func TestLowConfidenceFailsSubtopic(t *testing.T) {
	st := newMemStore()
	agents := happyAgents(&fakeResearcher{})
	agents.Verifier = &fakeVerifier{confidence: 0.2}
	o := testOrchestrator(st, agents, discoveryResponse("Formation"))
	ctx := context.Background()

	job, err := o.StartGeneration(ctx, "Articles", types.ModeSequential, types.ScaleQuick)
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx, job))

	assert.Equal(t, types.SubtopicFailed, job.Subtopics[0].Status)
	assert.Contains(t, job.Subtopics[0].Error, "below minimum")
}

func TestParallelWavesComplete(t *testing.T) {
	st := newMemStore()
	names := []string{"A", "B", "C", "D", "E", "F", "G"}
	o := testOrchestrator(st, happyAgents(&fakeResearcher{}), discoveryResponse(names...))
	ctx := context.Background()

	job, err := o.StartGeneration(ctx, "Verb Tenses", types.ModeParallel, types.ScaleStandard)
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx, job))

	assert.Equal(t, types.JobCompleted, job.Status)
	assert.Equal(t, len(names), job.CompletedCount())
	assert.Len(t, st.contents, len(names))
}

func TestWaves(t *testing.T) {
	tests := []struct {
		name string
		n    int
		size int
		want [][]int
	}{
		{"seven by three", 7, 3, [][]int{{0, 1, 2}, {3, 4, 5}, {6}}},
		{"exact multiple", 4, 2, [][]int{{0, 1}, {2, 3}}},
		{"single wave", 2, 5, [][]int{{0, 1}}},
		{"zero size clamps to one", 3, 0, [][]int{{0}, {1}, {2}}},
		{"empty", 0, 3, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Waves(tt.n, tt.size))
		})
	}
}

func TestDiscoveryFailureFailsJob(t *testing.T) {
	st := newMemStore()
	o := NewOrchestrator(happyAgents(&fakeResearcher{}), st,
		&fakeLLM{err: fmt.Errorf("api down")}, types.DefaultPipelineConfig(), nil, nil)

	_, err := o.StartGeneration(context.Background(), "Articles", types.ModeSequential, types.ScaleQuick)
	require.Error(t, err)

	for _, job := range st.jobs {
		assert.Equal(t, types.JobFailed, job.Status)
	}
}

func TestDiscoveryLineFallback(t *testing.T) {
	st := newMemStore()
	raw := "1. Formation\n2. Usage\n- Signal Words\nFormation\n\n"
	o := testOrchestrator(st, happyAgents(&fakeResearcher{}), raw)

	job, err := o.StartGeneration(context.Background(), "Present Perfect", types.ModeSequential, types.ScaleQuick)
	require.NoError(t, err)

	var names []string
	for _, sub := range job.Subtopics {
		names = append(names, sub.Name)
	}
	// Numbering stripped, duplicate dropped.
	assert.Equal(t, []string{"Formation", "Usage", "Signal Words"}, names)
}

func TestCancelStopsRun(t *testing.T) {
	st := newMemStore()
	o := testOrchestrator(st, happyAgents(&fakeResearcher{}), discoveryResponse("A", "B", "C"))
	ctx, cancel := context.WithCancel(context.Background())

	job, err := o.StartGeneration(ctx, "Articles", types.ModeSequential, types.ScaleQuick)
	require.NoError(t, err)

	cancel()
	err = o.Run(ctx, job)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.JobCancelled, job.Status)

	got, err := st.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobCancelled, got.Status)
}

func TestStatusTransitionEvents(t *testing.T) {
	st := newMemStore()
	o := testOrchestrator(st, happyAgents(&fakeResearcher{}), discoveryResponse("Formation"))

	type step struct {
		status types.SubtopicStatus
		agent  string
	}
	var mu sync.Mutex
	var steps []step
	o.Events().Subscribe(func(ev Event) {
		if ev.Type == EventSubtopicStatus || ev.Type == EventSubtopicCompleted {
			mu.Lock()
			steps = append(steps, step{ev.Status, ev.Agent})
			mu.Unlock()
		}
	})

	ctx := context.Background()
	job, err := o.StartGeneration(ctx, "Articles", types.ModeSequential, types.ScaleQuick)
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx, job))

	// Research and verification both run under scraping, writing under
	// synthesizing; the agent field tells them apart.
	assert.Equal(t, []step{
		{types.SubtopicScraping, AgentResearcher},
		{types.SubtopicScraping, AgentVerifier},
		{types.SubtopicSynthesizing, AgentOrganizer},
		{types.SubtopicSynthesizing, AgentWriter},
		{types.SubtopicOptimizing, AgentReviewer},
		{types.SubtopicCompleted, ""},
		{types.SubtopicCompleted, ""}, // the completion event repeats the terminal status
	}, steps)
}

func TestParallelStatusOnEvents(t *testing.T) {
	st := newMemStore()
	o := testOrchestrator(st, happyAgents(&fakeResearcher{}),
		discoveryResponse("S1", "S2", "S3", "S4", "S5"))

	var mu sync.Mutex
	waveLabels := map[string]bool{}
	subtopicLabels := map[string]bool{}
	o.Events().Subscribe(func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		switch ev.Type {
		case EventWaveStarted:
			waveLabels[ev.ParallelStatus] = true
		case EventSubtopicStatus, EventSubtopicCompleted:
			subtopicLabels[ev.ParallelStatus] = true
		}
	})

	ctx := context.Background()
	job, err := o.StartGeneration(ctx, "Present Perfect Tense", types.ModeParallel, types.ScaleQuick)
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx, job))

	// Quick scale: 5 subtopics at concurrency 2 means waves of 2, 2, 1.
	assert.Equal(t, map[string]bool{
		"wave 1/3": true,
		"wave 2/3": true,
		"wave 3/3": true,
	}, waveLabels)
	for label := range subtopicLabels {
		assert.Contains(t, []string{"wave 1/3", "wave 2/3", "wave 3/3"}, label)
	}
	assert.NotContains(t, subtopicLabels, "")
}

func TestSequentialEventsCarryNoParallelStatus(t *testing.T) {
	st := newMemStore()
	o := testOrchestrator(st, happyAgents(&fakeResearcher{}), discoveryResponse("Formation"))

	var mu sync.Mutex
	labels := map[string]bool{}
	o.Events().Subscribe(func(ev Event) {
		if ev.Type == EventSubtopicStatus {
			mu.Lock()
			labels[ev.ParallelStatus] = true
			mu.Unlock()
		}
	})

	ctx := context.Background()
	job, err := o.StartGeneration(ctx, "Articles", types.ModeSequential, types.ScaleQuick)
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx, job))

	assert.Equal(t, map[string]bool{"": true}, labels)
}
