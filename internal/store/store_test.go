// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/kbgen/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(types.StoreConfig{Path: filepath.Join(t.TempDir(), "kbgen.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestJobRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	job := &types.GenerationJob{
		ID:              "job-1",
		KnowledgeBaseID: "kb-1",
		Topic:           "Present Perfect Tense",
		Mode:            types.ModeParallel,
		Scale:           types.ScaleQuick,
		Status:          types.JobDiscovering,
	}
	require.NoError(t, s.CreateJob(ctx, job))

	names := []string{"Formation", "Usage", "Signal Words"}
	require.NoError(t, s.SetSubtopics(ctx, job.ID, names))

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Present Perfect Tense", got.Topic)
	assert.Equal(t, types.ScaleQuick, got.Scale)
	require.Len(t, got.Subtopics, 3)
	for i, st := range got.Subtopics {
		assert.Equal(t, names[i], st.Name)
		assert.Equal(t, types.SubtopicPending, st.Status)
	}
}

func TestUpdateSubtopic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	job := &types.GenerationJob{
		ID: "job-1", KnowledgeBaseID: "kb-1", Topic: "Modal Verbs",
		Mode: types.ModeSequential, Scale: types.ScaleStandard, Status: types.JobRunning,
	}
	require.NoError(t, s.CreateJob(ctx, job))
	require.NoError(t, s.SetSubtopics(ctx, job.ID, []string{"Obligation"}))

	st := types.Subtopic{
		Name:         "Obligation",
		Status:       types.SubtopicCompleted,
		Attempts:     2,
		WordCount:    840,
		QualityScore: 81.5,
	}
	require.NoError(t, s.UpdateSubtopic(ctx, job.ID, st))

	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, got.Subtopics, 1)
	assert.Equal(t, types.SubtopicCompleted, got.Subtopics[0].Status)
	assert.Equal(t, 2, got.Subtopics[0].Attempts)
	assert.Equal(t, 840, got.Subtopics[0].WordCount)
	assert.InDelta(t, 81.5, got.Subtopics[0].QualityScore, 0.001)

	err = s.UpdateSubtopic(ctx, job.ID, types.Subtopic{Name: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateJobStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	job := &types.GenerationJob{
		ID: "job-1", KnowledgeBaseID: "kb-1", Topic: "Conditionals",
		Mode: types.ModeSequential, Scale: types.ScaleQuick, Status: types.JobDiscovering,
	}
	require.NoError(t, s.CreateJob(ctx, job))

	require.NoError(t, s.UpdateJobStatus(ctx, job.ID, types.JobFailed, "discovery failed"))
	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, types.JobFailed, got.Status)
	assert.Equal(t, "discovery failed", got.Error)

	assert.ErrorIs(t, s.UpdateJobStatus(ctx, "nope", types.JobCompleted, ""), ErrNotFound)
}

func TestContentRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	content := &types.KnowledgeContent{
		ID:              "content-1",
		KnowledgeBaseID: "kb-1",
		JobID:           "job-1",
		Metadata: types.ContentMetadata{
			Subtopic:  "Irregular Verbs",
			Topic:     "Past Tense",
			Level:     "B1",
			WordCount: 512,
		},
		Body: types.ContentBody{
			Introduction: "Irregular verbs do not follow the -ed pattern.",
			Summary:      "Memorize the high-frequency forms first.",
		},
		RLM: types.RLMIndex{
			VocabularyByTerm: map[string]types.VocabularyEntry{
				"went": {Term: "went", Definition: "past of go", Level: "B1"},
			},
			TopicKeywords: []string{"irregular verbs", "past tense"},
		},
	}
	require.NoError(t, s.AppendContent(ctx, content))

	got, err := s.GetContent(ctx, "content-1")
	require.NoError(t, err)
	assert.Equal(t, "Irregular Verbs", got.Metadata.Subtopic)
	assert.Equal(t, "went", got.RLM.VocabularyByTerm["went"].Term)

	_, err = s.GetContent(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.ListContents(ctx, "kb-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "content-1", list[0].ID)
}

func TestExportYAML(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	content := &types.KnowledgeContent{
		ID:              "content-1",
		KnowledgeBaseID: "kb-1",
		JobID:           "job-1",
		Metadata:        types.ContentMetadata{Subtopic: "Articles", Topic: "Determiners", Level: "B1"},
	}
	require.NoError(t, s.AppendContent(ctx, content))

	var buf bytes.Buffer
	require.NoError(t, s.ExportYAML(ctx, "kb-1", &buf))

	var doc struct {
		KnowledgeBaseID string `yaml:"knowledge_base_id"`
		Contents        []struct {
			ID string `yaml:"id"`
		} `yaml:"contents"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "kb-1", doc.KnowledgeBaseID)
	require.Len(t, doc.Contents, 1)
	assert.Equal(t, "content-1", doc.Contents[0].ID)

	assert.ErrorIs(t, s.ExportYAML(ctx, "empty-kb", &buf), ErrNotFound)
}

func TestUsageEventIdempotency(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	events := []types.UsageEvent{
		{ID: "ev-1", KnowledgeBaseID: "kb-1", Type: types.EventLookup, Query: "past tense", Success: true, Helpful: true, LatencyMS: 12, Timestamp: now},
		{ID: "ev-2", KnowledgeBaseID: "kb-1", Type: types.EventGap, Query: "subjunctive", Timestamp: now},
	}
	require.NoError(t, s.AppendUsageEvents(ctx, events))

	// A re-queued batch with the same IDs must not double-count.
	require.NoError(t, s.AppendUsageEvents(ctx, events))

	got, err := s.QueryUsageEvents(ctx, "kb-1", now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ev-1", got[0].ID)
	assert.True(t, got[0].Success)
	assert.Equal(t, types.EventGap, got[1].Type)
	assert.False(t, got[1].Success)
}

func TestQueryUsageEventsWindow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	events := []types.UsageEvent{
		{ID: "ev-old", KnowledgeBaseID: "kb-1", Type: types.EventLookup, Timestamp: base.Add(-48 * time.Hour)},
		{ID: "ev-in", KnowledgeBaseID: "kb-1", Type: types.EventLookup, Timestamp: base},
		{ID: "ev-other", KnowledgeBaseID: "kb-2", Type: types.EventLookup, Timestamp: base},
	}
	require.NoError(t, s.AppendUsageEvents(ctx, events))

	got, err := s.QueryUsageEvents(ctx, "kb-1", base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ev-in", got[0].ID)
}

func TestQueryUsageEventsFractionalSeconds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Timestamps whose fractional digits are a prefix of another's
	// (0.5s vs 0.55s) must still compare correctly in SQL, which
	// requires a fixed-width stored format.
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	events := []types.UsageEvent{
		{ID: "ev-before", KnowledgeBaseID: "kb-1", Type: types.EventLookup, Timestamp: base.Add(500 * time.Millisecond)},
		{ID: "ev-in", KnowledgeBaseID: "kb-1", Type: types.EventLookup, Timestamp: base.Add(600 * time.Millisecond)},
	}
	require.NoError(t, s.AppendUsageEvents(ctx, events))

	got, err := s.QueryUsageEvents(ctx, "kb-1", base.Add(550*time.Millisecond), base.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ev-in", got[0].ID)

	// Ordering across mixed fractional precision.
	got, err = s.QueryUsageEvents(ctx, "kb-1", base, base.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ev-before", got[0].ID)
	assert.Equal(t, "ev-in", got[1].ID)
	assert.True(t, got[0].Timestamp.Equal(base.Add(500*time.Millisecond)))
}
