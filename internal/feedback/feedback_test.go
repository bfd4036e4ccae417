// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package feedback

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/kbgen/pkg/types"
)

// memStore collects appended events and can fail a number of flushes.
type memStore struct {
	events    []types.UsageEvent
	failNext  int
	appends   int
	queried   []types.UsageEvent
	queryErr  error
	lastKB    string
	lastRange [2]time.Time
}

func (m *memStore) AppendUsageEvents(_ context.Context, events []types.UsageEvent) error {
	m.appends++
	if m.failNext > 0 {
		m.failNext--
		return fmt.Errorf("database locked")
	}
	m.events = append(m.events, events...)
	return nil
}

func (m *memStore) QueryUsageEvents(_ context.Context, kbID string, from, to time.Time) ([]types.UsageEvent, error) {
	m.lastKB = kbID
	m.lastRange = [2]time.Time{from, to}
	return m.queried, m.queryErr
}

func TestRecordFlushesAtThreshold(t *testing.T) {
	st := &memStore{}
	loop := NewLoop(st, types.FeedbackConfig{FlushThreshold: 3}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, loop.Record(ctx, types.UsageEvent{KnowledgeBaseID: "kb-1", Type: types.EventLookup}))
	}
	assert.Equal(t, 2, loop.Pending())
	assert.Empty(t, st.events)

	require.NoError(t, loop.Record(ctx, types.UsageEvent{KnowledgeBaseID: "kb-1", Type: types.EventLookup}))
	assert.Equal(t, 0, loop.Pending())
	require.Len(t, st.events, 3)
	for _, ev := range st.events {
		assert.NotEmpty(t, ev.ID, "flush must assign idempotency keys")
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestFlushFailureRequeues(t *testing.T) {
	st := &memStore{failNext: 1}
	loop := NewLoop(st, types.FeedbackConfig{FlushThreshold: 2}, nil)
	ctx := context.Background()

	require.NoError(t, loop.Record(ctx, types.UsageEvent{ID: "ev-1", Type: types.EventLookup}))
	err := loop.Record(ctx, types.UsageEvent{ID: "ev-2", Type: types.EventLookup})
	require.Error(t, err)
	assert.Equal(t, 2, loop.Pending(), "failed batch must be re-queued")

	require.NoError(t, loop.Flush(ctx))
	assert.Equal(t, 0, loop.Pending())
	require.Len(t, st.events, 2)
	assert.Equal(t, "ev-1", st.events[0].ID)
}

func TestEffectivenessScore(t *testing.T) {
	tests := []struct {
		name string
		eff  types.ContentEffectiveness
		want float64
	}{
		{
			name: "perfect",
			eff:  types.ContentEffectiveness{SuccessRate: 1, HelpfulRate: 1, FollowUpRate: 0, AvgLatencyMS: 0},
			want: 100,
		},
		{
			name: "all zero rates at ceiling latency",
			eff:  types.ContentEffectiveness{SuccessRate: 0, HelpfulRate: 0, FollowUpRate: 1, AvgLatencyMS: 200},
			want: 0,
		},
		{
			name: "mixed",
			eff:  types.ContentEffectiveness{SuccessRate: 0.8, HelpfulRate: 0.5, FollowUpRate: 0.4, AvgLatencyMS: 100},
			// 0.3*0.8 + 0.4*0.5 + 0.2*0.6 + 0.1*0.5 = 0.61
			want: 61,
		},
		{
			name: "latency clamped to ceiling",
			eff:  types.ContentEffectiveness{SuccessRate: 1, HelpfulRate: 1, FollowUpRate: 0, AvgLatencyMS: 900},
			want: 90,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.eff), 0.001)
		})
	}
}

func TestEffectivenessAggregation(t *testing.T) {
	events := []types.UsageEvent{
		{ContentID: "c-1", Type: types.EventLookup, Success: true, Helpful: true, LatencyMS: 10},
		{ContentID: "c-1", Type: types.EventLookup, Success: true, Helpful: false, FollowUp: true, LatencyMS: 30},
		{ContentID: "c-2", Type: types.EventRetrieval, Success: false, LatencyMS: 80},
		{Type: types.EventGap, Query: "subjunctive"},
		{ContentID: "c-3", Type: types.EventGap, Query: "ignored for effectiveness"},
	}

	out := Effectiveness(events)
	require.Len(t, out, 2)

	// Worst first: c-2 has no successes.
	assert.Equal(t, "c-2", out[0].ContentID)
	assert.True(t, out[0].NeedsImprovement)
	assert.InDelta(t, 80, out[0].AvgLatencyMS, 0.001)

	c1 := out[1]
	assert.Equal(t, "c-1", c1.ContentID)
	assert.Equal(t, 2, c1.Lookups)
	assert.InDelta(t, 1.0, c1.SuccessRate, 0.001)
	assert.InDelta(t, 0.5, c1.HelpfulRate, 0.001)
	assert.InDelta(t, 0.5, c1.FollowUpRate, 0.001)
	assert.InDelta(t, 20, c1.AvgLatencyMS, 0.001)
	assert.True(t, c1.NeedsImprovement, "helpful rate below threshold")
}

func gapEvents(query string, n int) []types.UsageEvent {
	out := make([]types.UsageEvent, n)
	for i := range out {
		out[i] = types.UsageEvent{Type: types.EventGap, Query: query}
	}
	return out
}

func TestGapsClusterSimilarPhrasings(t *testing.T) {
	var events []types.UsageEvent
	events = append(events, gapEvents("past tense rules", 4)...)
	events = append(events, gapEvents("past tense examples", 3)...)
	events = append(events, gapEvents("how to use past tense", 3)...)
	events = append(events, gapEvents("subjunctive mood", 2)...)
	events = append(events, types.UsageEvent{Type: types.EventLookup, Query: "ignored"})

	gaps := Gaps(events)
	require.Len(t, gaps, 2)

	// The three phrasings normalize to the same token set and merge.
	assert.Equal(t, 10, gaps[0].Count)
	assert.Equal(t, types.GapHigh, gaps[0].Priority)
	assert.ElementsMatch(t, []string{"past tense rules", "past tense examples", "how to use past tense"}, gaps[0].Queries)

	assert.Equal(t, 2, gaps[1].Count)
	assert.Equal(t, types.GapLow, gaps[1].Priority)
}

func TestGapPriorities(t *testing.T) {
	var events []types.UsageEvent
	events = append(events, gapEvents("conditional sentences", 10)...)
	events = append(events, gapEvents("reported speech", 5)...)
	events = append(events, gapEvents("phrasal verbs", 4)...)

	gaps := Gaps(events)
	require.Len(t, gaps, 3)
	assert.Equal(t, types.GapHigh, gaps[0].Priority)
	assert.Equal(t, types.GapMedium, gaps[1].Priority)
	assert.Equal(t, types.GapLow, gaps[2].Priority)
}

func TestJaccard(t *testing.T) {
	a := normalizeQuery("past tense rules")
	b := normalizeQuery("past tense examples")
	assert.InDelta(t, 1.0, jaccard(a, b), 0.001, "filler words drop before comparison")

	c := normalizeQuery("subjunctive mood")
	assert.Less(t, jaccard(a, c), 0.7)

	assert.Equal(t, 0.0, jaccard(map[string]bool{}, map[string]bool{}))
}

func TestAnalyzerReportRuleFallback(t *testing.T) {
	st := &memStore{}
	st.queried = append(st.queried, gapEvents("gerunds and infinitives", 12)...)
	st.queried = append(st.queried,
		types.UsageEvent{ContentID: "c-1", Type: types.EventLookup, Success: false, Helpful: false, LatencyMS: 10},
	)

	a := NewAnalyzer(st, nil, types.FeedbackConfig{Window: 24 * time.Hour}, nil)
	report, err := a.Report(context.Background(), "kb-1")
	require.NoError(t, err)

	assert.Equal(t, "kb-1", report.KnowledgeBaseID)
	assert.Equal(t, "kb-1", st.lastKB)
	assert.InDelta(t, 24*time.Hour, report.WindowEnd.Sub(report.WindowStart), float64(time.Second))
	require.Len(t, report.Gaps, 1)
	require.NotEmpty(t, report.Recommendations)
	assert.Contains(t, report.Recommendations[0], "gerunds and infinitives")
}
