// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline coordinates the five-stage generation pipeline:
// subtopic discovery, then per-subtopic research, verification,
// organization, writing, and review. Subtopics are independent units of
// work; one subtopic failing never aborts its siblings.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/kbgen/internal/llm"
	"github.com/pdiddy/kbgen/pkg/types"
)

// Researcher gathers sources and extracts findings for one subtopic.
type Researcher interface {
	Collect(ctx context.Context, subtopic, topic string, maxSources int) (*types.ResearchResult, error)
}

// Verifier assesses research reliability and cross-references facts.
type Verifier interface {
	Verify(ctx context.Context, rr *types.ResearchResult, topic string) (*types.VerifiedResearch, error)
}

// Organizer plans the content structure from verified research.
type Organizer interface {
	Organize(ctx context.Context, rr *types.ResearchResult, topic string) (*types.OrganizedContent, error)
}

// Writer authors the content and builds its RLM indexes.
type Writer interface {
	Write(ctx context.Context, oc *types.OrganizedContent, rr *types.ResearchResult) (*types.KnowledgeContent, error)
}

// Reviewer scores authored content and applies the quality gate.
type Reviewer interface {
	Review(ctx context.Context, kc *types.KnowledgeContent, rr *types.ResearchResult) (*types.QualityReview, error)
	MinScore() float64
}

// Agent names reported in progress events.
const (
	AgentResearcher = "researcher"
	AgentVerifier   = "verifier"
	AgentOrganizer  = "organizer"
	AgentWriter     = "writer"
	AgentReviewer   = "reviewer"
)

// Agents bundles the five pipeline stages.
type Agents struct {
	Researcher Researcher
	Verifier   Verifier
	Organizer  Organizer
	Writer     Writer
	Reviewer   Reviewer
}

// Store is the persistence surface the orchestrator needs. Implemented
// by store.Store.
type Store interface {
	CreateJob(ctx context.Context, job *types.GenerationJob) error
	SetSubtopics(ctx context.Context, jobID string, names []string) error
	UpdateSubtopic(ctx context.Context, jobID string, st types.Subtopic) error
	UpdateJobStatus(ctx context.Context, jobID string, status types.JobStatus, errMsg string) error
	GetJob(ctx context.Context, jobID string) (*types.GenerationJob, error)
	AppendContent(ctx context.Context, content *types.KnowledgeContent) error
}

// Orchestrator owns generation jobs end to end. All job state mutations
// go through it.
type Orchestrator struct {
	agents Agents
	store  Store
	llm    llm.Client
	cfg    types.PipelineConfig
	bus    *Bus
	log    *zap.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc

	// progressMu serializes subtopic mutations and progress counts
	// across a wave's goroutines.
	progressMu sync.Mutex
}

// NewOrchestrator wires the orchestrator. bus may be nil when no
// progress reporting is wanted.
func NewOrchestrator(agents Agents, st Store, llmClient llm.Client, cfg types.PipelineConfig, bus *Bus, log *zap.Logger) *Orchestrator {
	if bus == nil {
		bus = &Bus{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		agents:  agents,
		store:   st,
		llm:     llmClient,
		cfg:     cfg,
		bus:     bus,
		log:     log,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Events returns the orchestrator's event bus for subscription.
func (o *Orchestrator) Events() *Bus { return o.bus }

// StartGeneration creates a job, discovers its subtopics, and persists
// the pending plan. A discovery failure fails the whole job; there is
// nothing to salvage without a subtopic list.
func (o *Orchestrator) StartGeneration(ctx context.Context, topic string, mode types.ProcessingMode, scale types.ScalePreset) (*types.GenerationJob, error) {
	job := &types.GenerationJob{
		ID:              uuid.NewString(),
		KnowledgeBaseID: uuid.NewString(),
		Topic:           topic,
		Mode:            mode,
		Scale:           scale,
		Status:          types.JobDiscovering,
	}
	if err := o.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}

	subtopicCount, _, _ := scale.Preset()
	o.bus.publish(Event{
		Type:    EventJobStarted,
		JobID:   job.ID,
		Total:   subtopicCount,
		Message: fmt.Sprintf("generating %q, estimated %d minutes", topic, scale.EstimatedMinutes()),
	})

	names, err := o.discoverSubtopics(ctx, topic, subtopicCount)
	if err != nil {
		_ = o.store.UpdateJobStatus(ctx, job.ID, types.JobFailed, err.Error())
		return nil, fmt.Errorf("discovering subtopics: %w", err)
	}
	if err := o.store.SetSubtopics(ctx, job.ID, names); err != nil {
		return nil, fmt.Errorf("persisting subtopics: %w", err)
	}
	if err := o.store.UpdateJobStatus(ctx, job.ID, types.JobRunning, ""); err != nil {
		return nil, fmt.Errorf("marking job running: %w", err)
	}

	for _, name := range names {
		job.Subtopics = append(job.Subtopics, types.Subtopic{Name: name, Status: types.SubtopicPending})
	}
	job.Status = types.JobRunning

	o.bus.publish(Event{
		Type:    EventDiscoveryComplete,
		JobID:   job.ID,
		Total:   len(names),
		Message: fmt.Sprintf("discovered %d subtopics", len(names)),
	})
	o.log.Info("job started",
		zap.String("job", job.ID),
		zap.String("topic", topic),
		zap.Int("subtopics", len(names)),
		zap.Int("estimated_minutes", scale.EstimatedMinutes()))

	return job, nil
}

// Run processes every subtopic of a started job, sequentially or in
// waves depending on the job's mode. It returns once the job reaches a
// terminal status.
func (o *Orchestrator) Run(ctx context.Context, job *types.GenerationJob) error {
	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancels[job.ID] = cancel
	o.mu.Unlock()
	defer func() {
		cancel()
		o.mu.Lock()
		delete(o.cancels, job.ID)
		o.mu.Unlock()
	}()

	_, _, concurrency := job.Scale.Preset()

	var runErr error
	switch job.Mode {
	case types.ModeParallel:
		runErr = o.runWaves(ctx, job, concurrency)
	default:
		runErr = o.runSequential(ctx, job)
	}

	if runErr != nil && errors.Is(runErr, context.Canceled) {
		job.Status = types.JobCancelled
		if err := o.store.UpdateJobStatus(context.WithoutCancel(ctx), job.ID, types.JobCancelled, "cancelled"); err != nil {
			return err
		}
		o.bus.publish(Event{Type: EventJobFinished, JobID: job.ID, JobStatus: types.JobCancelled})
		return runErr
	}
	if runErr != nil {
		return runErr
	}

	// The job fails only when every subtopic failed; partial output is
	// still a usable knowledge base.
	status := types.JobCompleted
	errMsg := ""
	if job.CompletedCount() == 0 && job.FailedCount() == len(job.Subtopics) {
		status = types.JobFailed
		errMsg = "all subtopics failed"
	}
	job.Status = status
	if err := o.store.UpdateJobStatus(ctx, job.ID, status, errMsg); err != nil {
		return err
	}

	o.bus.publish(Event{
		Type:      EventJobFinished,
		JobID:     job.ID,
		JobStatus: status,
		Current:   job.CompletedCount(),
		Total:     len(job.Subtopics),
	})
	o.log.Info("job finished",
		zap.String("job", job.ID),
		zap.String("status", string(status)),
		zap.Int("completed", job.CompletedCount()),
		zap.Int("failed", job.FailedCount()))
	return nil
}

func (o *Orchestrator) runSequential(ctx context.Context, job *types.GenerationJob) error {
	for i := range job.Subtopics {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.processSubtopic(ctx, job, &job.Subtopics[i], "")
	}
	return ctx.Err()
}

func (o *Orchestrator) runWaves(ctx context.Context, job *types.GenerationJob, concurrency int) error {
	waves := Waves(len(job.Subtopics), concurrency)
	for i, wave := range waves {
		if err := ctx.Err(); err != nil {
			return err
		}
		parallel := fmt.Sprintf("wave %d/%d", i+1, len(waves))
		o.bus.publish(Event{
			Type:           EventWaveStarted,
			JobID:          job.ID,
			Current:        wave[0] + 1,
			Total:          len(job.Subtopics),
			Message:        fmt.Sprintf("wave of %d subtopics", len(wave)),
			ParallelStatus: parallel,
		})

		// The whole wave is awaited before the next begins.
		g, waveCtx := errgroup.WithContext(ctx)
		for _, idx := range wave {
			st := &job.Subtopics[idx]
			g.Go(func() error {
				o.processSubtopic(waveCtx, job, st, parallel)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Waves partitions subtopic indexes 0..n-1 into consecutive chunks of
// at most size.
func Waves(n, size int) [][]int {
	if size < 1 {
		size = 1
	}
	var waves [][]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		wave := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			wave = append(wave, i)
		}
		waves = append(waves, wave)
	}
	return waves
}

// Status loads the current persisted state of a job.
func (o *Orchestrator) Status(ctx context.Context, jobID string) (*types.GenerationJob, error) {
	return o.store.GetJob(ctx, jobID)
}

// Cancel stops a running job. In-flight subtopics are interrupted at
// their next stage boundary.
func (o *Orchestrator) Cancel(ctx context.Context, jobID string) error {
	o.mu.Lock()
	cancel, ok := o.cancels[jobID]
	o.mu.Unlock()
	if ok {
		cancel()
		return nil
	}
	// Not running here: mark the persisted record directly.
	job, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	switch job.Status {
	case types.JobCompleted, types.JobFailed, types.JobCancelled:
		return fmt.Errorf("job %s already %s", jobID, job.Status)
	}
	return o.store.UpdateJobStatus(ctx, jobID, types.JobCancelled, "cancelled")
}
