// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/kbgen/pkg/types"
)

// errQualityGate marks a review-gate failure, retried only when
// AutoRetryOnFail is set. Stage errors are always retryable.
var errQualityGate = errors.New("quality gate failed")

// processSubtopic runs one subtopic through research, verification,
// organization, writing, and review, retrying the whole pipeline from
// research on failure. It never returns an error: a subtopic that
// exhausts its attempts is marked failed and its siblings continue.
func (o *Orchestrator) processSubtopic(ctx context.Context, job *types.GenerationJob, st *types.Subtopic, parallel string) {
	maxAttempts := 1 + o.cfg.Review.MaxRetries

	for st.Attempts < maxAttempts {
		st.Attempts++
		err := o.attemptSubtopic(ctx, job, st, parallel)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			// Cancelled mid-stage: leave the subtopic where it was, the
			// job-level status records the cancellation.
			return
		}

		retryable := !errors.Is(err, errQualityGate) || o.cfg.Review.AutoRetryOnFail
		if retryable && st.Attempts < maxAttempts {
			o.log.Warn("subtopic attempt failed, retrying",
				zap.String("job", job.ID),
				zap.String("subtopic", st.Name),
				zap.Int("attempt", st.Attempts),
				zap.Error(err))
			continue
		}

		o.progressMu.Lock()
		st.Status = types.SubtopicFailed
		st.Error = err.Error()
		snapshot := *st
		o.progressMu.Unlock()
		if serr := o.store.UpdateSubtopic(ctx, job.ID, snapshot); serr != nil {
			o.log.Error("persisting failed subtopic", zap.String("subtopic", st.Name), zap.Error(serr))
		}
		o.bus.publish(Event{
			Type:           EventSubtopicFailed,
			JobID:          job.ID,
			Subtopic:       st.Name,
			Status:         types.SubtopicFailed,
			Message:        err.Error(),
			ParallelStatus: parallel,
		})
		o.log.Error("subtopic failed",
			zap.String("job", job.ID),
			zap.String("subtopic", st.Name),
			zap.Int("attempts", st.Attempts),
			zap.Error(err))
		return
	}
}

// attemptSubtopic is one full pass through the five stages.
func (o *Orchestrator) attemptSubtopic(ctx context.Context, job *types.GenerationJob, st *types.Subtopic, parallel string) error {
	_, sources, _ := job.Scale.Preset()
	if o.cfg.Research.MaxSources > 0 {
		sources = o.cfg.Research.MaxSources
	}

	if err := o.setStatus(ctx, job, st, types.SubtopicScraping, AgentResearcher, parallel); err != nil {
		return err
	}

	rr, err := o.agents.Researcher.Collect(ctx, st.Name, job.Topic, sources)
	if err != nil {
		return fmt.Errorf("research: %w", err)
	}

	if o.cfg.Verify.Enabled {
		o.announceAgent(job, st, AgentVerifier, parallel)
		vr, err := o.agents.Verifier.Verify(ctx, rr, job.Topic)
		if err != nil {
			return fmt.Errorf("verification: %w", err)
		}
		if vr.Verification.OverallConfidence < o.cfg.Verify.MinConfidence {
			return fmt.Errorf("research confidence %.2f below minimum %.2f",
				vr.Verification.OverallConfidence, o.cfg.Verify.MinConfidence)
		}
		rr = &vr.ResearchResult
	}

	if err := o.setStatus(ctx, job, st, types.SubtopicSynthesizing, AgentOrganizer, parallel); err != nil {
		return err
	}

	oc, err := o.agents.Organizer.Organize(ctx, rr, job.Topic)
	if err != nil {
		return fmt.Errorf("organization: %w", err)
	}

	o.announceAgent(job, st, AgentWriter, parallel)
	kc, err := o.agents.Writer.Write(ctx, oc, rr)
	if err != nil {
		return fmt.Errorf("writing: %w", err)
	}
	kc.KnowledgeBaseID = job.KnowledgeBaseID
	kc.JobID = job.ID

	if err := o.setStatus(ctx, job, st, types.SubtopicOptimizing, AgentReviewer, parallel); err != nil {
		return err
	}

	var quality float64
	if o.cfg.Review.Enabled {
		review, err := o.agents.Reviewer.Review(ctx, kc, rr)
		if err != nil {
			return fmt.Errorf("review: %w", err)
		}
		quality = review.OverallScore
		if !review.Passed {
			return fmt.Errorf("%w: score %.1f below %.1f or critical issues present: %s",
				errQualityGate, review.OverallScore, o.agents.Reviewer.MinScore(), review.Summary)
		}
	}

	if err := o.store.AppendContent(ctx, kc); err != nil {
		return fmt.Errorf("persisting content: %w", err)
	}

	o.progressMu.Lock()
	st.WordCount = kc.Metadata.WordCount
	st.QualityScore = quality
	st.Error = ""
	o.progressMu.Unlock()
	if err := o.setStatus(ctx, job, st, types.SubtopicCompleted, "", parallel); err != nil {
		return err
	}

	o.progressMu.Lock()
	current := job.CompletedCount()
	o.progressMu.Unlock()
	o.bus.publish(Event{
		Type:           EventSubtopicCompleted,
		JobID:          job.ID,
		Subtopic:       st.Name,
		Status:         types.SubtopicCompleted,
		Current:        current,
		Total:          len(job.Subtopics),
		QualityScore:   quality,
		ParallelStatus: parallel,
	})
	return nil
}

// announceAgent publishes an agent change with no status transition:
// verification runs under scraping, writing under synthesizing.
func (o *Orchestrator) announceAgent(job *types.GenerationJob, st *types.Subtopic, agent, parallel string) {
	o.progressMu.Lock()
	status := st.Status
	current := job.CompletedCount()
	o.progressMu.Unlock()
	o.bus.publish(Event{
		Type:           EventSubtopicStatus,
		JobID:          job.ID,
		Subtopic:       st.Name,
		Status:         status,
		Agent:          agent,
		Current:        current,
		Total:          len(job.Subtopics),
		ParallelStatus: parallel,
	})
}

// setStatus validates, persists, and announces a subtopic transition.
func (o *Orchestrator) setStatus(ctx context.Context, job *types.GenerationJob, st *types.Subtopic, next types.SubtopicStatus, agent, parallel string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.progressMu.Lock()
	if !st.Status.CanTransition(next) {
		o.progressMu.Unlock()
		return fmt.Errorf("illegal subtopic transition %s -> %s", st.Status, next)
	}
	st.Status = next
	snapshot := *st
	current := job.CompletedCount()
	o.progressMu.Unlock()

	if err := o.store.UpdateSubtopic(ctx, job.ID, snapshot); err != nil {
		return fmt.Errorf("persisting subtopic status: %w", err)
	}
	o.bus.publish(Event{
		Type:           EventSubtopicStatus,
		JobID:          job.ID,
		Subtopic:       st.Name,
		Status:         next,
		Agent:          agent,
		Current:        current,
		Total:          len(job.Subtopics),
		ParallelStatus: parallel,
	})
	return nil
}
