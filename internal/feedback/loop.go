// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package feedback closes the loop between downstream usage of a
// knowledge base and its next regeneration: it buffers usage telemetry,
// aggregates per-content effectiveness, clusters unanswered queries
// into gaps, and produces tuning reports.
package feedback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/kbgen/pkg/types"
)

// Store is the persistence surface the loop needs. Implemented by
// store.Store.
type Store interface {
	AppendUsageEvents(ctx context.Context, events []types.UsageEvent) error
	QueryUsageEvents(ctx context.Context, kbID string, from, to time.Time) ([]types.UsageEvent, error)
}

// Loop buffers usage events and flushes them in batches, either when
// the buffer reaches the configured threshold or on the flush interval.
type Loop struct {
	store Store
	cfg   types.FeedbackConfig
	log   *zap.Logger

	mu  sync.Mutex
	buf []types.UsageEvent
}

// NewLoop wires a feedback loop. Zero config fields take defaults.
func NewLoop(st Store, cfg types.FeedbackConfig, log *zap.Logger) *Loop {
	if cfg.FlushThreshold <= 0 {
		cfg.FlushThreshold = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 30 * time.Second
	}
	if cfg.Window <= 0 {
		cfg.Window = 7 * 24 * time.Hour
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{store: st, cfg: cfg, log: log}
}

// Record buffers one usage event, assigning an idempotency key when the
// caller did not supply one. The buffer is flushed synchronously once
// it reaches the threshold.
func (l *Loop) Record(ctx context.Context, ev types.UsageEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	l.buf = append(l.buf, ev)
	full := len(l.buf) >= l.cfg.FlushThreshold
	l.mu.Unlock()

	if full {
		return l.Flush(ctx)
	}
	return nil
}

// Flush writes all buffered events to the store. On failure the batch
// is re-queued ahead of newer events; the idempotency keys make a
// partially applied batch safe to retry.
func (l *Loop) Flush(ctx context.Context) error {
	l.mu.Lock()
	if len(l.buf) == 0 {
		l.mu.Unlock()
		return nil
	}
	batch := l.buf
	l.buf = nil
	l.mu.Unlock()

	if err := l.store.AppendUsageEvents(ctx, batch); err != nil {
		l.mu.Lock()
		l.buf = append(batch, l.buf...)
		l.mu.Unlock()
		return fmt.Errorf("flushing %d usage events: %w", len(batch), err)
	}

	l.log.Debug("usage events flushed", zap.Int("count", len(batch)))
	return nil
}

// Pending returns the number of buffered events.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buf)
}

// Run flushes on the configured interval until ctx is cancelled, then
// performs a final flush.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := l.Flush(context.WithoutCancel(ctx)); err != nil {
				l.log.Warn("final flush failed", zap.Error(err))
			}
			return
		case <-ticker.C:
			if err := l.Flush(ctx); err != nil {
				l.log.Warn("periodic flush failed", zap.Error(err))
			}
		}
	}
}
