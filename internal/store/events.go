// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pdiddy/kbgen/pkg/types"
)

// AppendUsageEvents persists a batch of usage events in one transaction.
// Event IDs are idempotency keys: a duplicate insert is silently
// ignored, so re-queuing a batch after a partial flush failure cannot
// double-count.
func (s *Store) AppendUsageEvents(ctx context.Context, events []types.UsageEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO usage_events
		 (id, kb_id, content_id, type, query, success, helpful, follow_up, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		ts := ev.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		_, err := stmt.ExecContext(ctx,
			ev.ID, ev.KnowledgeBaseID, ev.ContentID, string(ev.Type), ev.Query,
			boolInt(ev.Success), boolInt(ev.Helpful), boolInt(ev.FollowUp),
			ev.LatencyMS, ts.UTC().Format(timeFormat),
		)
		if err != nil {
			return fmt.Errorf("inserting usage event %s: %w", ev.ID, err)
		}
	}
	return tx.Commit()
}

// QueryUsageEvents returns all usage events for a knowledge base whose
// timestamp falls in [from, to), ordered by timestamp.
func (s *Store) QueryUsageEvents(ctx context.Context, kbID string, from, to time.Time) ([]types.UsageEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kb_id, content_id, type, query, success, helpful, follow_up, latency_ms, created_at
		 FROM usage_events
		 WHERE kb_id = ? AND created_at >= ? AND created_at < ?
		 ORDER BY created_at`,
		kbID, from.UTC().Format(timeFormat), to.UTC().Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("querying usage events: %w", err)
	}
	defer rows.Close()

	var events []types.UsageEvent
	for rows.Next() {
		var (
			ev                         types.UsageEvent
			evType, createdAt          string
			success, helpful, followUp int
		)
		err := rows.Scan(&ev.ID, &ev.KnowledgeBaseID, &ev.ContentID, &evType, &ev.Query,
			&success, &helpful, &followUp, &ev.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scanning usage event: %w", err)
		}
		ev.Type = types.UsageEventType(evType)
		ev.Success = success != 0
		ev.Helpful = helpful != 0
		ev.FollowUp = followUp != 0
		ev.Timestamp, _ = time.Parse(timeFormat, createdAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
