// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"sync"
	"time"

	"github.com/pdiddy/kbgen/pkg/types"
)

// EventType classifies a progress event.
type EventType string

const (
	EventJobStarted        EventType = "job_started"
	EventDiscoveryComplete EventType = "discovery_complete"
	EventWaveStarted       EventType = "wave_started"
	EventSubtopicStatus    EventType = "subtopic_status"
	EventSubtopicCompleted EventType = "subtopic_completed"
	EventSubtopicFailed    EventType = "subtopic_failed"
	EventJobFinished       EventType = "job_finished"
)

// Event is one progress notification from the orchestrator. Consumers
// receive events synchronously on the publishing goroutine and must not
// block.
type Event struct {
	Type      EventType
	JobID     string
	Subtopic  string
	Status    types.SubtopicStatus
	JobStatus types.JobStatus

	// Agent names the stage active when the event was published. Both
	// research and verification run under the scraping status; the
	// agent tells them apart.
	Agent string

	Current int
	Total   int
	Message string

	// ParallelStatus carries wave scheduling state in parallel mode,
	// e.g. "wave 2/3". Empty in sequential mode.
	ParallelStatus string

	QualityScore float64
	Timestamp    time.Time
}

// Bus fans progress events out to subscribers. The zero value is ready
// to use.
type Bus struct {
	mu   sync.Mutex
	subs []func(Event)
}

// Subscribe registers a handler for all subsequent events.
func (b *Bus) Subscribe(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

func (b *Bus) publish(ev Event) {
	ev.Timestamp = time.Now().UTC()
	b.mu.Lock()
	subs := make([]func(Event), len(b.subs))
	copy(subs, b.subs)
	b.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}
