package metrics

import (
	"fmt"
	"sync"
	"time"
)

// Recorder is an in-memory Collector that counts calls by name and label.
// Tests use it to assert on what the engine reported.
type Recorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewRecorder() *Recorder {
	return &Recorder{counts: make(map[string]int)}
}

// Count returns how many times key was recorded, e.g.
// "store_divergence:set" or "lock_contention".
func (r *Recorder) Count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

func (r *Recorder) inc(key string) {
	r.mu.Lock()
	r.counts[key]++
	r.mu.Unlock()
}

func (r *Recorder) RecordTransition(eventType string, outcome string) {
	r.inc(fmt.Sprintf("transition:%s:%s", eventType, outcome))
}

func (r *Recorder) RecordLockContention() {
	r.inc("lock_contention")
}

func (r *Recorder) RecordStoreDivergence(op string) {
	r.inc("store_divergence:" + op)
}

func (r *Recorder) RecordAutopick(tier string) {
	r.inc("autopick:" + tier)
}

func (r *Recorder) RecordEventPublished(eventType string, success bool, _ time.Duration) {
	r.inc(fmt.Sprintf("published:%s:%s", eventType, status(success)))
}

func (r *Recorder) RecordPublishAttempt(eventType string, attempt int, success bool) {
	r.inc(fmt.Sprintf("attempt:%s:%d:%s", eventType, attempt, status(success)))
}

func (r *Recorder) RecordOutboxBatch(count int, _ time.Duration) {
	r.mu.Lock()
	r.counts["outbox_batches"]++
	r.counts["outbox_events"] += count
	r.mu.Unlock()
}

func (r *Recorder) RecordDueDrafts(count int) {
	r.mu.Lock()
	r.counts["due_drafts"] = count
	r.mu.Unlock()
}
