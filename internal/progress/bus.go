package progress

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultSubscriberBuffer bounds how far a subscriber may fall behind
	// before it is dropped. Fan-out is back-pressure free.
	DefaultSubscriberBuffer = 16

	// DefaultCloseGrace is how long terminal snapshots stay deliverable
	// before subscriber channels are closed.
	DefaultCloseGrace = time.Second
)

// Bus is the per-process registry of jobs and their subscribers. It is
// constructed once and injected; state never lives in package globals.
type Bus struct {
	mu     sync.Mutex
	jobs   map[string]*jobEntry
	logger *slog.Logger

	subBuffer  int
	closeGrace time.Duration

	now func() time.Time
}

type jobEntry struct {
	snap   Snapshot
	subs   map[int64]chan Snapshot
	nextID int64
	closed bool
}

// Option configures a Bus.
type Option func(*Bus)

// WithSubscriberBuffer overrides the per-subscriber channel buffer.
func WithSubscriberBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.subBuffer = n
		}
	}
}

// WithCloseGrace overrides the delay between a terminal transition and the
// closing of subscriber channels.
func WithCloseGrace(d time.Duration) Option {
	return func(b *Bus) {
		if d >= 0 {
			b.closeGrace = d
		}
	}
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger, opts ...Option) *Bus {
	b := &Bus{
		jobs:       make(map[string]*jobEntry),
		logger:     logger,
		subBuffer:  DefaultSubscriberBuffer,
		closeGrace: DefaultCloseGrace,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Track registers jobID and returns its tracker. The job starts in the
// queued stage; if subscribers connected before the job was known they
// receive the queued snapshot immediately.
func (b *Bus) Track(jobID string) *Tracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	entry, ok := b.jobs[jobID]
	if !ok {
		entry = &jobEntry{subs: make(map[int64]chan Snapshot)}
		b.jobs[jobID] = entry
	}
	entry.snap = Snapshot{
		JobID:        jobID,
		Stage:        StageQueued,
		Progress:     0,
		CreatedAt:    now,
		LastUpdateAt: now,
	}
	b.publishLocked(entry)

	return &Tracker{bus: b, jobID: jobID}
}

// Status returns the last known snapshot for jobID.
func (b *Bus) Status(jobID string) (Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.jobs[jobID]
	if !ok || entry.snap.Stage == StageWaiting {
		return Snapshot{}, false
	}
	return entry.snap, true
}

// Subscribe attaches a listener to jobID. The current snapshot is delivered
// into the returned channel before Subscribe returns, so a late subscriber
// recovers the last known stage rather than only future transitions. If the
// job is not yet known the first delivery is the synthetic waiting snapshot.
//
// The returned cancel func MUST be called when the consumer goes away; it is
// idempotent. A transport that skips it leaks the subscriber for the life of
// the job.
func (b *Bus) Subscribe(jobID string) (<-chan Snapshot, func()) {
	b.mu.Lock()

	entry, ok := b.jobs[jobID]
	if !ok {
		entry = &jobEntry{
			snap: Snapshot{JobID: jobID, Stage: StageWaiting},
			subs: make(map[int64]chan Snapshot),
		}
		b.jobs[jobID] = entry
	}

	ch := make(chan Snapshot, b.subBuffer)
	ch <- entry.snap

	var id int64
	if entry.closed {
		// Terminal and already past the grace period: the initial snapshot
		// is all this subscriber gets.
		close(ch)
	} else {
		id = entry.nextID
		entry.nextID++
		entry.subs[id] = ch
	}
	closed := entry.closed
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			if closed {
				return
			}
			b.unsubscribe(jobID, id)
		})
	}
	return ch, cancel
}

func (b *Bus) unsubscribe(jobID string, id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.jobs[jobID]
	if !ok {
		return
	}
	if ch, ok := entry.subs[id]; ok {
		delete(entry.subs, id)
		close(ch)
	}
	b.gcLocked(jobID, entry)
}

// SubscriberCount reports the number of live subscribers across all jobs.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, entry := range b.jobs {
		n += len(entry.subs)
	}
	return n
}

// JobCount reports the number of tracked jobs (including terminal jobs not
// yet collected).
func (b *Bus) JobCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.jobs)
}

// update applies a transition and fans it out. Transitions on a terminal job
// are ignored: the record is immutable once complete or errored.
func (b *Bus) update(jobID string, mutate func(*Snapshot)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.jobs[jobID]
	if !ok {
		return
	}
	if entry.snap.Stage.Terminal() {
		b.logger.Warn("transition on terminal job ignored", "job_id", jobID, "stage", entry.snap.Stage)
		return
	}

	mutate(&entry.snap)
	entry.snap.LastUpdateAt = b.now()
	b.publishLocked(entry)

	if entry.snap.Stage.Terminal() {
		// Give transports a moment to flush the final message, then close
		// every subscriber channel. New-job creation is never blocked on
		// this timer.
		time.AfterFunc(b.closeGrace, func() { b.closeJob(jobID) })
	}
}

// publishLocked delivers the current snapshot to every subscriber. A
// subscriber whose buffer is full is dropped rather than slowing the
// pipeline.
func (b *Bus) publishLocked(entry *jobEntry) {
	for id, ch := range entry.subs {
		select {
		case ch <- entry.snap:
		default:
			b.logger.Warn("dropping slow progress subscriber", "job_id", entry.snap.JobID)
			delete(entry.subs, id)
			close(ch)
		}
	}
}

func (b *Bus) closeJob(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.jobs[jobID]
	if !ok {
		return
	}
	for id, ch := range entry.subs {
		delete(entry.subs, id)
		close(ch)
	}
	entry.closed = true
	b.gcLocked(jobID, entry)
}

// gcLocked collects a job once it is terminal (or never materialized) and
// has no subscribers left. There is no durable retention requirement.
func (b *Bus) gcLocked(jobID string, entry *jobEntry) {
	if len(entry.subs) != 0 {
		return
	}
	if entry.snap.Stage.Terminal() || entry.snap.Stage == StageWaiting {
		delete(b.jobs, jobID)
	}
}
