package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"farm_poller/internal/app/port"
	"farm_poller/internal/domain/entity"
	"farm_poller/internal/pkg/metrics"
)

// DefaultFetchTimeout is the deadline of the context handed to each fetch.
const DefaultFetchTimeout = 30 * time.Second

// FetchFunc performs one fetch for a job.
type FetchFunc func(ctx context.Context) (entity.Snapshot, error)

// Job binds a key to its fetch and cadence. A zero Interval fetches once.
type Job struct {
	Key      entity.FetchKey
	Interval time.Duration
	Fetch    FetchFunc
}

type runner struct {
	job      Job
	gen      uint64
	cancel   context.CancelFunc
	reset    chan time.Duration
	inFlight atomic.Bool
	// loaded is set once a result for a once-job has reached the store.
	loaded atomic.Bool
}

type fetchResult struct {
	snapshot entity.Snapshot
	err      error
}

// Scheduler runs one runner per active key.
type Scheduler struct {
	sink      port.SnapshotSink
	logger    port.Logger
	timeout   time.Duration
	onceRetry time.Duration

	seq atomic.Uint64

	mu      sync.Mutex
	runners map[string]*runner
	gen     uint64
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler committing into sink. A non-positive
// timeout selects DefaultFetchTimeout.
func NewScheduler(sink port.SnapshotSink, timeout time.Duration, logger port.Logger) *Scheduler {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Scheduler{
		sink:      sink,
		logger:    logger.With("component", "scheduler"),
		timeout:   timeout,
		onceRetry: DefaultFastInterval,
		runners:   make(map[string]*runner),
	}
}

// WithOnceRetry sets how often a once-job is retried until its first result
// is stored. Non-positive values are ignored.
func (s *Scheduler) WithOnceRetry(d time.Duration) *Scheduler {
	if d > 0 {
		s.onceRetry = d
	}
	return s
}

// Sync makes the runner table match jobs. New keys start with an immediate
// fetch; keys not in jobs are retired and any result still in flight for them
// is discarded; kept keys only pick up a changed interval.
func (s *Scheduler) Sync(ctx context.Context, jobs []Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	desired := make(map[string]Job, len(jobs))
	for _, j := range jobs {
		desired[j.Key.ID()] = j
	}

	for id, r := range s.runners {
		if _, ok := desired[id]; !ok {
			s.retireLocked(id, r)
		}
	}

	for id, j := range desired {
		if r, ok := s.runners[id]; ok {
			if r.job.Interval != j.Interval && j.Interval > 0 {
				r.job.Interval = j.Interval
				select {
				case r.reset <- j.Interval:
				default:
				}
				s.logger.Debug("Refresh interval changed", "key", id, "interval", j.Interval)
			}
			continue
		}
		s.startLocked(ctx, j)
	}

	metrics.ActiveKeys.Set(float64(len(s.runners)))
}

// Keys returns the currently scheduled keys.
func (s *Scheduler) Keys() KeySet {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]entity.FetchKey, 0, len(s.runners))
	for _, r := range s.runners {
		keys = append(keys, r.job.Key)
	}
	return newKeySet(keys...)
}

// Fetching reports whether a fetch for key is in flight.
func (s *Scheduler) Fetching(key entity.FetchKey) bool {
	s.mu.Lock()
	r, ok := s.runners[key.ID()]
	s.mu.Unlock()
	return ok && r.inFlight.Load()
}

// Stop retires every key and waits for the runner loops to exit. In-flight
// fetches are not waited for; their results are discarded.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, r := range s.runners {
		s.retireLocked(id, r)
	}
	metrics.ActiveKeys.Set(0)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) startLocked(parent context.Context, j Job) {
	s.gen++
	ctx, cancel := context.WithCancel(parent)
	r := &runner{
		job:    j,
		gen:    s.gen,
		cancel: cancel,
		reset:  make(chan time.Duration, 1),
	}
	s.runners[j.Key.ID()] = r
	s.logger.Debug("Scheduling key", "key", j.Key.ID(), "interval", j.Interval, "generation", r.gen)

	s.wg.Add(1)
	go s.run(ctx, r)
}

func (s *Scheduler) retireLocked(id string, r *runner) {
	r.cancel()
	delete(s.runners, id)
	s.sink.Forget(r.job.Key)
	s.logger.Debug("Retiring key", "key", id, "generation", r.gen)
}

func (s *Scheduler) run(ctx context.Context, r *runner) {
	defer s.wg.Done()

	s.trigger(ctx, r)
	if r.job.Interval <= 0 {
		s.runOnce(ctx, r)
		return
	}

	ticker := time.NewTicker(r.job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-r.reset:
			ticker.Reset(d)
		case <-ticker.C:
			s.trigger(ctx, r)
		}
	}
}

// runOnce retries a once-job until a result has been stored.
func (s *Scheduler) runOnce(ctx context.Context, r *runner) {
	ticker := time.NewTicker(s.onceRetry)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.loaded.Load() {
				return
			}
			s.trigger(ctx, r)
		}
	}
}

// trigger starts a fetch unless one is already in flight for the key. Dropped
// ticks are not queued.
func (s *Scheduler) trigger(ctx context.Context, r *runner) {
	if ctx.Err() != nil {
		return
	}
	if !r.inFlight.CompareAndSwap(false, true) {
		metrics.DroppedTicks.WithLabelValues(string(r.job.Key.Kind)).Inc()
		s.logger.Debug("Fetch still in flight, dropping tick", "key", r.job.Key.ID())
		return
	}
	seq := s.seq.Add(1)
	go s.fetch(ctx, r, seq)
}

// fetch runs one fetch. The key stays in flight until Fetch returns, even past
// the timeout, so a fetch that ignores ctx blocks later ticks instead of
// overlapping with them.
func (s *Scheduler) fetch(ctx context.Context, r *runner, seq uint64) {
	defer r.inFlight.Store(false)

	kind := string(r.job.Key.Kind)
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan fetchResult, 1)
	go func() {
		snap, err := r.job.Fetch(fetchCtx)
		done <- fetchResult{snapshot: snap, err: err}
	}()

	var res fetchResult
	select {
	case res = <-done:
	case <-fetchCtx.Done():
		if errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			metrics.FetchTotal.WithLabelValues(kind, "timeout").Inc()
			s.logger.Warn("Fetch timed out", "key", r.job.Key.ID(), "seq", seq, "timeout", s.timeout)
		}
		res = <-done
	}
	metrics.FetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	s.complete(r, seq, res)
}

func (s *Scheduler) complete(r *runner, seq uint64, res fetchResult) {
	id := r.job.Key.ID()
	kind := string(r.job.Key.Kind)

	if res.err != nil {
		metrics.FetchTotal.WithLabelValues(kind, "error").Inc()
		s.logger.Warn("Farm data fetch failed, retrying on next tick", "key", id, "seq", seq, "error", res.err)
		return
	}

	s.mu.Lock()
	cur, ok := s.runners[id]
	current := ok && cur.gen == r.gen
	committed := false
	if current {
		res.snapshot.Key = r.job.Key
		committed = s.sink.Commit(r.job.Key, seq, res.snapshot)
		// A rejected commit means a newer result is already stored.
		r.loaded.Store(true)
	}
	s.mu.Unlock()

	switch {
	case !current:
		metrics.FetchTotal.WithLabelValues(kind, "discarded").Inc()
		s.logger.Debug("Discarding result for retired key", "key", id, "seq", seq, "generation", r.gen)
	case !committed:
		metrics.FetchTotal.WithLabelValues(kind, "stale").Inc()
	default:
		metrics.FetchTotal.WithLabelValues(kind, "ok").Inc()
		s.logger.Debug("Snapshot committed", "key", id, "seq", seq)
	}
}
