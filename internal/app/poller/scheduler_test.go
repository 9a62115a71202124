package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm_poller/internal/app/store"
	"farm_poller/internal/domain/entity"
	"farm_poller/internal/pkg/logger"
)

// recordingSink wraps the real store and records accepted commits.
type recordingSink struct {
	*store.SnapshotStore
	mu        sync.Mutex
	accepted  []uint64
	forgotten []string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{SnapshotStore: store.NewSnapshotStore(time.Hour, logger.NewDiscard())}
}

func (r *recordingSink) Commit(key entity.FetchKey, seq uint64, snap entity.Snapshot) bool {
	ok := r.SnapshotStore.Commit(key, seq, snap)
	if ok {
		r.mu.Lock()
		r.accepted = append(r.accepted, seq)
		r.mu.Unlock()
	}
	return ok
}

func (r *recordingSink) Forget(key entity.FetchKey) {
	r.SnapshotStore.Forget(key)
	r.mu.Lock()
	r.forgotten = append(r.forgotten, key.ID())
	r.mu.Unlock()
}

func (r *recordingSink) forgottenIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.forgotten...)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accepted)
}

var poolKey = entity.FetchKey{Kind: entity.KindPoolLength, ChainID: 56}

func TestScheduler_FetchesImmediately(t *testing.T) {
	sink := newRecordingSink()
	s := NewScheduler(sink, time.Second, logger.NewDiscard())
	defer s.Stop()

	s.Sync(context.Background(), []Job{{
		Key:      poolKey,
		Interval: time.Hour,
		Fetch: func(context.Context) (entity.Snapshot, error) {
			return entity.Snapshot{PoolLength: 7}, nil
		},
	}})

	require.Eventually(t, func() bool { return sink.PoolLength(56) == 7 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"poolLength:56"}, s.Keys().IDs())
}

func TestScheduler_AtMostOneInFlight(t *testing.T) {
	sink := newRecordingSink()
	s := NewScheduler(sink, time.Second, logger.NewDiscard())
	defer s.Stop()

	release := make(chan struct{})
	var current, maxSeen, calls atomic.Int32
	s.Sync(context.Background(), []Job{{
		Key:      poolKey,
		Interval: 2 * time.Millisecond,
		Fetch: func(ctx context.Context) (entity.Snapshot, error) {
			calls.Add(1)
			n := current.Add(1)
			defer current.Add(-1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			select {
			case <-release:
			case <-ctx.Done():
				return entity.Snapshot{}, ctx.Err()
			}
			return entity.Snapshot{PoolLength: int(n)}, nil
		},
	}})

	require.Eventually(t, func() bool { return s.Fetching(poolKey) }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond) // ~25 ticks fire while the first fetch is outstanding
	assert.Equal(t, int32(1), calls.Load(), "ticks during an outstanding fetch are dropped, not queued")

	close(release)
	require.Eventually(t, func() bool { return sink.count() >= 3 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestScheduler_OnceJob(t *testing.T) {
	sink := newRecordingSink()
	s := NewScheduler(sink, time.Second, logger.NewDiscard())
	defer s.Stop()

	var calls atomic.Int32
	job := Job{
		Key: entity.FetchKey{Kind: entity.KindInitialFarmData, ChainID: 56},
		Fetch: func(context.Context) (entity.Snapshot, error) {
			calls.Add(1)
			return entity.Snapshot{Farms: []entity.FarmConfig{{Pid: 1}}}, nil
		},
	}
	s.Sync(context.Background(), []Job{job})
	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, time.Millisecond)

	// Re-syncing the same key does not fetch again.
	s.Sync(context.Background(), []Job{job})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestScheduler_FailureRetriedOnNextTick(t *testing.T) {
	sink := newRecordingSink()
	s := NewScheduler(sink, time.Second, logger.NewDiscard())
	defer s.Stop()

	var calls atomic.Int32
	s.Sync(context.Background(), []Job{{
		Key:      poolKey,
		Interval: 5 * time.Millisecond,
		Fetch: func(context.Context) (entity.Snapshot, error) {
			if calls.Add(1) == 1 {
				return entity.Snapshot{}, errors.New("rpc unavailable")
			}
			return entity.Snapshot{PoolLength: 9}, nil
		},
	}})

	require.Eventually(t, func() bool { return sink.PoolLength(56) == 9 }, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, calls.Load(), int32(2))
}

func TestScheduler_RetiredKeyResultDiscarded(t *testing.T) {
	sink := newRecordingSink()
	s := NewScheduler(sink, time.Second, logger.NewDiscard())
	defer s.Stop()

	release := make(chan struct{})
	started := make(chan struct{})
	userKey := entity.FetchKey{Kind: entity.KindUserFarmData, ChainID: 56, Account: "0xabc"}
	s.Sync(context.Background(), []Job{{
		Key:      userKey,
		Interval: time.Hour,
		Fetch: func(context.Context) (entity.Snapshot, error) {
			close(started)
			<-release // ignores cancellation on purpose
			return entity.Snapshot{User: map[int]entity.UserFarmSnapshot{1: {Pid: 1}}}, nil
		},
	}})
	<-started

	s.Sync(context.Background(), nil)
	assert.Empty(t, s.Keys())
	close(release)

	assert.Never(t, func() bool { return sink.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	assert.False(t, sink.Farms(56, "0xabc").UserDataLoaded)
}

func TestScheduler_TimeoutKeepsKeyUntilFetchReturns(t *testing.T) {
	sink := newRecordingSink()
	s := NewScheduler(sink, 10*time.Millisecond, logger.NewDiscard())
	defer s.Stop()

	release := make(chan struct{})
	var current, maxSeen, calls atomic.Int32
	s.Sync(context.Background(), []Job{{
		Key:      poolKey,
		Interval: 5 * time.Millisecond,
		Fetch: func(context.Context) (entity.Snapshot, error) {
			n := current.Add(1)
			defer current.Add(-1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			if calls.Add(1) == 1 {
				<-release // hangs past the timeout and ignores ctx
				return entity.Snapshot{PoolLength: 1}, nil
			}
			return entity.Snapshot{PoolLength: 2}, nil
		},
	}})

	require.Eventually(t, func() bool { return s.Fetching(poolKey) }, time.Second, time.Millisecond)
	time.Sleep(100 * time.Millisecond) // many timeouts and ticks pass
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, s.Fetching(poolKey))

	close(release)
	require.Eventually(t, func() bool { return sink.PoolLength(56) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), maxSeen.Load())
}

func TestScheduler_OnceJobRetriedUntilLoaded(t *testing.T) {
	sink := newRecordingSink()
	s := NewScheduler(sink, time.Second, logger.NewDiscard()).WithOnceRetry(5 * time.Millisecond)
	defer s.Stop()

	var calls atomic.Int32
	s.Sync(context.Background(), []Job{{
		Key: entity.FetchKey{Kind: entity.KindInitialFarmData, ChainID: 56},
		Fetch: func(context.Context) (entity.Snapshot, error) {
			if calls.Add(1) == 1 {
				return entity.Snapshot{}, errors.New("registry unavailable")
			}
			return entity.Snapshot{Farms: []entity.FarmConfig{{Pid: 2, LpSymbol: "CAKE-BNB LP"}}}, nil
		},
	}})

	require.Eventually(t, func() bool {
		_, ok := sink.FarmFromLpSymbol(56, "CAKE-BNB LP")
		return ok
	}, time.Second, time.Millisecond)

	// No more fetches once the registry is stored.
	n := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, calls.Load())
	assert.Equal(t, int32(2), n)
}

func TestScheduler_RetireForgetsKey(t *testing.T) {
	sink := newRecordingSink()
	s := NewScheduler(sink, time.Second, logger.NewDiscard())
	defer s.Stop()

	job := Job{
		Key:      poolKey,
		Interval: time.Hour,
		Fetch: func(context.Context) (entity.Snapshot, error) {
			return entity.Snapshot{PoolLength: 4}, nil
		},
	}
	s.Sync(context.Background(), []Job{job})
	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, time.Millisecond)

	s.Sync(context.Background(), nil)
	assert.Equal(t, []string{"poolLength:56"}, sink.forgottenIDs())

	// The key comes back and its first fetch is accepted.
	s.Sync(context.Background(), []Job{job})
	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, time.Millisecond)
}

func TestScheduler_IntervalChange(t *testing.T) {
	sink := newRecordingSink()
	s := NewScheduler(sink, time.Second, logger.NewDiscard())
	defer s.Stop()

	var calls atomic.Int32
	job := Job{
		Key:      poolKey,
		Interval: time.Hour,
		Fetch: func(context.Context) (entity.Snapshot, error) {
			calls.Add(1)
			return entity.Snapshot{PoolLength: 1}, nil
		},
	}
	s.Sync(context.Background(), []Job{job})
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	job.Interval = 5 * time.Millisecond
	s.Sync(context.Background(), []Job{job})
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
}

func TestScheduler_StopIsTerminal(t *testing.T) {
	sink := newRecordingSink()
	s := NewScheduler(sink, time.Second, logger.NewDiscard())
	s.Stop()

	s.Sync(context.Background(), []Job{{
		Key:      poolKey,
		Interval: time.Millisecond,
		Fetch: func(context.Context) (entity.Snapshot, error) {
			return entity.Snapshot{PoolLength: 1}, nil
		},
	}})
	assert.Empty(t, s.Keys())
	assert.Never(t, func() bool { return sink.count() > 0 }, 20*time.Millisecond, 2*time.Millisecond)
}
