// Package store is the process-wide farm snapshot cache. The scheduler is the
// only writer; readers get pure projections through the accessor methods.
package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"farm_poller/internal/app/port"
	"farm_poller/internal/domain/entity"
	"farm_poller/internal/pkg/metrics"
)

const subscriberBuffer = 32

type publicEntry struct {
	byPid    map[int]entity.PublicFarmSnapshot
	loadedAt time.Time
}

// SnapshotStore implements port.SnapshotSink and port.SnapshotReader on top of go-cache.
type SnapshotStore struct {
	cache   *cache.Cache
	userTTL time.Duration
	logger  port.Logger

	// mu serializes commits so the sequence check and the entry replacement are atomic.
	mu        sync.Mutex
	committed map[string]uint64

	subsMu  sync.RWMutex
	subs    map[int]chan port.CommitEvent
	nextSub int

	now func() time.Time
}

// NewSnapshotStore creates an empty store. User snapshots expire after userTTL
// without a refresh; a non-positive userTTL keeps them forever.
func NewSnapshotStore(userTTL time.Duration, logger port.Logger) *SnapshotStore {
	if userTTL <= 0 {
		userTTL = cache.NoExpiration
	}
	return &SnapshotStore{
		cache:     cache.New(cache.NoExpiration, 10*time.Minute),
		userTTL:   userTTL,
		logger:    logger.With("component", "snapshot_store"),
		committed: make(map[string]uint64),
		subs:      make(map[int]chan port.CommitEvent),
		now:       time.Now,
	}
}

func registryKey(chainID uint64) string   { return fmt.Sprintf("registry:%d", chainID) }
func poolLengthKey(chainID uint64) string { return fmt.Sprintf("poolLength:%d", chainID) }
func publicKey(chainID uint64) string     { return fmt.Sprintf("public:%d", chainID) }
func userKey(chainID uint64, account string) string {
	return fmt.Sprintf("user:%d:%s", chainID, account)
}

// Commit stores snapshot under key unless a fetch with a higher sequence has
// already been committed for the same key.
func (s *SnapshotStore) Commit(key entity.FetchKey, seq uint64, snapshot entity.Snapshot) bool {
	id := key.ID()

	s.mu.Lock()
	if last, ok := s.committed[id]; ok && seq <= last {
		s.mu.Unlock()
		metrics.StaleWrites.WithLabelValues(string(key.Kind)).Inc()
		s.logger.Debug("Discarding stale snapshot", "key", id, "seq", seq, "committed_seq", last)
		return false
	}
	s.committed[id] = seq

	switch key.Kind {
	case entity.KindPoolLength:
		s.cache.Set(poolLengthKey(key.ChainID), snapshot.PoolLength, cache.NoExpiration)
	case entity.KindInitialFarmData:
		farms := make([]entity.FarmConfig, len(snapshot.Farms))
		copy(farms, snapshot.Farms)
		sort.SliceStable(farms, func(i, j int) bool { return farms[i].Pid < farms[j].Pid })
		s.cache.Set(registryKey(key.ChainID), farms, cache.NoExpiration)
	case entity.KindPublicFarmData, entity.KindCoreFarmData:
		prev := s.publicEntry(key.ChainID)
		next := publicEntry{
			byPid:    make(map[int]entity.PublicFarmSnapshot, len(prev.byPid)+len(snapshot.Public)),
			loadedAt: s.now(),
		}
		for pid, p := range prev.byPid {
			next.byPid[pid] = p
		}
		for pid, p := range snapshot.Public {
			next.byPid[pid] = p
		}
		s.cache.Set(publicKey(key.ChainID), next, cache.NoExpiration)
	case entity.KindUserFarmData:
		user := make(map[int]entity.UserFarmSnapshot, len(snapshot.User))
		for pid, u := range snapshot.User {
			user[pid] = u
		}
		s.cache.Set(userKey(key.ChainID, key.Account), user, s.userTTL)
	default:
		s.logger.Warn("Commit for unknown resource kind", "key", id)
	}
	s.mu.Unlock()

	s.publish(port.CommitEvent{Key: key, Seq: seq})
	return true
}

// Forget drops the sequence recorded for key. A later lifetime of the same key
// starts with a fresh sequence check.
func (s *SnapshotStore) Forget(key entity.FetchKey) {
	s.mu.Lock()
	delete(s.committed, key.ID())
	s.mu.Unlock()
}

// Subscribe returns a channel of accepted commits and a function that
// unsubscribes. Events are dropped for subscribers that fall behind.
func (s *SnapshotStore) Subscribe() (<-chan port.CommitEvent, func()) {
	ch := make(chan port.CommitEvent, subscriberBuffer)

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

func (s *SnapshotStore) publish(ev port.CommitEvent) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (s *SnapshotStore) publicEntry(chainID uint64) publicEntry {
	if v, ok := s.cache.Get(publicKey(chainID)); ok {
		return v.(publicEntry)
	}
	return publicEntry{}
}

func (s *SnapshotStore) registry(chainID uint64) []entity.FarmConfig {
	if v, ok := s.cache.Get(registryKey(chainID)); ok {
		return v.([]entity.FarmConfig)
	}
	return nil
}

func (s *SnapshotStore) user(chainID uint64, account string) (map[int]entity.UserFarmSnapshot, bool) {
	if account == "" {
		return nil, false
	}
	if v, ok := s.cache.Get(userKey(chainID, account)); ok {
		return v.(map[int]entity.UserFarmSnapshot), true
	}
	return nil, false
}
