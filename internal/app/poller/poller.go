package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"farm_poller/internal/app/port"
	"farm_poller/internal/domain/entity"
)

// Config holds the poller cadences and the fetch safety timeout.
type Config struct {
	FastInterval time.Duration
	APIInterval  time.Duration
	SlowInterval time.Duration
	FetchTimeout time.Duration
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		FastInterval: DefaultFastInterval,
		APIInterval:  DefaultAPIInterval,
		SlowInterval: DefaultSlowInterval,
		FetchTimeout: DefaultFetchTimeout,
	}
}

// Policy returns the refresh policy described by the config.
func (c Config) Policy() RefreshPolicy {
	def := DefaultRefreshPolicy()
	p := RefreshPolicy{Fast: c.FastInterval, API: c.APIInterval, Slow: c.SlowInterval}
	if p.Fast <= 0 {
		p.Fast = def.Fast
	}
	if p.API <= 0 {
		p.API = def.API
	}
	if p.Slow <= 0 {
		p.Slow = def.Slow
	}
	return p
}

// Session is the poller's source of chain context, flag and change signals.
type Session interface {
	port.ChainContextSource
	port.FlagSource
	Changes() <-chan struct{}
}

// Poller derives fetch keys from the session and keeps the scheduler in sync
// with them.
type Poller struct {
	policy   RefreshPolicy
	session  Session
	client   port.ChainDataClient
	registry port.FarmRegistry
	sched    *Scheduler
	logger   port.Logger

	mu       sync.Mutex
	lastKeys KeySet
}

// New creates a poller writing into sink.
func New(
	cfg Config,
	sess Session,
	client port.ChainDataClient,
	registry port.FarmRegistry,
	sink port.SnapshotSink,
	logger port.Logger,
) *Poller {
	l := logger.With("component", "poller")
	policy := cfg.Policy()
	return &Poller{
		policy:   policy,
		session:  sess,
		client:   client,
		registry: registry,
		sched:    NewScheduler(sink, cfg.FetchTimeout, logger).WithOnceRetry(policy.Fast),
		logger:   l,
	}
}

// Run reconciles once, then again on every session change, until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Farm poller started")
	p.Reconcile(ctx)
	for {
		select {
		case <-ctx.Done():
			p.sched.Stop()
			p.logger.Info("Farm poller stopped")
			return ctx.Err()
		case <-p.session.Changes():
			p.Reconcile(ctx)
		}
	}
}

// Reconcile derives the keys for the current session and re-syncs the
// scheduler when they differ from the last derivation. It reports whether
// scheduling changed.
func (p *Poller) Reconcile(ctx context.Context) bool {
	cc := p.session.ChainContext().Normalized()
	flag := p.session.FarmFlag().OrDefault()
	keys := DeriveKeys(cc, flag)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastKeys != nil && keys.Equal(p.lastKeys) {
		p.logger.Debug("Fetch keys unchanged", "chain_id", cc.ChainID, "flag", flag)
		return false
	}

	jobs := make([]Job, 0, len(keys))
	for _, k := range keys {
		jobs = append(jobs, p.jobFor(k))
	}
	p.sched.Sync(ctx, jobs)
	p.lastKeys = keys

	p.logger.Info("Fetch keys updated", "chain_id", cc.ChainID, "account", cc.Account, "flag", flag, "keys", keys.IDs())
	return true
}

// Keys returns the scheduled keys.
func (p *Poller) Keys() KeySet {
	return p.sched.Keys()
}

// Stop stops all polling.
func (p *Poller) Stop() {
	p.sched.Stop()
}

func (p *Poller) jobFor(key entity.FetchKey) Job {
	return Job{
		Key:      key,
		Interval: p.policy.Interval(key.Kind, key.Variant),
		Fetch:    p.fetchFunc(key),
	}
}

func (p *Poller) fetchFunc(key entity.FetchKey) FetchFunc {
	switch key.Kind {
	case entity.KindPoolLength:
		return func(ctx context.Context) (entity.Snapshot, error) {
			n, err := p.client.FetchPoolLength(ctx, key.ChainID)
			if err != nil {
				return entity.Snapshot{}, fmt.Errorf("fetch pool length for chain %d: %w", key.ChainID, err)
			}
			return entity.Snapshot{PoolLength: n}, nil
		}
	case entity.KindPublicFarmData:
		return func(ctx context.Context) (entity.Snapshot, error) {
			pids, err := p.registryPids(ctx, key.ChainID)
			if err != nil {
				return entity.Snapshot{}, err
			}
			data, err := p.client.FetchPublicFarmData(ctx, key.ChainID, pids, key.Variant)
			if err != nil {
				return entity.Snapshot{}, fmt.Errorf("fetch public farm data for chain %d: %w", key.ChainID, err)
			}
			return entity.Snapshot{Public: data}, nil
		}
	case entity.KindUserFarmData:
		return func(ctx context.Context) (entity.Snapshot, error) {
			pids, err := p.registryPids(ctx, key.ChainID)
			if err != nil {
				return entity.Snapshot{}, err
			}
			data, err := p.client.FetchUserFarmData(ctx, key.ChainID, key.Account, pids)
			if err != nil {
				return entity.Snapshot{}, fmt.Errorf("fetch user farm data for chain %d account %s: %w", key.ChainID, key.Account, err)
			}
			return entity.Snapshot{User: data}, nil
		}
	case entity.KindCoreFarmData:
		return func(ctx context.Context) (entity.Snapshot, error) {
			pids := CoreFarmPids(key.ChainID)
			if len(pids) == 0 {
				return entity.Snapshot{}, fmt.Errorf("chain %d: %w", key.ChainID, entity.ErrNoCoreFarms)
			}
			data, err := p.client.FetchPublicFarmData(ctx, key.ChainID, pids, entity.FlagDefault)
			if err != nil {
				return entity.Snapshot{}, fmt.Errorf("fetch core farm data for chain %d: %w", key.ChainID, err)
			}
			return entity.Snapshot{Public: data}, nil
		}
	case entity.KindInitialFarmData:
		return func(ctx context.Context) (entity.Snapshot, error) {
			farms, err := p.registry.GetFarmRegistry(ctx, key.ChainID)
			if err != nil {
				return entity.Snapshot{}, fmt.Errorf("load farm registry for chain %d: %w", key.ChainID, err)
			}
			return entity.Snapshot{Farms: farms}, nil
		}
	default:
		return func(context.Context) (entity.Snapshot, error) {
			return entity.Snapshot{}, fmt.Errorf("no fetch for resource kind %q", key.Kind)
		}
	}
}

func (p *Poller) registryPids(ctx context.Context, chainID uint64) ([]int, error) {
	farms, err := p.registry.GetFarmRegistry(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("load farm registry for chain %d: %w", chainID, err)
	}
	pids := make([]int, 0, len(farms))
	for _, f := range farms {
		pids = append(pids, f.Pid)
	}
	return pids, nil
}
