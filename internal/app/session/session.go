// Package session holds the runtime wallet/chain selection and the farm
// feature flag. It is the poller's view of the outside world.
package session

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"farm_poller/internal/domain/entity"
)

// Snapshot is a consistent read of the session.
type Snapshot struct {
	Context entity.ChainContext `json:"context"`
	Flag    entity.FlagVariant  `json:"flag"`
}

// State is safe for concurrent use. Every effective change is signalled on the
// channel returned by Changes; bursts coalesce into one notification.
type State struct {
	mu      sync.RWMutex
	ctx     entity.ChainContext
	flag    entity.FlagVariant
	changed chan struct{}
}

// NewState creates a session with the given initial context and flag.
func NewState(initial entity.ChainContext, flag entity.FlagVariant) *State {
	return &State{
		ctx:     initial.Normalized(),
		flag:    flag.OrDefault(),
		changed: make(chan struct{}, 1),
	}
}

// ChainContext implements port.ChainContextSource.
func (s *State) ChainContext() entity.ChainContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

// FarmFlag implements port.FlagSource.
func (s *State) FarmFlag() entity.FlagVariant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flag
}

// Current returns the context and flag read under one lock.
func (s *State) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Context: s.ctx, Flag: s.flag}
}

// Changes returns the notification channel.
func (s *State) Changes() <-chan struct{} {
	return s.changed
}

// SetChainContext switches chain and/or account. A non-empty account must be a
// hex address.
func (s *State) SetChainContext(c entity.ChainContext) error {
	if c.HasAccount() && !common.IsHexAddress(c.Account) {
		return entity.ErrInvalidAccount
	}
	c = c.Normalized()

	s.mu.Lock()
	changed := s.ctx != c
	s.ctx = c
	s.mu.Unlock()

	if changed {
		s.notify()
	}
	return nil
}

// Disconnect drops the connected account, keeping the chain.
func (s *State) Disconnect() {
	s.mu.Lock()
	changed := s.ctx.Account != ""
	s.ctx.Account = ""
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// SetFarmFlag switches the feature-flag variant.
func (s *State) SetFarmFlag(v entity.FlagVariant) {
	v = v.OrDefault()

	s.mu.Lock()
	changed := s.flag != v
	s.flag = v
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func (s *State) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}
